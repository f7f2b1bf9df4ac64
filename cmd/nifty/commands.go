//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-agent-go is licensed under the Apache License Version 2.0.
//
//

package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nifty-mvp/nifty/client"
	"github.com/nifty-mvp/nifty/dataurl"
	"github.com/nifty-mvp/nifty/mint"
	"github.com/nifty-mvp/nifty/pinning"
)

func (c *cli) newClient() *client.Client {
	return client.New(c.cfg.Mint.ServerURL)
}

func (c *cli) minter() (*mint.Minter, error) {
	mc := c.cfg.Mint
	return mint.New(mc.RPCURL, mc.ContractAddress, mc.PrivateKey, mint.WithExplorer(mc.ExplorerTxURL))
}

func newGenerateCommand(c *cli) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "generate <prompt>",
		Short: "Generate an image and print its data URL",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := c.newClient().Generate(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			if out == "" {
				_, err = fmt.Fprintln(cmd.OutOrStdout(), resp.ImageURL)
				return err
			}
			return writeImage(out, resp.ImageURL)
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "Write the image to this file instead of printing the data URL")
	return cmd
}

func newUploadCommand(c *cli) *cobra.Command {
	var req pinning.Request
	cmd := &cobra.Command{
		Use:   "upload <imageUrl>",
		Short: "Pin an image and its metadata",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req.ImageURL = args[0]
			resp, err := c.newClient().Upload(cmd.Context(), req)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), resp)
		},
	}
	cmd.Flags().StringVar(&req.Name, "name", "", "Metadata name")
	cmd.Flags().StringVar(&req.Description, "description", "", "Metadata description")
	return cmd
}

func newMintCommand(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "mint <tokenUri>",
		Short: "Call safeMint with the given token URI",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := c.minter()
			if err != nil {
				return err
			}
			res, err := m.Mint(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		},
	}
}

func newCreateCommand(c *cli) *cobra.Command {
	var (
		pin         bool
		name        string
		description string
		yes         bool
	)
	cmd := &cobra.Command{
		Use:   "create <prompt>",
		Short: "Generate an image, confirm, then mint it",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := c.minter()
			if err != nil {
				return err
			}
			var opts []client.SessionOption
			if pin {
				opts = append(opts, client.WithPinning(name, description))
			}
			s := client.NewSession(c.newClient(), m, opts...)

			w := cmd.OutOrStdout()
			if err := s.Generate(cmd.Context(), strings.Join(args, " ")); err != nil {
				return err
			}
			fmt.Fprintf(w, "generated %d-character image URL\n", len(s.Snapshot().ImageURL))
			if !yes && !confirm(cmd, "Mint this image? [y/N] ") {
				fmt.Fprintln(w, "not minted")
				return nil
			}
			if err := s.Mint(cmd.Context()); err != nil {
				return err
			}
			return printJSON(w, s.Snapshot().Mint)
		},
	}
	cmd.Flags().BoolVar(&pin, "pin", false, "Pin the image and metadata before minting")
	cmd.Flags().StringVar(&name, "name", "", "Metadata name when pinning")
	cmd.Flags().StringVar(&description, "description", "", "Metadata description when pinning")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Mint without asking")
	return cmd
}

func confirm(cmd *cobra.Command, prompt string) bool {
	fmt.Fprint(cmd.OutOrStdout(), prompt)
	var answer string
	if _, err := fmt.Fscanln(cmd.InOrStdin(), &answer); err != nil {
		return false
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}

func writeImage(path, imageURL string) error {
	_, data, err := dataurl.Decode(imageURL)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
