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
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/nifty-mvp/nifty/config"
	"github.com/nifty-mvp/nifty/log"
)

// cli holds flags shared by all subcommands.
type cli struct {
	envFiles  []string
	addr      string
	logLevel  string
	serverURL string

	cfg *config.Config
	// loadOpts replaces the environment in tests.
	loadOpts []config.Option
}

// NewRootCommand creates the root cobra command.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&cli{})
}

func newRootCommand(c *cli) *cobra.Command {
	root := &cobra.Command{
		Use:           "nifty",
		Short:         "Turn a prompt into an AI image and mint it as an NFT",
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.initialize()
		},
	}
	root.PersistentFlags().StringSliceVar(&c.envFiles, "env-file", []string{".env"}, "Dotenv files to load")
	root.PersistentFlags().StringVar(&c.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&c.serverURL, "server", "", "Server URL for client commands")

	root.AddCommand(newServeCommand(c))
	root.AddCommand(newGenerateCommand(c))
	root.AddCommand(newUploadCommand(c))
	root.AddCommand(newMintCommand(c))
	root.AddCommand(newCreateCommand(c))
	return root
}

func (c *cli) initialize() error {
	opts := append([]config.Option{config.WithEnvFiles(c.envFiles...)}, c.loadOpts...)
	cfg, err := config.Load(opts...)
	if err != nil {
		return err
	}
	if c.addr != "" {
		cfg.Addr = c.addr
	}
	if c.logLevel != "" {
		cfg.LogLevel = c.logLevel
	}
	if c.serverURL != "" {
		cfg.Mint.ServerURL = c.serverURL
	}
	log.SetLevel(cfg.LogLevel)
	c.cfg = cfg
	return nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}
