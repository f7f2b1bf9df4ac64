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
	"context"
	"os/signal"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/nifty-mvp/nifty/config"
	"github.com/nifty-mvp/nifty/internal/setup"
	"github.com/nifty-mvp/nifty/log"
	"github.com/nifty-mvp/nifty/server/api"
	"github.com/nifty-mvp/nifty/telemetry/metric"
	"github.com/nifty-mvp/nifty/telemetry/trace"
)

func newServeCommand(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve /api/generate and /api/ipfs-upload",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			srv, cleanup, err := buildServer(ctx, c.cfg)
			if err != nil {
				return err
			}
			defer cleanup()
			return srv.ListenAndServe(ctx, c.cfg.Addr)
		},
	}
	cmd.Flags().StringVar(&c.addr, "addr", "", "Listen address (default "+config.DefaultAddr+")")
	return cmd
}

// buildServer wires telemetry, metrics and both forwarders.
func buildServer(ctx context.Context, cfg *config.Config) (*api.Server, func(), error) {
	cleanup := func() {}
	if ep := cfg.Telemetry.OTLPEndpoint; ep != "" {
		opt := trace.WithEndpoint(ep)
		if strings.Contains(ep, "://") {
			opt = trace.WithEndpointURL(ep)
		}
		clean, err := trace.Start(ctx, opt, trace.WithServiceName(cfg.Telemetry.ServiceName))
		if err != nil {
			return nil, nil, err
		}
		cleanup = func() {
			if err := clean(); err != nil {
				log.Warnf("trace shutdown: %v", err)
			}
		}
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	obs, err := metric.NewPrometheusObserver(metric.DefaultNamespace, reg)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	svcs, err := setup.New(cfg, obs)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	log.Infof("image backend %s, storage backend %s", svcs.Generate.Backend(), svcs.Upload.Store().Name())

	srv := api.New(svcs.Generate, svcs.Upload,
		api.WithAllowedOrigins(cfg.AllowedOrigins...),
		api.WithMaxBodyBytes(cfg.MaxRequestBytes),
		api.WithObserver(obs),
		api.WithMetricsGatherer(reg),
	)
	return srv, cleanup, nil
}
