package main

import (
	"time"

	"github.com/spf13/cobra"

	"nyurban_tracker/internal/server"
	"nyurban_tracker/internal/tracker"
)

// minLoopInterval keeps a zero check interval from spinning the loop.
const minLoopInterval = time.Minute

func newCheckCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Run one check cycle and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			checker, store, err := ctx.buildChecker()
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			_, err = checker.Run(cmd.Context())
			return err
		},
	}
}

func newRunCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Check repeatedly until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			checker, store, err := ctx.buildChecker()
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			interval := max(ctx.config.CheckInterval(), minLoopInterval)
			tracker.NewLoop(checker, interval, ctx.logger()).Run(cmd.Context())
			return nil
		},
	}
}

func newServeCommand(ctx *commandContext) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve /health, /check and /metrics for an external scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			checker, store, err := ctx.buildChecker()
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			cfg := ctx.config
			if addr == "" {
				addr = cfg.ListenAddr
			}
			srv := server.New(checker, server.Options{
				Addr:          addr,
				Secret:        cfg.WebhookSecret,
				RatePerMinute: cfg.WebhookRatePerMinute,
				CheckTimeout:  cfg.CheckTimeout(),
			}, ctx.logger())
			return srv.Start(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (defaults to listen_addr or :$PORT)")
	return cmd
}
