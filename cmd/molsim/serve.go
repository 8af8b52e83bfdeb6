package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/molsim-ai/molsim/pkg/app"
	"github.com/molsim-ai/molsim/pkg/server"
	"github.com/molsim-ai/molsim/pkg/tracing"
)

func newServeCmd(g *globalFlags) *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := g.load()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()
			if listen != "" {
				cfg.Listen = listen
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			shutdown, err := tracing.Init(ctx, cfg.Tracing.ServiceName, version, cfg.Tracing.Endpoint)
			if err != nil {
				return fmt.Errorf("init tracing: %w", err)
			}
			defer func() {
				sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdown(sctx); err != nil {
					logger.Warn("tracer shutdown", zap.Error(err))
				}
			}()

			svc, err := app.New(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer func() {
				if err := svc.Close(); err != nil {
					logger.Warn("close services", zap.Error(err))
				}
			}()

			srv := server.New(server.Options{
				Listen:      cfg.Listen,
				GRPCListen:  cfg.GRPCListen,
				CORSOrigins: cfg.CORSOrigins,
			}, svc.Simulation, svc.Predictor, svc.Selector, svc.Metrics, logger.Named("http"))

			logger.Info("starting molsim",
				zap.String("version", version),
				zap.String("config", g.configPath),
			)
			return srv.ListenAndServe(ctx)
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "", "override the HTTP listen address")
	return cmd
}
