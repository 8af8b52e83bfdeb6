package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/molsim-ai/molsim/pkg/app"
	"github.com/molsim-ai/molsim/pkg/mcp"
)

func newMCPCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve molsim tools over MCP on stdio",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := g.load()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			svc, err := app.New(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer func() { _ = svc.Close() }()

			var hist mcp.History
			if svc.History != nil {
				hist = svc.History
			}
			var budget mcp.BudgetReporter
			if svc.Budget != nil {
				budget = svc.Budget
			}
			srv := mcp.New(svc.Simulation, svc.Predictor, hist, budget, version, logger.Named("mcp"))
			return srv.Run(ctx, os.Stdin, os.Stdout)
		},
	}
}
