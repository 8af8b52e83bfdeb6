package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/molsim-ai/molsim/pkg/config"
	"github.com/molsim-ai/molsim/pkg/logging"
)

var version = "dev"

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath string
	logLevel   string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}
	root := &cobra.Command{
		Use:           "molsim",
		Short:         "molsim - molecular ground-state simulation service",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&g.configPath, "config", "c", "molsim.yaml", "path to config file")
	root.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "override log.level from the config file")

	root.AddCommand(
		newServeCmd(g),
		newSimulateCmd(g),
		newPredictCmd(g),
		newCacheCmd(g),
		newHistoryCmd(g),
		newBudgetCmd(g),
		newMCPCmd(g),
	)
	return root
}

// load reads the config, falling back to defaults when the default file is
// absent, and builds the logger.
func (g *globalFlags) load() (*config.Config, *zap.Logger, error) {
	cfg, err := config.LoadOrDefault(g.configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	level := cfg.Log.Level
	if g.logLevel != "" {
		level = g.logLevel
	}
	logger, err := logging.New(level, cfg.Log.Format)
	if err != nil {
		return nil, nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, logger, nil
}
