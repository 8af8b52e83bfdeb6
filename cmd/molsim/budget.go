package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/molsim-ai/molsim/pkg/backend"
	"github.com/molsim-ai/molsim/pkg/budget"
)

func newBudgetCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "budget",
		Short: "Inspect hardware run budgets",
	}

	var backendName string
	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show budget usage vs limits",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := g.load()
			if err != nil {
				return err
			}
			if !cfg.Hardware.Budget.Enabled {
				fmt.Fprintln(cmd.OutOrStdout(), "Budget enforcement is disabled.")
				return nil
			}

			tr, err := openHistory(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = tr.Close() }()

			statuses, err := budget.New(cfg.Hardware.Budget.Policies, tr).Status(cmd.Context(), backendName)
			if err != nil {
				return err
			}
			if len(statuses) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No budget policies found for this backend.")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "BACKEND\tPERIOD\tMAX RUNS\tUSED\tREMAINING")
			for _, s := range statuses {
				fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\n",
					backendName, s.Policy.Period, s.Policy.MaxRuns, s.Used, s.Remaining)
			}
			return w.Flush()
		},
	}
	statusCmd.Flags().StringVar(&backendName, "backend", backend.NameHardware, "backend name")

	cmd.AddCommand(statusCmd)
	return cmd
}
