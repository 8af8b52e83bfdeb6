package main

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/molsim-ai/molsim/pkg/config"
	"github.com/molsim-ai/molsim/pkg/history"
	"github.com/molsim-ai/molsim/pkg/models"
)

func newHistoryCmd(g *globalFlags) *cobra.Command {
	var (
		filter  models.RunFilter
		since   string
		summary bool
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List computed simulation runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			if since != "" {
				t, err := time.Parse("2006-01-02", since)
				if err != nil {
					return fmt.Errorf("invalid --since (use YYYY-MM-DD): %w", err)
				}
				filter.Since = t
			}

			cfg, _, err := g.load()
			if err != nil {
				return err
			}
			tr, err := openHistory(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = tr.Close() }()

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			if summary {
				rows, err := tr.Summary(cmd.Context(), filter.Since)
				if err != nil {
					return err
				}
				if len(rows) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No runs found.")
					return nil
				}
				fmt.Fprintln(w, "BACKEND\tSTATUS\tRUNS\tAVG MS")
				for _, r := range rows {
					fmt.Fprintf(w, "%s\t%s\t%d\t%.1f\n", r.Backend, r.Status, r.Runs, r.AvgDurationMs)
				}
				return w.Flush()
			}

			runs, err := tr.Recent(cmd.Context(), filter)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No runs found.")
				return nil
			}
			fmt.Fprintln(w, "TIME\tMOLECULE\tBACKEND\tSTATUS\tEXACT\tVQE\tQUBITS\tMS")
			for _, r := range runs {
				exact, vqe := "-", "-"
				if r.Status == models.StatusSuccess {
					exact = fmt.Sprintf("%.6f", r.ExactEnergy)
					vqe = fmt.Sprintf("%.6f", r.VQEEnergy)
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%d\t%d\n",
					r.CreatedAt.Format("2006-01-02T15:04:05"), r.MoleculeName, r.Backend, r.Status,
					exact, vqe, r.QubitCount, r.DurationMs)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&filter.Backend, "backend", "", "filter by backend name")
	cmd.Flags().StringVar(&filter.Status, "status", "", "filter by status (success or failed)")
	cmd.Flags().StringVar(&since, "since", "", "only runs on or after this date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&filter.Limit, "limit", 20, "maximum runs to list")
	cmd.Flags().BoolVar(&summary, "summary", false, "aggregate by backend and status")
	return cmd
}

func openHistory(cfg *config.Config) (*history.SQLiteTracker, error) {
	if cfg.History.DBPath == "" {
		return nil, errors.New("run history is disabled: set history.db_path")
	}
	// retention is enforced by the server, not by one-shot commands
	return history.New(cfg.History.DBPath, 0)
}
