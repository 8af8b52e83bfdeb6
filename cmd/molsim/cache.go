package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/molsim-ai/molsim/pkg/cache"
)

func newCacheCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear the result cache",
	}

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Show cache statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(cmd, g)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if !cache.Enabled(store) {
				fmt.Fprintln(cmd.OutOrStdout(), "Cache is not configured.")
				return nil
			}
			n, err := store.Count(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Entries: %d\n", n)
			return nil
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every cached result",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(cmd, g)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			n, err := store.Clear(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d cache entries.\n", n)
			return nil
		},
	}

	cmd.AddCommand(statsCmd, clearCmd)
	return cmd
}

func openStore(cmd *cobra.Command, g *globalFlags) (cache.Store, error) {
	cfg, _, err := g.load()
	if err != nil {
		return nil, err
	}
	store, err := cache.Open(cmd.Context(), cfg.Store.URL, 0)
	if err != nil {
		return nil, fmt.Errorf("open cache store: %w", err)
	}
	return store, nil
}
