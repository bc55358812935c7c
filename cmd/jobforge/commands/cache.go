package commands

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/jobforge/jobforge/pkg/stores"
)

func newCacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and manage the job cache",
	}
	cmd.AddCommand(newCacheClearCommand())
	cmd.AddCommand(newCacheRunsCommand())
	return cmd
}

func newCacheClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Discard all cached job checksums",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCache(cmd.Context(), func(ctx context.Context, cache *stores.Cache) error {
				if err := cache.Clear(ctx); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "cache cleared")
				return nil
			})
		},
	}
}

func newCacheRunsCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recent update runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCache(cmd.Context(), func(ctx context.Context, cache *stores.Cache) error {
				runs, err := cache.ListRuns(ctx, limit)
				if err != nil {
					return err
				}
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tSTARTED\tJOBS\tVIEWS\tSTATUS")
				for _, run := range runs {
					status := "ok"
					if run.Error != nil {
						status = *run.Error
					}
					fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\n",
						run.ID, run.StartedAt.Format(time.RFC3339), run.Jobs, run.Views, status)
				}
				return w.Flush()
			})
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of runs to list")

	return cmd
}

// withCache opens the configured cache for the duration of fn.
func withCache(ctx context.Context, fn func(context.Context, *stores.Cache) error) error {
	rt, err := newRuntime()
	if err != nil {
		return err
	}
	defer rt.shutdown()

	cache, err := stores.NewCache(stores.Config{Path: rt.cfg.Cache.Path})
	if err != nil {
		return err
	}
	if err := cache.Init(ctx); err != nil {
		return err
	}
	defer cache.Close()

	return fn(ctx, cache)
}
