package commands

import (
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jobforge/jobforge/pkg/engine"
	"github.com/jobforge/jobforge/pkg/stores"
	"github.com/jobforge/jobforge/pkg/xmlgen"
)

func newUpdateCommand() *cobra.Command {
	var (
		workers     int
		flushCache  bool
		pluginsInfo string
	)

	cmd := &cobra.Command{
		Use:   "update <path> [name...]",
		Short: "Compile job definitions and write changed files",
		Long: `Compile YAML job definitions and write the resulting XML to the
configured output directory.

When the cache is enabled, jobs whose generated XML is unchanged since
the previous update are skipped. Remaining arguments are glob patterns
restricting which jobs and views are written.`,
		Example: `  # Update everything under a directory
  jobforge update ./jobs

  # Rewrite every file regardless of the cache
  jobforge update --flush-cache ./jobs`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime()
			if err != nil {
				return err
			}
			defer rt.shutdown()

			ctx := cmd.Context()
			start := time.Now().UTC()

			result, err := rt.engine(pluginsInfo).Run(ctx, []string{args[0]})
			if err != nil {
				return err
			}
			result = result.Filter(args[1:])

			var cache *stores.Cache
			if rt.cfg.Cache.Enabled {
				cache, err = stores.NewCache(stores.Config{Path: rt.cfg.Cache.Path})
				if err != nil {
					return err
				}
				if err := cache.Init(ctx); err != nil {
					return err
				}
				defer cache.Close()
				if flushCache {
					if err := cache.Clear(ctx); err != nil {
						return err
					}
				}
			}

			if workers <= 0 {
				workers = rt.cfg.Workers
			}
			writer := &engine.Writer{
				Workers: workers,
				Logger:  rt.logger,
				Metrics: rt.metrics,
			}
			if cache != nil {
				writer.Skip = func(doc *xmlgen.Job) (bool, error) {
					sum, err := doc.MD5()
					if err != nil {
						return false, err
					}
					changed, err := cache.HasChanged(ctx, doc.Name, sum)
					if err != nil {
						return false, err
					}
					return !changed, nil
				}
				writer.Written = func(doc *xmlgen.Job) error {
					sum, err := doc.MD5()
					if err != nil {
						return err
					}
					return cache.Set(ctx, doc.Name, sum)
				}
			}

			summary, writeErr := writer.Write(ctx, result, rt.cfg.OutputDir)

			if cache != nil {
				now := time.Now().UTC()
				rec := &stores.Run{
					ID:          uuid.NewString(),
					StartedAt:   start,
					CompletedAt: &now,
					Jobs:        len(result.Jobs),
					Views:       len(result.Views),
				}
				if writeErr != nil {
					msg := writeErr.Error()
					rec.Error = &msg
				}
				if err := cache.RecordRun(ctx, rec); err != nil {
					rt.logger.WithError(err).Warn("failed to record run")
				}
			}
			if writeErr != nil {
				return writeErr
			}

			rt.logger.Infof("wrote %d files to %s (%d unchanged)",
				summary.Written, rt.cfg.OutputDir, summary.Skipped)
			return nil
		},
	}

	cmd.Flags().IntVar(&workers, "workers", 0, "concurrent writes (0 uses the configured value)")
	cmd.Flags().BoolVar(&flushCache, "flush-cache", false, "discard the cache before writing")
	cmd.Flags().StringVarP(&pluginsInfo, "plugins-info", "p", "", "plugin info YAML document")

	return cmd
}
