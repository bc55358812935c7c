package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/jobforge/jobforge/pkg/engine"
	"github.com/jobforge/jobforge/pkg/xmlgen"
)

func newTestCommand() *cobra.Command {
	var (
		outputDir   string
		pluginsInfo string
		watch       bool
	)

	cmd := &cobra.Command{
		Use:   "test <path> [name...]",
		Short: "Compile job definitions without touching the cache",
		Long: `Compile YAML job definitions and print the resulting XML to stdout,
or write one file per job when an output directory is given.

Remaining arguments are glob patterns restricting which jobs and views
are emitted.`,
		Example: `  # Print all jobs under a directory
  jobforge test ./jobs

  # Write only the release jobs to a directory
  jobforge test -o ./out ./jobs 'release-*'

  # Recompile whenever a definition file changes
  jobforge test --watch -o ./out ./jobs`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime()
			if err != nil {
				return err
			}
			defer rt.shutdown()

			path, globs := args[0], args[1:]
			run := func(ctx context.Context) error {
				result, err := rt.engine(pluginsInfo).Run(ctx, []string{path})
				if err != nil {
					return err
				}
				result = result.Filter(globs)

				if outputDir == "" {
					docs := make([]*xmlgen.Job, 0, len(result.Jobs)+len(result.Views))
					docs = append(docs, result.Jobs...)
					docs = append(docs, result.Views...)
					for _, doc := range docs {
						out, err := doc.Output()
						if err != nil {
							return err
						}
						if _, err := cmd.OutOrStdout().Write(out); err != nil {
							return err
						}
					}
					return nil
				}

				writer := &engine.Writer{
					Workers: rt.cfg.Workers,
					Logger:  rt.logger,
					Metrics: rt.metrics,
				}
				summary, err := writer.Write(ctx, result, outputDir)
				if err != nil {
					return err
				}
				rt.logger.Infof("wrote %d files to %s", summary.Written, outputDir)
				return nil
			}

			if err := run(cmd.Context()); err != nil {
				return err
			}
			if !watch {
				return nil
			}
			return watchAndRun(cmd.Context(), rt.logger, path, run)
		},
	}

	cmd.Flags().StringVarP(&outputDir, "output-dir", "o", "", "write files here instead of stdout")
	cmd.Flags().StringVarP(&pluginsInfo, "plugins-info", "p", "", "plugin info YAML document")
	cmd.Flags().BoolVar(&watch, "watch", false, "recompile when definition files change")

	return cmd
}
