package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newValidateCommand() *cobra.Command {
	var pluginsInfo string

	cmd := &cobra.Command{
		Use:   "validate <path>",
		Short: "Check that job definitions compile",
		Long: `Compile YAML job definitions and discard the output. The command
fails on the first definition that cannot be compiled: malformed YAML,
unresolvable includes, missing substitution variables, or unknown
components.`,
		Example: `  # Validate definitions before committing
  jobforge validate ./jobs`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime()
			if err != nil {
				return err
			}
			defer rt.shutdown()

			result, err := rt.engine(pluginsInfo).Run(cmd.Context(), []string{args[0]})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "OK: %d jobs, %d views\n",
				len(result.Jobs), len(result.Views))
			return nil
		},
	}

	cmd.Flags().StringVarP(&pluginsInfo, "plugins-info", "p", "", "plugin info YAML document")

	return cmd
}
