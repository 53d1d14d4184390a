package cli

import (
	"github.com/spf13/cobra"
)

// newRootCommand builds the command tree. Running a subcommand only fills
// in inv; the work happens in Execute.
func newRootCommand(inv *Invocation) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "sitebuild",
		Short: "incremental static site compiler",
		Long: `sitebuild compiles the items of a site through their filters and
layouts and writes the results to the output directory. Only items whose
inputs or dependencies changed since the previous run are recompiled.`,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return invalidInvocationf("a command is required (compile|outdated)")
		},
	}
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&inv.SiteDir, "site", "", "Absolute site directory. Required.")
	pf.StringVar(&inv.ConfigPath, "config", "", "Configuration file, relative to the site (default sitebuild.yaml).")
	pf.StringVar(&inv.OutputDir, "output-dir", "", "Output directory, overrides output_dir.")
	pf.StringVar(&inv.LogLevel, "log-level", "", "Log level: debug|info|warn|error.")
	pf.StringVar(&inv.LogFormat, "log-format", "", "Log format: text|json.")

	compileCmd := &cobra.Command{
		Use:   "compile",
		Short: "compile the site",
		Long:  `Compile every outdated item rep and write it to the output directory.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			inv.Command = CommandCompile
			return nil
		},
	}
	compileCmd.Flags().StringVar(&inv.TracePath, "trace", "", "Write the canonical build trace to this path.")
	compileCmd.Flags().StringVar(&inv.MetricsPath, "metrics", "", "Write Prometheus metrics of the run to this path.")

	outdatedCmd := &cobra.Command{
		Use:   "outdated",
		Short: "list the item reps the next compile would recompile",
		Long:  `List every outdated item rep with the reasons it is outdated. Nothing is compiled or written.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			inv.Command = CommandOutdated
			return nil
		},
	}

	rootCmd.AddCommand(compileCmd, outdatedCmd)
	return rootCmd
}
