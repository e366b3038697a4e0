package main

import (
	"os"

	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	c := newCommandContext()

	rootCmd := &cobra.Command{
		Use:           "ottscout",
		Short:         "Track new Indian-language releases on streaming platforms",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// flags win over the environment
			if c.policyFile != "" {
				if err := os.Setenv("OTTSCOUT_POLICY_FILE", c.policyFile); err != nil {
					return err
				}
			}
			c.initLogger()
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVar(&c.logLevel, "log-level", "", "Log level (overrides LOG_LEVEL)")
	rootCmd.PersistentFlags().StringVar(&c.logFormat, "log-format", "", "Log format: auto, console or json (overrides LOG_FORMAT)")
	rootCmd.PersistentFlags().StringVar(&c.policyFile, "policy", "", "Catalog policy TOML file (overrides OTTSCOUT_POLICY_FILE)")
	rootCmd.PersistentFlags().StringVar(&c.sqlitePath, "sqlite", "", "SQLite run history file (overrides OTTSCOUT_SQLITE_PATH)")

	rootCmd.AddCommand(newRunCommand(c))
	rootCmd.AddCommand(newServeCommand(c))
	rootCmd.AddCommand(newPolicyCommand(c))
	rootCmd.AddCommand(newVersionCommand())

	return rootCmd
}
