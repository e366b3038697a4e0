package main

import (
	"ottscout/internal/core/catalog"

	"github.com/spf13/cobra"
)

func newPolicyCommand(c *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "policy",
		Short: "Print the effective catalog policy as TOML",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := catalog.Load(c.env().MayString("POLICY_FILE", ""))
			if err != nil {
				return err
			}
			return catalog.Encode(cmd.OutOrStdout(), p)
		},
	}
}
