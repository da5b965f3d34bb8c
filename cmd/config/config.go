package config

import (
	"github.com/spf13/cobra"

	"github.com/tphakala/visits-go/internal/app"
	"github.com/tphakala/visits-go/internal/conf"
)

// Command creates the config command.
func Command(ctx *app.Context) *cobra.Command {
	var defaults bool

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Long:  `Print the configuration after applying config.yaml, VISITS_ environment variables and flags. Secrets are masked.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if defaults {
				_, err := cmd.OutOrStdout().Write(conf.DefaultConfig())
				return err
			}
			return conf.WriteYAML(cmd.OutOrStdout(), ctx.Settings)
		},
	}

	cmd.Flags().BoolVar(&defaults, "defaults", false, "Print the built-in default config.yaml instead")

	return cmd
}
