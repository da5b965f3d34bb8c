package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tphakala/visits-go/cmd/config"
	"github.com/tphakala/visits-go/cmd/monitor"
	"github.com/tphakala/visits-go/cmd/report"
	"github.com/tphakala/visits-go/cmd/version"
	"github.com/tphakala/visits-go/cmd/visits"
	"github.com/tphakala/visits-go/internal/app"
)

// RootCommand creates and returns the root command
func RootCommand(ctx *app.Context) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "visits",
		Short:         "Animal visit reports for trail camera recordings",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	if err := setupFlags(rootCmd, ctx); err != nil {
		// Flag binding only fails on programming errors.
		panic(err)
	}

	configCmd := config.Command(ctx)
	versionCmd := version.Command()

	rootCmd.AddCommand(
		report.Command(ctx),
		monitor.Command(ctx),
		visits.Command(ctx),
		configCmd,
		versionCmd,
	)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		switch cmd.Name() {
		case versionCmd.Name():
			return nil
		case configCmd.Name():
			// Printing configuration must not open the database.
			return ctx.LoadSettings()
		}
		return ctx.Init(cmd.Context())
	}
	rootCmd.PersistentPostRun = func(_ *cobra.Command, _ []string) {
		ctx.Close()
	}

	return rootCmd
}

// setupFlags defines flags that are global to the command line interface
func setupFlags(rootCmd *cobra.Command, ctx *app.Context) error {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&ctx.ConfigFile, "config", "c", "", "Path to config.yaml")
	flags.StringVar(&ctx.EnvFile, "env-file", "", "Dotenv file with VISITS_ overrides (default .env if present)")
	flags.BoolP("debug", "d", false, "Enable debug output")
	flags.Bool("metrics", false, "Serve Prometheus metrics while the command runs")
	flags.String("metrics-listen", "", "Metrics listen address")

	for key, name := range map[string]string{
		"debug":           "debug",
		"metrics.enabled": "metrics",
		"metrics.listen":  "metrics-listen",
	} {
		if err := ctx.Viper.BindPFlag(key, flags.Lookup(name)); err != nil {
			return fmt.Errorf("error binding flag %s: %w", name, err)
		}
	}
	return nil
}
