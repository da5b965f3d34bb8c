package report

import (
	"github.com/spf13/cobra"

	"github.com/tphakala/visits-go/internal/app"
	"github.com/tphakala/visits-go/internal/logger"
)

// Command creates the report command, which prints the visits of a closed
// time range together with per-device and per-animal summaries.
func Command(ctx *app.Context) *cobra.Command {
	var flags app.QueryFlags

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print the visits of a time range",
		Long:  `Aggregate the tagged recordings of a closed time range into visits and print them as JSON.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := ctx.App
			loc, err := a.Settings.Visits.Location()
			if err != nil {
				return err
			}
			q, err := flags.Query(loc)
			if err != nil {
				return err
			}
			builder, err := a.Reports()
			if err != nil {
				return err
			}

			traceCtx, traceID := app.WithTrace(cmd.Context())
			a.Log.WithContext(traceCtx).Debug("building report", logger.String("trace_id", traceID))
			r, err := builder.Build(traceCtx, q)
			if err != nil {
				return err
			}
			return app.WriteJSON(cmd.OutOrStdout(), r)
		},
	}

	flags.Bind(cmd)
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("until")

	return cmd
}
