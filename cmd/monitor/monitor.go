package monitor

import (
	"github.com/spf13/cobra"

	"github.com/tphakala/visits-go/internal/app"
	"github.com/tphakala/visits-go/internal/monitoring"
)

// Command creates the monitor command.
func Command(ctx *app.Context) *cobra.Command {
	var flags app.QueryFlags
	var page int

	cmd := &cobra.Command{
		Use:   "monitor",
		Short: "Print one monitoring page of visits",
		Long: `Split a search range into fixed-length pages, most recent first, and print the
visits that start within the selected page. Visits are split per recording
when the recordings disagree on the animal.`,
		Args: cobra.NoArgs,
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

			traceCtx, _ := app.WithTrace(cmd.Context())
			p, err := a.Monitoring().Page(traceCtx, monitoring.Params{
				Filter:      q,
				SearchFrom:  q.From,
				SearchUntil: q.Until,
				Page:        page,
			})
			if err != nil {
				return err
			}
			return app.WriteJSON(cmd.OutOrStdout(), p)
		},
	}

	flags.Bind(cmd)
	cmd.Flags().IntVarP(&page, "page", "p", 1, "Page number, 1 is the most recent")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("until")

	return cmd
}
