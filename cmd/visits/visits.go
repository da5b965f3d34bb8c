package visits

import (
	"github.com/spf13/cobra"

	"github.com/tphakala/visits-go/internal/app"
)

// Command creates the visits command, which pages through visits the way a
// live client does. Leaving --until empty keeps the newest visits open.
func Command(ctx *app.Context) *cobra.Command {
	var flags app.QueryFlags
	var limit, offset int

	cmd := &cobra.Command{
		Use:   "visits",
		Short: "Page through visits, resuming from a recording offset",
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

			traceCtx, _ := app.WithTrace(cmd.Context())
			page, err := a.Collector().Live(traceCtx, q, limit, offset)
			if err != nil {
				return err
			}
			return app.WriteJSON(cmd.OutOrStdout(), page)
		},
	}

	flags.Bind(cmd)
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Completed visits per page")
	cmd.Flags().IntVar(&offset, "offset", 0, "Recording offset returned as nextOffset by the previous page")

	return cmd
}
