package app

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/tphakala/visits-go/internal/errors"
	"github.com/tphakala/visits-go/internal/visits"
)

// Accepted layouts for --from and --until.
var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	time.DateOnly,
}

// QueryFlags are the recording filters shared by the query commands.
type QueryFlags struct {
	From     string
	Until    string
	Group    string
	Devices  []uint
	Stations []uint
}

// Bind registers the filter flags on cmd.
func (f *QueryFlags) Bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.From, "from", "", "Earliest recording start (RFC3339 or YYYY-MM-DD)")
	cmd.Flags().StringVar(&f.Until, "until", "", "Recording start upper bound, exclusive")
	cmd.Flags().StringVarP(&f.Group, "group", "g", "", "Only recordings from this group")
	cmd.Flags().UintSliceVar(&f.Devices, "device", nil, "Only recordings from these device ids")
	cmd.Flags().UintSliceVar(&f.Stations, "station", nil, "Only recordings from these station ids")
}

// Query converts the flags into a visit query. Times without a zone are
// read in loc.
func (f *QueryFlags) Query(loc *time.Location) (visits.Query, error) {
	from, err := ParseTime(f.From, loc)
	if err != nil {
		return visits.Query{}, err
	}
	until, err := ParseTime(f.Until, loc)
	if err != nil {
		return visits.Query{}, err
	}
	if !from.IsZero() && !until.IsZero() && !from.Before(until) {
		return visits.Query{}, errors.Newf("--from must be before --until").
			Component("app").
			Category(errors.CategoryValidation).
			Context("from", f.From).
			Context("until", f.Until).
			Build()
	}
	return visits.Query{
		From:       from,
		Until:      until,
		GroupName:  f.Group,
		DeviceIDs:  f.Devices,
		StationIDs: f.Stations,
	}, nil
}

// ParseTime parses s with the first matching layout. An empty string gives
// the zero time.
func ParseTime(s string, loc *time.Location) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if loc == nil {
		loc = time.UTC
	}
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errors.Newf("unrecognised time %q", s).
		Component("app").
		Category(errors.CategoryValidation).
		Build()
}
