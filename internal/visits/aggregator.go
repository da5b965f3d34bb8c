package visits

import (
	"cmp"
	"slices"
	"time"

	"github.com/tphakala/visits-go/internal/logger"
	"github.com/tphakala/visits-go/internal/recording"
	"github.com/tphakala/visits-go/internal/taxonomy"
)

// Options configures an Aggregator.
type Options struct {
	GroupBy      GroupBy
	EventMaxTime time.Duration
	Taxonomy     *taxonomy.Taxonomy
	Logger       logger.Logger
}

// Aggregator routes recordings to per-key visit tracks. It is not safe for
// concurrent use; each query builds its own.
type Aggregator struct {
	opts      Options
	seq       IDSequence
	consensus *Consensus
	tracks    map[Key]*DeviceVisitTrack
	order     []Key
	log       logger.Logger
}

// NewAggregator returns an empty aggregator.
func NewAggregator(opts Options) *Aggregator {
	if opts.EventMaxTime <= 0 {
		opts.EventMaxTime = EventMaxTime
	}
	if !opts.GroupBy.Valid() {
		opts.GroupBy = GroupByDevice
	}
	log := opts.Logger
	if log == nil {
		log = logger.Global().Module("visits")
	}
	return &Aggregator{
		opts:      opts,
		consensus: NewConsensus(opts.Taxonomy),
		tracks:    make(map[Key]*DeviceVisitTrack),
		log:       log,
	}
}

// AddRecording adds one recording from the stream at the given offset.
func (a *Aggregator) AddRecording(rec *recording.Recording, offset int) error {
	key := KeyFor(rec, a.opts.GroupBy)
	track, ok := a.tracks[key]
	if !ok {
		track = newDeviceVisitTrack(key, rec, &a.seq, a.consensus, a.opts.EventMaxTime)
		a.tracks[key] = track
		a.order = append(a.order, key)
	}
	if err := track.AddRecording(rec, offset); err != nil {
		a.log.Warn("rejected recording",
			logger.Uint64("recording_id", uint64(rec.ID)),
			logger.String("key", key.String()),
			logger.Error(err))
		return err
	}
	return nil
}

// CompleteBefore completes every open visit that no recording starting at
// or after t could extend. It returns the number of visits completed.
func (a *Aggregator) CompleteBefore(t time.Time) int {
	n := 0
	for _, key := range a.order {
		if a.tracks[key].CompleteBefore(t) {
			n++
		}
	}
	if n > 0 {
		a.log.Debug("completed visits",
			logger.Int("count", n),
			logger.Time("before", t))
	}
	return n
}

// CompleteAll completes every open visit.
func (a *Aggregator) CompleteAll() int {
	n := 0
	for _, key := range a.order {
		if a.tracks[key].CompleteAll() {
			n++
		}
	}
	return n
}

// VisitCount returns the number of visits across all keys.
func (a *Aggregator) VisitCount() int {
	n := 0
	for _, t := range a.tracks {
		n += t.VisitCount()
	}
	return n
}

// EventCount returns the number of events across all keys.
func (a *Aggregator) EventCount() int {
	n := 0
	for _, t := range a.tracks {
		n += t.EventCount()
	}
	return n
}

// CompletedCount returns the number of completed visits.
func (a *Aggregator) CompletedCount() int {
	n := 0
	for _, t := range a.tracks {
		n += len(t.visits)
		if v := t.current(); v != nil && !v.Complete {
			n--
		}
	}
	return n
}

// Visits returns copies of every visit ordered by start time, then id.
func (a *Aggregator) Visits() []Visit {
	out := make([]Visit, 0, a.VisitCount())
	for _, key := range a.order {
		out = append(out, a.tracks[key].Visits()...)
	}
	sortVisits(out)
	return out
}

// CompletedVisits returns copies of the completed visits ordered by start.
func (a *Aggregator) CompletedVisits() []Visit {
	return slices.DeleteFunc(a.Visits(), func(v Visit) bool { return !v.Complete })
}

// Tracks returns the per-key tracks in first-seen order.
func (a *Aggregator) Tracks() []*DeviceVisitTrack {
	out := make([]*DeviceVisitTrack, len(a.order))
	for i, key := range a.order {
		out[i] = a.tracks[key]
	}
	return out
}

// EarliestIncompleteOffset returns the smallest stream offset that opened a
// still-open visit. Only the last visit of a key can be open, so each key is
// checked from the end.
func (a *Aggregator) EarliestIncompleteOffset() (int, bool) {
	found := false
	earliest := 0
	for _, t := range a.tracks {
		for i := len(t.visits) - 1; i >= 0; i-- {
			v := t.visits[i]
			if v.Complete {
				break
			}
			if !found || v.FirstOffset < earliest {
				earliest = v.FirstOffset
				found = true
			}
		}
	}
	return earliest, found
}

// ResumeOffset returns the offset from which a follow-up query must restart
// so that every visit not yet reported is rebuilt from its first recording.
// end is the offset just past the last recording consumed.
//
// Starting from the earliest open visit, any visit that straddles the
// resume point is pulled in until nothing straddles it.
func (a *Aggregator) ResumeOffset(end int) int {
	r := end
	if off, ok := a.EarliestIncompleteOffset(); ok {
		r = min(r, off)
	}
	for changed := true; changed; {
		changed = false
		for _, t := range a.tracks {
			for _, v := range t.visits {
				if v.FirstOffset < r && v.QueryOffset >= r {
					r = v.FirstOffset
					changed = true
				}
			}
		}
	}
	return r
}

// ReportableCount returns the number of completed visits that a follow-up
// query resuming at ResumeOffset(end) will not rebuild.
func (a *Aggregator) ReportableCount(end int) int {
	r := a.ResumeOffset(end)
	n := 0
	for _, t := range a.tracks {
		for _, v := range t.visits {
			if v.Complete && v.QueryOffset < r {
				n++
			}
		}
	}
	return n
}

func sortVisits(vs []Visit) {
	slices.SortStableFunc(vs, func(a, b Visit) int {
		if c := a.Start.Compare(b.Start); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}
