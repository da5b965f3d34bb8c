package monitoring

import (
	"cmp"
	"slices"
	"time"

	"github.com/tphakala/visits-go/internal/recording"
	"github.com/tphakala/visits-go/internal/visits"
)

// Splitter turns aggregated visits into monitoring visits, splitting a
// visit into one per species when human taggers named more than one.
type Splitter struct {
	consensus *visits.Consensus
}

// NewSplitter returns a splitter using consensus for per-track tags.
func NewSplitter(consensus *visits.Consensus) *Splitter {
	return &Splitter{consensus: consensus}
}

// Split converts v into one or more monitoring visits. recs must contain
// every recording v references. New visits take ids from seq.
func (s *Splitter) Split(v *visits.Visit, recs map[uint]*recording.Recording, seq *visits.IDSequence) []Visit {
	members := make([]Recording, 0, len(v.RecordingIDs))
	species := make(map[uint][]string, len(v.RecordingIDs))
	var labels, opinions []string

	for _, id := range v.RecordingIDs {
		rec, ok := recs[id]
		if !ok {
			continue
		}
		mr := s.recording(rec)
		members = append(members, mr)
		for _, l := range mr.ManualLabels {
			if !slices.Contains(opinions, l) {
				opinions = append(opinions, l)
			}
			if isSpecies(l) {
				species[id] = append(species[id], l)
				if !slices.Contains(labels, l) {
					labels = append(labels, l)
				}
			}
		}
	}

	base := Visit{
		ID:               v.ID,
		DeviceID:         v.DeviceID,
		DeviceName:       v.DeviceName,
		GroupName:        v.GroupName,
		StationID:        v.StationID,
		StationName:      v.StationName,
		Start:            v.Start,
		End:              v.End,
		Incomplete:       !v.Complete,
		QueryOffset:      v.QueryOffset,
		Recordings:       members,
		ClassificationAI: bestAILabel(classifiedTracks(members, recs)),
	}

	switch {
	case len(labels) == 1:
		base.Classification = labels[0]
		base.ClassFromUserTag = true
		return []Visit{base}
	case len(labels) == 0 && len(opinions) > 0:
		base.Classification = fallbackOpinion(opinions)
		base.ClassFromUserTag = true
		return []Visit{base}
	case len(labels) == 0:
		base.Classification = base.ClassificationAI
		return []Visit{base}
	}

	out := make([]Visit, 0, len(labels))
	for _, label := range labels {
		split := base
		split.ID = seq.Next()
		split.Classification = label
		split.ClassFromUserTag = true
		split.Recordings = nil
		for _, mr := range members {
			// Only recordings without any human opinion are shared. One
			// marked false-positive or unidentified joins no split visit.
			if len(mr.ManualLabels) == 0 || slices.Contains(species[mr.ID], label) {
				split.Recordings = append(split.Recordings, mr)
			}
		}
		split.Start, split.End = span(split.Recordings)
		split.ClassificationAI = bestAILabel(classifiedTracks(split.Recordings, recs))
		out = append(out, split)
	}
	return out
}

func (s *Splitter) recording(rec *recording.Recording) Recording {
	mr := Recording{
		ID:       rec.ID,
		Start:    rec.Start,
		Duration: rec.Duration,
		Tracks:   make([]Track, 0, len(rec.Tracks)),
	}
	for i := range rec.Tracks {
		tr := &rec.Tracks[i]
		t := Track{
			ID:    tr.ID,
			Start: tr.StartSeconds(),
			End:   tr.EndSeconds(),
			AITag: aiTag(tr),
		}
		if tag, ok := s.consensus.CanonicalTagForTrack(tr.Tags); ok {
			t.Tag = tag.What
			t.IsHuman = tag.IsHuman()
		}
		mr.Tracks = append(mr.Tracks, t)

		for _, tag := range tr.Tags {
			if tag.Automatic || recording.IsMeta(tag.What) {
				continue
			}
			if !slices.Contains(mr.ManualLabels, tag.What) {
				mr.ManualLabels = append(mr.ManualLabels, tag.What)
			}
		}
	}
	return mr
}

// classifiedTracks returns the source tracks of members.
func classifiedTracks(members []Recording, recs map[uint]*recording.Recording) []*recording.Track {
	var out []*recording.Track
	for _, mr := range members {
		rec := recs[mr.ID]
		for i := range rec.Tracks {
			out = append(out, &rec.Tracks[i])
		}
	}
	return out
}

// isSpecies reports whether a human label names an animal rather than a
// placeholder or a false trigger.
func isSpecies(label string) bool {
	return label != recording.LabelFalsePositive && !recording.IsUnidentified(label)
}

// fallbackOpinion picks among human opinions that name no species.
func fallbackOpinion(opinions []string) string {
	for _, o := range opinions {
		if recording.IsUnidentified(o) {
			return recording.LabelUnidentified
		}
	}
	return opinions[0]
}

// aiTag returns the classifier's master label for a track, or its first
// automatic label when no master tag exists.
func aiTag(tr *recording.Track) string {
	first := ""
	for _, tag := range tr.Tags {
		if !tag.Automatic {
			continue
		}
		if tag.Model == recording.MasterModel {
			return tag.What
		}
		if first == "" {
			first = tag.What
		}
	}
	return first
}

// bestAILabel ranks classifier labels across tracks. Labels other than
// false-positive win, then the most tracks, then the highest confidence.
func bestAILabel(tracks []*recording.Track) string {
	type score struct {
		what       string
		count      int
		confidence float64
	}
	scores := make(map[string]*score)
	for _, tr := range tracks {
		what := aiTag(tr)
		if what == "" {
			continue
		}
		sc, ok := scores[what]
		if !ok {
			sc = &score{what: what}
			scores[what] = sc
		}
		sc.count++
		for _, tag := range tr.Tags {
			if tag.Automatic && tag.What == what {
				sc.confidence = max(sc.confidence, tag.Confidence)
			}
		}
	}
	if len(scores) == 0 {
		return recording.LabelNone
	}

	ranked := make([]*score, 0, len(scores))
	for _, sc := range scores {
		ranked = append(ranked, sc)
	}
	slices.SortFunc(ranked, func(a, b *score) int {
		aFP, bFP := a.what == recording.LabelFalsePositive, b.what == recording.LabelFalsePositive
		if aFP != bFP {
			if bFP {
				return -1
			}
			return 1
		}
		if a.count != b.count {
			return cmp.Compare(b.count, a.count)
		}
		if a.confidence != b.confidence {
			return cmp.Compare(b.confidence, a.confidence)
		}
		return cmp.Compare(a.what, b.what)
	})
	return ranked[0].what
}

// span returns the earliest track start and latest track end across recordings.
func span(recs []Recording) (start, end time.Time) {
	first := true
	for _, r := range recs {
		for _, t := range r.Tracks {
			s := r.Start.Add(time.Duration(t.Start * float64(time.Second)))
			e := r.Start.Add(time.Duration(t.End * float64(time.Second)))
			if first || s.Before(start) {
				start = s
			}
			if first || e.After(end) {
				end = e
			}
			first = false
		}
	}
	return start, end
}
