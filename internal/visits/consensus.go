package visits

import (
	"cmp"
	"slices"

	"github.com/tphakala/visits-go/internal/recording"
	"github.com/tphakala/visits-go/internal/taxonomy"
)

// CanonicalTag is the single tag chosen to represent a track or a visit.
type CanonicalTag struct {
	TagID      uint    `json:"tagId,omitempty"`
	What       string  `json:"what"`
	Confidence float64 `json:"confidence"`
	Automatic  bool    `json:"automatic"`
	Model      string  `json:"model,omitempty"`
	// Conflict is set when disagreeing human taggers were folded into a
	// shared ancestor taxon or the literal conflict label.
	Conflict bool `json:"conflict,omitempty"`
}

// IsHuman reports whether the tag came from a human tagger.
func (c CanonicalTag) IsHuman() bool {
	return !c.Automatic
}

func canonicalFromTag(tag *recording.TrackTag) CanonicalTag {
	return CanonicalTag{
		TagID:      tag.ID,
		What:       tag.What,
		Confidence: tag.Confidence,
		Automatic:  tag.Automatic,
		Model:      tag.Model,
	}
}

// Consensus resolves conflicting tags into one canonical label.
// It is stateless apart from the taxonomy and safe for concurrent use.
type Consensus struct {
	tax *taxonomy.Taxonomy
}

// NewConsensus returns a Consensus backed by tax, or by the embedded
// taxonomy when tax is nil.
func NewConsensus(tax *taxonomy.Taxonomy) *Consensus {
	if tax == nil {
		tax = taxonomy.Default()
	}
	return &Consensus{tax: tax}
}

// CanonicalTagForTrack picks the tag that represents a track's identity.
//
// Human tags win over automatic ones. Meta tags never describe an animal and
// only win when no other human tag exists. Several distinct human labels are
// a conflict, reported as their nearest shared taxon. Without any human tag
// the classifier's master model tag is used.
func (c *Consensus) CanonicalTagForTrack(tags []recording.TrackTag) (CanonicalTag, bool) {
	var manual, manualMeta []*recording.TrackTag
	for i := range tags {
		tag := &tags[i]
		switch {
		case tag.Automatic:
		case recording.IsMeta(tag.What):
			manualMeta = append(manualMeta, tag)
		default:
			manual = append(manual, tag)
		}
	}

	labels := distinctLabels(manual)
	if len(labels) > 1 {
		species := slices.DeleteFunc(slices.Clone(labels), recording.IsUnidentified)
		if len(species) == 0 {
			labels = labels[:1]
		} else {
			labels = species
		}
	}

	switch {
	case len(labels) > 1:
		return c.conflictTag(manual, labels), true
	case len(labels) == 1:
		return canonicalFromTag(mostConfident(manual, labels[0])), true
	case len(manualMeta) > 0:
		return canonicalFromTag(manualMeta[0]), true
	}

	for i := range tags {
		if tags[i].Automatic && tags[i].Model == recording.MasterModel {
			return canonicalFromTag(&tags[i]), true
		}
	}
	return CanonicalTag{}, false
}

// conflictTag folds disagreeing labels into their nearest common ancestor.
func (c *Consensus) conflictTag(manual []*recording.TrackTag, labels []string) CanonicalTag {
	what, ok := c.tax.CommonAncestor(labels)
	if !ok {
		what = recording.LabelConflict
	}

	var confidence float64
	for _, tag := range manual {
		if slices.Contains(labels, tag.What) {
			confidence = max(confidence, tag.Confidence)
		}
	}

	return CanonicalTag{
		What:       what,
		Confidence: confidence,
		Automatic:  false,
		Conflict:   true,
	}
}

func distinctLabels(tags []*recording.TrackTag) []string {
	labels := make([]string, 0, len(tags))
	for _, tag := range tags {
		if !slices.Contains(labels, tag.What) {
			labels = append(labels, tag.What)
		}
	}
	return labels
}

func mostConfident(tags []*recording.TrackTag, what string) *recording.TrackTag {
	var best *recording.TrackTag
	for _, tag := range tags {
		if tag.What != what {
			continue
		}
		if best == nil || tag.Confidence > best.Confidence {
			best = tag
		}
	}
	return best
}

// MostCommonTagForVisit returns the consensus tag across a visit's events.
// Events without a tag are skipped.
func MostCommonTagForVisit(events []VisitEvent) (CanonicalTag, bool) {
	var tally TagTally
	for i := range events {
		if events[i].Tag != nil {
			tally.Add(*events[i].Tag)
		}
	}
	return tally.Best()
}

// tagKey identifies one opinion in a tally.
type tagKey struct {
	automatic bool
	what      string
}

type tagCount struct {
	key   tagKey
	tag   CanonicalTag
	count int
}

// TagTally counts canonical tags by (automatic, label) and orders them with
// a total ordering: human before automatic, weak labels last, then higher
// count, then label.
type TagTally struct {
	counts map[tagKey]*tagCount
}

// Add counts one occurrence of tag. The most confident occurrence is kept as
// the representative tag for its key.
func (t *TagTally) Add(tag CanonicalTag) {
	if t.counts == nil {
		t.counts = make(map[tagKey]*tagCount)
	}
	key := tagKey{automatic: tag.Automatic, what: tag.What}
	c, ok := t.counts[key]
	if !ok {
		t.counts[key] = &tagCount{key: key, tag: tag, count: 1}
		return
	}
	c.count++
	if tag.Confidence > c.tag.Confidence {
		c.tag = tag
	}
}

// Len returns the number of distinct opinions counted.
func (t *TagTally) Len() int {
	return len(t.counts)
}

// Best returns the top tag under the tally ordering.
func (t *TagTally) Best() (CanonicalTag, bool) {
	var best *tagCount
	for _, c := range t.counts {
		if best == nil || compareTagCounts(c, best) < 0 {
			best = c
		}
	}
	if best == nil {
		return CanonicalTag{}, false
	}
	return best.tag, true
}

// compareTagCounts orders a before b when a should win consensus.
func compareTagCounts(a, b *tagCount) int {
	if a.key.automatic != b.key.automatic {
		if !a.key.automatic {
			return -1
		}
		return 1
	}
	aWeak, bWeak := recording.IsWeak(a.key.what), recording.IsWeak(b.key.what)
	if aWeak != bWeak {
		if bWeak {
			return -1
		}
		return 1
	}
	if a.count != b.count {
		return cmp.Compare(b.count, a.count)
	}
	return cmp.Compare(a.key.what, b.key.what)
}
