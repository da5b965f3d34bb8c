package visits

import "sync/atomic"

// IDSequence hands out visit ids. Each aggregation run owns its own
// sequence so ids restart at 1 per run.
type IDSequence struct {
	last atomic.Uint64
}

// NewIDSequence returns a sequence whose first id is after+1.
func NewIDSequence(after uint64) *IDSequence {
	s := &IDSequence{}
	s.last.Store(after)
	return s
}

// Next returns the next id.
func (s *IDSequence) Next() uint64 {
	return s.last.Add(1)
}
