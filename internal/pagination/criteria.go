package pagination

import (
	"time"

	"github.com/tphakala/visits-go/internal/errors"
	"github.com/tphakala/visits-go/internal/visits"
)

// DefaultPageDuration is the time slice one monitoring page covers.
const DefaultPageDuration = 24 * time.Hour

// Criteria is the time window of one monitoring page. Page 1 is the most
// recent slice of the search range.
type Criteria struct {
	SearchFrom    time.Time `json:"searchFrom"`
	SearchUntil   time.Time `json:"searchUntil"`
	PageFrom      time.Time `json:"pageFrom"`
	PageUntil     time.Time `json:"pageUntil"`
	Page          int       `json:"page"`
	PagesEstimate int       `json:"pagesEstimate"`
}

// CalculateCriteria returns the window for page within [searchFrom, searchUntil).
func CalculateCriteria(searchFrom, searchUntil time.Time, page int, pageDuration time.Duration) (Criteria, error) {
	if pageDuration <= 0 {
		pageDuration = DefaultPageDuration
	}
	if !searchFrom.Before(searchUntil) {
		return Criteria{}, errors.Newf("search range is empty: from %s until %s",
			searchFrom.Format(time.RFC3339), searchUntil.Format(time.RFC3339)).
			Component("pagination").
			Category(errors.CategoryValidation).
			Build()
	}
	if page < 1 {
		return Criteria{}, errors.Newf("page must be at least 1, got %d", page).
			Component("pagination").
			Category(errors.CategoryValidation).
			Build()
	}

	span := searchUntil.Sub(searchFrom)
	pages := int(span / pageDuration)
	if span%pageDuration != 0 {
		pages++
	}
	if page > pages {
		return Criteria{}, errors.Newf("page %d is beyond the last page %d", page, pages).
			Component("pagination").
			Category(errors.CategoryValidation).
			Context("pages", pages).
			Build()
	}

	until := searchUntil.Add(-time.Duration(page-1) * pageDuration)
	from := until.Add(-pageDuration)
	if from.Before(searchFrom) {
		from = searchFrom
	}

	return Criteria{
		SearchFrom:    searchFrom,
		SearchUntil:   searchUntil,
		PageFrom:      from,
		PageUntil:     until,
		Page:          page,
		PagesEstimate: pages,
	}, nil
}

// IsLastPage reports whether this page reaches the start of the search range.
func (c Criteria) IsLastPage() bool {
	return c.Page >= c.PagesEstimate
}

// FetchWindow returns the recording range to aggregate for this page: the
// page widened by window on both sides so visits crossing the page edges
// are seen whole, without reading past the end of the search.
func (c Criteria) FetchWindow(window time.Duration) (from, until time.Time) {
	from = c.PageFrom.Add(-window)
	until = c.PageUntil.Add(window)
	if until.After(c.SearchUntil) {
		until = c.SearchUntil
	}
	return from, until
}

// IncompleteCutoff returns the instant after which a visit end cannot be
// proven final: one window before the end of the fetched range.
func (c Criteria) IncompleteCutoff(window time.Duration) time.Time {
	_, until := c.FetchWindow(window)
	return until.Add(-window)
}

// Placement decides whether this page reports a visit and whether the
// visit must be flagged incomplete.
//
// Visits starting at or after the page end belong to a newer page. Visits
// starting before the page start belong to an older page, except on the
// last page where they are reported incomplete when they reach into it.
func (c Criteria) Placement(v *visits.Visit, window time.Duration) (keep, incomplete bool) {
	if !v.Start.Before(c.PageUntil) {
		return false, false
	}
	incomplete = !v.Complete || v.End.After(c.IncompleteCutoff(window))
	if v.Start.Before(c.PageFrom) {
		if !c.IsLastPage() || v.End.Before(c.PageFrom) {
			return false, false
		}
		return true, true
	}
	return true, incomplete
}
