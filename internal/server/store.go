package server

import (
	"time"

	"github.com/dshills/pyreview/internal/cache"
	"github.com/dshills/pyreview/internal/intake"
	"github.com/dshills/pyreview/internal/review"
)

// Store holds recently generated reports for the download endpoints.
// Reports are immutable once stored.
type Store struct {
	recent *cache.Recent[*review.Report]
}

// NewStore returns a store keeping at most capacity reports for ttl.
func NewStore(capacity int, ttl time.Duration) *Store {
	if capacity <= 0 {
		capacity = 128
	}
	return &Store{recent: cache.NewRecent[*review.Report](capacity, ttl)}
}

// Put stores report under its ID. Only complete reports are indexed for
// reuse; a report degraded by a tool or provider failure stays downloadable
// but an identical submission runs the pipeline again.
func (s *Store) Put(report *review.Report) {
	key := ""
	if reusable(report) {
		key = submissionKey(report.Submission)
	}
	s.recent.Add(report.ID, key, report)
}

// Get returns the report with the given ID.
func (s *Store) Get(id string) (*review.Report, bool) {
	return s.recent.Get(id)
}

// Lookup returns a stored report for an identical submission.
func (s *Store) Lookup(sub intake.Submission) (*review.Report, bool) {
	_, report, ok := s.recent.Lookup(submissionKey(sub))
	return report, ok
}

// Len returns the number of stored reports.
func (s *Store) Len() int {
	return s.recent.Len()
}

// reusable reports whether report is the result every identical submission
// would get. Disabled suggestions are configuration, not a failure.
func reusable(report *review.Report) bool {
	if report.AnalysisUnavailable || len(report.AnalysisSkipped) > 0 {
		return false
	}
	return !report.SuggestionsUnavailable ||
		report.SuggestionsReason == review.ErrSuggestionsDisabled.Error()
}

func submissionKey(sub intake.Submission) string {
	if sub.IsZero() {
		return ""
	}
	return sub.Hash() + ":" + sub.DisplayName()
}
