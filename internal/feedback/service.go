package feedback

import (
	"errors"
	"sort"

	"github.com/edbot-dev/edbot/internal/storage"
)

const (
	// negativeScanLimit bounds how far back the similarity scans look.
	negativeScanLimit = 200

	// DefaultSimilarMinScore is the cutoff for surfacing similar negative
	// feedback to the recovery prompt.
	DefaultSimilarMinScore = 0.65

	// DefaultSimilarLimit caps how many similar records are surfaced.
	DefaultSimilarLimit = 3

	// RejectionHintMinScore is the stricter cutoff used when collecting
	// intents to steer the classifier away from.
	RejectionHintMinScore = 0.70
)

// Match pairs a feedback record with its similarity score against a query.
type Match struct {
	Record storage.FeedbackRecord
	Score  float64
}

// Service exposes the feedback operations the orchestrator and the API
// boundary need on top of the raw store.
type Service struct {
	store *storage.Store
}

func NewService(store *storage.Store) *Service {
	return &Service{store: store}
}

// Submit records or re-records a feedback rating.
func (s *Service) Submit(p storage.UpsertParams) (storage.FeedbackRecord, error) {
	return s.store.UpsertFeedback(p)
}

// All returns every stored feedback record.
func (s *Service) All() ([]storage.FeedbackRecord, error) {
	return s.store.AllFeedback()
}

// NextSessionID allocates a fresh session id.
func (s *Service) NextSessionID() (int64, error) {
	return s.store.NextSessionID()
}

// LastUnconsumedNegative returns the pending negative record for the session,
// or false if the session has none (or sessionID is nil).
func (s *Service) LastUnconsumedNegative(sessionID *int64) (storage.FeedbackRecord, bool, error) {
	if sessionID == nil {
		return storage.FeedbackRecord{}, false, nil
	}
	rec, err := s.store.LastUnconsumedNegative(*sessionID)
	if errors.Is(err, storage.ErrNotFound) {
		return storage.FeedbackRecord{}, false, nil
	}
	if err != nil {
		return storage.FeedbackRecord{}, false, err
	}
	return rec, true, nil
}

// Consume marks the record's negative rating as used by a recovery answer.
// Only one caller can claim a given record; claimed is false for losers.
func (s *Service) Consume(id int64) (claimed bool, err error) {
	return s.store.MarkConsumed(id)
}

// NeedsSimplify reports whether the session's most recent feedback was a
// not-helpful rating. Unrated or absent records mean no.
func (s *Service) NeedsSimplify(sessionID *int64) bool {
	if sessionID == nil {
		return false
	}
	rec, err := s.store.MostRecent(*sessionID)
	if err != nil {
		return false
	}
	return rec.Helpful != nil && !*rec.Helpful
}

// SimilarNegative scans the most recent negative records across all sessions
// and returns those whose stored question scores at least minScore against
// text, best first (ties broken by recency), capped at limit.
func (s *Service) SimilarNegative(text string, minScore float64, limit int) ([]Match, error) {
	if limit <= 0 {
		limit = DefaultSimilarLimit
	}
	records, err := s.store.RecentNegatives(negativeScanLimit)
	if err != nil {
		return nil, err
	}

	var matches []Match
	for _, rec := range records {
		score := Ratio(text, rec.UserQuestion)
		if score >= minScore {
			matches = append(matches, Match{Record: rec, Score: score})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].Record.ID > matches[j].Record.ID
	})

	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

// NegativeIntentsForSimilarText returns the distinct intents that were marked
// unhelpful for questions similar to text. The classifier uses these as a
// soft exclusion hint.
func (s *Service) NegativeIntentsForSimilarText(text string, minScore float64) ([]string, error) {
	records, err := s.store.RecentNegatives(negativeScanLimit)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var intents []string
	for _, rec := range records {
		if rec.DetectedIntent == "" {
			continue
		}
		if Ratio(text, rec.UserQuestion) < minScore {
			continue
		}
		if !seen[rec.DetectedIntent] {
			seen[rec.DetectedIntent] = true
			intents = append(intents, rec.DetectedIntent)
		}
	}
	return intents, nil
}
