// Package notify derives change events from consecutive composite scores and
// hands them to a Sink.
package notify

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/darescore/dare/pkg/scoring"
)

// Kind classifies an event.
type Kind string

const (
	KindScoreImproved      Kind = "score_improved"
	KindScoreDeclined      Kind = "score_declined"
	KindNewRecommendations Kind = "new_recommendations"
)

// eventNamespace seeds the deterministic event ids.
var eventNamespace = uuid.MustParse("6f1c2f43-5b9e-4d8a-9a51-2d4f0c7e8b10")

// Event is one notable change between two snapshots of a candidate.
type Event struct {
	ID              string    `json:"id"`
	CandidateID     string    `json:"candidate_id"`
	SnapshotID      string    `json:"snapshot_id"`
	Kind            Kind      `json:"kind"`
	Title           string    `json:"title"`
	Message         string    `json:"message"`
	PreviousScore   *int      `json:"previous_score,omitempty"`
	CurrentScore    int       `json:"current_score"`
	ChangeAmount    int       `json:"change_amount,omitempty"`
	Recommendations []string  `json:"recommendations,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// Diff compares the current score with the previous one, if any. It emits a
// score event only when the overall changed and a recommendations event only
// when current holds recommendations previous did not. The result depends on
// its inputs alone, so repeated calls yield identical events.
func Diff(previous *scoring.CompositeScore, current scoring.CompositeScore) []Event {
	var events []Event

	if previous != nil && previous.Overall != current.Overall {
		prev := previous.Overall
		amount := current.Overall - prev
		kind := KindScoreImproved
		if amount < 0 {
			kind = KindScoreDeclined
		}
		ev := newEvent(current, kind)
		ev.PreviousScore = &prev
		ev.ChangeAmount = amount
		if kind == KindScoreImproved {
			ev.Title = "Your Dare Score improved"
			ev.Message = fmt.Sprintf("Your score went up by %d point%s to %d.", amount, plural(amount), current.Overall)
		} else {
			ev.Title = "Your Dare Score changed"
			ev.Message = fmt.Sprintf("Your score went down by %d point%s to %d.", -amount, plural(-amount), current.Overall)
		}
		events = append(events, ev)
	}

	var before []string
	if previous != nil {
		before = previous.Recommendations
	}
	if fresh := NewRecommendations(before, current.Recommendations); len(fresh) > 0 {
		ev := newEvent(current, KindNewRecommendations)
		ev.Title = "New recommendations"
		ev.Message = fmt.Sprintf("You have %d new recommendation%s.", len(fresh), plural(len(fresh)))
		ev.Recommendations = fresh
		events = append(events, ev)
	}

	return events
}

// NewRecommendations returns the entries of current not present in previous,
// in current order.
func NewRecommendations(previous, current []string) []string {
	seen := make(map[string]bool, len(previous))
	for _, r := range previous {
		seen[r] = true
	}
	var out []string
	for _, r := range current {
		if !seen[r] {
			seen[r] = true
			out = append(out, r)
		}
	}
	return out
}

func newEvent(current scoring.CompositeScore, kind Kind) Event {
	return Event{
		ID:           EventID(current.ID, kind),
		CandidateID:  current.CandidateID,
		SnapshotID:   current.ID,
		Kind:         kind,
		CurrentScore: current.Overall,
		CreatedAt:    current.CreatedAt,
	}
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}

// EventID derives the stable id of the kind event for a snapshot.
func EventID(snapshotID string, kind Kind) string {
	return uuid.NewSHA1(eventNamespace, []byte(snapshotID+"/"+string(kind))).String()
}
