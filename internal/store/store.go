// Package store persists candidates, platform connections, cached platform
// metrics, manual entries, score snapshots and notifications.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/darescore/dare/pkg/notify"
	"github.com/darescore/dare/pkg/platform"
	"github.com/darescore/dare/pkg/scoring"
)

var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalid is returned for records missing required fields.
	ErrInvalid = errors.New("invalid record")
)

const (
	DefaultHistoryLimit = 20
	MaxHistoryLimit     = 100
)

// Candidate is a job seeker whose footprint is scored.
type Candidate struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Connection links a candidate to an account on one platform.
type Connection struct {
	CandidateID string            `json:"candidate_id"`
	Platform    platform.Platform `json:"platform"`
	Username    string            `json:"username"`
	ConnectedAt time.Time         `json:"connected_at"`
}

// CachedMetrics is the latest fetch outcome for one platform of a candidate.
// Exactly one of Metrics and Error is set.
type CachedMetrics struct {
	CandidateID string            `json:"candidate_id"`
	Platform    platform.Platform `json:"platform"`
	Metrics     *platform.Metrics `json:"metrics,omitempty"`
	Error       string            `json:"error,omitempty"`
	FetchedAt   time.Time         `json:"fetched_at"`
	ExpiresAt   time.Time         `json:"expires_at"`
}

// Failed reports whether the cached fetch failed.
func (c CachedMetrics) Failed() bool { return c.Metrics == nil }

// Expired reports whether the entry is past its expiry at now.
func (c CachedMetrics) Expired(now time.Time) bool { return !now.Before(c.ExpiresAt) }

// ManualEntry is structured platform data submitted by the candidate for
// platforms without a public API.
type ManualEntry struct {
	CandidateID string            `json:"candidate_id"`
	Platform    platform.Platform `json:"platform"`
	Payload     json.RawMessage   `json:"payload"`
	SubmittedAt time.Time         `json:"submitted_at"`
}

// Candidates manages candidate records. Deleting a candidate removes every
// record that belongs to it.
type Candidates interface {
	CreateCandidate(ctx context.Context, name, email string) (*Candidate, error)
	GetCandidate(ctx context.Context, id string) (*Candidate, error)
	ListCandidates(ctx context.Context) ([]Candidate, error)
	DeleteCandidate(ctx context.Context, id string) error
}

// Connections manages platform connections.
type Connections interface {
	UpsertConnection(ctx context.Context, c Connection) (*Connection, error)
	ListConnections(ctx context.Context, candidateID string) ([]Connection, error)
	DeleteConnection(ctx context.Context, candidateID string, p platform.Platform) error
}

// MetricsCache holds the latest metrics per candidate and platform.
type MetricsCache interface {
	GetCachedMetrics(ctx context.Context, candidateID string, p platform.Platform) (*CachedMetrics, error)
	PutCachedMetrics(ctx context.Context, c CachedMetrics) error
}

// ManualEntries holds manually submitted platform data.
type ManualEntries interface {
	PutManualEntry(ctx context.Context, e ManualEntry) error
	GetManualEntry(ctx context.Context, candidateID string, p platform.Platform) (*ManualEntry, error)
}

// Snapshots is the append-only score history.
type Snapshots interface {
	AppendSnapshot(ctx context.Context, s scoring.CompositeScore) error
	LatestSnapshot(ctx context.Context, candidateID string) (*scoring.CompositeScore, error)
	// ListSnapshots returns at most limit snapshots, most recent first.
	ListSnapshots(ctx context.Context, candidateID string, limit int) ([]scoring.CompositeScore, error)
}

// Notifications persists notification events, ignoring duplicate ids.
type Notifications interface {
	SaveNotification(ctx context.Context, ev notify.Event) error
	ListNotifications(ctx context.Context, candidateID string, limit int) ([]notify.Event, error)
}

// Store is the full persistence surface.
type Store interface {
	Candidates
	Connections
	MetricsCache
	ManualEntries
	Snapshots
	Notifications
	Close() error
}

// ClampLimit applies the history default and cap.
func ClampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultHistoryLimit
	case limit > MaxHistoryLimit:
		return MaxHistoryLimit
	default:
		return limit
	}
}

func validateSnapshot(s scoring.CompositeScore) error {
	if s.ID == "" || s.CandidateID == "" {
		return fmt.Errorf("%w: snapshot requires id and candidate id", ErrInvalid)
	}
	return nil
}

// sortConnections orders connections like platform.All.
func sortConnections(list []Connection) {
	slices.SortFunc(list, func(a, b Connection) int {
		return slices.Index(platform.All, a.Platform) - slices.Index(platform.All, b.Platform)
	})
}
