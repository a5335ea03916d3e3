package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/darescore/dare/pkg/notify"
	"github.com/darescore/dare/pkg/platform"
	"github.com/darescore/dare/pkg/scoring"
)

type platformKey struct {
	candidate string
	platform  platform.Platform
}

// Memory is a mutex-guarded in-process Store, used for tests, the CLI and
// single-node deployments without a database.
type Memory struct {
	mu            sync.RWMutex
	now           func() time.Time
	candidates    map[string]Candidate
	connections   map[platformKey]Connection
	cache         map[platformKey]CachedMetrics
	manual        map[platformKey]ManualEntry
	snapshots     map[string][]scoring.CompositeScore // oldest first
	notifications map[string][]notify.Event
	seenEvents    map[string]bool
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		now:           time.Now,
		candidates:    make(map[string]Candidate),
		connections:   make(map[platformKey]Connection),
		cache:         make(map[platformKey]CachedMetrics),
		manual:        make(map[platformKey]ManualEntry),
		snapshots:     make(map[string][]scoring.CompositeScore),
		notifications: make(map[string][]notify.Event),
		seenEvents:    make(map[string]bool),
	}
}

func (m *Memory) CreateCandidate(_ context.Context, name, email string) (*Candidate, error) {
	if name == "" {
		return nil, fmt.Errorf("create candidate: %w: name is required", ErrInvalid)
	}
	c := Candidate{ID: uuid.NewString(), Name: name, Email: email, CreatedAt: m.now().UTC()}
	m.mu.Lock()
	m.candidates[c.ID] = c
	m.mu.Unlock()
	return &c, nil
}

func (m *Memory) GetCandidate(_ context.Context, id string) (*Candidate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.candidates[id]
	if !ok {
		return nil, fmt.Errorf("get candidate %s: %w", id, ErrNotFound)
	}
	return &c, nil
}

func (m *Memory) ListCandidates(_ context.Context) ([]Candidate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Candidate, 0, len(m.candidates))
	for _, c := range m.candidates {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (m *Memory) DeleteCandidate(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.candidates[id]; !ok {
		return fmt.Errorf("delete candidate %s: %w", id, ErrNotFound)
	}
	delete(m.candidates, id)
	for k := range m.connections {
		if k.candidate == id {
			delete(m.connections, k)
		}
	}
	for k := range m.cache {
		if k.candidate == id {
			delete(m.cache, k)
		}
	}
	for k := range m.manual {
		if k.candidate == id {
			delete(m.manual, k)
		}
	}
	delete(m.snapshots, id)
	for _, ev := range m.notifications[id] {
		delete(m.seenEvents, ev.ID)
	}
	delete(m.notifications, id)
	return nil
}

func (m *Memory) requireCandidate(id string) error {
	if _, ok := m.candidates[id]; !ok {
		return fmt.Errorf("candidate %s: %w", id, ErrNotFound)
	}
	return nil
}

func (m *Memory) UpsertConnection(_ context.Context, c Connection) (*Connection, error) {
	if !c.Platform.Valid() || c.Username == "" {
		return nil, fmt.Errorf("upsert connection: %w: platform and username are required", ErrInvalid)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.requireCandidate(c.CandidateID); err != nil {
		return nil, fmt.Errorf("upsert connection: %w", err)
	}
	if c.ConnectedAt.IsZero() {
		c.ConnectedAt = m.now().UTC()
	}
	m.connections[platformKey{c.CandidateID, c.Platform}] = c
	return &c, nil
}

func (m *Memory) ListConnections(_ context.Context, candidateID string) ([]Connection, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Connection
	for _, p := range platform.All {
		if c, ok := m.connections[platformKey{candidateID, p}]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *Memory) DeleteConnection(_ context.Context, candidateID string, p platform.Platform) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := platformKey{candidateID, p}
	if _, ok := m.connections[k]; !ok {
		return fmt.Errorf("delete connection %s/%s: %w", candidateID, p, ErrNotFound)
	}
	delete(m.connections, k)
	delete(m.cache, k)
	return nil
}

func (m *Memory) GetCachedMetrics(_ context.Context, candidateID string, p platform.Platform) (*CachedMetrics, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.cache[platformKey{candidateID, p}]
	if !ok {
		return nil, fmt.Errorf("cached metrics %s/%s: %w", candidateID, p, ErrNotFound)
	}
	return &c, nil
}

func (m *Memory) PutCachedMetrics(_ context.Context, c CachedMetrics) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.requireCandidate(c.CandidateID); err != nil {
		return fmt.Errorf("put cached metrics: %w", err)
	}
	m.cache[platformKey{c.CandidateID, c.Platform}] = c
	return nil
}

func (m *Memory) PutManualEntry(_ context.Context, e ManualEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.requireCandidate(e.CandidateID); err != nil {
		return fmt.Errorf("put manual entry: %w", err)
	}
	if e.SubmittedAt.IsZero() {
		e.SubmittedAt = m.now().UTC()
	}
	m.manual[platformKey{e.CandidateID, e.Platform}] = e
	return nil
}

func (m *Memory) GetManualEntry(_ context.Context, candidateID string, p platform.Platform) (*ManualEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.manual[platformKey{candidateID, p}]
	if !ok {
		return nil, fmt.Errorf("manual entry %s/%s: %w", candidateID, p, ErrNotFound)
	}
	return &e, nil
}

func (m *Memory) AppendSnapshot(_ context.Context, s scoring.CompositeScore) error {
	if err := validateSnapshot(s); err != nil {
		return fmt.Errorf("append snapshot: %w", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.requireCandidate(s.CandidateID); err != nil {
		return fmt.Errorf("append snapshot: %w", err)
	}
	m.snapshots[s.CandidateID] = append(m.snapshots[s.CandidateID], s.Clone())
	return nil
}

func (m *Memory) LatestSnapshot(_ context.Context, candidateID string) (*scoring.CompositeScore, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	list := m.snapshots[candidateID]
	if len(list) == 0 {
		return nil, fmt.Errorf("latest snapshot %s: %w", candidateID, ErrNotFound)
	}
	s := list[len(list)-1].Clone()
	return &s, nil
}

func (m *Memory) ListSnapshots(_ context.Context, candidateID string, limit int) ([]scoring.CompositeScore, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	list := m.snapshots[candidateID]
	limit = ClampLimit(limit)
	out := make([]scoring.CompositeScore, 0, min(limit, len(list)))
	for i := len(list) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, list[i].Clone())
	}
	return out, nil
}

func (m *Memory) SaveNotification(_ context.Context, ev notify.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.seenEvents[ev.ID] {
		return nil
	}
	m.seenEvents[ev.ID] = true
	m.notifications[ev.CandidateID] = append(m.notifications[ev.CandidateID], ev)
	return nil
}

func (m *Memory) ListNotifications(_ context.Context, candidateID string, limit int) ([]notify.Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	list := m.notifications[candidateID]
	limit = ClampLimit(limit)
	out := make([]notify.Event, 0, min(limit, len(list)))
	for i := len(list) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, list[i])
	}
	return out, nil
}

func (m *Memory) Close() error { return nil }
