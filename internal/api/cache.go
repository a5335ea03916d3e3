package api

import (
	"sync"

	"github.com/darescore/dare/pkg/scoring"
)

// DefaultScoreCacheSize is the number of current scores kept in memory.
const DefaultScoreCacheSize = 256

// ScoreCache is a thread-safe LRU cache of each candidate's current score.
// Entries are replaced when a new score is stored and dropped when the
// candidate is deleted.
type ScoreCache struct {
	mu      sync.Mutex
	maxSize int
	entries map[string]scoring.CompositeScore
	order   []string // oldest first
}

// NewScoreCache creates a cache with the given maximum number of entries.
// If maxSize <= 0, it defaults to DefaultScoreCacheSize.
func NewScoreCache(maxSize int) *ScoreCache {
	if maxSize <= 0 {
		maxSize = DefaultScoreCacheSize
	}
	return &ScoreCache{
		maxSize: maxSize,
		entries: make(map[string]scoring.CompositeScore),
	}
}

// Get returns the cached current score of candidateID.
func (c *ScoreCache) Get(candidateID string) (scoring.CompositeScore, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, ok := c.entries[candidateID]
	if ok {
		c.moveToEnd(candidateID)
	}
	return s, ok
}

// Put records s as the current score of its candidate, evicting the least
// recently used entry if full.
func (c *ScoreCache) Put(s scoring.CompositeScore) {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := s.CandidateID
	if _, ok := c.entries[id]; ok {
		c.entries[id] = s
		c.moveToEnd(id)
		return
	}

	for len(c.entries) >= c.maxSize && len(c.order) > 0 {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}

	c.entries[id] = s
	c.order = append(c.order, id)
}

// Delete drops the entry of candidateID.
func (c *ScoreCache) Delete(candidateID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[candidateID]; !ok {
		return
	}
	delete(c.entries, candidateID)
	c.removeFromOrder(candidateID)
}

// Len returns the number of cached entries.
func (c *ScoreCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *ScoreCache) moveToEnd(id string) {
	c.removeFromOrder(id)
	c.order = append(c.order, id)
}

func (c *ScoreCache) removeFromOrder(id string) {
	for i, k := range c.order {
		if k == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			return
		}
	}
}
