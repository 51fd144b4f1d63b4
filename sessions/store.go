// Package sessions binds a browser to the case token it joined with. The cookie
// only carries a signed session id; the token itself stays in a Store.
package sessions

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrNoSession is returned when an id has no live session
var ErrNoSession = errors.New("session not found or expired")

// Session is the state kept for one browser
type Session struct {
	ID        string    `json:"id"`
	Token     string    `json:"token"`
	URL       string    `json:"url"`
	CreatedAt time.Time `json:"createdAt"`
}

// Store keeps sessions by id
type Store interface {
	Get(ctx context.Context, id string) (*Session, error)
	Set(ctx context.Context, s *Session, ttl time.Duration) error
	Delete(ctx context.Context, id string) error
}

type memoryEntry struct {
	s       Session
	expires time.Time
}

// pruneEvery is how often Set sweeps expired sessions out of a MemoryStore
const pruneEvery = time.Minute

// MemoryStore keeps sessions in process. Sessions are lost on restart.
type MemoryStore struct {
	mu        sync.Mutex
	entries   map[string]memoryEntry
	now       func() time.Time
	lastPrune time.Time
}

// NewMemoryStore returns an empty MemoryStore
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]memoryEntry), now: time.Now}
}

// Get returns the session for id
func (m *MemoryStore) Get(_ context.Context, id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[id]
	if !ok {
		return nil, ErrNoSession
	}
	if m.now().After(e.expires) {
		delete(m.entries, id)
		return nil, ErrNoSession
	}
	s := e.s
	return &s, nil
}

// Set stores s for ttl
func (m *MemoryStore) Set(_ context.Context, s *Session, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	if now.Sub(m.lastPrune) >= pruneEvery {
		m.prune(now)
	}
	m.entries[s.ID] = memoryEntry{s: *s, expires: now.Add(ttl)}
	return nil
}

// prune drops expired entries. Callers hold m.mu.
func (m *MemoryStore) prune(now time.Time) {
	for id, e := range m.entries {
		if now.After(e.expires) {
			delete(m.entries, id)
		}
	}
	m.lastPrune = now
}

// Delete drops the session for id
func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, id)
	return nil
}
