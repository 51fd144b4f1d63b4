package archive

import "sync"

// Locks hands out one mutex per docket. Entries are dropped once nobody holds
// or waits on them.
type Locks struct {
	mu      sync.Mutex
	entries map[string]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// NewLocks returns an empty lock table
func NewLocks() *Locks {
	return &Locks{entries: make(map[string]*lockEntry)}
}

// Lock blocks until docket is free and returns the unlock func
func (l *Locks) Lock(docket string) func() {
	l.mu.Lock()
	e, ok := l.entries[docket]
	if !ok {
		e = &lockEntry{}
		l.entries[docket] = e
	}
	e.refs++
	l.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		l.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(l.entries, docket)
		}
		l.mu.Unlock()
	}
}

func (l *Locks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
