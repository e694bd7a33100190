package store

import (
	"context"
	"sync"
	"time"
)

// Registry owns one Store per browser profile. Idle stores are dropped from
// memory by the sweeper; their drafts and token stay in the persistence
// backend and are picked up by the next Get. A caller still holding a swept
// Store keeps writing to the same drafts without sharing its memory state.
type Registry struct {
	deps Deps

	mu      sync.Mutex
	entries map[string]*entry
}

type entry struct {
	store    *Store
	lastSeen time.Time
}

func NewRegistry(deps Deps) *Registry {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Registry{
		deps:    deps,
		entries: make(map[string]*entry),
	}
}

// Get returns the session's store, creating it on first use.
func (r *Registry) Get(sessionID string) *Store {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[sessionID]
	if !ok {
		e = &entry{store: New(sessionID, r.deps)}
		r.entries[sessionID] = e
	}
	e.lastSeen = r.deps.Now()
	return e.store
}

// ClearCart empties a profile's cart, whether or not it is loaded.
func (r *Registry) ClearCart(ctx context.Context, sessionID string) error {
	r.Get(sessionID).ClearCart(ctx)
	return nil
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Sweep drops stores that have not been used for maxIdle.
func (r *Registry) Sweep(maxIdle time.Duration) int {
	cutoff := r.deps.Now().Add(-maxIdle)

	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id, e := range r.entries {
		if e.lastSeen.Before(cutoff) {
			e.store.Close()
			delete(r.entries, id)
			n++
		}
	}
	return n
}

// RunSweeper sweeps every interval until ctx ends.
func (r *Registry) RunSweeper(ctx context.Context, interval, maxIdle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.Sweep(maxIdle)
		case <-ctx.Done():
			return
		}
	}
}

func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, e := range r.entries {
		e.store.Close()
		delete(r.entries, id)
	}
}
