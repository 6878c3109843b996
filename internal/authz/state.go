package authz

import (
	"context"
	"sync"
)

// SnapshotCache holds the latest role snapshot per subject for the lifetime
// of their session. Every refresh is tagged with a generation; a fetch that
// finishes after a newer one started is discarded instead of overwriting
// fresher state. On fetch failure the last known snapshot is kept and the
// error recorded so consumers can fail closed.
type SnapshotCache struct {
	store RoleStore

	mu      sync.Mutex
	entries map[int64]*snapshotEntry
}

type snapshotEntry struct {
	latest  uint64
	applied uint64
	loaded  bool
	snap    Snapshot
	err     error
}

// NewSnapshotCache constructs a SnapshotCache over the given store.
func NewSnapshotCache(store RoleStore) *SnapshotCache {
	return &SnapshotCache{store: store, entries: make(map[int64]*snapshotEntry)}
}

// Get returns the cached snapshot, fetching it first if the subject has none
// yet or the last fetch failed.
func (c *SnapshotCache) Get(ctx context.Context, userID int64) (Snapshot, error) {
	c.mu.Lock()
	e := c.entries[userID]
	if e != nil && e.loaded && e.err == nil {
		snap := e.snap
		c.mu.Unlock()
		return snap, nil
	}
	c.mu.Unlock()
	return c.Refresh(ctx, userID)
}

// Refresh fetches a fresh snapshot. Callers invoke it on every auth-state
// transition (sign in, token refresh). If a newer refresh started while this
// one was in flight, the result is returned to the caller but not cached.
func (c *SnapshotCache) Refresh(ctx context.Context, userID int64) (Snapshot, error) {
	c.mu.Lock()
	e := c.entries[userID]
	if e == nil {
		e = &snapshotEntry{}
		c.entries[userID] = e
	}
	e.latest++
	gen := e.latest
	c.mu.Unlock()

	snap, err := c.store.Load(ctx, userID)

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen == e.latest && gen > e.applied {
		e.applied = gen
		if err != nil {
			// Keep the last known roles, surface the error.
			e.err = err
		} else {
			e.snap = snap
			e.err = nil
			e.loaded = true
		}
	}
	if err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}

// Invalidate drops the subject's snapshot, e.g. on sign-out.
func (c *SnapshotCache) Invalidate(userID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, userID)
}
