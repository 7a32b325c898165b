package directory

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// WriterSet is the cached allow-list of handles permitted to push. Writer
// names are resolved through the directory once per TTL window; between
// refreshes membership checks are plain set lookups. Unlike cache records,
// an expired set is never used: Authorized refreshes first and fails closed
// when the directory cannot be reached.
type WriterSet struct {
	resolver Resolver
	names    []string
	ttl      time.Duration
	now      func() time.Time

	mu        sync.RWMutex
	handles   map[string]struct{}
	fetchedAt time.Time
}

// NewWriterSet builds an allow-list over the given logical writer names.
// ttl bounds how long one resolution is trusted (0 => 30s).
func NewWriterSet(r Resolver, names []string, ttl time.Duration) *WriterSet {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &WriterSet{
		resolver: r,
		names:    append([]string(nil), names...),
		ttl:      ttl,
		now:      time.Now,
	}
}

// Authorized reports whether handle is a currently registered writer. When
// the cached set has expired it is refreshed inline; a refresh failure is
// returned as an error and the caller must reject (fail closed).
func (w *WriterSet) Authorized(ctx context.Context, handle string) (bool, error) {
	w.mu.RLock()
	if w.fresh() {
		_, ok := w.handles[handle]
		w.mu.RUnlock()
		return ok, nil
	}
	w.mu.RUnlock()

	if err := w.Refresh(ctx); err != nil {
		return false, err
	}

	w.mu.RLock()
	_, ok := w.handles[handle]
	w.mu.RUnlock()
	return ok, nil
}

// Refresh resolves every writer name and swaps in the new set atomically.
// All-or-nothing: one unresolved name fails the whole refresh so the set
// never mixes old and new resolutions.
func (w *WriterSet) Refresh(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.fresh() {
		return nil // raced with another refresher
	}

	next := make(map[string]struct{}, len(w.names))
	for _, name := range w.names {
		h, err := w.resolver.Resolve(ctx, name)
		if err != nil {
			return fmt.Errorf("writer set refresh: %w", err)
		}
		next[h] = struct{}{}
	}
	w.handles = next
	w.fetchedAt = w.now()
	return nil
}

// fresh must be called with at least a read lock held.
func (w *WriterSet) fresh() bool {
	return !w.fetchedAt.IsZero() && w.now().Sub(w.fetchedAt) <= w.ttl
}
