// Package asynchook decouples notification consumers from the cache's hot
// path: events are queued onto a bounded channel and delivered by worker
// goroutines. When the queue is full events are dropped, never blocked on.
//
// usage:
//
//	raw := loghooks.New(slog.Default(), loghooks.Options{FailedEvery: 1})
//	hooks := asynchook.New(raw, 1, 1000) // 1 worker; queue 1000 events
//	defer hooks.Close()
//
//	cache, _ := poscache.New[Position](poscache.Options[Position]{
//	    ...
//	    Hooks: hooks, // or `raw` if you don't want async
//	})
package asynchook

import (
	"sync"
	"time"

	"github.com/unkn0wn-root/poscache"
)

type Hooks struct {
	inner poscache.Hooks
	q     chan func()
	wg    sync.WaitGroup
	once  sync.Once
}

var _ poscache.Hooks = (*Hooks)(nil)

func New(inner poscache.Hooks, workers, qlen int) *Hooks {
	if workers <= 0 {
		workers = 1
	}
	if qlen <= 0 {
		qlen = 1024
	}

	h := &Hooks{inner: inner, q: make(chan func(), qlen)}
	h.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer h.wg.Done()
			for f := range h.q {
				f()
			}
		}()
	}
	return h
}

func (h *Hooks) Close() {
	h.once.Do(func() {
		close(h.q)
		h.wg.Wait()
	})
}

func (h *Hooks) try(f func()) {
	select {
	case h.q <- f:
	default: // drop
	}
}

func (h *Hooks) CacheUpdated(k poscache.Key, v uint64, at time.Time) {
	h.try(func() { h.inner.CacheUpdated(k, v, at) })
}

func (h *Hooks) PushIgnored(k poscache.Key, rid string, seq uint64) {
	h.try(func() { h.inner.PushIgnored(k, rid, seq) })
}

func (h *Hooks) PushFailed(k poscache.Key, reason string) {
	h.try(func() { h.inner.PushFailed(k, reason) })
}
