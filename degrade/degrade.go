// Package degrade is the side channel for failures the cache refuses to act on:
// failed guarded calls and rejected pushes. Events feed an operator-driven
// repair loop; they are never consulted by the cache protocol itself.
package degrade

import (
	"context"
	"sync"
	"time"
)

// Event describes one degraded external interaction or rejected push.
// Attempted carries the pushed value (stringified) when one exists, "" otherwise.
type Event struct {
	Key       string
	Attempted string
	Reason    string
	At        time.Time
}

// Recorder consumes events. Implementations MUST be cheap and must never
// return control-flow to the caller via panic: recording is best-effort
// and a recording failure must not fail the operation being recorded.
type Recorder interface {
	Record(ctx context.Context, ev Event)
}

// Nop discards all events.
type Nop struct{}

func (Nop) Record(context.Context, Event) {}

// Multi fans an event out to every recorder in order.
type Multi []Recorder

func (m Multi) Record(ctx context.Context, ev Event) {
	for _, r := range m {
		r.Record(ctx, ev)
	}
}

// Memory is a bounded, append-only in-process recorder. When full, the oldest
// events are dropped. Events() returns a snapshot for repair loops and tests.
type Memory struct {
	mu  sync.Mutex
	max int
	evs []Event
}

// NewMemory creates a Memory recorder holding at most max events (0 => 1024).
func NewMemory(max int) *Memory {
	if max <= 0 {
		max = 1024
	}
	return &Memory{max: max}
}

func (m *Memory) Record(_ context.Context, ev Event) {
	m.mu.Lock()
	if len(m.evs) == m.max {
		copy(m.evs, m.evs[1:])
		m.evs = m.evs[:m.max-1]
	}
	m.evs = append(m.evs, ev)
	m.mu.Unlock()
}

// Events returns a copy of the recorded events, oldest first.
func (m *Memory) Events() []Event {
	m.mu.Lock()
	out := make([]Event, len(m.evs))
	copy(out, m.evs)
	m.mu.Unlock()
	return out
}

// Len reports the number of retained events.
func (m *Memory) Len() int {
	m.mu.Lock()
	n := len(m.evs)
	m.mu.Unlock()
	return n
}
