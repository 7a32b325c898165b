// Package guard wraps calls to external collaborators (directory, ledger
// modules) so a failure becomes a typed outcome plus a recorded degradation
// event instead of an error or panic escaping into the cache's own
// state-mutation path.
package guard

import (
	"context"
	"fmt"
	"time"

	"github.com/unkn0wn-root/poscache/degrade"
)

// Outcome is the result of one guarded call. When OK is false, Value is the
// zero value and Reason says why the call was abandoned.
type Outcome[T any] struct {
	Value  T
	OK     bool
	Reason string
}

// Do runs fn and converts any returned error -- or panic -- into a failed
// Outcome plus a degradation event recorded under key. attempted carries the
// value the caller was trying to apply, "" when not applicable. The enclosing
// operation can abandon cleanly; unrelated keys and in-flight operations are
// unaffected.
func Do[T any](ctx context.Context, rec degrade.Recorder, key, attempted string, fn func(context.Context) (T, error)) (out Outcome[T]) {
	defer func() {
		if p := recover(); p != nil {
			out = Outcome[T]{Reason: fmt.Sprintf("panic: %v", p)}
			rec.Record(ctx, degrade.Event{Key: key, Attempted: attempted, Reason: out.Reason, At: time.Now()})
		}
	}()

	v, err := fn(ctx)
	if err != nil {
		rec.Record(ctx, degrade.Event{Key: key, Attempted: attempted, Reason: err.Error(), At: time.Now()})
		return Outcome[T]{Reason: err.Error()}
	}
	return Outcome[T]{Value: v, OK: true}
}
