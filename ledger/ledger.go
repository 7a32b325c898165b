// Package ledger declares the authoritative value source the cache mirrors.
// Ledger modules own true state; the cache never writes to them and wraps
// every read in a guarded call.
package ledger

import "context"

// Module reads the current authoritative value for a (subject, resource)
// key. Reads may fail transiently; callers are expected to guard them.
type Module[V any] interface {
	GetValue(ctx context.Context, subject, resource string) (V, error)
}

// Func adapts a plain function to Module.
type Func[V any] func(ctx context.Context, subject, resource string) (V, error)

func (f Func[V]) GetValue(ctx context.Context, subject, resource string) (V, error) {
	return f(ctx, subject, resource)
}
