// Package provider defines the storage abstraction behind the position cache.
//
// Implementations MUST be byte-for-byte transparent: Get must return exactly
// the same []byte that was previously passed to Set for a key (no
// prepended/appended metadata, no re-encoding, no mutation). If a store
// performs internal transforms (e.g., compression), they MUST be fully
// reversed so the bytes returned by Get match the bytes given to Set.
//
// The TTL passed to Set is a storage retention bound, not the validity
// window: record freshness is always derived from the record's own update
// timestamp at read time. Evicting a record early also discards its
// version/idempotency markers, so retention should comfortably exceed the
// validity TTL (the default wiring uses no expiry).
//
// The "pos:<ns>:" keyspace is owned by poscache. External code MUST NOT
// write values under it; foreign writes may be treated as corruption by
// strict wire-format validation and deleted.
package provider

import (
	"context"
	"time"
)

// Provider is a minimal byte store with retention TTLs. Must be safe for
// concurrent use.
type Provider interface {
	// Get returns (value, true, nil) on hit; (nil, false, nil) on miss.
	// If an IO/remote error happens, return (nil, false, err).
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores value with the given retention. May ignore cost if
	// unsupported. Returns ok=false when the store rejected the write under
	// pressure.
	Set(ctx context.Context, key string, value []byte, cost int64, retention time.Duration) (ok bool, err error)

	// Del removes a key (best-effort).
	Del(ctx context.Context, key string) error

	// Close releases resources.
	Close(ctx context.Context) error
}
