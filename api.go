package poscache

import (
	"context"
	"time"

	"github.com/unkn0wn-root/poscache/access"
	c "github.com/unkn0wn-root/poscache/codec"
	"github.com/unkn0wn-root/poscache/degrade"
	"github.com/unkn0wn-root/poscache/ledger"
	pr "github.com/unkn0wn-root/poscache/provider"
)

// SetCostFunc computes the storage cost charged for one record write.
type SetCostFunc func(key string, raw []byte, payloadLen int) int64

// Cache is the high-level push/read API over mirrored ledger positions.
// V is the position value type; serialization is handled by a pluggable
// Codec[V]. The caller argument on every method is the opaque identity the
// access gate evaluates.
type Cache[V any] interface {
	// PushFull replaces the key's value after confirming it against a live
	// ledger read. Writer-gated; idempotent replays are accepted as no-ops.
	PushFull(ctx context.Context, caller string, key Key, value V, opts PushOptions) error

	// PushDelta applies a signed delta to the cached base under the same
	// guard rails. A stale (or unset) base discards the delta semantics and
	// resynchronizes from the ledger instead -- a delta over an unconfirmed
	// base risks double counting.
	PushDelta(ctx context.Context, caller string, key Key, delta V, opts PushOptions) error

	// Read returns (value, true) when the cached record is within TTL,
	// else (liveLedgerValue, false). Pure: it never mutates cache state.
	Read(ctx context.Context, caller string, key Key) (V, bool, error)

	// BatchRead is Read over parallel subject/resource arrays. Rejected in
	// full on length mismatch or when the batch gate's limit is exceeded.
	BatchRead(ctx context.Context, caller string, subjects, resources []string) ([]V, []bool, error)

	// Retry is the operator-only manual repair entrypoint: re-reads the
	// ledger and re-applies as a fresh version, bypassing the ordering and
	// idempotency guards.
	Retry(ctx context.Context, caller string, key Key) error

	// Invalidate clears the record's update timestamp so reads fall back to
	// the ledger. Version and idempotency markers survive. Operator-only.
	Invalidate(ctx context.Context, caller string, key Key) error

	Close(ctx context.Context) error
}

// Options tune the cache. Namespace, Provider, Codec, Ledger and Gate are
// required; the rest have sensible defaults.
type Options[V any] struct {
	// Required
	Namespace string // logical namespace, e.g. "collateral", "debt"
	Provider  pr.Provider
	Codec     c.Codec[V]
	Ledger    ledger.Module[V]
	Gate      *access.Gate

	Logger   Logger                 // nil => NopLogger
	Hooks    Hooks                  // nil => NopHooks
	Recorder degrade.Recorder       // nil => degrade.Nop
	Health   degrade.StatusReporter // nil => degrade.NopStatus

	TTL       time.Duration // validity window; 0 => 5m
	Retention time.Duration // provider storage bound; 0 => keep forever
	MaxBatch  int           // batch gate limit; 0 => 500

	// Equal confirms a pushed value against the ledger's. nil =>
	// reflect.DeepEqual.
	Equal func(a, b V) bool

	// Apply combines a cached base with a pushed delta. Required for
	// PushDelta; when nil, PushDelta returns ErrDeltaUnsupported.
	Apply func(base, delta V) V

	ComputeSetCost SetCostFunc // default 1
}

func New[V any](opts Options[V]) (Cache[V], error) {
	return newCache[V](opts)
}
