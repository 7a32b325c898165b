package poscache

import "time"

// Push rejection reasons, as reported to Hooks.PushFailed and repair tooling.
const (
	ReasonOutOfOrder        = "out_of_order"
	ReasonVersionConflict   = "version_conflict"
	ReasonValueMismatch     = "value_mismatch"
	ReasonLedgerUnavailable = "ledger_unavailable"
	ReasonStoreRejected     = "store_rejected"
)

// Hooks are lightweight callbacks for the cache's change notifications.
// Implementations MUST be cheap and non-blocking; the cache calls them on
// hot paths while holding the key's lock. Wrap with hooks/async for
// anything slow.
type Hooks interface {
	// An accepted push/retry advanced the record to version at time at.
	CacheUpdated(key Key, version uint64, at time.Time)

	// A verified idempotent replay was accepted as a no-op.
	PushIgnored(key Key, requestID string, seq uint64)

	// A push was rejected. reason is one of the Reason* constants.
	PushFailed(key Key, reason string)
}

// NopHooks is the default no-op.
type NopHooks struct{}

func (NopHooks) CacheUpdated(Key, uint64, time.Time) {}
func (NopHooks) PushIgnored(Key, string, uint64)     {}
func (NopHooks) PushFailed(Key, string)              {}
