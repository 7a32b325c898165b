package poscache

import "time"

// Key identifies one mirrored position: a subject (account, vault, user)
// and a resource (collateral, debt, health, points, ...). Each key's record
// is the unit of isolation; operations on different keys never contend.
type Key struct {
	Subject  string
	Resource string
}

func (k Key) String() string { return k.Subject + "/" + k.Resource }

func (k Key) valid() bool { return k.Subject != "" && k.Resource != "" }

// Record is the mirrored state for one key.
//
// Version increases by exactly 1 per accepted write. (LastRequestID,
// Version) together make a specific write idempotent forever: only the
// single most-recent pair needs retaining because a given version can only
// ever have been produced by one accepted write. LastSeq rejects reordered
// retries independently of version idempotency. A zero UpdatedAt means the
// record was administratively invalidated (or never fresh): reads fall back
// to the ledger, but the markers survive.
type Record[V any] struct {
	Value         V
	Version       uint64
	UpdatedAt     time.Time
	LastRequestID string
	LastSeq       uint64
}

// PushOptions carry the per-push consistency markers. All fields are
// optional; zero values disable the corresponding guard.
type PushOptions struct {
	// RequestID is the writer's idempotency token. Replaying the same
	// (RequestID, NextVersion) after acceptance is a verified no-op.
	RequestID string

	// Seq, when non-zero, must be strictly greater than the key's last
	// applied sequence.
	Seq uint64

	// NextVersion, when non-zero, must equal current version + 1 (strict
	// CAS). Zero selects auto-increment -- a compatibility shim for writers
	// that predate CAS; prefer declaring the version explicitly, since only
	// the CAS form lets independent writers race safely on one key.
	NextVersion uint64
}
