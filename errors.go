package poscache

import (
	"errors"
	"fmt"
)

// Sentinel errors, one per rejection class. Push/read methods wrap these
// with per-call detail; match with errors.Is.
var (
	// Authorization
	ErrNotWriter      = errors.New("poscache: caller is not a registered writer")
	ErrWriterSetStale = errors.New("poscache: writer set expired and could not be refreshed")
	ErrNotAuthorized  = errors.New("poscache: caller not authorized")

	// Validation
	ErrBadKey        = errors.New("poscache: subject and resource must be non-empty")
	ErrBatchMismatch = errors.New("poscache: subjects and resources length mismatch")
	ErrBatchLimit    = errors.New("poscache: batch size exceeds configured maximum")

	// Concurrency conflict
	ErrOutOfOrder      = errors.New("poscache: sequence not greater than last applied")
	ErrVersionConflict = errors.New("poscache: declared next version does not match current+1")

	// Consistency violation
	ErrValueMismatch = errors.New("poscache: pushed value disagrees with ledger")

	// Transient upstream / storage
	ErrLedgerUnavailable = errors.New("poscache: ledger read failed")
	ErrStoreRejected     = errors.New("poscache: record store rejected the write")

	ErrDeltaUnsupported = errors.New("poscache: no delta apply function configured")
)

// VersionConflictError reports a failed compare-and-swap: the caller
// declared a next version that is not current+1. Callers are expected to
// re-read and resubmit.
type VersionConflictError struct {
	Key      Key
	Declared uint64
	Current  uint64
}

func (e *VersionConflictError) Error() string {
	return fmt.Sprintf("push %s: declared next version %d, current is %d", e.Key, e.Declared, e.Current)
}

func (e *VersionConflictError) Unwrap() error { return ErrVersionConflict }

// OutOfOrderError reports a sequence number at or below the last applied one
// for the key, i.e. a reordered network retry.
type OutOfOrderError struct {
	Key     Key
	Seq     uint64
	LastSeq uint64
}

func (e *OutOfOrderError) Error() string {
	return fmt.Sprintf("push %s: seq %d not greater than last applied %d", e.Key, e.Seq, e.LastSeq)
}

func (e *OutOfOrderError) Unwrap() error { return ErrOutOfOrder }
