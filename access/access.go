// Package access evaluates the cache's permission tiers.
//
// Reads come in three strictly ordered tiers: self (caller is the record's
// subject), elevated (may read any subject), and batch-operator (required
// for any multi-key read -- batch reads cost more and leak more, so the
// self tier alone never grants them). Writes are an identity check against
// the directory-resolved writer allow-list, not a role check: writers are a
// small, explicitly enumerated population of trusted services.
package access

import (
	"context"

	"github.com/unkn0wn-root/poscache/directory"
)

// Config enumerates the capability sets. Handles are opaque caller
// identities; how they are authenticated is outside this package.
type Config struct {
	Elevated       []string
	BatchOperators []string
	Operators      []string // may invoke manual retry/invalidate
	Writers        *directory.WriterSet
}

// Gate answers authorization questions. It holds fixed capability sets plus
// the TTL'd writer allow-list; it performs no I/O except writer-set refresh.
type Gate struct {
	elevated  map[string]struct{}
	batchOps  map[string]struct{}
	operators map[string]struct{}
	writers   *directory.WriterSet
}

func New(cfg Config) *Gate {
	return &Gate{
		elevated:  toSet(cfg.Elevated),
		batchOps:  toSet(cfg.BatchOperators),
		operators: toSet(cfg.Operators),
		writers:   cfg.Writers,
	}
}

// CanRead: single-key read requires self OR elevated.
func (g *Gate) CanRead(caller, subject string) bool {
	if caller == "" {
		return false
	}
	if caller == subject {
		return true
	}
	_, ok := g.elevated[caller]
	return ok
}

// CanBatchRead: batch read requires elevated OR batch-operator; self alone
// never qualifies, even over the caller's own mixed-in keys.
func (g *Gate) CanBatchRead(caller string) bool {
	if _, ok := g.elevated[caller]; ok {
		return true
	}
	_, ok := g.batchOps[caller]
	return ok
}

// CanOperate gates the manual repair entrypoints (retry, invalidate).
func (g *Gate) CanOperate(caller string) bool {
	_, ok := g.operators[caller]
	return ok
}

// IsWriter checks membership in the current writer allow-list. The error
// return means the list expired and could not be refreshed; callers must
// reject rather than fall back to a stale authorization decision.
func (g *Gate) IsWriter(ctx context.Context, caller string) (bool, error) {
	if g.writers == nil || caller == "" {
		return false, nil
	}
	return g.writers.Authorized(ctx, caller)
}

func toSet(handles []string) map[string]struct{} {
	m := make(map[string]struct{}, len(handles))
	for _, h := range handles {
		m[h] = struct{}{}
	}
	return m
}
