// Package loghooks emits cache notifications to slog, with sampling so a
// flapping writer cannot flood the log.
package loghooks

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/unkn0wn-root/poscache"
)

type Options struct {
	// Sampling to avoid floods; 0/1 = log all.
	UpdatedEvery uint64
	IgnoredEvery uint64
	FailedEvery  uint64
	// Optional subject redactor. Defaults to SHA-256 prefix: position keys
	// identify accounts and should not land in logs verbatim.
	Redact func(string) string
}

type Hooks struct {
	l    *slog.Logger
	opts Options

	updatedCtr atomic.Uint64
	ignoredCtr atomic.Uint64
	failedCtr  atomic.Uint64
}

var _ poscache.Hooks = (*Hooks)(nil)

func New(l *slog.Logger, opts Options) *Hooks {
	return &Hooks{l: l, opts: opts}
}

func (h *Hooks) redact(s string) string {
	if h.opts.Redact != nil {
		return h.opts.Redact(s)
	}
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:8])
}

func sample(n uint64, ctr *atomic.Uint64) bool {
	if n == 0 || n == 1 {
		return true
	}
	return ctr.Add(1)%n == 0
}

func (h *Hooks) CacheUpdated(key poscache.Key, version uint64, at time.Time) {
	if h.l == nil || !sample(h.opts.UpdatedEvery, &h.updatedCtr) {
		return
	}
	h.l.Debug("poscache.cache_updated",
		"subject", h.redact(key.Subject),
		"resource", key.Resource,
		"version", version,
		"at", at)
}

func (h *Hooks) PushIgnored(key poscache.Key, requestID string, seq uint64) {
	if h.l == nil || !sample(h.opts.IgnoredEvery, &h.ignoredCtr) {
		return
	}
	h.l.Info("poscache.push_ignored",
		"subject", h.redact(key.Subject),
		"resource", key.Resource,
		"request_id", requestID,
		"seq", seq)
}

func (h *Hooks) PushFailed(key poscache.Key, reason string) {
	if h.l == nil || !sample(h.opts.FailedEvery, &h.failedCtr) {
		return
	}
	h.l.Warn("poscache.push_failed",
		"subject", h.redact(key.Subject),
		"resource", key.Resource,
		"reason", reason)
}
