// Package metrics exposes the daemon's Prometheus instrumentation as a
// poscache.Hooks implementation plus a degradation event counter.
package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/unkn0wn-root/poscache"
	"github.com/unkn0wn-root/poscache/degrade"
)

type Metrics struct {
	pushesAccepted *prometheus.CounterVec
	pushesIgnored  prometheus.Counter
	pushesFailed   *prometheus.CounterVec
	degradations   *prometheus.CounterVec
	reads          *prometheus.CounterVec
}

var (
	_ poscache.Hooks   = (*Metrics)(nil)
	_ degrade.Recorder = (*Metrics)(nil)
)

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		pushesAccepted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "poscached_pushes_accepted_total",
			Help: "Accepted pushes (including retries and delta resyncs)",
		}, []string{"resource"}),
		pushesIgnored: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "poscached_pushes_ignored_total",
			Help: "Idempotent replays accepted as no-ops",
		}),
		pushesFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "poscached_pushes_failed_total",
			Help: "Rejected pushes by reason",
		}, []string{"reason"}),
		degradations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "poscached_degradation_events_total",
			Help: "Degradation events recorded for repair tooling",
		}, []string{"reason"}),
		reads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "poscached_reads_total",
			Help: "Read results by validity (cached vs ledger fallback)",
		}, []string{"result"}),
	}
	reg.MustRegister(m.pushesAccepted, m.pushesIgnored, m.pushesFailed, m.degradations, m.reads)
	return m
}

func (m *Metrics) CacheUpdated(key poscache.Key, _ uint64, _ time.Time) {
	m.pushesAccepted.WithLabelValues(key.Resource).Inc()
}

func (m *Metrics) PushIgnored(poscache.Key, string, uint64) {
	m.pushesIgnored.Inc()
}

func (m *Metrics) PushFailed(_ poscache.Key, reason string) {
	m.pushesFailed.WithLabelValues(reason).Inc()
}

func (m *Metrics) Record(_ context.Context, ev degrade.Event) {
	// reasons carry upstream error text; bucket them coarsely to keep
	// cardinality bounded
	reason := ev.Reason
	switch reason {
	case poscache.ReasonValueMismatch, poscache.ReasonStoreRejected:
	default:
		reason = "upstream_failure"
	}
	m.degradations.WithLabelValues(reason).Inc()
}

// ObserveRead counts one read result; valid means served from cache.
func (m *Metrics) ObserveRead(valid bool) {
	if valid {
		m.reads.WithLabelValues("cached").Inc()
	} else {
		m.reads.WithLabelValues("fallback").Inc()
	}
}
