package degrade

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// StatusReporter receives per-dependency success/failure signals. Purely for
// observability; nothing in the cache protocol reads it back.
type StatusReporter interface {
	ReportSuccess(dep string)
	ReportFailure(dep string)
}

// NopStatus discards all reports.
type NopStatus struct{}

func (NopStatus) ReportSuccess(string) {}
func (NopStatus) ReportFailure(string) {}

// Status is the rolling health of one external dependency.
type Status struct {
	Healthy             bool
	ConsecutiveFailures int
	LastCheck           time.Time
}

// Health tracks a rolling {healthy, consecutiveFailures, lastCheck} per
// dependency and mirrors it into Prometheus.
type Health struct {
	mu   sync.Mutex
	deps map[string]Status
	now  func() time.Time

	healthy  *prometheus.GaugeVec
	failures *prometheus.CounterVec
	streak   *prometheus.GaugeVec
}

var _ StatusReporter = (*Health)(nil)

// NewHealth creates a Health tracker and registers its collectors with reg.
// Pass nil to skip Prometheus registration (in-memory status only).
func NewHealth(reg prometheus.Registerer) *Health {
	h := &Health{
		deps: make(map[string]Status),
		now:  time.Now,
		healthy: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "poscache_dependency_healthy",
			Help: "Whether the dependency's last guarded call succeeded (1 = healthy)",
		}, []string{"dependency"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "poscache_dependency_failures_total",
			Help: "Total failed guarded calls per dependency",
		}, []string{"dependency"}),
		streak: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "poscache_dependency_consecutive_failures",
			Help: "Consecutive failed guarded calls since the last success",
		}, []string{"dependency"}),
	}
	if reg != nil {
		reg.MustRegister(h.healthy, h.failures, h.streak)
	}
	return h
}

func (h *Health) ReportSuccess(dep string) {
	h.mu.Lock()
	h.deps[dep] = Status{Healthy: true, LastCheck: h.now()}
	h.mu.Unlock()

	h.healthy.WithLabelValues(dep).Set(1)
	h.streak.WithLabelValues(dep).Set(0)
}

func (h *Health) ReportFailure(dep string) {
	h.mu.Lock()
	st := h.deps[dep]
	st.Healthy = false
	st.ConsecutiveFailures++
	st.LastCheck = h.now()
	h.deps[dep] = st
	h.mu.Unlock()

	h.healthy.WithLabelValues(dep).Set(0)
	h.failures.WithLabelValues(dep).Inc()
	h.streak.WithLabelValues(dep).Set(float64(st.ConsecutiveFailures))
}

// Lookup returns the rolling status of dep, if any report was made.
func (h *Health) Lookup(dep string) (Status, bool) {
	h.mu.Lock()
	st, ok := h.deps[dep]
	h.mu.Unlock()
	return st, ok
}
