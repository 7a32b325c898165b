package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/unkn0wn-root/poscache"
	"github.com/unkn0wn-root/poscache/access"
	"github.com/unkn0wn-root/poscache/codec"
	"github.com/unkn0wn-root/poscache/degrade"
	"github.com/unkn0wn-root/poscache/directory"
	asynchook "github.com/unkn0wn-root/poscache/hooks/async"
	"github.com/unkn0wn-root/poscache/internal/config"
	"github.com/unkn0wn-root/poscache/internal/ledgerhttp"
	"github.com/unkn0wn-root/poscache/internal/metrics"
	"github.com/unkn0wn-root/poscache/internal/server"
	zaplog "github.com/unkn0wn-root/poscache/log/zap"
	pr "github.com/unkn0wn-root/poscache/provider"
	redisprov "github.com/unkn0wn-root/poscache/provider/redis"
	ristrettoprov "github.com/unkn0wn-root/poscache/provider/ristretto"
)

// CompositionRoot wires configuration into a running daemon: store, ledger
// client, access gate, degradation recording and the HTTP surfaces.
type CompositionRoot struct {
	cfg    *config.Config
	logger *zap.Logger

	cache   poscache.Cache[float64]
	hooks   *asynchook.Hooks
	rdb     goredis.UniversalClient
	api     *server.Server
	metrics *http.Server
}

func NewCompositionRoot(cfg *config.Config, logger *zap.Logger) (*CompositionRoot, error) {
	root := &CompositionRoot{cfg: cfg, logger: logger}

	prov, err := root.buildProvider()
	if err != nil {
		return nil, fmt.Errorf("build provider: %w", err)
	}

	writers := directory.NewWriterSet(
		directory.Static(cfg.Directory),
		cfg.Writers,
		cfg.WriterTTL,
	)
	gate := access.New(access.Config{
		Elevated:       cfg.Access.Elevated,
		BatchOperators: cfg.Access.BatchOperators,
		Operators:      cfg.Access.Operators,
		Writers:        writers,
	})

	m := metrics.New(prometheus.DefaultRegisterer)
	health := degrade.NewHealth(prometheus.DefaultRegisterer)
	recorder := root.buildRecorder(m)

	// hook fan-out off the push path; counters are cheap but the queue also
	// absorbs any future sinks
	root.hooks = asynchook.New(m, 1, 1024)

	cache, err := poscache.New(poscache.Options[float64]{
		Namespace: cfg.Namespace,
		Provider:  prov,
		Codec:     codec.JSON[float64]{},
		Ledger:    ledgerhttp.New(cfg.Ledger.BaseURL, cfg.Ledger.Timeout),
		Gate:      gate,
		Logger:    zaplog.ZapLogger{L: logger},
		Hooks:     root.hooks,
		Recorder:  recorder,
		Health:    health,
		TTL:       cfg.TTL,
		Retention: cfg.Retention,
		MaxBatch:  cfg.MaxBatch,
		Apply:     func(base, delta float64) float64 { return base + delta },
	})
	if err != nil {
		return nil, fmt.Errorf("build cache: %w", err)
	}
	root.cache = cache

	root.api = server.New(cfg.Listen, cache, m, logger)

	mmux := http.NewServeMux()
	mmux.Handle("/metrics", promhttp.Handler())
	root.metrics = &http.Server{
		Addr:              cfg.MetricsListen,
		Handler:           mmux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return root, nil
}

// buildProvider selects the record store: Redis when an address is
// configured (records survive restarts), in-process Ristretto otherwise.
func (r *CompositionRoot) buildProvider() (pr.Provider, error) {
	if r.cfg.Redis.Addr != "" {
		r.rdb = goredis.NewClient(&goredis.Options{
			Addr:     r.cfg.Redis.Addr,
			Password: r.cfg.Redis.Password,
			DB:       r.cfg.Redis.DB,
		})
		r.logger.Info("Using Redis record store", zap.String("addr", r.cfg.Redis.Addr))
		return redisprov.New(redisprov.Config{Client: r.rdb, CloseClient: true})
	}

	r.logger.Info("Using in-process Ristretto record store")
	return ristrettoprov.New(ristrettoprov.Config{
		NumCounters: 1e6,
		MaxCost:     256 << 20,
		BufferItems: 64,
	})
}

// buildRecorder fans degradation events out to the Prometheus counters, a
// bounded in-memory ring for /healthz-adjacent debugging, and (when Redis is
// configured) the capped Redis Stream the repair tooling tails.
func (r *CompositionRoot) buildRecorder(m *metrics.Metrics) degrade.Recorder {
	recs := degrade.Multi{m, degrade.NewMemory(1024)}
	if r.rdb != nil {
		stream := degrade.NewStream(r.rdb, r.cfg.Redis.Stream, 10_000)
		stream.OnError = func(err error) {
			r.logger.Warn("Degradation stream append failed", zap.Error(err))
		}
		recs = append(recs, stream)
	}
	return recs
}

// Run starts both listeners; the returned channel receives the first fatal
// serve error. Graceful shutdowns (ErrServerClosed) are not reported.
func (r *CompositionRoot) Run() <-chan error {
	errCh := make(chan error, 2)
	go func() {
		r.logger.Info("API server listening", zap.String("addr", r.cfg.Listen))
		if err := r.api.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()
	go func() {
		r.logger.Info("Metrics server listening", zap.String("addr", r.cfg.MetricsListen))
		if err := r.metrics.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()
	return errCh
}

func (r *CompositionRoot) Shutdown(ctx context.Context) {
	if err := r.api.Shutdown(ctx); err != nil {
		r.logger.Warn("API server shutdown", zap.Error(err))
	}
	if err := r.metrics.Shutdown(ctx); err != nil {
		r.logger.Warn("Metrics server shutdown", zap.Error(err))
	}
	r.hooks.Close()
	if err := r.cache.Close(ctx); err != nil {
		r.logger.Warn("Cache close", zap.Error(err))
	}
}
