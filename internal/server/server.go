// Package server exposes the cache over HTTP for push feeds, readers and
// operator tooling. Caller identity travels in the X-Caller header; the
// access tiers themselves are enforced by the cache, not here.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/unkn0wn-root/poscache"
	"github.com/unkn0wn-root/poscache/internal/metrics"
)

const callerHeader = "X-Caller"

type Server struct {
	cache   poscache.Cache[float64]
	metrics *metrics.Metrics
	log     *zap.Logger
	http    *http.Server
}

func New(addr string, cache poscache.Cache[float64], m *metrics.Metrics, log *zap.Logger) *Server {
	s := &Server{cache: cache, metrics: m, log: log}

	r := mux.NewRouter()
	r.HandleFunc("/v1/position", s.handleRead).Methods(http.MethodGet)
	r.HandleFunc("/v1/batch-read", s.handleBatchRead).Methods(http.MethodPost)
	r.HandleFunc("/v1/push/full", s.handlePush(false)).Methods(http.MethodPost)
	r.HandleFunc("/v1/push/delta", s.handlePush(true)).Methods(http.MethodPost)
	r.HandleFunc("/v1/ops/retry", s.handleOp(cache.Retry)).Methods(http.MethodPost)
	r.HandleFunc("/v1/ops/invalidate", s.handleOp(cache.Invalidate)).Methods(http.MethodPost)
	r.HandleFunc("/healthz", handleHealthz).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	s.http = &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler returns the configured router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.http.Handler }

func (s *Server) ListenAndServe() error { return s.http.ListenAndServe() }

func (s *Server) Shutdown(ctx context.Context) error { return s.http.Shutdown(ctx) }

type pushRequest struct {
	Subject     string  `json:"subject"`
	Resource    string  `json:"resource"`
	Value       float64 `json:"value"`
	RequestID   string  `json:"request_id"`
	Seq         uint64  `json:"seq"`
	NextVersion uint64  `json:"next_version"`
}

type keyRequest struct {
	Subject  string `json:"subject"`
	Resource string `json:"resource"`
}

type batchRequest struct {
	Subjects  []string `json:"subjects"`
	Resources []string `json:"resources"`
}

type readResponse struct {
	Subject  string  `json:"subject"`
	Resource string  `json:"resource"`
	Value    float64 `json:"value"`
	Valid    bool    `json:"valid"`
}

type batchResponse struct {
	Values []float64 `json:"values"`
	Valid  []bool    `json:"valid"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleRead(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	key := poscache.Key{Subject: q.Get("subject"), Resource: q.Get("resource")}

	value, valid, err := s.cache.Read(r.Context(), caller(r), key)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.metrics.ObserveRead(valid)
	writeJSON(w, http.StatusOK, readResponse{
		Subject:  key.Subject,
		Resource: key.Resource,
		Value:    value,
		Valid:    valid,
	})
}

func (s *Server) handleBatchRead(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if !s.decode(w, r, &req) {
		return
	}

	values, valid, err := s.cache.BatchRead(r.Context(), caller(r), req.Subjects, req.Resources)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	for _, v := range valid {
		s.metrics.ObserveRead(v)
	}
	writeJSON(w, http.StatusOK, batchResponse{Values: values, Valid: valid})
}

func (s *Server) handlePush(delta bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req pushRequest
		if !s.decode(w, r, &req) {
			return
		}

		key := poscache.Key{Subject: req.Subject, Resource: req.Resource}
		opts := poscache.PushOptions{
			RequestID:   req.RequestID,
			Seq:         req.Seq,
			NextVersion: req.NextVersion,
		}

		var err error
		if delta {
			err = s.cache.PushDelta(r.Context(), caller(r), key, req.Value, opts)
		} else {
			err = s.cache.PushFull(r.Context(), caller(r), key, req.Value, opts)
		}
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) handleOp(op func(context.Context, string, poscache.Key) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req keyRequest
		if !s.decode(w, r, &req) {
			return
		}
		key := poscache.Key{Subject: req.Subject, Resource: req.Resource}
		if err := op(r.Context(), caller(r), key); err != nil {
			s.writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	if err := dec.Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return false
	}
	return true
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusServiceUnavailable || status == http.StatusInternalServerError {
		s.log.Warn("request failed",
			zap.String("path", r.URL.Path),
			zap.String("caller", caller(r)),
			zap.Error(err))
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, poscache.ErrNotAuthorized),
		errors.Is(err, poscache.ErrNotWriter):
		return http.StatusForbidden
	case errors.Is(err, poscache.ErrBadKey),
		errors.Is(err, poscache.ErrBatchMismatch),
		errors.Is(err, poscache.ErrBatchLimit),
		errors.Is(err, poscache.ErrDeltaUnsupported):
		return http.StatusBadRequest
	case errors.Is(err, poscache.ErrOutOfOrder),
		errors.Is(err, poscache.ErrVersionConflict),
		errors.Is(err, poscache.ErrValueMismatch):
		return http.StatusConflict
	case errors.Is(err, poscache.ErrLedgerUnavailable),
		errors.Is(err, poscache.ErrWriterSetStale),
		errors.Is(err, poscache.ErrStoreRejected):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func caller(r *http.Request) string { return r.Header.Get(callerHeader) }

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
