package poscache

import (
	"context"
	"fmt"
	"reflect"
	"sync"
	"time"

	"github.com/unkn0wn-root/poscache/access"
	cd "github.com/unkn0wn-root/poscache/codec"
	"github.com/unkn0wn-root/poscache/degrade"
	"github.com/unkn0wn-root/poscache/guard"
	"github.com/unkn0wn-root/poscache/internal/util"
	"github.com/unkn0wn-root/poscache/internal/wire"
	"github.com/unkn0wn-root/poscache/ledger"
	pr "github.com/unkn0wn-root/poscache/provider"
)

const (
	defaultTTL      = 5 * time.Minute
	defaultMaxBatch = 500

	depLedger    = "ledger"
	depDirectory = "directory"

	lockStripes = 64
)

type cache[V any] struct {
	ns       string
	provider pr.Provider
	codec    cd.Codec[V]
	ledger   ledger.Module[V]
	gate     *access.Gate

	log    Logger
	hooks  Hooks
	rec    degrade.Recorder
	health degrade.StatusReporter

	ttl       time.Duration
	retention time.Duration
	batch     BatchGate

	equal          func(a, b V) bool
	apply          func(base, delta V) V
	computeSetCost SetCostFunc

	now func() time.Time

	// mutating operations on the same key are serialized; different keys
	// land on different stripes and never contend (modulo hash collisions)
	locks [lockStripes]sync.Mutex
}

func newCache[V any](opts Options[V]) (*cache[V], error) {
	if opts.Namespace == "" {
		return nil, fmt.Errorf("poscache: namespace is required")
	}
	if opts.Provider == nil {
		return nil, fmt.Errorf("poscache: provider is required")
	}
	if opts.Codec == nil {
		return nil, fmt.Errorf("poscache: codec is required")
	}
	if opts.Ledger == nil {
		return nil, fmt.Errorf("poscache: ledger module is required")
	}
	if opts.Gate == nil {
		return nil, fmt.Errorf("poscache: access gate is required")
	}

	c := &cache[V]{
		ns:        opts.Namespace,
		provider:  opts.Provider,
		codec:     opts.Codec,
		ledger:    opts.Ledger,
		gate:      opts.Gate,
		retention: opts.Retention,
		apply:     opts.Apply,
		now:       time.Now,
	}

	c.log = coalesce[Logger](opts.Logger, NopLogger{})
	c.hooks = coalesce[Hooks](opts.Hooks, NopHooks{})
	c.rec = coalesce[degrade.Recorder](opts.Recorder, degrade.Nop{})
	c.health = coalesce[degrade.StatusReporter](opts.Health, degrade.NopStatus{})
	c.ttl = coalesce[time.Duration](opts.TTL, defaultTTL)
	c.batch = BatchGate{Max: coalesce[int](opts.MaxBatch, defaultMaxBatch)}

	if opts.Equal != nil {
		c.equal = opts.Equal
	} else {
		c.equal = func(a, b V) bool { return reflect.DeepEqual(a, b) }
	}
	if opts.ComputeSetCost != nil {
		c.computeSetCost = opts.ComputeSetCost
	} else {
		c.computeSetCost = func(_ string, _ []byte, _ int) int64 { return 1 }
	}

	return c, nil
}

func (c *cache[V]) Close(ctx context.Context) error {
	if c.provider != nil {
		return c.provider.Close(ctx)
	}
	return nil
}

func (c *cache[V]) PushFull(ctx context.Context, caller string, key Key, value V, opts PushOptions) error {
	if !key.valid() {
		return ErrBadKey
	}
	if err := c.authorizeWrite(ctx, caller, key); err != nil {
		return err
	}

	mu := c.lock(key)
	mu.Lock()
	defer mu.Unlock()

	rec, exists, err := c.load(ctx, key)
	if err != nil {
		return err
	}

	replay, err := c.checkMarkers(key, rec, exists, opts)
	if err != nil {
		return err
	}
	if replay {
		return nil
	}

	live, ok := c.liveRead(ctx, key, fmt.Sprintf("%v", value))
	if !ok {
		c.hooks.PushFailed(key, ReasonLedgerUnavailable)
		return fmt.Errorf("push %s: %w", key, ErrLedgerUnavailable)
	}
	if !c.equal(live, value) {
		c.rejectMismatch(ctx, key, value)
		return fmt.Errorf("push %s: %w", key, ErrValueMismatch)
	}

	return c.commit(ctx, key, rec, value, opts)
}

func (c *cache[V]) PushDelta(ctx context.Context, caller string, key Key, delta V, opts PushOptions) error {
	if c.apply == nil {
		return ErrDeltaUnsupported
	}
	if !key.valid() {
		return ErrBadKey
	}
	if err := c.authorizeWrite(ctx, caller, key); err != nil {
		return err
	}

	mu := c.lock(key)
	mu.Lock()
	defer mu.Unlock()

	rec, exists, err := c.load(ctx, key)
	if err != nil {
		return err
	}

	replay, err := c.checkMarkers(key, rec, exists, opts)
	if err != nil {
		return err
	}
	if replay {
		return nil
	}

	if !exists || !c.fresh(rec) {
		// The base this delta would apply to is unconfirmed: the ledger may
		// have moved while the entry was stale. Arithmetic on it risks
		// double counting, so drop the delta and resync from the ledger.
		live, ok := c.liveRead(ctx, key, fmt.Sprintf("%+v", delta))
		if !ok {
			c.hooks.PushFailed(key, ReasonLedgerUnavailable)
			return fmt.Errorf("push delta %s: %w", key, ErrLedgerUnavailable)
		}
		c.log.Debug("delta on stale base; resynced from ledger", Fields{"key": key.String()})
		return c.commit(ctx, key, rec, live, opts)
	}

	candidate := c.apply(rec.Value, delta)
	live, ok := c.liveRead(ctx, key, fmt.Sprintf("%v", candidate))
	if !ok {
		c.hooks.PushFailed(key, ReasonLedgerUnavailable)
		return fmt.Errorf("push delta %s: %w", key, ErrLedgerUnavailable)
	}
	if !c.equal(live, candidate) {
		c.rejectMismatch(ctx, key, candidate)
		return fmt.Errorf("push delta %s: %w", key, ErrValueMismatch)
	}

	return c.commit(ctx, key, rec, candidate, opts)
}

func (c *cache[V]) Read(ctx context.Context, caller string, key Key) (V, bool, error) {
	var zero V
	if !key.valid() {
		return zero, false, ErrBadKey
	}
	if !c.gate.CanRead(caller, key.Subject) {
		return zero, false, fmt.Errorf("read %s: %w", key, ErrNotAuthorized)
	}
	return c.readOne(ctx, key)
}

func (c *cache[V]) BatchRead(ctx context.Context, caller string, subjects, resources []string) ([]V, []bool, error) {
	if !c.gate.CanBatchRead(caller) {
		return nil, nil, fmt.Errorf("batch read: %w", ErrNotAuthorized)
	}
	if len(subjects) != len(resources) {
		return nil, nil, fmt.Errorf("batch read: %d subjects vs %d resources: %w",
			len(subjects), len(resources), ErrBatchMismatch)
	}
	if err := c.batch.Check(len(subjects)); err != nil {
		return nil, nil, fmt.Errorf("batch read: %d > %d: %w", len(subjects), c.batch.Max, err)
	}

	vals := make([]V, len(subjects))
	valid := make([]bool, len(subjects))
	for i := range subjects {
		key := Key{Subject: subjects[i], Resource: resources[i]}
		if !key.valid() {
			return nil, nil, fmt.Errorf("batch read [%d]: %w", i, ErrBadKey)
		}
		v, ok, err := c.readOne(ctx, key)
		if err != nil {
			return nil, nil, err
		}
		vals[i], valid[i] = v, ok
	}
	return vals, valid, nil
}

// readOne is the shared read path: fresh cached value, else a guarded live
// ledger read flagged as uncached. Never mutates the record.
func (c *cache[V]) readOne(ctx context.Context, key Key) (V, bool, error) {
	var zero V

	rec, exists, err := c.load(ctx, key)
	if err != nil {
		return zero, false, err
	}
	if exists && c.fresh(rec) {
		return rec.Value, true, nil
	}

	live, ok := c.liveRead(ctx, key, "")
	if !ok {
		// A stale value must not be served as authoritative; callers retry
		// or consult repair tooling.
		return zero, false, fmt.Errorf("read %s: %w", key, ErrLedgerUnavailable)
	}
	return live, false, nil
}

func (c *cache[V]) Retry(ctx context.Context, caller string, key Key) error {
	if !key.valid() {
		return ErrBadKey
	}
	if !c.gate.CanOperate(caller) {
		return fmt.Errorf("retry %s: %w", key, ErrNotAuthorized)
	}

	mu := c.lock(key)
	mu.Lock()
	defer mu.Unlock()

	rec, _, err := c.load(ctx, key)
	if err != nil {
		return err
	}

	live, ok := c.liveRead(ctx, key, "")
	if !ok {
		return fmt.Errorf("retry %s: %w", key, ErrLedgerUnavailable)
	}

	// Manual correction: ordering/idempotency guards are bypassed, the
	// request id marker is cleared (this version came from no request).
	now := c.now()
	next := rec.Version + 1
	stored := Record[V]{
		Value:     live,
		Version:   next,
		UpdatedAt: now,
		LastSeq:   rec.LastSeq,
	}
	if err := c.store(ctx, key, stored); err != nil {
		return err
	}
	c.hooks.CacheUpdated(key, next, now)
	c.log.Info("manual retry resynced key", Fields{"key": key.String(), "version": next})
	return nil
}

func (c *cache[V]) Invalidate(ctx context.Context, caller string, key Key) error {
	if !key.valid() {
		return ErrBadKey
	}
	if !c.gate.CanOperate(caller) {
		return fmt.Errorf("invalidate %s: %w", key, ErrNotAuthorized)
	}

	mu := c.lock(key)
	mu.Lock()
	defer mu.Unlock()

	rec, exists, err := c.load(ctx, key)
	if err != nil {
		return err
	}
	if !exists {
		return nil // nothing cached; reads already fall back
	}

	rec.UpdatedAt = time.Time{}
	if err := c.store(ctx, key, rec); err != nil {
		return err
	}
	c.log.Info("invalidated key; reads fall back to ledger", Fields{"key": key.String(), "version": rec.Version})
	return nil
}

// checkMarkers runs the pre-acceptance guards shared by PushFull and
// PushDelta, in taxonomy order: verified idempotent replay (a silent no-op,
// not an error), then sequence ordering, then the version CAS -- all before
// any external call is attempted.
func (c *cache[V]) checkMarkers(key Key, rec Record[V], exists bool, opts PushOptions) (replay bool, err error) {
	if exists && opts.RequestID != "" && opts.NextVersion != 0 &&
		opts.NextVersion == rec.Version && opts.RequestID == rec.LastRequestID {
		c.hooks.PushIgnored(key, opts.RequestID, opts.Seq)
		c.log.Debug("idempotent replay ignored", Fields{
			"key": key.String(), "request_id": opts.RequestID, "version": rec.Version,
		})
		return true, nil
	}

	if opts.Seq != 0 && opts.Seq <= rec.LastSeq {
		c.hooks.PushFailed(key, ReasonOutOfOrder)
		return false, &OutOfOrderError{Key: key, Seq: opts.Seq, LastSeq: rec.LastSeq}
	}

	if opts.NextVersion != 0 && opts.NextVersion != rec.Version+1 {
		c.hooks.PushFailed(key, ReasonVersionConflict)
		return false, &VersionConflictError{Key: key, Declared: opts.NextVersion, Current: rec.Version}
	}

	return false, nil
}

// commit persists the accepted value at exactly current version + 1 and
// emits the change notification. Caller holds the key's lock.
func (c *cache[V]) commit(ctx context.Context, key Key, prev Record[V], value V, opts PushOptions) error {
	now := c.now()
	next := prev.Version + 1

	stored := Record[V]{
		Value:         value,
		Version:       next,
		UpdatedAt:     now,
		LastRequestID: opts.RequestID,
		LastSeq:       prev.LastSeq,
	}
	if opts.Seq != 0 {
		stored.LastSeq = opts.Seq
	}

	if err := c.store(ctx, key, stored); err != nil {
		return err
	}
	c.hooks.CacheUpdated(key, next, now)
	return nil
}

func (c *cache[V]) authorizeWrite(ctx context.Context, caller string, key Key) error {
	out := guard.Do(ctx, c.rec, key.String(), "", func(ctx context.Context) (bool, error) {
		return c.gate.IsWriter(ctx, caller)
	})
	if !out.OK {
		// allow-list expired and the directory refresh failed: fail closed
		c.health.ReportFailure(depDirectory)
		return fmt.Errorf("push %s: %s: %w", key, out.Reason, ErrWriterSetStale)
	}
	c.health.ReportSuccess(depDirectory)
	if !out.Value {
		return fmt.Errorf("push %s by %q: %w", key, caller, ErrNotWriter)
	}
	return nil
}

func (c *cache[V]) liveRead(ctx context.Context, key Key, attempted string) (V, bool) {
	out := guard.Do(ctx, c.rec, key.String(), attempted, func(ctx context.Context) (V, error) {
		return c.ledger.GetValue(ctx, key.Subject, key.Resource)
	})
	if out.OK {
		c.health.ReportSuccess(depLedger)
	} else {
		c.health.ReportFailure(depLedger)
	}
	return out.Value, out.OK
}

func (c *cache[V]) rejectMismatch(ctx context.Context, key Key, attempted V) {
	c.hooks.PushFailed(key, ReasonValueMismatch)
	c.rec.Record(ctx, degrade.Event{
		Key:       key.String(),
		Attempted: fmt.Sprintf("%v", attempted),
		Reason:    ReasonValueMismatch,
		At:        c.now(),
	})
}

func (c *cache[V]) fresh(rec Record[V]) bool {
	return !rec.UpdatedAt.IsZero() && c.now().Sub(rec.UpdatedAt) <= c.ttl
}

func (c *cache[V]) load(ctx context.Context, key Key) (Record[V], bool, error) {
	var zero Record[V]
	k := c.storageKey(key)

	raw, ok, err := c.provider.Get(ctx, k)
	if err != nil || !ok {
		return zero, false, err
	}

	wr, err := wire.DecodeRecord(raw)
	if err != nil {
		_ = c.provider.Del(ctx, k) // self-heal corrupt
		c.log.Warn("corrupt record dropped", Fields{"key": key.String()})
		return zero, false, nil
	}
	v, err := c.codec.Decode(wr.Payload)
	if err != nil {
		_ = c.provider.Del(ctx, k) // self-heal
		c.log.Warn("undecodable payload dropped", Fields{"key": key.String(), "err": err})
		return zero, false, nil
	}

	rec := Record[V]{
		Value:         v,
		Version:       wr.Version,
		LastRequestID: wr.RequestID,
		LastSeq:       wr.LastSeq,
	}
	if wr.UpdatedAtNano != 0 {
		rec.UpdatedAt = time.Unix(0, wr.UpdatedAtNano)
	}
	return rec, true, nil
}

func (c *cache[V]) store(ctx context.Context, key Key, rec Record[V]) error {
	payload, err := c.codec.Encode(rec.Value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}

	wr := wire.Record{
		Version:   rec.Version,
		LastSeq:   rec.LastSeq,
		RequestID: rec.LastRequestID,
		Payload:   payload,
	}
	if !rec.UpdatedAt.IsZero() {
		wr.UpdatedAtNano = rec.UpdatedAt.UnixNano()
	}

	k := c.storageKey(key)
	raw := wire.EncodeRecord(wr)
	ok, err := c.provider.Set(ctx, k, raw, c.computeSetCost(k, raw, len(payload)), c.retention)
	if err != nil {
		return fmt.Errorf("store %s: %w", key, err)
	}
	if !ok {
		// losing the write silently would desync the version markers
		c.hooks.PushFailed(key, ReasonStoreRejected)
		c.rec.Record(ctx, degrade.Event{Key: key.String(), Reason: ReasonStoreRejected, At: c.now()})
		return fmt.Errorf("store %s: %w", key, ErrStoreRejected)
	}
	return nil
}

func (c *cache[V]) storageKey(key Key) string {
	return util.RecordKey(c.ns, key.Subject, key.Resource)
}

func (c *cache[V]) lock(key Key) *sync.Mutex {
	return &c.locks[util.Stripe(c.storageKey(key), lockStripes)]
}
