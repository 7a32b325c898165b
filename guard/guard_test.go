package guard

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/unkn0wn-root/poscache/degrade"
)

func TestDoSuccess(t *testing.T) {
	rec := degrade.NewMemory(8)
	out := Do(context.Background(), rec, "u/collateral", "", func(context.Context) (int, error) {
		return 42, nil
	})
	if !out.OK || out.Value != 42 || out.Reason != "" {
		t.Fatalf("out = %+v", out)
	}
	if rec.Len() != 0 {
		t.Fatalf("success must not record events, got %d", rec.Len())
	}
}

func TestDoErrorRecordsEvent(t *testing.T) {
	rec := degrade.NewMemory(8)
	out := Do(context.Background(), rec, "u/debt", "150", func(context.Context) (int, error) {
		return 0, errors.New("ledger: timeout")
	})
	if out.OK || out.Value != 0 {
		t.Fatalf("out = %+v, want failed zero outcome", out)
	}

	evs := rec.Events()
	if len(evs) != 1 {
		t.Fatalf("events = %d, want 1", len(evs))
	}
	ev := evs[0]
	if ev.Key != "u/debt" || ev.Attempted != "150" || ev.Reason != "ledger: timeout" || ev.At.IsZero() {
		t.Fatalf("event = %+v", ev)
	}
}

func TestDoConvertsPanic(t *testing.T) {
	rec := degrade.NewMemory(8)
	out := Do(context.Background(), rec, "u/health", "", func(context.Context) (string, error) {
		panic("resolver blew up")
	})
	if out.OK {
		t.Fatalf("panic must yield a failed outcome")
	}
	if !strings.Contains(out.Reason, "resolver blew up") {
		t.Fatalf("reason = %q", out.Reason)
	}
	if rec.Len() != 1 {
		t.Fatalf("panic should be recorded")
	}
}
