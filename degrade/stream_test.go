package degrade

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestStreamAppendsEvents(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	defer mr.Close()

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	ctx := context.Background()
	s := NewStream(rdb, "poscache:degradations", 100)

	at := time.Unix(1_700_000_000, 42)
	s.Record(ctx, Event{Key: "u/collateral", Attempted: "150", Reason: "value_mismatch", At: at})
	s.Record(ctx, Event{Key: "u/debt", Reason: "ledger: timeout", At: at})

	msgs, err := rdb.XRange(ctx, "poscache:degradations", "-", "+").Result()
	if err != nil {
		t.Fatalf("XRange: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("stream entries = %d, want 2", len(msgs))
	}

	first := msgs[0].Values
	if first["key"] != "u/collateral" || first["attempted"] != "150" || first["reason"] != "value_mismatch" {
		t.Fatalf("first entry = %v", first)
	}
}

func TestStreamSwallowsBackendErrors(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	var seen error
	s := NewStream(rdb, "poscache:degradations", 0)
	s.OnError = func(e error) { seen = e }

	mr.Close() // recording is best-effort; the caller never sees the failure
	s.Record(context.Background(), Event{Key: "k", At: time.Now()})

	if seen == nil {
		t.Fatalf("OnError should have observed the XADD failure")
	}
}
