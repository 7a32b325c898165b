package redis

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
)

func newTestProvider(t *testing.T) (*Redis, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	p, err := New(Config{Client: client, CloseClient: true})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = p.Close(context.Background()) })
	return p, mr
}

func TestGetSetDel(t *testing.T) {
	ctx := context.Background()
	p, _ := newTestProvider(t)

	if _, ok, err := p.Get(ctx, "k"); err != nil || ok {
		t.Fatalf("Get miss: ok=%v err=%v", ok, err)
	}

	val := []byte{0x00, 0x01, 'P', 'O', 'S', 'C'} // bytes must round-trip untouched
	if ok, err := p.Set(ctx, "k", val, 1, time.Minute); err != nil || !ok {
		t.Fatalf("Set: ok=%v err=%v", ok, err)
	}

	got, ok, err := p.Get(ctx, "k")
	if err != nil || !ok || !bytes.Equal(got, val) {
		t.Fatalf("Get: %v %v %v", got, ok, err)
	}

	if err := p.Del(ctx, "k"); err != nil {
		t.Fatalf("Del: %v", err)
	}
	if _, ok, _ := p.Get(ctx, "k"); ok {
		t.Fatalf("Get after Del should miss")
	}
}

func TestZeroRetentionPersists(t *testing.T) {
	ctx := context.Background()
	p, mr := newTestProvider(t)

	if ok, err := p.Set(ctx, "k", []byte("v"), 1, 0); err != nil || !ok {
		t.Fatalf("Set: ok=%v err=%v", ok, err)
	}
	// markers outlive any validity window: no TTL when retention <= 0
	if ttl := mr.TTL("k"); ttl != 0 {
		t.Fatalf("TTL = %v, want none", ttl)
	}
}

func TestRetentionExpires(t *testing.T) {
	ctx := context.Background()
	p, mr := newTestProvider(t)

	if ok, err := p.Set(ctx, "k", []byte("v"), 1, time.Minute); err != nil || !ok {
		t.Fatalf("Set: ok=%v err=%v", ok, err)
	}
	mr.FastForward(2 * time.Minute)
	if _, ok, _ := p.Get(ctx, "k"); ok {
		t.Fatalf("entry should have expired with retention")
	}
}

func TestNilClientRejected(t *testing.T) {
	if _, err := New(Config{}); err != ErrNilClient {
		t.Fatalf("err = %v, want ErrNilClient", err)
	}
}
