package valkey

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/valkey-io/valkey-go"
)

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c, err := NewWithOptions(valkey.ClientOption{
		InitAddress:  []string{mr.Addr()},
		DisableCache: true,
	})
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(c.Close)
	return c, mr
}

func TestCache_SetGetDelete(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	if err := c.Set(ctx, "locations:id:L1", []byte(`{"id":"L1"}`), 60); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, err := c.Get(ctx, "locations:id:L1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(got) != `{"id":"L1"}` {
		t.Errorf("got %q", got)
	}

	if err := c.Delete(ctx, "locations:id:L1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := c.Get(ctx, "locations:id:L1"); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("after delete err = %v, want ErrCacheMiss", err)
	}
}

func TestCache_TTLExpires(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	if err := c.Set(ctx, "search:v1:k", []byte("x"), 30); err != nil {
		t.Fatalf("set: %v", err)
	}
	if ttl := mr.TTL("search:v1:k"); ttl != 30*time.Second {
		t.Errorf("ttl = %v", ttl)
	}
	mr.FastForward(31 * time.Second)
	if _, err := c.Get(ctx, "search:v1:k"); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("err = %v, want ErrCacheMiss", err)
	}
}

func TestCache_Ping(t *testing.T) {
	c, _ := newTestCache(t)
	if err := c.Ping(context.Background()); err != nil {
		t.Errorf("ping: %v", err)
	}
}
