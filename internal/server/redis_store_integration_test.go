package server

import (
	"context"
	"testing"
	"time"

	"sitebridge/internal/testsupport/redisstub"
)

func TestRedisStoreAllowCountsWithinWindow(t *testing.T) {
	srv, err := redisstub.Start(redisstub.Options{Password: "secret"})
	if err != nil {
		t.Fatalf("start redis stub: %v", err)
	}
	t.Cleanup(func() {
		_ = srv.Close()
	})

	store := newRedisStore(srv.Addr(), "secret", time.Second)
	t.Cleanup(func() {
		_ = store.Close()
	})

	ctx := context.Background()
	allowed, retry, err := store.Allow(ctx, "ratelimit:test", 2, time.Minute)
	if err != nil || !allowed || retry != 0 {
		t.Fatalf("first allow unexpected: allowed=%v retry=%v err=%v", allowed, retry, err)
	}
	allowed, _, err = store.Allow(ctx, "ratelimit:test", 2, time.Minute)
	if err != nil || !allowed {
		t.Fatalf("second allow unexpected: allowed=%v err=%v", allowed, err)
	}
	allowed, retry, err = store.Allow(ctx, "ratelimit:test", 2, time.Minute)
	if err != nil {
		t.Fatalf("third allow err: %v", err)
	}
	if allowed {
		t.Fatal("expected throttle on third attempt")
	}
	if retry < 0 {
		t.Fatalf("expected non-negative retry, got %v", retry)
	}

	allowed, _, err = store.Allow(ctx, "ratelimit:other", 2, time.Minute)
	if err != nil || !allowed {
		t.Fatalf("expected separate key to pass: allowed=%v err=%v", allowed, err)
	}
}
