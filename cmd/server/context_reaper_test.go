package main

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"sitebridge/internal/api"
	"sitebridge/internal/models"
)

type manualTicker struct {
	c       chan time.Time
	stopped chan struct{}
}

func newManualTicker() *manualTicker {
	return &manualTicker{
		c:       make(chan time.Time, 1),
		stopped: make(chan struct{}),
	}
}

func (m *manualTicker) C() <-chan time.Time {
	return m.c
}

func (m *manualTicker) Stop() {
	select {
	case <-m.stopped:
		return
	default:
		close(m.stopped)
	}
}

func (m *manualTicker) Tick() {
	select {
	case m.c <- time.Now():
	default:
	}
}

func TestReapStaleContextsDeletesOnlyOldJobs(t *testing.T) {
	ctx := context.Background()
	contexts := api.NewMemoryContextStore()
	now := time.Now()

	stale := api.ImportJob{
		ID:        "stale",
		Context:   models.ImportContext{Collection: "products", ItemID: "item-1", Field: "image_main"},
		SourceURL: "https://example.com/a.png",
		CreatedAt: now.Add(-48 * time.Hour),
	}
	fresh := api.ImportJob{
		ID:        "fresh",
		Context:   models.ImportContext{Collection: "products", ItemID: "item-2", Field: "image_main"},
		SourceURL: "https://example.com/b.png",
		CreatedAt: now.Add(-time.Minute),
	}
	for _, job := range []api.ImportJob{stale, fresh} {
		if err := contexts.Put(ctx, job); err != nil {
			t.Fatalf("Put(%s): %v", job.ID, err)
		}
	}

	if err := reapStaleContexts(ctx, nil, contexts, 24*time.Hour, now); err != nil {
		t.Fatalf("reapStaleContexts: %v", err)
	}

	if _, ok, _ := contexts.Get(ctx, "stale"); ok {
		t.Fatal("expected stale context to be deleted")
	}
	if _, ok, _ := contexts.Get(ctx, "fresh"); !ok {
		t.Fatal("expected fresh context to survive")
	}
}

func TestReapStaleContextsKeepsJobsWithoutTimestamp(t *testing.T) {
	ctx := context.Background()
	contexts := api.NewMemoryContextStore()
	job := api.ImportJob{
		ID:        "no-timestamp",
		Context:   models.ImportContext{Collection: "products", ItemID: "item-1", Field: "image_main"},
		SourceURL: "https://example.com/a.png",
	}
	if err := contexts.Put(ctx, job); err != nil {
		t.Fatalf("Put: %v", err)
	}

	if err := reapStaleContexts(ctx, nil, contexts, time.Hour, time.Now()); err != nil {
		t.Fatalf("reapStaleContexts: %v", err)
	}

	if _, ok, _ := contexts.Get(ctx, "no-timestamp"); !ok {
		t.Fatal("expected job without timestamp to survive")
	}
}

func TestRunContextReaperWithTicker(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	contexts := api.NewMemoryContextStore()
	if err := contexts.Put(ctx, api.ImportJob{
		ID:        "stale",
		Context:   models.ImportContext{Collection: "products", ItemID: "item-1", Field: "image_main"},
		SourceURL: "https://example.com/a.png",
		CreatedAt: time.Now().Add(-2 * time.Hour),
	}); err != nil {
		t.Fatalf("Put: %v", err)
	}

	ticker := newManualTicker()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	done := make(chan struct{})
	go func() {
		runContextReaperWithTicker(ctx, logger, contexts, time.Hour, time.Minute, func(time.Duration) reapTicker {
			return ticker
		})
		close(done)
	}()

	ticker.Tick()
	deadline := time.After(time.Second)
	for {
		if _, ok, _ := contexts.Get(context.Background(), "stale"); !ok {
			break
		}
		select {
		case <-deadline:
			t.Fatal("expected stale context to be reaped after tick")
		case <-time.After(10 * time.Millisecond):
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("expected reaper to exit after context cancellation")
	}

	select {
	case <-ticker.stopped:
	case <-time.After(time.Second):
		t.Fatal("expected ticker to stop on shutdown")
	}
}

func TestRunContextReaperDisabledWhenMaxAgeZero(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		runContextReaperWithTicker(ctx, nil, api.NewMemoryContextStore(), 0, time.Minute, func(time.Duration) reapTicker {
			t.Error("ticker should not be created when reaping is disabled")
			return newManualTicker()
		})
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("expected disabled reaper to exit with context")
	}
}
