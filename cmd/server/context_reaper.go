package main

import (
	"context"
	"log/slog"
	"time"

	"sitebridge/internal/api"
)

type reapTicker interface {
	C() <-chan time.Time
	Stop()
}

type timeTicker struct {
	ticker *time.Ticker
}

func (t timeTicker) C() <-chan time.Time {
	return t.ticker.C
}

func (t timeTicker) Stop() {
	t.ticker.Stop()
}

type tickerFactory func(time.Duration) reapTicker

// runContextReaper deletes import contexts that have been pending longer than
// maxAge. Contexts normally disappear when the upload callback completes; ones
// this old belong to uploads that will never finish. Blocks until ctx is done.
func runContextReaper(ctx context.Context, logger *slog.Logger, contexts api.ContextStore, maxAge, interval time.Duration) {
	runContextReaperWithTicker(ctx, logger, contexts, maxAge, interval, func(d time.Duration) reapTicker {
		return timeTicker{ticker: time.NewTicker(d)}
	})
}

func runContextReaperWithTicker(
	ctx context.Context,
	logger *slog.Logger,
	contexts api.ContextStore,
	maxAge time.Duration,
	interval time.Duration,
	newTicker tickerFactory,
) {
	if contexts == nil || maxAge <= 0 || interval <= 0 {
		<-ctx.Done()
		return
	}
	ticker := newTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			if err := reapStaleContexts(ctx, logger, contexts, maxAge, time.Now()); err != nil && logger != nil {
				logger.Error("failed to reap stale import contexts", "error", err)
			}
		}
	}
}

func reapStaleContexts(ctx context.Context, logger *slog.Logger, contexts api.ContextStore, maxAge time.Duration, now time.Time) error {
	jobs, err := contexts.List(ctx)
	if err != nil {
		return err
	}
	cutoff := now.Add(-maxAge)
	reaped := 0
	for _, job := range jobs {
		if job.CreatedAt.IsZero() || !job.CreatedAt.Before(cutoff) {
			continue
		}
		if err := contexts.Delete(ctx, job.ID); err != nil {
			return err
		}
		reaped++
	}
	if reaped > 0 && logger != nil {
		logger.Info("reaped stale import contexts", "count", reaped, "max_age", maxAge.String())
	}
	return nil
}
