package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"sitebridge/internal/media"
	"sitebridge/internal/models"
	"sitebridge/internal/observability/metrics"
	"sitebridge/internal/storage"
)

type ImportProcessorConfig struct {
	Store     storage.Repository
	Importer  *media.Importer
	Contexts  ContextStore
	Workers   int
	QueueSize int
	Timeout   time.Duration
	Logger    *slog.Logger
	Metrics   *metrics.Recorder
}

// ImportProcessor runs image imports issued by the API handlers. Jobs are
// persisted in a ContextStore before they are queued; on completion the
// processor writes the stored file URL back onto the item field named by the
// job's import context.
type ImportProcessor struct {
	store    storage.Repository
	importer *media.Importer
	contexts ContextStore
	workers  int
	timeout  time.Duration
	logger   *slog.Logger
	metrics  *metrics.Recorder

	ctx    context.Context
	cancel context.CancelFunc

	queue chan string
	wg    sync.WaitGroup

	mu       sync.Mutex
	inFlight map[string]struct{}
	started  bool
}

const (
	defaultImportWorkers   = 2
	defaultImportQueueSize = 64
	defaultImportTimeout   = 5 * time.Minute
)

func NewImportProcessor(cfg ImportProcessorConfig) *ImportProcessor {
	workers := cfg.Workers
	if workers <= 0 {
		workers = defaultImportWorkers
	}
	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = defaultImportQueueSize
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultImportTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	recorder := cfg.Metrics
	if recorder == nil {
		recorder = metrics.Default()
	}
	contexts := cfg.Contexts
	if contexts == nil {
		contexts = NewMemoryContextStore()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &ImportProcessor{
		store:    cfg.Store,
		importer: cfg.Importer,
		contexts: contexts,
		workers:  workers,
		timeout:  timeout,
		logger:   logger,
		metrics:  recorder,
		ctx:      ctx,
		cancel:   cancel,
		queue:    make(chan string, queueSize),
		inFlight: make(map[string]struct{}),
	}
}

// Contexts exposes the backing store for health checks.
func (p *ImportProcessor) Contexts() ContextStore {
	if p == nil {
		return nil
	}
	return p.contexts
}

func (p *ImportProcessor) Start() {
	if p == nil {
		return
	}
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.mu.Unlock()

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}

	go p.recoverPending()
}

func (p *ImportProcessor) Shutdown(ctx context.Context) error {
	if p == nil {
		return nil
	}
	p.cancel()
	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// EnqueueImport persists the job's context and schedules it. The returned id
// identifies the pending import; the field write-back happens asynchronously.
func (p *ImportProcessor) EnqueueImport(ctx context.Context, job ImportJob) (string, error) {
	if p == nil {
		return "", fmt.Errorf("import processor unavailable")
	}
	if strings.TrimSpace(job.SourceURL) == "" {
		return "", fmt.Errorf("source URL is required")
	}
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}
	if err := p.contexts.Put(ctx, job); err != nil {
		return "", fmt.Errorf("persist import context: %w", err)
	}
	if err := p.enqueue(ctx, job.ID); err != nil {
		// The context stays persisted; recoverPending picks it up later.
		return "", fmt.Errorf("queue import: %w", err)
	}
	return job.ID, nil
}

// enqueue blocks while the queue is saturated. Caller cancellation aborts the
// wait; a stopped processor drops the id silently since the persisted context
// will be recovered on the next start.
func (p *ImportProcessor) enqueue(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	select {
	case <-p.ctx.Done():
		return nil
	default:
	}
	select {
	case p.queue <- id:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-p.ctx.Done():
		return nil
	}
}

func (p *ImportProcessor) worker() {
	defer p.wg.Done()
	for {
		select {
		case <-p.ctx.Done():
			return
		case id := <-p.queue:
			if strings.TrimSpace(id) == "" {
				continue
			}
			if !p.beginWork(id) {
				continue
			}
			p.processImport(id)
			p.finishWork(id)
		}
	}
}

func (p *ImportProcessor) beginWork(id string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, exists := p.inFlight[id]; exists {
		return false
	}
	p.inFlight[id] = struct{}{}
	return true
}

func (p *ImportProcessor) finishWork(id string) {
	p.mu.Lock()
	delete(p.inFlight, id)
	p.mu.Unlock()
}

func (p *ImportProcessor) recoverPending() {
	jobs, err := p.contexts.List(p.ctx)
	if err != nil {
		p.logger.Error("failed to list pending imports", "error", err)
		return
	}
	for _, job := range jobs {
		select {
		case <-p.ctx.Done():
			return
		default:
		}
		// Background context: recovery only stops when the processor does.
		_ = p.enqueue(context.Background(), job.ID)
	}
}

func (p *ImportProcessor) processImport(id string) {
	job, ok, err := p.contexts.Get(p.ctx, id)
	if err != nil {
		p.logger.Error("failed to load import context", "import_id", id, "error", err)
		return
	}
	if !ok {
		return
	}

	p.metrics.ImportJobStarted("single")
	ctx, cancel := context.WithTimeout(p.ctx, p.timeout)
	defer cancel()

	p.metrics.ObserveFetchAttempt(sourceHost(job.SourceURL))
	asset, err := p.importer.Import(ctx, media.ImportRequest{
		Folder:    job.Folder,
		FileName:  job.FileName,
		SourceURL: job.SourceURL,
	})
	if err != nil {
		p.metrics.ObserveFetchFailure(sourceHost(job.SourceURL))
		p.metrics.ImportJobFailed("single")
		p.logger.Error("image import failed", "import_id", id, "source_url", job.SourceURL, "error", err)
		p.discardContext(id)
		return
	}

	p.Complete(ctx, job.Context, models.FileInfo{
		FileURL:  asset.FileURL,
		FileName: asset.FileName,
		MediaID:  asset.ID,
	})
	p.metrics.ImportJobCompleted("single")
	p.discardContext(id)
}

func (p *ImportProcessor) discardContext(id string) {
	if err := p.contexts.Delete(p.ctx, id); err != nil {
		p.logger.Error("failed to delete import context", "import_id", id, "error", err)
	}
}

// Complete applies the field write-back for a finished import. It fires once
// per completed job with no retry: a missing context field or file URL drops
// the result, and fetch or persist failures are logged only. Replaying a
// completion overwrites the field again; the last write wins.
func (p *ImportProcessor) Complete(ctx context.Context, ic models.ImportContext, info models.FileInfo) {
	if ic.Empty() {
		// A job without correlation data has no field to write back.
		return
	}
	if ic.Collection == "" || ic.ItemID == "" || ic.Field == "" || strings.TrimSpace(info.FileURL) == "" {
		p.logger.Warn("dropping import completion with incomplete context",
			"collection", ic.Collection,
			"item_id", ic.ItemID,
			"field", ic.Field,
			"file_url", info.FileURL)
		return
	}
	if p.store == nil {
		p.logger.Error("import completion has no store", "collection", ic.Collection, "item_id", ic.ItemID)
		return
	}
	if _, err := p.store.UpdateItemFields(ic.Collection, ic.ItemID, map[string]any{ic.Field: info.FileURL}); err != nil {
		p.logger.Error("import write-back failed",
			"collection", ic.Collection,
			"item_id", ic.ItemID,
			"field", ic.Field,
			"error", err)
		return
	}
	p.logger.Info("import completed",
		"collection", ic.Collection,
		"item_id", ic.ItemID,
		"field", ic.Field,
		"media_id", info.MediaID,
		"file_url", info.FileURL)
}

func sourceHost(sourceURL string) string {
	parsed, err := url.Parse(sourceURL)
	if err != nil || parsed.Host == "" {
		return "unknown"
	}
	return parsed.Host
}
