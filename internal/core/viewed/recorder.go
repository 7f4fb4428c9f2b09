package viewed

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"

	"Collage/internal/core/collages"
	"Collage/internal/core/users"
	"Collage/internal/metrics"
)

// RecorderConfig sizes the asynchronous view recorder
type RecorderConfig struct {
	Workers    int
	QueueSize  int
	Timeout    time.Duration // per attempt
	MaxRetries uint64
	RetryBase  time.Duration
}

type viewJob struct {
	ctx      context.Context
	viewerID string
	ids      []string
}

// Recorder applies MarkViewed off the request path with a bounded worker pool.
// Record never blocks: when the queue is full the batch is dropped and those
// collages simply stay unseen until a later page returns them again.
type Recorder struct {
	service Service
	metrics metrics.Recorder
	logger  *slog.Logger
	queue   chan viewJob
	cfg     RecorderConfig

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewRecorder starts cfg.Workers goroutines draining the view queue
func NewRecorder(service Service, cfg RecorderConfig, m metrics.Recorder, logger *slog.Logger) *Recorder {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1024
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.RetryBase <= 0 {
		cfg.RetryBase = 100 * time.Millisecond
	}
	if m == nil {
		m = metrics.Nop{}
	}
	if logger == nil {
		logger = slog.Default()
	}

	r := &Recorder{
		service: service,
		metrics: m,
		logger:  logger,
		queue:   make(chan viewJob, cfg.QueueSize),
		cfg:     cfg,
	}
	for i := 0; i < cfg.Workers; i++ {
		r.wg.Add(1)
		go r.loop()
	}
	return r
}

// Record queues ids to be unioned into the viewer's viewed set.
// The request context is detached so that cancelling the request does not
// abort the write. Returns false if the batch was dropped.
func (r *Recorder) Record(ctx context.Context, viewerID string, ids []string) bool {
	if viewerID == "" || len(ids) == 0 {
		return true
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		r.metrics.RecordViewsDropped(len(ids))
		return false
	}

	job := viewJob{
		ctx:      context.WithoutCancel(ctx),
		viewerID: viewerID,
		ids:      append([]string(nil), ids...),
	}

	select {
	case r.queue <- job:
		r.metrics.RecordViewsQueued(len(ids))
		return true
	default:
		r.metrics.RecordViewsDropped(len(ids))
		r.logger.WarnContext(ctx, "view recorder queue full, dropping batch",
			"viewer", viewerID,
			"count", len(ids))
		return false
	}
}

// Close stops accepting new batches and waits for queued ones to finish
func (r *Recorder) Close(ctx context.Context) error {
	r.mu.Lock()
	if !r.closed {
		r.closed = true
		close(r.queue)
	}
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Recorder) loop() {
	defer r.wg.Done()
	for job := range r.queue {
		r.apply(job)
	}
}

func (r *Recorder) apply(job viewJob) {
	backoff := retry.WithMaxRetries(r.cfg.MaxRetries, retry.NewExponential(r.cfg.RetryBase))

	err := retry.Do(job.ctx, backoff, func(ctx context.Context) error {
		attemptCtx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
		defer cancel()

		err := r.service.MarkViewed(attemptCtx, job.viewerID, job.ids)
		if err == nil || isPermanent(err) {
			return err
		}
		return retry.RetryableError(err)
	})
	if err != nil {
		r.metrics.RecordViewsFailed(len(job.ids))
		r.logger.ErrorContext(job.ctx, "failed to record viewed collages",
			"viewer", job.viewerID,
			"count", len(job.ids),
			"error", err)
	}
}

// isPermanent reports errors that no retry can fix
func isPermanent(err error) bool {
	return errors.Is(err, ErrViewerRequired) ||
		IsBatchTooLarge(err) ||
		collages.IsInvalidID(err) ||
		users.IsInvalidID(err) ||
		users.IsNotFound(err)
}
