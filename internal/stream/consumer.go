// Package stream consumes the interaction event stream that keeps follows,
// reposts, likes, saves and archive flags current.
package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sethvargo/go-retry"

	"Collage/internal/core/interactions"
	"Collage/internal/metrics"
)

const (
	defaultApplyRetries = 5
	defaultRetryBase    = 200 * time.Millisecond
)

// Consumer decodes stream messages and applies them as interaction events
type Consumer struct {
	service    interactions.Service
	metrics    metrics.Recorder
	logger     *slog.Logger
	maxRetries uint64
	retryBase  time.Duration
}

// NewConsumer creates a consumer applying events through service
func NewConsumer(service interactions.Service, m metrics.Recorder, logger *slog.Logger) *Consumer {
	if m == nil {
		m = metrics.Nop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Consumer{
		service:    service,
		metrics:    m,
		logger:     logger,
		maxRetries: defaultApplyRetries,
		retryBase:  defaultRetryBase,
	}
}

// HandleMessage processes one raw stream message.
// Malformed or rejected events are logged and skipped with a nil error.
// Storage failures are retried with backoff; Apply is idempotent so a retry
// after a partial failure is safe. The error is returned once retries run out.
func (c *Consumer) HandleMessage(ctx context.Context, message []byte) error {
	var event interactions.Event
	if err := json.Unmarshal(message, &event); err != nil {
		c.metrics.RecordInteractionEvent("unknown", false)
		c.logger.WarnContext(ctx, "failed to parse interaction event", "error", err)
		return nil
	}

	backoff := retry.WithMaxRetries(c.maxRetries, retry.NewExponential(c.retryBase))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := c.service.Apply(ctx, &event)
		if err == nil || isRejected(err) {
			return err
		}
		c.logger.WarnContext(ctx, "retrying interaction event",
			"kind", event.Kind,
			"actor", event.Actor,
			"error", err)
		return retry.RetryableError(err)
	})
	if err != nil {
		c.metrics.RecordInteractionEvent(string(event.Kind), false)
		if isRejected(err) {
			c.logger.WarnContext(ctx, "rejecting interaction event",
				"kind", event.Kind,
				"actor", event.Actor,
				"error", err)
			return nil
		}
		return fmt.Errorf("failed to apply %s event: %w", event.Kind, err)
	}

	c.metrics.RecordInteractionEvent(string(event.Kind), true)
	return nil
}

// isRejected reports events the service refused; retrying cannot change that
func isRejected(err error) bool {
	return interactions.IsInvalidEvent(err) || errors.Is(err, interactions.ErrNotAuthor)
}
