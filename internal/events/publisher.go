// Package events publishes entity alerts to a Redis stream.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cheroliv/blogger/internal/metrics"
	"github.com/cheroliv/blogger/internal/model"
)

const (
	// StreamKey is the Redis stream for entity alerts.
	StreamKey = "stream:entity_alerts"

	// DeadLetterStreamKey is the Redis stream for poison messages.
	DeadLetterStreamKey = "stream:entity_alerts:dlq"

	// MaxStreamLen is the approximate max length of the stream.
	MaxStreamLen = 100000

	// PublishTimeout is the max time to wait for Redis publish.
	PublishTimeout = 100 * time.Millisecond
)

// Publisher enqueues entity alerts to the Redis stream.
type Publisher struct {
	redis   *redis.Client
	logger  *slog.Logger
	metrics metrics.Recorder
}

// NewPublisher creates a new alert publisher.
func NewPublisher(client *redis.Client, logger *slog.Logger, recorder metrics.Recorder) *Publisher {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &Publisher{
		redis:   client,
		logger:  logger.With("component", "events.publisher"),
		metrics: recorder,
	}
}

// Publish adds an alert payload to the stream synchronously.
func (p *Publisher) Publish(ctx context.Context, payload AlertPayload) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal alert: %w", err)
	}

	result, err := p.redis.XAdd(ctx, &redis.XAddArgs{
		Stream: StreamKey,
		MaxLen: MaxStreamLen,
		Approx: true,
		ID:     "*",
		Values: map[string]interface{}{
			"payload": string(data),
		},
	}).Result()
	if err != nil {
		return "", fmt.Errorf("xadd: %w", err)
	}

	return result, nil
}

// PublishAsync publishes without blocking the caller.
// Errors are logged but not returned (fire-and-forget).
func (p *Publisher) PublishAsync(alert model.Alert) {
	payload := NewAlertPayload(alert)

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), PublishTimeout)
		defer cancel()

		streamID, err := p.Publish(ctx, payload)
		if err != nil {
			p.logger.Warn("failed to publish entity alert",
				"entity", payload.EntityName,
				"entity_id", payload.EntityID,
				"error", err,
			)
			p.metrics.IncAlertPublished("dropped")
			return
		}

		p.logger.Debug("entity alert published",
			"event_id", payload.EventID,
			"stream_id", streamID,
		)
		p.metrics.IncAlertPublished("success")
	}()
}
