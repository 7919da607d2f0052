package event

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// StreamAdder is the slice of the redis client the stream publisher uses.
type StreamAdder interface {
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
}

// StreamPublisher appends events to a Redis stream for consumers outside
// this process, such as the service that performs approved transfers.
type StreamPublisher struct {
	client StreamAdder
	stream string
	maxLen int64
	logger *slog.Logger
}

func NewStreamPublisher(client StreamAdder, stream string, logger *slog.Logger) *StreamPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &StreamPublisher{
		client: client,
		stream: stream,
		maxLen: 10000,
		logger: logger,
	}
}

func (p *StreamPublisher) Publish(ctx context.Context, e Event) error {
	payload, err := json.Marshal(e.Payload)
	if err != nil {
		return fmt.Errorf("encode %s payload: %w", e.Type, err)
	}

	fields := map[string]any{
		"event_id":   e.ID,
		"event_type": string(e.Type),
		"subject_id": e.Subject,
		"timestamp":  e.Timestamp,
		"payload":    string(payload),
	}
	if e.ActorID > 0 {
		fields["actor_id"] = e.ActorID
	}

	id, err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		MaxLen: p.maxLen,
		Approx: true,
		Values: fields,
	}).Result()
	if err != nil {
		return fmt.Errorf("publish %s: %w", e.Type, err)
	}

	p.logger.DebugContext(ctx, "published event", "stream", p.stream, "stream_id", id, "type", e.Type, "subject_id", e.Subject)
	return nil
}

// NewRedisClient parses url and verifies the server answers.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}
