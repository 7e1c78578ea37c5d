package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisSink appends audit records to a Redis Stream. Streams are append-only,
// which matches the trail's immutability policy, and XRANGE gives operators a
// cheap live tail without touching the primary database.
type RedisSink struct {
	client *redis.Client
	stream string
	maxLen int64
}

// NewRedisSink constructs a stream-backed sink. maxLen caps the stream with
// approximate trimming; zero means unbounded.
func NewRedisSink(client *redis.Client, stream string, maxLen int64) *RedisSink {
	return &RedisSink{client: client, stream: stream, maxLen: maxLen}
}

var _ Sink = (*RedisSink)(nil)

func (s *RedisSink) Create(ctx context.Context, rec Record) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode audit record: %w", err)
	}
	args := &redis.XAddArgs{
		Stream: s.stream,
		Values: map[string]any{
			"record":      payload,
			"action":      string(rec.Action),
			"entity_type": string(rec.EntityType),
			"entity_id":   rec.EntityID,
		},
	}
	if s.maxLen > 0 {
		args.MaxLen = s.maxLen
		args.Approx = true
	}
	if err := s.client.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("append audit record to stream: %w", err)
	}
	return nil
}
