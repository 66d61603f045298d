package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/yigit/unihousing/internal/app/models"
)

// DefaultStream is the Redis stream audit logs are published to.
const DefaultStream = "housing:audit"

// RedisSink publishes audit logs to a Redis stream with XADD.
type RedisSink struct {
	client *redis.Client
	stream string
	maxLen int64
}

// NewRedisClient connects to Redis and verifies the connection.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}

// NewRedisSink creates a sink on stream. The stream is trimmed to roughly
// maxLen entries; zero keeps everything.
func NewRedisSink(client *redis.Client, stream string, maxLen int64) *RedisSink {
	if stream == "" {
		stream = DefaultStream
	}
	return &RedisSink{client: client, stream: stream, maxLen: maxLen}
}

// Name implements Sink.
func (s *RedisSink) Name() string { return "redis" }

// Publish implements Sink.
func (s *RedisSink) Publish(ctx context.Context, l *models.Log) error {
	metadata, err := json.Marshal(l.Metadata)
	if err != nil {
		return fmt.Errorf("failed to encode audit metadata: %w", err)
	}
	return s.client.XAdd(ctx, &redis.XAddArgs{
		Stream: s.stream,
		MaxLen: s.maxLen,
		Approx: s.maxLen > 0,
		Values: map[string]interface{}{
			"id":          l.ID,
			"action":      string(l.Action),
			"userId":      l.UserID,
			"entityType":  l.EntityType,
			"entityId":    l.EntityID,
			"description": l.Description,
			"metadata":    string(metadata),
			"createdAt":   l.CreatedAt.Format(time.RFC3339Nano),
		},
	}).Err()
}
