package chat

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const replyCachePrefix = "chat:reply:"

// ReplyCache stores sanitized gateway replies for history-free questions.
type ReplyCache struct {
	redis  *redis.Client
	ttl    time.Duration
	tracer trace.Tracer
}

// NewReplyCache wraps a Redis client. A nil client or non-positive ttl
// returns nil, which the engine treats as caching disabled.
func NewReplyCache(client *redis.Client, ttl time.Duration) *ReplyCache {
	if client == nil || ttl <= 0 {
		return nil
	}
	return &ReplyCache{
		redis:  client,
		ttl:    ttl,
		tracer: otel.Tracer("lakeside.internal.chat.cache"),
	}
}

// Get returns the cached reply. Stored payloads are sanitized again on read.
func (c *ReplyCache) Get(ctx context.Context, pathname, normalized string) (Reply, error) {
	ctx, span := c.tracer.Start(ctx, "chat.cache.get")
	defer span.End()

	data, err := c.redis.Get(ctx, replyCacheKey(pathname, normalized)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Reply{}, ErrCacheMiss
		}
		span.RecordError(err)
		return Reply{}, fmt.Errorf("chat: load cached reply: %w", err)
	}
	reply, ok := Sanitize(RawReply(data))
	if !ok {
		return Reply{}, ErrCacheMiss
	}
	return reply, nil
}

// Set stores reply for the configured ttl.
func (c *ReplyCache) Set(ctx context.Context, pathname, normalized string, reply Reply) error {
	ctx, span := c.tracer.Start(ctx, "chat.cache.set")
	defer span.End()

	data, err := json.Marshal(reply)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("chat: encode cached reply: %w", err)
	}
	if err := c.redis.Set(ctx, replyCacheKey(pathname, normalized), data, c.ttl).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("chat: store cached reply: %w", err)
	}
	return nil
}

func replyCacheKey(pathname, normalized string) string {
	sum := sha256.Sum256([]byte(pathname + "|" + normalized))
	return replyCachePrefix + hex.EncodeToString(sum[:])
}
