package workers

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisQueue enqueues presentation jobs onto the worker pool's stream.
type RedisQueue struct {
	Redis  *redis.Client
	Stream string
}

func NewRedisQueue(rdb *redis.Client, stream string) *RedisQueue {
	if stream == "" {
		stream = DefaultStream
	}
	return &RedisQueue{Redis: rdb, Stream: stream}
}

func (q *RedisQueue) Enqueue(ctx context.Context, presentationID, sourceBlobID string) error {
	return q.Redis.XAdd(ctx, &redis.XAddArgs{
		Stream: q.Stream,
		Values: map[string]any{
			"presentation_id": presentationID,
			"source_blob_id":  sourceBlobID,
			"ts_unix":         strconv.FormatInt(time.Now().UTC().Unix(), 10),
		},
	}).Err()
}
