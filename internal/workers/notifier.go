package workers

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
)

// RedisNotifier publishes stage updates to the presentation's status
// channel, where the websocket handler forwards them to connected clients.
// Publishing is best-effort; the record store remains the source of truth.
type RedisNotifier struct {
	Redis *redis.Client
}

func StatusChannel(presentationID string) string {
	return "presentation:" + presentationID + ":status"
}

func (n *RedisNotifier) Notify(ctx context.Context, presentationID, status, stage string, progress int) {
	payload, _ := json.Marshal(map[string]any{
		"type":     "status",
		"status":   status,
		"stage":    stage,
		"progress": progress,
	})
	_ = n.Redis.Publish(ctx, StatusChannel(presentationID), string(payload)).Err()
}
