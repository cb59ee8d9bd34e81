package startup

import (
	"context"
	"time"

	redisstorage "github.com/cloudchat/internal/storage/redis"
)

// ConnectRedisWithRetry подключается к Redis (хранилище уведомлений).
func ConnectRedisWithRetry(ctx context.Context, redisURL string, maxWait time.Duration) (*redisstorage.Client, error) {
	return retry(ctx, "redis connect", maxWait, func(ctx context.Context) (*redisstorage.Client, error) {
		return redisstorage.New(ctx, redisURL)
	})
}
