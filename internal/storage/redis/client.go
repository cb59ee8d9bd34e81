package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/cloudchat/internal/model"
	"github.com/cloudchat/internal/storage"
)

// Запись хранится строкой JSON по notification:{id};
// notifications:{user} — sorted set id по timestamp.
const (
	recordPrefix = "notification:"
	userPrefix   = "notifications:"
)

type Client struct {
	cli *redis.Client
}

func New(ctx context.Context, url string) (*Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis parse url: %w", err)
	}
	cli := redis.NewClient(opts)
	if err := cli.Ping(ctx).Err(); err != nil {
		if closeErr := cli.Close(); closeErr != nil {
			return nil, fmt.Errorf("redis ping: %w (close: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &Client{cli: cli}, nil
}

func (c *Client) Close() error {
	return c.cli.Close()
}

func (c *Client) Save(ctx context.Context, rec *model.NotificationRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("redis save %s: %w", rec.NotificationID, err)
	}
	_, err = c.cli.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, recordPrefix+rec.NotificationID, data, 0)
		p.ZAdd(ctx, userPrefix+rec.UserID, redis.Z{Score: float64(rec.Timestamp), Member: rec.NotificationID})
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis save %s: %w", rec.NotificationID, err)
	}
	return nil
}

func (c *Client) Get(ctx context.Context, notificationID string) (*model.NotificationRecord, error) {
	val, err := c.cli.Get(ctx, recordPrefix+notificationID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", notificationID, err)
	}
	var rec model.NotificationRecord
	if err := json.Unmarshal(val, &rec); err != nil {
		return nil, fmt.Errorf("redis decode %s: %w", notificationID, err)
	}
	return &rec, nil
}

func (c *Client) ListByUser(ctx context.Context, userID string) ([]model.NotificationRecord, error) {
	ids, err := c.cli.ZRevRange(ctx, userPrefix+userID, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis list %s: %w", userID, err)
	}
	out := make([]model.NotificationRecord, 0, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = recordPrefix + id
	}
	vals, err := c.cli.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis list %s: %w", userID, err)
	}
	for i, v := range vals {
		s, ok := v.(string)
		if !ok {
			continue // индекс пережил запись
		}
		var rec model.NotificationRecord
		if err := json.Unmarshal([]byte(s), &rec); err != nil {
			return nil, fmt.Errorf("redis decode %s: %w", ids[i], err)
		}
		out = append(out, rec)
	}
	return out, nil
}

// FlushDB очищает текущую БД Redis (сброс devstack).
func (c *Client) FlushDB(ctx context.Context) error {
	return c.cli.FlushDB(ctx).Err()
}
