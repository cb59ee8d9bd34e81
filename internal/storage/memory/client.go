package memory

import (
	"context"
	"sync"

	"github.com/cloudchat/internal/model"
	"github.com/cloudchat/internal/storage"
)

type Client struct {
	mu     sync.RWMutex
	byID   map[string]model.NotificationRecord
	byUser map[string][]string
}

func New() *Client {
	return &Client{
		byID:   make(map[string]model.NotificationRecord),
		byUser: make(map[string][]string),
	}
}

func (c *Client) Close() error { return nil }

func clone(rec model.NotificationRecord) model.NotificationRecord {
	if rec.RelatedEntityID != nil {
		rec.RelatedEntityID = model.StringPtr(*rec.RelatedEntityID)
	}
	return rec
}

// Save создаёт или заменяет запись.
func (c *Client) Save(_ context.Context, rec *model.NotificationRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.byID[rec.NotificationID]; !ok {
		c.byUser[rec.UserID] = append(c.byUser[rec.UserID], rec.NotificationID)
	}
	c.byID[rec.NotificationID] = clone(*rec)
	return nil
}

func (c *Client) Get(_ context.Context, notificationID string) (*model.NotificationRecord, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	rec, ok := c.byID[notificationID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	rec = clone(rec)
	return &rec, nil
}

func (c *Client) ListByUser(_ context.Context, userID string) ([]model.NotificationRecord, error) {
	c.mu.RLock()
	ids := c.byUser[userID]
	out := make([]model.NotificationRecord, 0, len(ids))
	for _, id := range ids {
		out = append(out, clone(c.byID[id]))
	}
	c.mu.RUnlock()
	model.SortByTimestampDesc(out)
	return out, nil
}
