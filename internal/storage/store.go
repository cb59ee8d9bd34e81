// Package storage — хранилище уведомлений devstack.
// Реализации: redis.Client (REDIS_URL задан), memory.Client (по умолчанию).
package storage

import (
	"context"
	"errors"

	"github.com/cloudchat/internal/model"
)

var ErrNotFound = errors.New("notification not found")

type NotificationStore interface {
	Save(ctx context.Context, rec *model.NotificationRecord) error
	Get(ctx context.Context, notificationID string) (*model.NotificationRecord, error)
	// ListByUser возвращает уведомления пользователя, новые первыми.
	ListByUser(ctx context.Context, userID string) ([]model.NotificationRecord, error)
	Close() error
}
