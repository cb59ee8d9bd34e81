// Package repository хранит пользователей и сообщения devstack: Postgres (pgx) или память.
package repository

import (
	"context"
	"errors"

	"github.com/cloudchat/internal/model"
)

var (
	ErrNotFound = errors.New("not found")
	ErrExists   = errors.New("already exists")
)

// MessageStore — хранилище сообщений чат-сервиса.
type MessageStore interface {
	// Create присваивает m.ID и сохраняет сообщение.
	Create(ctx context.Context, m *model.Message) error
	GetByID(ctx context.Context, id int64) (*model.Message, error)
	ListSent(ctx context.Context, author string) ([]model.Message, error)
	ListReceived(ctx context.Context, recipient string) ([]model.Message, error)
	MarkRead(ctx context.Context, id int64) error
}

// UserStore — учётные записи auth-сервиса.
type UserStore interface {
	// Create возвращает ErrExists, если имя занято.
	Create(ctx context.Context, u *model.User) error
	GetByUsername(ctx context.Context, username string) (*model.User, error)
}
