package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cloudchat/internal/logger"
	"github.com/cloudchat/internal/model"
)

const messageCols = `id, author_username, recipient_username, content, file_id, is_read`

type MessageRepository struct {
	pool *pgxpool.Pool
}

func NewMessageRepository(pool *pgxpool.Pool) *MessageRepository {
	return &MessageRepository{pool: pool}
}

func scanMessage(s interface{ Scan(dest ...any) error }, m *model.Message) error {
	return s.Scan(&m.ID, &m.AuthorUsername, &m.RecipientUsername, &m.Content, &m.FileID, &m.Read)
}

func (r *MessageRepository) Create(ctx context.Context, m *model.Message) error {
	defer logger.DeferLogDuration("msg.Create", time.Now())()
	err := r.pool.QueryRow(ctx,
		`INSERT INTO messages (author_username, recipient_username, content, file_id, is_read)
		 VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		m.AuthorUsername, m.RecipientUsername, m.Content, m.FileID, m.Read,
	).Scan(&m.ID)
	if err != nil {
		return fmt.Errorf("msgRepo.Create: %w", err)
	}
	return nil
}

func (r *MessageRepository) GetByID(ctx context.Context, id int64) (*model.Message, error) {
	defer logger.DeferLogDuration("msg.GetByID", time.Now())()
	m := &model.Message{}
	row := r.pool.QueryRow(ctx, `SELECT `+messageCols+` FROM messages WHERE id = $1`, id)
	if err := scanMessage(row, m); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("msgRepo.GetByID: %w", err)
	}
	return m, nil
}

func (r *MessageRepository) ListSent(ctx context.Context, author string) ([]model.Message, error) {
	defer logger.DeferLogDuration("msg.ListSent", time.Now())()
	return r.list(ctx, "msgRepo.ListSent", `SELECT `+messageCols+` FROM messages WHERE author_username = $1 ORDER BY id DESC`, author)
}

func (r *MessageRepository) ListReceived(ctx context.Context, recipient string) ([]model.Message, error) {
	defer logger.DeferLogDuration("msg.ListReceived", time.Now())()
	return r.list(ctx, "msgRepo.ListReceived", `SELECT `+messageCols+` FROM messages WHERE recipient_username = $1 ORDER BY id DESC`, recipient)
}

func (r *MessageRepository) list(ctx context.Context, op, query string, arg string) ([]model.Message, error) {
	rows, err := r.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("%s query: %w", op, err)
	}
	defer rows.Close()

	messages := make([]model.Message, 0)
	for rows.Next() {
		var m model.Message
		if err := scanMessage(rows, &m); err != nil {
			return nil, fmt.Errorf("%s scan: %w", op, err)
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s rows: %w", op, err)
	}
	return messages, nil
}

func (r *MessageRepository) MarkRead(ctx context.Context, id int64) error {
	defer logger.DeferLogDuration("msg.MarkRead", time.Now())()
	tag, err := r.pool.Exec(ctx, `UPDATE messages SET is_read = true WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("msgRepo.MarkRead: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
