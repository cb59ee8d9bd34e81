// Package inbox — списки отправленных и полученных сообщений, отправка с вложением.
package inbox

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/cloudchat/internal/logger"
	"github.com/cloudchat/internal/model"
	"github.com/cloudchat/internal/state"
)

// ErrEmptyDraft — нет ни текста, ни вложения.
var ErrEmptyDraft = errors.New("message has no content")

// ChatAPI — вызовы чат-сервиса, нужные списку сообщений.
type ChatAPI interface {
	Sent(ctx context.Context, token, username string) ([]model.Message, error)
	Received(ctx context.Context, token, username string) ([]model.Message, error)
	Send(ctx context.Context, token string, msg model.SendMessageRequest) (*model.Message, error)
	MarkAsRead(ctx context.Context, token string, messageID int64) error
}

// FileAPI — вызовы файлового сервиса.
type FileAPI interface {
	Upload(ctx context.Context, token, filename string, r io.Reader) (*model.FileMetadata, error)
	UploadFile(ctx context.Context, token, path string) (*model.FileMetadata, error)
	Download(ctx context.Context, token, fileID string, w io.Writer) (int64, error)
	DownloadURL(fileID string) string
}

// Draft — форма отправки. Вложение задаётся путём (FilePath) или потоком (File + FileName).
type Draft struct {
	Recipient string
	Content   string
	FilePath  string
	File      io.Reader
	FileName  string
}

func (d *Draft) hasFile() bool {
	return d.FilePath != "" || d.File != nil
}

// Inbox загружает списки сообщений и хранит их в state.Store.
type Inbox struct {
	chat  ChatAPI
	files FileAPI
	store *state.Store
}

func New(chat ChatAPI, files FileAPI, store *state.Store) *Inbox {
	return &Inbox{chat: chat, files: files, store: store}
}

// Refresh загружает оба списка и сортирует их по убыванию id.
// Ошибка одного списка не мешает обновить другой; прежний список при ошибке остаётся.
func (in *Inbox) Refresh(ctx context.Context) error {
	sess, epoch, err := in.store.RequireSession()
	if err != nil {
		return err
	}
	var errs []error

	sent, err := in.chat.Sent(ctx, sess.Token, sess.Username)
	if err != nil {
		logger.Errorf("inbox: fetch sent messages: %v", err)
		errs = append(errs, err)
	} else {
		model.SortByIDDesc(sent)
		in.store.Dispatch(state.SentLoaded{Epoch: epoch, Messages: sent})
	}

	received, err := in.chat.Received(ctx, sess.Token, sess.Username)
	if err != nil {
		logger.Errorf("inbox: fetch received messages: %v", err)
		errs = append(errs, err)
	} else {
		model.SortByIDDesc(received)
		in.store.Dispatch(state.ReceivedLoaded{Epoch: epoch, Messages: received})
	}
	return errors.Join(errs...)
}

// Send загружает вложение (если есть), отправляет сообщение и перечитывает списки.
// Ошибка загрузки файла прерывает отправку.
func (in *Inbox) Send(ctx context.Context, d Draft) (*model.Message, error) {
	sess, _, err := in.store.RequireSession()
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(d.Content) == "" && !d.hasFile() {
		return nil, ErrEmptyDraft
	}

	var fileID *string
	if d.hasFile() {
		meta, err := in.upload(ctx, sess.Token, d)
		if err != nil {
			logger.Errorf("inbox: upload attachment: %v", err)
			return nil, fmt.Errorf("upload file: %w", err)
		}
		fileID = model.StringPtr(meta.FileID)
	}

	saved, err := in.chat.Send(ctx, sess.Token, model.SendMessageRequest{
		Author:    sess.Username,
		Content:   d.Content,
		Recipient: d.Recipient,
		FileID:    fileID,
	})
	if err != nil {
		logger.Errorf("inbox: send message: %v", err)
		return nil, fmt.Errorf("send message: %w", err)
	}
	logger.Infof("inbox: message %d sent to %q", saved.ID, d.Recipient)

	if err := in.Refresh(ctx); err != nil {
		logger.Errorf("inbox: refresh after send: %v", err)
	}
	return saved, nil
}

func (in *Inbox) upload(ctx context.Context, token string, d Draft) (*model.FileMetadata, error) {
	if d.File != nil {
		name := d.FileName
		if name == "" {
			name = "attachment"
		}
		return in.files.Upload(ctx, token, name, d.File)
	}
	return in.files.UploadFile(ctx, token, d.FilePath)
}

// MarkRead вызывает mark-as-read чат-сервиса и отражает результат в кеше.
// Локальный флаг read не проверяется, это решает вызывающий.
func (in *Inbox) MarkRead(ctx context.Context, messageID int64) error {
	sess, _, err := in.store.RequireSession()
	if err != nil {
		return err
	}
	if err := in.chat.MarkAsRead(ctx, sess.Token, messageID); err != nil {
		return err
	}
	in.store.Dispatch(state.MessageRead{ID: messageID})
	return nil
}

// IsRead сообщает, помечено ли полученное сообщение прочитанным в кеше.
// Для сообщения вне кеша возвращает false.
func (in *Inbox) IsRead(messageID int64) bool {
	m, ok := in.store.ReceivedMessage(messageID)
	return ok && m.Read
}

// Click снимает подсветку (клик по карточке сообщения).
func (in *Inbox) Click(messageID int64) {
	logger.Debugf("inbox: message card %d clicked", messageID)
	in.store.Dispatch(state.HighlightCleared{})
}

// DownloadURL возвращает ссылку на вложение.
func (in *Inbox) DownloadURL(fileID string) string {
	return in.files.DownloadURL(fileID)
}

// Download сохраняет вложение в w.
func (in *Inbox) Download(ctx context.Context, fileID string, w io.Writer) (int64, error) {
	sess, _, err := in.store.RequireSession()
	if err != nil {
		return 0, err
	}
	return in.files.Download(ctx, sess.Token, fileID, w)
}
