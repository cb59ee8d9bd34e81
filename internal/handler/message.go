package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"

	"github.com/cloudchat/internal/logger"
	"github.com/cloudchat/internal/middleware"
	"github.com/cloudchat/internal/model"
	"github.com/cloudchat/internal/repository"
)

const (
	maxMessageBody = 1 << 20
	previewRunes   = 30
)

// Notifier сохраняет уведомление для получателя сообщения.
type Notifier interface {
	Notify(ctx context.Context, req SendRequest) (*model.NotificationRecord, error)
}

type MessageHandler struct {
	messages repository.MessageStore
	notifier Notifier
}

func NewMessageHandler(messages repository.MessageStore, notifier Notifier) *MessageHandler {
	return &MessageHandler{messages: messages, notifier: notifier}
}

// listUser берёт username из query (по умолчанию владелец токена). Чужие списки запрещены.
func listUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	caller := middleware.GetUsername(r.Context())
	user := strings.TrimSpace(r.URL.Query().Get("username"))
	if user == "" {
		user = caller
	}
	if user != caller {
		writeError(w, http.StatusForbidden, "cannot list messages of another user")
		return "", false
	}
	return user, true
}

// Sent: GET /sent?username=.
func (h *MessageHandler) Sent(w http.ResponseWriter, r *http.Request) {
	user, ok := listUser(w, r)
	if !ok {
		return
	}
	msgs, err := h.messages.ListSent(r.Context(), user)
	if err != nil {
		logger.Errorf("chat: sent %s: %v", user, err)
		writeError(w, http.StatusInternalServerError, "failed to load messages")
		return
	}
	writeJSON(w, http.StatusOK, msgs)
}

// Received: GET /received?username=.
func (h *MessageHandler) Received(w http.ResponseWriter, r *http.Request) {
	user, ok := listUser(w, r)
	if !ok {
		return
	}
	msgs, err := h.messages.ListReceived(r.Context(), user)
	if err != nil {
		logger.Errorf("chat: received %s: %v", user, err)
		writeError(w, http.StatusInternalServerError, "failed to load messages")
		return
	}
	writeJSON(w, http.StatusOK, msgs)
}

// Create: POST /. Автор берётся из токена. Получатель (не сам автор) получает уведомление.
func (h *MessageHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req model.SendMessageRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxMessageBody)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	author := middleware.GetUsername(r.Context())
	msg := &model.Message{AuthorUsername: author, Content: req.Content}
	if rcpt := strings.TrimSpace(req.Recipient); rcpt != "" {
		msg.RecipientUsername = model.StringPtr(rcpt)
	}
	if req.FileID != nil && *req.FileID != "" {
		msg.FileID = model.StringPtr(*req.FileID)
	}
	if err := h.messages.Create(r.Context(), msg); err != nil {
		logger.Errorf("chat: create: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to save message")
		return
	}
	logger.Infof("chat: message %d saved (%s -> %q)", msg.ID, author, msg.Recipient())

	if rcpt := msg.Recipient(); rcpt != "" && rcpt != author && h.notifier != nil {
		if _, err := h.notifier.Notify(r.Context(), newMessageNotification(msg)); err != nil {
			logger.Errorf("chat: notify %s about %d: %v", rcpt, msg.ID, err)
		}
	}
	writeJSON(w, http.StatusOK, msg)
}

func newMessageNotification(m *model.Message) SendRequest {
	typ := model.NotificationNewMessage
	body := m.AuthorUsername + " sent you a message: \""
	if m.HasFile() {
		typ = model.NotificationNewMessageWithFile
		body = m.AuthorUsername + " sent you a message with a file: \""
	}
	return SendRequest{
		TargetUserID:    m.Recipient(),
		Type:            typ,
		Subject:         "New message from " + m.AuthorUsername,
		Message:         body + preview(m.Content) + "\"",
		RelatedEntityID: strconv.FormatInt(m.ID, 10),
	}
}

func preview(s string) string {
	if utf8.RuneCountInString(s) <= previewRunes {
		return s
	}
	return string([]rune(s)[:previewRunes-3]) + "..."
}

// MarkAsRead: POST /{messageId}/mark-as-read. 404, если сообщения нет; 403, если вызывающий не получатель.
// Повторная отметка возвращает 200 без изменений.
func (h *MessageHandler) MarkAsRead(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "messageId"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid message id")
		return
	}
	msg, err := h.messages.GetByID(r.Context(), id)
	if errors.Is(err, repository.ErrNotFound) {
		writeError(w, http.StatusNotFound, "message not found")
		return
	}
	if err != nil {
		logger.Errorf("chat: get %d: %v", id, err)
		writeError(w, http.StatusInternalServerError, "failed to load message")
		return
	}
	if msg.Recipient() != middleware.GetUsername(r.Context()) {
		writeError(w, http.StatusForbidden, "only the recipient can mark a message as read")
		return
	}
	if !msg.Read {
		if err := h.messages.MarkRead(r.Context(), id); err != nil {
			logger.Errorf("chat: mark %d read: %v", id, err)
			writeError(w, http.StatusInternalServerError, "failed to update message")
			return
		}
		msg.Read = true
	}
	writeJSON(w, http.StatusOK, msg)
}
