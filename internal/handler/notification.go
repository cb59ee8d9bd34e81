package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/cloudchat/internal/logger"
	"github.com/cloudchat/internal/middleware"
	"github.com/cloudchat/internal/model"
	"github.com/cloudchat/internal/storage"
)

type NotificationHandler struct {
	store storage.NotificationStore
	now   func() time.Time
}

func NewNotificationHandler(store storage.NotificationStore) *NotificationHandler {
	return &NotificationHandler{store: store, now: time.Now}
}

// SendRequest — тело POST /send (уведомление от другого сервиса).
type SendRequest struct {
	TargetUserID    string `json:"targetUserId"`
	Type            string `json:"type"`
	Subject         string `json:"subject,omitempty"`
	Message         string `json:"message"`
	RelatedEntityID string `json:"relatedEntityId,omitempty"`
}

// Notify сохраняет уведомление для req.TargetUserID со статусом SENT.
func (h *NotificationHandler) Notify(ctx context.Context, req SendRequest) (*model.NotificationRecord, error) {
	rec := &model.NotificationRecord{
		NotificationID: uuid.NewString(),
		UserID:         req.TargetUserID,
		Type:           req.Type,
		Message:        req.Message,
		Timestamp:      h.now().UnixMilli(),
		Status:         model.NotificationStatusSent,
	}
	if req.RelatedEntityID != "" {
		rec.RelatedEntityID = model.StringPtr(req.RelatedEntityID)
	}
	if err := h.store.Save(ctx, rec); err != nil {
		return nil, fmt.Errorf("notify %s: %w", req.TargetUserID, err)
	}
	logger.Debugf("notifications: %s for %s (related %q)", rec.Type, rec.UserID, req.RelatedEntityID)
	return rec, nil
}

// History: GET /history: уведомления владельца токена, новые первыми.
func (h *NotificationHandler) History(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUsername(r.Context())
	recs, err := h.store.ListByUser(r.Context(), user)
	if err != nil {
		logger.Errorf("notifications: history %s: %v", user, err)
		writeError(w, http.StatusInternalServerError, "failed to load notifications")
		return
	}
	writeJSON(w, http.StatusOK, recs)
}

// Send: POST /send.
func (h *NotificationHandler) Send(w http.ResponseWriter, r *http.Request) {
	var req SendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.TargetUserID == "" || req.Type == "" {
		writeError(w, http.StatusBadRequest, "targetUserId and type are required")
		return
	}
	rec, err := h.Notify(r.Context(), req)
	if err != nil {
		logger.Errorf("notifications: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to save notification")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// MarkAsRead: POST /{notificationId}/mark-as-read.
// 404, если записи нет; 403 для чужой или уже прочитанной.
func (h *NotificationHandler) MarkAsRead(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "notificationId")
	user := middleware.GetUsername(r.Context())
	rec, err := h.store.Get(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "notification not found")
		return
	}
	if err != nil {
		logger.Errorf("notifications: get %s: %v", id, err)
		writeError(w, http.StatusInternalServerError, "failed to load notification")
		return
	}
	if rec.UserID != user || rec.ReadNotification {
		writeError(w, http.StatusForbidden, "not allowed or already read")
		return
	}
	rec.ReadNotification = true
	if err := h.store.Save(r.Context(), rec); err != nil {
		logger.Errorf("notifications: save %s: %v", id, err)
		writeError(w, http.StatusInternalServerError, "failed to update notification")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}
