package apiclient

import (
	"context"
	"net/http"
	"net/url"

	"github.com/cloudchat/internal/model"
)

// NotificationClient вызывает сервис уведомлений.
type NotificationClient struct {
	base
}

func NewNotificationClient(baseURL string, httpClient *http.Client) *NotificationClient {
	return &NotificationClient{base: newBase("notifications", baseURL, orDefault(httpClient))}
}

// History — уведомления владельца токена.
func (c *NotificationClient) History(ctx context.Context, token string) ([]model.NotificationRecord, error) {
	var recs []model.NotificationRecord
	if err := c.sendJSON(ctx, request{op: "history", method: http.MethodGet, path: "/history", token: token}, &recs); err != nil {
		return nil, err
	}
	if recs == nil {
		recs = []model.NotificationRecord{}
	}
	return recs, nil
}

// MarkAsRead помечает уведомление прочитанным и возвращает обновлённую запись.
func (c *NotificationClient) MarkAsRead(ctx context.Context, token, notificationID string) (*model.NotificationRecord, error) {
	var rec model.NotificationRecord
	path := "/" + url.PathEscape(notificationID) + "/mark-as-read"
	if err := c.sendJSON(ctx, request{op: "mark-as-read", method: http.MethodPost, path: path, token: token}, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}
