package apiclient

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/cloudchat/internal/model"
)

// ChatClient вызывает чат-сервис: списки сообщений, отправка, отметка о прочтении.
type ChatClient struct {
	base
}

func NewChatClient(baseURL string, httpClient *http.Client) *ChatClient {
	return &ChatClient{base: newBase("chat", baseURL, orDefault(httpClient))}
}

// Sent — сообщения, отправленные username.
func (c *ChatClient) Sent(ctx context.Context, token, username string) ([]model.Message, error) {
	return c.list(ctx, "sent", token, username)
}

// Received — сообщения, полученные username.
func (c *ChatClient) Received(ctx context.Context, token, username string) ([]model.Message, error) {
	return c.list(ctx, "received", token, username)
}

func (c *ChatClient) list(ctx context.Context, kind, token, username string) ([]model.Message, error) {
	var msgs []model.Message
	path := "/" + kind + "?username=" + url.QueryEscape(username)
	if err := c.sendJSON(ctx, request{op: kind, method: http.MethodGet, path: path, token: token}, &msgs); err != nil {
		return nil, err
	}
	if msgs == nil {
		msgs = []model.Message{}
	}
	return msgs, nil
}

// Send создаёт сообщение. Сервис отвечает сохранённым сообщением.
func (c *ChatClient) Send(ctx context.Context, token string, msg model.SendMessageRequest) (*model.Message, error) {
	body, err := jsonBody(msg)
	if err != nil {
		return nil, err
	}
	var saved model.Message
	if err := c.sendJSON(ctx, request{op: "send", method: http.MethodPost, path: "", token: token, body: body, contentType: "application/json"}, &saved); err != nil {
		return nil, err
	}
	return &saved, nil
}

// MarkAsRead помечает сообщение прочитанным (POST /{id}/mark-as-read).
func (c *ChatClient) MarkAsRead(ctx context.Context, token string, messageID int64) error {
	path := "/" + strconv.FormatInt(messageID, 10) + "/mark-as-read"
	_, err := c.send(ctx, request{op: "mark-as-read", method: http.MethodPost, path: path, token: token})
	return err
}
