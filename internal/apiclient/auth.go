package apiclient

import (
	"context"
	"net/http"
	"strings"

	"github.com/cloudchat/internal/model"
)

// AuthClient вызывает auth-сервис (выдаёт bearer-токены).
type AuthClient struct {
	base
}

func NewAuthClient(baseURL string, httpClient *http.Client) *AuthClient {
	return &AuthClient{base: newBase("auth", baseURL, orDefault(httpClient))}
}

// Login возвращает токены пользователя. При неверных данных возвращается *APIError со статусом 401.
func (c *AuthClient) Login(ctx context.Context, username, password string) (*model.TokenResponse, error) {
	body, err := jsonBody(model.AuthRequest{Username: username, Password: password})
	if err != nil {
		return nil, err
	}
	var tokens model.TokenResponse
	if err := c.sendJSON(ctx, request{op: "login", method: http.MethodPost, path: "/login", body: body, contentType: "application/json"}, &tokens); err != nil {
		return nil, err
	}
	return &tokens, nil
}

// Register создаёт пользователя и возвращает текст ответа сервиса.
func (c *AuthClient) Register(ctx context.Context, username, password string) (string, error) {
	body, err := jsonBody(model.AuthRequest{Username: username, Password: password})
	if err != nil {
		return "", err
	}
	data, err := c.send(ctx, request{op: "register", method: http.MethodPost, path: "/register", body: body, contentType: "application/json"})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
