// Package apiclient — HTTP-клиенты внешних сервисов: auth, chat, files, notifications.
// Все вызовы, кроме login/register, идут с заголовком Authorization: Bearer <token>.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cloudchat/internal/config"
	"github.com/cloudchat/internal/logger"
)

// ErrMissingConfig — базовый URL сервиса не задан.
var ErrMissingConfig = errors.New("service URL is not configured")

// maxErrorBody ограничивает тело ответа, сохраняемое в APIError.
const maxErrorBody = 4 << 10

// APIError — ответ сервиса с не-2xx статусом.
type APIError struct {
	Service string
	Op      string
	Status  int
	Body    string
}

func (e *APIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s %s: status %d", e.Service, e.Op, e.Status)
	}
	return fmt.Sprintf("%s %s: status %d: %s", e.Service, e.Op, e.Status, e.Body)
}

// StatusOf возвращает HTTP-статус из цепочки ошибок или 0.
func StatusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

// base — общий транспорт одного сервиса. При пустом baseURL все методы возвращают ErrMissingConfig.
type base struct {
	service    string
	baseURL    string
	httpClient *http.Client
}

func newBase(service, baseURL string, httpClient *http.Client) base {
	return base{
		service:    service,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: httpClient,
	}
}

func (b *base) endpoint(path string) (string, error) {
	if b.baseURL == "" {
		return "", fmt.Errorf("%s: %w", b.service, ErrMissingConfig)
	}
	return b.baseURL + path, nil
}

type request struct {
	op          string
	method      string
	path        string
	token       string
	body        io.Reader
	contentType string
}

func jsonBody(v any) (io.Reader, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(data), nil
}

// send выполняет запрос и возвращает тело успешного ответа.
func (b *base) send(ctx context.Context, r request) ([]byte, error) {
	defer logger.DeferLogDuration(b.service+"."+r.op, time.Now())()
	url, err := b.endpoint(r.path)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, r.method, url, r.body)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", b.service, r.op, err)
	}
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}
	if r.token != "" {
		req.Header.Set("Authorization", "Bearer "+r.token)
	}
	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", b.service, r.op, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s %s: read body: %w", b.service, r.op, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if len(data) > maxErrorBody {
			data = data[:maxErrorBody]
		}
		return nil, &APIError{Service: b.service, Op: r.op, Status: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}
	return data, nil
}

// sendJSON выполняет запрос и декодирует JSON-ответ в out (если out != nil).
func (b *base) sendJSON(ctx context.Context, r request, out any) error {
	data, err := b.send(ctx, r)
	if err != nil {
		return err
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%s %s: decode: %w", b.service, r.op, err)
	}
	return nil
}

// Clients — набор клиентов всех четырёх сервисов с общим http.Client.
type Clients struct {
	Auth          *AuthClient
	Chat          *ChatClient
	Files         *FileClient
	Notifications *NotificationClient
}

// New создаёт клиенты по конфигу. Таймаут берётся из cfg.HTTPTimeout.
func New(cfg *config.Config) *Clients {
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
	return &Clients{
		Auth:          NewAuthClient(cfg.AuthURL, httpClient),
		Chat:          NewChatClient(cfg.ChatURL, httpClient),
		Files:         NewFileClient(cfg.FileURL, httpClient),
		Notifications: NewNotificationClient(cfg.NotificationURL, httpClient),
	}
}

func orDefault(c *http.Client) *http.Client {
	if c == nil {
		return &http.Client{Timeout: 15 * time.Second}
	}
	return c
}
