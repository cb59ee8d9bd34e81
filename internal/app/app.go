// Package app связывает сессию, список сообщений, уведомления и сверку прочтения.
package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cloudchat/internal/apiclient"
	"github.com/cloudchat/internal/config"
	"github.com/cloudchat/internal/inbox"
	"github.com/cloudchat/internal/logger"
	"github.com/cloudchat/internal/model"
	"github.com/cloudchat/internal/notifications"
	"github.com/cloudchat/internal/reconcile"
	"github.com/cloudchat/internal/session"
	"github.com/cloudchat/internal/state"
)

// Screen — что показывает клиент.
type Screen int

const (
	ScreenAuth Screen = iota
	ScreenChat
)

func (s Screen) String() string {
	if s == ScreenChat {
		return "chat"
	}
	return "auth"
}

var (
	// ErrCredentials — пустое имя или пароль.
	ErrCredentials = errors.New("username and password are required")
	// ErrNoToken — auth-сервис ответил без токена.
	ErrNoToken = errors.New("login response has no token")
)

// AuthAPI — вызовы auth-сервиса.
type AuthAPI interface {
	Login(ctx context.Context, username, password string) (*model.TokenResponse, error)
	Register(ctx context.Context, username, password string) (string, error)
}

// Deps — клиенты внешних сервисов.
type Deps struct {
	Auth          AuthAPI
	Chat          inbox.ChatAPI
	Files         inbox.FileAPI
	Notifications notifications.API
}

// DepsFrom собирает Deps из apiclient.Clients.
func DepsFrom(c *apiclient.Clients) Deps {
	return Deps{Auth: c.Auth, Chat: c.Chat, Files: c.Files, Notifications: c.Notifications}
}

// Options — параметры опроса и сверки.
type Options struct {
	PollInterval time.Duration
	Policy       reconcile.Policy
}

// OptionsFrom берёт параметры из конфига.
func OptionsFrom(cfg *config.Config) Options {
	return Options{PollInterval: cfg.PollInterval, Policy: reconcile.PolicyFromConfig(cfg.ReconcilePolicy)}
}

// App — состояние одного запуска клиента.
type App struct {
	auth AuthAPI

	Store       *state.Store
	Inbox       *inbox.Inbox
	Feed        *notifications.Feed
	Coordinator *reconcile.Coordinator

	ctx    context.Context
	cancel context.CancelFunc
	mu     sync.Mutex
}

// New создаёт приложение. ctx ограничивает жизнь фонового опроса уведомлений.
func New(ctx context.Context, deps Deps, opts Options) *App {
	store := state.NewStore()
	box := inbox.New(deps.Chat, deps.Files, store)
	feed := notifications.New(deps.Notifications, store, opts.PollInterval)
	appCtx, cancel := context.WithCancel(ctx)
	return &App{
		auth:        deps.Auth,
		Store:       store,
		Inbox:       box,
		Feed:        feed,
		Coordinator: reconcile.New(box, feed, store, opts.Policy),
		ctx:         appCtx,
		cancel:      cancel,
	}
}

// Screen возвращает экран чата при действующей сессии, иначе экран входа (в том числе после истечения токена).
func (a *App) Screen() Screen {
	if sess, _ := a.Store.Session(); sess.Valid(time.Now()) {
		return ScreenChat
	}
	return ScreenAuth
}

// Login входит, открывает сессию, запускает опрос уведомлений и загружает сообщения.
func (a *App) Login(ctx context.Context, username, password string) error {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return ErrCredentials
	}
	tokens, err := a.auth.Login(ctx, username, password)
	if err != nil {
		logger.Errorf("app: login %q: %v", username, err)
		return fmt.Errorf("login: %w", err)
	}
	token := tokens.BearerToken()
	if token == "" {
		return ErrNoToken
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.Feed.StopPolling()
	sess := session.New(token, username)
	a.Store.Dispatch(state.LoggedIn{Session: *sess})
	logger.Infof("app: %q logged in (token %s)", username, session.Mask(token))

	a.Feed.StartPolling(a.ctx)
	if err := a.Inbox.Refresh(ctx); err != nil {
		logger.Errorf("app: initial inbox load: %v", err)
	}
	return nil
}

// Register создаёт учётную запись и возвращает ответ auth-сервиса. Сессия не открывается.
func (a *App) Register(ctx context.Context, username, password string) (string, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return "", ErrCredentials
	}
	msg, err := a.auth.Register(ctx, username, password)
	if err != nil {
		logger.Errorf("app: register %q: %v", username, err)
		return "", fmt.Errorf("register: %w", err)
	}
	logger.Infof("app: %q registered", username)
	return msg, nil
}

// Logout останавливает опрос и очищает состояние.
func (a *App) Logout() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.Feed.StopPolling()
	a.Store.Dispatch(state.LoggedOut{})
}

// Close завершает сессию и фоновые задачи.
func (a *App) Close() {
	a.Logout()
	a.cancel()
}
