package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/cloudchat/internal/fileserver"
	"github.com/cloudchat/internal/middleware"
	"github.com/cloudchat/internal/repository"
	"github.com/cloudchat/internal/storage"
)

// RouterConfig — хранилища и параметры devstack.
type RouterConfig struct {
	Users         repository.UserStore
	Messages      repository.MessageStore
	Notifications storage.NotificationStore
	Files         *fileserver.Service

	JWTSecret   string
	TokenTTL    time.Duration
	CORSOrigins string
	// nil RateLimiter отключает ограничение частоты.
	RateLimiter *middleware.RateLimiter
}

const filesContentPath = "/api/files/content"

// NewRouter собирает четыре сервиса под /api/auth, /api/messages, /api/files, /api/notifications.
func NewRouter(cfg RouterConfig) http.Handler {
	authH := NewAuthHandler(cfg.Users, cfg.JWTSecret, cfg.TokenTTL)
	notifH := NewNotificationHandler(cfg.Notifications)
	msgH := NewMessageHandler(cfg.Messages, notifH)
	fileH := NewFileHandler(cfg.Files, filesContentPath)

	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(middleware.RecoverJSON)
	r.Use(middleware.RequestLog)
	if cfg.RateLimiter != nil {
		r.Use(cfg.RateLimiter.Handler)
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   splitOrigins(cfg.CORSOrigins),
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/register", authH.Register)
		r.Post("/login", authH.Login)
	})

	bearer := middleware.BearerAuth(cfg.JWTSecret)

	r.Route("/api/messages", func(r chi.Router) {
		r.Use(bearer)
		r.Get("/sent", msgH.Sent)
		r.Get("/received", msgH.Received)
		r.Post("/", msgH.Create)
		r.Post("/{messageId}/mark-as-read", msgH.MarkAsRead)
	})

	r.Route("/api/files", func(r chi.Router) {
		r.Get("/content/{fileId}", fileH.Content)
		r.Group(func(r chi.Router) {
			r.Use(bearer)
			r.Post("/upload", fileH.Upload)
			r.Get("/download/{fileId}", fileH.Download)
			r.Get("/metadata/{fileId}", fileH.Metadata)
		})
	})

	r.Route("/api/notifications", func(r chi.Router) {
		r.Use(bearer)
		r.Get("/history", notifH.History)
		r.Post("/send", notifH.Send)
		r.Post("/{notificationId}/mark-as-read", notifH.MarkAsRead)
	})

	return r
}

func splitOrigins(s string) []string {
	var out []string
	for _, o := range strings.Split(s, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}
