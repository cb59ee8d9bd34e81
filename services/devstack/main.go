package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	embeddedpostgres "github.com/fergusstrange/embedded-postgres"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cloudchat/internal/config"
	"github.com/cloudchat/internal/fileserver"
	"github.com/cloudchat/internal/handler"
	"github.com/cloudchat/internal/logger"
	"github.com/cloudchat/internal/middleware"
	"github.com/cloudchat/internal/repository"
	"github.com/cloudchat/internal/startup"
	"github.com/cloudchat/internal/storage"
	"github.com/cloudchat/internal/storage/memory"
	"github.com/cloudchat/migrations"
)

func main() {
	logger.SetPrefix("devstack")
	embedded := flag.Bool("embedded-pg", false, "start embedded PostgreSQL for users and messages")
	resetNotifications := flag.Bool("reset-notifications", false, "flush the Redis notification store on start")
	flag.Parse()

	cfg := config.Load()
	ds := cfg.Devstack
	logger.Infof("starting devstack on %s", ds.Addr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *embedded {
		db, url, err := startEmbeddedPostgres()
		if err != nil {
			logger.Errorf("embedded postgres: %v", err)
			os.Exit(1)
		}
		ds.DatabaseURL = url
		defer func() {
			logger.Info("stopping embedded postgres...")
			if err := db.Stop(); err != nil {
				logger.Errorf("embedded postgres stop: %v", err)
			}
		}()
	}

	routerCfg := handler.RouterConfig{
		Users:       repository.NewMemoryUsers(),
		Messages:    repository.NewMemoryMessages(),
		Files:       fileserver.New(ds.UploadDir, ds.MaxUploadSize),
		JWTSecret:   ds.JWTSecret,
		TokenTTL:    ds.TokenTTL,
		CORSOrigins: ds.CORSAllowedOrigins,
		RateLimiter: middleware.NewRateLimiter(ds.RateLimitPerMinute),
	}
	defer routerCfg.RateLimiter.Stop()

	if ds.DatabaseURL != "" {
		pool, err := openDatabase(ctx, ds.DatabaseURL)
		if err != nil {
			logger.Errorf("database: %v", err)
			os.Exit(1)
		}
		defer pool.Close()
		routerCfg.Users = repository.NewUserRepository(pool)
		routerCfg.Messages = repository.NewMessageRepository(pool)
		logger.Info("users and messages: postgres")
	} else {
		logger.Info("users and messages: memory")
	}

	notifications, err := openNotifications(ctx, ds.RedisURL, *resetNotifications)
	if err != nil {
		logger.Errorf("notifications: %v", err)
		os.Exit(1)
	}
	defer notifications.Close()
	routerCfg.Notifications = notifications

	srv := &http.Server{
		Addr:              ds.Addr,
		Handler:           handler.NewRouter(routerCfg),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	var srvWg sync.WaitGroup
	errCh := make(chan error, 1)
	srvWg.Add(1)
	go func() {
		defer srvWg.Done()
		logger.Infof("server listening on %s", ds.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf("server error: %v", err)
			os.Exit(1)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("server shutdown: %v", err)
	}
	srvWg.Wait()
	logger.Info("server stopped")
}

func openDatabase(ctx context.Context, url string) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse db config: %w", err)
	}
	poolCfg.MaxConns = 10
	poolCfg.MinConns = 1
	pool, err := startup.ConnectDBWithRetry(ctx, poolCfg, 60*time.Second)
	if err != nil {
		return nil, err
	}
	migrateCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := migrations.Apply(migrateCtx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

func openNotifications(ctx context.Context, redisURL string, reset bool) (storage.NotificationStore, error) {
	if redisURL == "" {
		logger.Info("notifications: memory")
		return memory.New(), nil
	}
	client, err := startup.ConnectRedisWithRetry(ctx, redisURL, 30*time.Second)
	if err != nil {
		return nil, err
	}
	if reset {
		if err := client.FlushDB(ctx); err != nil {
			client.Close()
			return nil, fmt.Errorf("flush notifications: %w", err)
		}
		logger.Info("notifications: redis flushed")
	}
	logger.Info("notifications: redis")
	return client, nil
}

func startEmbeddedPostgres() (*embeddedpostgres.EmbeddedPostgres, string, error) {
	const (
		port     = 5433
		user     = "cloudchat"
		password = "cloudchat_dev"
		database = "cloudchat"
	)

	dataDir := filepath.Join(".", ".pgdata")
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, "", fmt.Errorf("create pgdata dir: %w", err)
	}

	db := embeddedpostgres.NewDatabase(
		embeddedpostgres.DefaultConfig().
			Port(port).
			Username(user).
			Password(password).
			Database(database).
			DataPath(dataDir).
			RuntimePath(filepath.Join(os.TempDir(), "cloudchat-embedded-pg")),
	)

	logger.Info("starting embedded PostgreSQL...")
	if err := db.Start(); err != nil {
		return nil, "", fmt.Errorf("start: %w", err)
	}
	logger.Infof("embedded PostgreSQL running on port %d", port)
	url := fmt.Sprintf("postgres://%s:%s@localhost:%d/%s?sslmode=disable", user, password, port, database)
	return db, url, nil
}
