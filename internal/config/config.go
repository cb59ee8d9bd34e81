package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/cloudchat/internal/logger"
)

// loadEnv читает .env только вне production (в контейнере/prod конфиг только из env).
// Уже выставленные переменные окружения не перезаписываются.
func loadEnv() {
	if os.Getenv("APP_ENV") == "production" {
		return
	}
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logger.Errorf("config: .env: %v", err)
	}
}

// Политики сверки: сколько непрочитанных уведомлений помечать на одно сообщение.
const (
	PolicyFirstMatch = "first"
	PolicyAllMatches = "all"
)

// DevstackConfig — настройки локальной замены внешних сервисов (auth, chat, files, notifications).
type DevstackConfig struct {
	Addr               string
	JWTSecret          string
	TokenTTL           time.Duration
	RedisURL           string // пустой — уведомления в памяти
	DatabaseURL        string // пустой — сообщения в памяти
	UploadDir          string
	MaxUploadSize      int64
	CORSAllowedOrigins string
	RateLimitPerMinute int
}

// Config содержит адреса сервисов, параметры опроса и devstack.
// Приоритет: переменные окружения > YAML-файл > значения по умолчанию.
type Config struct {
	AuthURL         string
	ChatURL         string
	FileURL         string
	NotificationURL string

	PollInterval    time.Duration
	HTTPTimeout     time.Duration
	ReconcilePolicy string
	LogLevel        string

	Devstack DevstackConfig
}

// yamlConfig — промежуточная структура для парсинга config/client.yaml.
type yamlConfig struct {
	AuthURL             string `yaml:"auth_url"`
	ChatURL             string `yaml:"chat_url"`
	FileURL             string `yaml:"file_url"`
	NotificationURL     string `yaml:"notification_url"`
	PollIntervalSeconds int    `yaml:"poll_interval_seconds"`
	HTTPTimeoutSeconds  int    `yaml:"http_timeout_seconds"`
	ReconcilePolicy     string `yaml:"reconcile_policy"`
	LogLevel            string `yaml:"log_level"`

	Devstack struct {
		Addr               string `yaml:"addr"`
		JWTSecret          string `yaml:"jwt_secret"`
		TokenTTLMinutes    int    `yaml:"token_ttl_minutes"`
		RedisURL           string `yaml:"redis_url"`
		DatabaseURL        string `yaml:"database_url"`
		UploadDir          string `yaml:"upload_dir"`
		MaxUploadSizeMB    int    `yaml:"max_upload_size_mb"`
		CORSAllowedOrigins string `yaml:"cors_allowed_origins"`
		RateLimitPerMinute int    `yaml:"rate_limit_per_minute"`
	} `yaml:"devstack"`
}

func defaults() yamlConfig {
	var yc yamlConfig
	yc.AuthURL = "http://localhost:8081/api/auth"
	yc.ChatURL = "http://localhost:8081/api/messages"
	yc.FileURL = "http://localhost:8081/api/files"
	yc.NotificationURL = "http://localhost:8081/api/notifications"
	yc.PollIntervalSeconds = 30
	yc.HTTPTimeoutSeconds = 15
	yc.ReconcilePolicy = PolicyFirstMatch
	yc.LogLevel = "info"
	yc.Devstack.Addr = ":8081"
	yc.Devstack.JWTSecret = "devstack-secret"
	yc.Devstack.TokenTTLMinutes = 60
	yc.Devstack.UploadDir = "./uploads"
	yc.Devstack.MaxUploadSizeMB = 20
	yc.Devstack.CORSAllowedOrigins = "*"
	yc.Devstack.RateLimitPerMinute = 600
	return yc
}

// Load загружает конфигурацию: .env, затем CONFIG_PATH или config/client.yaml, затем env.
func Load() *Config {
	loadEnv()
	return LoadFrom(os.Getenv("CONFIG_PATH"), "config/client.yaml")
}

// LoadFrom читает первый существующий YAML из paths поверх значений по умолчанию
// и применяет переменные окружения.
func LoadFrom(paths ...string) *Config {
	yc := defaults()
	for _, path := range paths {
		if path == "" {
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		if err := yaml.Unmarshal(data, &yc); err != nil {
			logger.Errorf("config: parse %s: %v (defaults are used)", path, err)
			yc = defaults()
		} else {
			logger.Infof("config: loaded %s", path)
		}
		break
	}

	cfg := &Config{
		AuthURL:         trimURL(envStr("AUTH_URL", yc.AuthURL)),
		ChatURL:         trimURL(envStr("CHAT_URL", yc.ChatURL)),
		FileURL:         trimURL(envStr("FILE_URL", yc.FileURL)),
		NotificationURL: trimURL(envStr("NOTIFICATION_URL", yc.NotificationURL)),
		PollInterval:    seconds(envInt("POLL_INTERVAL_SECONDS", yc.PollIntervalSeconds), 30),
		HTTPTimeout:     seconds(envInt("HTTP_TIMEOUT_SECONDS", yc.HTTPTimeoutSeconds), 15),
		ReconcilePolicy: normalizePolicy(envStr("RECONCILE_POLICY", yc.ReconcilePolicy)),
		LogLevel:        envStr("LOG_LEVEL", yc.LogLevel),
		Devstack: DevstackConfig{
			Addr:               envStr("DEVSTACK_ADDR", yc.Devstack.Addr),
			JWTSecret:          envStr("JWT_SECRET", yc.Devstack.JWTSecret),
			TokenTTL:           time.Duration(positive(envInt("TOKEN_TTL_MINUTES", yc.Devstack.TokenTTLMinutes), 60)) * time.Minute,
			RedisURL:           envStr("REDIS_URL", yc.Devstack.RedisURL),
			DatabaseURL:        envStr("DATABASE_URL", yc.Devstack.DatabaseURL),
			UploadDir:          envStr("UPLOAD_DIR", yc.Devstack.UploadDir),
			MaxUploadSize:      int64(positive(envInt("MAX_UPLOAD_SIZE_MB", yc.Devstack.MaxUploadSizeMB), 20)) << 20,
			CORSAllowedOrigins: envStr("CORS_ALLOWED_ORIGINS", yc.Devstack.CORSAllowedOrigins),
			RateLimitPerMinute: positive(envInt("RATE_LIMIT_PER_MINUTE", yc.Devstack.RateLimitPerMinute), 600),
		},
	}
	logger.SetLevel(cfg.LogLevel)

	if os.Getenv("APP_ENV") == "production" && cfg.Devstack.JWTSecret == "devstack-secret" {
		logger.Errorf("config: JWT_SECRET is the development default")
	}
	return cfg
}

func normalizePolicy(p string) string {
	switch strings.ToLower(strings.TrimSpace(p)) {
	case PolicyAllMatches:
		return PolicyAllMatches
	case "", PolicyFirstMatch:
		return PolicyFirstMatch
	default:
		logger.Errorf("config: unknown reconcile_policy %q, using %q", p, PolicyFirstMatch)
		return PolicyFirstMatch
	}
}

func trimURL(u string) string {
	return strings.TrimSuffix(strings.TrimSpace(u), "/")
}

func seconds(n, fallback int) time.Duration {
	return time.Duration(positive(n, fallback)) * time.Second
}

func positive(n, fallback int) int {
	if n <= 0 {
		return fallback
	}
	return n
}

// envStr возвращает значение переменной окружения или fallback.
func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// envInt возвращает числовое значение переменной окружения или fallback.
func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
