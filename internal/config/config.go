package config

import (
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/openpulse/pulse/internal/core/domain"
)

// SMTP holds email delivery settings. Delivery is disabled when Host or
// To is empty.
type SMTP struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	To       string
}

// Config is the full server configuration, assembled from a .env file
// (when present) and environment variables.
type Config struct {
	Addr          string
	DBPath        string
	PublicBaseURL string
	StaticDir     string

	Providers domain.ProviderConfig
	SMTP      SMTP

	MaxNotifications   int
	NotificationTTLSec int
	HeartbeatInterval  time.Duration

	WatchPollInterval time.Duration
	WatchMaxWait      time.Duration

	SchedulerTick      time.Duration
	MaxConcurrentTasks int64
}

// Load reads configuration. A missing .env file is not an error.
func Load(logger *slog.Logger) *Config {
	if err := godotenv.Load(); err != nil {
		logger.Debug(".env file not found, using environment only")
	}

	providers := domain.DefaultProviderConfig()
	providers.LLM.Mode = envStr("PULSE_LLM_MODE", providers.LLM.Mode)
	providers.LLM.LocalURL = envStr("PULSE_LLM_LOCAL_URL", providers.LLM.LocalURL)
	providers.LLM.RemoteURL = envStr("PULSE_LLM_REMOTE_URL", providers.LLM.RemoteURL)
	providers.LLM.APIKey = envStr("PULSE_LLM_API_KEY", providers.LLM.APIKey)
	providers.LLM.DefaultModel = envStr("PULSE_LLM_MODEL", providers.LLM.DefaultModel)
	providers.Image.Mode = envStr("PULSE_IMAGE_MODE", providers.Image.Mode)
	providers.Image.RemoteURL = envStr("PULSE_IMAGE_REMOTE_URL", providers.Image.RemoteURL)
	providers.Image.APIKey = envStr("PULSE_IMAGE_API_KEY", providers.Image.APIKey)
	providers.Image.DefaultModel = envStr("PULSE_IMAGE_MODEL", providers.Image.DefaultModel)
	providers.Image.Size = envStr("PULSE_IMAGE_SIZE", providers.Image.Size)

	return &Config{
		Addr:          envStr("PULSE_ADDR", ":8080"),
		DBPath:        envStr("PULSE_DB_PATH", "pulse.db"),
		PublicBaseURL: envStr("PULSE_PUBLIC_BASE_URL", "http://localhost:8080"),
		StaticDir:     envStr("PULSE_STATIC_DIR", "static"),

		Providers: providers,
		SMTP: SMTP{
			Host:     envStr("SMTP_HOST", ""),
			Port:     envInt("SMTP_PORT", 587),
			Username: envStr("SMTP_USERNAME", ""),
			Password: envStr("SMTP_PASSWORD", ""),
			From:     envStr("SMTP_FROM", ""),
			To:       envStr("SMTP_TO", ""),
		},

		MaxNotifications:   envInt("PULSE_MAX_NOTIFICATIONS", 100),
		NotificationTTLSec: envInt("PULSE_NOTIFICATION_TTL_SEC", 3600),
		HeartbeatInterval:  envDuration("PULSE_SSE_HEARTBEAT_SEC", 30*time.Second),

		WatchPollInterval: envDuration("PULSE_WATCH_POLL_SEC", 3*time.Second),
		WatchMaxWait:      envDuration("PULSE_WATCH_MAX_WAIT_SEC", 10*time.Minute),

		SchedulerTick:      envDuration("PULSE_SCHEDULER_TICK_SEC", time.Minute),
		MaxConcurrentTasks: int64(envInt("PULSE_MAX_CONCURRENT_TASKS", 10)),
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return time.Duration(n) * time.Second
		}
	}
	return fallback
}
