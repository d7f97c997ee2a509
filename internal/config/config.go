// Package config provides application configuration loading from environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Vision providers.
const (
	VisionProviderOpenAI = "openai"
	VisionProviderGemini = "gemini"
)

// Storage backends.
const (
	StorageLocal = "local"
	StorageGCS   = "gcs"
)

// Gold rate sources.
const (
	RateSourceGoodreturns = "goodreturns"
	RateSourceFX          = "fx"
)

// Config holds all configuration for the application.
type Config struct {
	DatabaseURL string
	LogLevel    string
	LogFormat   string

	HTTPAddr           string
	CORSAllowedOrigins []string
	UploadRatePerMin   int
	MaxUploadBytes     int64

	VisionProvider string
	VisionTimeout  time.Duration
	OpenAIAPIKey   string
	OpenAIBaseURL  string
	OpenAIModel    string
	GeminiAPIKey   string
	GeminiModel    string

	StorageBackend string
	BillsDir       string
	GCSBucket      string

	RateSource           string
	GoodreturnsURL       string
	FXBaseURL            string
	RateFetchTimeout     time.Duration
	RateSchedulerEnabled bool
	RateSnapshotHour     int
	RateSnapshotMinute   int

	TelegramBotToken string
	TelegramChatID   int64

	OTelExporter string
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		LogLevel:       os.Getenv("LOG_LEVEL"),
		LogFormat:      os.Getenv("LOG_FORMAT"),
		HTTPAddr:       envOr("HTTP_ADDR", ":8000"),
		VisionProvider: strings.ToLower(envOr("VISION_PROVIDER", VisionProviderOpenAI)),
		OpenAIAPIKey:   os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL:  envOr("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		OpenAIModel:    envOr("OPENAI_MODEL", "gpt-4o-mini"),
		GeminiAPIKey:   os.Getenv("GEMINI_API_KEY"),
		GeminiModel:    envOr("GEMINI_MODEL", "gemini-2.5-flash"),
		StorageBackend: strings.ToLower(envOr("STORAGE_BACKEND", StorageLocal)),
		BillsDir:       envOr("BILLS_DIR", "files/bills"),
		GCSBucket:      os.Getenv("GCS_BUCKET"),
		RateSource:     strings.ToLower(envOr("RATE_SOURCE", RateSourceGoodreturns)),
		GoodreturnsURL: envOr("GOODRETURNS_URL", "https://www.goodreturns.in/gold-rates/"),
		FXBaseURL:      envOr("FX_BASE_URL", "https://api.exchangerate.host"),
		OTelExporter:   strings.ToLower(envOr("OTEL_EXPORTER", "none")),

		TelegramBotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
	}

	cfg.CORSAllowedOrigins = []string{"http://localhost:5173", "http://127.0.0.1:5173"}
	if origins := os.Getenv("CORS_ALLOWED_ORIGINS"); origins != "" {
		cfg.CORSAllowedOrigins = nil
		for origin := range strings.SplitSeq(origins, ",") {
			origin = strings.TrimSpace(origin)
			if origin == "" {
				continue
			}
			cfg.CORSAllowedOrigins = append(cfg.CORSAllowedOrigins, origin)
		}
	}

	cfg.UploadRatePerMin = 20
	if v := os.Getenv("UPLOAD_RATE_PER_MINUTE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.UploadRatePerMin = n
		}
	}

	cfg.MaxUploadBytes = 20 << 20
	if v := os.Getenv("MAX_UPLOAD_MB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MaxUploadBytes = int64(n) << 20
		}
	}

	cfg.VisionTimeout = 60 * time.Second
	if v := os.Getenv("VISION_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.VisionTimeout = d
		}
	}

	cfg.RateFetchTimeout = 20 * time.Second
	if v := os.Getenv("RATE_FETCH_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.RateFetchTimeout = d
		}
	}

	cfg.RateSchedulerEnabled = os.Getenv("RATE_SCHEDULER_ENABLED") != "false"
	cfg.RateSnapshotHour = 10
	if hourStr := os.Getenv("RATE_SNAPSHOT_HOUR"); hourStr != "" {
		if h, err := strconv.Atoi(hourStr); err == nil && h >= 0 && h <= 23 {
			cfg.RateSnapshotHour = h
		}
	}
	cfg.RateSnapshotMinute = 30
	if minStr := os.Getenv("RATE_SNAPSHOT_MINUTE"); minStr != "" {
		if m, err := strconv.Atoi(minStr); err == nil && m >= 0 && m <= 59 {
			cfg.RateSnapshotMinute = m
		}
	}

	if chatStr := strings.TrimSpace(os.Getenv("TELEGRAM_CHAT_ID")); chatStr != "" {
		if id, err := strconv.ParseInt(chatStr, 10, 64); err == nil {
			cfg.TelegramChatID = id
		}
	}

	// Validate required configuration.
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validate checks that all required configuration is present.
// Model credentials are deliberately not checked here; the vision client
// reports a missing key when it is first constructed.
func (c *Config) validate() error {
	var errs []string

	if c.DatabaseURL == "" {
		errs = append(errs, "DATABASE_URL is required")
	}

	switch c.VisionProvider {
	case VisionProviderOpenAI, VisionProviderGemini:
	default:
		errs = append(errs, fmt.Sprintf("VISION_PROVIDER must be %q or %q", VisionProviderOpenAI, VisionProviderGemini))
	}

	switch c.StorageBackend {
	case StorageLocal:
		if c.BillsDir == "" {
			errs = append(errs, "BILLS_DIR is required for local storage")
		}
	case StorageGCS:
		if c.GCSBucket == "" {
			errs = append(errs, "GCS_BUCKET is required when STORAGE_BACKEND=gcs")
		}
	default:
		errs = append(errs, fmt.Sprintf("STORAGE_BACKEND must be %q or %q", StorageLocal, StorageGCS))
	}

	switch c.RateSource {
	case RateSourceGoodreturns, RateSourceFX:
	default:
		errs = append(errs, fmt.Sprintf("RATE_SOURCE must be %q or %q", RateSourceGoodreturns, RateSourceFX))
	}

	switch c.OTelExporter {
	case "none", "stdout", "otlp-http", "otlp-grpc":
	default:
		errs = append(errs, "OTEL_EXPORTER must be one of none, stdout, otlp-http, otlp-grpc")
	}

	if c.TelegramBotToken != "" && c.TelegramChatID == 0 {
		errs = append(errs, "TELEGRAM_CHAT_ID is required when TELEGRAM_BOT_TOKEN is set")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

// TelegramEnabled reports whether daily rate notifications should be sent.
func (c *Config) TelegramEnabled() bool {
	return c.TelegramBotToken != "" && c.TelegramChatID != 0
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
