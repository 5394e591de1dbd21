package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"

	"gemini-session-client/internal/session"
)

type Config struct {
	GeminiAPIKey     string `env:"GEMINI_API_KEY"`
	GeminiModel      string `env:"GEMINI_MODEL" envDefault:"gemini-2.0-flash"`
	IncludeHistory   bool   `env:"INCLUDE_HISTORY" envDefault:"true"`
	GeminiBaseURL    string `env:"GEMINI_BASE_URL" envDefault:"https://generativelanguage.googleapis.com"`
	GeminiAPIVersion string `env:"GEMINI_API_VERSION" envDefault:"v1beta"`

	ThinkingModel     string `env:"GEMINI_THINKING_MODEL" envDefault:"gemini-2.5-flash-preview-04-17"`
	ThinkingBudget    int    `env:"GEMINI_THINKING_BUDGET" envDefault:"24576"`
	SystemInstruction string `env:"SYSTEM_INSTRUCTION"`

	LogLevel   string `env:"LOG_LEVEL" envDefault:"info"`
	PreferIPv4 bool   `env:"PREFER_IPV4" envDefault:"true"`

	HTTPTimeout    time.Duration `env:"HTTP_TIMEOUT" envDefault:"30s"`
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"180s"`

	FetchMaxBytes    int64 `env:"FETCH_MAX_BYTES" envDefault:"20971520"`
	FetchConcurrency int   `env:"FETCH_CONCURRENCY" envDefault:"1"`

	// Telegram bot only.
	TelegramToken      string        `env:"TELEGRAM_BOT_TOKEN"`
	Debug              bool          `env:"DEBUG"`
	MaxConcurrent      int           `env:"MAX_CONCURRENT" envDefault:"4"`
	MediaGroupDebounce time.Duration `env:"MEDIA_GROUP_DEBOUNCE" envDefault:"1200ms"`
	SessionIdle        time.Duration `env:"SESSION_IDLE" envDefault:"24h"`

	// HTTP server only.
	WebAddr         string `env:"WEB_ADDR" envDefault:":8080"`
	WebAllowPaths   bool   `env:"WEB_ALLOW_FILE_PATHS"`
	WebMaxBodyBytes int64  `env:"WEB_MAX_BODY_BYTES" envDefault:"33554432"`
}

// Load reads .env when present, then the process environment.
func Load() (Config, error) {
	_ = godotenv.Load()
	return Parse()
}

// Parse reads the process environment only.
func Parse() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	cfg.GeminiAPIKey = strings.TrimSpace(cfg.GeminiAPIKey)
	cfg.GeminiModel = strings.TrimSpace(cfg.GeminiModel)
	cfg.TelegramToken = strings.TrimSpace(cfg.TelegramToken)
	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))

	switch {
	case cfg.GeminiAPIKey == "":
		return Config{}, errors.New("GEMINI_API_KEY is required")
	case cfg.GeminiModel == "":
		return Config{}, errors.New("GEMINI_MODEL is empty")
	}

	if cfg.ThinkingBudget < 0 {
		cfg.ThinkingBudget = 0
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = 30 * time.Second
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 180 * time.Second
	}
	if cfg.FetchMaxBytes <= 0 {
		cfg.FetchMaxBytes = 20 << 20
	}
	if cfg.FetchConcurrency < 1 {
		cfg.FetchConcurrency = 1
	}
	if cfg.MaxConcurrent < 1 {
		cfg.MaxConcurrent = 1
	}
	if cfg.WebMaxBodyBytes <= 0 {
		cfg.WebMaxBodyBytes = 32 << 20
	}
	if cfg.MediaGroupDebounce <= 0 {
		cfg.MediaGroupDebounce = 1200 * time.Millisecond
	}

	return cfg, nil
}

// SessionOptions maps the Gemini settings onto session options.
func (c Config) SessionOptions(httpClient *http.Client, logger *slog.Logger) session.Options {
	return session.Options{
		APIKey:            c.GeminiAPIKey,
		Model:             c.GeminiModel,
		IncludeHistory:    c.IncludeHistory,
		BaseURL:           c.GeminiBaseURL,
		APIVersion:        c.GeminiAPIVersion,
		SystemInstruction: c.SystemInstruction,
		ThinkingModel:     c.ThinkingModel,
		ThinkingBudget:    c.ThinkingBudget,
		HTTPClient:        httpClient,
		MaxFetchBytes:     c.FetchMaxBytes,
		FetchConcurrency:  c.FetchConcurrency,
		Logger:            logger,
	}
}

// RequireTelegram reports a missing bot token.
func (c Config) RequireTelegram() error {
	if c.TelegramToken == "" {
		return errors.New("TELEGRAM_BOT_TOKEN is required")
	}
	return nil
}
