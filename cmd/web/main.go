package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gemini-session-client/internal/config"
	"gemini-session-client/internal/httpclient"
	"gemini-session-client/internal/session"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := newLogger(cfg.LogLevel)

	httpClient := httpclient.New(httpclient.Options{
		PreferIPv4: cfg.PreferIPv4,
		Timeout:    cfg.HTTPTimeout,
	})

	sessionOpts := cfg.SessionOptions(httpClient, logger)
	if _, err := session.New(sessionOpts); err != nil {
		panic(err)
	}

	s := &server{
		sessions: session.NewStore[string](session.StoreOptions{
			Factory: func() (*session.Session, error) { return session.New(sessionOpts) },
		}),
		logger:         logger,
		allowPaths:     cfg.WebAllowPaths,
		maxBodyBytes:   cfg.WebMaxBodyBytes,
		requestTimeout: cfg.RequestTimeout,
	}

	srv := &http.Server{
		Addr:              cfg.WebAddr,
		Handler:           withLogging(s.routes(), logger),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      cfg.RequestTimeout + 30*time.Second,
		IdleTimeout:       90 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go s.sessions.PruneLoop(ctx, cfg.SessionIdle, logger)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("web started", "addr", cfg.WebAddr, "model", cfg.GeminiModel)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server error", "err", err)
		os.Exit(1)
	}
}

func newLogger(level string) *slog.Logger {
	lvl := slog.LevelInfo
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	}

	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: lvl,
	}))
}
