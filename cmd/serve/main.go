// Command serve exposes the configured agent over HTTP.
//
//	serve [-config path] [-addr :8080] [-database-url postgres://...] [-otel]
//
// With -otel, spans go through the OpenTelemetry SDK and are logged when
// they end; otherwise the slog observer is used.
// Session history lives in memory unless a database URL is given, either
// with -database-url or SAGENT_DATABASE_URL.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/leofalp/sagent/core/agent"
	"github.com/leofalp/sagent/core/settings"
	"github.com/leofalp/sagent/internal/server"
	"github.com/leofalp/sagent/providers/memory"
	"github.com/leofalp/sagent/providers/memory/inmemory"
	"github.com/leofalp/sagent/providers/memory/pgmemory"
	"github.com/leofalp/sagent/providers/observability"
	"github.com/leofalp/sagent/providers/observability/otelobs"
	"github.com/leofalp/sagent/providers/observability/slogobs"

	_ "github.com/joho/godotenv/autoload"
)

const shutdownTimeout = 10 * time.Second

func main() {
	configPath := flag.String("config", "", "configuration file (default: config.{yaml,yml,json} in the working directory)")
	addr := flag.String("addr", ":8080", "listen address")
	databaseURL := flag.String("database-url", os.Getenv("SAGENT_DATABASE_URL"), "PostgreSQL URL for session history")
	useOtel := flag.Bool("otel", false, "trace with the OpenTelemetry SDK")
	flag.Parse()

	logs := slogobs.New()
	slog.SetDefault(logs.Logger())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, *configPath, *addr, *databaseURL, *useOtel, logs)
	stop()
	if err != nil {
		slog.Error("serve failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath, addr, databaseURL string, useOtel bool, logs *slogobs.Observer) error {
	logger := logs.Logger()
	var observer observability.Provider = logs
	if useOtel {
		tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(otelobs.NewLogExporter(logger)))
		defer func() { _ = tp.Shutdown(context.Background()) }()
		observer = otelobs.New(otelobs.WithTracerProvider(tp), otelobs.WithLogger(logger))
	}

	cfg, err := loadSettings(configPath)
	if err != nil {
		return err
	}
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	sa, err := cfg.Agent(settings.HookFunc(func(b *agent.Builder) *agent.Builder {
		return b.Observer(observer)
	}))
	if err != nil {
		return err
	}

	sessions, closeSessions, err := openSessions(ctx, databaseURL)
	if err != nil {
		return err
	}
	defer closeSessions()

	httpServer := &http.Server{
		Addr: addr,
		Handler: server.New(sa, server.Config{
			Provider: string(sa.Kind()),
			Model:    cfg.Model,
			Sessions: sessions,
			Logger:   logger,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("listening", "addr", addr, "provider", sa.Kind(), "model", cfg.Model)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	slog.Info("shutting down")
	return httpServer.Shutdown(shutdownCtx)
}

func openSessions(ctx context.Context, databaseURL string) (memory.Store, func(), error) {
	if databaseURL == "" {
		return inmemory.NewSessions(), func() {}, nil
	}

	pool, err := pgmemory.Open(ctx, databaseURL)
	if err != nil {
		return nil, nil, err
	}
	store := pgmemory.NewStore(pool)
	if err := store.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("session schema: %w", err)
	}
	return store, pool.Close, nil
}

func loadSettings(path string) (*settings.Settings, error) {
	if path != "" {
		return settings.LoadFile(path)
	}
	return settings.Load()
}
