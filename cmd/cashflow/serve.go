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

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/cooperrunyan/cashflow"
	"github.com/cooperrunyan/cashflow/internal/config"
	"github.com/cooperrunyan/cashflow/metrics/export/prometheus"
)

func newServeCmd(configFile *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API (signup, login, me, metrics)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			settings, err := config.Load(*configFile, cmd.Flags())
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, settings)
		},
	}

	fs := cmd.Flags()
	fs.String("addr", ":8080", "listen address")
	fs.Bool("dev-redis", false, "use an in-process miniredis for login throttling")
	fs.String("redis-addr", "localhost:6379", "redis address for login throttling")
	addLogFlags(fs)

	return cmd
}

func runServe(ctx context.Context, settings *config.Settings) error {
	logger, err := newLogger(settings, os.Stderr)
	if err != nil {
		return oops.In("serve").Code("log_config").Wrap(err)
	}

	cfg, err := settings.EngineConfig()
	if err != nil {
		return err
	}
	for _, w := range cfg.Lint() {
		logger.Warn("config warning", slog.String("code", w.Code), slog.String("detail", w.Message))
	}

	builder := cashflow.New().
		WithConfig(cfg).
		WithLogger(logger).
		WithAuditSink(cashflow.NewSlogSink(logger.With(slog.String("component", "audit")), slog.LevelInfo))

	if cfg.Security.EnableLoginThrottle {
		rdb, closeRedis, err := openRedis(ctx, settings, logger)
		if err != nil {
			return err
		}
		defer closeRedis()
		builder = builder.WithRedis(rdb)
	}

	engine, err := builder.Build()
	if err != nil {
		return oops.In("serve").Code("engine_build").Wrap(err)
	}
	defer engine.Close()

	app := newServer(engine, newMemStore(), logger)
	srv := &http.Server{
		Addr:              settings.Server.Addr,
		Handler:           app.routes(prometheus.NewExporter(engine).Handler()),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", slog.String("addr", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return oops.In("serve").Code("listen").Wrap(err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), settings.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return oops.In("serve").Code("shutdown").Wrap(err)
	}
	return nil
}

// openRedis dials the configured Redis, or starts miniredis with
// --dev-redis. The returned func releases it.
func openRedis(ctx context.Context, settings *config.Settings, logger *slog.Logger) (redis.UniversalClient, func(), error) {
	if settings.Server.DevRedis {
		mr, err := miniredis.Run()
		if err != nil {
			return nil, nil, oops.In("serve").Code("dev_redis").Wrap(err)
		}
		logger.Warn("using in-process redis; throttle state is lost on restart", slog.String("addr", mr.Addr()))
		rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		return rdb, func() {
			_ = rdb.Close()
			mr.Close()
		}, nil
	}

	rdb := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:    []string{settings.Redis.Addr},
		Password: settings.Redis.Password,
		DB:       settings.Redis.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, nil, oops.In("serve").Code("redis_unavailable").With("addr", settings.Redis.Addr).Wrap(err)
	}
	return rdb, func() { _ = rdb.Close() }, nil
}
