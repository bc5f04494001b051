package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/lakeside-dental/internal/api/router"
	"github.com/wolfman30/lakeside-dental/internal/app/bootstrap"
	"github.com/wolfman30/lakeside-dental/internal/compliance"
	appconfig "github.com/wolfman30/lakeside-dental/internal/config"
	"github.com/wolfman30/lakeside-dental/internal/content"
	"github.com/wolfman30/lakeside-dental/internal/knowledge"
	"github.com/wolfman30/lakeside-dental/internal/observability/metrics"
	"github.com/wolfman30/lakeside-dental/internal/webchat"
	"github.com/wolfman30/lakeside-dental/pkg/logging"
)

func main() {
	cfg := appconfig.Load()
	logger := logging.NewWithWriter(cfg.LogLevel, cfg.LogFormat, os.Stdout)
	logger.Info("starting lakeside-dental API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server exited with error", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}

func run(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) error {
	kb, err := knowledge.Load(cfg.KnowledgePath)
	if err != nil {
		return err
	}

	db, err := bootstrap.OpenDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()
	if db == nil {
		logger.Warn("DATABASE_URL not set; audit trail disabled")
	}

	redisClient := bootstrap.BuildRedisClient(ctx, cfg, logger, true)
	if redisClient != nil {
		defer redisClient.Close()
	}

	handler := buildHandler(cfg, kb, db, redisClient, logger)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		// Leaves room for the gateway timeout.
		WriteTimeout: cfg.ChatGatewayTimeout + 10*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

type serverMetrics struct {
	registry *prometheus.Registry
	handler  http.Handler
	chat     *metrics.ChatMetrics
	content  *metrics.ContentMetrics
}

func setupMetrics() serverMetrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return serverMetrics{
		registry: reg,
		handler:  promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		chat:     metrics.NewChatMetrics(reg),
		content:  metrics.NewContentMetrics(reg),
	}
}

func buildHandler(cfg *appconfig.Config, kb *knowledge.Base, db *bootstrap.Database, redisClient *redis.Client, logger *logging.Logger) http.Handler {
	m := setupMetrics()
	audit := bootstrap.BuildAuditService(db)

	engine := bootstrap.BuildChatEngine(cfg, kb, bootstrap.ChatDeps{
		Redis:    redisClient,
		Audit:    audit,
		Observer: m.chat,
		Logger:   logger,
	})

	routerCfg := &router.Config{
		Logger:             logger,
		ChatHandler:        webchat.NewHandler(engine, m.chat, logger),
		ContentHandler:     content.NewHandler(kb, bootstrap.BuildAppointmentRepository(db, logger), m.content, logger),
		GatewayConfigured:  engine.GatewayConfigured,
		MetricsHandler:     m.handler,
		StatsGatherer:      m.registry,
		AdminAuthSecret:    cfg.AdminJWTSecret,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimitRPS:       cfg.RateLimitRPS,
		RateLimitBurst:     cfg.RateLimitBurst,
	}
	if audit != nil {
		routerCfg.AuditHandler = compliance.NewHandler(audit, logger)
	}
	return router.New(routerCfg)
}
