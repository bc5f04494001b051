// Package bootstrap builds the runtime dependencies shared by the commands.
package bootstrap

import (
	"context"
	"crypto/tls"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/lakeside-dental/internal/chat"
	"github.com/wolfman30/lakeside-dental/internal/compliance"
	appconfig "github.com/wolfman30/lakeside-dental/internal/config"
	"github.com/wolfman30/lakeside-dental/internal/content"
	"github.com/wolfman30/lakeside-dental/internal/knowledge"
	"github.com/wolfman30/lakeside-dental/pkg/logging"
)

// BuildRedisClient returns a configured Redis client or nil when disabled.
// When verify is true, a ping is issued and failures return nil.
func BuildRedisClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, verify bool) *redis.Client {
	if cfg == nil || strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	redisOptions := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOptions.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(redisOptions)
	if !verify {
		return client
	}
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not available, chat reply cache disabled", "error", err)
		_ = client.Close()
		return nil
	}
	return client
}

// Database bundles the pgx pool with a database/sql handle over the same pool.
type Database struct {
	Pool *pgxpool.Pool
	SQL  *sql.DB
}

// Close releases both handles.
func (d *Database) Close() {
	if d == nil {
		return
	}
	_ = d.SQL.Close()
	d.Pool.Close()
}

// OpenDatabase connects to DATABASE_URL. It returns (nil, nil) when no URL is configured.
func OpenDatabase(ctx context.Context, cfg *appconfig.Config) (*Database, error) {
	if cfg == nil || strings.TrimSpace(cfg.DatabaseURL) == "" {
		return nil, nil
	}
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("bootstrap: ping postgres: %w", err)
	}
	return &Database{Pool: pool, SQL: stdlib.OpenDBFromPool(pool)}, nil
}

// BuildAppointmentRepository picks Postgres when a database is available.
func BuildAppointmentRepository(db *Database, logger *logging.Logger) content.Repository {
	if db == nil {
		if logger != nil {
			logger.Info("appointment requests stored in memory")
		}
		return content.NewInMemoryRepository()
	}
	return content.NewPostgresRepository(db.Pool)
}

// BuildAuditService returns nil without a database.
func BuildAuditService(db *Database) *compliance.AuditService {
	if db == nil {
		return nil
	}
	return compliance.NewAuditService(db.SQL)
}

// ChatDeps are the optional collaborators of the chat engine.
type ChatDeps struct {
	Redis    *redis.Client
	Audit    *compliance.AuditService
	Observer chat.GatewayObserver
	Logger   *logging.Logger
}

// BuildChatEngine wires the gateway, reply cache and audit trail around kb.
func BuildChatEngine(cfg *appconfig.Config, kb *knowledge.Base, deps ChatDeps) *chat.Engine {
	logger := deps.Logger
	if logger == nil {
		logger = logging.Default()
	}

	opts := chat.Options{
		Observer: deps.Observer,
		Logger:   logger,
	}
	if cfg.GatewayConfigured() {
		opts.Gateway = chat.NewGateway(chat.GatewayConfig{
			Enabled: cfg.ChatGatewayEnabled,
			APIKey:  cfg.ChatGatewayAPIKey,
			BaseURL: cfg.ChatGatewayBaseURL,
			Path:    cfg.ChatGatewayPath,
			Model:   cfg.ChatGatewayModel,
			Timeout: cfg.ChatGatewayTimeout,
		})
		opts.Cache = chat.NewReplyCache(deps.Redis, cfg.ChatReplyCacheTTL)
		logger.Info("chat gateway enabled",
			"model", cfg.ChatGatewayModel,
			"timeout", cfg.ChatGatewayTimeout.String(),
			"reply_cache", opts.Cache != nil,
		)
	} else {
		logger.Info("chat gateway disabled, replies are knowledge-base only")
	}
	// A nil *AuditService must not become a non-nil interface.
	if deps.Audit != nil {
		opts.Auditor = deps.Audit
	}
	return chat.NewEngine(kb, opts)
}
