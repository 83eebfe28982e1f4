package persist

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/skirmishkit/turnengine/internal/config"
	"go.uber.org/zap"
)

const (
	journalAppName  = "turnsim"
	journalMaxConns = 2 // one flush per tick plus the encounters row
	journalIdle     = 5 * time.Minute
	journalHealth   = time.Minute
)

// DB wraps the pgx pool the turn journal writes through.
type DB struct {
	Pool *pgxpool.Pool
	log  *zap.Logger
}

// NewDB connects, pings and returns the pool.
func NewDB(ctx context.Context, cfg config.DatabaseConfig, log *zap.Logger) (*DB, error) {
	if log == nil {
		log = zap.NewNop()
	}
	poolCfg, err := poolConfig(cfg)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect to db: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, flushTimeout(cfg))
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	log.Debug("journal database connected",
		zap.String("host", poolCfg.ConnConfig.Host),
		zap.String("database", poolCfg.ConnConfig.Database),
		zap.Int32("max_conns", poolCfg.MaxConns),
		zap.String("statement_timeout", poolCfg.ConnConfig.RuntimeParams["statement_timeout"]),
	)
	return &DB{Pool: pool, log: log}, nil
}

// poolConfig sizes the pool for the journal: a single writer that flushes
// one batch per tick. Statements time out server side after flush_timeout,
// so a stuck flush fails on both ends of the connection.
func poolConfig(cfg config.DatabaseConfig) (*pgxpool.Config, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	poolCfg.MaxConns = journalMaxConns
	if cfg.MaxOpenConns > 0 {
		poolCfg.MaxConns = int32(cfg.MaxOpenConns)
	}
	poolCfg.MinConns = min(int32(max(cfg.MaxIdleConns, 0)), poolCfg.MaxConns)
	if cfg.ConnMaxLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.ConnMaxLifetime
	}
	poolCfg.MaxConnIdleTime = journalIdle
	poolCfg.HealthCheckPeriod = journalHealth

	params := poolCfg.ConnConfig.RuntimeParams
	if params["application_name"] == "" {
		params["application_name"] = journalAppName
	}
	params["statement_timeout"] = strconv.FormatInt(flushTimeout(cfg).Milliseconds(), 10)
	return poolCfg, nil
}

func flushTimeout(cfg config.DatabaseConfig) time.Duration {
	if cfg.FlushTimeout > 0 {
		return cfg.FlushTimeout
	}
	return 5 * time.Second
}

func (db *DB) Close() {
	db.Pool.Close()
}
