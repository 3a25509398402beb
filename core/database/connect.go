package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // postgres driver

	"github.com/m3rciful/notesbot/core/logger"
)

const driverName = "postgres"

func (c Config) logAttrs(extra ...slog.Attr) []slog.Attr {
	return append([]slog.Attr{
		slog.String("driver", driverName),
		slog.String("host", c.Host),
		slog.String("port", c.Port),
		slog.String("db", c.Name),
	}, extra...)
}

// Connect opens a pooled PostgreSQL handle and checks that it answers.
func Connect(cfg Config) (*sqlx.DB, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	start := time.Now()
	db, err := sqlx.ConnectContext(ctx, driverName, cfg.DSN())
	if err != nil {
		logger.LogEvent(ctx, logger.DB, slog.LevelError, "db.connect",
			cfg.logAttrs(slog.Duration("duration", time.Since(start)), slog.String("err", err.Error()))...)
		return nil, fmt.Errorf("db connect: %w", err)
	}
	if cfg.MaxConnections > 0 {
		db.SetMaxOpenConns(cfg.MaxConnections)
		db.SetMaxIdleConns(cfg.MaxConnections)
	}
	logger.LogEvent(ctx, logger.DB, slog.LevelInfo, "db.connect",
		cfg.logAttrs(slog.Int("pool_open", cfg.MaxConnections), slog.Duration("duration", time.Since(start)))...)
	return db, nil
}

// WaitForPostgres retries a ping every two seconds until the server answers
// or timeout elapses.
func WaitForPostgres(ctx context.Context, dsn string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return err
	}
	defer db.Close()

	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()
	for {
		err := db.PingContext(ctx)
		if err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout reached waiting for database: %w", err)
		case <-ticker.C:
		}
	}
}
