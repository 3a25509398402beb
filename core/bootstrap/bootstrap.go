// Package bootstrap brings up process-wide infrastructure before the bot
// starts: the logger first, then the optional PostgreSQL handle.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	coreconfig "github.com/m3rciful/notesbot/core/config"
	coredatabase "github.com/m3rciful/notesbot/core/database"
	"github.com/m3rciful/notesbot/core/logger"
)

// Options select the configuration and, for tests, replace the default
// steps. Nil funcs fall back to the core implementations.
type Options struct {
	Config   *coreconfig.Config
	Database coredatabase.Config

	LoggerInit func(*coreconfig.Config) error
	Connect    func(coredatabase.Config) (*sqlx.DB, error)
	Migrate    func(coredatabase.Config) error
}

// Result carries what Run brought up.
type Result struct {
	// DB is nil when no database host is configured.
	DB *sqlx.DB
}

// Close releases the database handle, if any.
func (r *Result) Close() error {
	if r == nil || r.DB == nil {
		return nil
	}
	return r.DB.Close()
}

func (o Options) withDefaults() Options {
	if o.LoggerInit == nil {
		o.LoggerInit = logger.InitLogger
	}
	if o.Connect == nil {
		o.Connect = coredatabase.Connect
	}
	if o.Migrate == nil {
		o.Migrate = coredatabase.RunMigrations
	}
	return o
}

// Run initializes logging and, when opts.Database has a host, connects and
// migrates. A failed migration closes the connection it opened.
func Run(opts Options) (*Result, error) {
	if opts.Config == nil {
		return nil, errors.New("bootstrap: nil config provided")
	}
	opts = opts.withDefaults()

	if err := opts.LoggerInit(opts.Config); err != nil {
		return nil, fmt.Errorf("bootstrap: logger init failed: %w", err)
	}

	ctx := context.Background()
	res := &Result{}
	if !opts.Database.Enabled() {
		logger.LogEvent(ctx, logger.DB, slog.LevelInfo, "db.skip", slog.String("reason", "no_host"))
		return res, nil
	}

	start := time.Now()
	db, err := opts.Connect(opts.Database)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: database initialization failed: %w", err)
	}
	res.DB = db
	if err := opts.Migrate(opts.Database); err != nil {
		_ = res.Close()
		return nil, fmt.Errorf("bootstrap: migrations failed: %w", err)
	}
	logger.LogEvent(ctx, logger.DB, slog.LevelDebug, "db.ready", slog.Duration("duration", time.Since(start)))
	return res, nil
}
