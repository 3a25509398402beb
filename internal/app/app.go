// Package app wires the catalog, the menu navigator and the optional
// journal and keep-alive services into a Telegram bot.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/notesbot/core/bootstrap"
	"github.com/m3rciful/notesbot/core/logger"
	coretelegram "github.com/m3rciful/notesbot/core/telegram"
	"github.com/m3rciful/notesbot/core/telegram/commands"
	"github.com/m3rciful/notesbot/core/telegram/router"
	"github.com/m3rciful/notesbot/core/telegram/state"
	"github.com/m3rciful/notesbot/internal/catalog"
	"github.com/m3rciful/notesbot/internal/journal"
	"github.com/m3rciful/notesbot/internal/keepalive"
	"github.com/m3rciful/notesbot/internal/menu"
)

const (
	sessionTTL         = 24 * time.Hour
	sessionPruneEvery  = time.Hour
	keepAliveStopGrace = 5 * time.Second
)

// App is the assembled bot.
type App struct {
	cfg       *Config
	db        *sqlx.DB
	catalog   *catalog.Catalog
	nav       *menu.Navigator
	journal   journal.Recorder
	sessions  state.Manager
	keepalive *keepalive.Server

	pruneStop context.CancelFunc
	pruneDone sync.WaitGroup
}

// Bootstrap initializes logging and the optional database, then builds the app.
func Bootstrap(cfg *Config) (*App, error) {
	if cfg == nil {
		return nil, errors.New("app: nil config")
	}
	res, err := bootstrap.Run(bootstrap.Options{
		Config:   cfg.CoreConfig(),
		Database: cfg.Database,
	})
	if err != nil {
		return nil, err
	}
	a, err := New(cfg, res.DB)
	if err != nil {
		_ = res.Close()
		return nil, err
	}
	return a, nil
}

// New builds the app on top of already initialized infrastructure. db may be nil.
func New(cfg *Config, db *sqlx.DB) (*App, error) {
	if cfg == nil {
		return nil, errors.New("app: nil config")
	}
	cat, err := loadCatalog(cfg.Catalog)
	if err != nil {
		return nil, err
	}
	rec, err := openJournal(cfg.Journal, db)
	if err != nil {
		return nil, err
	}
	nav, err := menu.New(cat, os.DirFS(cfg.Catalog.BaseDir), menu.Options{
		FlattenSingleSubject: cfg.Catalog.FlattenSingleSubject,
		Journal:              rec,
	})
	if err != nil {
		_ = rec.Close()
		return nil, err
	}

	a := &App{
		cfg:      cfg,
		db:       db,
		catalog:  cat,
		nav:      nav,
		journal:  rec,
		sessions: state.NewMemoryManager(),
	}
	if cfg.KeepAlive.Enabled() {
		a.keepalive = keepalive.New(cfg.KeepAlive.Listen, cfg.KeepAlive.Port)
	}

	source := cfg.Catalog.Path
	if source == "" {
		source = "builtin"
	}
	logger.LogEvent(context.Background(), logger.NAV, slog.LevelInfo, "catalog.load",
		slog.String("path", source),
		slog.String("base_dir", cfg.Catalog.BaseDir),
		slog.Int("subjects", cat.Len()),
		slog.Int("entries", cat.Size()),
	)
	return a, nil
}

func loadCatalog(cfg CatalogConfig) (*catalog.Catalog, error) {
	if cfg.Path == "" {
		return catalog.Default()
	}
	return catalog.Load(cfg.Path)
}

func openJournal(cfg JournalConfig, db *sqlx.DB) (journal.Recorder, error) {
	switch {
	case db != nil:
		return journal.NewStore(db), nil
	case cfg.SQLitePath != "":
		s, err := journal.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	return journal.Nop{}, nil
}

// Registry declares the bot's commands and callback prefixes.
func (a *App) Registry() (*coretelegram.Registry, error) {
	reg := coretelegram.NewRegistry()
	err := errors.Join(
		reg.RegisterCommand("/menu", commands.Command{
			Handler:     a.handleMenu,
			Description: "Browse notes",
			Aliases:     []string{"/start"},
		}),
		reg.RegisterCommand("/stats", commands.Command{
			Handler:     a.handleStats,
			Description: "Delivery statistics",
			Hidden:      true,
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}
	for _, key := range []string{menu.SubjectPrefix, menu.SendPrefix, menu.BackToken} {
		if err := reg.RegisterCallback(key, a.handleCallback); err != nil {
			return nil, fmt.Errorf("app: %w", err)
		}
	}
	reg.SetCallbackNotFound(a.UnknownCallback())
	return reg, nil
}

// TelegramRunOptions assembles routes, middleware and lifecycle hooks.
func (a *App) TelegramRunOptions() (coretelegram.RunOptions, error) {
	reg, err := a.Registry()
	if err != nil {
		return coretelegram.RunOptions{}, err
	}

	return coretelegram.RunOptions{
		Config:      a.cfg.CoreConfig(),
		Registry:    reg,
		Middlewares: coretelegram.DefaultMiddlewares(),
		Routes:      router.Routes(reg, a),
		OnStart:     a.start,
		OnStop:      a.stop,
	}, nil
}

func (a *App) start(ctx context.Context, _ coretelegram.Runtime) error {
	if a.keepalive != nil {
		if err := a.keepalive.Start(ctx); err != nil {
			return err
		}
	}
	pruneCtx, cancel := context.WithCancel(context.Background())
	a.pruneStop = cancel
	a.pruneDone.Add(1)
	go func() {
		defer a.pruneDone.Done()
		a.pruneSessions(pruneCtx, sessionPruneEvery)
	}()
	return nil
}

// stop runs after the bot stopped polling; ctx is usually already cancelled.
func (a *App) stop(_ context.Context, _ coretelegram.Runtime) error {
	if a.pruneStop != nil {
		a.pruneStop()
		a.pruneDone.Wait()
	}

	var errs []error
	if a.keepalive != nil {
		ctx, cancel := context.WithTimeout(context.Background(), keepAliveStopGrace)
		errs = append(errs, a.keepalive.Shutdown(ctx))
		cancel()
	}
	errs = append(errs, a.journal.Close())
	if a.db != nil {
		errs = append(errs, a.db.Close())
	}
	return errors.Join(errs...)
}

func (a *App) pruneSessions(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := a.sessions.Prune(now.Add(-sessionTTL)); n > 0 {
				logger.Debug(ctx, "menu", "session.prune",
					slog.Int("count", n),
					slog.Int("sessions", a.sessions.Len()),
				)
			}
		}
	}
}
