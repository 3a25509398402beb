package database

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratedb "github.com/golang-migrate/migrate/v4/database"
	_ "github.com/golang-migrate/migrate/v4/database/postgres" // postgres:// migrate driver
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/m3rciful/notesbot/core/logger"
)

// MigrationResult describes one Migrate run.
type MigrationResult struct {
	From    uint
	To      uint
	Applied []string
}

// RunMigrations waits for PostgreSQL and applies the up migrations found in
// cfg.MigrationsDir.
func RunMigrations(cfg Config) error {
	ctx := context.Background()
	if err := WaitForPostgres(ctx, cfg.DSN(), 30*time.Second); err != nil {
		logger.LogEvent(ctx, logger.MIG, slog.LevelError, "db.not_ready", slog.String("err", err.Error()))
		return fmt.Errorf("database not ready: %w", err)
	}
	dir, err := filepath.Abs(cfg.migrationsDir())
	if err != nil {
		return fmt.Errorf("resolve migrations dir: %w", err)
	}
	_, err = Migrate(os.DirFS(dir), cfg.URL())
	return err
}

// Migrate applies every pending up migration stored at the root of files to
// the database named by databaseURL. The URL scheme selects the migrate
// driver, which the caller must have linked in.
func Migrate(files fs.FS, databaseURL string) (MigrationResult, error) {
	return migrateFrom(files, func(src source.Driver) (*migrate.Migrate, error) {
		return migrate.NewWithSourceInstance("iofs", src, databaseURL)
	})
}

// MigrateWith is Migrate over an already constructed database driver, for
// backends whose location does not survive URL encoding, such as SQLite file
// paths. The driver is closed on return.
func MigrateWith(files fs.FS, name string, driver migratedb.Driver) (MigrationResult, error) {
	return migrateFrom(files, func(src source.Driver) (*migrate.Migrate, error) {
		m, err := migrate.NewWithInstance("iofs", src, name, driver)
		if err != nil {
			_ = driver.Close()
		}
		return m, err
	})
}

func migrateFrom(files fs.FS, open func(source.Driver) (*migrate.Migrate, error)) (MigrationResult, error) {
	ctx := context.Background()
	var res MigrationResult

	ups := upMigrations(files)
	logger.LogEvent(ctx, logger.MIG, slog.LevelDebug, "resolve",
		slog.Int("files_total", len(ups)),
		slog.String("files", strings.Join(ups, ", ")),
	)

	src, err := iofs.New(files, ".")
	if err != nil {
		return res, fmt.Errorf("migration source: %w", err)
	}
	m, err := open(src)
	if err != nil {
		logger.LogEvent(ctx, logger.MIG, slog.LevelError, "init", slog.String("err", err.Error()))
		return res, fmt.Errorf("init migrations: %w", err)
	}
	defer m.Close()

	res.From = currentVersion(m)
	start := time.Now()
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		logger.LogEvent(ctx, logger.MIG, slog.LevelError, "apply",
			slog.Uint64("from_ver", uint64(res.From)),
			slog.Duration("duration", time.Since(start)),
			slog.String("err", err.Error()),
		)
		return res, fmt.Errorf("apply migrations: %w", err)
	}
	res.To = currentVersion(m)
	res.Applied = appliedBetween(ups, res.From, res.To)

	logger.LogEvent(ctx, logger.MIG, slog.LevelInfo, "summary",
		slog.Uint64("from_ver", uint64(res.From)),
		slog.Uint64("to_ver", uint64(res.To)),
		slog.Int("files", len(res.Applied)),
		slog.Duration("duration", time.Since(start)),
	)
	return res, nil
}

// currentVersion treats an empty or dirty schema as version 0 for reporting.
func currentVersion(m *migrate.Migrate) uint {
	v, dirty, err := m.Version()
	if err != nil || dirty {
		return 0
	}
	return v
}

// upMigrations lists *.up.sql names at the root of files in version order.
func upMigrations(files fs.FS) []string {
	names, err := fs.Glob(files, "*.up.sql")
	if err != nil {
		return nil
	}
	names = slices.DeleteFunc(names, func(name string) bool {
		info, err := fs.Stat(files, name)
		return err != nil || info.IsDir()
	})
	slices.SortFunc(names, func(a, b string) int {
		if c := cmp.Compare(migrationVersion(a), migrationVersion(b)); c != 0 {
			return c
		}
		return strings.Compare(a, b)
	})
	return names
}

// migrationVersion reads the numeric prefix of NNN_name.up.sql; 0 if absent.
func migrationVersion(name string) uint {
	prefix, _, _ := strings.Cut(name, "_")
	v, err := strconv.ParseUint(prefix, 10, 64)
	if err != nil {
		return 0
	}
	return uint(v)
}

func appliedBetween(names []string, from, to uint) []string {
	var out []string
	for _, name := range names {
		if v := migrationVersion(name); v > from && v <= to {
			out = append(out, name)
		}
	}
	return out
}
