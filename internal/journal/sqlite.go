package journal

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite" // sqlite driver

	"github.com/m3rciful/notesbot/core/database"
)

//go:embed migrations/*.sql
var sqliteMigrations embed.FS

func init() {
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

// OpenSQLite opens (creating if needed) a SQLite journal at path and applies
// its schema migrations.
func OpenSQLite(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("journal: sqlite path is required")
	}
	clean := filepath.Clean(path)

	if err := migrateSQLite(clean); err != nil {
		return nil, err
	}

	dsn := clean + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("journal: open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("journal: ping sqlite: %w", err)
	}

	s := NewStore(db)
	s.closeDB = true
	return s, nil
}

// migrateSQLite opens path with the same driver and file name as the store
// and migrates through that handle. A sqlite:// URL would re-encode spaces
// and '%' in the path and migrate a different file.
func migrateSQLite(path string) error {
	files, err := fs.Sub(sqliteMigrations, "migrations")
	if err != nil {
		return fmt.Errorf("journal: migration source: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("journal: open sqlite for migrations: %w", err)
	}
	driver, err := sqlite.WithInstance(db, &sqlite.Config{})
	if err != nil {
		_ = db.Close()
		return fmt.Errorf("journal: sqlite migrate driver: %w", err)
	}
	if _, err := database.MigrateWith(files, "sqlite", driver); err != nil {
		return fmt.Errorf("journal: %w", err)
	}
	return nil
}
