// Package journal keeps an append-only record of document deliveries.
package journal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/notesbot/core/logger"
	"github.com/m3rciful/notesbot/internal/menu"
)

const insertDelivery = `INSERT INTO deliveries
	(user_id, chat_id, subject, command, path, outcome, error, created_at)
	VALUES (:user_id, :chat_id, :subject, :command, :path, :outcome, :error, :created_at)`

const selectOutcomeCounts = `SELECT outcome, COUNT(*) AS n
	FROM deliveries
	GROUP BY outcome
	ORDER BY outcome`

type deliveryRow struct {
	UserID    int64     `db:"user_id"`
	ChatID    int64     `db:"chat_id"`
	Subject   string    `db:"subject"`
	Command   string    `db:"command"`
	Path      string    `db:"path"`
	Outcome   string    `db:"outcome"`
	Error     string    `db:"error"`
	CreatedAt time.Time `db:"created_at"`
}

// OutcomeCount is the number of deliveries that ended with Outcome.
type OutcomeCount struct {
	Outcome string `db:"outcome"`
	N       int    `db:"n"`
}

// Recorder is a journal that can also summarize what it recorded.
type Recorder interface {
	menu.Journal
	Stats(ctx context.Context) ([]OutcomeCount, error)
	Close() error
}

// Store writes deliveries to the "deliveries" table through sqlx.
type Store struct {
	db      *sqlx.DB
	now     func() time.Time
	closeDB bool
}

// NewStore wraps an open database. The caller keeps ownership of db.
func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// Record stores one delivery attempt. User and chat ids come from ctx.
func (s *Store) Record(ctx context.Context, d menu.Delivery) error {
	if s == nil || s.db == nil {
		return errors.New("journal: store is not configured")
	}
	row := deliveryRow{
		UserID:    logger.UserIDFrom(ctx),
		ChatID:    logger.ChatIDFrom(ctx),
		Subject:   d.Subject,
		Command:   d.Command,
		Path:      d.Path,
		Outcome:   d.Outcome,
		Error:     logger.SanitizeLimit(d.Err, 512),
		CreatedAt: s.now().UTC(),
	}
	start := time.Now()
	if _, err := s.db.NamedExecContext(ctx, insertDelivery, row); err != nil {
		return fmt.Errorf("journal: insert delivery: %w", err)
	}
	if logger.ShouldSampleDebug() {
		logger.LogEvent(ctx, logger.JRN, slog.LevelDebug, "journal.record",
			slog.String("status", "ok"),
			slog.String("command", d.Command),
			slog.String("outcome", d.Outcome),
			slog.Int64("duration_ms", logger.RoundMS(time.Since(start)).Milliseconds()),
		)
	}
	return nil
}

// Stats returns delivery counts grouped by outcome, sorted by outcome.
func (s *Store) Stats(ctx context.Context) ([]OutcomeCount, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("journal: store is not configured")
	}
	var out []OutcomeCount
	if err := s.db.SelectContext(ctx, &out, selectOutcomeCounts); err != nil {
		return nil, fmt.Errorf("journal: stats: %w", err)
	}
	return out, nil
}

// Close releases the database when the store opened it itself.
func (s *Store) Close() error {
	if s == nil || s.db == nil || !s.closeDB {
		return nil
	}
	return s.db.Close()
}

// Nop discards deliveries.
type Nop struct{}

// Record implements menu.Journal.
func (Nop) Record(context.Context, menu.Delivery) error { return nil }

// Stats always reports nothing.
func (Nop) Stats(context.Context) ([]OutcomeCount, error) { return nil, nil }

// Close implements Recorder.
func (Nop) Close() error { return nil }

// FormatStats renders counts as "outcome: n" lines.
func FormatStats(counts []OutcomeCount) string {
	if len(counts) == 0 {
		return "No deliveries recorded yet."
	}
	var b strings.Builder
	total := 0
	for _, c := range counts {
		fmt.Fprintf(&b, "%s: %d\n", c.Outcome, c.N)
		total += c.N
	}
	fmt.Fprintf(&b, "total: %d", total)
	return b.String()
}

var (
	_ Recorder = (*Store)(nil)
	_ Recorder = Nop{}
)
