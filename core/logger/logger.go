package logger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/m3rciful/notesbot/core/buildinfo"
	coreconfig "github.com/m3rciful/notesbot/core/config"
)

var (
	initOnce sync.Once

	shutdownOnce sync.Once
	shutdownErr  error

	logWriter  *asyncWriter
	logClosers []io.Closer

	levelVar slog.LevelVar

	// instanceID tells apart log lines of restarted processes sharing a file.
	instanceID = uuid.NewString()

	debugSampler  = newRatioSampler(1, 50)
	traceOverride bool

	// L is the base logger. It discards everything until InitLogger runs.
	L *slog.Logger

	// DB logs database connection events.
	DB *slog.Logger
	// TG logs Telegram transport events.
	TG *slog.Logger
	// MIG logs schema migrations.
	MIG *slog.Logger
	// TWire logs Telegram wiring steps.
	TWire *slog.Logger
	// NAV logs menu navigation and document delivery.
	NAV *slog.Logger
	// JRN logs delivery journal writes.
	JRN *slog.Logger
	// KA logs the keep-alive HTTP responder.
	KA *slog.Logger
)

func init() {
	setBase(slog.New(slog.DiscardHandler))
}

func setBase(base *slog.Logger) {
	L = base
	DB = L.With("component", "db")
	TG = L.With("component", "tg")
	MIG = L.With("component", "db.migrate")
	TWire = L.With("component", "tg.wire")
	NAV = L.With("component", "menu")
	JRN = L.With("component", "journal")
	KA = L.With("component", "keepalive")
}

// settings is the logging configuration after defaults are applied.
type settings struct {
	level     slog.Level
	format    logFormat
	keyOrder  []string
	profile   string
	sampleNum int
	sampleDen int
	filePath  string
}

func settingsFrom(cfg *coreconfig.Config) settings {
	s := settings{
		level:     slog.LevelInfo,
		format:    formatJSON,
		keyOrder:  slices.Clone(defaultKeyOrder),
		sampleNum: 1,
		sampleDen: 50,
	}
	if cfg == nil {
		return s
	}
	lc := cfg.Logging

	s.profile = "prod"
	if p := strings.TrimSpace(lc.Profile); p != "" {
		s.profile = strings.ToLower(p)
	}

	if err := s.level.UnmarshalText([]byte(strings.TrimSpace(lc.Level))); err != nil {
		s.level = slog.LevelInfo
	}
	if strings.EqualFold(strings.TrimSpace(lc.Level), "warning") {
		s.level = slog.LevelWarn
	}

	switch strings.ToLower(strings.TrimSpace(lc.Format)) {
	case "kv", "text", "pretty":
		s.format = formatKV
	case "json":
	default:
		if s.profile == "debug" || s.profile == "dev" {
			s.format = formatKV
		}
	}

	if raw := strings.TrimSpace(lc.KeysOrder); raw != "" && raw != "default" {
		var order []string
		for _, k := range strings.Split(raw, ",") {
			if k = strings.TrimSpace(k); k != "" {
				order = append(order, k)
			}
		}
		if len(order) > 0 {
			s.keyOrder = order
		}
	}

	if spec := strings.TrimSpace(lc.DebugSample); spec != "" {
		num, den := parseRatioSpec(spec)
		switch {
		case num == 0 && den == 0:
			s.sampleNum, s.sampleDen = 0, 0
		case num > 0 && den > 0:
			s.sampleNum, s.sampleDen = num, den
		}
	}

	dir, file := strings.TrimSpace(lc.Dir), strings.TrimSpace(lc.BotFile)
	if dir != "" && file != "" {
		s.filePath = filepath.Join(dir, file)
	}
	return s
}

// InitLogger installs the structured logger built from cfg. Only the first
// call has an effect.
func InitLogger(cfg *coreconfig.Config) error {
	var err error
	initOnce.Do(func() {
		s := settingsFrom(cfg)
		levelVar.Set(s.level)
		debugSampler.Set(s.sampleNum, s.sampleDen)
		traceOverride = envFlag("TRACE") || envFlag("LOG_TRACE")

		sinks := []io.Writer{os.Stdout}
		if s.filePath != "" {
			var f *os.File
			if f, err = openLogFile(s.filePath); err != nil {
				fmt.Fprintf(os.Stderr, "logger: %v; logging to stdout only\n", err)
				err = nil
			} else {
				sinks = append(sinks, f)
				logClosers = append(logClosers, f)
			}
		}
		logWriter = newAsyncWriter(sinks, 1024)

		base := slog.New(newStructuredHandler(handlerConfig{
			level:    &levelVar,
			writer:   logWriter,
			format:   s.format,
			keyOrder: s.keyOrder,
		}))
		slog.SetDefault(base)
		setBase(base)

		attrs := []slog.Attr{
			slog.String("instance", instanceID),
			slog.String("go_version", runtime.Version()),
			slog.String("build_version", buildinfo.Version),
			slog.String("build_commit", buildinfo.Commit),
			slog.String("build_time", buildinfo.Date),
		}
		if cfg != nil {
			attrs = append(attrs, slog.String("cfg_profile", s.profile))
		}
		LogEvent(context.Background(), L, slog.LevelInfo, "startup", attrs...)
	})
	return err
}

func openLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return f, nil
}

func envFlag(name string) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(name))) {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}

// Shutdown drains buffered output and closes log files.
func Shutdown() error {
	shutdownOnce.Do(func() {
		var errs []error
		if logWriter != nil {
			errs = append(errs, logWriter.Flush(), logWriter.Close())
		}
		for _, c := range logClosers {
			errs = append(errs, c.Close())
		}
		shutdownErr = errors.Join(errs...)
	})
	return shutdownErr
}

// InstanceID identifies this process in the startup line.
func InstanceID() string {
	return instanceID
}

// Background returns context.Background().
func Background() context.Context {
	return context.Background()
}

// LogEvent logs attrs with a leading event attribute. A nil logger falls back to
// the one stored in ctx, then to L.
func LogEvent(ctx context.Context, logg *slog.Logger, level slog.Level, event string, attrs ...slog.Attr) {
	if logg == nil {
		logg = FromContext(ctx)
	}
	if event != "" {
		attrs = append([]slog.Attr{slog.String("event", event)}, attrs...)
	}
	logg.LogAttrs(orBackground(ctx), level, "", attrs...)
}

// Component returns L scoped to the named component.
func Component(name string) *slog.Logger {
	if name = strings.TrimSpace(name); name == "" {
		return L
	}
	return L.With("component", name)
}

// Debug logs a debug-level event for the given component.
func Debug(ctx context.Context, component, event string, attrs ...slog.Attr) {
	LogEvent(ctx, Component(component), slog.LevelDebug, event, attrs...)
}

// Info logs an info-level event for the given component.
func Info(ctx context.Context, component, event string, attrs ...slog.Attr) {
	LogEvent(ctx, Component(component), slog.LevelInfo, event, attrs...)
}

// Warn logs a warn-level event for the given component.
func Warn(ctx context.Context, component, event string, attrs ...slog.Attr) {
	LogEvent(ctx, Component(component), slog.LevelWarn, event, attrs...)
}

// Error logs an error-level event for the given component.
func Error(ctx context.Context, component, event string, attrs ...slog.Attr) {
	LogEvent(ctx, Component(component), slog.LevelError, event, attrs...)
}

// ShouldSampleDebug reports whether a high-volume debug event should be
// logged. TRACE=1 disables sampling.
func ShouldSampleDebug() bool {
	return traceOverride || debugSampler.Allow()
}
