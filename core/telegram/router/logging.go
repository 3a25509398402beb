package router

import (
	"errors"
	"log/slog"
	"reflect"
	"strings"
	"time"

	"github.com/m3rciful/notesbot/core/logger"
	tghelpers "github.com/m3rciful/notesbot/core/telegram/helpers"
	"github.com/m3rciful/notesbot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// guard is applied to every route so it works even without global middleware.
func guard(h tele.HandlerFunc) tele.HandlerFunc {
	return middleware.Recover(middleware.Scope(h))
}

// run executes fn as the named handler and logs one handler.handled line.
func run(c tele.Context, name string, fn tele.HandlerFunc, extras ...slog.Attr) error {
	tghelpers.WithHandler(c, name)
	err := fn(c)
	summarize(c, name, err, "", extras...)
	return err
}

// skip logs a handler.handled line for an update nobody handled.
func skip(c tele.Context, name string) {
	tghelpers.WithHandler(c, name)
	summarize(c, name, nil, "skip")
}

func summarize(c tele.Context, name string, err error, status string, extras ...slog.Attr) {
	scope := tghelpers.ScopeOf(c)
	counts := scope.Counters()

	outcome := "ok"
	if err != nil {
		outcome = "fail"
	}
	if status == "" {
		status = outcome
	}
	attrs := []slog.Attr{
		slog.String("status", status),
		slog.String("outcome", outcome),
		slog.Int("messages", counts.Messages),
		slog.Int("documents", counts.Documents),
		slog.Bool("kb", counts.Keyboard),
		slog.Duration("duration", time.Since(scope.Start)),
	}
	if err != nil {
		attrs = append(attrs,
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
			slog.String("err_code", errorCode(err)),
		)
	}
	logger.LogEvent(scope.Context(), logger.TG, slog.LevelInfo, "handler.handled", append(attrs, extras...)...)
}

// handlerName turns a command or callback key into a log-friendly name.
func handlerName(prefix, key string) string {
	key = strings.ToLower(strings.Trim(strings.TrimSpace(key), "/_"))
	if key == "" {
		key = "unknown"
	}
	return prefix + strings.ReplaceAll(key, " ", "_")
}

// errorCode names the concrete type of the innermost wrapped error, or the
// value of a Code() method when the error has one.
func errorCode(err error) string {
	var coder interface{ Code() string }
	if errors.As(err, &coder) {
		if code := strings.TrimSpace(coder.Code()); code != "" {
			return strings.ToUpper(strings.ReplaceAll(code, " ", "_"))
		}
	}
	for {
		next := errors.Unwrap(err)
		if next == nil {
			break
		}
		err = next
	}
	t := reflect.TypeOf(err)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Name() == "" {
		return "UNKNOWN_ERROR"
	}
	return strings.ToUpper(t.Name())
}
