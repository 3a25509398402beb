package middleware

import (
	"log/slog"

	"github.com/m3rciful/notesbot/core/logger"
	"github.com/m3rciful/notesbot/core/telegram/callbacks"
	tghelpers "github.com/m3rciful/notesbot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// Scope opens the update scope and logs a sampled receipt line. Applying it
// more than once to the same update logs only once.
func Scope(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		if tghelpers.HasScope(c) {
			return next(c)
		}
		ctx := tghelpers.ScopeOf(c).Context()
		if logger.ShouldSampleDebug() {
			logger.LogEvent(ctx, logger.TG, slog.LevelDebug, "update.received", receiptAttrs(c)...)
		}
		return next(c)
	}
}

func receiptAttrs(c tele.Context) []slog.Attr {
	attrs := []slog.Attr{slog.String("status", "ok")}
	if chat := c.Chat(); chat != nil {
		attrs = append(attrs, slog.String("chat_type", string(chat.Type)))
	}
	if user := c.Sender(); user != nil {
		attrs = append(attrs,
			slog.String("username", logger.SanitizeLimit(user.Username, 64)),
			slog.String("lang", user.LanguageCode),
		)
	}
	upd := c.Update()
	switch {
	case upd.Callback != nil:
		key, payload := callbacks.ParseCallbackData(upd.Callback)
		attrs = append(attrs,
			slog.String("cb_key", logger.SanitizeLimit(key, 128)),
			slog.String("payload", logger.SanitizeLimit(payload, 256)),
		)
	case upd.Message != nil:
		attrs = append(attrs, slog.String("payload", logger.SanitizeLimit(c.Text(), 256)))
	}
	return attrs
}
