package router

import (
	"log/slog"

	tg "github.com/m3rciful/notesbot/core/telegram"
	"github.com/m3rciful/notesbot/core/telegram/callbacks"

	tele "gopkg.in/telebot.v4"
)

// CallbackOptions customises fallback behaviour for callbacks.
type CallbackOptions struct {
	NotFound tele.HandlerFunc
}

// CallbackRoute routes button presses through the registry. Every press is
// acknowledged before the matched handler runs, so the client clears its
// loading indicator even when the handler is slow or fails.
func CallbackRoute(reg *tg.Registry, opts CallbackOptions) tg.Route {
	handler := func(c tele.Context) error {
		cb := c.Callback()
		if cb == nil {
			return nil
		}
		data, _ := callbacks.ParseCallbackData(cb)
		_ = c.Respond()

		if key, h, ok := reg.MatchCallback(data); ok && h != nil {
			return run(c, handlerName("callback.", key), h, slog.String("cb_key", key))
		}

		fallback := opts.NotFound
		if fallback == nil {
			fallback = reg.CallbackNotFound()
		}
		if fallback == nil {
			skip(c, "callback.unknown")
			return nil
		}
		return run(c, "callback.unknown", fallback,
			slog.String("cb_key", data),
			slog.String("reason", "not_found"),
		)
	}
	return tg.Route{Endpoint: tele.OnCallback, Handler: guard(handler)}
}
