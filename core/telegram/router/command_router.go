package router

import (
	"context"
	"log/slog"
	"strings"

	"github.com/m3rciful/notesbot/core/logger"
	tg "github.com/m3rciful/notesbot/core/telegram"

	tele "gopkg.in/telebot.v4"
)

// CommandRoutes binds each registered command and each of its aliases to
// its own endpoint.
func CommandRoutes(reg *tg.Registry) []tg.Route {
	if reg == nil {
		return nil
	}
	var routes []tg.Route
	for cmd, def := range reg.Commands() {
		name := handlerName("", cmd)
		h := def.Handler
		handler := guard(func(c tele.Context) error { return run(c, name, h) })

		routes = append(routes, tg.Route{Endpoint: cmd, Handler: handler})
		for _, alias := range def.Aliases {
			if alias = strings.TrimSpace(alias); alias == "" {
				continue
			}
			if !strings.HasPrefix(alias, "/") {
				alias = "/" + alias
			}
			routes = append(routes, tg.Route{Endpoint: alias, Handler: handler})
		}
	}

	logger.LogEvent(context.Background(), logger.TWire, slog.LevelInfo, "complete",
		slog.Int("commands", len(reg.Commands())),
		slog.Int("routes", len(routes)),
		slog.Int("callbacks", len(reg.ListCallbacks())),
	)
	return routes
}
