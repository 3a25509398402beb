package router

import (
	tg "github.com/m3rciful/notesbot/core/telegram"

	tele "gopkg.in/telebot.v4"
)

// Fallbacks answers updates that match no command or callback.
type Fallbacks interface {
	UnknownText() tele.HandlerFunc
	UnknownDocument() tele.HandlerFunc
	UnknownCallback() tele.HandlerFunc
}

// Routes assembles command, callback and text routes for reg, with fb
// handling whatever the registry does not.
func Routes(reg *tg.Registry, fb Fallbacks) []tg.Route {
	routes := CommandRoutes(reg)
	routes = append(routes, CallbackRoute(reg, CallbackOptions{NotFound: fb.UnknownCallback()}))
	return append(routes, TextRoutes(reg, TextOptions{
		UnknownText:     fb.UnknownText(),
		UnknownDocument: fb.UnknownDocument(),
	})...)
}
