package telegram

import (
	"github.com/m3rciful/notesbot/core/telegram/middleware"
)

// DefaultMiddlewares builds the global chain: panic recovery, the update
// scope with its receipt log, and outbound counters.
func DefaultMiddlewares() []Middleware {
	return []Middleware{
		{Name: "recover", Use: middleware.Recover},
		{Name: "scope", Use: middleware.Scope},
		{Name: "counters", Use: middleware.Counters},
	}
}
