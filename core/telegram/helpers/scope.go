package helpers

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/m3rciful/notesbot/core/logger"

	tele "gopkg.in/telebot.v4"
)

const scopeKey = "update_scope"

// Scope is the per-update state shared by middleware, routers and handlers:
// the logging context plus counters of what the bot sent back.
type Scope struct {
	Start time.Time

	ctx       atomic.Pointer[context.Context]
	messages  atomic.Int32
	documents atomic.Int32
	keyboard  atomic.Bool
}

// Counters summarizes outbound traffic for one update.
type Counters struct {
	Messages  int
	Documents int
	Keyboard  bool
}

// HasScope reports whether c already carries a Scope.
func HasScope(c tele.Context) bool {
	_, ok := c.Get(scopeKey).(*Scope)
	return ok
}

// ScopeOf returns the Scope of c, opening one on first use.
func ScopeOf(c tele.Context) *Scope {
	if s, ok := c.Get(scopeKey).(*Scope); ok {
		return s
	}
	s := &Scope{Start: time.Now()}
	ctx := newUpdateContext(c)
	s.ctx.Store(&ctx)
	c.Set(scopeKey, s)
	return s
}

func newUpdateContext(c tele.Context) context.Context {
	var chatID, userID int64
	if chat := c.Chat(); chat != nil {
		chatID = chat.ID
	}
	if user := c.Sender(); user != nil {
		userID = user.ID
	}
	updateID := c.Update().ID

	ctx := logger.WithRID(context.Background(), logger.BuildRID(updateID, chatID, userID))
	ctx = logger.WithUpdateMeta(ctx, updateID, userID, chatID)
	return logger.WithLogger(ctx, logger.TG)
}

// Context returns the logging context of the update.
func (s *Scope) Context() context.Context {
	return *s.ctx.Load()
}

// Context returns the logging context of the update handled by c.
func Context(c tele.Context) context.Context {
	return ScopeOf(c).Context()
}

// WithHandler tags the update context with the name of the handler serving it.
func WithHandler(c tele.Context, handler string) context.Context {
	s := ScopeOf(c)
	ctx := s.Context()
	if handler == "" || logger.HandlerFrom(ctx) == handler {
		return ctx
	}
	ctx = logger.WithHandler(ctx, handler)
	s.ctx.Store(&ctx)
	return ctx
}

// Record counts one successful outbound call.
func (s *Scope) Record(what any, withKeyboard bool) {
	if _, ok := what.(*tele.Document); ok {
		s.documents.Add(1)
	} else {
		s.messages.Add(1)
	}
	if withKeyboard {
		s.keyboard.Store(true)
	}
}

// Counters returns a snapshot of the outbound counters.
func (s *Scope) Counters() Counters {
	return Counters{
		Messages:  int(s.messages.Load()),
		Documents: int(s.documents.Load()),
		Keyboard:  s.keyboard.Load(),
	}
}
