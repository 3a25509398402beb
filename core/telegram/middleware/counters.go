package middleware

import (
	tghelpers "github.com/m3rciful/notesbot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// countingContext records every successful outbound call on the update scope.
type countingContext struct {
	tele.Context
	scope *tghelpers.Scope
}

func (c countingContext) count(what any, opts []any, err error) error {
	if err == nil {
		c.scope.Record(what, carriesKeyboard(opts))
	}
	return err
}

func carriesKeyboard(opts []any) bool {
	for _, o := range opts {
		switch v := o.(type) {
		case *tele.ReplyMarkup:
			return v != nil
		case *tele.SendOptions:
			if v != nil && v.ReplyMarkup != nil {
				return true
			}
		}
	}
	return false
}

func (c countingContext) Send(what any, opts ...any) error {
	return c.count(what, opts, c.Context.Send(what, opts...))
}

func (c countingContext) Reply(what any, opts ...any) error {
	return c.count(what, opts, c.Context.Reply(what, opts...))
}

func (c countingContext) Edit(what any, opts ...any) error {
	return c.count(what, opts, c.Context.Edit(what, opts...))
}

func (c countingContext) EditOrSend(what any, opts ...any) error {
	return c.count(what, opts, c.Context.EditOrSend(what, opts...))
}

func (c countingContext) EditOrReply(what any, opts ...any) error {
	return c.count(what, opts, c.Context.EditOrReply(what, opts...))
}

// Counters makes outbound messages, documents and keyboards visible in the
// handler summary.
func Counters(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		if _, wrapped := c.(countingContext); wrapped {
			return next(c)
		}
		return next(countingContext{Context: c, scope: tghelpers.ScopeOf(c)})
	}
}
