package router

import (
	"strings"

	tg "github.com/m3rciful/notesbot/core/telegram"

	tele "gopkg.in/telebot.v4"
)

// TextOptions controls fallback behaviour for text and document updates.
type TextOptions struct {
	UnknownText     tele.HandlerFunc
	UnknownDocument tele.HandlerFunc
}

// TextRoutes handles free text and uploaded documents. Slash text that
// resolves to a registered command or alias runs that command; anything else
// goes to the registry text fallback, then to opts.UnknownText.
func TextRoutes(reg *tg.Registry, opts TextOptions) []tg.Route {
	text := func(c tele.Context) error {
		if reg != nil {
			if strings.HasPrefix(c.Text(), "/") {
				if key, cmd, ok := reg.LookupCommand(c.Text()); ok && cmd.Handler != nil {
					return run(c, handlerName("", key), cmd.Handler)
				}
			}
			if fb := reg.TextFallback(); fb != nil {
				return run(c, "fallback", fb)
			}
		}
		if opts.UnknownText == nil {
			skip(c, "unknown_text")
			return nil
		}
		return run(c, "unknown_text", opts.UnknownText)
	}

	document := func(c tele.Context) error {
		if opts.UnknownDocument == nil {
			skip(c, "unexpected_document")
			return nil
		}
		return run(c, "unexpected_document", opts.UnknownDocument)
	}

	return []tg.Route{
		{Endpoint: tele.OnText, Handler: guard(text)},
		{Endpoint: tele.OnDocument, Handler: guard(document)},
	}
}
