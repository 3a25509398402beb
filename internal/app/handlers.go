package app

import (
	"context"
	"log/slog"

	"github.com/m3rciful/notesbot/core/logger"
	"github.com/m3rciful/notesbot/core/telegram/callbacks"
	tghelpers "github.com/m3rciful/notesbot/core/telegram/helpers"
	"github.com/m3rciful/notesbot/core/telegram/router"
	"github.com/m3rciful/notesbot/core/telegram/state"
	"github.com/m3rciful/notesbot/internal/journal"
	"github.com/m3rciful/notesbot/internal/menu"

	tele "gopkg.in/telebot.v4"
)

const (
	stateRoot    state.State = "menu.root"
	stateSubject state.State = "menu.subject"
)

const (
	msgUseMenu          = "Use /menu to browse the available notes."
	msgStatsUnavailable = "Statistics are unavailable right now."
)

func (a *App) handleMenu(c tele.Context) error {
	ctx := tghelpers.Context(c)
	pos, err := a.nav.Open(ctx, newTransport(c))
	a.remember(ctx, c, pos)
	return err
}

func (a *App) handleCallback(c tele.Context) error {
	ctx := tghelpers.Context(c)
	pos, err := a.nav.Dispatch(ctx, newTransport(c), callbacks.CallbackKey(c))
	a.remember(ctx, c, pos)
	return err
}

func (a *App) handleStats(c tele.Context) error {
	ctx := tghelpers.Context(c)
	counts, err := a.journal.Stats(ctx)
	if err != nil {
		if sendErr := tghelpers.SendText(c, msgStatsUnavailable); sendErr != nil {
			return sendErr
		}
		return err
	}
	return tghelpers.SendText(c, journal.FormatStats(counts))
}

// remember stores where the chat is now. Terminal positions leave the
// previous screen in place.
func (a *App) remember(ctx context.Context, c tele.Context, pos menu.Position) {
	chat := c.Chat()
	if chat == nil {
		return
	}
	prev := a.sessions.Get(chat.ID)
	switch pos.Screen {
	case menu.ScreenRoot:
		a.sessions.Set(chat.ID, stateRoot, "")
	case menu.ScreenSubject:
		a.sessions.Set(chat.ID, stateSubject, pos.Subject)
	default:
		return
	}
	logger.LogEvent(ctx, logger.NAV, slog.LevelDebug, "menu.transition",
		slog.String("from_screen", string(prev.State)),
		slog.String("screen", string(pos.Screen)),
		slog.String("subject", pos.Subject),
	)
}

// UnknownText points users at the menu. A chat last seen on a subject screen
// gets that subject's item list again instead.
func (a *App) UnknownText() tele.HandlerFunc {
	return func(c tele.Context) error {
		if resumed, err := a.resume(c); resumed {
			return err
		}
		return tghelpers.SendText(c, msgUseMenu)
	}
}

// resume re-renders the subject stored in the chat's session, if any.
func (a *App) resume(c tele.Context) (bool, error) {
	chat := c.Chat()
	if chat == nil {
		return false, nil
	}
	s := a.sessions.Get(chat.ID)
	if s.State != stateSubject || s.Scope == "" {
		return false, nil
	}
	ctx := tghelpers.Context(c)
	pos, err := a.nav.SelectSubject(ctx, newTransport(c), s.Scope)
	a.remember(ctx, c, pos)
	return true, err
}

// UnknownDocument ignores uploads and points users at the menu.
func (a *App) UnknownDocument() tele.HandlerFunc {
	return func(c tele.Context) error {
		return tghelpers.SendText(c, msgUseMenu)
	}
}

// UnknownCallback answers stale or foreign buttons.
func (a *App) UnknownCallback() tele.HandlerFunc {
	return func(c tele.Context) error {
		return tghelpers.SendText(c, menu.MsgInvalidSelection)
	}
}

var _ router.Fallbacks = (*App)(nil)
