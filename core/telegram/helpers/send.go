package helpers

import (
	"errors"
	"log/slog"
	"sync/atomic"

	"github.com/m3rciful/notesbot/core/logger"
	"github.com/m3rciful/notesbot/core/telegram/sender"

	tele "gopkg.in/telebot.v4"
)

var dispatcher atomic.Pointer[sender.Dispatcher]

// SetDispatcher routes SendText through d. Nil makes it synchronous again.
func SetDispatcher(d *sender.Dispatcher) {
	dispatcher.Store(d)
}

// enqueue hands send to the dispatcher lane of the update's chat. When the
// lane is full or closed the message is sent inline so it is not lost.
func enqueue(c tele.Context, action, endpoint string, send func() error) error {
	d := dispatcher.Load()
	if d == nil {
		return send()
	}
	ctx := Context(c)
	err := d.Enqueue(ctx, action, endpoint, send)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sender.ErrQueueFull), errors.Is(err, sender.ErrQueueClosed):
		logger.Warn(ctx, "tg.sender", "queue.fallback",
			slog.String("action", action),
			slog.String("err", err.Error()),
		)
		return send()
	default:
		return err
	}
}

// SendText queues plain text for the current chat. Only the first opts value
// is used.
func SendText(c tele.Context, text string, opts ...*tele.SendOptions) error {
	args := []any{text}
	if len(opts) > 0 && opts[0] != nil {
		args = append(args, opts[0])
	}
	return enqueue(c, "send.text", "sendMessage", func() error {
		return c.Send(args[0], args[1:]...)
	})
}

// EditOrSend renders text in place of the callback message, or as a new
// message for other updates. It is synchronous so consecutive renders of a
// chat cannot overtake each other. Re-rendering a message that already shows
// text and markup is not an error.
func EditOrSend(c tele.Context, text string, markup *tele.ReplyMarkup) error {
	err := c.EditOrSend(text, &tele.SendOptions{ReplyMarkup: markup})
	if errors.Is(err, tele.ErrSameMessageContent) {
		logger.Debug(Context(c), "tg", "edit.unchanged")
		return nil
	}
	return err
}

// SendDocument uploads doc synchronously. The caller closes the document's
// reader once this returns.
func SendDocument(c tele.Context, doc *tele.Document) error {
	return c.Send(doc)
}
