// Package keyboard builds inline keyboards.
package keyboard

import (
	"errors"
	"fmt"

	tele "gopkg.in/telebot.v4"
)

// MaxCallbackData is the Bot API limit on callback_data, in bytes.
const MaxCallbackData = 64

// ErrCallbackTooLong is returned for a button whose encoded data exceeds
// MaxCallbackData.
var ErrCallbackTooLong = errors.New("keyboard: callback data too long")

// Button is one inline button.
//
// With Unique set, telebot encodes the callback as "\f<unique>|<data>" and
// routes it to the matching unique endpoint. With Unique empty, Data is sent
// verbatim and arrives through tele.OnCallback.
type Button struct {
	Text   string
	Unique string
	Data   string
}

// CallbackData returns the callback_data Telegram will carry for b.
func (b Button) CallbackData() string {
	if b.Unique == "" {
		return b.Data
	}
	if b.Data == "" {
		return "\f" + b.Unique
	}
	return "\f" + b.Unique + "|" + b.Data
}

// Markup builds an inline keyboard. Empty rows are dropped.
func Markup(rows ...[]Button) (*tele.ReplyMarkup, error) {
	inline := make([][]tele.InlineButton, 0, len(rows))
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		out := make([]tele.InlineButton, 0, len(row))
		for _, b := range row {
			if n := len(b.CallbackData()); n > MaxCallbackData {
				return nil, fmt.Errorf("%w: %q is %d bytes", ErrCallbackTooLong, b.Text, n)
			}
			out = append(out, tele.InlineButton{Text: b.Text, Unique: b.Unique, Data: b.Data})
		}
		inline = append(inline, out)
	}
	return &tele.ReplyMarkup{InlineKeyboard: inline}, nil
}
