package app

import (
	"context"

	tghelpers "github.com/m3rciful/notesbot/core/telegram/helpers"
	"github.com/m3rciful/notesbot/core/telegram/keyboard"
	"github.com/m3rciful/notesbot/internal/menu"

	tele "gopkg.in/telebot.v4"
)

// teleTransport renders navigator output into the chat of one update.
type teleTransport struct {
	c tele.Context
}

func newTransport(c tele.Context) teleTransport {
	return teleTransport{c: c}
}

// Show edits the pressed message in place, or sends a new one for commands.
func (t teleTransport) Show(_ context.Context, v menu.View) error {
	markup, err := inlineMarkup(v)
	if err != nil {
		return err
	}
	return tghelpers.EditOrSend(t.c, v.Text, markup)
}

func (t teleTransport) Notify(_ context.Context, text string) error {
	return tghelpers.SendText(t.c, text)
}

// SendDocument uploads synchronously; doc.Content is closed by the caller
// right after this returns.
func (t teleTransport) SendDocument(_ context.Context, doc menu.Document) error {
	return tghelpers.SendDocument(t.c, &tele.Document{
		File:     tele.FromReader(doc.Content),
		FileName: doc.FileName,
		Caption:  doc.Caption,
	})
}

func inlineMarkup(v menu.View) (*tele.ReplyMarkup, error) {
	rows := make([][]keyboard.Button, 0, len(v.Rows))
	for _, row := range v.Rows {
		btns := make([]keyboard.Button, 0, len(row))
		for _, b := range row {
			btns = append(btns, keyboard.Button{Text: b.Label, Data: b.Token})
		}
		rows = append(rows, btns)
	}
	return keyboard.Markup(rows...)
}

var _ menu.Transport = teleTransport{}
