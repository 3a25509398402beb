package menu

import (
	"context"
	"io"
)

// User-visible texts.
const (
	RootPrompt    = "Select a subject:"
	SubjectPrompt = "📂 Available Files:"
	SubjectIcon   = "📚 "
	BackLabel     = "🔙 Back"

	MsgInvalidSelection = "Invalid selection"
	MsgFileNotFound     = "⚠️ File not found!"
	MsgSendFailed       = "⚠️ Error sending file"
)

// Button is one inline control. Token is echoed back when it is pressed.
type Button struct {
	Label string
	Token string
}

// View is a prompt with ordered rows of buttons.
type View struct {
	Text string
	Rows [][]Button
}

// Document is a file ready for upload. Content is only valid until
// SendDocument returns.
type Document struct {
	FileName string
	Caption  string
	Content  io.Reader
}

// Transport delivers navigator output to one conversation.
type Transport interface {
	// Show renders a view, replacing the previous one where possible.
	Show(ctx context.Context, v View) error
	Notify(ctx context.Context, text string) error
	SendDocument(ctx context.Context, doc Document) error
}

// Caption returns the text attached to a delivered file.
func Caption(fileName string) string {
	return "Here's " + fileName
}
