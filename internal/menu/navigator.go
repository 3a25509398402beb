// Package menu implements the subject/item menu over a catalog and the
// delivery of the selected file.
package menu

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path"

	"github.com/m3rciful/notesbot/core/logger"
	"github.com/m3rciful/notesbot/internal/catalog"
)

// Screen is a position in the menu.
type Screen string

const (
	ScreenRoot    Screen = "root"
	ScreenSubject Screen = "subject"
	// ScreenTerminal follows a delivery or an error notice. It carries no
	// state worth remembering.
	ScreenTerminal Screen = "terminal"
)

// Position is where a conversation ends up after a transition.
type Position struct {
	Screen  Screen
	Subject string
}

// Delivery outcomes.
const (
	OutcomeOK      = "ok"
	OutcomeMissing = "missing"
	OutcomeFail    = "fail"
)

// Delivery describes one attempt to send a file.
type Delivery struct {
	Subject string
	Command string
	Path    string
	Outcome string
	Err     string
}

// Journal records delivery attempts.
type Journal interface {
	Record(ctx context.Context, d Delivery) error
}

// Options tune a Navigator.
type Options struct {
	// FlattenSingleSubject makes Open show the item list directly when the
	// catalog has exactly one subject.
	FlattenSingleSubject bool
	Journal              Journal
	// Logger defaults to the "menu" component logger.
	Logger *slog.Logger
}

// Navigator drives the menu. It keeps no per-conversation state and is safe
// for concurrent use.
type Navigator struct {
	cat   *catalog.Catalog
	files fs.FS
	opts  Options
}

// New returns a Navigator serving files from files, which is rooted at the
// base directory.
func New(cat *catalog.Catalog, files fs.FS, opts Options) (*Navigator, error) {
	if cat == nil {
		return nil, errors.New("menu: nil catalog")
	}
	if files == nil {
		return nil, errors.New("menu: nil filesystem")
	}
	return &Navigator{cat: cat, files: files, opts: opts}, nil
}

func (n *Navigator) log() *slog.Logger {
	if n.opts.Logger != nil {
		return n.opts.Logger
	}
	return logger.NAV
}

// RootView renders the subject list.
func (n *Navigator) RootView() View {
	subjects := n.cat.Subjects()
	rows := make([][]Button, 0, len(subjects))
	for _, s := range subjects {
		rows = append(rows, []Button{{Label: SubjectIcon + s.Title, Token: SubjectToken(s.Key)}})
	}
	return View{Text: RootPrompt, Rows: rows}
}

// SubjectView renders the item list of s, optionally followed by Back.
func SubjectView(s catalog.Subject, withBack bool) View {
	rows := make([][]Button, 0, len(s.Entries)+1)
	for _, e := range s.Entries {
		rows = append(rows, []Button{{Label: e.Label, Token: SendToken(s.Key, e.Command)}})
	}
	if withBack {
		rows = append(rows, []Button{{Label: BackLabel, Token: BackToken}})
	}
	return View{Text: SubjectPrompt, Rows: rows}
}

// Open shows the root menu.
func (n *Navigator) Open(ctx context.Context, t Transport) (Position, error) {
	if n.opts.FlattenSingleSubject && n.cat.Len() == 1 {
		s := n.cat.Subjects()[0]
		if err := t.Show(ctx, SubjectView(s, false)); err != nil {
			return Position{Screen: ScreenRoot}, fmt.Errorf("menu: show subject: %w", err)
		}
		logger.LogEvent(ctx, n.log(), slog.LevelDebug, "menu.open",
			slog.String("screen", string(ScreenSubject)),
			slog.String("subject", s.Key),
		)
		return Position{Screen: ScreenSubject, Subject: s.Key}, nil
	}
	if err := t.Show(ctx, n.RootView()); err != nil {
		return Position{Screen: ScreenRoot}, fmt.Errorf("menu: show root: %w", err)
	}
	logger.LogEvent(ctx, n.log(), slog.LevelDebug, "menu.open",
		slog.String("screen", string(ScreenRoot)),
		slog.Int("subjects", n.cat.Len()),
	)
	return Position{Screen: ScreenRoot}, nil
}

// Back returns to the root menu. It renders exactly what Open renders.
func (n *Navigator) Back(ctx context.Context, t Transport) (Position, error) {
	return n.Open(ctx, t)
}

// SelectSubject shows the item list of a subject.
func (n *Navigator) SelectSubject(ctx context.Context, t Transport, subject string) (Position, error) {
	s, ok := n.cat.Subject(subject)
	if !ok {
		logger.LogEvent(ctx, n.log(), slog.LevelDebug, "menu.subject",
			slog.String("status", "invalid"),
			slog.String("subject", logger.SanitizeLimit(subject, 64)),
		)
		return Position{Screen: ScreenRoot}, n.notify(ctx, t, MsgInvalidSelection)
	}
	if err := t.Show(ctx, SubjectView(s, true)); err != nil {
		return Position{Screen: ScreenRoot}, fmt.Errorf("menu: show subject: %w", err)
	}
	logger.LogEvent(ctx, n.log(), slog.LevelDebug, "menu.subject",
		slog.String("status", "ok"),
		slog.String("subject", s.Key),
		slog.Int("entries", len(s.Entries)),
	)
	return Position{Screen: ScreenSubject, Subject: s.Key}, nil
}

// SelectItem sends the document behind subject/command. Unknown pairs get an
// invalid-selection notice without touching the filesystem. File faults are
// reported to the user and logged; only transport errors while notifying are
// returned.
func (n *Navigator) SelectItem(ctx context.Context, t Transport, subject, command string) (Position, error) {
	e, ok := n.cat.Lookup(subject, command)
	if !ok {
		return n.invalidItem(ctx, t, subject, command)
	}
	return Position{Screen: ScreenTerminal}, n.deliver(ctx, t, e)
}

// Dispatch routes a callback token to the matching transition.
func (n *Navigator) Dispatch(ctx context.Context, t Transport, token string) (Position, error) {
	a, err := ParseToken(token)
	if err != nil {
		logger.LogEvent(ctx, n.log(), slog.LevelDebug, "menu.dispatch",
			slog.String("status", "invalid"),
			slog.String("payload", logger.SanitizeLimit(token, 64)),
		)
		return Position{Screen: ScreenTerminal}, n.notify(ctx, t, MsgInvalidSelection)
	}
	switch a.Kind {
	case ActionBack:
		return n.Back(ctx, t)
	case ActionSubject:
		return n.SelectSubject(ctx, t, a.Subject)
	case ActionSend:
		e, ok := n.resolve(a)
		if !ok {
			return n.invalidItem(ctx, t, a.Subject, a.Command)
		}
		return Position{Screen: ScreenTerminal}, n.deliver(ctx, t, e)
	}
	return Position{Screen: ScreenTerminal}, n.notify(ctx, t, MsgInvalidSelection)
}

// resolve also accepts tokens that name a command only, including command ids
// containing underscores that ParseToken split as subject_command.
func (n *Navigator) resolve(a Action) (catalog.Entry, bool) {
	if a.Subject == "" {
		return n.cat.Find(a.Command)
	}
	if e, ok := n.cat.Lookup(a.Subject, a.Command); ok {
		return e, true
	}
	if e, ok := n.cat.Find(a.Subject + "_" + a.Command); ok {
		return e, true
	}
	return catalog.Entry{}, false
}

func (n *Navigator) invalidItem(ctx context.Context, t Transport, subject, command string) (Position, error) {
	logger.LogEvent(ctx, n.log(), slog.LevelDebug, "menu.item",
		slog.String("status", "invalid"),
		slog.String("subject", logger.SanitizeLimit(subject, 64)),
		slog.String("command", logger.SanitizeLimit(command, 64)),
	)
	return Position{Screen: ScreenTerminal}, n.notify(ctx, t, MsgInvalidSelection)
}

func (n *Navigator) deliver(ctx context.Context, t Transport, e catalog.Entry) error {
	p := e.Path()
	f, err := n.files.Open(p)
	if err != nil {
		return n.deliveryFailed(ctx, t, e, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return n.deliveryFailed(ctx, t, e, err)
	}
	if !info.Mode().IsRegular() {
		return n.deliveryFailed(ctx, t, e, fmt.Errorf("%s: not a regular file: %w", p, fs.ErrNotExist))
	}

	name := path.Base(e.File)
	doc := Document{FileName: name, Caption: Caption(name), Content: f}
	if err := t.SendDocument(ctx, doc); err != nil {
		return n.deliveryFailed(ctx, t, e, err)
	}

	logger.LogEvent(ctx, n.log(), slog.LevelInfo, "deliver",
		slog.String("outcome", OutcomeOK),
		slog.String("subject", e.Subject),
		slog.String("command", e.Command),
		slog.String("file", name),
	)
	n.record(ctx, Delivery{Subject: e.Subject, Command: e.Command, Path: p, Outcome: OutcomeOK})
	return nil
}

func (n *Navigator) deliveryFailed(ctx context.Context, t Transport, e catalog.Entry, cause error) error {
	p := e.Path()
	d := Delivery{Subject: e.Subject, Command: e.Command, Path: p, Err: cause.Error()}
	msg := MsgSendFailed
	level := slog.LevelError
	if errors.Is(cause, fs.ErrNotExist) {
		d.Outcome = OutcomeMissing
		msg = MsgFileNotFound
		level = slog.LevelWarn
	} else {
		d.Outcome = OutcomeFail
	}

	logger.LogEvent(ctx, n.log(), level, "deliver",
		slog.String("outcome", d.Outcome),
		slog.String("subject", e.Subject),
		slog.String("command", e.Command),
		slog.String("path", p),
		slog.String("err", logger.SanitizeLimit(cause.Error(), 256)),
	)
	n.record(ctx, d)
	return n.notify(ctx, t, msg)
}

func (n *Navigator) notify(ctx context.Context, t Transport, text string) error {
	if err := t.Notify(ctx, text); err != nil {
		return fmt.Errorf("menu: notify: %w", err)
	}
	return nil
}

func (n *Navigator) record(ctx context.Context, d Delivery) {
	if n.opts.Journal == nil {
		return
	}
	if err := n.opts.Journal.Record(ctx, d); err != nil {
		logger.LogEvent(ctx, n.log(), slog.LevelWarn, "journal.record",
			slog.String("status", "fail"),
			slog.String("command", d.Command),
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
		)
	}
}
