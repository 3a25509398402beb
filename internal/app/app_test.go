package app

import (
	"context"
	"errors"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"

	coreconfig "github.com/m3rciful/notesbot/core/config"
	coretelegram "github.com/m3rciful/notesbot/core/telegram"
	"github.com/m3rciful/notesbot/core/telegram/router"
	"github.com/m3rciful/notesbot/internal/keepalive"
	"github.com/m3rciful/notesbot/internal/menu"

	tele "gopkg.in/telebot.v4"
)

type fakeContext struct {
	tele.Context

	update tele.Update
	store  map[string]any

	calls   []string
	texts   []string
	markups []*tele.ReplyMarkup
	docs    []*tele.Document
	bodies  []string

	editErr error
}

func newCommandContext(chatID int64, text string) *fakeContext {
	user := &tele.User{ID: chatID}
	return &fakeContext{
		update: tele.Update{ID: 1, Message: &tele.Message{
			ID:     10,
			Text:   text,
			Chat:   &tele.Chat{ID: chatID, Type: tele.ChatPrivate},
			Sender: user,
		}},
		store: map[string]any{},
	}
}

func newCallbackContext(chatID int64, data string) *fakeContext {
	user := &tele.User{ID: chatID}
	return &fakeContext{
		update: tele.Update{ID: 2, Callback: &tele.Callback{
			ID:     "cb",
			Sender: user,
			Data:   data,
			Message: &tele.Message{
				ID:   11,
				Chat: &tele.Chat{ID: chatID, Type: tele.ChatPrivate},
			},
		}},
		store: map[string]any{},
	}
}

func (f *fakeContext) Update() tele.Update       { return f.update }
func (f *fakeContext) Callback() *tele.Callback  { return f.update.Callback }
func (f *fakeContext) Get(key string) any        { return f.store[key] }
func (f *fakeContext) Set(key string, value any) { f.store[key] = value }

func (f *fakeContext) Message() *tele.Message {
	if f.update.Callback != nil {
		return f.update.Callback.Message
	}
	return f.update.Message
}

func (f *fakeContext) Chat() *tele.Chat {
	if m := f.Message(); m != nil {
		return m.Chat
	}
	return nil
}

func (f *fakeContext) Sender() *tele.User {
	if f.update.Callback != nil {
		return f.update.Callback.Sender
	}
	if f.update.Message != nil {
		return f.update.Message.Sender
	}
	return nil
}

func (f *fakeContext) Text() string {
	if f.update.Message != nil {
		return f.update.Message.Text
	}
	return ""
}

func (f *fakeContext) Respond(...*tele.CallbackResponse) error {
	f.calls = append(f.calls, "respond")
	return nil
}

func (f *fakeContext) Send(what any, _ ...any) error {
	switch v := what.(type) {
	case string:
		f.calls = append(f.calls, "send")
		f.texts = append(f.texts, v)
	case *tele.Document:
		f.calls = append(f.calls, "document")
		body, err := io.ReadAll(v.FileReader)
		if err != nil {
			return err
		}
		f.docs = append(f.docs, v)
		f.bodies = append(f.bodies, string(body))
	}
	return nil
}

func (f *fakeContext) EditOrSend(what any, opts ...any) error {
	if f.editErr != nil {
		return f.editErr
	}
	f.calls = append(f.calls, "show")
	f.texts = append(f.texts, what.(string))
	for _, o := range opts {
		if so, ok := o.(*tele.SendOptions); ok {
			f.markups = append(f.markups, so.ReplyMarkup)
		}
	}
	return nil
}

func testConfig(t *testing.T) *Config {
	t.Helper()
	dir := t.TempDir()
	notes := filepath.Join(dir, "notes")
	if err := os.MkdirAll(filepath.Join(notes, "Computer Networks"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(notes, "Computer Networks", "Unit-1.pdf"), []byte("%PDF unit 1"), 0o600); err != nil {
		t.Fatal(err)
	}
	return &Config{
		Config: coreconfig.Config{Telegram: coreconfig.TelegramConfig{Token: "123:abc", RunMode: coreconfig.RunModeLongpoll}},
		Catalog: CatalogConfig{BaseDir: notes},
		Journal: JournalConfig{SQLitePath: filepath.Join(dir, "journal.db")},
	}
}

func newTestApp(t *testing.T) *App {
	t.Helper()
	a, err := New(testConfig(t), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = a.journal.Close() })
	return a
}

func TestMenuFlow(t *testing.T) {
	a := newTestApp(t)
	const chat = int64(100)

	open := newCommandContext(chat, "/menu")
	if err := a.handleMenu(open); err != nil {
		t.Fatal(err)
	}
	if len(open.texts) != 1 || open.texts[0] != menu.RootPrompt {
		t.Fatalf("open texts = %v", open.texts)
	}
	kb := open.markups[0].InlineKeyboard
	if len(kb) != 1 || kb[0][0].Data != "subject_cn" || kb[0][0].Unique != "" || kb[0][0].Text != "📚 Computer Networks" {
		t.Fatalf("root keyboard = %+v", kb)
	}
	if s := a.sessions.Get(chat); s.State != stateRoot {
		t.Fatalf("session after open = %+v", s)
	}

	subject := newCallbackContext(chat, kb[0][0].Data)
	if err := a.handleCallback(subject); err != nil {
		t.Fatal(err)
	}
	if subject.texts[0] != menu.SubjectPrompt {
		t.Fatalf("subject text = %q", subject.texts[0])
	}
	items := subject.markups[0].InlineKeyboard
	if items[0][0].Data != "send_cn_cnunit1" || items[len(items)-1][0].Data != menu.BackToken {
		t.Fatalf("subject keyboard = %+v", items)
	}
	if s := a.sessions.Get(chat); s.State != stateSubject || s.Scope != "cn" {
		t.Fatalf("session after subject = %+v", s)
	}

	send := newCallbackContext(chat, items[0][0].Data)
	if err := a.handleCallback(send); err != nil {
		t.Fatal(err)
	}
	if len(send.docs) != 1 {
		t.Fatalf("calls = %v texts = %v", send.calls, send.texts)
	}
	if d := send.docs[0]; d.FileName != "Unit-1.pdf" || d.Caption != "Here's Unit-1.pdf" || send.bodies[0] != "%PDF unit 1" {
		t.Fatalf("document = %+v body %q", d, send.bodies[0])
	}
	if s := a.sessions.Get(chat); s.State != stateSubject {
		t.Fatalf("delivery must not change the session: %+v", s)
	}

	back := newCallbackContext(chat, menu.BackToken)
	if err := a.handleCallback(back); err != nil {
		t.Fatal(err)
	}
	if back.texts[0] != menu.RootPrompt || len(back.markups[0].InlineKeyboard) != len(kb) {
		t.Fatalf("back = %v", back.texts)
	}
	if s := a.sessions.Get(chat); s.State != stateRoot {
		t.Fatalf("session after back = %+v", s)
	}
}

func TestMissingFileNotice(t *testing.T) {
	a := newTestApp(t)
	c := newCallbackContext(1, "send_cn_cnunit2")
	if err := a.handleCallback(c); err != nil {
		t.Fatal(err)
	}
	if len(c.texts) != 1 || c.texts[0] != menu.MsgFileNotFound {
		t.Fatalf("texts = %v", c.texts)
	}
}

func TestCallbackRouteAcknowledgesFirst(t *testing.T) {
	a := newTestApp(t)
	reg, err := a.Registry()
	if err != nil {
		t.Fatal(err)
	}
	route := router.CallbackRoute(reg, router.CallbackOptions{NotFound: a.UnknownCallback()})

	cases := []struct {
		data string
		last string
		text string
	}{
		{"send_cn_cnunit1", "document", ""},
		{"subject_cn", "show", menu.SubjectPrompt},
		{"send_cn_nope", "send", menu.MsgInvalidSelection},
		{"totally_unknown", "send", menu.MsgInvalidSelection},
	}
	for _, tc := range cases {
		c := newCallbackContext(5, tc.data)
		if err := route.Handler(c); err != nil {
			t.Fatalf("%s: %v", tc.data, err)
		}
		if len(c.calls) != 2 || c.calls[0] != "respond" || c.calls[1] != tc.last {
			t.Fatalf("%s: calls = %v", tc.data, c.calls)
		}
		if tc.text != "" && (len(c.texts) != 1 || c.texts[0] != tc.text) {
			t.Fatalf("%s: texts = %v", tc.data, c.texts)
		}
	}
}

func TestStatsReportsDeliveries(t *testing.T) {
	a := newTestApp(t)
	for _, data := range []string{"send_cn_cnunit1", "send_cn_cnunit2", "send_cn_cnunit1"} {
		if err := a.handleCallback(newCallbackContext(9, data)); err != nil {
			t.Fatal(err)
		}
	}
	c := newCommandContext(9, "/stats")
	if err := a.handleStats(c); err != nil {
		t.Fatal(err)
	}
	if len(c.texts) != 1 || !strings.Contains(c.texts[0], "ok: 2") || !strings.Contains(c.texts[0], "missing: 1") {
		t.Fatalf("stats = %v", c.texts)
	}
}

func TestRepeatedSubjectPressIsNotAnError(t *testing.T) {
	a := newTestApp(t)
	c := newCallbackContext(6, "subject_cn")
	c.editErr = tele.ErrSameMessageContent
	if err := a.handleCallback(c); err != nil {
		t.Fatalf("unchanged message must not fail the handler: %v", err)
	}
	if s := a.sessions.Get(6); s.State != stateSubject || s.Scope != "cn" {
		t.Fatalf("session = %+v", s)
	}

	failing := newCallbackContext(6, "subject_cn")
	failing.editErr = errors.New("chat not found")
	if err := a.handleCallback(failing); err == nil {
		t.Fatal("other edit errors must still surface")
	}
}

func TestUnknownTextResumesSubject(t *testing.T) {
	a := newTestApp(t)
	const chat = int64(4)
	if err := a.handleCallback(newCallbackContext(chat, "subject_cn")); err != nil {
		t.Fatal(err)
	}

	c := newCommandContext(chat, "where was I")
	if err := a.UnknownText()(c); err != nil {
		t.Fatal(err)
	}
	if len(c.calls) != 1 || c.calls[0] != "show" || c.texts[0] != menu.SubjectPrompt {
		t.Fatalf("calls = %v texts = %v", c.calls, c.texts)
	}
	items := c.markups[0].InlineKeyboard
	if items[0][0].Data != "send_cn_cnunit1" || items[len(items)-1][0].Data != menu.BackToken {
		t.Fatalf("resumed keyboard = %+v", items)
	}

	back := newCallbackContext(chat, menu.BackToken)
	if err := a.handleCallback(back); err != nil {
		t.Fatal(err)
	}
	root := newCommandContext(chat, "hello again")
	if err := a.UnknownText()(root); err != nil {
		t.Fatal(err)
	}
	if len(root.texts) != 1 || root.texts[0] != msgUseMenu {
		t.Fatalf("texts at root = %v", root.texts)
	}
}

func TestFailedStartReleasesJournal(t *testing.T) {
	a := newTestApp(t)
	busy, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer busy.Close()
	port := busy.Addr().(*net.TCPAddr).Port
	a.keepalive = keepalive.New("127.0.0.1", port)

	ctx := context.Background()
	if err := a.start(ctx, coretelegram.Runtime{}); err == nil {
		t.Fatal("start must fail on a bound port")
	}
	if err := a.stop(ctx, coretelegram.Runtime{}); err != nil {
		t.Fatalf("stop after failed start: %v", err)
	}
	if _, err := a.journal.Stats(ctx); err == nil {
		t.Fatal("journal must be closed by stop")
	}
}

func TestFallbacks(t *testing.T) {
	a := newTestApp(t)
	c := newCommandContext(3, "hello")
	if err := a.UnknownText()(c); err != nil {
		t.Fatal(err)
	}
	if err := a.UnknownDocument()(c); err != nil {
		t.Fatal(err)
	}
	if len(c.texts) != 2 || c.texts[0] != msgUseMenu || c.texts[1] != msgUseMenu {
		t.Fatalf("texts = %v", c.texts)
	}
}

func TestTelegramRunOptions(t *testing.T) {
	a := newTestApp(t)
	opts, err := a.TelegramRunOptions()
	if err != nil {
		t.Fatal(err)
	}
	if opts.Config != a.cfg.CoreConfig() || opts.Registry == nil {
		t.Fatal("config and registry must be set")
	}
	// /menu, /start, /stats, callbacks, text, documents
	if len(opts.Routes) != 6 {
		t.Fatalf("routes = %d", len(opts.Routes))
	}
	if len(opts.Middlewares) != 3 || opts.OnStart == nil || opts.OnStop == nil {
		t.Fatal("middlewares and lifecycle hooks must be set")
	}
	if visible := opts.Registry.ListCommands(true); len(visible) != 1 || visible[0].Text != "menu" {
		t.Fatalf("visible commands = %+v", visible)
	}
	for _, key := range []string{"subject_cn", "send_cn_cnunit1", "back_to_menu"} {
		if _, _, ok := opts.Registry.MatchCallback(key); !ok {
			t.Fatalf("callback %s not routed", key)
		}
	}
}

func TestLifecycleStartsAndStopsKeepAlive(t *testing.T) {
	a := newTestApp(t)
	a.keepalive = keepalive.New("127.0.0.1", 0)

	ctx := context.Background()
	if err := a.start(ctx, coretelegram.Runtime{}); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := a.stop(ctx, coretelegram.Runtime{}); err != nil {
		t.Fatalf("stop: %v", err)
	}
}
