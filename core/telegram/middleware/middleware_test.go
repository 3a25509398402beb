package middleware

import (
	"errors"
	"testing"

	tghelpers "github.com/m3rciful/notesbot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

type stubContext struct {
	tele.Context
	store   map[string]any
	sendErr error
	sent    int
}

func newStubContext() *stubContext {
	return &stubContext{store: map[string]any{}}
}

func (s *stubContext) Update() tele.Update {
	return tele.Update{ID: 9, Message: &tele.Message{Chat: &tele.Chat{ID: 1}, Sender: &tele.User{ID: 2}}}
}
func (s *stubContext) Chat() *tele.Chat        { return &tele.Chat{ID: 1, Type: tele.ChatPrivate} }
func (s *stubContext) Sender() *tele.User      { return &tele.User{ID: 2} }
func (s *stubContext) Text() string            { return "/menu" }
func (s *stubContext) Get(key string) any      { return s.store[key] }
func (s *stubContext) Set(key string, val any) { s.store[key] = val }

func (s *stubContext) Send(any, ...any) error {
	if s.sendErr != nil {
		return s.sendErr
	}
	s.sent++
	return nil
}

func (s *stubContext) EditOrSend(what any, opts ...any) error { return s.Send(what, opts...) }

func TestRecoverReturnsPanicAsError(t *testing.T) {
	h := Recover(func(tele.Context) error { panic("boom") })
	err := h(newStubContext())
	if err == nil || err.Error() != "panic: boom" {
		t.Fatalf("expected panic error, got %v", err)
	}
}

func TestScopeOpensOnce(t *testing.T) {
	c := newStubContext()
	var first, second *tghelpers.Scope
	h := Scope(func(c tele.Context) error {
		first = tghelpers.ScopeOf(c)
		return Scope(func(c tele.Context) error {
			second = tghelpers.ScopeOf(c)
			return nil
		})(c)
	})
	if err := h(c); err != nil {
		t.Fatal(err)
	}
	if first == nil || first != second {
		t.Fatal("nested Scope must reuse the update scope")
	}
}

func TestCountersRecordOnlySuccessfulSends(t *testing.T) {
	c := newStubContext()
	h := Counters(func(c tele.Context) error {
		_ = c.Send("text")
		_ = c.EditOrSend("menu", &tele.SendOptions{ReplyMarkup: &tele.ReplyMarkup{}})
		_ = c.Send(&tele.Document{FileName: "Unit-1.pdf"})
		return nil
	})
	if err := h(c); err != nil {
		t.Fatal(err)
	}
	got := tghelpers.ScopeOf(c).Counters()
	want := tghelpers.Counters{Messages: 2, Documents: 1, Keyboard: true}
	if got != want {
		t.Fatalf("counters = %+v, want %+v", got, want)
	}

	failing := newStubContext()
	failing.sendErr = errors.New("blocked")
	_ = Counters(func(c tele.Context) error { return c.Send("x") })(failing)
	if n := tghelpers.ScopeOf(failing).Counters().Messages; n != 0 {
		t.Fatalf("failed send must not count, got %d", n)
	}
}
