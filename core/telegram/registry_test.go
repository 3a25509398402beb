package telegram

import (
	"errors"
	"testing"
	"time"

	"github.com/m3rciful/notesbot/core/telegram/commands"

	tele "gopkg.in/telebot.v4"
)

func nopHandler(tele.Context) error { return nil }

func TestMatchCallbackPrefersExactThenLongestPrefix(t *testing.T) {
	reg := NewRegistry()
	for _, key := range []string{"subject_", "send_", "send_cn_", "back_to_menu"} {
		if err := reg.RegisterCallback(key, nopHandler); err != nil {
			t.Fatalf("register %s: %v", key, err)
		}
	}

	cases := []struct {
		data string
		key  string
		ok   bool
	}{
		{"back_to_menu", "back_to_menu", true},
		{"subject_cn", "subject_", true},
		{"send_cn_cnunit1", "send_cn_", true},
		{"send_os_osunit1", "send_", true},
		{"send_", "", false},
		{"subject", "", false},
		{"back_to_menu_extra", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		key, h, ok := reg.MatchCallback(tc.data)
		if ok != tc.ok || key != tc.key {
			t.Errorf("MatchCallback(%q) = (%q, %v), want (%q, %v)", tc.data, key, ok, tc.key, tc.ok)
		}
		if ok && h == nil {
			t.Errorf("MatchCallback(%q) returned nil handler", tc.data)
		}
	}
}

func TestRegisterCallbackRejectsDuplicates(t *testing.T) {
	reg := NewRegistry()
	if err := reg.RegisterCallback("send_", nopHandler); err != nil {
		t.Fatal(err)
	}
	if err := reg.RegisterCallback("send_", nopHandler); !errors.Is(err, ErrDuplicateRegistration) {
		t.Fatal("expected duplicate registration error")
	}
	if err := reg.RegisterCallback("", nopHandler); !errors.Is(err, ErrInvalidRegistration) {
		t.Fatal("expected error for empty key")
	}
}

func TestLookupCommandResolvesAliases(t *testing.T) {
	reg := NewRegistry()
	if err := reg.RegisterCommand("/menu", commands.Command{Handler: nopHandler, Description: "Browse", Aliases: []string{"start"}}); err != nil {
		t.Fatal(err)
	}
	if err := reg.RegisterCommand("nope", commands.Command{Handler: nopHandler, Description: "no slash"}); !errors.Is(err, ErrInvalidRegistration) {
		t.Fatalf("expected ErrInvalidRegistration, got %v", err)
	}
	if err := reg.RegisterCommand("/start", commands.Command{Handler: nopHandler, Description: "clash"}); !errors.Is(err, ErrDuplicateRegistration) {
		t.Fatalf("alias clash must be rejected, got %v", err)
	}

	for _, in := range []string{"/menu", "menu", "/start", "/start@notes_bot", "/menu extra"} {
		key, _, ok := reg.LookupCommand(in)
		if !ok || key != "/menu" {
			t.Errorf("LookupCommand(%q) = (%q, %v)", in, key, ok)
		}
	}
	if _, _, ok := reg.LookupCommand("/help"); ok {
		t.Error("unexpected match for /help")
	}
	if len(reg.Commands()) != 1 {
		t.Fatalf("commands without slash must be skipped, got %d", len(reg.Commands()))
	}
}

func TestListCommandsHidesHidden(t *testing.T) {
	reg := NewRegistry()
	_ = reg.RegisterCommand("/menu", commands.Command{Handler: nopHandler, Description: "Browse"})
	_ = reg.RegisterCommand("/debug", commands.Command{Handler: nopHandler, Description: "Debug", Hidden: true})

	visible := reg.ListCommands(true)
	if len(visible) != 1 || visible[0].Text != "menu" {
		t.Fatalf("unexpected visible commands %+v", visible)
	}
	if all := reg.ListCommands(false); len(all) != 2 {
		t.Fatalf("expected 2 commands, got %d", len(all))
	}
}

func TestBuildPoller(t *testing.T) {
	wh, ok := BuildPoller(PollerOptions{
		RunMode: "webhook",
		Webhook: WebhookOptions{Listen: "0.0.0.0", Port: 8443, URL: "https://example.org/hook"},
	}).(*tele.Webhook)
	if !ok {
		t.Fatal("expected webhook poller")
	}
	if wh.Listen != "0.0.0.0:8443" || wh.Endpoint.PublicURL != "https://example.org/hook" {
		t.Fatalf("unexpected webhook %+v", wh)
	}

	lp, ok := BuildPoller(PollerOptions{RunMode: "longpoll"}).(*tele.LongPoller)
	if !ok || lp.Timeout != 10*time.Second {
		t.Fatalf("unexpected long poller %+v", lp)
	}
	lp = BuildPoller(PollerOptions{LongPollTimeoutSeconds: 30}).(*tele.LongPoller)
	if lp.Timeout != 30*time.Second {
		t.Fatalf("timeout = %v, want 30s", lp.Timeout)
	}
	if len(lp.AllowedUpdates) != 2 || len(wh.AllowedUpdates) != 2 {
		t.Fatalf("allowed updates: poller %v, webhook %v", lp.AllowedUpdates, wh.AllowedUpdates)
	}
}
