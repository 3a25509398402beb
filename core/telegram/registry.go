package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/m3rciful/notesbot/core/logger"
	"github.com/m3rciful/notesbot/core/telegram/commands"

	tele "gopkg.in/telebot.v4"
)

var (
	// ErrInvalidRegistration is returned for empty names, keys or handlers.
	ErrInvalidRegistration = errors.New("telegram: invalid registration")
	// ErrDuplicateRegistration is returned when a name, alias or key is taken.
	ErrDuplicateRegistration = errors.New("telegram: duplicate registration")
)

// Registry holds bot commands and callbacks.
//
// Callback keys ending in "_" match any callback data with that prefix; other
// keys match exactly. Exact matches win, then the longest prefix.
type Registry struct {
	mu               sync.RWMutex
	commands         map[string]commands.Command
	aliases          map[string]string
	callbacks        map[string]tele.HandlerFunc
	callbackNotFound tele.HandlerFunc
	textFallback     tele.HandlerFunc
}

// NewRegistry creates an empty Registry with a generic unknown-callback reply.
func NewRegistry() *Registry {
	return &Registry{
		commands:  make(map[string]commands.Command),
		aliases:   make(map[string]string),
		callbacks: make(map[string]tele.HandlerFunc),
		callbackNotFound: func(c tele.Context) error {
			return c.Send("Unsupported action")
		},
	}
}

func slashed(name string) string {
	if strings.HasPrefix(name, "/") {
		return name
	}
	return "/" + name
}

// RegisterCommand adds a command under name, which must start with "/".
// Aliases may omit the slash.
func (r *Registry) RegisterCommand(name string, cmd commands.Command) error {
	if !strings.HasPrefix(name, "/") || len(name) < 2 || cmd.Handler == nil || cmd.Description == "" {
		return r.reject("command", name, ErrInvalidRegistration)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	taken := func(n string) bool {
		_, isCmd := r.commands[n]
		_, isAlias := r.aliases[n]
		return isCmd || isAlias
	}
	if taken(name) {
		return r.reject("command", name, ErrDuplicateRegistration)
	}
	for _, a := range cmd.Aliases {
		if a = slashed(strings.TrimSpace(a)); a == "/" || a == name || taken(a) {
			return r.reject("command", a, ErrDuplicateRegistration)
		}
	}
	r.commands[name] = cmd
	for _, a := range cmd.Aliases {
		r.aliases[slashed(strings.TrimSpace(a))] = name
	}
	return nil
}

func (r *Registry) reject(kind, name string, err error) error {
	logger.LogEvent(context.Background(), logger.TWire, slog.LevelWarn, "register."+kind+".skip",
		slog.String("name", name),
		slog.String("err", err.Error()),
	)
	return fmt.Errorf("%w: %s %q", err, kind, name)
}

// ListCommands returns the commands for the Telegram command menu, sorted by name.
func (r *Registry) ListCommands(visibleOnly bool) []tele.Command {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var list []tele.Command
	for _, name := range slices.Sorted(maps.Keys(r.commands)) {
		cmd := r.commands[name]
		if visibleOnly && cmd.Hidden {
			continue
		}
		list = append(list, tele.Command{Text: strings.TrimPrefix(name, "/"), Description: cmd.Description})
	}
	return list
}

// LookupCommand resolves message text such as "/start@bot arg" to the
// canonical command name.
func (r *Registry) LookupCommand(text string) (string, commands.Command, bool) {
	name, _, _ := strings.Cut(strings.TrimSpace(text), " ")
	name, _, _ = strings.Cut(name, "@")
	name = slashed(name)

	r.mu.RLock()
	defer r.mu.RUnlock()
	if canonical, ok := r.aliases[name]; ok {
		name = canonical
	}
	cmd, ok := r.commands[name]
	if !ok {
		return "", commands.Command{}, false
	}
	return name, cmd, true
}

// Commands returns a copy of the registered commands keyed by name.
func (r *Registry) Commands() map[string]commands.Command {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return maps.Clone(r.commands)
}

// RegisterCallback adds a callback handler mapped to its key or key prefix.
func (r *Registry) RegisterCallback(key string, handler tele.HandlerFunc) error {
	if key == "" || handler == nil {
		return r.reject("callback", key, ErrInvalidRegistration)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.callbacks[key]; exists {
		return r.reject("callback", key, ErrDuplicateRegistration)
	}
	r.callbacks[key] = handler
	return nil
}

// MatchCallback resolves callback data to the registered key and handler.
// A prefix key never matches data equal to the bare prefix.
func (r *Registry) MatchCallback(data string) (string, tele.HandlerFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if h, ok := r.callbacks[data]; ok && !strings.HasSuffix(data, "_") {
		return data, h, true
	}
	best := ""
	for key := range r.callbacks {
		if strings.HasSuffix(key, "_") && len(data) > len(key) && strings.HasPrefix(data, key) && len(key) > len(best) {
			best = key
		}
	}
	if best == "" {
		return "", nil, false
	}
	return best, r.callbacks[best], true
}

// ListCallbacks returns the registered callback keys, sorted.
func (r *Registry) ListCallbacks() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.callbacks))
}

// SetCallbackNotFound replaces the handler for unmatched callbacks.
func (r *Registry) SetCallbackNotFound(h tele.HandlerFunc) {
	if h != nil {
		r.callbackNotFound = h
	}
}

// CallbackNotFound returns the handler for unmatched callbacks.
func (r *Registry) CallbackNotFound() tele.HandlerFunc {
	return r.callbackNotFound
}

// SetTextFallback sets the handler for text that is not a command.
func (r *Registry) SetTextFallback(h tele.HandlerFunc) {
	r.textFallback = h
}

// TextFallback returns the handler for text that is not a command.
func (r *Registry) TextFallback() tele.HandlerFunc {
	return r.textFallback
}

// SetupCommands publishes the visible commands to the Telegram command menu.
func SetupCommands(bot *tele.Bot, reg *Registry) {
	if bot == nil || reg == nil {
		return
	}
	list := reg.ListCommands(true)
	if len(list) == 0 {
		return
	}
	if err := bot.SetCommands(list); err != nil {
		logger.LogEvent(context.Background(), logger.TWire, slog.LevelError, "register.commands.set_failed",
			slog.String("err", err.Error()),
		)
	}
}
