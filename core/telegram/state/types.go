package state

import "time"

// State identifies where a chat currently is in the bot's menus.
type State string

const (
	// StateIdle indicates there is no active conversation with the chat.
	StateIdle State = "idle"
)

// Session stores the conversation position for a chat.
type Session struct {
	State State
	// Scope narrows State, e.g. the subject whose item list is shown.
	Scope     string
	UpdatedAt time.Time
}

// Manager stores sessions keyed by chat id. Implementations must be safe for
// concurrent use.
type Manager interface {
	Get(chatID int64) Session
	Set(chatID int64, st State, scope string) Session
	Clear(chatID int64)
	// Prune drops sessions untouched since before and reports how many were removed.
	Prune(before time.Time) int
	Len() int
}
