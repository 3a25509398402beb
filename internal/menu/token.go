package menu

import (
	"errors"
	"strings"
)

// Callback token prefixes and the fixed back token.
const (
	SubjectPrefix = "subject_"
	SendPrefix    = "send_"
	BackToken     = "back_to_menu"
)

// ErrInvalidToken reports callback data that is not a menu token.
var ErrInvalidToken = errors.New("menu: invalid token")

// ActionKind identifies the transition a token requests.
type ActionKind int

const (
	ActionSubject ActionKind = iota + 1
	ActionSend
	ActionBack
)

func (k ActionKind) String() string {
	switch k {
	case ActionSubject:
		return "subject"
	case ActionSend:
		return "send"
	case ActionBack:
		return "back"
	}
	return "unknown"
}

// Action is a decoded callback token. Subject is empty for send tokens that
// carry only a command id.
type Action struct {
	Kind    ActionKind
	Subject string
	Command string
}

// SubjectToken encodes the token that opens a subject's item list.
func SubjectToken(subject string) string {
	return SubjectPrefix + subject
}

// SendToken encodes the token that requests a document.
func SendToken(subject, command string) string {
	return SendPrefix + subject + "_" + command
}

// ParseToken decodes callback data. Subject keys never contain '_', so a send
// token splits at the first underscore after the prefix; a send token without
// one names a command only.
func ParseToken(token string) (Action, error) {
	switch {
	case token == BackToken:
		return Action{Kind: ActionBack}, nil
	case strings.HasPrefix(token, SubjectPrefix):
		subject := token[len(SubjectPrefix):]
		if subject == "" {
			return Action{}, ErrInvalidToken
		}
		return Action{Kind: ActionSubject, Subject: subject}, nil
	case strings.HasPrefix(token, SendPrefix):
		rest := token[len(SendPrefix):]
		subject, command, found := strings.Cut(rest, "_")
		if !found {
			if rest == "" {
				return Action{}, ErrInvalidToken
			}
			return Action{Kind: ActionSend, Command: rest}, nil
		}
		if subject == "" || command == "" {
			return Action{}, ErrInvalidToken
		}
		return Action{Kind: ActionSend, Subject: subject, Command: command}, nil
	}
	return Action{}, ErrInvalidToken
}
