package logger

import (
	"log/slog"
	"strings"
)

// levelName reports the four standard levels by name. Levels in between
// keep slog's offset notation, such as "INFO+2".
func levelName(l slog.Level) string {
	return strings.ToUpper(l.String())
}

// Status values are only lowercased. Outcomes are a closed vocabulary; unknown values are dropped from the line.
var knownOutcome = set("ok", "fail", "missing", "invalid", "cancelled")

func set(vals ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(vals))
	for _, v := range vals {
		m[v] = struct{}{}
	}
	return m
}

func normalizeStatus(status string) string {
	return strings.ToLower(strings.TrimSpace(status))
}

func normalizeOutcome(outcome string) (string, bool) {
	outcome = strings.ToLower(strings.TrimSpace(outcome))
	_, ok := knownOutcome[outcome]
	return outcome, ok
}

// defaultKeyOrder puts identifying keys first in kv output and JSON.
// Keys not listed follow in lexical order.
var defaultKeyOrder = []string{
	"ts", "level", "component", "event", "status",
	"rid", "rid_full", "ts_unix_nano",
	"update_id", "user_id", "chat_id", "chat_type",
	"handler", "cb_key", "screen", "from_screen",
	"subject", "command", "path", "file", "outcome",
	"duration_ms", "messages", "documents", "kb", "count",
	"subjects", "entries", "payload", "lang", "username",
	"instance", "mode", "listen", "public_url", "http_code",
	"db", "host", "port",
	"err", "err_code", "cause", "attempts",
}
