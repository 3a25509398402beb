package catalog

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Label derives a button caption from a command id: the subject prefix is
// removed, underscores become spaces and each word is title-cased.
//
//	Label("cn", "cnunit1")       == "Unit1"
//	Label("cn", "cnunit3_part1") == "Unit3 Part1"
//
// A command that is nothing but the prefix keeps its own text.
func Label(subject, command string) string {
	rest := command
	if prefix := normalizePrefix(subject); prefix != "" && len(rest) > len(prefix) && strings.HasPrefix(rest, prefix) {
		rest = rest[len(prefix):]
	}
	words := strings.Fields(strings.ReplaceAll(rest, "_", " "))
	if len(words) == 0 {
		words = strings.Fields(strings.ReplaceAll(command, "_", " "))
	}
	// Casers keep state; one per call.
	return cases.Title(language.Und).String(strings.Join(words, " "))
}

func normalizePrefix(subject string) string {
	return strings.ToLower(strings.ReplaceAll(subject, " ", ""))
}
