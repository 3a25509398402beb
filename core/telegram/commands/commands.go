// Package commands describes slash commands registered with the bot.
package commands

import (
	tele "gopkg.in/telebot.v4"
)

// Command is a slash command handler plus what the command menu shows.
type Command struct {
	Handler tele.HandlerFunc
	// Description is the menu text; required even for hidden commands.
	Description string
	// Hidden commands are routed but left out of the Telegram menu.
	Hidden bool
	// Aliases resolve to this command; the leading slash is optional.
	Aliases []string
}
