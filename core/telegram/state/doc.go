// Package state keeps the per-chat conversation position of a Telegram bot
// in memory. Nothing here survives a restart.
package state
