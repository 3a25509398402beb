// Package config loads the settings shared by every bot binary. Values come
// from an optional YAML file and are then overridden by the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

const (
	// RunModeWebhook receives updates through an HTTPS webhook.
	RunModeWebhook = "webhook"
	// RunModeLongpoll receives updates with getUpdates long polling.
	RunModeLongpoll = "longpoll"
)

// TelegramConfig holds the bot token and how updates are received.
type TelegramConfig struct {
	Token   string `yaml:"token" envconfig:"BOT_TOKEN"`
	RunMode string `yaml:"run_mode" envconfig:"TELEGRAM_RUN_MODE"`
	// LongPollTimeoutSeconds is the getUpdates timeout; 0 uses the default.
	LongPollTimeoutSeconds int `yaml:"longpoll_timeout_seconds" envconfig:"TELEGRAM_LONGPOLL_TIMEOUT_SECONDS"`
}

// WebhookConfig is required when RunMode is webhook.
type WebhookConfig struct {
	URL    string `yaml:"url" envconfig:"WEBHOOK_URL"`
	Listen string `yaml:"listen" envconfig:"WEBHOOK_LISTEN"`
	Port   int    `yaml:"port" envconfig:"WEBHOOK_PORT"`
}

// LoggingConfig configures core/logger.
type LoggingConfig struct {
	Level  string `yaml:"level" envconfig:"LOG_LEVEL"`
	Format string `yaml:"format" envconfig:"LOG_FORMAT"`
	// KeysOrder is a comma separated key list, or "default".
	KeysOrder string `yaml:"keys_order"`
	// DebugSample is "N/M"; "0" turns sampled debug lines off.
	DebugSample string `yaml:"debug_sample"`
	Dir         string `yaml:"dir" envconfig:"LOG_DIR"`
	BotFile     string `yaml:"bot_file"`
	Profile     string `yaml:"profile" envconfig:"LOG_PROFILE"`
}

// Config is the core part of an application config.
type Config struct {
	Telegram TelegramConfig `yaml:"telegram"`
	Webhook  WebhookConfig  `yaml:"webhook"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// Load reads path, overlays the environment and normalizes the result.
func Load(path string) (*Config, error) {
	cfg := new(Config)
	if err := LoadInto(path, cfg); err != nil {
		return nil, err
	}
	if err := Normalize(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadInto decodes the YAML file at path into dst, then applies envconfig
// overrides. An empty path reads the environment only.
func LoadInto(path string, dst any) error {
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, dst); err != nil {
			return fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	if err := envconfig.Process("", dst); err != nil {
		return fmt.Errorf("config: environment: %w", err)
	}
	return nil
}

// ParseRunMode maps a configured run mode to RunModeWebhook or
// RunModeLongpoll. Empty and "polling" mean long polling.
func ParseRunMode(raw string) (string, error) {
	switch mode := strings.ToLower(strings.TrimSpace(raw)); mode {
	case "", "polling", RunModeLongpoll:
		return RunModeLongpoll, nil
	case RunModeWebhook:
		return RunModeWebhook, nil
	default:
		return "", fmt.Errorf("invalid telegram.run_mode %q; allowed: webhook, longpoll", raw)
	}
}

// Normalize trims values, resolves the run mode and reports every invalid
// field at once.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return errors.New("config: nil config")
	}
	var errs []error

	cfg.Telegram.Token = strings.TrimSpace(cfg.Telegram.Token)
	if cfg.Telegram.Token == "" {
		errs = append(errs, errors.New("telegram token is required"))
	}

	mode, err := ParseRunMode(cfg.Telegram.RunMode)
	if err != nil {
		return errors.Join(append(errs, err)...)
	}
	cfg.Telegram.RunMode = mode

	switch mode {
	case RunModeWebhook:
		cfg.Webhook.URL = strings.TrimSpace(cfg.Webhook.URL)
		cfg.Webhook.Listen = strings.TrimSpace(cfg.Webhook.Listen)
		if cfg.Webhook.URL == "" {
			errs = append(errs, errors.New("webhook.url is required in webhook mode"))
		}
		if cfg.Webhook.Listen == "" {
			errs = append(errs, errors.New("webhook.listen is required in webhook mode"))
		}
		if cfg.Webhook.Port <= 0 {
			errs = append(errs, errors.New("webhook.port must be > 0 in webhook mode"))
		}
	case RunModeLongpoll:
		if cfg.Telegram.LongPollTimeoutSeconds < 0 {
			errs = append(errs, errors.New("telegram.longpoll_timeout_seconds must be >= 0"))
		}
	}
	return errors.Join(errs...)
}
