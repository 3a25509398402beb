package app

import (
	"fmt"
	"strings"

	coreconfig "github.com/m3rciful/notesbot/core/config"
	coredatabase "github.com/m3rciful/notesbot/core/database"
)

const defaultNotesDir = "notes"

// CatalogConfig locates the documents and the catalog describing them.
type CatalogConfig struct {
	// BaseDir is the directory subject folders live in.
	BaseDir string `yaml:"base_dir" envconfig:"NOTES_DIR"`
	// Path points at a catalog YAML file; empty uses the built-in catalog.
	Path                 string `yaml:"path" envconfig:"CATALOG_PATH"`
	FlattenSingleSubject bool   `yaml:"flatten_single_subject" envconfig:"CATALOG_FLATTEN_SINGLE_SUBJECT"`
}

// KeepAliveConfig enables the liveness HTTP responder when Port > 0.
type KeepAliveConfig struct {
	Listen string `yaml:"listen" envconfig:"KEEPALIVE_LISTEN"`
	Port   int    `yaml:"port" envconfig:"PORT"`
}

// Enabled reports whether the responder should run.
func (c KeepAliveConfig) Enabled() bool {
	return c.Port > 0
}

// JournalConfig selects the delivery journal backend. A configured database
// takes precedence over SQLitePath.
type JournalConfig struct {
	SQLitePath string `yaml:"sqlite_path" envconfig:"JOURNAL_SQLITE_PATH"`
}

// Config is the full application configuration.
type Config struct {
	coreconfig.Config `yaml:",inline"`

	Database  coredatabase.Config `yaml:"database"`
	Catalog   CatalogConfig       `yaml:"catalog"`
	KeepAlive KeepAliveConfig     `yaml:"keepalive"`
	Journal   JournalConfig       `yaml:"journal"`
}

// CoreConfig exposes the embedded core configuration.
func (c *Config) CoreConfig() *coreconfig.Config {
	if c == nil {
		return nil
	}
	return &c.Config
}

// LoadConfig reads path (skipped when empty), overlays the environment and
// validates the result.
func LoadConfig(path string) (*Config, error) {
	var cfg Config
	if err := coreconfig.LoadInto(path, &cfg); err != nil {
		return nil, err
	}
	if err := coreconfig.Normalize(&cfg.Config); err != nil {
		return nil, err
	}
	if err := normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func normalize(cfg *Config) error {
	cfg.Catalog.BaseDir = strings.TrimSpace(cfg.Catalog.BaseDir)
	if cfg.Catalog.BaseDir == "" {
		cfg.Catalog.BaseDir = defaultNotesDir
	}
	cfg.Catalog.Path = strings.TrimSpace(cfg.Catalog.Path)
	if cfg.KeepAlive.Port < 0 || cfg.KeepAlive.Port > 65535 {
		return fmt.Errorf("keepalive.port must be between 0 and 65535, got %d", cfg.KeepAlive.Port)
	}
	if cfg.KeepAlive.Enabled() && cfg.Telegram.RunMode == coreconfig.RunModeWebhook && cfg.KeepAlive.Port == cfg.Webhook.Port {
		return fmt.Errorf("keepalive.port %d collides with webhook.port", cfg.KeepAlive.Port)
	}
	cfg.Journal.SQLitePath = strings.TrimSpace(cfg.Journal.SQLitePath)
	return nil
}
