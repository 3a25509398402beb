// Package cmd holds the process entrypoint shared by bot binaries: dotenv and
// config loading, bootstrap, signal handling and the lifecycle log lines.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	coreconfig "github.com/m3rciful/notesbot/core/config"
	"github.com/m3rciful/notesbot/core/logger"
	coretelegram "github.com/m3rciful/notesbot/core/telegram"
)

const defaultConfigEnv = "CONFIG_PATH"

// ConfigCarrier is an application config that embeds the core config.
type ConfigCarrier interface {
	CoreConfig() *coreconfig.Config
}

// TelegramApp builds the options the Telegram runtime is started with.
type TelegramApp interface {
	TelegramRunOptions() (coretelegram.RunOptions, error)
}

// Options describe how to load configuration, bootstrap the app and run it.
type Options struct {
	// ConfigEnvVar names the variable holding the config path. Defaults to
	// CONFIG_PATH.
	ConfigEnvVar      string
	DefaultConfigPath string
	// ConfigOptional lets the app start from the environment alone when the
	// default config file does not exist. A path from the environment is
	// always passed through.
	ConfigOptional bool
	// DotEnvFiles are loaded before configuration; missing files are
	// ignored. Defaults to ".env".
	DotEnvFiles []string

	LoadConfig func(path string) (ConfigCarrier, error)
	Bootstrap  func(cfg ConfigCarrier) (TelegramApp, error)

	ShutdownLogger func() error
	RunTelegram    func(ctx context.Context, opts coretelegram.RunOptions) error
}

// Run loads configuration, bootstraps the app and serves until SIGINT or
// SIGTERM.
func Run(opts Options) error {
	switch {
	case opts.LoadConfig == nil:
		return errors.New("cmd: LoadConfig is required")
	case opts.Bootstrap == nil:
		return errors.New("cmd: Bootstrap is required")
	}
	startedAt := time.Now()

	cfg, err := load(opts)
	if err != nil {
		return err
	}
	app, err := opts.Bootstrap(cfg)
	if err != nil {
		return fmt.Errorf("cmd: bootstrap failed: %w", err)
	}

	shutdown := opts.ShutdownLogger
	if shutdown == nil {
		shutdown = logger.Shutdown
	}
	defer func() {
		if err := shutdown(); err != nil {
			log.Printf("logger shutdown: %v", err)
		}
	}()

	runOpts, err := app.TelegramRunOptions()
	if err != nil {
		return fmt.Errorf("cmd: telegram options build failed: %w", err)
	}
	runOpts = withLifecycleEvents(runOpts, startedAt)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serve := opts.RunTelegram
	if serve == nil {
		serve = coretelegram.RunTelegram
	}
	return serve(ctx, runOpts)
}

// load runs before the structured logger exists, so it reports through the
// standard log package.
func load(opts Options) (ConfigCarrier, error) {
	loadDotEnv(opts.DotEnvFiles)

	path, err := resolveConfigPath(opts)
	if err != nil {
		return nil, err
	}
	source := path
	if source == "" {
		source = "environment"
	}
	log.Printf("loading config from %s", source)

	cfg, err := opts.LoadConfig(path)
	if err != nil {
		return nil, fmt.Errorf("cmd: failed to load config: %w", err)
	}
	if cfg == nil || cfg.CoreConfig() == nil {
		return nil, errors.New("cmd: loaded config is missing core configuration")
	}
	return cfg, nil
}

// withLifecycleEvents logs "ready" after OnStart succeeds and "shutdown"
// before OnStop runs.
func withLifecycleEvents(ro coretelegram.RunOptions, startedAt time.Time) coretelegram.RunOptions {
	app := logger.Component("app")
	onStart, onStop := ro.OnStart, ro.OnStop

	ro.OnStart = func(ctx context.Context, rt coretelegram.Runtime) error {
		if onStart != nil {
			if err := onStart(ctx, rt); err != nil {
				return err
			}
		}
		attrs := []slog.Attr{slog.Duration("startup", time.Since(startedAt))}
		if rt.Registry != nil {
			attrs = append(attrs, slog.Int("commands", len(rt.Registry.Commands())))
		}
		logger.LogEvent(ctx, app, slog.LevelInfo, "ready", attrs...)
		return nil
	}
	ro.OnStop = func(ctx context.Context, rt coretelegram.Runtime) error {
		logger.LogEvent(ctx, app, slog.LevelInfo, "shutdown",
			slog.Duration("uptime", time.Since(startedAt)),
		)
		if onStop == nil {
			return nil
		}
		return onStop(ctx, rt)
	}
	return ro
}

func loadDotEnv(files []string) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			log.Printf("dotenv %s: %v", f, err)
		}
	}
}

// resolveConfigPath returns the path from the environment, else the default.
// An optional default that does not exist resolves to "".
func resolveConfigPath(opts Options) (string, error) {
	env := opts.ConfigEnvVar
	if env == "" {
		env = defaultConfigEnv
	}
	if p := os.Getenv(env); p != "" {
		return p, nil
	}
	p := opts.DefaultConfigPath
	switch {
	case p == "" && opts.ConfigOptional:
		return "", nil
	case p == "":
		return "", fmt.Errorf("cmd: config path not provided via %s or DefaultConfigPath", env)
	case opts.ConfigOptional:
		if _, err := os.Stat(p); errors.Is(err, fs.ErrNotExist) {
			return "", nil
		}
	}
	return p, nil
}
