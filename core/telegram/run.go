package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	coreconfig "github.com/m3rciful/notesbot/core/config"
	"github.com/m3rciful/notesbot/core/logger"
	tghelpers "github.com/m3rciful/notesbot/core/telegram/helpers"
	tgsender "github.com/m3rciful/notesbot/core/telegram/sender"

	tele "gopkg.in/telebot.v4"
)

// Middleware is a named global middleware installed with bot.Use.
type Middleware struct {
	Name string
	Use  tele.MiddlewareFunc
}

// Route binds a handler to a telebot endpoint (a command, tele.OnText, ...).
type Route struct {
	Endpoint any
	Handler  tele.HandlerFunc
}

// RunOptions controls the behaviour of RunTelegram.
type RunOptions struct {
	Config   *coreconfig.Config
	Registry *Registry

	DispatcherOptions tgsender.Options
	Dispatcher        *tgsender.Dispatcher

	Middlewares []Middleware
	Routes      []Route

	// DisableWebhookCleanup keeps a previously registered webhook in long
	// polling mode.
	DisableWebhookCleanup bool
	// DisableHelperDispatcher makes helper sends synchronous.
	DisableHelperDispatcher bool

	OnStart func(ctx context.Context, rt Runtime) error
	OnStop  func(ctx context.Context, rt Runtime) error
}

// Runtime exposes runtime components to lifecycle hooks.
type Runtime struct {
	Dispatcher *tgsender.Dispatcher
	Registry   *Registry
}

// RunTelegram builds the bot, installs opts and serves updates until ctx is
// done or the poller stops. Cancellation is a clean exit.
func RunTelegram(ctx context.Context, opts RunOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.Config == nil {
		return errors.New("telegram: nil config provided")
	}
	if opts.Registry == nil {
		opts.Registry = NewRegistry()
	}

	bot, err := newBot(ctx, opts)
	if err != nil {
		return err
	}
	install(bot, opts)

	rt := Runtime{Dispatcher: opts.Dispatcher, Registry: opts.Registry}
	if rt.Dispatcher == nil {
		rt.Dispatcher = tgsender.NewDispatcher(opts.DispatcherOptions)
	}
	if !opts.DisableHelperDispatcher {
		tghelpers.SetDispatcher(rt.Dispatcher)
		defer tghelpers.SetDispatcher(nil)
	}
	defer rt.Dispatcher.Close()

	return lifecycle(ctx, opts, rt, func(ctx context.Context) error {
		return serve(ctx, bot)
	})
}

// lifecycle runs OnStart, serve and OnStop. OnStop also runs when OnStart
// fails, so resources opened before the bot started are released.
func lifecycle(ctx context.Context, opts RunOptions, rt Runtime, serve func(context.Context) error) error {
	stop := func() error {
		if opts.OnStop == nil {
			return nil
		}
		return opts.OnStop(ctx, rt)
	}
	if opts.OnStart != nil {
		if err := opts.OnStart(ctx, rt); err != nil {
			return errors.Join(err, stop())
		}
	}
	runErr := serve(ctx)
	if err := stop(); err != nil {
		return err
	}
	if errors.Is(runErr, context.Canceled) {
		return nil
	}
	return runErr
}

func newBot(ctx context.Context, opts RunOptions) (*tele.Bot, error) {
	cfg := opts.Config
	timeout := longPollTimeout(cfg.Telegram.LongPollTimeoutSeconds)
	poller := BuildPoller(PollerOptions{
		RunMode:                cfg.Telegram.RunMode,
		LongPollTimeoutSeconds: cfg.Telegram.LongPollTimeoutSeconds,
		Webhook: WebhookOptions{
			Listen: cfg.Webhook.Listen,
			Port:   cfg.Webhook.Port,
			URL:    cfg.Webhook.URL,
		},
	})

	start := time.Now()
	bot, err := tele.NewBot(tele.Settings{
		Token:   cfg.Telegram.Token,
		Poller:  poller,
		Client:  BuildHTTPClient(HTTPClientOptions{LongPollTimeout: timeout}),
		OnError: logBotError,
	})
	if err != nil {
		return nil, fmt.Errorf("telegram: bot initialization failed: %w", err)
	}
	took := slog.Duration("duration", time.Since(start))

	if wh, ok := poller.(*tele.Webhook); ok {
		logger.LogEvent(ctx, logger.TG, slog.LevelInfo, "mode",
			slog.String("mode", "webhook"),
			slog.String("listen", wh.Listen),
			slog.String("public_url", wh.Endpoint.PublicURL),
			took,
		)
		return bot, nil
	}

	logger.LogEvent(ctx, logger.TG, slog.LevelInfo, "mode",
		slog.String("mode", "polling"),
		slog.Duration("timeout", timeout),
		took,
	)
	if !opts.DisableWebhookCleanup {
		// a leftover webhook makes getUpdates fail with 409
		if err := bot.RemoveWebhook(false); err != nil {
			logger.LogEvent(ctx, logger.TG, slog.LevelWarn, "delete_webhook", slog.String("err", err.Error()))
		} else {
			logger.LogEvent(ctx, logger.TG, slog.LevelDebug, "delete_webhook", slog.String("status", "ok"))
		}
	}
	return bot, nil
}

func install(bot *tele.Bot, opts RunOptions) {
	for _, mw := range opts.Middlewares {
		if mw.Use != nil {
			bot.Use(mw.Use)
		}
	}
	for _, r := range opts.Routes {
		if r.Endpoint != nil && r.Handler != nil {
			bot.Handle(r.Endpoint, r.Handler)
		}
	}
	SetupCommands(bot, opts.Registry)
}

// serve runs the poller until it returns or ctx is done.
func serve(ctx context.Context, bot *tele.Bot) error {
	done := make(chan struct{})
	go func() {
		defer close(done)
		bot.Start()
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		bot.Stop()
		<-done
		return ctx.Err()
	}
}

// logBotError receives handler errors that no middleware consumed.
func logBotError(err error, c tele.Context) {
	if err == nil {
		return
	}
	ctx := context.Background()
	if c != nil {
		ctx = tghelpers.Context(c)
	}
	logger.LogEvent(ctx, logger.TG, slog.LevelError, "handler.error",
		slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
	)
}
