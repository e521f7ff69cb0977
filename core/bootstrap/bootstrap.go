package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	tele "gopkg.in/telebot.v4"

	coreconfig "github.com/m3rciful/tgforms/core/config"
	coredatabase "github.com/m3rciful/tgforms/core/database"
	"github.com/m3rciful/tgforms/core/logger"
	"github.com/m3rciful/tgforms/core/telegram/forms"
	"github.com/m3rciful/tgforms/core/telegram/state"
)

// Options control the bootstrap pipeline: logger, conversation store, entity registration.
type Options struct {
	Config   *coreconfig.Config
	Database coredatabase.Config
	Modules  []Module
	Hooks    forms.Hooks

	LoggerInit func(*coreconfig.Config) error
	Connect    func(context.Context, coredatabase.Config) (*sqlx.DB, error)
	Migrate    func(context.Context, *sqlx.DB) error
}

// Result exposes infrastructure initialized by the bootstrap pipeline.
type Result struct {
	DB         *sqlx.DB
	Store      state.Store
	Forms      *forms.Registry
	Dispatcher *forms.Dispatcher
}

// Close releases the store and the database handle.
func (r *Result) Close() error {
	var errs []error
	if r.Store != nil {
		errs = append(errs, r.Store.Close())
	}
	if r.DB != nil {
		errs = append(errs, r.DB.Close())
	}
	return errors.Join(errs...)
}

// Run initializes the logger, opens the configured store, registers every module
// and builds the forms dispatcher.
func Run(ctx context.Context, opts Options) (*Result, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("bootstrap: nil config provided")
	}

	loggerInit := opts.LoggerInit
	if loggerInit == nil {
		loggerInit = logger.InitLogger
	}
	if err := loggerInit(opts.Config); err != nil {
		return nil, fmt.Errorf("bootstrap: logger init failed: %w", err)
	}

	res := &Result{}
	if err := openStore(ctx, opts, res); err != nil {
		_ = res.Close()
		return nil, err
	}

	res.Forms = forms.NewRegistry()
	if err := RegisterModules(ctx, res.Forms, opts.Modules...); err != nil {
		_ = res.Close()
		return nil, fmt.Errorf("bootstrap: %w", err)
	}

	res.Dispatcher = forms.NewDispatcher(res.Forms, res.Store, dispatcherOptions(opts.Config, opts.Hooks))
	return res, nil
}

func openStore(ctx context.Context, opts Options, res *Result) error {
	sc := opts.Config.Store
	start := time.Now()
	switch sc.Backend {
	case "", coreconfig.StoreMemory:
		res.Store = state.NewMemoryStore()
	case coreconfig.StoreRedis:
		rs := state.DialRedis(sc.Redis.Addr, sc.Redis.Password, sc.Redis.DB,
			state.WithRedisTTL(time.Duration(sc.TTLSeconds)*time.Second),
			state.WithRedisPrefix(sc.Redis.Prefix),
		)
		res.Store = rs
		if err := rs.Ping(ctx); err != nil {
			return fmt.Errorf("bootstrap: redis store: %w", err)
		}
	case coreconfig.StorePostgres:
		connect := opts.Connect
		if connect == nil {
			connect = coredatabase.Connect
		}
		db, err := connect(ctx, opts.Database)
		if err != nil {
			return fmt.Errorf("bootstrap: database initialization failed: %w", err)
		}
		res.DB = db

		migrate := opts.Migrate
		if migrate == nil {
			migrate = coredatabase.RunMigrations
		}
		if err := migrate(ctx, db); err != nil {
			return fmt.Errorf("bootstrap: migrations failed: %w", err)
		}
		res.Store = state.NewPostgresStore(db)
	default:
		return fmt.Errorf("bootstrap: unknown store backend %q", sc.Backend)
	}
	logger.Info(ctx, "state", "store.open",
		slog.String("backend", storeName(sc.Backend)),
		slog.Duration("duration", logger.RoundMS(time.Since(start))),
	)
	return nil
}

func storeName(backend string) string {
	if backend == "" {
		return coreconfig.StoreMemory
	}
	return backend
}

func dispatcherOptions(cfg *coreconfig.Config, hooks forms.Hooks) forms.Options {
	opts := forms.Options{
		Messenger: forms.BotMessenger{ParseMode: ParseMode(cfg.Forms.ParseMode)},
		DropData:  !cfg.Forms.Retain(),
		Hooks:     hooks,
	}
	if cfg.Forms.GenericError != "" {
		opts.GenericError = forms.Str(cfg.Forms.GenericError)
	}
	if cfg.Forms.SkipLabel != "" {
		opts.SkipLabel = forms.Str(cfg.Forms.SkipLabel)
	}
	return opts
}

// ParseMode maps a normalized forms.parse_mode value to telebot's parse mode.
func ParseMode(mode string) tele.ParseMode {
	switch mode {
	case "markdown":
		return tele.ModeMarkdown
	case "markdownv2":
		return tele.ModeMarkdownV2
	}
	return tele.ModeDefault
}
