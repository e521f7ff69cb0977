package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/tgforms/core/bootstrap"
	"github.com/m3rciful/tgforms/core/logger"
	"github.com/m3rciful/tgforms/core/metrics"
	"github.com/m3rciful/tgforms/core/telegram"
	"github.com/m3rciful/tgforms/core/telegram/forms"
	"github.com/m3rciful/tgforms/core/telegram/helpers"
	"github.com/m3rciful/tgforms/core/telegram/middleware"
	"github.com/m3rciful/tgforms/core/telegram/router"
	"github.com/m3rciful/tgforms/core/telegram/state"
	"github.com/m3rciful/tgforms/core/telegram/ui"
)

const mainMenu = "main"

var commandName = regexp.MustCompile(`^[a-z0-9_]{1,32}$`)

// App wires the bootstrapped forms dispatcher into the Telegram runtime.
type App struct {
	cfg       *AppConfig
	boot      *bootstrap.Result
	metrics   *metrics.Metrics
	tg        *telegram.Registry
	fallbacks ui.Fallbacks
}

func newApp(ctx context.Context, cfg *AppConfig) (*App, error) {
	m := metrics.New()

	var modules []bootstrap.Module
	if cfg.Forms.Definitions != "" {
		modules = append(modules, bootstrap.Definitions(cfg.Forms.Definitions, definitionActions(cfg.Forms.ParseMode)))
	}
	boot, err := bootstrap.Run(ctx, bootstrap.Options{
		Config:   &cfg.Config,
		Database: cfg.Database,
		Modules:  modules,
		Hooks:    m.Hooks(),
	})
	if err != nil {
		return nil, err
	}

	a := &App{
		cfg:       cfg,
		boot:      boot,
		metrics:   m,
		tg:        telegram.NewRegistry(),
		fallbacks: ui.DefaultFallbacks(),
	}
	if err := a.registerHandlers(); err != nil {
		_ = boot.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) registerHandlers() error {
	d := a.boot.Dispatcher
	if err := d.Attach(a.tg); err != nil {
		return fmt.Errorf("attach menus: %w", err)
	}

	cmds := map[string]telegram.Command{
		"/start":  {Handler: a.start, Description: "Open the main menu"},
		"/forms":  {Handler: a.listForms, Description: "List available forms"},
		"/cancel": {Handler: a.cancel, Description: "Abandon the current form"},
		"/data": {
			Handler:     middleware.StateIn(d.Store(), state.StateIdle)(showData(a.cfg.Forms.ParseMode)),
			Description: "Show the values you entered",
			Hidden:      true,
		},
	}
	for _, e := range d.Registry().Entities() {
		f, ok := e.(*forms.Form)
		if !ok || !commandName.MatchString(f.ID()) {
			continue
		}
		id := f.ID()
		if _, taken := cmds["/"+id]; taken {
			continue
		}
		desc := "Fill in " + id
		if t := f.Title(); t != nil && t.Resolve() != "" {
			desc = t.Resolve()
		}
		cmds["/"+id] = telegram.Command{
			Handler: func(c tele.Context) error {
				return d.Start(c, id, nil)
			},
			Description: desc,
		}
	}
	for name, cmd := range cmds {
		if err := a.tg.RegisterCommand(name, cmd); err != nil {
			return err
		}
	}
	a.tg.SetCallbackNotFound(a.fallbacks.UnknownCallback())
	return nil
}

func (a *App) start(c tele.Context) error {
	d := a.boot.Dispatcher
	if _, err := d.Registry().Menu(mainMenu); err == nil {
		return d.ShowMenu(c, mainMenu, nil)
	}
	return a.listForms(c)
}

func (a *App) listForms(c tele.Context) error {
	var ids []string
	for _, e := range a.boot.Dispatcher.Registry().Entities() {
		if e.Kind() == forms.KindForm && commandName.MatchString(e.ID()) {
			ids = append(ids, "/"+e.ID())
		}
	}
	if len(ids) == 0 {
		return helpers.SendText(c, "No forms are configured.")
	}
	return helpers.SendText(c, "Available forms:\n"+strings.Join(ids, "\n"))
}

func (a *App) cancel(c tele.Context) error {
	active, err := a.boot.Dispatcher.Cancel(c)
	if err != nil {
		return err
	}
	text := "Nothing to cancel."
	if active {
		text = "Cancelled."
	}
	return helpers.SendText(c, text, &tele.SendOptions{ReplyMarkup: &tele.ReplyMarkup{RemoveKeyboard: true}})
}

// showData prints the conversation's value bag, read through the store injected by
// state.WithStore.
func showData(parseMode string) tele.HandlerFunc {
	return func(c tele.Context) error {
		store := state.StoreFrom(c)
		if store == nil {
			return errors.New("formsbot: no store in context")
		}
		data, err := store.GetData(helpers.BuildContext(c), state.KeyFrom(c))
		if err != nil {
			return err
		}
		if len(data) == 0 {
			return helpers.SendText(c, "Nothing stored yet.")
		}
		return helpers.SendText(c, renderData("Stored values:", data, parseMode),
			&tele.SendOptions{ParseMode: bootstrap.ParseMode(parseMode)})
	}
}

// TelegramRunOptions implements cmd.TelegramApp.
func (a *App) TelegramRunOptions() (telegram.RunOptions, error) {
	cfg := &a.cfg.Config
	d := a.boot.Dispatcher

	mws := append(telegram.DefaultMiddlewares(cfg, nil),
		telegram.Middleware{Name: "store", Use: state.WithStore(d.Store())},
	)

	routes := router.CommandRoutes(a.tg, router.CommandRouteOptions{AdminID: cfg.Telegram.AdminID})
	routes = append(routes, router.CallbackRoute(a.tg, router.CallbackOptions{NotFound: a.fallbacks.UnknownCallback()}))
	routes = append(routes, router.TextRoutes(d, a.tg, router.TextOptions{
		UnknownText:     a.fallbacks.UnknownText(),
		UnknownDocument: a.fallbacks.UnknownDocument(),
	})...)

	return telegram.RunOptions{
		Config:      cfg,
		Registry:    a.tg,
		Middlewares: mws,
		Routes:      routes,
		OnStart:     a.onStart,
	}, nil
}

func (a *App) onStart(ctx context.Context, _ telegram.Runtime) error {
	entities := a.boot.Dispatcher.Registry().Entities()
	ids := make([]string, 0, len(entities))
	for _, e := range entities {
		ids = append(ids, e.Kind().String()+":"+e.ID())
	}
	sort.Strings(ids)
	logger.Info(ctx, "forms", "ready",
		slog.Int("entities", len(ids)),
		slog.String("ids", strings.Join(ids, ",")),
		slog.String("store", a.cfg.Store.Backend),
	)

	if addr := a.cfg.Metrics.Listen; addr != "" {
		go func() {
			if err := a.metrics.Serve(ctx, addr); err != nil {
				logger.Error(ctx, "metrics", "serve", slog.String("err", err.Error()))
			}
		}()
	}
	return nil
}

// Close releases the store and database handles.
func (a *App) Close() error {
	return a.boot.Close()
}
