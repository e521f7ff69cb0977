package router

import (
	"log/slog"

	tg "github.com/m3rciful/tgforms/core/telegram"
	"github.com/m3rciful/tgforms/core/telegram/callbacks"

	tele "gopkg.in/telebot.v4"
)

// CallbackOptions configures CallbackRoute.
type CallbackOptions struct {
	// NotFound answers callbacks with no registered handler when the registry has no fallback.
	NotFound tele.HandlerFunc
}

// CallbackRoute answers every callback query and dispatches it by its unique
// through the registry.
func CallbackRoute(reg *tg.Registry, opts CallbackOptions) tg.Route {
	handler := func(c tele.Context) error {
		if c.Callback() == nil {
			return nil
		}
		key, _ := callbacks.Parse(c.Callback())
		_ = c.Respond()

		s := newSummary("callback."+key, slog.String("cb_key", key))
		if h, ok := reg.GetCallback(key); ok && h != nil {
			return s.run(c, h)
		}

		s.extras = append(s.extras, slog.String("cause", "not_found"))
		fallback := reg.CallbackNotFound()
		if fallback == nil {
			fallback = opts.NotFound
		}
		if fallback == nil {
			return s.skip(c)
		}
		return s.run(c, fallback)
	}
	return tg.Route{Endpoint: tele.OnCallback, Handler: handler}
}
