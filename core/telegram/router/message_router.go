package router

import (
	tg "github.com/m3rciful/tgforms/core/telegram"

	tele "gopkg.in/telebot.v4"
)

// FSM is the contract of a conversation driver such as forms.Dispatcher: updates
// go to ManagerHandler while InProgress reports an active step.
type FSM interface {
	InProgress(c tele.Context) bool
	ManagerHandler(c tele.Context) error
}

// TextOptions controls fallback behaviour for text and media updates.
type TextOptions struct {
	UnknownText     tele.HandlerFunc
	UnknownDocument tele.HandlerFunc
	UnknownMedia    tele.HandlerFunc
}

// TextRoutes builds handlers for text, document, photo and contact updates. An
// active form step takes precedence over commands typed as plain text.
func TextRoutes(fsm FSM, reg *tg.Registry, opts TextOptions) []tg.Route {
	text := func(c tele.Context) error {
		if fsm != nil && fsm.InProgress(c) {
			return newSummary("fsm").run(c, fsm.ManagerHandler)
		}
		if reg != nil {
			if name, cmd, ok := reg.LookupCommand(c.Text()); ok {
				return newSummary(name).run(c, cmd.Handler)
			}
			if fb := reg.TextFallback(); fb != nil {
				return newSummary("fallback").run(c, fb)
			}
		}
		if opts.UnknownText != nil {
			return newSummary("unknown_text").run(c, opts.UnknownText)
		}
		return newSummary("unknown_text").skip(c)
	}

	media := func(kind string, fallback tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			if fsm != nil && fsm.InProgress(c) {
				return newSummary("fsm_"+kind).run(c, fsm.ManagerHandler)
			}
			s := newSummary("unexpected_" + kind)
			if fallback == nil {
				return s.skip(c)
			}
			return s.run(c, fallback)
		}
	}

	unknownDoc := opts.UnknownDocument
	if unknownDoc == nil {
		unknownDoc = opts.UnknownMedia
	}
	return []tg.Route{
		{Endpoint: tele.OnText, Handler: text},
		{Endpoint: tele.OnDocument, Handler: media("document", unknownDoc)},
		{Endpoint: tele.OnPhoto, Handler: media("photo", opts.UnknownMedia)},
		{Endpoint: tele.OnContact, Handler: media("contact", opts.UnknownMedia)},
	}
}
