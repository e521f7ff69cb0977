package ui

import (
	"github.com/m3rciful/tgforms/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// FallbackProvider exposes handlers used when incoming updates
// cannot be mapped to commands, callbacks, or an active form step.
type FallbackProvider interface {
	UnknownText() tele.HandlerFunc
	UnknownDocument() tele.HandlerFunc
	UnknownCallback() tele.HandlerFunc
}

// Fallbacks answers unmatched updates with fixed texts.
type Fallbacks struct {
	Text     string
	Document string
	Callback string
}

var _ FallbackProvider = Fallbacks{}

// DefaultFallbacks points users at /start.
func DefaultFallbacks() Fallbacks {
	return Fallbacks{
		Text:     "I did not get that. Send /start to see what I can do.",
		Document: "I was not expecting a file right now.",
		Callback: "This button is no longer active",
	}
}

// UnknownText replies with f.Text.
func (f Fallbacks) UnknownText() tele.HandlerFunc {
	return func(c tele.Context) error {
		return helpers.SendText(c, f.Text)
	}
}

// UnknownDocument replies with f.Document.
func (f Fallbacks) UnknownDocument() tele.HandlerFunc {
	return func(c tele.Context) error {
		return helpers.SendText(c, f.Document)
	}
}

// UnknownCallback answers the callback query with f.Callback as a toast.
func (f Fallbacks) UnknownCallback() tele.HandlerFunc {
	return func(c tele.Context) error {
		return c.Respond(&tele.CallbackResponse{Text: f.Callback})
	}
}
