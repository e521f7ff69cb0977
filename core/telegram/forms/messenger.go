package forms

import (
	"errors"

	"github.com/m3rciful/tgforms/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

var errNoMessage = errors.New("forms: no message to edit")

// Messenger is the transport used for prompts and menus.
type Messenger interface {
	Send(c tele.Context, text string, markup *tele.ReplyMarkup) error
	Edit(c tele.Context, msg tele.Editable, text string, markup *tele.ReplyMarkup) error
}

// Editor edits arbitrary messages; *tele.Bot satisfies it.
type Editor interface {
	Edit(msg tele.Editable, what interface{}, opts ...interface{}) (*tele.Message, error)
}

// BotMessenger sends through the helpers outbound queue. Edits go through Editor,
// or through the bot of the update when Editor is nil.
type BotMessenger struct {
	ParseMode tele.ParseMode
	Editor    Editor
}

func (m BotMessenger) options(markup *tele.ReplyMarkup) *tele.SendOptions {
	return &tele.SendOptions{ParseMode: m.ParseMode, ReplyMarkup: markup}
}

// Send queues a new message.
func (m BotMessenger) Send(c tele.Context, text string, markup *tele.ReplyMarkup) error {
	return helpers.SendText(c, text, m.options(markup))
}

// Edit replaces the text and keyboard of msg.
func (m BotMessenger) Edit(c tele.Context, msg tele.Editable, text string, markup *tele.ReplyMarkup) error {
	if msg == nil {
		return errNoMessage
	}
	editor := m.Editor
	if editor == nil {
		editor = c.Bot()
	}
	return helpers.Deliver(c, "edit.text", "editMessageText", func() error {
		_, err := editor.Edit(msg, text, m.options(markup))
		return err
	})
}
