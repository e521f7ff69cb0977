package forms

import (
	"fmt"
	"log/slog"

	"github.com/m3rciful/tgforms/core/logger"
	"github.com/m3rciful/tgforms/core/telegram"
	"github.com/m3rciful/tgforms/core/telegram/helpers"
	"github.com/m3rciful/tgforms/core/telegram/keyboard"
	"github.com/m3rciful/tgforms/core/telegram/state"

	tele "gopkg.in/telebot.v4"
)

// ShowMenu renders menuID. With msg nil a new message is sent, otherwise msg is
// edited in place.
func (d *Dispatcher) ShowMenu(c tele.Context, menuID string, msg tele.Editable) error {
	ctx := helpers.BuildContext(c)
	menu, err := d.reg.Menu(menuID)
	if err != nil {
		return err
	}

	text := resolve(menu.title)
	if text == "" {
		text = menu.id
	}
	markup := d.menuMarkup(menu)

	edited := msg != nil
	if edited {
		err = d.msgr.Edit(c, msg, text, markup)
	} else {
		err = d.msgr.Send(c, text, markup)
	}
	if err != nil {
		return fmt.Errorf("forms: show menu %s: %w", menuID, err)
	}

	d.opts.Hooks.menuShown(ctx, menu.id, edited)
	logger.Debug(ctx, "forms.menu", "menu.show",
		slog.String("menu", menu.id),
		slog.Bool("edited", edited),
	)
	return nil
}

func (d *Dispatcher) menuMarkup(m *Menu) *tele.ReplyMarkup {
	buttons := make([]keyboard.InlineBtn, 0, len(m.items))
	for _, it := range m.items {
		buttons = append(buttons, keyboard.InlineBtn{
			Text:   resolve(it.label),
			Unique: string(it.token),
		})
	}
	return keyboard.InlineGrid(buttons, m.columns)
}

// Select handles a press of the menu item identified by tok.
func (d *Dispatcher) Select(c tele.Context, tok state.State) error {
	ctx := helpers.BuildContext(c)
	step, err := d.reg.Resolve(tok)
	if err != nil {
		return err
	}
	item := step.Item
	if item == nil {
		return &LookupError{What: "menu item", ID: string(tok)}
	}

	d.opts.Hooks.itemSelected(ctx, item.menu.id, item.key)
	logger.Debug(ctx, "forms.menu", "item.select",
		slog.String("menu", item.menu.id),
		slog.String("item", item.key),
	)

	switch {
	case item.action != nil:
		return item.action(c)
	case item.target != "":
		target, err := d.reg.Entity(item.target)
		if err != nil {
			return err
		}
		switch target.Kind() {
		case KindMenu:
			var msg tele.Editable
			if cb := c.Callback(); cb != nil && cb.Message != nil {
				msg = cb.Message
			}
			return d.ShowMenu(c, target.ID(), msg)
		case KindForm:
			return d.Start(c, target.ID(), nil)
		default:
			return &UnsupportedEntityError{ID: target.ID(), Kind: target.Kind()}
		}
	default:
		return nil
	}
}

// Attach registers a callback for every menu item on the bot registry. The callback
// router answers the query before the handler runs.
func (d *Dispatcher) Attach(reg *telegram.Registry) error {
	callbacks := 0
	for _, e := range d.reg.Entities() {
		menu, ok := e.(*Menu)
		if !ok {
			continue
		}
		for _, it := range menu.items {
			tok := it.token
			if err := reg.RegisterCallback(string(tok), func(c tele.Context) error {
				return d.Select(c, tok)
			}); err != nil {
				return fmt.Errorf("forms: attach %s: %w", tok, err)
			}
			callbacks++
		}
	}
	logger.Info(logger.Background(), "forms", "attach",
		slog.Int("entities", d.reg.Len()),
		slog.Int("callbacks", callbacks),
	)
	return nil
}
