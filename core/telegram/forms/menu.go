package forms

import (
	"github.com/m3rciful/tgforms/core/telegram/state"

	tele "gopkg.in/telebot.v4"
)

// ActionFunc is a terminal menu action.
type ActionFunc func(c tele.Context) error

// Item is one button of a Menu. An item either links to another entity, runs an
// action, or does nothing beyond acknowledging the press.
type Item struct {
	key    string
	label  Label
	target string
	action ActionFunc

	menu  *Menu
	token state.State
}

// Link declares an item that opens the menu or form registered under target.
func Link(key string, label Label, target string) *Item {
	return &Item{key: key, label: label, target: target}
}

// Do declares an item running fn.
func Do(key string, label Label, fn ActionFunc) *Item {
	return &Item{key: key, label: label, action: fn}
}

// Button declares a dead-end item.
func Button(key string, label Label) *Item {
	return &Item{key: key, label: label}
}

func (i *Item) Key() string        { return i.key }
func (i *Item) Label() Label       { return i.label }
func (i *Item) Target() string     { return i.target }
func (i *Item) Action() ActionFunc { return i.action }
func (i *Item) Token() state.State { return i.token }
func (i *Item) Menu() *Menu        { return i.menu }

// Menu is a set of inline choices.
type Menu struct {
	id      string
	title   Label
	columns int
	items   []*Item
	frozen  bool
}

// NewMenu declares a menu. Item order is the button order.
func NewMenu(id string, items ...*Item) *Menu {
	m := &Menu{id: id, columns: 1}
	m.items = append(m.items, items...)
	return m
}

// WithTitle sets the message text shown above the buttons.
func (m *Menu) WithTitle(l Label) *Menu {
	m.title = l
	return m
}

// WithColumns sets how many buttons go on one row.
func (m *Menu) WithColumns(n int) *Menu {
	if n > 0 {
		m.columns = n
	}
	return m
}

// Add appends items before registration.
func (m *Menu) Add(items ...*Item) error {
	if m.frozen {
		return errFrozen
	}
	m.items = append(m.items, items...)
	return nil
}

func (m *Menu) ID() string   { return m.id }
func (m *Menu) Kind() Kind   { return KindMenu }
func (m *Menu) Title() Label { return m.title }
func (m *Menu) Columns() int { return m.columns }
func (*Menu) sealed()        {}

// Keys returns item keys in declaration order.
func (m *Menu) Keys() []string {
	keys := make([]string, len(m.items))
	for i, it := range m.items {
		keys[i] = it.key
	}
	return keys
}

// Items returns the items in declaration order.
func (m *Menu) Items() []*Item {
	return append([]*Item(nil), m.items...)
}

// Item looks an item up by key.
func (m *Menu) Item(key string) (*Item, bool) {
	for _, it := range m.items {
		if it.key == key {
			return it, true
		}
	}
	return nil, false
}
