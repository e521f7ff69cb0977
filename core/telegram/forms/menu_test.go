package forms

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/tgforms/core/telegram"
	"github.com/m3rciful/tgforms/core/telegram/state"

	tele "gopkg.in/telebot.v4"
)

func navigationEntities() []Entity {
	return []Entity{
		NewMenu("main",
			Link("settings", Str("Settings"), "profile"),
			Link("about", Str("About"), "info"),
		).WithTitle(Str("Main menu")),
		NewMenu("info",
			Button("version", Str("Version 1.0")),
			Link("back", Str("Back"), "main"),
		).WithTitle(Str("About this bot")),
		NewForm("profile", TextField("name", Str("Your name?"), Required())),
	}
}

func TestShowMenuSendsOrEdits(t *testing.T) {
	d, rec, _ := newTestDispatcher(t, navigationEntities()...)

	require.NoError(t, d.ShowMenu(newTextContext(1, "/start"), "main", nil))
	sends, edits := rec.counts()
	assert.Equal(t, 1, sends)
	assert.Zero(t, edits)
	assert.Equal(t, "Main menu", rec.sends[0].text)
	assert.Equal(t, []string{"main.settings", "main.about"}, inlineUniques(rec.sends[0].markup))

	msg := &tele.Message{ID: 42, Chat: &tele.Chat{ID: 1}}
	require.NoError(t, d.ShowMenu(newTextContext(1, "/start"), "info", msg))
	sends, edits = rec.counts()
	assert.Equal(t, 1, sends)
	require.Equal(t, 1, edits)
	assert.Equal(t, "42", rec.edits[0].messageID)
	assert.Equal(t, "About this bot", rec.edits[0].text)
	assert.Equal(t, []string{"info.version", "info.back"}, inlineUniques(rec.edits[0].markup))
}

func TestShowMenuUnknown(t *testing.T) {
	d, _, _ := newTestDispatcher(t)
	assert.ErrorIs(t, d.ShowMenu(newTextContext(1, "/start"), "main", nil), ErrLookup)
}

func TestMenuColumns(t *testing.T) {
	menu := NewMenu("grid",
		Button("a", Str("A")), Button("b", Str("B")), Button("c", Str("C")),
	).WithColumns(2)
	d, rec, _ := newTestDispatcher(t, menu)
	require.NoError(t, d.ShowMenu(newTextContext(1, "x"), "grid", nil))
	kb := rec.sends[0].markup.InlineKeyboard
	require.Len(t, kb, 2)
	assert.Len(t, kb[0], 2)
	assert.Len(t, kb[1], 1)
}

func TestMenuNavigationEditsInPlace(t *testing.T) {
	d, rec, _ := newTestDispatcher(t, navigationEntities()...)
	bot := telegram.NewRegistry()
	require.NoError(t, d.Attach(bot))

	press := func(token string) {
		t.Helper()
		h, ok := bot.GetCallback(token)
		require.True(t, ok, token)
		require.NoError(t, h(newCallbackContext(1, 42, token)))
	}

	press("main.about")
	press("info.back")
	press("main.about")

	sends, edits := rec.counts()
	assert.Zero(t, sends)
	require.Equal(t, 3, edits)
	for _, e := range rec.edits {
		assert.Equal(t, "42", e.messageID)
		assert.Equal(t, int64(1), e.chatID)
	}
	assert.Equal(t, "About this bot", rec.edits[0].text)
	assert.Equal(t, []string{"info.version", "info.back"}, inlineUniques(rec.edits[0].markup))
	assert.Equal(t, "Main menu", rec.edits[1].text)
	assert.Equal(t, []string{"main.settings", "main.about"}, inlineUniques(rec.edits[1].markup))
}

func TestMenuItemStartsForm(t *testing.T) {
	d, rec, _ := newTestDispatcher(t, navigationEntities()...)
	require.NoError(t, d.Select(newCallbackContext(1, 42, "main.settings"), "main.settings"))

	assert.Equal(t, Token("profile", "name"), currentState(t, d, 1))
	assert.Equal(t, "Your name?", rec.lastSend().text)
}

func TestMenuDeadEndAndAction(t *testing.T) {
	called := 0
	menu := NewMenu("tools",
		Button("noop", Str("Nothing")),
		Do("ping", Str("Ping"), func(tele.Context) error {
			called++
			return nil
		}),
		Do("fail", Str("Fail"), func(tele.Context) error { return errors.New("action failed") }),
	)
	d, rec, _ := newTestDispatcher(t, menu)

	require.NoError(t, d.Select(newCallbackContext(1, 5, "tools.noop"), "tools.noop"))
	sends, edits := rec.counts()
	assert.Zero(t, sends+edits)

	require.NoError(t, d.Select(newCallbackContext(1, 5, "tools.ping"), "tools.ping"))
	assert.Equal(t, 1, called)

	assert.EqualError(t, d.Select(newCallbackContext(1, 5, "tools.fail"), "tools.fail"), "action failed")
}

func TestSelectUnknownToken(t *testing.T) {
	d, _, _ := newTestDispatcher(t, signupForm())
	assert.ErrorIs(t, d.Select(newCallbackContext(1, 5, "x.y"), "x.y"), ErrLookup)
	assert.ErrorIs(t, d.Select(newCallbackContext(1, 5, "signup.name"), state.State("signup.name")), ErrLookup)
}

func TestAttachRejectsDuplicateCallbacks(t *testing.T) {
	d, _, _ := newTestDispatcher(t, navigationEntities()...)
	bot := telegram.NewRegistry()
	require.NoError(t, d.Attach(bot))
	assert.Error(t, d.Attach(bot))
	assert.Len(t, bot.ListCallbacks(), 4)
}

func TestMenuHooks(t *testing.T) {
	reg := NewRegistry()
	reg.MustRegister(navigationEntities()...)
	var events []string
	d := NewDispatcher(reg, state.NewMemoryStore(), Options{
		Messenger: &recorder{},
		Hooks: Hooks{
			MenuShown: func(_ context.Context, menu string, edited bool) {
				events = append(events, fmt.Sprintf("show:%s:%t", menu, edited))
			},
			ItemSelected: func(_ context.Context, menu, item string) {
				events = append(events, "select:"+menu+"."+item)
			},
		},
	})

	require.NoError(t, d.ShowMenu(newTextContext(1, "/start"), "main", nil))
	require.NoError(t, d.Select(newCallbackContext(1, 42, "main.about"), "main.about"))
	assert.Equal(t, []string{"show:main:false", "select:main.about", "show:info:true"}, events)
}
