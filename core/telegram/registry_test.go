package telegram

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tele "gopkg.in/telebot.v4"
)

func noop(tele.Context) error { return nil }

func TestRegistry_Commands(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.RegisterCommand("/start", Command{Handler: noop, Description: "Main menu"}))
	require.NoError(t, reg.RegisterCommand("/data", Command{Handler: noop, Description: "Values", Hidden: true}))
	require.NoError(t, reg.RegisterCommand("/admin", Command{Handler: noop, Description: "Admin", AdminOnly: true}))
	require.NoError(t, reg.RegisterCommand("/cancel", Command{Handler: noop, Description: "Cancel", Aliases: []string{"Stop"}}))

	assert.ErrorIs(t, reg.RegisterCommand("/start", Command{Handler: noop, Description: "again"}), ErrDuplicateHandler)
	assert.ErrorIs(t, reg.RegisterCommand("start", Command{Handler: noop, Description: "x"}), ErrInvalidHandler)
	assert.ErrorIs(t, reg.RegisterCommand("/x", Command{Description: "x"}), ErrInvalidHandler)
	assert.ErrorIs(t, reg.RegisterCommand("/x", Command{Handler: noop}), ErrInvalidHandler)

	assert.Equal(t, []tele.Command{
		{Text: "/cancel", Description: "Cancel"},
		{Text: "/start", Description: "Main menu"},
	}, reg.ListCommands(true))
	assert.Len(t, reg.ListCommands(false), 4)
	assert.Len(t, reg.Commands(), 4)

	name, _, ok := reg.LookupCommand("start")
	require.True(t, ok)
	assert.Equal(t, "/start", name)

	name, _, ok = reg.LookupCommand("Stop")
	require.True(t, ok)
	assert.Equal(t, "/cancel", name)

	_, _, ok = reg.LookupCommand("hello")
	assert.False(t, ok)
	_, _, ok = reg.LookupCommand(" ")
	assert.False(t, ok)
}

func TestRegistry_Callbacks(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.RegisterCallback("main.b", noop))
	require.NoError(t, reg.RegisterCallback("main.a", noop))
	assert.ErrorIs(t, reg.RegisterCallback("main.a", noop), ErrDuplicateHandler)
	assert.ErrorIs(t, reg.RegisterCallback("", noop), ErrInvalidHandler)

	_, ok := reg.GetCallback("main.a")
	assert.True(t, ok)
	assert.Equal(t, []string{"main.a", "main.b"}, reg.ListCallbacks())

	assert.NotNil(t, reg.CallbackNotFound())
	reg.SetCallbackNotFound(nil)
	assert.NotNil(t, reg.CallbackNotFound())

	assert.Nil(t, reg.TextFallback())
	reg.SetTextFallback(noop)
	assert.NotNil(t, reg.TextFallback())
}
