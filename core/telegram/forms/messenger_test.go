package forms

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tele "gopkg.in/telebot.v4"
)

func TestBotMessengerEditsGivenMessage(t *testing.T) {
	var method string
	var params map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method = r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:]
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&params))
		_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":42,"chat":{"id":5,"type":"private"},"text":"Edited"}}`))
	}))
	defer srv.Close()

	bot, err := tele.NewBot(tele.Settings{URL: srv.URL, Token: "t", Offline: true})
	require.NoError(t, err)
	chat := &tele.Chat{ID: 5, Type: tele.ChatPrivate}
	c := bot.NewContext(tele.Update{ID: 1, Message: &tele.Message{ID: 1, Chat: chat, Text: "hi"}})

	m := BotMessenger{}
	require.NoError(t, m.Edit(c, &tele.Message{ID: 42, Chat: chat}, "Edited", nil))
	assert.Equal(t, "editMessageText", method)
	assert.Equal(t, "42", params["message_id"])
	assert.Equal(t, "5", params["chat_id"])
	assert.Equal(t, "Edited", params["text"])

	assert.ErrorIs(t, m.Edit(c, nil, "Edited", nil), errNoMessage)
}
