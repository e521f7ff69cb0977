package forms

import (
	"context"
	"sync"

	"github.com/m3rciful/tgforms/core/telegram/state"

	tele "gopkg.in/telebot.v4"
)

// fakeContext implements the parts of tele.Context the dispatcher touches.
type fakeContext struct {
	tele.Context
	chat   *tele.Chat
	sender *tele.User
	msg    *tele.Message
	cb     *tele.Callback
	vals   map[string]any
}

func newTextContext(userID int64, text string) *fakeContext {
	chat := &tele.Chat{ID: userID, Type: tele.ChatPrivate}
	return &fakeContext{
		chat:   chat,
		sender: &tele.User{ID: userID},
		msg:    &tele.Message{ID: 1, Chat: chat, Text: text},
		vals:   map[string]any{},
	}
}

func newCallbackContext(userID int64, messageID int, unique string) *fakeContext {
	chat := &tele.Chat{ID: userID, Type: tele.ChatPrivate}
	return &fakeContext{
		chat:   chat,
		sender: &tele.User{ID: userID},
		cb: &tele.Callback{
			ID:      "cb",
			Sender:  &tele.User{ID: userID},
			Message: &tele.Message{ID: messageID, Chat: chat},
			Data:    "\f" + unique,
		},
		vals: map[string]any{},
	}
}

func (f *fakeContext) Chat() *tele.Chat         { return f.chat }
func (f *fakeContext) Sender() *tele.User       { return f.sender }
func (f *fakeContext) Callback() *tele.Callback { return f.cb }
func (f *fakeContext) Get(key string) any       { return f.vals[key] }
func (f *fakeContext) Set(key string, v any)    { f.vals[key] = v }

func (f *fakeContext) Update() tele.Update {
	return tele.Update{ID: 7, Message: f.msg, Callback: f.cb}
}

func (f *fakeContext) Message() *tele.Message {
	if f.cb != nil {
		return f.cb.Message
	}
	return f.msg
}

func (f *fakeContext) Text() string {
	if f.msg != nil {
		return f.msg.Text
	}
	return ""
}

func (f *fakeContext) Respond(...*tele.CallbackResponse) error { return nil }

type sentMessage struct {
	text   string
	markup *tele.ReplyMarkup
}

type editedMessage struct {
	messageID string
	chatID    int64
	text      string
	markup    *tele.ReplyMarkup
}

// recorder is a Messenger that keeps everything it was asked to deliver.
type recorder struct {
	mu    sync.Mutex
	sends []sentMessage
	edits []editedMessage
}

func (r *recorder) Send(_ tele.Context, text string, markup *tele.ReplyMarkup) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sends = append(r.sends, sentMessage{text: text, markup: markup})
	return nil
}

func (r *recorder) Edit(_ tele.Context, msg tele.Editable, text string, markup *tele.ReplyMarkup) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, chat := msg.MessageSig()
	r.edits = append(r.edits, editedMessage{messageID: id, chatID: chat, text: text, markup: markup})
	return nil
}

func (r *recorder) lastSend() sentMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.sends) == 0 {
		return sentMessage{}
	}
	return r.sends[len(r.sends)-1]
}

func (r *recorder) counts() (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sends), len(r.edits)
}

// recordingStore logs every state written through it.
type recordingStore struct {
	state.Store
	mu     sync.Mutex
	states []state.State
}

func (r *recordingStore) SetState(ctx context.Context, key state.Key, st state.State) error {
	r.mu.Lock()
	r.states = append(r.states, st)
	r.mu.Unlock()
	return r.Store.SetState(ctx, key, st)
}

func (r *recordingStore) visited() []state.State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]state.State(nil), r.states...)
}

func inlineUniques(markup *tele.ReplyMarkup) []string {
	var out []string
	if markup == nil {
		return out
	}
	for _, row := range markup.InlineKeyboard {
		for _, btn := range row {
			out = append(out, btn.Unique)
		}
	}
	return out
}
