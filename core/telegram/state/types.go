package state

import (
	"context"
	"errors"
	"strconv"

	tele "gopkg.in/telebot.v4"
)

// State identifies a finite-state-machine step used in conversations.
type State string

const (
	// StateIdle indicates there is no active conversation step for the user.
	StateIdle State = "idle"
)

// ErrClosed is returned by stores used after Close.
var ErrClosed = errors.New("state: store closed")

// Key identifies a single conversation: one user inside one chat.
type Key struct {
	ChatID int64
	UserID int64
}

// String renders the key as "chat:user", used by persistent backends.
func (k Key) String() string {
	return strconv.FormatInt(k.ChatID, 10) + ":" + strconv.FormatInt(k.UserID, 10)
}

// KeyFrom derives the conversation key from an incoming update.
func KeyFrom(c tele.Context) Key {
	var k Key
	if chat := c.Chat(); chat != nil {
		k.ChatID = chat.ID
	}
	if user := c.Sender(); user != nil {
		k.UserID = user.ID
	}
	if k.ChatID == 0 {
		k.ChatID = k.UserID
	}
	return k
}

// Session stores conversation state and collected data for a user.
type Session struct {
	State State          `json:"state"`
	Data  map[string]any `json:"data,omitempty"`
}

// Store persists conversation sessions. Implementations must give read-your-writes
// consistency per key and keep keys fully independent.
type Store interface {
	// GetState returns the current state, or StateIdle when none is set.
	GetState(ctx context.Context, key Key) (State, error)
	SetState(ctx context.Context, key Key, st State) error

	// GetData returns a copy of the value bag; never nil.
	GetData(ctx context.Context, key Key) (map[string]any, error)
	// SetData replaces the value bag.
	SetData(ctx context.Context, key Key, data map[string]any) error
	// UpdateData merges values into the bag.
	UpdateData(ctx context.Context, key Key, values map[string]any) error

	// Reset returns the conversation to StateIdle, optionally keeping the bag.
	Reset(ctx context.Context, key Key, keepData bool) error

	Close() error
}

func copyData(src map[string]any) map[string]any {
	out := make(map[string]any, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}
