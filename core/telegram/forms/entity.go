package forms

import (
	"strconv"

	"github.com/m3rciful/tgforms/core/telegram/state"
)

// Kind enumerates the entity variants a Dispatcher knows how to drive.
type Kind uint8

const (
	KindForm Kind = iota + 1
	KindMenu
)

func (k Kind) String() string {
	switch k {
	case KindForm:
		return "form"
	case KindMenu:
		return "menu"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Entity is a registered Form or Menu. The set of implementations is closed.
type Entity interface {
	ID() string
	Kind() Kind
	// Keys lists field or item keys in declaration order.
	Keys() []string
	sealed()
}

// Token builds the state token for one step of an entity.
func Token(entityID, key string) state.State {
	return state.State(entityID + "." + key)
}

// DataKey builds the bag key a field value is stored under.
func DataKey(entityID, key string) string {
	return entityID + ":" + key
}
