package state

import tele "gopkg.in/telebot.v4"

const storeKey = "fsm_store"

// WithStore exposes the conversation store to handlers through the update context.
func WithStore(store Store) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			c.Set(storeKey, store)
			return next(c)
		}
	}
}

// StoreFrom returns the store injected by WithStore, or nil.
func StoreFrom(c tele.Context) Store {
	if s, ok := c.Get(storeKey).(Store); ok {
		return s
	}
	return nil
}
