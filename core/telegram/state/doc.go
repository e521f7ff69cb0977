// Package state provides per-conversation FSM state and a value bag for Telegram bots.
// Stores are domain-agnostic: they only know state tokens and string-keyed values.
// Memory, Redis and PostgreSQL backends share one contract.
package state
