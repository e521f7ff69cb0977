// Package callbacks decodes inline button callback data.
package callbacks

import (
	"strings"

	tele "gopkg.in/telebot.v4"
)

// Split decodes Telebot's "\f<unique>|<payload>" data. Data without the leading
// form feed is treated as a bare unique.
func Split(data string) (unique, payload string) {
	unique, payload, _ = strings.Cut(strings.TrimPrefix(data, "\f"), "|")
	return strings.TrimSpace(unique), payload
}

// Parse returns the route and payload of cb. Telebot fills cb.Unique only when the
// callback matched a registered endpoint; otherwise both come from cb.Data.
func Parse(cb *tele.Callback) (unique, payload string) {
	switch {
	case cb == nil:
		return "", ""
	case cb.Unique != "":
		return cb.Unique, cb.Data
	default:
		return Split(cb.Data)
	}
}
