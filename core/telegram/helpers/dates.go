package helpers

import (
	"strings"
	"time"
)

// dateLayouts are tried in order; the first match wins.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04",
	"2006-01-02",
	"2006-1-2",
	"02.01.2006 15:04",
	"02.01.2006",
	"2.1.2006",
	"02/01/2006",
}

// ParseDate reads the date formats people usually type in chats. Values without
// a zone are taken in loc, or time.Local when loc is nil.
func ParseDate(input string, loc *time.Location) (time.Time, bool) {
	s := strings.TrimSpace(input)
	if s == "" {
		return time.Time{}, false
	}
	if loc == nil {
		loc = time.Local
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
