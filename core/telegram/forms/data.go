package forms

import (
	"strconv"
	"time"

	json "github.com/goccy/go-json"
)

// Data holds the values of one form keyed by field key. Persistent stores return
// numbers as json.Number and times as RFC 3339 strings; the accessors accept both.
type Data map[string]any

// Has reports whether the field was answered (a skipped optional field is present with nil).
func (d Data) Has(key string) bool {
	_, ok := d[key]
	return ok
}

// String returns the value as text, or "" when absent.
func (d Data) String(key string) string {
	s, _ := textOf(d[key])
	return s
}

// Int returns an integer value.
func (d Data) Int(key string) (int64, bool) {
	switch v := d[key].(type) {
	case int:
		return int64(v), true
	case int64:
		return v, true
	case float64:
		return int64(v), v == float64(int64(v))
	case json.Number:
		n, err := v.Int64()
		return n, err == nil
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		return n, err == nil
	}
	return 0, false
}

// Float returns a numeric value.
func (d Data) Float(key string) (float64, bool) {
	return numberOf(d[key])
}

// Time returns a date value.
func (d Data) Time(key string) (time.Time, bool) {
	switch v := d[key].(type) {
	case time.Time:
		return v, true
	case string:
		t, err := time.Parse(time.RFC3339, v)
		return t, err == nil
	}
	return time.Time{}, false
}
