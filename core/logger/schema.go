package logger

import (
	"slices"
	"strings"
)

var levelLabels = map[string]string{
	"debug":   "DEBUG",
	"info":    "INFO",
	"warn":    "WARN",
	"warning": "WARN",
	"error":   "ERROR",
	"fatal":   "FATAL",
}

// levelLabel maps a level spelling to its upper-case label; empty means INFO.
func levelLabel(raw string) string {
	if raw == "" {
		return "INFO"
	}
	if l, ok := levelLabels[strings.ToLower(raw)]; ok {
		return l
	}
	return strings.ToUpper(raw)
}

// Closed vocabularies. Unknown statuses are logged lower-cased, unknown
// outcomes are dropped.
var (
	statusValues  = []string{"ok", "fail", "skip", "retry", "rate_limited", "cancelled"}
	outcomeValues = []string{"ok", "fail", "skip", "cancelled", "rate_limited"}
)

func canonical(values []string, raw string) (string, bool) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	return raw, slices.Contains(values, raw)
}

// defaultKeyOrder fixes where well known keys appear in a line; the rest follow sorted.
var defaultKeyOrder = []string{
	"ts", "level", "component", "event", "status",
	"rid", "rid_full", "update_id", "user_id", "chat_id", "chat_type",
	"handler", "action", "endpoint", "cb_key", "outcome", "duration_ms",
	"messages", "kb", "edited",
	"form", "form_run", "field", "state", "menu", "item", "entities",
	"mode", "listen", "public_url", "store", "backend", "addr", "db", "host", "port",
	"payload", "lang", "username",
	"err", "caller", "err_code", "code", "cause",
	"attempts", "backoff_ms", "fields",
}
