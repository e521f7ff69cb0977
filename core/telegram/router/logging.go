package router

import (
	"errors"
	"log/slog"
	"reflect"
	"strings"
	"time"

	"github.com/m3rciful/tgforms/core/logger"
	tghelpers "github.com/m3rciful/tgforms/core/telegram/helpers"
	"github.com/m3rciful/tgforms/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// summary logs one handler.handled line per routed update.
type summary struct {
	name   string
	start  time.Time
	extras []slog.Attr
}

func newSummary(name string, extras ...slog.Attr) summary {
	return summary{name: handlerName(name), start: time.Now(), extras: extras}
}

// run tags the update context with the handler name, calls fn and logs the result.
func (s summary) run(c tele.Context, fn tele.HandlerFunc) error {
	tghelpers.WithHandler(c, s.name)
	err := fn(c)
	status := "ok"
	if err != nil {
		status = "fail"
	}
	s.log(c, status, err)
	return err
}

// skip logs an update nothing handled.
func (s summary) skip(c tele.Context) error {
	tghelpers.WithHandler(c, s.name)
	s.log(c, "skip", nil)
	return nil
}

func (s summary) log(c tele.Context, status string, err error) {
	msgs, kb := middleware.Counters(c)
	attrs := []slog.Attr{
		slog.String("status", status),
		slog.String("outcome", status),
		slog.Int("messages", msgs),
		slog.Bool("kb", kb),
		slog.Duration("duration", time.Since(s.start)),
	}
	if err != nil {
		attrs = append(attrs,
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
			slog.String("err_code", errorCode(err)),
		)
	}
	logger.Info(tghelpers.BuildContext(c), "tg", "handler.handled", append(attrs, s.extras...)...)
}

func handlerName(name string) string {
	name = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(name), "/"))
	if name == "" {
		return "unknown"
	}
	return strings.ReplaceAll(name, " ", "_")
}

// errorCode prefers a Code() string from the error chain and falls back to the
// concrete type name.
func errorCode(err error) string {
	var coder interface{ Code() string }
	if errors.As(err, &coder) {
		if code := strings.TrimSpace(coder.Code()); code != "" {
			return strings.ToUpper(strings.ReplaceAll(code, " ", "_"))
		}
	}
	t := reflect.TypeOf(err)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Name() == "" {
		return "UNKNOWN_ERROR"
	}
	return strings.ToUpper(t.Name())
}
