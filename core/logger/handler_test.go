package logger

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHandler(t *testing.T, format logFormat) (*slog.Logger, *asyncWriter, *bytes.Buffer) {
	t.Helper()
	buf := &bytes.Buffer{}
	w := newAsyncWriter([]sink{newSink(buf, slog.LevelDebug, 1024)}, 16)
	t.Cleanup(func() { _ = w.Close() })
	h := newStructuredHandler(handlerConfig{level: slog.LevelInfo, writer: w, format: format})
	return slog.New(h).With("component", "forms"), w, buf
}

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &out))
	return out
}

func TestHandler_KVOrder(t *testing.T) {
	log, w, buf := newTestHandler(t, formatKV)
	ctx := WithUpdateMeta(WithRID(context.Background(), "rid-123"), 42, 7, 9)

	LogEvent(ctx, log, slog.LevelInfo, "field.accepted",
		slog.String("cause", "unit"),
		slog.String("status", "OK"),
	)
	require.NoError(t, w.Flush())

	tokens := strings.Fields(buf.String())
	expected := []string{"ts=", "level=INFO", "component=forms", "event=field.accepted", "status=ok", "rid=rid-123", "update_id=42", "user_id=7", "chat_id=9"}
	require.GreaterOrEqual(t, len(tokens), len(expected))
	for i, prefix := range expected {
		assert.True(t, strings.HasPrefix(tokens[i], prefix), "token %d = %s, want prefix %s", i, tokens[i], prefix)
	}
}

func TestHandler_JSONFields(t *testing.T) {
	log, w, buf := newTestHandler(t, formatJSON)
	ctx := WithRID(context.Background(), BuildRID(42, 9, 7))
	ctx = WithFormRun(ctx, "signup", "run-1")
	ctx = WithHandler(ctx, "text")

	LogEvent(ctx, log, slog.LevelWarn, "field.invalid",
		slog.Duration("took", 1500*time.Microsecond),
		slog.String("outcome", "bogus"),
		slog.String("blank", "  "),
		slog.Group("req", slog.Int("n", 3)),
		slog.Any("err", errors.New("boom")),
	)
	require.NoError(t, w.Flush())
	assert.True(t, strings.HasPrefix(buf.String(), `{"ts":`))

	line := decodeLine(t, buf)
	assert.Equal(t, "WARN", line["level"])
	assert.Equal(t, "forms", line["component"])
	assert.Equal(t, "field.invalid", line["event"])
	assert.Equal(t, "16.9.7", line["rid"])
	assert.Equal(t, "42:9:7", line["rid_full"])
	assert.Equal(t, "signup", line["form"])
	assert.Equal(t, "run-1", line["form_run"])
	assert.Equal(t, "text", line["handler"])
	assert.EqualValues(t, 2, line["took_ms"])
	assert.EqualValues(t, 3, line["req.n"])
	assert.Equal(t, "boom", line["err"])
	assert.Contains(t, line, "ts_unix_nano")
	assert.NotContains(t, line, "outcome")
	assert.NotContains(t, line, "blank")
}

func TestHandler_AttributesOverrideContext(t *testing.T) {
	log, w, buf := newTestHandler(t, formatJSON)
	ctx := WithFormRun(context.Background(), "signup", "run-1")

	log.InfoContext(ctx, "menu.select", slog.String("form", "feedback"))
	require.NoError(t, w.Flush())

	line := decodeLine(t, buf)
	assert.Equal(t, "feedback", line["form"])
	assert.Equal(t, "run-1", line["form_run"])
	assert.Equal(t, "menu.select", line["event"], "message fills a missing event")
}

func TestHandler_DefaultsAndLevel(t *testing.T) {
	buf := &bytes.Buffer{}
	w := newAsyncWriter([]sink{newSink(buf, slog.LevelDebug, 1024)}, 4)
	defer w.Close()
	log := slog.New(newStructuredHandler(handlerConfig{writer: w, format: formatJSON}))

	log.Debug("hidden")
	log.Info("")
	require.NoError(t, w.Flush())

	line := decodeLine(t, buf)
	assert.Equal(t, "app", line["component"])
	assert.Equal(t, "unknown", line["event"])
}

func TestHandler_CallerOnErrors(t *testing.T) {
	buf := &bytes.Buffer{}
	w := newAsyncWriter([]sink{newSink(buf, slog.LevelDebug, 1024)}, 4)
	defer w.Close()
	log := slog.New(newStructuredHandler(handlerConfig{writer: w, format: formatJSON, caller: true}))

	log.Info("quiet")
	require.NoError(t, w.Flush())
	assert.NotContains(t, decodeLine(t, buf), "caller")

	buf.Reset()
	log.Error("loud")
	require.NoError(t, w.Flush())
	assert.Contains(t, decodeLine(t, buf)["caller"], "handler_test.go:")
}

func TestHandler_NoWriter(t *testing.T) {
	h := newStructuredHandler(handlerConfig{})
	err := h.Handle(context.Background(), slog.NewRecord(time.Now(), slog.LevelInfo, "x", 0))
	assert.ErrorIs(t, err, errNoWriter)
}

func TestAsyncWriter_RoutesByLevel(t *testing.T) {
	all, errs := &bytes.Buffer{}, &bytes.Buffer{}
	w := newAsyncWriter([]sink{
		newSink(all, slog.LevelDebug, 1024),
		newSink(errs, slog.LevelError, 1024),
	}, 4)

	require.NoError(t, w.Write(slog.LevelInfo, []byte("info\n")))
	require.NoError(t, w.Write(slog.LevelError, []byte("error\n")))
	require.NoError(t, w.Flush())

	assert.Equal(t, "info\nerror\n", all.String())
	assert.Equal(t, "error\n", errs.String())

	require.NoError(t, w.Close())
	assert.ErrorIs(t, w.Write(slog.LevelInfo, []byte("late\n")), errWriterClosed)
	assert.NoError(t, w.Flush())
	assert.NoError(t, w.Close())
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestAsyncWriter_ReportsSinkErrors(t *testing.T) {
	w := newAsyncWriter([]sink{newSink(failingWriter{}, slog.LevelDebug, 1)}, 4)
	require.NoError(t, w.Write(slog.LevelInfo, []byte("line\n")))
	assert.EqualError(t, w.Close(), "disk full")
}

func TestRatioSampler(t *testing.T) {
	s := newRatioSampler(2, 5)
	var got []bool
	for range 10 {
		got = append(got, s.Allow())
	}
	assert.Equal(t, []bool{true, true, false, false, false, true, true, false, false, false}, got)

	s.Set(0, 0)
	for range 3 {
		assert.True(t, s.Allow())
	}
}

func TestParseRatioSpec(t *testing.T) {
	cases := map[string][2]int{
		"":      {0, 0},
		"1/10":  {1, 10},
		" 3/4 ": {3, 4},
		"20":    {1, 20},
		"0":     {0, 0},
		"a/b":   {0, 0},
	}
	for spec, want := range cases {
		num, den := parseRatioSpec(spec)
		assert.Equal(t, want, [2]int{num, den}, spec)
	}
}

func TestContextAccessors(t *testing.T) {
	var nilCtx context.Context
	assert.Empty(t, RIDFrom(nilCtx))
	assert.Zero(t, UserIDFrom(nilCtx))

	ctx := WithHandler(context.Background(), "")
	assert.Empty(t, HandlerFrom(ctx))

	ctx = WithFormRun(WithUpdateMeta(ctx, 1, 2, 3), "signup", "r")
	form, run := FormRunFrom(ctx)
	assert.Equal(t, "signup", form)
	assert.Equal(t, "r", run)
	assert.Equal(t, 1, UpdateIDFrom(ctx))
	assert.Equal(t, int64(2), UserIDFrom(ctx))
	assert.Equal(t, int64(3), ChatIDFrom(ctx))
}

func TestHelpersAreNoopsBeforeInit(t *testing.T) {
	require.Nil(t, L)
	assert.Nil(t, Component("forms"))
	assert.NotPanics(t, func() {
		Info(context.Background(), "forms", "form.start", slog.String("form", "signup"))
		LogEvent(nil, nil, slog.LevelError, "x")
	})
}

func TestUtil(t *testing.T) {
	assert.Equal(t, "16.9.7", CompactRID("42:9:7"))
	assert.Equal(t, "a:b:c", CompactRID("a:b:c"))
	assert.Equal(t, "plain", CompactRID("plain"))

	assert.Equal(t, "ab\tc\n", Sanitize("a\x00b\tc\u200b\n"))
	assert.Equal(t, "hé", SanitizeLimit("hé\x01llo", 2))
	assert.Empty(t, SanitizeLimit("abc", 0))

	s, truncated := SummarizeStrings([]string{"a", "b", "c"}, 2)
	assert.Equal(t, "a, b", s)
	assert.True(t, truncated)

	assert.Equal(t, time.Duration(0), RoundMS(-time.Second))
	assert.Equal(t, 3*time.Millisecond, RoundMS(2600*time.Microsecond))
}
