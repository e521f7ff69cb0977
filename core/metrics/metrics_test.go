package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHooksIncrementCounters(t *testing.T) {
	m := New()
	h := m.Hooks()
	ctx := context.Background()

	h.FormStarted(ctx, "signup")
	h.FieldAccepted(ctx, "signup", "name")
	h.FieldAccepted(ctx, "signup", "name")
	h.ValidationFailed(ctx, "signup", "age", "integer")
	h.FormCompleted(ctx, "signup")
	h.MenuShown(ctx, "main", false)
	h.MenuShown(ctx, "main", true)
	h.ItemSelected(ctx, "main", "join")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.formsStarted.WithLabelValues("signup")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.steps.WithLabelValues("signup", "name")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.validationFailures.WithLabelValues("signup", "age", "integer")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.formsCompleted.WithLabelValues("signup")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.menuShown.WithLabelValues("main", "true")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.menuSelected.WithLabelValues("main", "join")))
}

func TestHandlerServesMetricsAndHealth(t *testing.T) {
	m := New()
	m.Hooks().FormStarted(context.Background(), "signup")

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.Contains(string(body), `tgforms_forms_started_total{form="signup"} 1`))

	resp, err = http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", string(body))
}

func TestServeStopsOnCancel(t *testing.T) {
	m := New()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Serve(ctx, "127.0.0.1:0") }()
	cancel()
	assert.NoError(t, <-done)
}
