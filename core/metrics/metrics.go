// Package metrics exports form and menu counters for Prometheus.
package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/m3rciful/tgforms/core/logger"
	"github.com/m3rciful/tgforms/core/telegram/forms"
)

const namespace = "tgforms"

// Metrics holds the counters fed by dispatcher hooks.
type Metrics struct {
	registry *prometheus.Registry

	formsStarted       *prometheus.CounterVec
	steps              *prometheus.CounterVec
	validationFailures *prometheus.CounterVec
	formsCompleted     *prometheus.CounterVec
	menuShown          *prometheus.CounterVec
	menuSelected       *prometheus.CounterVec
}

func counter(name, help string, labels ...string) *prometheus.CounterVec {
	return prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      name,
		Help:      help,
	}, labels)
}

// New creates the counters on a private registry, together with the Go and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry:           prometheus.NewRegistry(),
		formsStarted:       counter("forms_started_total", "Forms started.", "form"),
		steps:              counter("steps_total", "Field values accepted.", "form", "field"),
		validationFailures: counter("validation_failures_total", "Field values rejected.", "form", "field", "rule"),
		formsCompleted:     counter("forms_completed_total", "Forms finished.", "form"),
		menuShown:          counter("menu_shown_total", "Menus rendered.", "menu", "edited"),
		menuSelected:       counter("menu_selected_total", "Menu items pressed.", "menu", "item"),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.formsStarted,
		m.steps,
		m.validationFailures,
		m.formsCompleted,
		m.menuShown,
		m.menuSelected,
	)
	return m
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Hooks returns dispatcher hooks that update the counters.
func (m *Metrics) Hooks() forms.Hooks {
	return forms.Hooks{
		FormStarted: func(_ context.Context, form string) {
			m.formsStarted.WithLabelValues(form).Inc()
		},
		FieldAccepted: func(_ context.Context, form, field string) {
			m.steps.WithLabelValues(form, field).Inc()
		},
		ValidationFailed: func(_ context.Context, form, field, rule string) {
			m.validationFailures.WithLabelValues(form, field, rule).Inc()
		},
		FormCompleted: func(_ context.Context, form string) {
			m.formsCompleted.WithLabelValues(form).Inc()
		},
		MenuShown: func(_ context.Context, menu string, edited bool) {
			m.menuShown.WithLabelValues(menu, strconv.FormatBool(edited)).Inc()
		},
		ItemSelected: func(_ context.Context, menu, item string) {
			m.menuSelected.WithLabelValues(menu, item).Inc()
		},
	}
}

// Handler serves /metrics and /healthz.
func (m *Metrics) Handler() http.Handler {
	r := chi.NewRouter()
	r.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry}))
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return r
}

// Serve listens on addr until ctx is cancelled.
func (m *Metrics) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           m.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info(ctx, "metrics", "listen", slog.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn(ctx, "metrics", "shutdown_error", slog.Any("err", err))
			return err
		}
		return nil
	}
}
