// Package sender runs outbound Bot API calls on a small worker pool with retries.
package sender

import (
	"context"
	"crypto/tls"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"regexp"
	"sync"
	"sync/atomic"
	"time"

	"github.com/m3rciful/tgforms/core/logger"
	"github.com/m3rciful/tgforms/core/telegram/netutil"

	tele "gopkg.in/telebot.v4"
)

var (
	// ErrQueueClosed is returned by Enqueue after Close.
	ErrQueueClosed = errors.New("telegram sender: queue closed")
	// ErrQueueFull is returned when the lane of the chat has no free slot.
	ErrQueueFull = errors.New("telegram sender: queue full")

	errNilCall = errors.New("telegram sender: nil call")
	tokenRe    = regexp.MustCompile(`bot[0-9]+:[A-Za-z0-9_-]+`)
)

// Options controls the behaviour of the outbound dispatcher.
type Options struct {
	// QueueSize is shared evenly between the workers.
	QueueSize int
	Workers   int
	// MaxRetries bounds retries of transient failures; flood waits count too.
	MaxRetries   int
	RetryBackoff time.Duration
	// MaxDuration bounds the time spent on a single call, retries included.
	MaxDuration time.Duration
}

func (o Options) withDefaults() Options {
	if o.Workers <= 0 {
		o.Workers = 4
	}
	if o.QueueSize < o.Workers {
		o.QueueSize = 256
	}
	if o.MaxRetries < 0 {
		o.MaxRetries = 0
	}
	if o.RetryBackoff <= 0 {
		o.RetryBackoff = 2 * time.Second
	}
	if o.MaxDuration <= 0 {
		o.MaxDuration = 12 * time.Second
	}
	return o
}

type job struct {
	ctx      context.Context
	action   string
	endpoint string
	call     func() error
}

func (j job) attrs(extra ...slog.Attr) []slog.Attr {
	return append([]slog.Attr{
		slog.String("action", j.action),
		slog.String("endpoint", j.endpoint),
	}, extra...)
}

// Dispatcher executes outbound calls asynchronously. Every chat is pinned to one
// worker lane, so the prompts of a conversation leave in the order they were queued.
type Dispatcher struct {
	opts  Options
	lanes []chan job
	wg    sync.WaitGroup
	errs  atomic.Uint64

	mu     sync.RWMutex
	closed bool
}

// NewDispatcher starts the workers. Zero options select the defaults.
func NewDispatcher(opts Options) *Dispatcher {
	opts = opts.withDefaults()
	d := &Dispatcher{opts: opts, lanes: make([]chan job, opts.Workers)}
	for i := range d.lanes {
		lane := make(chan job, opts.QueueSize/opts.Workers)
		d.lanes[i] = lane
		d.wg.Add(1)
		go d.work(lane)
	}
	return d
}

// Enqueue schedules call on the lane of the chat found in ctx. call may run more
// than once when it fails transiently.
func (d *Dispatcher) Enqueue(ctx context.Context, action, endpoint string, call func() error) error {
	if call == nil {
		return errNilCall
	}
	if ctx == nil {
		ctx = context.Background()
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrQueueClosed
	}
	select {
	case d.lane(ctx) <- job{ctx: ctx, action: action, endpoint: endpoint, call: call}:
		return nil
	default:
		return ErrQueueFull
	}
}

func (d *Dispatcher) lane(ctx context.Context) chan job {
	id := logger.ChatIDFrom(ctx)
	if id < 0 {
		id = -id
	}
	return d.lanes[id%int64(len(d.lanes))]
}

// ErrorCount returns the number of calls that failed for good.
func (d *Dispatcher) ErrorCount() uint64 {
	return d.errs.Load()
}

// Close stops accepting calls and waits for the queued ones to finish.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		for _, lane := range d.lanes {
			close(lane)
		}
	}
	d.mu.Unlock()
	d.wg.Wait()
}

func (d *Dispatcher) work(lane <-chan job) {
	defer d.wg.Done()
	for j := range lane {
		d.run(j)
	}
}

func (d *Dispatcher) run(j job) {
	ctx, cancel := context.WithTimeout(j.ctx, d.opts.MaxDuration)
	defer cancel()

	start := time.Now()
	attempts := d.opts.MaxRetries + 1
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = j.call(); err == nil {
			logger.Debug(ctx, "tg.sender", "send.ok", j.attrs(
				slog.Int("attempts", attempt),
				slog.Duration("duration", time.Since(start)),
			)...)
			return
		}
		delay, retry := d.backoff(err, attempt)
		if !retry || attempt == attempts {
			break
		}
		logger.Debug(ctx, "tg.sender", "send.retry", j.attrs(
			slog.Int("attempts", attempt),
			slog.Duration("backoff", delay),
			slog.String("cause", classify(err)),
		)...)
		if werr := wait(ctx, delay); werr != nil {
			err = werr
			break
		}
	}

	d.errs.Add(1)
	logger.Error(ctx, "tg.sender", "send.fail", j.attrs(
		slog.String("err", redact(err)),
		slog.String("err_code", classify(err)),
		slog.Duration("duration", time.Since(start)),
	)...)
}

// backoff returns how long to wait before retrying err. Flood errors wait as long
// as Telegram asks; transient network errors back off linearly.
func (d *Dispatcher) backoff(err error, attempt int) (time.Duration, bool) {
	var flood tele.FloodError
	if errors.As(err, &flood) {
		return time.Duration(flood.RetryAfter) * time.Second, true
	}
	if netutil.ShouldRetry(err) {
		return d.opts.RetryBackoff * time.Duration(attempt), true
	}
	return 0, false
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// redact hides bot tokens that net/http embeds in request URLs.
func redact(err error) string {
	if err == nil {
		return ""
	}
	return tokenRe.ReplaceAllString(err.Error(), "bot<redacted>")
}

func classify(err error) string {
	var (
		dnsErr   *net.DNSError
		netErr   net.Error
		opErr    *net.OpError
		alertErr tls.AlertError
	)
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.As(err, &dnsErr):
		if dnsErr.IsTimeout {
			return "timeout"
		}
		return "dns"
	case errors.As(err, &netErr) && netErr.Timeout():
		return "timeout"
	case errors.As(err, &opErr) && opErr.Op == "dial":
		return "dial"
	case errors.As(err, &alertErr):
		return "tls"
	}
	switch status := apiStatus(err); {
	case status >= 500:
		return "http_5xx"
	case status >= 400:
		return "http_4xx"
	}
	return "unknown"
}

func apiStatus(err error) int {
	var (
		apiErr *tele.Error
		flood  tele.FloodError
		group  tele.GroupError
	)
	switch {
	case errors.As(err, &flood):
		return http.StatusTooManyRequests
	case errors.As(err, &group):
		return http.StatusBadRequest
	case errors.As(err, &apiErr):
		return apiErr.Code
	}
	return 0
}
