package middleware

import (
	"log/slog"
	"sync"
	"time"

	"github.com/m3rciful/tgforms/core/logger"
	tghelpers "github.com/m3rciful/tgforms/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// RateLimitOptions configures RateLimit.
type RateLimitOptions struct {
	// Interval is the minimum gap between two updates of one user.
	Interval time.Duration
	// Exclude lists update kinds that are never limited: "message", "callback", "inline_query" or "other".
	Exclude map[string]struct{}
	// OnLimited runs for dropped updates.
	OnLimited tele.HandlerFunc
}

type lastSeen struct {
	mu      sync.Mutex
	at      map[int64]time.Time
	sweepAt time.Time
}

// allow records id at now unless it was seen less than interval ago.
func (l *lastSeen) allow(id int64, now time.Time, interval time.Duration) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !now.Before(l.sweepAt) {
		for k, t := range l.at {
			if now.Sub(t) >= interval {
				delete(l.at, k)
			}
		}
		l.sweepAt = now.Add(max(interval, time.Minute))
	}
	if last, ok := l.at[id]; ok && now.Sub(last) < interval {
		return false
	}
	l.at[id] = now
	return true
}

func updateKind(u tele.Update) string {
	switch {
	case u.Callback != nil:
		return "callback"
	case u.Message != nil:
		return "message"
	case u.Query != nil:
		return "inline_query"
	default:
		return "other"
	}
}

// RateLimit drops updates arriving from a user faster than opts.Interval.
func RateLimit(opts RateLimitOptions) tele.MiddlewareFunc {
	seen := &lastSeen{at: make(map[int64]time.Time)}
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		if opts.Interval <= 0 {
			return next
		}
		return func(c tele.Context) error {
			user := c.Sender()
			if user == nil {
				return next(c)
			}
			if _, skip := opts.Exclude[updateKind(c.Update())]; skip {
				return next(c)
			}
			if seen.allow(user.ID, time.Now(), opts.Interval) {
				return next(c)
			}
			logger.Warn(tghelpers.BuildContext(c), "tg", "tg.rate_limit",
				slog.Duration("interval", opts.Interval),
			)
			if opts.OnLimited != nil {
				_ = opts.OnLimited(c)
			}
			return nil
		}
	}
}
