package helpers

import (
	"errors"
	"log/slog"
	"sync/atomic"

	"github.com/m3rciful/tgforms/core/logger"
	"github.com/m3rciful/tgforms/core/telegram/sender"

	tele "gopkg.in/telebot.v4"
)

var outbound atomic.Pointer[sender.Dispatcher]

// SetDispatcher routes Deliver through d. A nil dispatcher makes every call synchronous.
func SetDispatcher(d *sender.Dispatcher) {
	outbound.Store(d)
}

// Deliver runs call on the outbound queue. When the queue is missing, full or
// closed the call runs inline so the user still gets an answer.
func Deliver(c tele.Context, action, endpoint string, call func() error) error {
	d := outbound.Load()
	if d == nil {
		return call()
	}
	ctx := BuildContext(c)
	err := d.Enqueue(ctx, action, endpoint, call)
	if errors.Is(err, sender.ErrQueueFull) || errors.Is(err, sender.ErrQueueClosed) {
		logger.Warn(ctx, "tg.sender", "queue.fallback",
			slog.String("action", action),
			slog.String("endpoint", endpoint),
			slog.String("err", err.Error()),
		)
		return call()
	}
	return err
}

// SendText sends text to the current chat. The first opts, if any, carries parse
// mode and reply markup.
func SendText(c tele.Context, text string, opts ...*tele.SendOptions) error {
	return Deliver(c, "send.text", "sendMessage", func() error {
		if len(opts) > 0 && opts[0] != nil {
			return c.Send(text, opts[0])
		}
		return c.Send(text)
	})
}
