package middleware

import (
	"sync/atomic"

	tele "gopkg.in/telebot.v4"
)

const countersKey = "tgforms.counters"

// counters may be updated from the outbound sender goroutine.
type counters struct {
	messages atomic.Int32
	keyboard atomic.Bool
}

func (n *counters) track(err error, opts []any) error {
	if err != nil {
		return err
	}
	n.messages.Add(1)
	for _, o := range opts {
		switch v := o.(type) {
		case *tele.SendOptions:
			if v != nil && v.ReplyMarkup != nil {
				n.keyboard.Store(true)
			}
		case *tele.ReplyMarkup:
			if v != nil {
				n.keyboard.Store(true)
			}
		}
	}
	return nil
}

type countingContext struct {
	tele.Context
	n *counters
}

func (c countingContext) Send(what any, opts ...any) error {
	return c.n.track(c.Context.Send(what, opts...), opts)
}

func (c countingContext) Reply(what any, opts ...any) error {
	return c.n.track(c.Context.Reply(what, opts...), opts)
}

func (c countingContext) Edit(what any, opts ...any) error {
	return c.n.track(c.Context.Edit(what, opts...), opts)
}

func (c countingContext) EditOrSend(what any, opts ...any) error {
	return c.n.track(c.Context.EditOrSend(what, opts...), opts)
}

func (c countingContext) EditOrReply(what any, opts ...any) error {
	return c.n.track(c.Context.EditOrReply(what, opts...), opts)
}

// Counting wraps the context so handler summaries can report how many replies
// were sent and whether any of them carried a keyboard.
func Counting(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		n := &counters{}
		c.Set(countersKey, n)
		return next(countingContext{Context: c, n: n})
	}
}

// Counters reads what Counting recorded for c.
func Counters(c tele.Context) (messages int, keyboard bool) {
	n, ok := c.Get(countersKey).(*counters)
	if !ok {
		return 0, false
	}
	return int(n.messages.Load()), n.keyboard.Load()
}
