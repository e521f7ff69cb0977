package middleware

import (
	"context"
	"log/slog"

	"github.com/m3rciful/tgforms/core/logger"
	tghelpers "github.com/m3rciful/tgforms/core/telegram/helpers"
	"github.com/m3rciful/tgforms/core/telegram/state"

	tele "gopkg.in/telebot.v4"
)

// StateReader is the minimal view of a conversation store.
type StateReader interface {
	GetState(ctx context.Context, key state.Key) (state.State, error)
}

// StateIn passes updates only while the conversation state is one of states.
// Other updates are dropped silently.
func StateIn(store StateReader, states ...state.State) tele.MiddlewareFunc {
	allowed := make(map[state.State]struct{}, len(states))
	for _, st := range states {
		allowed[st] = struct{}{}
	}
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			ctx := tghelpers.BuildContext(c)
			current, err := store.GetState(ctx, state.KeyFrom(c))
			if err != nil {
				return err
			}
			if _, ok := allowed[current]; ok {
				logger.Debug(ctx, "tg", "fsm.match", slog.String("state", string(current)))
				return next(c)
			}
			logger.Debug(ctx, "tg", "fsm.skip", slog.String("state", string(current)))
			return nil
		}
	}
}
