package middleware

import (
	"github.com/m3rciful/tgforms/core/logger"
	tghelpers "github.com/m3rciful/tgforms/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// AdminOnly passes updates from adminID only. Anyone else gets onReject, if set.
// A zero adminID disables the check.
func AdminOnly(adminID int64, onReject tele.HandlerFunc) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		if adminID == 0 {
			return next
		}
		return func(c tele.Context) error {
			if user := c.Sender(); user != nil && user.ID == adminID {
				return next(c)
			}
			logger.Info(tghelpers.BuildContext(c), "tg", "access.denied")
			if onReject != nil {
				return onReject(c)
			}
			return nil
		}
	}
}
