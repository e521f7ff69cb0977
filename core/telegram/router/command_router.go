package router

import (
	"log/slog"

	"github.com/m3rciful/tgforms/core/logger"
	tg "github.com/m3rciful/tgforms/core/telegram"
	"github.com/m3rciful/tgforms/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// CommandRouteOptions configures CommandRoutes.
type CommandRouteOptions struct {
	// AdminID is the only user allowed to run AdminOnly commands; 0 allows everyone.
	AdminID       int64
	OnAdminReject tele.HandlerFunc
}

// CommandRoutes returns one route per registered command.
func CommandRoutes(reg *tg.Registry, opts CommandRouteOptions) []tg.Route {
	if reg == nil {
		return nil
	}
	adminOnly := middleware.AdminOnly(opts.AdminID, opts.OnAdminReject)

	cmds := reg.Commands()
	routes := make([]tg.Route, 0, len(cmds))
	for name, cmd := range cmds {
		h := cmd.Handler
		if cmd.AdminOnly {
			h = adminOnly(h)
		}
		routes = append(routes, tg.Route{
			Endpoint: name,
			Handler:  func(c tele.Context) error { return newSummary(name).run(c, h) },
		})
	}

	logger.Info(logger.Background(), "tg.wire", "routes.commands",
		slog.Int("commands", len(cmds)),
		slog.Int("callbacks", len(reg.ListCallbacks())),
	)
	return routes
}
