// Package handlers implements the Telegram update handlers: the command
// entry points, the inline-keyboard callback router, and the free-text
// handler that feeds the filter dialogue.
package handlers

import (
	"log/slog"

	"github.com/less-homeless/shelterbot/internal/animals"
	"github.com/less-homeless/shelterbot/internal/channels"
	"github.com/less-homeless/shelterbot/internal/config"
	"github.com/less-homeless/shelterbot/internal/session"
)

// HandlerDeps bundles the dependencies shared by all handlers.
type HandlerDeps struct {
	Logger   *slog.Logger
	Config   *config.Config
	Animals  *animals.Repository
	Sessions *session.Manager
	Channels *channels.Registry
}
