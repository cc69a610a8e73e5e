package handlers

import (
	"context"
	"errors"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/less-homeless/shelterbot/internal/schedule"
	"github.com/less-homeless/shelterbot/internal/session"
)

// NewTextHandler returns the default handler. Free text only means
// something when the sender's session is waiting for it: a name filter, a
// channel link, or a schedule phrase. Anything else shows the main menu.
func NewTextHandler(deps HandlerDeps) bot.HandlerFunc {
	return textHandler{deps}.Handle
}

type textHandler struct {
	deps HandlerDeps
}

func (h textHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "text")

	if update.Message == nil || update.Message.From == nil || update.Message.Text == "" {
		return
	}

	msg := update.Message
	key := session.Key{UserID: msg.From.ID, ChatID: msg.Chat.ID}
	msgs := h.deps.Config.Telegram.Messages

	reply := func(text string, kb models.ReplyMarkup) {
		params := &bot.SendMessageParams{ChatID: msg.Chat.ID, Text: text}
		if kb != nil {
			params.ReplyMarkup = kb
		}
		if _, err := b.SendMessage(ctx, params); err != nil {
			log.ErrorContext(ctx, "Failed to send reply", "error", err, "chat_id", msg.Chat.ID)
		}
	}

	switch h.deps.Sessions.State(key) {
	case session.AwaitingName:
		if err := h.deps.Sessions.SubmitName(key, msg.Text); err != nil {
			if errors.Is(err, session.ErrEmptyName) {
				reply(msgs.EmptyName, nil)
				return
			}
			log.ErrorContext(ctx, "Failed to record name filter", "error", err)
			reply(msgs.GeneralError, nil)
			return
		}
		filters := h.deps.Sessions.Filters(key)
		forChannel := h.deps.Sessions.Scope(key) == session.ScopeChannel
		reply(msgs.ChooseFilter, scopedFiltersKeyboard(filters, forChannel))

	case session.AwaitingChannel:
		if err := h.deps.Sessions.SubmitChannelLink(key, msg.Text); err != nil {
			if errors.Is(err, session.ErrBadChannel) {
				reply(msgs.BadChannel, nil)
				return
			}
			log.ErrorContext(ctx, "Failed to record channel link", "error", err)
			reply(msgs.GeneralError, nil)
			return
		}
		reply(msgs.AskSchedule, nil)

	case session.AwaitingSchedule:
		cronExpr, err := schedule.Parse(msg.Text)
		if err != nil {
			var formatErr *schedule.FormatError
			if errors.As(err, &formatErr) {
				reply(formatErr.Error(), nil)
				return
			}
			log.ErrorContext(ctx, "Failed to parse schedule", "error", err)
			reply(msgs.GeneralError, nil)
			return
		}
		if err := h.deps.Sessions.SubmitSchedule(key, cronExpr); err != nil {
			log.ErrorContext(ctx, "Failed to record schedule", "error", err)
			reply(msgs.GeneralError, nil)
			return
		}
		// The channel draft is complete; the filters chosen next apply
		// to the broadcasts.
		reply(msgs.ChooseFilter, scopedFiltersKeyboard(h.deps.Sessions.Filters(key), true))

	default:
		reply(msgs.MainMenu, mainMenuKeyboard())
	}
}
