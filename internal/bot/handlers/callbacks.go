package handlers

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/less-homeless/shelterbot/internal/config"
	"github.com/less-homeless/shelterbot/internal/database"
	"github.com/less-homeless/shelterbot/internal/normalize"
	"github.com/less-homeless/shelterbot/internal/session"
)

// Callback data values. Prefixed entries carry a suffix: an animal ID, an
// age, or a channel chat ID.
const (
	cbViewAll       = "view_all"
	cbViewFiltered  = "view_filtered"
	cbFilterAge     = "filter_age"
	cbFilterSex     = "filter_sex"
	cbFilterName    = "filter_name"
	cbFilterPhoto   = "filter_photo"
	cbSexMale       = "sex_male"
	cbSexFemale     = "sex_female"
	cbShowFiltered  = "show_filtered"
	cbBackToMain    = "back_to_main"
	cbBackToFilters = "back_to_filters"
	cbBackToList    = "back_to_list"
	cbChannels      = "channels"
	cbChannelAdd    = "add_channel"
	cbChannelSave   = "save_channel"
	cbNoop          = "noop"

	cbAnimalPrefix  = "animal_"
	cbAgeMinPrefix  = "age_min_"
	cbAgeMaxPrefix  = "age_max_"
	cbChannelToggle = "channel_toggle:"
	cbChannelDelete = "channel_del:"
)

// NewCallbackHandler returns the router for all inline-keyboard callbacks.
func NewCallbackHandler(deps HandlerDeps) bot.HandlerFunc {
	return callbackHandler{deps}.Handle
}

type callbackHandler struct {
	deps HandlerDeps
}

// callbackResponder answers one callback query. Telegram invalidates the
// query ID after the first answer, so every path must answer exactly once:
// validation prompts consume the answer as an alert, everything else gets
// a plain ack from finish.
type callbackResponder struct {
	bot      *bot.Bot
	cb       *models.CallbackQuery
	log      *slog.Logger
	answered bool
}

func (r *callbackResponder) alert(ctx context.Context, text string) {
	if r.answered {
		r.log.WarnContext(ctx, "Dropping second answer for callback", "text", text)
		return
	}
	r.answered = true

	_, err := r.bot.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: r.cb.ID,
		Text:            text,
		ShowAlert:       true,
	})
	if err != nil {
		r.log.WarnContext(ctx, "Failed to send callback alert", "error", err)
	}
}

func (r *callbackResponder) finish(ctx context.Context) {
	if r.answered {
		return
	}
	r.answered = true

	_, err := r.bot.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{CallbackQueryID: r.cb.ID})
	if err != nil {
		r.log.WarnContext(ctx, "Failed to ack callback", "error", err)
	}
}

func (h callbackHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "callback")

	cb := update.CallbackQuery
	if cb == nil {
		log.WarnContext(ctx, "Update without a callback query", "update_id", update.ID)
		return
	}

	resp := &callbackResponder{bot: b, cb: cb, log: log}
	defer resp.finish(ctx)

	msg := cb.Message.Message
	if msg == nil {
		log.WarnContext(ctx, "Callback without an accessible message", "update_id", update.ID)
		return
	}

	key := session.Key{UserID: cb.From.ID, ChatID: msg.Chat.ID}
	data := cb.Data

	log.DebugContext(ctx, "Callback received", "data", data, "user_id", key.UserID, "chat_id", key.ChatID)

	switch {
	case data == cbViewAll:
		h.showAllAnimals(ctx, b, log, key, msg)
	case data == cbViewFiltered:
		h.showFilters(ctx, b, log, key, msg)
	case data == cbFilterAge:
		h.startAgeFilter(ctx, b, log, key, msg)
	case strings.HasPrefix(data, cbAgeMinPrefix):
		h.pickMinAge(ctx, b, log, key, msg, resp, strings.TrimPrefix(data, cbAgeMinPrefix))
	case strings.HasPrefix(data, cbAgeMaxPrefix):
		h.pickMaxAge(ctx, b, log, key, msg, resp, strings.TrimPrefix(data, cbAgeMaxPrefix))
	case data == cbFilterSex:
		h.deps.Sessions.SelectSex(key)
		h.edit(ctx, b, log, msg, h.msgs().AskSex, sexKeyboard())
	case data == cbSexMale, data == cbSexFemale:
		h.pickSex(ctx, b, log, key, msg, data)
	case data == cbFilterName:
		h.deps.Sessions.SelectName(key)
		h.edit(ctx, b, log, msg, h.msgs().AskName, nil)
	case data == cbFilterPhoto:
		h.deps.Sessions.TogglePhoto(key)
		h.showFilters(ctx, b, log, key, msg)
	case data == cbShowFiltered:
		h.showFiltered(ctx, b, log, key, msg, resp)
	case data == cbBackToMain:
		// Leaving the flow discards the whole session, navigation
		// memory included.
		h.deps.Sessions.Reset(key)
		h.edit(ctx, b, log, msg, h.msgs().MainMenu, mainMenuKeyboard())
	case data == cbBackToFilters:
		h.showFilters(ctx, b, log, key, msg)
	case strings.HasPrefix(data, cbAnimalPrefix):
		h.showAnimalCard(ctx, b, log, msg, resp, strings.TrimPrefix(data, cbAnimalPrefix))
	case data == cbBackToList:
		h.backToList(ctx, b, log, key, msg)
	case data == cbChannels:
		h.showChannels(ctx, b, log, msg)
	case data == cbChannelAdd:
		h.deps.Sessions.BeginAddChannel(key)
		h.edit(ctx, b, log, msg, h.msgs().AskChannel, nil)
	case data == cbChannelSave:
		h.saveChannel(ctx, b, log, key, msg, resp)
	case strings.HasPrefix(data, cbChannelToggle):
		h.toggleChannel(ctx, b, log, msg, strings.TrimPrefix(data, cbChannelToggle))
	case strings.HasPrefix(data, cbChannelDelete):
		h.deleteChannel(ctx, b, log, msg, resp, strings.TrimPrefix(data, cbChannelDelete))
	case data == cbNoop:
		// Label rows. Nothing to do.
	default:
		log.WarnContext(ctx, "Unknown callback data", "data", data)
	}
}

func (h callbackHandler) msgs() config.Messages {
	return h.deps.Config.Telegram.Messages
}

func (h callbackHandler) edit(ctx context.Context, b *bot.Bot, log *slog.Logger, msg *models.Message, text string, kb *models.InlineKeyboardMarkup) {
	params := &bot.EditMessageTextParams{
		ChatID:    msg.Chat.ID,
		MessageID: msg.ID,
		Text:      text,
	}
	if kb != nil {
		params.ReplyMarkup = kb
	}
	if _, err := b.EditMessageText(ctx, params); err != nil {
		log.ErrorContext(ctx, "Failed to edit message", "error", err, "chat_id", msg.Chat.ID)
	}
}

func (h callbackHandler) showAllAnimals(ctx context.Context, b *bot.Bot, log *slog.Logger, key session.Key, msg *models.Message) {
	list := h.deps.Animals.ListAll(ctx)
	if len(list) == 0 {
		h.edit(ctx, b, log, msg, h.msgs().NoAnimals, mainMenuKeyboard())
		return
	}

	h.deps.Sessions.RecordShown(key, session.ListAll, animalIDs(list))
	h.edit(ctx, b, log, msg, "All available animals:", animalListKeyboard(list))
}

func (h callbackHandler) showFilters(ctx context.Context, b *bot.Bot, log *slog.Logger, key session.Key, msg *models.Message) {
	filters := h.deps.Sessions.Filters(key)
	forChannel := h.deps.Sessions.Scope(key) == session.ScopeChannel
	h.edit(ctx, b, log, msg, h.msgs().ChooseFilter, scopedFiltersKeyboard(filters, forChannel))
}

func (h callbackHandler) startAgeFilter(ctx context.Context, b *bot.Bot, log *slog.Logger, key session.Key, msg *models.Message) {
	h.deps.Sessions.SelectAge(key)
	maxAge := h.deps.Animals.MaxAge(ctx)
	h.edit(ctx, b, log, msg, h.msgs().AskMinAge, ageKeyboard(0, maxAge, cbAgeMinPrefix))
}

func (h callbackHandler) pickMinAge(ctx context.Context, b *bot.Bot, log *slog.Logger, key session.Key, msg *models.Message, resp *callbackResponder, raw string) {
	minAge, err := strconv.Atoi(raw)
	if err != nil {
		log.WarnContext(ctx, "Bad age callback payload", "data", raw)
		return
	}

	switch err := h.deps.Sessions.PickMinAge(ctx, key, minAge); {
	case errors.Is(err, session.ErrMinTooHigh):
		resp.alert(ctx, h.msgs().MinAgeTooHigh)
		return
	case errors.Is(err, session.ErrNotAwaiting):
		log.DebugContext(ctx, "Stale age callback ignored", "data", raw)
		return
	case err != nil:
		log.ErrorContext(ctx, "Failed to record minimum age", "error", err)
		return
	}

	maxAge := h.deps.Animals.MaxAge(ctx)
	h.edit(ctx, b, log, msg, h.msgs().AskMaxAge, ageKeyboard(minAge, maxAge, cbAgeMaxPrefix))
}

func (h callbackHandler) pickMaxAge(ctx context.Context, b *bot.Bot, log *slog.Logger, key session.Key, msg *models.Message, resp *callbackResponder, raw string) {
	maxAge, err := strconv.Atoi(raw)
	if err != nil {
		log.WarnContext(ctx, "Bad age callback payload", "data", raw)
		return
	}

	switch err := h.deps.Sessions.PickMaxAge(key, maxAge); {
	case errors.Is(err, session.ErrAgeOrder):
		resp.alert(ctx, h.msgs().BadAgeOrder)
		return
	case errors.Is(err, session.ErrNotAwaiting):
		log.DebugContext(ctx, "Stale age callback ignored", "data", raw)
		return
	case err != nil:
		log.ErrorContext(ctx, "Failed to record maximum age", "error", err)
		return
	}

	h.showFilters(ctx, b, log, key, msg)
}

func (h callbackHandler) pickSex(ctx context.Context, b *bot.Bot, log *slog.Logger, key session.Key, msg *models.Message, data string) {
	sex := normalize.SexMale
	if data == cbSexFemale {
		sex = normalize.SexFemale
	}
	if err := h.deps.Sessions.PickSex(key, sex); err != nil {
		log.DebugContext(ctx, "Stale sex callback ignored", "error", err)
		return
	}
	h.showFilters(ctx, b, log, key, msg)
}

func (h callbackHandler) showFiltered(ctx context.Context, b *bot.Bot, log *slog.Logger, key session.Key, msg *models.Message, resp *callbackResponder) {
	filters, err := h.deps.Sessions.FiltersForQuery(key)
	if err != nil {
		resp.alert(ctx, h.msgs().NeedFilter)
		return
	}

	list := h.deps.Animals.Query(ctx, filters)
	if len(list) == 0 {
		h.edit(ctx, b, log, msg, h.msgs().NoMatches, scopedFiltersKeyboard(filters, false))
		return
	}

	h.deps.Sessions.RecordShown(key, session.ListFiltered, animalIDs(list))
	h.edit(ctx, b, log, msg, "Results for your filters:", animalListKeyboard(list))
}

// showAnimalCard replaces the list with a photo card. The photo message
// cannot be edited in place of a text message, so the list is deleted and
// the card sent fresh; back_to_list reverses that.
func (h callbackHandler) showAnimalCard(ctx context.Context, b *bot.Bot, log *slog.Logger, msg *models.Message, resp *callbackResponder, raw string) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		log.WarnContext(ctx, "Bad animal callback payload", "data", raw)
		return
	}

	animal := h.deps.Animals.Get(ctx, id)
	if animal == nil {
		resp.alert(ctx, h.msgs().GeneralError)
		return
	}

	kb := cardKeyboard(animalSiteURL(*animal, h.deps.Config.Broadcast.FallbackURL))
	text := animalCard(*animal)

	sent := false
	if animal.PhotoURL != "" {
		_, err := b.SendPhoto(ctx, &bot.SendPhotoParams{
			ChatID:      msg.Chat.ID,
			Photo:       &models.InputFileString{Data: animal.PhotoURL},
			Caption:     text,
			ParseMode:   models.ParseModeHTML,
			ReplyMarkup: kb,
		})
		if err != nil {
			log.WarnContext(ctx, "Failed to send photo card, falling back to text", "error", err, "animal_id", id)
		} else {
			sent = true
		}
	}
	if !sent {
		_, err := b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID:      msg.Chat.ID,
			Text:        text,
			ParseMode:   models.ParseModeHTML,
			ReplyMarkup: kb,
		})
		if err != nil {
			log.ErrorContext(ctx, "Failed to send animal card", "error", err, "animal_id", id)
			return
		}
	}

	if _, err := b.DeleteMessage(ctx, &bot.DeleteMessageParams{ChatID: msg.Chat.ID, MessageID: msg.ID}); err != nil {
		log.WarnContext(ctx, "Failed to delete list message", "error", err)
	}
}

// backToList restores the list the card was opened from, using the animal
// IDs recorded when the list was shown. Animals deleted in the meantime
// drop out; if nothing recorded survives, the full list is shown instead.
func (h callbackHandler) backToList(ctx context.Context, b *bot.Bot, log *slog.Logger, key session.Key, msg *models.Message) {
	kind, ids := h.deps.Sessions.LastShown(key)

	var list []database.Animal
	for _, id := range ids {
		if animal := h.deps.Animals.Get(ctx, id); animal != nil {
			list = append(list, *animal)
		}
	}

	title := "All available animals:"
	if kind == session.ListFiltered {
		title = "Results for your filters:"
	}
	if len(list) == 0 {
		list = h.deps.Animals.ListAll(ctx)
		title = "All available animals:"
	}

	if len(list) == 0 {
		h.sendText(ctx, b, log, msg.Chat.ID, h.msgs().NoAnimals, mainMenuKeyboard())
	} else {
		h.sendText(ctx, b, log, msg.Chat.ID, title, animalListKeyboard(list))
	}

	if _, err := b.DeleteMessage(ctx, &bot.DeleteMessageParams{ChatID: msg.Chat.ID, MessageID: msg.ID}); err != nil {
		log.WarnContext(ctx, "Failed to delete card message", "error", err)
	}
}

func (h callbackHandler) showChannels(ctx context.Context, b *bot.Bot, log *slog.Logger, msg *models.Message) {
	list, err := h.deps.Channels.List(ctx)
	if err != nil {
		log.ErrorContext(ctx, "Failed to list channels", "error", err)
		h.edit(ctx, b, log, msg, h.msgs().GeneralError, mainMenuKeyboard())
		return
	}

	title := "Configured channels:"
	if len(list) == 0 {
		title = h.msgs().NoChannels
	}
	h.edit(ctx, b, log, msg, title, channelsKeyboard(list))
}

func (h callbackHandler) saveChannel(ctx context.Context, b *bot.Bot, log *slog.Logger, key session.Key, msg *models.Message, resp *callbackResponder) {
	chatID, cronExpr := h.deps.Sessions.ChannelDraft(key)
	if chatID == "" || cronExpr == "" {
		log.WarnContext(ctx, "Save requested without a complete channel draft", "user_id", key.UserID)
		resp.alert(ctx, h.msgs().GeneralError)
		return
	}

	filters := h.deps.Sessions.Filters(key)
	if err := h.deps.Channels.AddOrReplace(ctx, chatID, cronExpr, filters); err != nil {
		log.ErrorContext(ctx, "Failed to save channel", "error", err, "channel", chatID)
		resp.alert(ctx, h.msgs().GeneralError)
		return
	}

	h.deps.Sessions.Reset(key)
	h.edit(ctx, b, log, msg, h.msgs().ChannelSaved, mainMenuKeyboard())
}

func (h callbackHandler) toggleChannel(ctx context.Context, b *bot.Bot, log *slog.Logger, msg *models.Message, chatID string) {
	list, err := h.deps.Channels.List(ctx)
	if err != nil {
		log.ErrorContext(ctx, "Failed to list channels", "error", err)
		return
	}

	for _, ch := range list {
		if ch.ChatID != chatID {
			continue
		}
		if _, err := h.deps.Channels.SetActive(ctx, chatID, !ch.IsActive); err != nil {
			log.ErrorContext(ctx, "Failed to toggle channel", "error", err, "channel", chatID)
		}
		break
	}

	h.showChannels(ctx, b, log, msg)
}

func (h callbackHandler) deleteChannel(ctx context.Context, b *bot.Bot, log *slog.Logger, msg *models.Message, resp *callbackResponder, chatID string) {
	existed, err := h.deps.Channels.Remove(ctx, chatID)
	if err != nil {
		log.ErrorContext(ctx, "Failed to remove channel", "error", err, "channel", chatID)
		resp.alert(ctx, h.msgs().GeneralError)
		return
	}
	if existed {
		resp.alert(ctx, h.msgs().ChannelRemoved)
	}
	h.showChannels(ctx, b, log, msg)
}

func animalIDs(list []database.Animal) []int64 {
	ids := make([]int64, len(list))
	for i, a := range list {
		ids[i] = a.ID
	}
	return ids
}

func (h callbackHandler) sendText(ctx context.Context, b *bot.Bot, log *slog.Logger, chatID int64, text string, kb *models.InlineKeyboardMarkup) {
	params := &bot.SendMessageParams{ChatID: chatID, Text: text}
	if kb != nil {
		params.ReplyMarkup = kb
	}
	if _, err := b.SendMessage(ctx, params); err != nil {
		log.ErrorContext(ctx, "Failed to send message", "error", err, "chat_id", chatID)
	}
}
