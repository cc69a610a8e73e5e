package broadcast

import (
	"context"
	"io"
	"log/slog"
	"math/rand/v2"

	"github.com/less-homeless/shelterbot/internal/database"
)

// Messenger sends broadcast posts. Implemented by the telegram layer.
type Messenger interface {
	SendAnimalPhoto(ctx context.Context, chatID string, animal database.Animal) error
	SendAnimalText(ctx context.Context, chatID string, animal database.Animal) error
}

// AnimalSource supplies the animals matching a channel's filters.
type AnimalSource interface {
	Query(ctx context.Context, filters database.FilterSet) []database.Animal
}

// ChannelSource looks up a channel's persisted configuration.
type ChannelSource interface {
	GetChannel(ctx context.Context, chatID string) (*database.Channel, error)
}

// Dispatcher executes one broadcast: re-read the channel's filters, pick a
// random matching animal, and send it. Every failure mode is terminal for
// this run only; the job stays installed and fires again next time.
type Dispatcher struct {
	channels  ChannelSource
	animals   AnimalSource
	messenger Messenger
	logger    *slog.Logger
}

// NewDispatcher creates a dispatcher.
func NewDispatcher(channels ChannelSource, animals AnimalSource, messenger Messenger, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Dispatcher{
		channels:  channels,
		animals:   animals,
		messenger: messenger,
		logger:    logger.With("component", "broadcast_dispatcher"),
	}
}

// Dispatch runs a single broadcast for the channel. Filters are read from
// the store at fire time, so edits made after the job was installed take
// effect without rescheduling.
func (d *Dispatcher) Dispatch(ctx context.Context, chatID string) {
	channel, err := d.channels.GetChannel(ctx, chatID)
	if err != nil {
		d.logger.ErrorContext(ctx, "Failed to load channel for broadcast", "chat_id", chatID, "error", err)
		return
	}
	if channel == nil {
		// Removed between scheduling and firing. Nothing to do.
		d.logger.WarnContext(ctx, "Broadcast fired for unknown channel", "chat_id", chatID)
		return
	}
	if !channel.IsActive {
		d.logger.DebugContext(ctx, "Skipping broadcast for inactive channel", "chat_id", chatID)
		return
	}

	filters, err := database.DecodeFilterSet(channel.Filters)
	if err != nil {
		d.logger.ErrorContext(ctx, "Channel has unreadable filters", "chat_id", chatID, "error", err)
		return
	}

	matches := d.animals.Query(ctx, filters)
	if len(matches) == 0 {
		d.logger.InfoContext(ctx, "No animals match channel filters, broadcast skipped", "chat_id", chatID)
		return
	}

	animal := matches[rand.IntN(len(matches))]

	if animal.PhotoURL != "" {
		err := d.messenger.SendAnimalPhoto(ctx, chatID, animal)
		if err == nil {
			d.logger.InfoContext(ctx, "Broadcast sent", "chat_id", chatID, "animal_id", animal.ID)
			return
		}
		d.logger.WarnContext(ctx, "Photo send failed, falling back to text", "chat_id", chatID, "animal_id", animal.ID, "error", err)
	}

	if err := d.messenger.SendAnimalText(ctx, chatID, animal); err != nil {
		d.logger.ErrorContext(ctx, "Broadcast send failed", "chat_id", chatID, "animal_id", animal.ID, "error", err)
		return
	}
	d.logger.InfoContext(ctx, "Broadcast sent", "chat_id", chatID, "animal_id", animal.ID)
}
