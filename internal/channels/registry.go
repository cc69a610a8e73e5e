// Package channels manages the persisted broadcast-channel configuration
// and keeps the cron scheduler in step with it. Every mutation writes the
// store first and touches the scheduler only after the write succeeds.
package channels

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/less-homeless/shelterbot/internal/database"
)

// JobScheduler is the slice of the broadcast scheduler the registry needs.
type JobScheduler interface {
	InstallOrReplace(chatID, cronExpr string) error
	Cancel(chatID string)
}

// Registry coordinates channel persistence with job scheduling.
type Registry struct {
	store     database.Store
	scheduler JobScheduler
	logger    *slog.Logger
}

// NewRegistry creates a registry.
func NewRegistry(store database.Store, scheduler JobScheduler, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Registry{
		store:     store,
		scheduler: scheduler,
		logger:    logger.With("component", "channel_registry"),
	}
}

// AddOrReplace saves a channel configuration and installs its broadcast
// job. Saving the same chat ID again overwrites the previous configuration
// and replaces its job, so a channel never broadcasts on a stale schedule.
func (r *Registry) AddOrReplace(ctx context.Context, chatID, cronExpr string, filters database.FilterSet) error {
	encoded, err := filters.Encode()
	if err != nil {
		return fmt.Errorf("failed to encode channel filters: %w", err)
	}

	channel := &database.Channel{
		ChatID:   chatID,
		Filters:  encoded,
		Schedule: cronExpr,
		IsActive: true,
	}
	if err := r.store.UpsertChannel(ctx, channel); err != nil {
		return fmt.Errorf("failed to save channel %s: %w", chatID, err)
	}

	if err := r.scheduler.InstallOrReplace(chatID, cronExpr); err != nil {
		return fmt.Errorf("channel %s saved but scheduling failed: %w", chatID, err)
	}

	r.logger.InfoContext(ctx, "Channel configured", "chat_id", chatID, "schedule", cronExpr)
	return nil
}

// List returns all configured channels, active or not.
func (r *Registry) List(ctx context.Context) ([]database.Channel, error) {
	channels, err := r.store.ListChannels(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list channels: %w", err)
	}
	return channels, nil
}

// Remove deletes a channel and cancels its job. It reports whether the
// channel existed; removing an unknown channel is not an error.
func (r *Registry) Remove(ctx context.Context, chatID string) (bool, error) {
	existed, err := r.store.DeleteChannel(ctx, chatID)
	if err != nil {
		return false, fmt.Errorf("failed to delete channel %s: %w", chatID, err)
	}

	r.scheduler.Cancel(chatID)

	if existed {
		r.logger.InfoContext(ctx, "Channel removed", "chat_id", chatID)
	}
	return existed, nil
}

// SetActive pauses or resumes a channel. Pausing cancels the job; resuming
// re-installs it from the stored schedule.
func (r *Registry) SetActive(ctx context.Context, chatID string, active bool) (bool, error) {
	existed, err := r.store.SetChannelActive(ctx, chatID, active)
	if err != nil {
		return false, fmt.Errorf("failed to update channel %s: %w", chatID, err)
	}
	if !existed {
		return false, nil
	}

	if !active {
		r.scheduler.Cancel(chatID)
		r.logger.InfoContext(ctx, "Channel paused", "chat_id", chatID)
		return true, nil
	}

	channel, err := r.store.GetChannel(ctx, chatID)
	if err != nil {
		return true, fmt.Errorf("failed to reload channel %s: %w", chatID, err)
	}
	if channel == nil {
		return false, nil
	}
	if err := r.scheduler.InstallOrReplace(chatID, channel.Schedule); err != nil {
		return true, fmt.Errorf("channel %s resumed but scheduling failed: %w", chatID, err)
	}

	r.logger.InfoContext(ctx, "Channel resumed", "chat_id", chatID)
	return true, nil
}

// ActiveChannels returns the channels whose jobs should exist, for
// startup reconciliation.
func (r *Registry) ActiveChannels(ctx context.Context) ([]database.Channel, error) {
	channels, err := r.store.ListActiveChannels(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list active channels: %w", err)
	}
	return channels, nil
}
