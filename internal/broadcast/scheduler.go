// Package broadcast drives scheduled channel posts: a cron scheduler with
// one job per configured channel, and a dispatcher that picks and sends a
// random matching animal when a job fires.
package broadcast

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"

	"github.com/less-homeless/shelterbot/internal/database"
)

// DispatchFunc runs one broadcast for the given channel chat ID.
type DispatchFunc func(ctx context.Context, chatID string)

// Scheduler owns the cron runtime and the mapping from channel chat IDs to
// their live jobs. A channel has at most one job at any time.
type Scheduler struct {
	scheduler gocron.Scheduler
	dispatch  DispatchFunc
	logger    *slog.Logger

	mu   sync.Mutex
	jobs map[string]uuid.UUID
}

// NewScheduler creates a stopped scheduler. Cron expressions are
// interpreted in UTC.
func NewScheduler(dispatch DispatchFunc, logger *slog.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	log := logger.With("component", "broadcast_scheduler")

	s, err := gocron.NewScheduler(gocron.WithLocation(time.UTC))
	if err != nil {
		return nil, fmt.Errorf("failed to create cron scheduler: %w", err)
	}

	return &Scheduler{
		scheduler: s,
		dispatch:  dispatch,
		logger:    log,
		jobs:      make(map[string]uuid.UUID),
	}, nil
}

// InstallOrReplace schedules a broadcast job for the channel, replacing any
// existing job for the same chat ID first. The channel therefore never has
// two live jobs, regardless of how often its schedule is rewritten.
func (s *Scheduler) InstallOrReplace(chatID, cronExpr string) error {
	if cronExpr == "" {
		return fmt.Errorf("empty cron expression for channel %s", chatID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.jobs[chatID]; ok {
		if err := s.scheduler.RemoveJob(old); err != nil {
			s.logger.Warn("Failed to remove superseded job", "chat_id", chatID, "error", err)
		}
		delete(s.jobs, chatID)
	}

	job, err := s.scheduler.NewJob(
		gocron.CronJob(cronExpr, false),
		gocron.NewTask(
			func(ctx context.Context, id string) {
				s.logger.Info("Running channel broadcast", "chat_id", id)
				start := time.Now()
				s.dispatch(ctx, id)
				s.logger.Info("Finished channel broadcast", "chat_id", id, "duration", time.Since(start))
			},
			context.Background(),
			chatID,
		),
		gocron.WithName("broadcast:"+chatID),
	)
	if err != nil {
		return fmt.Errorf("failed to schedule broadcast for channel %s: %w", chatID, err)
	}

	s.jobs[chatID] = job.ID()
	s.logger.Info("Scheduled channel broadcast", "chat_id", chatID, "schedule", cronExpr)

	return nil
}

// Cancel removes the channel's job if one exists. Cancelling a channel
// with no job is a no-op.
func (s *Scheduler) Cancel(chatID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.jobs[chatID]
	if !ok {
		return
	}
	if err := s.scheduler.RemoveJob(id); err != nil {
		s.logger.Warn("Failed to remove job", "chat_id", chatID, "error", err)
	}
	delete(s.jobs, chatID)
	s.logger.Info("Cancelled channel broadcast", "chat_id", chatID)
}

// Reconcile rebuilds the job set from the persisted channel list, typically
// at startup. Existing jobs are removed first so the result reflects only
// the stored channels. A channel whose stored schedule no longer parses is
// skipped with a log entry rather than aborting the rest.
func (s *Scheduler) Reconcile(channels []database.Channel) {
	s.mu.Lock()
	for chatID, id := range s.jobs {
		if err := s.scheduler.RemoveJob(id); err != nil {
			s.logger.Warn("Failed to remove job during reconcile", "chat_id", chatID, "error", err)
		}
		delete(s.jobs, chatID)
	}
	s.mu.Unlock()

	installed := 0
	for _, ch := range channels {
		if !ch.IsActive {
			continue
		}
		if err := s.InstallOrReplace(ch.ChatID, ch.Schedule); err != nil {
			s.logger.Error("Skipping channel with bad schedule", "chat_id", ch.ChatID, "schedule", ch.Schedule, "error", err)
			continue
		}
		installed++
	}
	s.logger.Info("Reconciled channel broadcasts", "channels", len(channels), "jobs", installed)
}

// HasJob reports whether the channel currently has a live job.
func (s *Scheduler) HasJob(chatID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.jobs[chatID]
	return ok
}

// JobCount reports the number of live jobs.
func (s *Scheduler) JobCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

// Start begins ticking. Jobs may be installed before or after.
func (s *Scheduler) Start() {
	s.scheduler.Start()
	s.logger.Info("Broadcast scheduler started")
}

// Stop shuts the scheduler down, waiting for running jobs to complete.
func (s *Scheduler) Stop() error {
	if err := s.scheduler.Shutdown(); err != nil {
		s.logger.Error("Error during scheduler shutdown", "error", err)
		return err
	}
	s.logger.Info("Broadcast scheduler stopped")
	return nil
}
