package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
)

// Store defines the interface for database operations.
// Methods accept context.Context for cancellation and timeouts.
type Store interface {
	// Ping checks the database connection.
	Ping(ctx context.Context) error

	// ListAnimals retrieves every animal row, raw fields intact, in
	// store-defined order.
	ListAnimals(ctx context.Context) ([]Animal, error)

	// QueryAnimals retrieves animals matching the storage-layer filters.
	QueryAnimals(ctx context.Context, q AnimalQuery) ([]Animal, error)

	// GetAnimal retrieves one animal by ID. Returns nil, nil if not found.
	GetAnimal(ctx context.Context, id int64) (*Animal, error)

	// SaveAnimal inserts a new animal record and sets its generated ID.
	SaveAnimal(ctx context.Context, animal *Animal) error

	// DeleteDuplicateAnimals removes rows that duplicate an earlier row
	// across every scraped field, keeping the lowest ID.
	DeleteDuplicateAnimals(ctx context.Context) (int64, error)

	// UpsertChannel inserts or replaces a channel row keyed by chat ID.
	UpsertChannel(ctx context.Context, channel *Channel) error

	// GetChannel retrieves one channel by chat ID. Returns nil, nil if not found.
	GetChannel(ctx context.Context, chatID string) (*Channel, error)

	// ListChannels retrieves every channel row.
	ListChannels(ctx context.Context) ([]Channel, error)

	// ListActiveChannels retrieves every channel row with is_active set.
	ListActiveChannels(ctx context.Context) ([]Channel, error)

	// DeleteChannel removes a channel row and reports whether one existed.
	DeleteChannel(ctx context.Context, chatID string) (bool, error)

	// SetChannelActive flips a channel's active flag and reports whether
	// the row existed.
	SetChannelActive(ctx context.Context, chatID string, active bool) (bool, error)
}

// sqlxStore provides an implementation of the Store interface using sqlx.
type sqlxStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewStore creates a new Store implementation backed by sqlx.
func NewStore(db *sqlx.DB, logger *slog.Logger) Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &sqlxStore{
		db:     db,
		logger: logger.With("component", "store"),
	}
}

func (s *sqlxStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *sqlxStore) ListAnimals(ctx context.Context) ([]Animal, error) {
	var animals []Animal
	query := `SELECT id, name, age, sex, photo_url, description FROM animals`

	if err := s.db.SelectContext(ctx, &animals, query); err != nil {
		s.logger.ErrorContext(ctx, "Error listing animals", "error", err)
		return nil, fmt.Errorf("failed to list animals: %w", err)
	}

	s.logger.DebugContext(ctx, "Listed animals", "count", len(animals))
	return animals, nil
}

// QueryAnimals applies the name, sex, and photo filters at the SQL layer.
// The sex filter matches the RAW stored value exactly; raw values are not
// normalized before storage, so this can under-match inconsistently cased
// data. That behavior is intentional and documented, see the repository.
func (s *sqlxStore) QueryAnimals(ctx context.Context, q AnimalQuery) ([]Animal, error) {
	query := `SELECT id, name, age, sex, photo_url, description FROM animals WHERE 1=1`
	var args []any

	if q.Name != "" {
		// SQLite LIKE is case-insensitive for ASCII by default.
		query += ` AND name LIKE ?`
		args = append(args, "%"+q.Name+"%")
	}
	if q.Sex != "" {
		query += ` AND sex = ?`
		args = append(args, q.Sex)
	}
	if q.WithPhoto {
		query += ` AND photo_url != ''`
	}

	var animals []Animal
	if err := s.db.SelectContext(ctx, &animals, query, args...); err != nil {
		s.logger.ErrorContext(ctx, "Error querying animals", "name", q.Name, "sex", q.Sex, "error", err)
		return nil, fmt.Errorf("failed to query animals: %w", err)
	}

	s.logger.DebugContext(ctx, "Queried animals", "count", len(animals), "name", q.Name, "sex", q.Sex, "with_photo", q.WithPhoto)
	return animals, nil
}

func (s *sqlxStore) GetAnimal(ctx context.Context, id int64) (*Animal, error) {
	var animal Animal
	query := `SELECT id, name, age, sex, photo_url, description FROM animals WHERE id = ?`

	err := s.db.GetContext(ctx, &animal, query, id)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		s.logger.DebugContext(ctx, "No animal found", "animal_id", id)
		return nil, nil
	case err != nil:
		s.logger.ErrorContext(ctx, "Error getting animal by ID", "animal_id", id, "error", err)
		return nil, fmt.Errorf("failed to get animal %d: %w", id, err)
	}

	return &animal, nil
}

func (s *sqlxStore) SaveAnimal(ctx context.Context, animal *Animal) error {
	if animal == nil {
		return fmt.Errorf("cannot save nil animal")
	}
	if animal.Name == "" {
		return fmt.Errorf("animal must have a non-empty name")
	}

	query := `
        INSERT INTO animals (name, age, sex, photo_url, description)
        VALUES (:name, :age, :sex, :photo_url, :description);
    `

	result, err := s.db.NamedExecContext(ctx, query, animal)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error saving animal", "name", animal.Name, "error", err)
		return fmt.Errorf("failed to save animal %q: %w", animal.Name, err)
	}

	if id, err := result.LastInsertId(); err == nil {
		animal.ID = id
	} else {
		s.logger.WarnContext(ctx, "Could not retrieve last insert ID after saving animal",
			"name", animal.Name, "error", err)
	}

	s.logger.DebugContext(ctx, "Animal saved successfully", "animal_id", animal.ID, "name", animal.Name)
	return nil
}

func (s *sqlxStore) DeleteDuplicateAnimals(ctx context.Context) (int64, error) {
	query := `
        DELETE FROM animals
        WHERE id NOT IN (
            SELECT MIN(id)
            FROM animals
            GROUP BY name, age, sex, photo_url, description
        );
    `

	result, err := s.db.ExecContext(ctx, query)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error deleting duplicate animals", "error", err)
		return 0, fmt.Errorf("failed to delete duplicate animals: %w", err)
	}

	count, _ := result.RowsAffected()
	if count > 0 {
		s.logger.InfoContext(ctx, "Deleted duplicate animals", "count", count)
	}
	return count, nil
}

func (s *sqlxStore) UpsertChannel(ctx context.Context, channel *Channel) error {
	if channel == nil {
		return fmt.Errorf("cannot save nil channel")
	}
	if channel.ChatID == "" {
		return fmt.Errorf("channel must have a non-empty chat_id")
	}
	if channel.Schedule == "" {
		return fmt.Errorf("channel must have a non-empty schedule")
	}

	now := time.Now().UTC()
	channel.UpdatedAt = now
	if channel.CreatedAt.IsZero() {
		channel.CreatedAt = now
	}

	query := `
        INSERT INTO channels (chat_id, filters, schedule, is_active, created_at, updated_at)
        VALUES (:chat_id, :filters, :schedule, :is_active, :created_at, :updated_at)
        ON CONFLICT(chat_id) DO UPDATE SET
            filters = excluded.filters,
            schedule = excluded.schedule,
            is_active = excluded.is_active,
            updated_at = excluded.updated_at;
    `

	if _, err := s.db.NamedExecContext(ctx, query, channel); err != nil {
		s.logger.ErrorContext(ctx, "Error upserting channel", "chat_id", channel.ChatID, "error", err)
		return fmt.Errorf("failed to upsert channel %s: %w", channel.ChatID, err)
	}

	s.logger.DebugContext(ctx, "Channel saved successfully",
		"chat_id", channel.ChatID, "schedule", channel.Schedule, "is_active", channel.IsActive)
	return nil
}

func (s *sqlxStore) GetChannel(ctx context.Context, chatID string) (*Channel, error) {
	var channel Channel
	query := `SELECT chat_id, filters, schedule, is_active, created_at, updated_at
	          FROM channels WHERE chat_id = ?`

	err := s.db.GetContext(ctx, &channel, query, chatID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		s.logger.DebugContext(ctx, "No channel found", "chat_id", chatID)
		return nil, nil
	case err != nil:
		s.logger.ErrorContext(ctx, "Error getting channel", "chat_id", chatID, "error", err)
		return nil, fmt.Errorf("failed to get channel %s: %w", chatID, err)
	}

	return &channel, nil
}

func (s *sqlxStore) ListChannels(ctx context.Context) ([]Channel, error) {
	var channels []Channel
	query := `SELECT chat_id, filters, schedule, is_active, created_at, updated_at
	          FROM channels ORDER BY chat_id`

	if err := s.db.SelectContext(ctx, &channels, query); err != nil {
		s.logger.ErrorContext(ctx, "Error listing channels", "error", err)
		return nil, fmt.Errorf("failed to list channels: %w", err)
	}

	return channels, nil
}

func (s *sqlxStore) ListActiveChannels(ctx context.Context) ([]Channel, error) {
	var channels []Channel
	query := `SELECT chat_id, filters, schedule, is_active, created_at, updated_at
	          FROM channels WHERE is_active = 1 ORDER BY chat_id`

	if err := s.db.SelectContext(ctx, &channels, query); err != nil {
		s.logger.ErrorContext(ctx, "Error listing active channels", "error", err)
		return nil, fmt.Errorf("failed to list active channels: %w", err)
	}

	return channels, nil
}

func (s *sqlxStore) DeleteChannel(ctx context.Context, chatID string) (bool, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM channels WHERE chat_id = ?`, chatID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error deleting channel", "chat_id", chatID, "error", err)
		return false, fmt.Errorf("failed to delete channel %s: %w", chatID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		s.logger.WarnContext(ctx, "Could not get affected row count when deleting channel",
			"chat_id", chatID, "error", err)
		return false, nil
	}

	s.logger.DebugContext(ctx, "Channel delete finished", "chat_id", chatID, "existed", affected > 0)
	return affected > 0, nil
}

func (s *sqlxStore) SetChannelActive(ctx context.Context, chatID string, active bool) (bool, error) {
	query := `UPDATE channels SET is_active = ?, updated_at = ? WHERE chat_id = ?`

	result, err := s.db.ExecContext(ctx, query, active, time.Now().UTC(), chatID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error updating channel active flag",
			"chat_id", chatID, "active", active, "error", err)
		return false, fmt.Errorf("failed to update channel %s: %w", chatID, err)
	}

	affected, _ := result.RowsAffected()
	return affected > 0, nil
}
