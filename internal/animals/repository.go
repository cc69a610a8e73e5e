// Package animals provides the read-only query layer over the animal
// store, layering age/sex normalization on top of the raw scraped rows.
package animals

import (
	"context"
	"io"
	"log/slog"

	"github.com/less-homeless/shelterbot/internal/database"
	"github.com/less-homeless/shelterbot/internal/normalize"
)

// fallbackMaxAge bounds the age picker when no row yields a
// normalizable age (empty store included).
const fallbackMaxAge = 10

// Repository answers animal queries for the dialogue and the dispatcher.
//
// Read methods never fail: store errors are logged and degrade to empty
// results so the conversational flow keeps working.
type Repository struct {
	store  database.Store
	logger *slog.Logger
}

// NewRepository creates a Repository backed by the given store.
func NewRepository(store database.Store, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Repository{
		store:  store,
		logger: logger.With("component", "animal_repository"),
	}
}

// ListAll returns every animal with raw fields intact, in store order.
func (r *Repository) ListAll(ctx context.Context) []database.Animal {
	animals, err := r.store.ListAnimals(ctx)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to list animals, returning empty result", "error", err)
		return nil
	}
	return animals
}

// Get returns one animal by ID, or nil when it no longer exists.
func (r *Repository) Get(ctx context.Context, id int64) *database.Animal {
	animal, err := r.store.GetAnimal(ctx, id)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to load animal", "animal_id", id, "error", err)
		return nil
	}
	return animal
}

// Query returns the animals matching the filter set.
//
// Name (case-insensitive substring), sex, and photo presence are applied
// at the storage layer. The sex filter matches the RAW stored value, so it
// under-matches when stored data is inconsistently cased or scripted; that
// surprising behavior is preserved on purpose rather than silently fixed.
// The age range is then applied in memory via normalize.Age, discarding
// animals whose age cannot be normalized. Finally each returned animal's
// Sex field is overwritten with its normalized display value.
func (r *Repository) Query(ctx context.Context, filters database.FilterSet) []database.Animal {
	q := database.AnimalQuery{WithPhoto: filters.WithPhoto}
	if filters.Name != nil {
		q.Name = *filters.Name
	}
	if filters.Sex != nil {
		q.Sex = *filters.Sex
	}

	animals, err := r.store.QueryAnimals(ctx, q)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to query animals, returning empty result", "error", err)
		return nil
	}

	if minAge, maxAge, ok := filters.AgeRange(); ok {
		filtered := animals[:0]
		for _, animal := range animals {
			age, ok := normalize.Age(animal.Age)
			if ok && age >= minAge && age <= maxAge {
				filtered = append(filtered, animal)
			}
		}
		animals = filtered
		r.logger.DebugContext(ctx, "Applied age range filter",
			"age_min", minAge, "age_max", maxAge, "count", len(animals))
	}

	for i := range animals {
		animals[i].Sex = normalize.SexForDisplay(animals[i].Sex)
	}

	return animals
}

// MaxAge returns the maximum normalized age across all rows, or a fixed
// fallback when no row yields a normalizable age. It never fails, even on
// an empty store.
func (r *Repository) MaxAge(ctx context.Context) int {
	animals, err := r.store.ListAnimals(ctx)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to list animals for max age, using fallback",
			"fallback", fallbackMaxAge, "error", err)
		return fallbackMaxAge
	}

	maxAge := -1
	for _, animal := range animals {
		if age, ok := normalize.Age(animal.Age); ok && age > maxAge {
			maxAge = age
		}
	}
	if maxAge < 0 {
		return fallbackMaxAge
	}
	return maxAge
}
