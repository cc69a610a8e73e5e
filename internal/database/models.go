package database

import (
	"encoding/json"
	"fmt"
	"time"
)

// Animal represents one shelter listing as collected by the scraper.
// The age and sex fields are kept raw exactly as scraped; normalized
// values are derived at query time, never stored.
type Animal struct {
	ID          int64  `db:"id"`
	Name        string `db:"name"`
	Age         string `db:"age"`
	Sex         string `db:"sex"`
	PhotoURL    string `db:"photo_url"`
	Description string `db:"description"`
}

// Channel represents a durable broadcast target. ChatID is the Telegram
// target identity (a numeric ID or an @username), Filters is a serialized
// FilterSet, and Schedule is a canonical 5-field cron expression.
type Channel struct {
	ChatID    string    `db:"chat_id"`
	Filters   string    `db:"filters"`
	Schedule  string    `db:"schedule"`
	IsActive  bool      `db:"is_active"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// FilterSet describes which animals a query or a channel broadcast should
// include. All fields are optional; AgeMin and AgeMax are always set or
// cleared together with AgeMin <= AgeMax, an invariant the session layer
// enforces before any FilterSet is committed.
type FilterSet struct {
	Name      *string `json:"name,omitempty"`
	Sex       *string `json:"sex,omitempty"`
	AgeMin    *int    `json:"age_min,omitempty"`
	AgeMax    *int    `json:"age_max,omitempty"`
	WithPhoto bool    `json:"with_photo,omitempty"`
}

// IsEmpty reports whether no filter key is set.
func (f FilterSet) IsEmpty() bool {
	return f.Name == nil && f.Sex == nil && f.AgeMin == nil && f.AgeMax == nil && !f.WithPhoto
}

// AgeRange returns the committed age bounds, if any.
func (f FilterSet) AgeRange() (minAge, maxAge int, ok bool) {
	if f.AgeMin == nil || f.AgeMax == nil {
		return 0, 0, false
	}
	return *f.AgeMin, *f.AgeMax, true
}

// Encode serializes the FilterSet for storage in a channel row.
// An empty set encodes to the empty string.
func (f FilterSet) Encode() (string, error) {
	if f.IsEmpty() {
		return "", nil
	}
	data, err := json.Marshal(f)
	if err != nil {
		return "", fmt.Errorf("failed to encode filter set: %w", err)
	}
	return string(data), nil
}

// DecodeFilterSet parses a stored filter payload. An empty payload decodes
// to an empty FilterSet, meaning "broadcast unfiltered".
func DecodeFilterSet(s string) (FilterSet, error) {
	var f FilterSet
	if s == "" {
		return f, nil
	}
	if err := json.Unmarshal([]byte(s), &f); err != nil {
		return FilterSet{}, fmt.Errorf("failed to decode filter set: %w", err)
	}
	return f, nil
}

// AnimalQuery captures the filters that are applied at the storage layer.
// The age range is applied in memory by the repository, not here.
type AnimalQuery struct {
	// Name is matched as a case-insensitive substring.
	Name string
	// Sex is matched exactly against the raw stored value.
	Sex string
	// WithPhoto restricts results to rows with a non-empty photo URL.
	WithPhoto bool
}
