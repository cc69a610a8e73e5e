// Package session implements the per-user filter-selection dialogue as an
// explicit state machine over in-memory sessions. Sessions are ephemeral
// UI state: they are created lazily, mutated by dialogue events, and lost
// on restart by design.
package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/less-homeless/shelterbot/internal/database"
	"github.com/less-homeless/shelterbot/internal/normalize"
)

// State identifies which single-field sub-dialogue, if any, is awaiting
// the user's next input.
type State int

const (
	Idle State = iota
	AwaitingMinAge
	AwaitingMaxAge
	AwaitingSex
	AwaitingName
	AwaitingChannel
	AwaitingSchedule
)

// Scope tags what the in-progress FilterSet is being built for: an
// immediate interactive query, or a channel draft to be saved.
type Scope int

const (
	ScopeBrowse Scope = iota
	ScopeChannel
)

// ListKind records which list was last shown, for back-navigation.
type ListKind string

const (
	ListAll      ListKind = "all"
	ListFiltered ListKind = "filtered"
)

// Validation errors surfaced to the dialogue layer. All of them are
// recovered locally by re-prompting the same step; committed state is
// never touched.
var (
	ErrNotAwaiting = errors.New("event does not match the current dialogue step")
	ErrMinTooHigh  = errors.New("minimum age leaves no room for a valid maximum")
	ErrAgeOrder    = errors.New("maximum age is below the minimum")
	ErrBadSex      = errors.New("unrecognized sex value")
	ErrEmptyName   = errors.New("name must not be empty")
	ErrNoFilters   = errors.New("at least one filter must be selected")
	ErrBadChannel  = errors.New("channel link must start with @")
)

// Key identifies one dialogue: a user within a conversation context.
type Key struct {
	UserID int64
	ChatID int64
}

// Session holds one dialogue's in-progress filter selections and
// navigation memory. All access goes through Manager, which serializes
// events per key.
type Session struct {
	mu sync.Mutex

	state   State
	scope   Scope
	filters database.FilterSet

	// pendingMin is the not-yet-committed lower age bound; both bounds
	// are committed atomically once the maximum arrives.
	pendingMin    int
	hasPendingMin bool

	// Channel draft, only meaningful in ScopeChannel.
	draftChannel string
	draftCron    string

	// Navigation memory for "back to list".
	lastKind  ListKind
	lastShown []int64
}

// MaxAgeSource bounds the age picker. Implemented by the animal repository.
type MaxAgeSource interface {
	MaxAge(ctx context.Context) int
}

// Manager owns all live sessions, keyed by (user, chat). Events for the
// same key are processed in arrival order; different keys are independent.
type Manager struct {
	mu       sync.Mutex
	sessions map[Key]*Session

	ages   MaxAgeSource
	logger *slog.Logger
}

// NewManager creates an empty session manager.
func NewManager(ages MaxAgeSource, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Manager{
		sessions: make(map[Key]*Session),
		ages:     ages,
		logger:   logger.With("component", "session_manager"),
	}
}

// session returns the live session for key, creating it on first use.
func (m *Manager) session(key Key) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[key]
	if !ok {
		s = &Session{}
		m.sessions[key] = s
	}
	return s
}

// State reports the session's current dialogue step.
func (m *Manager) State(key Key) State {
	s := m.session(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Scope reports what the session's FilterSet is being built for.
func (m *Manager) Scope(key Key) Scope {
	s := m.session(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scope
}

// Filters returns a copy of the committed filter selections.
func (m *Manager) Filters(key Key) database.FilterSet {
	s := m.session(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filters
}

// SelectAge starts the age sub-dialogue. Any previously committed age
// bounds are cleared so a stale partial range can never survive.
func (m *Manager) SelectAge(key Key) {
	s := m.session(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	s.filters.AgeMin = nil
	s.filters.AgeMax = nil
	s.pendingMin = 0
	s.hasPendingMin = false
	s.state = AwaitingMinAge
}

// PickMinAge stores the chosen lower bound as a transient value and moves
// on to the maximum. A minimum at or above the repository's current
// maximum age is rejected because no valid upper bound could exist.
func (m *Manager) PickMinAge(ctx context.Context, key Key, minAge int) error {
	s := m.session(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != AwaitingMinAge {
		return ErrNotAwaiting
	}
	if minAge >= m.ages.MaxAge(ctx) {
		return ErrMinTooHigh
	}

	s.pendingMin = minAge
	s.hasPendingMin = true
	s.state = AwaitingMaxAge
	return nil
}

// PickMaxAge commits both age bounds atomically. A maximum below the
// pending minimum is rejected and the session stays on this step.
func (m *Manager) PickMaxAge(key Key, maxAge int) error {
	s := m.session(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != AwaitingMaxAge || !s.hasPendingMin {
		return ErrNotAwaiting
	}
	if maxAge < s.pendingMin {
		return ErrAgeOrder
	}

	minAge := s.pendingMin
	s.filters.AgeMin = &minAge
	s.filters.AgeMax = &maxAge
	s.pendingMin = 0
	s.hasPendingMin = false
	s.state = Idle
	return nil
}

// SelectSex starts the sex sub-dialogue.
func (m *Manager) SelectSex(key Key) {
	s := m.session(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = AwaitingSex
}

// PickSex commits a canonical sex value and returns to Idle.
func (m *Manager) PickSex(key Key, sex string) error {
	s := m.session(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != AwaitingSex {
		return ErrNotAwaiting
	}
	if sex != normalize.SexMale && sex != normalize.SexFemale {
		return ErrBadSex
	}

	s.filters.Sex = &sex
	s.state = Idle
	return nil
}

// SelectName starts the free-text name sub-dialogue.
func (m *Manager) SelectName(key Key) {
	s := m.session(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = AwaitingName
}

// SubmitName commits a name substring filter. Empty text is rejected
// with no state change.
func (m *Manager) SubmitName(key Key, text string) error {
	s := m.session(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != AwaitingName {
		return ErrNotAwaiting
	}

	name := strings.TrimSpace(text)
	if name == "" {
		return ErrEmptyName
	}

	s.filters.Name = &name
	s.state = Idle
	return nil
}

// TogglePhoto flips the photo-presence filter: set when absent, removed
// when present. It reports the new value.
func (m *Manager) TogglePhoto(key Key) bool {
	s := m.session(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	s.filters.WithPhoto = !s.filters.WithPhoto
	return s.filters.WithPhoto
}

// FiltersForQuery returns the committed FilterSet for a show-filtered
// request. An empty set is a validation error surfaced to the UI, not a
// query for everything.
func (m *Manager) FiltersForQuery(key Key) (database.FilterSet, error) {
	s := m.session(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.filters.IsEmpty() {
		return database.FilterSet{}, ErrNoFilters
	}
	return s.filters, nil
}

// RecordShown remembers which list was displayed and which animal IDs it
// contained, for the "back to list" affordance.
func (m *Manager) RecordShown(key Key, kind ListKind, ids []int64) {
	s := m.session(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastKind = kind
	s.lastShown = append([]int64(nil), ids...)
}

// LastShown returns the navigation memory recorded by RecordShown.
func (m *Manager) LastShown(key Key) (ListKind, []int64) {
	s := m.session(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.lastKind, append([]int64(nil), s.lastShown...)
}

// BeginAddChannel moves the session into the channel-configuration flow,
// starting with the channel link prompt. The filter selections reset so
// the channel draft starts clean.
func (m *Manager) BeginAddChannel(key Key) {
	s := m.session(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	s.scope = ScopeChannel
	s.filters = database.FilterSet{}
	s.pendingMin = 0
	s.hasPendingMin = false
	s.draftChannel = ""
	s.draftCron = ""
	s.state = AwaitingChannel
}

// SubmitChannelLink records the broadcast target and moves on to the
// schedule prompt. Links must use the @username form.
func (m *Manager) SubmitChannelLink(key Key, text string) error {
	s := m.session(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != AwaitingChannel {
		return ErrNotAwaiting
	}

	link := strings.TrimSpace(text)
	if !strings.HasPrefix(link, "@") || len(link) < 2 {
		return ErrBadChannel
	}

	s.draftChannel = link
	s.state = AwaitingSchedule
	return nil
}

// SubmitSchedule records the parsed cron expression for the channel draft
// and returns the dialogue to filter selection.
func (m *Manager) SubmitSchedule(key Key, cronExpr string) error {
	s := m.session(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != AwaitingSchedule {
		return ErrNotAwaiting
	}

	s.draftCron = cronExpr
	s.state = Idle
	return nil
}

// ChannelDraft returns the draft target and cron expression collected by
// the channel-configuration flow.
func (m *Manager) ChannelDraft(key Key) (chatID, cronExpr string) {
	s := m.session(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.draftChannel, s.draftCron
}

// Reset clears the entire session: filter selections, channel draft, and
// navigation memory.
func (m *Manager) Reset(key Key) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, key)
}
