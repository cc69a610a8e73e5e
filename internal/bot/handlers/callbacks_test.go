package handlers

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/less-homeless/shelterbot/internal/animals"
	"github.com/less-homeless/shelterbot/internal/channels"
	"github.com/less-homeless/shelterbot/internal/config"
	"github.com/less-homeless/shelterbot/internal/database"
	"github.com/less-homeless/shelterbot/internal/session"
)

// fakeTelegram records every Bot API request and answers each method with
// a minimal success payload.
type fakeTelegram struct {
	mu    sync.Mutex
	calls []apiCall
}

type apiCall struct {
	method string
	body   string
}

func (f *fakeTelegram) Do(req *http.Request) (*http.Response, error) {
	body := ""
	if req.Body != nil {
		raw, _ := io.ReadAll(req.Body)
		body = string(raw)
	}
	parts := strings.Split(req.URL.Path, "/")
	method := parts[len(parts)-1]

	f.mu.Lock()
	f.calls = append(f.calls, apiCall{method: method, body: body})
	f.mu.Unlock()

	result := "true"
	switch method {
	case "sendMessage", "editMessageText", "sendPhoto":
		result = `{"message_id":1,"date":1,"chat":{"id":1,"type":"private"}}`
	}
	return &http.Response{
		StatusCode: http.StatusOK,
		Body:       io.NopCloser(strings.NewReader(`{"ok":true,"result":` + result + `}`)),
	}, nil
}

func (f *fakeTelegram) count(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c.method == method {
			n++
		}
	}
	return n
}

func (f *fakeTelegram) bodies(method string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, c := range f.calls {
		if c.method == method {
			out = append(out, c.body)
		}
	}
	return out
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type noopScheduler struct{}

func (noopScheduler) InstallOrReplace(string, string) error { return nil }

func (noopScheduler) Cancel(string) {}

type callbackEnv struct {
	handler callbackHandler
	bot     *bot.Bot
	api     *fakeTelegram
	store   database.Store
	cfg     *config.Config
}

func newCallbackEnv(t *testing.T) *callbackEnv {
	t.Helper()

	db, err := database.NewDB(":memory:")
	if err != nil {
		t.Fatalf("NewDB: %v", err)
	}
	t.Cleanup(func() { database.CloseDB(db) })
	store := database.NewStore(db, nil)

	repo := animals.NewRepository(store, nil)
	sessions := session.NewManager(repo, nil)
	registry := channels.NewRegistry(store, noopScheduler{}, nil)

	cfg := &config.Config{}
	cfg.Broadcast.FallbackURL = "https://shelter.example"
	cfg.Telegram.Messages = config.Messages{
		MainMenu:      "Main menu",
		ChooseFilter:  "Choose a filter",
		NoAnimals:     "No animals yet",
		NeedFilter:    "Pick at least one filter first",
		MinAgeTooHigh: "That minimum age is too high",
		BadAgeOrder:   "Maximum age must not be below the minimum",
		GeneralError:  "Something went wrong",
	}

	api := &fakeTelegram{}
	b, err := bot.New("12345:test", bot.WithSkipGetMe(), bot.WithHTTPClient(time.Minute, api))
	if err != nil {
		t.Fatalf("bot.New: %v", err)
	}

	deps := HandlerDeps{
		Logger:   discardLogger(),
		Config:   cfg,
		Animals:  repo,
		Sessions: sessions,
		Channels: registry,
	}
	return &callbackEnv{
		handler: callbackHandler{deps},
		bot:     b,
		api:     api,
		store:   store,
		cfg:     cfg,
	}
}

func callbackUpdate(data string) *models.Update {
	return &models.Update{
		ID: 1,
		CallbackQuery: &models.CallbackQuery{
			ID:   "cbq-1",
			From: models.User{ID: 42},
			Data: data,
			Message: models.MaybeInaccessibleMessage{
				Message: &models.Message{ID: 10, Chat: models.Chat{ID: 42}},
			},
		},
	}
}

func (e *callbackEnv) handle(data string) {
	e.handler.Handle(context.Background(), e.bot, callbackUpdate(data))
}

func (e *callbackEnv) seedAnimals(t *testing.T, names ...string) []int64 {
	t.Helper()
	ids := make([]int64, 0, len(names))
	for _, name := range names {
		a := &database.Animal{Name: name, Age: "2", Sex: "самец"}
		if err := e.store.SaveAnimal(context.Background(), a); err != nil {
			t.Fatalf("SaveAnimal: %v", err)
		}
		ids = append(ids, a.ID)
	}
	return ids
}

func TestBackToMainClearsSession(t *testing.T) {
	env := newCallbackEnv(t)
	key := session.Key{UserID: 42, ChatID: 42}
	sessions := env.handler.deps.Sessions

	sessions.SelectName(key)
	if err := sessions.SubmitName(key, "мурка"); err != nil {
		t.Fatalf("SubmitName: %v", err)
	}
	sessions.RecordShown(key, session.ListFiltered, []int64{1, 2})

	env.handle(cbBackToMain)

	if got := sessions.Filters(key); !got.IsEmpty() {
		t.Errorf("filters should be cleared on return to the main menu, got %+v", got)
	}
	if kind, ids := sessions.LastShown(key); kind != "" || len(ids) != 0 {
		t.Errorf("navigation memory should be cleared, got kind=%q ids=%v", kind, ids)
	}
	if got := sessions.State(key); got != session.Idle {
		t.Errorf("session state = %v, want %v", got, session.Idle)
	}
}

func TestCallbackAnsweredExactlyOnce(t *testing.T) {
	env := newCallbackEnv(t)

	env.handle(cbBackToFilters)

	if got := env.api.count("answerCallbackQuery"); got != 1 {
		t.Fatalf("answerCallbackQuery calls = %d, want exactly 1", got)
	}
	if got := env.api.count("editMessageText"); got != 1 {
		t.Errorf("editMessageText calls = %d, want 1", got)
	}
}

func TestValidationAlertIsTheOnlyAnswer(t *testing.T) {
	env := newCallbackEnv(t)
	key := session.Key{UserID: 42, ChatID: 42}
	sessions := env.handler.deps.Sessions

	// With an empty store the age ceiling falls back to 10, so picking 10
	// as the minimum is rejected.
	sessions.SelectAge(key)
	env.handle(cbAgeMinPrefix + "10")

	answers := env.api.bodies("answerCallbackQuery")
	if len(answers) != 1 {
		t.Fatalf("answerCallbackQuery calls = %d, want exactly 1", len(answers))
	}
	if !strings.Contains(answers[0], env.cfg.Telegram.Messages.MinAgeTooHigh) {
		t.Errorf("the single answer should carry the validation text, got %q", answers[0])
	}
	if !strings.Contains(answers[0], "show_alert") {
		t.Errorf("the validation answer should be an alert, got %q", answers[0])
	}
}

func TestShowFilteredWithoutFiltersAlertsOnce(t *testing.T) {
	env := newCallbackEnv(t)

	env.handle(cbShowFiltered)

	answers := env.api.bodies("answerCallbackQuery")
	if len(answers) != 1 {
		t.Fatalf("answerCallbackQuery calls = %d, want exactly 1", len(answers))
	}
	if !strings.Contains(answers[0], env.cfg.Telegram.Messages.NeedFilter) {
		t.Errorf("the single answer should carry the validation text, got %q", answers[0])
	}
}

func TestBackToListRestoresRecordedAnimals(t *testing.T) {
	env := newCallbackEnv(t)
	key := session.Key{UserID: 42, ChatID: 42}
	ids := env.seedAnimals(t, "Барсик", "Мурка", "Рыжик")

	env.handler.deps.Sessions.RecordShown(key, session.ListFiltered, []int64{ids[1]})
	env.handle(cbBackToList)

	sends := env.api.bodies("sendMessage")
	if len(sends) != 1 {
		t.Fatalf("sendMessage calls = %d, want 1", len(sends))
	}
	if want := fmt.Sprintf("%s%d", cbAnimalPrefix, ids[1]); !strings.Contains(sends[0], want) {
		t.Errorf("restored list should contain the recorded animal %q, got %q", want, sends[0])
	}
	for _, other := range []int64{ids[0], ids[2]} {
		if unwanted := fmt.Sprintf("%s%d\"", cbAnimalPrefix, other); strings.Contains(sends[0], unwanted) {
			t.Errorf("restored list should not contain unrecorded animal %q", unwanted)
		}
	}
	if got := env.api.count("deleteMessage"); got != 1 {
		t.Errorf("deleteMessage calls = %d, want 1", got)
	}
}

func TestBackToListFallsBackWhenRecordedAnimalsAreGone(t *testing.T) {
	env := newCallbackEnv(t)
	key := session.Key{UserID: 42, ChatID: 42}
	ids := env.seedAnimals(t, "Барсик", "Мурка")

	env.handler.deps.Sessions.RecordShown(key, session.ListFiltered, []int64{9999})
	env.handle(cbBackToList)

	sends := env.api.bodies("sendMessage")
	if len(sends) != 1 {
		t.Fatalf("sendMessage calls = %d, want 1", len(sends))
	}
	for _, id := range ids {
		if want := fmt.Sprintf("%s%d", cbAnimalPrefix, id); !strings.Contains(sends[0], want) {
			t.Errorf("fallback list should contain %q, got %q", want, sends[0])
		}
	}
}
