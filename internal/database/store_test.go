package database

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func newTestStore(t *testing.T) Store {
	t.Helper()

	db, err := NewDB(":memory:")
	if err != nil {
		t.Fatalf("NewDB: %v", err)
	}
	t.Cleanup(func() { CloseDB(db) })

	return NewStore(db, nil)
}

func TestSaveAnimalAssignsID(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	animal := &Animal{Name: "Барсик", Age: "2 года", Sex: "самец"}
	if err := store.SaveAnimal(ctx, animal); err != nil {
		t.Fatalf("SaveAnimal: %v", err)
	}
	if animal.ID == 0 {
		t.Fatal("SaveAnimal should set the generated ID")
	}

	got, err := store.GetAnimal(ctx, animal.ID)
	if err != nil {
		t.Fatalf("GetAnimal: %v", err)
	}
	if diff := cmp.Diff(animal, got); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestSaveAnimalRejectsEmptyName(t *testing.T) {
	store := newTestStore(t)

	if err := store.SaveAnimal(context.Background(), &Animal{}); err == nil {
		t.Fatal("an animal without a name should be rejected")
	}
}

func TestGetAnimalMissingIsNilNil(t *testing.T) {
	store := newTestStore(t)

	got, err := store.GetAnimal(context.Background(), 12345)
	if err != nil {
		t.Fatalf("GetAnimal: %v", err)
	}
	if got != nil {
		t.Fatalf("GetAnimal on empty table = %+v, want nil", got)
	}
}

func TestDeleteDuplicateAnimalsKeepsFirstRow(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first := &Animal{Name: "Мурка", Age: "1", Sex: "самка"}
	if err := store.SaveAnimal(ctx, first); err != nil {
		t.Fatalf("SaveAnimal: %v", err)
	}
	for range 2 {
		if err := store.SaveAnimal(ctx, &Animal{Name: "Мурка", Age: "1", Sex: "самка"}); err != nil {
			t.Fatalf("SaveAnimal: %v", err)
		}
	}
	// Same name but a different age is not a duplicate.
	if err := store.SaveAnimal(ctx, &Animal{Name: "Мурка", Age: "3", Sex: "самка"}); err != nil {
		t.Fatalf("SaveAnimal: %v", err)
	}

	deleted, err := store.DeleteDuplicateAnimals(ctx)
	if err != nil {
		t.Fatalf("DeleteDuplicateAnimals: %v", err)
	}
	if deleted != 2 {
		t.Fatalf("deleted = %d, want 2", deleted)
	}

	remaining, err := store.ListAnimals(ctx)
	if err != nil {
		t.Fatalf("ListAnimals: %v", err)
	}
	if len(remaining) != 2 {
		t.Fatalf("remaining = %d, want 2", len(remaining))
	}
	if remaining[0].ID != first.ID {
		t.Fatalf("survivor ID = %d, want the earliest row %d", remaining[0].ID, first.ID)
	}
}

func TestUpsertChannelInsertsThenUpdates(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.UpsertChannel(ctx, &Channel{ChatID: "@shelter", Schedule: "0 10 * * *", IsActive: true}); err != nil {
		t.Fatalf("insert: %v", err)
	}

	created, err := store.GetChannel(ctx, "@shelter")
	if err != nil || created == nil {
		t.Fatalf("GetChannel = (%v, %v), want a row", created, err)
	}
	if created.CreatedAt.IsZero() || created.UpdatedAt.IsZero() {
		t.Fatal("timestamps should be set on insert")
	}

	update := &Channel{ChatID: "@shelter", Filters: `{"with_photo":true}`, Schedule: "30 15 * * mon", IsActive: false}
	if err := store.UpsertChannel(ctx, update); err != nil {
		t.Fatalf("update: %v", err)
	}

	got, err := store.GetChannel(ctx, "@shelter")
	if err != nil || got == nil {
		t.Fatalf("GetChannel = (%v, %v), want a row", got, err)
	}
	if got.Schedule != "30 15 * * mon" || got.IsActive || got.Filters != `{"with_photo":true}` {
		t.Fatalf("updated row = %+v", got)
	}

	all, err := store.ListChannels(ctx)
	if err != nil {
		t.Fatalf("ListChannels: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("channel rows = %d, want 1", len(all))
	}
}

func TestUpsertChannelValidation(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.UpsertChannel(ctx, &Channel{Schedule: "0 10 * * *"}); err == nil {
		t.Fatal("channel without chat_id should be rejected")
	}
	if err := store.UpsertChannel(ctx, &Channel{ChatID: "@shelter"}); err == nil {
		t.Fatal("channel without schedule should be rejected")
	}
}

func TestListActiveChannelsFiltersPaused(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.UpsertChannel(ctx, &Channel{ChatID: "@a", Schedule: "0 10 * * *", IsActive: true}); err != nil {
		t.Fatalf("UpsertChannel: %v", err)
	}
	if err := store.UpsertChannel(ctx, &Channel{ChatID: "@b", Schedule: "0 10 * * *", IsActive: false}); err != nil {
		t.Fatalf("UpsertChannel: %v", err)
	}

	active, err := store.ListActiveChannels(ctx)
	if err != nil {
		t.Fatalf("ListActiveChannels: %v", err)
	}
	if len(active) != 1 || active[0].ChatID != "@a" {
		t.Fatalf("active = %+v, want only @a", active)
	}
}

func TestDeleteChannelReportsExistence(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	existed, err := store.DeleteChannel(ctx, "@missing")
	if err != nil {
		t.Fatalf("DeleteChannel: %v", err)
	}
	if existed {
		t.Fatal("deleting a missing channel should report false")
	}

	if err := store.UpsertChannel(ctx, &Channel{ChatID: "@shelter", Schedule: "0 10 * * *", IsActive: true}); err != nil {
		t.Fatalf("UpsertChannel: %v", err)
	}
	existed, err = store.DeleteChannel(ctx, "@shelter")
	if err != nil {
		t.Fatalf("DeleteChannel: %v", err)
	}
	if !existed {
		t.Fatal("deleting a saved channel should report true")
	}
}

func TestSetChannelActive(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	existed, err := store.SetChannelActive(ctx, "@missing", false)
	if err != nil {
		t.Fatalf("SetChannelActive: %v", err)
	}
	if existed {
		t.Fatal("toggling a missing channel should report false")
	}

	if err := store.UpsertChannel(ctx, &Channel{ChatID: "@shelter", Schedule: "0 10 * * *", IsActive: true}); err != nil {
		t.Fatalf("UpsertChannel: %v", err)
	}
	existed, err = store.SetChannelActive(ctx, "@shelter", false)
	if err != nil || !existed {
		t.Fatalf("SetChannelActive = (%v, %v), want (true, nil)", existed, err)
	}

	got, err := store.GetChannel(ctx, "@shelter")
	if err != nil || got == nil {
		t.Fatalf("GetChannel = (%v, %v)", got, err)
	}
	if got.IsActive {
		t.Fatal("channel should be paused after SetChannelActive(false)")
	}
}

func TestFilterSetEncodeDecode(t *testing.T) {
	// An empty set encodes to the empty string, and the empty string
	// decodes back to an empty set.
	encoded, err := (FilterSet{}).Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if encoded != "" {
		t.Fatalf("empty set encoded to %q, want empty string", encoded)
	}

	decoded, err := DecodeFilterSet("")
	if err != nil {
		t.Fatalf("DecodeFilterSet: %v", err)
	}
	if !decoded.IsEmpty() {
		t.Fatalf("decoded empty string = %+v, want empty set", decoded)
	}

	name := "Рекс"
	minAge, maxAge := 1, 3
	want := FilterSet{Name: &name, AgeMin: &minAge, AgeMax: &maxAge, WithPhoto: true}
	encoded, err = want.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := DecodeFilterSet(encoded)
	if err != nil {
		t.Fatalf("DecodeFilterSet: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}

	if _, err := DecodeFilterSet("{broken"); err == nil {
		t.Fatal("malformed JSON should fail to decode")
	}
}
