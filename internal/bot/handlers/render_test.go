package handlers

import (
	"strings"
	"testing"

	"github.com/less-homeless/shelterbot/internal/database"
)

func TestAnimalCardEscapesAndNormalizes(t *testing.T) {
	a := database.Animal{
		Name: "Рекс <junior>",
		Age:  "2 года",
		Sex:  "самец",
	}

	card := animalCard(a)

	if strings.Contains(card, "<junior>") {
		t.Fatal("card must HTML-escape scraped fields")
	}
	if !strings.Contains(card, "&lt;junior&gt;") {
		t.Fatalf("escaped name missing from card: %s", card)
	}
	// Raw sex values render through normalization.
	if !strings.Contains(card, "male") {
		t.Fatalf("normalized sex missing from card: %s", card)
	}
}

func TestAnimalSiteURLFallsBack(t *testing.T) {
	withLink := database.Animal{Description: "https://example.com/pets/7"}
	if got := animalSiteURL(withLink, "https://fallback.test"); got != "https://example.com/pets/7" {
		t.Fatalf("animalSiteURL = %q, want the listing link", got)
	}

	withText := database.Animal{Description: "очень дружелюбный"}
	if got := animalSiteURL(withText, "https://fallback.test"); got != "https://fallback.test" {
		t.Fatalf("animalSiteURL = %q, want the fallback", got)
	}
}

func TestFiltersKeyboardMarksSelections(t *testing.T) {
	name := "Рекс"
	minAge, maxAge := 1, 3
	filters := database.FilterSet{Name: &name, AgeMin: &minAge, AgeMax: &maxAge}

	kb := scopedFiltersKeyboard(filters, false)

	var marked, unmarked []string
	for _, row := range kb.InlineKeyboard {
		for _, btn := range row {
			if strings.Contains(btn.Text, "✅ Show") {
				continue
			}
			if strings.HasSuffix(btn.Text, "✅") {
				marked = append(marked, btn.CallbackData)
			} else {
				unmarked = append(unmarked, btn.CallbackData)
			}
		}
	}

	if len(marked) != 2 {
		t.Fatalf("marked buttons = %v, want age and name", marked)
	}
	for _, cb := range marked {
		if cb != cbFilterAge && cb != cbFilterName {
			t.Fatalf("unexpected marked button %q", cb)
		}
	}
	for _, cb := range unmarked {
		if cb == cbFilterAge || cb == cbFilterName {
			t.Fatalf("selected filter %q not marked", cb)
		}
	}
}

func TestFiltersKeyboardChannelScopeSaves(t *testing.T) {
	kb := scopedFiltersKeyboard(database.FilterSet{}, true)

	var hasSave, hasShow bool
	for _, row := range kb.InlineKeyboard {
		for _, btn := range row {
			switch btn.CallbackData {
			case cbChannelSave:
				hasSave = true
			case cbShowFiltered:
				hasShow = true
			}
		}
	}
	if !hasSave || hasShow {
		t.Fatalf("channel keyboard save=%v show=%v, want save only", hasSave, hasShow)
	}
}

func TestAgeKeyboardRange(t *testing.T) {
	kb := ageKeyboard(2, 8, cbAgeMaxPrefix)

	var ages []string
	for _, row := range kb.InlineKeyboard {
		for _, btn := range row {
			if strings.HasPrefix(btn.CallbackData, cbAgeMaxPrefix) {
				ages = append(ages, strings.TrimPrefix(btn.CallbackData, cbAgeMaxPrefix))
			}
		}
	}

	want := []string{"2", "3", "4", "5", "6", "7", "8"}
	if len(ages) != len(want) {
		t.Fatalf("age buttons = %v, want %v", ages, want)
	}
	for i := range want {
		if ages[i] != want[i] {
			t.Fatalf("age buttons = %v, want %v", ages, want)
		}
	}
}
