package handlers

import (
	"fmt"
	"strconv"

	"github.com/go-telegram/bot/models"

	"github.com/less-homeless/shelterbot/internal/database"
)

const ageButtonsPerRow = 5

func mainMenuKeyboard() *models.InlineKeyboardMarkup {
	return &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{
			{{Text: "📋 All animals", CallbackData: cbViewAll}},
			{{Text: "🔍 Filters", CallbackData: cbViewFiltered}},
			{{Text: "📢 Channels", CallbackData: cbChannels}},
		},
	}
}

// scopedFiltersKeyboard marks the filter buttons that already have a
// committed value so the user can see the state of their selection. In the
// channel flow the action row saves the broadcast configuration instead of
// running a query.
func scopedFiltersKeyboard(filters database.FilterSet, forChannel bool) *models.InlineKeyboardMarkup {
	mark := func(text string, set bool) string {
		if set {
			return text + " ✅"
		}
		return text
	}

	action := models.InlineKeyboardButton{Text: "✅ Show", CallbackData: cbShowFiltered}
	if forChannel {
		action = models.InlineKeyboardButton{Text: "💾 Save channel", CallbackData: cbChannelSave}
	}

	_, _, hasAge := filters.AgeRange()
	return &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{
			{{Text: mark("📅 Age", hasAge), CallbackData: cbFilterAge}},
			{{Text: mark("⚤ Sex", filters.Sex != nil), CallbackData: cbFilterSex}},
			{{Text: mark("🔎 Name", filters.Name != nil), CallbackData: cbFilterName}},
			{{Text: mark("📷 With photo", filters.WithPhoto), CallbackData: cbFilterPhoto}},
			{action},
			{{Text: "🔙 Back", CallbackData: cbBackToMain}},
		},
	}
}

func sexKeyboard() *models.InlineKeyboardMarkup {
	return &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{
			{{Text: "Male", CallbackData: cbSexMale}},
			{{Text: "Female", CallbackData: cbSexFemale}},
			{{Text: "🔙 Back", CallbackData: cbBackToFilters}},
		},
	}
}

// ageKeyboard lays out one button per year from lowest to maxAge. The
// callback prefix distinguishes the minimum picker from the maximum one.
func ageKeyboard(lowest, maxAge int, prefix string) *models.InlineKeyboardMarkup {
	var rows [][]models.InlineKeyboardButton
	row := []models.InlineKeyboardButton{}
	for age := lowest; age <= maxAge; age++ {
		row = append(row, models.InlineKeyboardButton{
			Text:         strconv.Itoa(age),
			CallbackData: prefix + strconv.Itoa(age),
		})
		if len(row) == ageButtonsPerRow {
			rows = append(rows, row)
			row = []models.InlineKeyboardButton{}
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	rows = append(rows, []models.InlineKeyboardButton{{Text: "🔙 Back", CallbackData: cbBackToFilters}})
	return &models.InlineKeyboardMarkup{InlineKeyboard: rows}
}

// animalListKeyboard shows one button per animal, opening its card.
func animalListKeyboard(list []database.Animal) *models.InlineKeyboardMarkup {
	rows := make([][]models.InlineKeyboardButton, 0, len(list)+1)
	for _, a := range list {
		rows = append(rows, []models.InlineKeyboardButton{{
			Text:         "🐾 " + a.Name,
			CallbackData: fmt.Sprintf("%s%d", cbAnimalPrefix, a.ID),
		}})
	}
	rows = append(rows, []models.InlineKeyboardButton{{Text: "🔙 Back", CallbackData: cbBackToMain}})
	return &models.InlineKeyboardMarkup{InlineKeyboard: rows}
}

// cardKeyboard links to the animal's page on the shelter site.
func cardKeyboard(siteURL string) *models.InlineKeyboardMarkup {
	return &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{
			{{Text: "🌐 Open the site", URL: siteURL}},
			{{Text: "🔙 Back to list", CallbackData: cbBackToList}},
		},
	}
}

// channelsKeyboard lists configured channels with pause and delete actions.
func channelsKeyboard(list []database.Channel) *models.InlineKeyboardMarkup {
	rows := make([][]models.InlineKeyboardButton, 0, len(list)+2)
	for _, ch := range list {
		label := ch.ChatID
		toggle := "⏸ Pause"
		if !ch.IsActive {
			label += " (paused)"
			toggle = "▶️ Resume"
		}
		rows = append(rows,
			[]models.InlineKeyboardButton{{Text: label, CallbackData: cbNoop}},
			[]models.InlineKeyboardButton{
				{Text: toggle, CallbackData: cbChannelToggle + ch.ChatID},
				{Text: "🗑 Delete", CallbackData: cbChannelDelete + ch.ChatID},
			},
		)
	}
	rows = append(rows,
		[]models.InlineKeyboardButton{{Text: "➕ Add channel", CallbackData: cbChannelAdd}},
		[]models.InlineKeyboardButton{{Text: "🔙 Back", CallbackData: cbBackToMain}},
	)
	return &models.InlineKeyboardMarkup{InlineKeyboard: rows}
}
