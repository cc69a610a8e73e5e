package handlers

import (
	"fmt"
	"html"
	"strings"

	"github.com/less-homeless/shelterbot/internal/database"
	"github.com/less-homeless/shelterbot/internal/normalize"
)

// animalCard renders the HTML card body for one animal. The description
// column holds the listing URL and is never shown as text.
func animalCard(a database.Animal) string {
	return fmt.Sprintf(
		"🐾 <b>%s</b>\n\n📅 <b>Age:</b> %s\n⚤ <b>Sex:</b> %s",
		html.EscapeString(a.Name),
		html.EscapeString(a.Age),
		html.EscapeString(normalize.SexForDisplay(a.Sex)),
	)
}

// animalSiteURL returns the link for the card button. Descriptions that do
// not look like a URL fall back to the shelter's front page.
func animalSiteURL(a database.Animal, fallback string) string {
	if strings.HasPrefix(a.Description, "http") {
		return a.Description
	}
	return fallback
}
