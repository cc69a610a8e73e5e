// Package normalize turns free-text age and sex fields, as scraped from
// shelter listings, into canonical values. Raw fields stay raw in storage;
// these helpers are applied at query and display time.
package normalize

import (
	"regexp"
	"strconv"
	"strings"
)

// Canonical sex values produced by Sex.
const (
	SexMale   = "male"
	SexFemale = "female"

	// SexUnspecified is the display fallback for values Sex cannot resolve.
	SexUnspecified = "unspecified"
)

var digitsRe = regexp.MustCompile(`\d+`)

// unknownSentinels are values the source site uses for "not specified".
var unknownSentinels = map[string]struct{}{
	"":          {},
	"unknown":   {},
	"не указан": {},
}

// Listings mix languages, scripts, and symbols for the same two sexes.
var (
	maleKeywords   = []string{"мужской", "самец", "male", "boy", "м", "♂"}
	femaleKeywords = []string{"женский", "самка", "female", "girl", "ж", "♀"}
)

// Age extracts the first contiguous run of digits found anywhere in the
// text. It returns false for unknown sentinels or text without digits.
// Units are not interpreted: "2 years" and "2 months" both yield 2.
func Age(raw string) (int, bool) {
	if isUnknown(raw) {
		return 0, false
	}

	match := digitsRe.FindString(raw)
	if match == "" {
		return 0, false
	}

	age, err := strconv.Atoi(match)
	if err != nil {
		// Only possible for absurdly long digit runs that overflow int.
		return 0, false
	}
	return age, true
}

// Sex lower-cases the text and checks it for any keyword of the two sets,
// by substring. The male set is checked before the female set; if both
// would match, male wins. That ordering is a defined tie-break, not an
// accident.
func Sex(raw string) (string, bool) {
	if isUnknown(raw) {
		return "", false
	}

	lower := strings.ToLower(raw)
	for _, keyword := range maleKeywords {
		if strings.Contains(lower, keyword) {
			return SexMale, true
		}
	}
	for _, keyword := range femaleKeywords {
		if strings.Contains(lower, keyword) {
			return SexFemale, true
		}
	}

	return "", false
}

// SexForDisplay resolves a raw sex value to its canonical form, or to
// SexUnspecified when it cannot be resolved.
func SexForDisplay(raw string) string {
	if sex, ok := Sex(raw); ok {
		return sex
	}
	return SexUnspecified
}

func isUnknown(raw string) bool {
	_, ok := unknownSentinels[strings.ToLower(strings.TrimSpace(raw))]
	return ok
}
