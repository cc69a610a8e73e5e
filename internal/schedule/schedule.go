// Package schedule converts the small human-readable broadcast schedule
// grammar into canonical 5-field cron expressions.
//
// Two shapes are accepted, case-insensitively:
//
//	daily at HH:MM              -> "MM HH * * *"
//	weekly on <day> at HH:MM    -> "MM HH * * <ddd>"
package schedule

import (
	"fmt"
	"strings"
	"time"
)

// Hint lists the accepted schedule patterns, for error messages and prompts.
const Hint = "'daily at HH:MM' or 'weekly on <day> at HH:MM'"

// FormatError reports schedule text that does not match the grammar.
type FormatError struct {
	Input string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("unrecognized schedule %q: use %s", e.Input, Hint)
}

// dayCodes maps full day names to the three-letter cron day-of-week codes.
var dayCodes = map[string]string{
	"monday":    "mon",
	"tuesday":   "tue",
	"wednesday": "wed",
	"thursday":  "thu",
	"friday":    "fri",
	"saturday":  "sat",
	"sunday":    "sun",
}

// Parse converts schedule text into a cron expression. It performs no
// validation beyond what the grammar and time parsing require; the
// scheduling backend has the final say on the expression.
func Parse(text string) (string, error) {
	fields := strings.Fields(strings.ToLower(text))

	switch {
	case len(fields) == 3 && fields[0] == "daily" && fields[1] == "at":
		at, err := parseClock(fields[2])
		if err != nil {
			return "", &FormatError{Input: text}
		}
		return fmt.Sprintf("%d %d * * *", at.Minute(), at.Hour()), nil

	case len(fields) == 5 && fields[0] == "weekly" && fields[1] == "on" && fields[3] == "at":
		day, ok := dayCodes[fields[2]]
		if !ok {
			return "", &FormatError{Input: text}
		}
		at, err := parseClock(fields[4])
		if err != nil {
			return "", &FormatError{Input: text}
		}
		return fmt.Sprintf("%d %d * * %s", at.Minute(), at.Hour(), day), nil
	}

	return "", &FormatError{Input: text}
}

func parseClock(s string) (time.Time, error) {
	return time.Parse("15:04", s)
}
