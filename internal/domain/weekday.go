package domain

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Weekday is the symbolic day a session is scheduled on.
type Weekday string

const (
	Monday    Weekday = "monday"
	Tuesday   Weekday = "tuesday"
	Wednesday Weekday = "wednesday"
	Thursday  Weekday = "thursday"
	Friday    Weekday = "friday"
	Saturday  Weekday = "saturday"
	Sunday    Weekday = "sunday"
)

var byTimeWeekday = [7]Weekday{Sunday, Monday, Tuesday, Wednesday, Thursday, Friday, Saturday}

// Spanish names are accepted because the catalog is maintained in Spanish.
var weekdayAliases = map[string]Weekday{
	"monday":    Monday,
	"tuesday":   Tuesday,
	"wednesday": Wednesday,
	"thursday":  Thursday,
	"friday":    Friday,
	"saturday":  Saturday,
	"sunday":    Sunday,
	"lunes":     Monday,
	"martes":    Tuesday,
	"miercoles": Wednesday,
	"jueves":    Thursday,
	"viernes":   Friday,
	"sabado":    Saturday,
	"domingo":   Sunday,
}

// WeekdayOf returns the symbolic weekday of t in t's location.
func WeekdayOf(t time.Time) Weekday {
	return byTimeWeekday[t.Weekday()]
}

// ParseWeekday accepts English or Spanish day names, ignoring case and accents.
func ParseWeekday(s string) (Weekday, error) {
	folded, err := foldAccents(strings.ToLower(strings.TrimSpace(s)))
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidWeekday, s)
	}
	day, ok := weekdayAliases[folded]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidWeekday, s)
	}
	return day, nil
}

func (w Weekday) Valid() bool {
	day, ok := weekdayAliases[string(w)]
	return ok && day == w
}

func foldAccents(s string) (string, error) {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	return out, err
}
