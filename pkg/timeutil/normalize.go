package timeutil

import (
	"time"

	apperrors "meetsync/pkg/errors"
)

// Layouts accepted for incoming time values. Offset-aware values are
// converted directly; naive values are interpreted as wall-clock time in the
// caller's reference timezone.
var (
	awareLayouts = []string{
		time.RFC3339Nano,
		time.RFC3339,
	}
	naiveLayouts = []string{
		"2006-01-02T15:04:05.999999999",
		"2006-01-02T15:04:05",
		"2006-01-02T15:04",
	}
)

const DateLayout = "2006-01-02"

// LoadLocation resolves an IANA timezone name.
func LoadLocation(name string) (*time.Location, error) {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, apperrors.UnknownTimezone(name)
	}
	return loc, nil
}

// ToUTC normalizes a possibly-naive ISO date-time string to a UTC instant.
// Naive inputs are localized to ref first; aware inputs keep their own offset.
func ToUTC(value string, ref *time.Location) (time.Time, error) {
	for _, layout := range awareLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), nil
		}
	}
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, value, ref); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, apperrors.InvalidTimeFormat(value)
}

// ParseDate parses a YYYY-MM-DD value as midnight in loc.
func ParseDate(value string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, value, loc)
	if err != nil {
		return time.Time{}, apperrors.InvalidDateFormat(value)
	}
	return t, nil
}

// SameLocalDate reports whether two instants fall on the same calendar date
// when viewed in loc.
func SameLocalDate(a, b time.Time, loc *time.Location) bool {
	ay, am, ad := a.In(loc).Date()
	by, bm, bd := b.In(loc).Date()
	return ay == by && am == bm && ad == bd
}
