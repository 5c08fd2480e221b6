package utils

import (
	"fmt"
	"strings"
	"time"

	"github.com/julianstephens/trainsync/internal/constants"
)

// dateLayouts are the accepted textual date forms of a date cell, tried in order.
var dateLayouts = []string{
	constants.DateFormat,
	"02/01/2006",
	"2/1/2006",
	time.RFC3339,
	"2006-01-02 15:04:05",
}

// LoadLocation loads a timezone location from an IANA timezone name.
// If the timezone is "Local" or empty, it returns the system's local timezone.
func LoadLocation(timezone string) (*time.Location, error) {
	if timezone == "" || timezone == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(timezone)
}

// NowInTimezone returns the current time in the specified timezone.
func NowInTimezone(timezone string) (time.Time, error) {
	loc, err := LoadLocation(timezone)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timezone %q: %w", timezone, err)
	}
	return time.Now().In(loc), nil
}

// ValidateTimezone checks if the timezone name is valid.
func ValidateTimezone(timezone string) bool {
	if timezone == "" || timezone == "Local" {
		return true
	}
	_, err := time.LoadLocation(timezone)
	return err == nil
}

// DateOnly returns midnight in loc of the calendar day written in t. The day is
// taken as is, without converting t to loc first.
func DateOnly(t time.Time, loc *time.Location) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// ParseDateInLocation parses a date string in one of the accepted layouts and
// returns midnight of that day in loc.
func ParseDateInLocation(dateStr string, loc *time.Location) (time.Time, error) {
	dateStr = strings.TrimSpace(dateStr)
	for _, layout := range dateLayouts {
		t, err := time.ParseInLocation(layout, dateStr, loc)
		if err == nil {
			return DateOnly(t, loc), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q (expected YYYY-MM-DD or DD/MM/YYYY)", dateStr)
}

// DateValue converts a date cell into midnight of that day in loc.
// It reports false when the cell is empty.
func DateValue(v interface{}, loc *time.Location) (time.Time, bool, error) {
	switch x := v.(type) {
	case nil:
		return time.Time{}, false, nil
	case time.Time:
		if x.IsZero() {
			return time.Time{}, false, nil
		}
		return DateOnly(x, loc), true, nil
	case string:
		if strings.TrimSpace(x) == "" {
			return time.Time{}, false, nil
		}
		t, err := ParseDateInLocation(x, loc)
		if err != nil {
			return time.Time{}, false, err
		}
		return t, true, nil
	default:
		t, err := ParseDateInLocation(fmt.Sprint(x), loc)
		if err != nil {
			return time.Time{}, false, err
		}
		return t, true, nil
	}
}

// EndOfDay returns the last representable instant of t's calendar day.
func EndOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, int(time.Second-time.Nanosecond), t.Location())
}
