// Package schedule turns a loosely formatted time of day and a calendar date
// into a concrete start/end pair.
package schedule

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/julianstephens/trainsync/internal/constants"
	"github.com/julianstephens/trainsync/internal/errors"
)

// timePattern accepts "18:30", "18h30", "18.30", "1830", "18h", "6" and "6:5".
var timePattern = regexp.MustCompile(`^(\d{1,2})(?:[:h.](\d{1,2})?|(\d{2}))?$`)

// TimeOfDay is a validated wall-clock time.
type TimeOfDay struct {
	Hour   int
	Minute int
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// Schedule is the start and end instant of one training session.
type Schedule struct {
	Start time.Time
	End   time.Time
}

// Text renders the schedule as "HH:MM - HH:MM".
func (s Schedule) Text() string {
	return s.Start.Format(constants.TimeFormat) + " - " + s.End.Format(constants.TimeFormat)
}

// NormalizeTimeOfDay converts a time cell into trimmed text.
// time.Time values become "HH:MM". A fractional number is a dotted time that
// lost its trailing zero, so 18.3 prints as "18.30".
func NormalizeTimeOfDay(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(x)
	case time.Time:
		if x.IsZero() {
			return ""
		}
		return x.Format(constants.TimeFormat)
	case float64:
		return formatNumber(x)
	case float32:
		return formatNumber(float64(x))
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case fmt.Stringer:
		return strings.TrimSpace(x.String())
	default:
		return strings.TrimSpace(fmt.Sprint(x))
	}
}

func formatNumber(x float64) string {
	if x == math.Trunc(x) {
		return strconv.FormatFloat(x, 'f', -1, 64)
	}
	return strconv.FormatFloat(x, 'f', 2, 64)
}

// ParseTimeOfDay validates a time cell. Errors carry KindMissingTime,
// KindMalformedTime or KindOutOfRangeTime.
func ParseTimeOfDay(v interface{}) (TimeOfDay, error) {
	const op = "schedule.parse"

	text := strings.ToLower(NormalizeTimeOfDay(v))
	if text == "" {
		return TimeOfDay{}, errors.New(errors.KindMissingTime, op, "time of day is required (e.g. \"06:00\", \"18:30\")")
	}

	m := timePattern.FindStringSubmatch(text)
	if m == nil {
		return TimeOfDay{}, errors.New(errors.KindMalformedTime, op, "invalid time format %q (use \"06:00\", \"18h30\", \"1945\")", text)
	}

	hour, _ := strconv.Atoi(m[1])
	minute := 0
	if mm := m[2] + m[3]; mm != "" {
		minute, _ = strconv.Atoi(mm)
	}

	if hour > 23 || minute > 59 {
		return TimeOfDay{}, errors.New(errors.KindOutOfRangeTime, op, "%d:%02d is out of range (hours 0-23, minutes 0-59)", hour, minute)
	}

	return TimeOfDay{Hour: hour, Minute: minute}, nil
}

// At places the time of day on date's calendar day in loc.
func (t TimeOfDay) At(date time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = date.Location()
	}
	d := date.In(loc)
	return time.Date(d.Year(), d.Month(), d.Day(), t.Hour, t.Minute, 0, 0, loc)
}

// Resolve computes the schedule for a session on date starting at timeOfDay
// and lasting duration. The date's own location is used.
func Resolve(date time.Time, timeOfDay interface{}, duration time.Duration) (Schedule, error) {
	tod, err := ParseTimeOfDay(timeOfDay)
	if err != nil {
		return Schedule{}, err
	}
	start := tod.At(date, date.Location())
	return Schedule{Start: start, End: start.Add(duration)}, nil
}
