package rowstore

import (
	"fmt"
	"strconv"
	"time"

	"github.com/julianstephens/trainsync/internal/constants"
)

// Cell kinds as persisted by the SQL stores.
const (
	KindText     = "text"
	KindNumber   = "number"
	KindDate     = "date"
	KindTime     = "time"
	KindDateTime = "datetime"
)

const timeOfDayFormat = "15:04:05"

// timeOnlyYear marks a time.Time that carries only a time of day; spreadsheets
// anchor such values on 1899-12-30.
const timeOnlyYear = 1899

// Encode converts a cell value to its persisted kind and text.
func Encode(v interface{}) (kind, value string) {
	switch x := v.(type) {
	case string:
		return KindText, x
	case time.Time:
		switch {
		case x.Year() <= timeOnlyYear:
			return KindTime, x.Format(timeOfDayFormat)
		case x.Hour() == 0 && x.Minute() == 0 && x.Second() == 0 && x.Nanosecond() == 0:
			return KindDate, x.Format(constants.DateFormat)
		default:
			return KindDateTime, x.Format(time.RFC3339)
		}
	case float64:
		return KindNumber, strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return KindNumber, strconv.FormatFloat(float64(x), 'f', -1, 32)
	case int:
		return KindNumber, strconv.Itoa(x)
	case int64:
		return KindNumber, strconv.FormatInt(x, 10)
	default:
		return KindText, fmt.Sprint(x)
	}
}

// Decode converts a persisted cell back to its value. Unknown kinds and
// unparseable values come back as text.
func Decode(kind, value string) interface{} {
	switch kind {
	case KindNumber:
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	case KindDate:
		if t, err := time.Parse(constants.DateFormat, value); err == nil {
			return t
		}
	case KindTime:
		if t, err := time.Parse(timeOfDayFormat, value); err == nil {
			return time.Date(timeOnlyYear, 12, 30, t.Hour(), t.Minute(), t.Second(), 0, time.UTC)
		}
	case KindDateTime:
		if t, err := time.Parse(time.RFC3339, value); err == nil {
			return t
		}
	}
	return value
}
