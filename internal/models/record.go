package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/julianstephens/trainsync/internal/constants"
	"github.com/julianstephens/trainsync/internal/schedule"
	"github.com/julianstephens/trainsync/internal/utils"
)

// Record is one training session read from a store row.
type Record struct {
	Row            int // zero-based row index; the header is row 0
	ScheduledDate  time.Time
	HasDate        bool
	TimeOfDayRaw   interface{}
	Label          string
	HeartRateZone  string
	Description    string
	Status         string
	Action         string
	CombinedID     CombinedID
	IdentifierText string // the identifier cell as written
}

// HasIdentifier reports whether the identifier cell holds anything. A bare
// separator parses to a zero CombinedID but still counts.
func (r Record) HasIdentifier() bool {
	return r.IdentifierText != "" || !r.CombinedID.IsZero()
}

// RecordFromRow builds a record from raw cells. Missing trailing cells read as
// empty. Only an unparseable date is an error.
func RecordFromRow(row []interface{}, cols Columns, loc *time.Location) (Record, error) {
	if loc == nil {
		loc = time.Local
	}
	idText := CellText(cell(row, cols.Identifier))
	rec := Record{
		TimeOfDayRaw:   cell(row, cols.Time),
		Label:          CellText(cell(row, cols.Label)),
		HeartRateZone:  CellText(cell(row, cols.HeartRateZone)),
		Description:    CellText(cell(row, cols.Description)),
		Status:         CellText(cell(row, cols.Status)),
		Action:         CellText(cell(row, cols.Action)),
		CombinedID:     ParseCombinedID(idText),
		IdentifierText: idText,
	}

	date, ok, err := utils.DateValue(cell(row, cols.Date), loc)
	if err != nil {
		return rec, fmt.Errorf("date column: %w", err)
	}
	rec.ScheduledDate = date
	rec.HasDate = ok
	return rec, nil
}

// Schedule derives the session start and end from the date and time cells.
func (r Record) Schedule(duration time.Duration) (schedule.Schedule, error) {
	if !r.HasDate {
		return schedule.Schedule{}, fmt.Errorf("row %d: scheduled date is required", r.Row+1)
	}
	return schedule.Resolve(r.ScheduledDate, r.TimeOfDayRaw, duration)
}

// ScheduleText renders the schedule as "HH:MM - HH:MM".
func (r Record) ScheduleText(duration time.Duration) (string, error) {
	s, err := r.Schedule(duration)
	if err != nil {
		return "", err
	}
	return s.Text(), nil
}

func cell(row []interface{}, index int) interface{} {
	if index < 0 || index >= len(row) {
		return nil
	}
	return row[index]
}

// CellText renders any cell value as trimmed text.
func CellText(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(x)
	case time.Time:
		if x.IsZero() {
			return ""
		}
		if x.Hour() == 0 && x.Minute() == 0 && x.Second() == 0 {
			return x.Format(constants.DateFormat)
		}
		return x.Format(time.RFC3339)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return strings.TrimSpace(fmt.Sprint(x))
	}
}
