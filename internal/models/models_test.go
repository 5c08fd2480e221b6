package models

import (
	"errors"
	"testing"
	"time"

	apperrors "github.com/julianstephens/trainsync/internal/errors"
)

func TestParseCombinedID(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  CombinedID
	}{
		{name: "both halves", input: "T1|E1", want: CombinedID{TaskID: "T1", EventID: "E1"}},
		{name: "task only", input: "T1|", want: CombinedID{TaskID: "T1"}},
		{name: "event only", input: "|E1", want: CombinedID{EventID: "E1"}},
		{name: "no separator", input: "T1", want: CombinedID{TaskID: "T1"}},
		{name: "empty", input: "", want: CombinedID{}},
		{name: "spaces", input: " T1 | E1 ", want: CombinedID{TaskID: "T1", EventID: "E1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseCombinedID(tt.input); got != tt.want {
				t.Errorf("ParseCombinedID(%q) = %+v, want %+v", tt.input, got, tt.want)
			}
		})
	}
}

func TestCombinedIDString(t *testing.T) {
	if got := (CombinedID{TaskID: "T1", EventID: "E1"}).String(); got != "T1|E1" {
		t.Errorf("String() = %q, want T1|E1", got)
	}
	if got := (CombinedID{TaskID: "T1"}).String(); got != "T1|" {
		t.Errorf("String() = %q, want T1|", got)
	}
	if got := (CombinedID{}).String(); got != "" {
		t.Errorf("String() = %q, want empty", got)
	}
}

func TestStatusLabels(t *testing.T) {
	labels := DefaultStatusLabels()

	tests := []struct {
		text      string
		kind      StatusKind
		clearable bool
		protected bool
	}{
		{"", StatusEmpty, false, false},
		{"Pending", StatusPending, true, false},
		{"Completed", StatusCompleted, true, true},
		{"Expired", StatusExpired, true, true},
		{"ID not found", StatusNotFound, false, false},
		{"skipped, knee pain", StatusCustom, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			k := labels.Kind(tt.text)
			if k != tt.kind {
				t.Fatalf("Kind(%q) = %v, want %v", tt.text, k, tt.kind)
			}
			if k.Clearable() != tt.clearable {
				t.Errorf("Clearable() = %v, want %v", k.Clearable(), tt.clearable)
			}
			if k.Protected() != tt.protected {
				t.Errorf("Protected() = %v, want %v", k.Protected(), tt.protected)
			}
		})
	}

	custom := StatusLabels{Pending: "Pendente", Completed: "Concluído", Expired: "Expirado", NotFound: "ID not found"}
	if custom.Kind("Concluído") != StatusCompleted {
		t.Error("custom labels should classify Concluído as completed")
	}
	if custom.Kind("Completed") != StatusCustom {
		t.Error("default label text should be custom under localized labels")
	}
}

func TestParseAction(t *testing.T) {
	tests := []struct {
		text string
		want Action
		ok   bool
	}{
		{"Add", ActionAdd, true},
		{" update ", ActionUpdate, true},
		{"REMOVE", ActionRemove, true},
		{"", ActionNone, true},
		{"Delete", ActionNone, false},
	}
	for _, tt := range tests {
		got, ok := ParseAction(tt.text)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseAction(%q) = %q, %v; want %q, %v", tt.text, got, ok, tt.want, tt.ok)
		}
	}
}

func TestColumnsValidate(t *testing.T) {
	cols := DefaultColumns()
	if err := cols.Validate(); err != nil {
		t.Fatalf("DefaultColumns().Validate() error: %v", err)
	}
	if cols.Width() != 11 {
		t.Errorf("Width() = %d, want 11", cols.Width())
	}

	cols.Status = cols.Action
	if err := cols.Validate(); err == nil {
		t.Error("expected error for duplicate index")
	}

	cols = DefaultColumns()
	cols.Label = -1
	if err := cols.Validate(); err == nil {
		t.Error("expected error for negative index")
	}
}

func TestLetter(t *testing.T) {
	for index, want := range map[int]string{0: "A", 10: "K", 25: "Z", 26: "AA", 27: "AB"} {
		if got := Letter(index); got != want {
			t.Errorf("Letter(%d) = %q, want %q", index, got, want)
		}
	}
}

func TestRecordFromRow(t *testing.T) {
	row := []interface{}{
		"W1", "Pending", "Add", "2024-06-10", "6:5", "Mon",
		"Easy run", "Z2", "45 min easy", "", "T1|E1",
	}

	rec, err := RecordFromRow(row, DefaultColumns(), time.UTC)
	if err != nil {
		t.Fatalf("RecordFromRow() error: %v", err)
	}
	if !rec.HasDate || !rec.ScheduledDate.Equal(time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("ScheduledDate = %v", rec.ScheduledDate)
	}
	if rec.Label != "Easy run" || rec.HeartRateZone != "Z2" || rec.Description != "45 min easy" {
		t.Errorf("unexpected text fields: %+v", rec)
	}
	if rec.CombinedID != (CombinedID{TaskID: "T1", EventID: "E1"}) {
		t.Errorf("CombinedID = %+v", rec.CombinedID)
	}

	text, err := rec.ScheduleText(time.Hour)
	if err != nil {
		t.Fatalf("ScheduleText() error: %v", err)
	}
	if text != "06:05 - 07:05" {
		t.Errorf("ScheduleText() = %q", text)
	}
}

func TestRecordFromShortRow(t *testing.T) {
	rec, err := RecordFromRow([]interface{}{"W1", ""}, DefaultColumns(), time.UTC)
	if err != nil {
		t.Fatalf("RecordFromRow() error: %v", err)
	}
	if rec.HasDate || rec.Action != "" || rec.HasIdentifier() {
		t.Errorf("expected empty record, got %+v", rec)
	}
	if _, err := rec.Schedule(time.Hour); err == nil {
		t.Error("Schedule() without a date should fail")
	}
}

func TestRecordMalformedTime(t *testing.T) {
	row := make([]interface{}, 11)
	row[3] = time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)
	row[4] = "quarter past six"

	rec, err := RecordFromRow(row, DefaultColumns(), time.UTC)
	if err != nil {
		t.Fatalf("RecordFromRow() error: %v", err)
	}
	if _, err := rec.Schedule(time.Hour); !errors.Is(err, apperrors.ErrMalformedTime) {
		t.Errorf("Schedule() error = %v, want malformed time", err)
	}
}

func TestRecordBadDate(t *testing.T) {
	row := []interface{}{"", "", "Add", "someday"}
	if _, err := RecordFromRow(row, DefaultColumns(), time.UTC); err == nil {
		t.Error("expected error for unparseable date")
	}
}

func TestBareSeparatorCountsAsIdentifier(t *testing.T) {
	row := []interface{}{"W1", "Pending", "Remove", "2024-06-10", "6:00", "", "Easy", "", "", "", " | "}
	rec, err := RecordFromRow(row, DefaultColumns(), time.UTC)
	if err != nil {
		t.Fatalf("RecordFromRow() error: %v", err)
	}
	if !rec.CombinedID.IsZero() {
		t.Errorf("CombinedID = %+v, want zero", rec.CombinedID)
	}
	if !rec.HasIdentifier() {
		t.Error("HasIdentifier() = false for a bare separator")
	}
}
