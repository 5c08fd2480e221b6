package rowstore

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/julianstephens/trainsync/internal/errors"
)

func TestEncodeDecode(t *testing.T) {
	tests := []struct {
		name     string
		value    interface{}
		wantKind string
		want     interface{}
	}{
		{name: "text", value: "Long run", wantKind: KindText, want: "Long run"},
		{name: "float", value: 6.5, wantKind: KindNumber, want: 6.5},
		{name: "int", value: 18, wantKind: KindNumber, want: 18.0},
		{
			name:     "date",
			value:    time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC),
			wantKind: KindDate,
			want:     time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC),
		},
		{
			name:     "time of day",
			value:    time.Date(1899, 12, 30, 18, 30, 0, 0, time.UTC),
			wantKind: KindTime,
			want:     time.Date(1899, 12, 30, 18, 30, 0, 0, time.UTC),
		},
		{
			name:     "datetime",
			value:    time.Date(2024, 6, 10, 6, 5, 0, 0, time.UTC),
			wantKind: KindDateTime,
			want:     time.Date(2024, 6, 10, 6, 5, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kind, value := Encode(tt.value)
			if kind != tt.wantKind {
				t.Fatalf("Encode() kind = %q, want %q", kind, tt.wantKind)
			}
			got := Decode(kind, value)
			if want, ok := tt.want.(time.Time); ok {
				gt, ok := got.(time.Time)
				if !ok || !gt.Equal(want) {
					t.Errorf("Decode() = %#v, want %v", got, want)
				}
				return
			}
			if got != tt.want {
				t.Errorf("Decode() = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestDecodeFallsBackToText(t *testing.T) {
	if got := Decode(KindNumber, "abc"); got != "abc" {
		t.Errorf("Decode(number, abc) = %#v", got)
	}
	if got := Decode("unknown", "x"); got != "x" {
		t.Errorf("Decode(unknown, x) = %#v", got)
	}
}

func TestAssembleFlatten(t *testing.T) {
	grid := []Row{
		{"Date", "Action"},
		{"", "Add", "T1|E1"},
	}
	cells := Flatten(grid)
	if len(cells) != 4 {
		t.Fatalf("Flatten() returned %d cells, want 4", len(cells))
	}

	got := Assemble(cells)
	if len(got) != 2 || len(got[0]) != 3 {
		t.Fatalf("Assemble() shape = %dx%d, want 2x3", len(got), len(got[0]))
	}
	if got[0][2] != "" || got[1][0] != "" {
		t.Errorf("missing cells should read as empty, got %#v", got)
	}
	if got[1][2] != "T1|E1" {
		t.Errorf("got[1][2] = %#v", got[1][2])
	}
	if Width(got) != 3 {
		t.Errorf("Width() = %d, want 3", Width(got))
	}
}

func TestMemoryWriteCells(t *testing.T) {
	ctx := context.Background()
	m := NewMemory("training", []Row{{"Date", "Action"}, {"2024-06-10", "Add"}})

	err := m.WriteCells(ctx, []CellWrite{
		{Row: 1, Col: 1, Value: nil},
		{Row: 1, Col: 3, Value: "T1|E1"},
		{Row: 3, Col: 0, Value: "late"},
	})
	if err != nil {
		t.Fatalf("WriteCells() failed: %v", err)
	}

	if got := m.Cell(1, 1); got != "" {
		t.Errorf("cleared cell = %#v", got)
	}
	if got := m.Cell(1, 3); got != "T1|E1" {
		t.Errorf("grown cell = %#v", got)
	}
	if got := m.Cell(3, 0); got != "late" {
		t.Errorf("new row cell = %#v", got)
	}
	if len(m.Batches()) != 1 {
		t.Errorf("Batches() = %d, want 1", len(m.Batches()))
	}

	rows, _ := m.ReadAllRows(ctx)
	rows[1][0] = "mutated"
	if m.Cell(1, 0) != "2024-06-10" {
		t.Error("ReadAllRows must return a copy")
	}
}

func TestMemoryFailures(t *testing.T) {
	ctx := context.Background()
	m := NewMemory("training", nil)
	boom := stderrors.New("boom")

	m.FailReads(boom)
	if _, err := m.ReadAllRows(ctx); errors.KindOf(err) != errors.KindStoreAccess || !stderrors.Is(err, boom) {
		t.Errorf("ReadAllRows() error = %v", err)
	}

	m.FailWrites(boom)
	if err := m.WriteCells(ctx, []CellWrite{{Row: 0, Col: 0, Value: "x"}}); errors.KindOf(err) != errors.KindStoreAccess {
		t.Errorf("WriteCells() error = %v", err)
	}
	m.FailWrites(nil)

	if err := m.WriteCells(ctx, []CellWrite{{Row: -1, Col: 0, Value: "x"}}); errors.KindOf(err) != errors.KindStoreAccess {
		t.Errorf("WriteCells() negative row error = %v", err)
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if err := m.WriteCells(cancelled, nil); !stderrors.Is(err, context.Canceled) {
		t.Errorf("WriteCells() cancelled error = %v", err)
	}
}

func TestMemoryRuns(t *testing.T) {
	ctx := context.Background()
	m := NewMemory("training", nil)
	for i := 0; i < 3; i++ {
		m.RecordRun(ctx, RunRecord{Kind: "sync", Processed: i})
	}
	runs, _ := m.RecentRuns(ctx, 2)
	if len(runs) != 2 || runs[0].Processed != 2 || runs[1].Processed != 1 {
		t.Errorf("RecentRuns() = %+v", runs)
	}
}
