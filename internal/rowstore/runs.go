package rowstore

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/julianstephens/trainsync/internal/errors"
)

// RunRecord is the persisted summary of one sweep.
type RunRecord struct {
	ID         uuid.UUID
	Sheet      string
	Kind       string
	StartedAt  time.Time
	FinishedAt time.Time
	Processed  int
	Failed     int
	Changed    int
	Error      string
}

// RunLog is implemented by stores that keep sweep history.
type RunLog interface {
	RecordRun(ctx context.Context, run RunRecord) error
	// RecentRuns returns up to limit runs, newest first.
	RecentRuns(ctx context.Context, limit int) ([]RunRecord, error)
}

// StoredCell is one persisted non-empty cell.
type StoredCell struct {
	Row   int
	Col   int
	Kind  string
	Value string
}

// Assemble rebuilds a dense grid from sparse cells. Missing cells read as "".
func Assemble(cells []StoredCell) []Row {
	rows, width := 0, 0
	for _, c := range cells {
		if c.Row+1 > rows {
			rows = c.Row + 1
		}
		if c.Col+1 > width {
			width = c.Col + 1
		}
	}
	out := make([]Row, rows)
	for i := range out {
		out[i] = make(Row, width)
		for j := range out[i] {
			out[i][j] = ""
		}
	}
	for _, c := range cells {
		out[c.Row][c.Col] = Decode(c.Kind, c.Value)
	}
	return out
}

// Flatten lists the non-empty cells of rows, the inverse of Assemble.
func Flatten(rows []Row) []StoredCell {
	var out []StoredCell
	for i, r := range rows {
		for j, v := range r {
			if IsEmpty(v) {
				continue
			}
			kind, value := Encode(v)
			out = append(out, StoredCell{Row: i, Col: j, Kind: kind, Value: value})
		}
	}
	return out
}

// ValidateWrites rejects negative cell coordinates.
func ValidateWrites(op string, writes []CellWrite) error {
	for _, w := range writes {
		if w.Row < 0 || w.Col < 0 {
			return errors.New(errors.KindStoreAccess, op, "invalid cell %d,%d", w.Row, w.Col)
		}
	}
	return nil
}
