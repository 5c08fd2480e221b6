// Package rowstore holds the tabular training sheet the sync engine reads
// and writes back to.
package rowstore

import (
	"context"
)

// Row is one sheet row. Cells are nil, string, float64 or time.Time.
type Row = []interface{}

// CellWrite sets one cell. A nil or empty-string Value clears it.
type CellWrite struct {
	Row   int
	Col   int
	Value interface{}
}

// Store is the row store used by the sync sweeps. Row 0 is the header.
type Store interface {
	ReadAllRows(ctx context.Context) ([]Row, error)
	// WriteCells applies a batch atomically.
	WriteCells(ctx context.Context, writes []CellWrite) error
	// Identity names the store and sheet, e.g. for lock keys and logs.
	Identity() string
}

// Sheets is implemented by stores holding several named sheets.
type Sheets interface {
	Store
	ListSheets(ctx context.Context) ([]string, error)
	// ReplaceRows overwrites the whole sheet, creating it if needed.
	ReplaceRows(ctx context.Context, rows []Row) error
	Close() error
}

// Width returns the number of columns of the widest row.
func Width(rows []Row) int {
	w := 0
	for _, r := range rows {
		if len(r) > w {
			w = len(r)
		}
	}
	return w
}

// IsEmpty reports whether a cell value clears the cell.
func IsEmpty(v interface{}) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && s == ""
}
