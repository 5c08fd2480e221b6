package rowstore

import (
	"context"
	"sync"

	"github.com/julianstephens/trainsync/internal/errors"
)

// Memory is an in-process sheet.
type Memory struct {
	mu       sync.Mutex
	name     string
	rows     []Row
	readErr  error
	writeErr error
	batches  [][]CellWrite
	runs     []RunRecord
}

var (
	_ Sheets = (*Memory)(nil)
	_ RunLog = (*Memory)(nil)
)

func NewMemory(name string, rows []Row) *Memory {
	m := &Memory{name: name}
	m.rows = copyRows(rows)
	return m
}

func (m *Memory) Identity() string {
	return "memory:" + m.name
}

func (m *Memory) ReadAllRows(ctx context.Context) ([]Row, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.readErr != nil {
		return nil, errors.Wrap(errors.KindStoreAccess, "rowstore.read", m.readErr)
	}
	return copyRows(m.rows), nil
}

func (m *Memory) WriteCells(ctx context.Context, writes []CellWrite) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	if m.writeErr != nil {
		return errors.Wrap(errors.KindStoreAccess, "rowstore.write", m.writeErr)
	}
	if err := ValidateWrites("rowstore.write", writes); err != nil {
		return err
	}
	for _, w := range writes {
		for len(m.rows) <= w.Row {
			m.rows = append(m.rows, Row{})
		}
		row := m.rows[w.Row]
		for len(row) <= w.Col {
			row = append(row, nil)
		}
		if IsEmpty(w.Value) {
			row[w.Col] = ""
		} else {
			row[w.Col] = w.Value
		}
		m.rows[w.Row] = row
	}
	m.batches = append(m.batches, append([]CellWrite(nil), writes...))
	return nil
}

func (m *Memory) ListSheets(ctx context.Context) ([]string, error) {
	return []string{m.name}, nil
}

func (m *Memory) ReplaceRows(ctx context.Context, rows []Row) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = copyRows(rows)
	return nil
}

func (m *Memory) Close() error {
	return nil
}

// FailReads makes ReadAllRows fail with err; nil clears it.
func (m *Memory) FailReads(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readErr = err
}

// FailWrites makes WriteCells fail with err; nil clears it.
func (m *Memory) FailWrites(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writeErr = err
}

// Batches returns every batch passed to WriteCells.
func (m *Memory) Batches() [][]CellWrite {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]CellWrite(nil), m.batches...)
}

// Cell returns the current value of one cell.
func (m *Memory) Cell(row, col int) interface{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	if row >= len(m.rows) || col >= len(m.rows[row]) {
		return nil
	}
	return m.rows[row][col]
}

func (m *Memory) RecordRun(ctx context.Context, run RunRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs = append(m.runs, run)
	return nil
}

func (m *Memory) RecentRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []RunRecord
	for i := len(m.runs) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		out = append(out, m.runs[i])
	}
	return out, nil
}

func copyRows(rows []Row) []Row {
	out := make([]Row, len(rows))
	for i, r := range rows {
		out[i] = append(Row(nil), r...)
	}
	return out
}
