// Package sheets moves the training sheet in and out of the row store as CSV.
package sheets

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/julianstephens/trainsync/internal/cli"
	"github.com/julianstephens/trainsync/internal/constants"
	"github.com/julianstephens/trainsync/internal/rowstore"
)

type ImportCmd struct {
	File string `arg:"" type:"existingfile" help:"CSV export of the training sheet, header row first."`
}

func (c *ImportCmd) Run(ctx *cli.Context) error {
	f, err := os.Open(c.File)
	if err != nil {
		return err
	}
	defer f.Close()

	rows, err := ReadCSV(f)
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", c.File, err)
	}
	if len(rows) == 0 {
		return fmt.Errorf("%s is empty", c.File)
	}
	if err := ctx.Store.ReplaceRows(context.Background(), rows); err != nil {
		return fmt.Errorf("failed to write sheet: %w", err)
	}
	ctx.Printf("✓ Imported %d rows into %s\n", len(rows)-1, ctx.Store.Identity())
	return nil
}

type ExportCmd struct {
	Output string `short:"o" help:"Write to this file instead of stdout."`
}

func (c *ExportCmd) Run(ctx *cli.Context) error {
	rows, err := ctx.Store.ReadAllRows(context.Background())
	if err != nil {
		return err
	}

	if c.Output == "" {
		return WriteCSV(ctx.Writer(), rows)
	}
	f, err := os.Create(c.Output)
	if err != nil {
		return err
	}
	if err := WriteCSV(f, rows); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	ctx.Printf("✓ Exported %d rows to %s\n", max(len(rows)-1, 0), c.Output)
	return nil
}

// ReadCSV parses a sheet export. The header row stays text; other cells
// become dates, times of day or numbers when they parse as such.
func ReadCSV(r io.Reader) ([]rowstore.Row, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	records, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}

	rows := make([]rowstore.Row, 0, len(records))
	for i, rec := range records {
		row := make(rowstore.Row, len(rec))
		for j, field := range rec {
			if i == 0 {
				row[j] = field
				continue
			}
			row[j] = parseCell(field)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// dottedTime matches "18.30" and "06.50", which would lose their trailing
// zero as numbers.
var dottedTime = regexp.MustCompile(`^\d{1,2}\.\d{2}$`)

func parseCell(s string) interface{} {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if t, err := time.Parse(constants.DateFormat, s); err == nil {
		return t
	}
	for _, layout := range []string{constants.TimeFormat, "15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Date(1899, 12, 30, t.Hour(), t.Minute(), t.Second(), 0, time.UTC)
		}
	}
	if dottedTime.MatchString(s) {
		return s
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}

// WriteCSV writes rows in the same layout ReadCSV accepts.
func WriteCSV(w io.Writer, rows []rowstore.Row) error {
	cw := csv.NewWriter(w)
	width := rowstore.Width(rows)
	for _, row := range rows {
		rec := make([]string, width)
		for j, v := range row {
			if rowstore.IsEmpty(v) {
				continue
			}
			_, rec[j] = rowstore.Encode(v)
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
