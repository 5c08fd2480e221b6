package models

import (
	"fmt"

	"github.com/julianstephens/trainsync/internal/constants"
)

// Columns maps record fields to zero-based column indices.
type Columns struct {
	Week          int `mapstructure:"week" yaml:"week"`
	Status        int `mapstructure:"status" yaml:"status"`
	Action        int `mapstructure:"action" yaml:"action"`
	Date          int `mapstructure:"date" yaml:"date"`
	Time          int `mapstructure:"time" yaml:"time"`
	Weekday       int `mapstructure:"weekday" yaml:"weekday"`
	Label         int `mapstructure:"label" yaml:"label"`
	HeartRateZone int `mapstructure:"heart_rate_zone" yaml:"heart_rate_zone"`
	Description   int `mapstructure:"description" yaml:"description"`
	PostNotes     int `mapstructure:"post_notes" yaml:"post_notes"`
	Identifier    int `mapstructure:"identifier" yaml:"identifier"`
}

func DefaultColumns() Columns {
	return Columns{
		Week:          constants.DefaultColumnWeek,
		Status:        constants.DefaultColumnStatus,
		Action:        constants.DefaultColumnAction,
		Date:          constants.DefaultColumnDate,
		Time:          constants.DefaultColumnTime,
		Weekday:       constants.DefaultColumnWeekday,
		Label:         constants.DefaultColumnLabel,
		HeartRateZone: constants.DefaultColumnHeartRateZone,
		Description:   constants.DefaultColumnDescription,
		PostNotes:     constants.DefaultColumnPostNotes,
		Identifier:    constants.DefaultColumnIdentifier,
	}
}

// Named lists the columns in display order.
func (c Columns) Named() []NamedColumn {
	return []NamedColumn{
		{"week", c.Week},
		{"status", c.Status},
		{"action", c.Action},
		{"date", c.Date},
		{"time", c.Time},
		{"weekday", c.Weekday},
		{"label", c.Label},
		{"heart_rate_zone", c.HeartRateZone},
		{"description", c.Description},
		{"post_notes", c.PostNotes},
		{"identifier", c.Identifier},
	}
}

type NamedColumn struct {
	Name  string
	Index int
}

// Validate checks that indices are non-negative and that no two columns
// share an index.
func (c Columns) Validate() error {
	seen := make(map[int]string)
	for _, col := range c.Named() {
		if col.Index < 0 {
			return fmt.Errorf("column %s: index must be >= 0, got %d", col.Name, col.Index)
		}
		if other, ok := seen[col.Index]; ok {
			return fmt.Errorf("columns %s and %s share index %d", other, col.Name, col.Index)
		}
		seen[col.Index] = col.Name
	}
	return nil
}

// Width is the number of columns a row needs to hold every mapped field.
func (c Columns) Width() int {
	width := 0
	for _, col := range c.Named() {
		if col.Index+1 > width {
			width = col.Index + 1
		}
	}
	return width
}

// Letter returns the spreadsheet-style column name for a zero-based index.
func Letter(index int) string {
	name := ""
	for index >= 0 {
		name = string(rune('A'+index%26)) + name
		index = index/26 - 1
	}
	return name
}
