package system

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/julianstephens/trainsync/internal/classify"
	"github.com/julianstephens/trainsync/internal/cli"
	"github.com/julianstephens/trainsync/internal/config"
	"github.com/julianstephens/trainsync/internal/logger"
	"github.com/julianstephens/trainsync/internal/models"
	"github.com/julianstephens/trainsync/internal/rowstore"
)

type DebugCmd struct {
	Store  *DebugStoreCmd  `cmd:"" help:"Show the store identity and file locations."`
	Layout *DebugLayoutCmd `cmd:"" help:"Dump the header and first rows with their column mapping as JSON."`
	Row    *DebugRowCmd    `cmd:"" help:"Dump how one row is interpreted as JSON."`
	Config *DebugConfigCmd `cmd:"" help:"Dump the effective configuration as JSON."`
}

func printJSON(ctx *cli.Context, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	ctx.Println(string(data))
	return nil
}

type DebugStoreCmd struct{}

func (cmd *DebugStoreCmd) Run(ctx *cli.Context) error {
	return printJSON(ctx, map[string]string{
		"store":     ctx.Store.Identity(),
		"config":    config.ExpandPath(ctx.ConfigPath),
		"state_dir": ctx.StateDir,
		"log":       logger.Path(),
	})
}

type DebugLayoutCmd struct {
	Rows int `help:"Number of data rows to include." default:"3"`
}

type layoutColumn struct {
	Field   string        `json:"field"`
	Column  string        `json:"column"`
	Header  string        `json:"header"`
	Samples []interface{} `json:"samples"`
}

type layoutDump struct {
	Store    string         `json:"store"`
	DataRows int            `json:"data_rows"`
	Width    int            `json:"width"`
	Columns  []layoutColumn `json:"columns"`
}

func (cmd *DebugLayoutCmd) Run(ctx *cli.Context) error {
	rows, err := ctx.Store.ReadAllRows(context.Background())
	if err != nil {
		return fmt.Errorf("failed to read rows: %w", err)
	}

	dump := layoutDump{Store: ctx.Store.Identity(), Width: rowstore.Width(rows)}
	if len(rows) > 0 {
		dump.DataRows = len(rows) - 1
	}
	for _, col := range ctx.Config.Columns.Named() {
		c := layoutColumn{Field: col.Name, Column: models.Letter(col.Index), Samples: []interface{}{}}
		if len(rows) > 0 {
			c.Header = models.CellText(cellAt(rows[0], col.Index))
		}
		for i := 1; i < len(rows) && i <= cmd.Rows; i++ {
			c.Samples = append(c.Samples, cellAt(rows[i], col.Index))
		}
		dump.Columns = append(dump.Columns, c)
	}
	return printJSON(ctx, dump)
}

type DebugRowCmd struct {
	Row int `arg:"" help:"Row number as shown in a spreadsheet (the header is row 1)."`
}

type rowDump struct {
	Row        int    `json:"row"`
	Date       string `json:"date,omitempty"`
	Time       string `json:"time,omitempty"`
	Schedule   string `json:"schedule,omitempty"`
	Label      string `json:"label"`
	Category   string `json:"category"`
	Color      string `json:"color"`
	Status     string `json:"status"`
	StatusKind string `json:"status_kind"`
	Action     string `json:"action,omitempty"`
	TaskID     string `json:"task_id,omitempty"`
	EventID    string `json:"event_id,omitempty"`
	Error      string `json:"error,omitempty"`
}

func (cmd *DebugRowCmd) Run(ctx *cli.Context) error {
	rows, err := ctx.Store.ReadAllRows(context.Background())
	if err != nil {
		return fmt.Errorf("failed to read rows: %w", err)
	}
	idx := cmd.Row - 1
	if idx < 1 || idx >= len(rows) {
		return fmt.Errorf("row %d is out of range (data rows are 2-%d)", cmd.Row, len(rows))
	}

	loc, err := ctx.Config.Location()
	if err != nil {
		return err
	}
	dump := rowDump{Row: cmd.Row}
	rec, err := models.RecordFromRow(rows[idx], ctx.Config.Columns, loc)
	rec.Row = idx
	if err != nil {
		dump.Error = err.Error()
	} else if sched, serr := rec.ScheduleText(ctx.Config.Duration()); serr != nil {
		dump.Error = serr.Error()
	} else {
		dump.Schedule = sched
	}
	if rec.HasDate {
		dump.Date = rec.ScheduledDate.Format("2006-01-02")
	}
	dump.Time = models.CellText(rec.TimeOfDayRaw)
	dump.Label = rec.Label
	dump.Category = string(classify.Classify(rec.Label))
	dump.Color = classify.ColorName(ctx.Config.Colors.ColorFor(rec.Label))
	dump.Status = rec.Status
	dump.StatusKind = ctx.Config.Status.Kind(rec.Status).String()
	dump.Action = rec.Action
	dump.TaskID = rec.CombinedID.TaskID
	dump.EventID = rec.CombinedID.EventID
	return printJSON(ctx, dump)
}

type DebugConfigCmd struct{}

func (cmd *DebugConfigCmd) Run(ctx *cli.Context) error {
	return printJSON(ctx, ctx.Config)
}

func cellAt(row rowstore.Row, index int) interface{} {
	if index < 0 || index >= len(row) {
		return nil
	}
	return row[index]
}
