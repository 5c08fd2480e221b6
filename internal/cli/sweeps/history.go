package sweeps

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/julianstephens/trainsync/internal/cli"
	"github.com/julianstephens/trainsync/internal/rowstore"
)

type HistoryCmd struct {
	Limit int  `short:"n" help:"Number of runs to show (0 for all)." default:"10"`
	JSON  bool `help:"Print the runs as JSON."`
}

var (
	historyHeader = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	historyCell   = lipgloss.NewStyle().Padding(0, 1)
	historyError  = lipgloss.NewStyle().Padding(0, 1).Foreground(lipgloss.Color("196"))
)

type runJSON struct {
	ID         string    `json:"id"`
	Kind       string    `json:"kind"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Processed  int       `json:"processed"`
	Failed     int       `json:"failed"`
	Changed    int       `json:"changed"`
	Error      string    `json:"error,omitempty"`
}

func (c *HistoryCmd) Run(ctx *cli.Context) error {
	runs, ok := ctx.Store.(rowstore.RunLog)
	if !ok {
		return fmt.Errorf("%s does not keep sweep history", ctx.Store.Identity())
	}
	recent, err := runs.RecentRuns(context.Background(), c.Limit)
	if err != nil {
		return fmt.Errorf("failed to read sweep history: %w", err)
	}

	if c.JSON {
		out := make([]runJSON, 0, len(recent))
		for _, r := range recent {
			out = append(out, runJSON{
				ID: r.ID.String(), Kind: r.Kind, StartedAt: r.StartedAt, FinishedAt: r.FinishedAt,
				Processed: r.Processed, Failed: r.Failed, Changed: r.Changed, Error: r.Error,
			})
		}
		data, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal history: %w", err)
		}
		ctx.Println(string(data))
		return nil
	}

	if len(recent) == 0 {
		ctx.Println("No sweeps recorded yet.")
		return nil
	}

	loc, err := ctx.Config.Location()
	if err != nil {
		loc = time.Local
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("STARTED", "KIND", "TOOK", "PROCESSED", "FAILED", "CHANGED", "ERROR").
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return historyHeader
			case col == 6:
				return historyError
			default:
				return historyCell
			}
		})
	for _, r := range recent {
		t.Row(
			r.StartedAt.In(loc).Format("2006-01-02 15:04:05"),
			r.Kind,
			r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond).String(),
			strconv.Itoa(r.Processed),
			strconv.Itoa(r.Failed),
			strconv.Itoa(r.Changed),
			r.Error,
		)
	}
	ctx.Println(t.Render())
	return nil
}
