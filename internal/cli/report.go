package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/julianstephens/trainsync/internal/engine"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	failStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	boxStyle    = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Padding(0, 1)
)

// RenderReport writes a human readable sweep summary.
func RenderReport(w io.Writer, report engine.Report, verbose bool) {
	var b strings.Builder
	b.WriteString(headerStyle.Render(fmt.Sprintf("%s sweep", report.Kind)))
	b.WriteString(mutedStyle.Render(fmt.Sprintf("  %s  %s", report.Store, report.Duration().Round(1e6))))
	b.WriteString("\n")

	switch report.Kind {
	case engine.SweepReconcile:
		fmt.Fprintf(&b, "rows %d  changed %d  skipped %d  failed %s",
			report.Rows, report.Changed, report.Skipped, failCount(report.Failed))
	default:
		fmt.Fprintf(&b, "rows %d  processed %d  skipped %d  failed %s",
			report.Rows, report.Processed, report.Skipped, failCount(report.Failed))
	}
	if report.Aborted {
		b.WriteString("\n" + failStyle.Render("aborted"))
	}
	fmt.Fprintln(w, boxStyle.Render(b.String()))

	for _, r := range report.Results {
		if r.Error == "" && !verbose {
			continue
		}
		fmt.Fprintln(w, resultLine(r))
	}
}

func failCount(n int) string {
	if n == 0 {
		return okStyle.Render("0")
	}
	return failStyle.Render(fmt.Sprint(n))
}

func resultLine(r engine.RowResult) string {
	label := r.Action
	if label == "" {
		label = r.Status
	}
	line := fmt.Sprintf("row %-4d %-8s", r.Row, label)
	if r.Identifier != "" {
		line += " " + mutedStyle.Render(r.Identifier)
	}
	if r.Error != "" {
		return failStyle.Render("✗ ") + line + " " + r.Error
	}
	return okStyle.Render("✓ ") + line
}
