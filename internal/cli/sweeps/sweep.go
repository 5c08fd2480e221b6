// Package sweeps holds the commands that run and inspect sync sweeps.
package sweeps

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/julianstephens/trainsync/internal/cli"
	"github.com/julianstephens/trainsync/internal/engine"
)

type SyncCmd struct {
	Verbose bool `short:"v" help:"List every dispatched row, not only failures."`
	JSON    bool `help:"Print the report as JSON."`
}

func (c *SyncCmd) Run(ctx *cli.Context) error {
	return runSweep(ctx, engine.SweepSync, c.Verbose, c.JSON)
}

type ReconcileCmd struct {
	Verbose bool `short:"v" help:"List every changed row, not only failures."`
	JSON    bool `help:"Print the report as JSON."`
}

func (c *ReconcileCmd) Run(ctx *cli.Context) error {
	return runSweep(ctx, engine.SweepReconcile, c.Verbose, c.JSON)
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func runSweep(ctx *cli.Context, kind engine.SweepKind, verbose, asJSON bool) error {
	sigCtx, stop := signalContext()
	defer stop()

	orch, err := ctx.Orchestrator(sigCtx)
	if err != nil {
		return err
	}

	var report engine.Report
	switch kind {
	case engine.SweepReconcile:
		report, err = orch.Reconcile(sigCtx)
	default:
		report, err = orch.Sync(sigCtx)
	}

	if asJSON {
		data, jerr := json.MarshalIndent(report, "", "  ")
		if jerr != nil {
			return fmt.Errorf("failed to marshal report: %w", jerr)
		}
		ctx.Println(string(data))
	} else {
		cli.RenderReport(ctx.Writer(), report, verbose)
	}

	if err != nil {
		return err
	}
	if report.Failed > 0 {
		return fmt.Errorf("%s finished with %d failed row(s)", kind, report.Failed)
	}
	return nil
}
