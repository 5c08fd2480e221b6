package system

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/julianstephens/trainsync/internal/cli"
	"github.com/julianstephens/trainsync/internal/engine"
	"github.com/julianstephens/trainsync/internal/notifier"
	"github.com/julianstephens/trainsync/internal/rowstore"
)

// NotifyCmd re-sends the summary of the most recent sweep, which is useful
// to check the webhook configuration.
type NotifyCmd struct {
	DryRun bool `help:"Print the webhook payload instead of sending it."`
}

func (c *NotifyCmd) Run(ctx *cli.Context) error {
	runs, ok := ctx.Store.(rowstore.RunLog)
	if !ok {
		return fmt.Errorf("%s does not keep sweep history", ctx.Store.Identity())
	}
	recent, err := runs.RecentRuns(context.Background(), 1)
	if err != nil {
		return fmt.Errorf("failed to read sweep history: %w", err)
	}
	if len(recent) == 0 {
		ctx.Println("No sweeps recorded yet.")
		return nil
	}

	report, sweepErr := reportFromRun(recent[0], ctx.Store.Identity())
	payload := notifier.Payload(report, sweepErr)

	if c.DryRun {
		data, err := json.MarshalIndent(payload, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal payload: %w", err)
		}
		ctx.Println("[DryRun] " + string(data))
		return nil
	}

	n := notifier.New(ctx.Config.Notify)
	if n == nil {
		return errors.New("notify.webhook_url is not set")
	}
	if err := n.Notify(context.Background(), payload); err != nil {
		return fmt.Errorf("failed to send notification: %w", err)
	}
	ctx.Println("✓ Notification sent")
	return nil
}

func reportFromRun(run rowstore.RunRecord, store string) (engine.Report, error) {
	report := engine.Report{
		RunID:      run.ID,
		Kind:       engine.SweepKind(run.Kind),
		Store:      store,
		StartedAt:  run.StartedAt,
		FinishedAt: run.FinishedAt,
		Processed:  run.Processed,
		Failed:     run.Failed,
		Changed:    run.Changed,
	}
	if run.Error != "" {
		report.Aborted = true
		return report, errors.New(run.Error)
	}
	return report, nil
}
