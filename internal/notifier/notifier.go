// Package notifier posts sweep summaries and alerts to a webhook.
package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/julianstephens/trainsync/internal/config"
	"github.com/julianstephens/trainsync/internal/constants"
	"github.com/julianstephens/trainsync/internal/engine"
	"github.com/julianstephens/trainsync/internal/errors"
	"github.com/julianstephens/trainsync/internal/logger"
)

type Notifier struct {
	url          string
	onlyFailures bool
	client       *http.Client
}

// WebhookPayload is the JSON body posted after a sweep. Alert is set when
// the sweep was aborted by a fatal error.
type WebhookPayload struct {
	Text   string         `json:"text"`
	Alert  string         `json:"alert,omitempty"`
	Kind   string         `json:"kind,omitempty"`
	Report *engine.Report `json:"report,omitempty"`
}

// New returns nil when no webhook is configured.
func New(cfg config.NotifyConfig) *Notifier {
	if cfg.WebhookURL == "" {
		return nil
	}
	return &Notifier{
		url:          cfg.WebhookURL,
		onlyFailures: cfg.OnlyFailures,
		client:       &http.Client{Timeout: constants.NotifyTimeout},
	}
}

// Hook adapts the notifier to the orchestrator. Delivery failures are logged.
func (n *Notifier) Hook() engine.Hook {
	return func(ctx context.Context, report engine.Report, err error) {
		if n.onlyFailures && err == nil && report.Failed == 0 {
			return
		}
		if nerr := n.Notify(ctx, Payload(report, err)); nerr != nil {
			logger.Warn("Failed to deliver webhook", "error", nerr)
		}
	}
}

// Payload builds the message for one sweep.
func Payload(report engine.Report, err error) WebhookPayload {
	p := WebhookPayload{Kind: string(report.Kind), Report: &report}
	if err != nil {
		p.Alert = err.Error()
		p.Text = fmt.Sprintf("❌ %s %s failed: %s", constants.AppName, report.Kind, errors.Format(err))
		return p
	}
	switch report.Kind {
	case engine.SweepReconcile:
		if report.Changed == 0 {
			p.Text = "ℹ️ All statuses are already up to date."
		} else {
			p.Text = fmt.Sprintf("✅ Status updated! %d status(es) changed.", report.Changed)
		}
	default:
		if report.Processed == 0 && report.Failed == 0 {
			p.Text = "ℹ️ No rows had a pending action."
		} else {
			p.Text = fmt.Sprintf("✅ Sync finished! %d row(s) processed, %d failed.", report.Processed, report.Failed)
		}
	}
	return p
}

func (n *Notifier) Notify(ctx context.Context, payload WebhookPayload) error {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, constants.NotifyTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewBuffer(jsonData))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", constants.AppName+"/"+constants.Version)

	start := time.Now()
	res, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	logger.Debug("Webhook delivered", "status", res.StatusCode, "elapsed", time.Since(start))

	if res.StatusCode >= 200 && res.StatusCode < 300 {
		return nil
	}

	body, _ := io.ReadAll(io.LimitReader(res.Body, 1024))
	return fmt.Errorf("notification failed with status %d: %s", res.StatusCode, string(body))
}
