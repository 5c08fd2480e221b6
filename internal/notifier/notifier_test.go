package notifier

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/julianstephens/trainsync/internal/config"
	"github.com/julianstephens/trainsync/internal/engine"
)

func TestNewWithoutURL(t *testing.T) {
	if n := New(config.NotifyConfig{}); n != nil {
		t.Errorf("New() = %v, want nil without webhook", n)
	}
}

func TestPayload(t *testing.T) {
	tests := []struct {
		name      string
		report    engine.Report
		err       error
		wantText  string
		wantAlert bool
	}{
		{name: "sync", report: engine.Report{Kind: engine.SweepSync, Processed: 2, Failed: 1}, wantText: "2 row(s) processed, 1 failed"},
		{name: "empty sync", report: engine.Report{Kind: engine.SweepSync}, wantText: "No rows"},
		{name: "reconcile changes", report: engine.Report{Kind: engine.SweepReconcile, Changed: 3}, wantText: "3 status(es)"},
		{name: "reconcile up to date", report: engine.Report{Kind: engine.SweepReconcile}, wantText: "already up to date"},
		{name: "alert", report: engine.Report{Kind: engine.SweepSync}, err: stderrors.New("sheet missing"), wantText: "sync failed", wantAlert: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Payload(tt.report, tt.err)
			if !strings.Contains(p.Text, tt.wantText) {
				t.Errorf("Text = %q, want containing %q", p.Text, tt.wantText)
			}
			if (p.Alert != "") != tt.wantAlert {
				t.Errorf("Alert = %q, want alert=%v", p.Alert, tt.wantAlert)
			}
		})
	}
}

func TestHook(t *testing.T) {
	var received []WebhookPayload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.Header.Get("Content-Type") != "application/json" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		var payload WebhookPayload
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		received = append(received, payload)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	n := New(config.NotifyConfig{WebhookURL: server.URL, OnlyFailures: true})
	hook := n.Hook()

	hook(context.Background(), engine.Report{Kind: engine.SweepSync, Processed: 1}, nil)
	if len(received) != 0 {
		t.Fatalf("clean sweep should be suppressed, got %d payloads", len(received))
	}

	hook(context.Background(), engine.Report{Kind: engine.SweepSync, Failed: 1}, nil)
	hook(context.Background(), engine.Report{Kind: engine.SweepReconcile}, stderrors.New("boom"))
	if len(received) != 2 {
		t.Fatalf("expected 2 payloads, got %d", len(received))
	}
	if received[1].Alert != "boom" || received[1].Kind != "reconcile" {
		t.Errorf("alert payload = %+v", received[1])
	}
	if received[0].Report == nil || received[0].Report.Failed != 1 {
		t.Errorf("summary payload = %+v", received[0])
	}
}

func TestNotifyServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("down"))
	}))
	defer server.Close()

	n := New(config.NotifyConfig{WebhookURL: server.URL})
	err := n.Notify(context.Background(), WebhookPayload{Text: "hello"})
	if err == nil || !strings.Contains(err.Error(), "500") {
		t.Errorf("Notify() error = %v, want status 500", err)
	}
}
