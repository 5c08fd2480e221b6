package server

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/julianstephens/trainsync/internal/engine"
	"github.com/julianstephens/trainsync/internal/lock"
	"github.com/julianstephens/trainsync/internal/metrics"
)

type fakeSweeper struct {
	syncs      atomic.Int32
	reconciles atomic.Int32
	err        error
}

func (f *fakeSweeper) Sync(ctx context.Context) (engine.Report, error) {
	f.syncs.Add(1)
	return engine.Report{Kind: engine.SweepSync, Processed: 2}, f.err
}

func (f *fakeSweeper) Reconcile(ctx context.Context) (engine.Report, error) {
	f.reconciles.Add(1)
	return engine.Report{Kind: engine.SweepReconcile, Changed: 1}, f.err
}

func TestRoutes(t *testing.T) {
	sweeper := &fakeSweeper{}
	s := New(sweeper, metrics.New(), Options{})
	srv := httptest.NewServer(s.Router())
	defer srv.Close()

	tests := []struct {
		name       string
		method     string
		path       string
		wantStatus int
	}{
		{name: "health", method: http.MethodGet, path: "/healthz", wantStatus: http.StatusOK},
		{name: "metrics", method: http.MethodGet, path: "/metrics", wantStatus: http.StatusOK},
		{name: "sync", method: http.MethodPost, path: "/v1/sweeps/sync", wantStatus: http.StatusOK},
		{name: "reconcile", method: http.MethodPost, path: "/v1/sweeps/reconcile", wantStatus: http.StatusOK},
		{name: "sync wrong method", method: http.MethodGet, path: "/v1/sweeps/sync", wantStatus: http.StatusMethodNotAllowed},
		{name: "unknown", method: http.MethodGet, path: "/nope", wantStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, _ := http.NewRequest(tt.method, srv.URL+tt.path, nil)
			res, err := http.DefaultClient.Do(req)
			if err != nil {
				t.Fatalf("request failed: %v", err)
			}
			res.Body.Close()
			if res.StatusCode != tt.wantStatus {
				t.Errorf("status = %d, want %d", res.StatusCode, tt.wantStatus)
			}
		})
	}

	if sweeper.syncs.Load() != 1 || sweeper.reconciles.Load() != 1 {
		t.Errorf("sweeps run = %d/%d, want 1/1", sweeper.syncs.Load(), sweeper.reconciles.Load())
	}
}

func TestSweepHandlerReport(t *testing.T) {
	s := New(&fakeSweeper{}, metrics.New(), Options{})
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/sweeps/reconcile", nil))

	var resp sweepResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Report.Kind != engine.SweepReconcile || resp.Report.Changed != 1 || resp.Error != "" {
		t.Errorf("response = %+v", resp)
	}
}

func TestSweepHandlerErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{name: "in progress", err: fmt.Errorf("%w (pid 7)", lock.ErrSweepInProgress), wantStatus: http.StatusConflict},
		{name: "store failure", err: stderrors.New("sheet missing"), wantStatus: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(&fakeSweeper{err: tt.err}, metrics.New(), Options{})
			rec := httptest.NewRecorder()
			s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/sweeps/sync", nil))
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			var resp sweepResponse
			json.NewDecoder(rec.Body).Decode(&resp)
			if resp.Error == "" {
				t.Error("error should be reported in the body")
			}
		})
	}
}

func TestWithJitter(t *testing.T) {
	for i := 0; i < 100; i++ {
		d := withJitter(time.Minute, 30*time.Second)
		if d < 30*time.Second || d >= 90*time.Second {
			t.Fatalf("withJitter() = %v, out of range", d)
		}
	}
	if d := withJitter(time.Minute, 0); d != time.Minute {
		t.Errorf("withJitter() without jitter = %v", d)
	}
	if d := withJitter(10*time.Second, time.Minute); d < 5*time.Second {
		t.Errorf("withJitter() = %v, want at least half the interval", d)
	}
}

func TestRunSweepsImmediatelyAndStops(t *testing.T) {
	sweeper := &fakeSweeper{}
	s := New(sweeper, metrics.New(), Options{
		Addr:              "127.0.0.1:0",
		SyncInterval:      time.Hour,
		ReconcileInterval: 0,
	})

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- s.Run(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for sweeper.syncs.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	cancel()

	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("Run() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run() did not stop after cancellation")
	}
	if sweeper.syncs.Load() != 1 {
		t.Errorf("syncs = %d, want one immediate sweep", sweeper.syncs.Load())
	}
	if sweeper.reconciles.Load() != 0 {
		t.Errorf("reconciles = %d, want disabled loop", sweeper.reconciles.Load())
	}
}
