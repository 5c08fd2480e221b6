package engine

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/julianstephens/trainsync/internal/config"
	"github.com/julianstephens/trainsync/internal/errors"
	"github.com/julianstephens/trainsync/internal/logger"
	"github.com/julianstephens/trainsync/internal/models"
	"github.com/julianstephens/trainsync/internal/rowstore"
)

// SweepKind names the two sweeps.
type SweepKind string

const (
	SweepSync      SweepKind = "sync"
	SweepReconcile SweepKind = "reconcile"
)

// RowResult is the outcome of one dispatched or reconciled row.
type RowResult struct {
	Row        int    `json:"row"` // one-based, as shown in a spreadsheet
	Action     string `json:"action,omitempty"`
	Identifier string `json:"identifier,omitempty"`
	Status     string `json:"status,omitempty"`
	Changed    bool   `json:"changed,omitempty"`
	Error      string `json:"error,omitempty"`
	Err        error  `json:"-"`
}

// Report summarises one sweep.
type Report struct {
	RunID      uuid.UUID   `json:"run_id"`
	Kind       SweepKind   `json:"kind"`
	Store      string      `json:"store"`
	StartedAt  time.Time   `json:"started_at"`
	FinishedAt time.Time   `json:"finished_at"`
	Rows       int         `json:"rows"`
	Processed  int         `json:"processed"`
	Failed     int         `json:"failed"`
	Skipped    int         `json:"skipped"`
	Changed    int         `json:"changed"`
	Results    []RowResult `json:"results,omitempty"`
	Aborted    bool        `json:"aborted,omitempty"`
}

func (r Report) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Recorder receives sweep metrics.
type Recorder interface {
	SweepFinished(kind SweepKind, result string, elapsed time.Duration)
	ActionFinished(action models.Action, result string)
	StatusChanged(kind models.StatusKind)
}

type nopRecorder struct{}

func (nopRecorder) SweepFinished(SweepKind, string, time.Duration) {}
func (nopRecorder) ActionFinished(models.Action, string)           {}
func (nopRecorder) StatusChanged(models.StatusKind)                {}

// Locker guards against a second sweep running in another process.
type Locker interface {
	Acquire() (release func(), err error)
}

// Hook runs after every sweep, with the fatal error if there was one.
type Hook func(ctx context.Context, report Report, err error)

type Option func(*Orchestrator)

func WithLock(l Locker) Option {
	return func(o *Orchestrator) { o.lock = l }
}

func WithRecorder(r Recorder) Option {
	return func(o *Orchestrator) { o.recorder = r }
}

func WithHooks(hooks ...Hook) Option {
	return func(o *Orchestrator) { o.hooks = append(o.hooks, hooks...) }
}

// WithBeforeSync runs fn before each sync sweep. A failure is logged and the
// sweep continues.
func WithBeforeSync(fn func(ctx context.Context) error) Option {
	return func(o *Orchestrator) { o.beforeSync = fn }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// Orchestrator walks the store once per sweep and writes results back in a
// single batch.
type Orchestrator struct {
	store      rowstore.Store
	columns    models.Columns
	labels     models.StatusLabels
	loc        *time.Location
	processor  *Processor
	reconciler *Reconciler

	group      singleflight.Group
	lock       Locker
	recorder   Recorder
	hooks      []Hook
	beforeSync func(ctx context.Context) error
	now        func() time.Time
}

func New(cfg config.Config, store rowstore.Store, processor *Processor, reconciler *Reconciler, opts ...Option) (*Orchestrator, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	o := &Orchestrator{
		store:      store,
		columns:    cfg.Columns,
		labels:     cfg.Status.StatusLabels,
		loc:        loc,
		processor:  processor,
		reconciler: reconciler,
		recorder:   nopRecorder{},
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// Sync dispatches every row's pending action. Concurrent calls share one run.
func (o *Orchestrator) Sync(ctx context.Context) (Report, error) {
	return o.run(ctx, SweepSync, o.sync)
}

// Reconcile refreshes the status of every row linked to a task.
func (o *Orchestrator) Reconcile(ctx context.Context) (Report, error) {
	return o.run(ctx, SweepReconcile, o.reconcile)
}

func (o *Orchestrator) run(ctx context.Context, kind SweepKind, sweep func(context.Context, *Report) error) (Report, error) {
	key := string(kind) + ":" + o.store.Identity()
	v, err, shared := o.group.Do(key, func() (interface{}, error) {
		report := Report{
			RunID:     uuid.New(),
			Kind:      kind,
			Store:     o.store.Identity(),
			StartedAt: o.now(),
		}

		if o.lock != nil {
			release, err := o.lock.Acquire()
			if err != nil {
				report.Aborted = true
				report.FinishedAt = o.now()
				o.finish(ctx, report, err)
				return report, err
			}
			defer release()
		}

		err := sweep(ctx, &report)
		report.FinishedAt = o.now()
		o.finish(ctx, report, err)
		return report, err
	})
	if shared {
		logger.Debug("Joined in-flight sweep", "kind", kind, "store", o.store.Identity())
	}
	return v.(Report), err
}

func (o *Orchestrator) finish(ctx context.Context, report Report, err error) {
	result := "ok"
	switch {
	case err != nil:
		result = "error"
	case report.Failed > 0:
		result = "partial"
	}
	o.recorder.SweepFinished(report.Kind, result, report.Duration())

	if err != nil {
		logger.Error("Sweep aborted", "kind", report.Kind, "store", report.Store, "error", err, "kind_of", errors.KindOf(err))
	} else {
		logger.Info("Sweep finished", "kind", report.Kind, "store", report.Store,
			"processed", report.Processed, "failed", report.Failed, "changed", report.Changed, "elapsed", report.Duration())
	}

	bg := context.WithoutCancel(ctx)
	if runs, ok := o.store.(rowstore.RunLog); ok {
		rec := rowstore.RunRecord{
			ID:         report.RunID,
			Kind:       string(report.Kind),
			StartedAt:  report.StartedAt,
			FinishedAt: report.FinishedAt,
			Processed:  report.Processed,
			Failed:     report.Failed,
			Changed:    report.Changed,
		}
		if err != nil {
			rec.Error = err.Error()
		}
		if rerr := runs.RecordRun(bg, rec); rerr != nil {
			logger.Warn("Failed to record sweep run", "error", rerr)
		}
	}
	for _, h := range o.hooks {
		h(bg, report, err)
	}
}

func (o *Orchestrator) sync(ctx context.Context, report *Report) error {
	if o.beforeSync != nil {
		if err := o.beforeSync(ctx); err != nil {
			logger.Warn("Pre-sync hook failed", "error", err)
		}
	}

	rows, err := o.store.ReadAllRows(ctx)
	if err != nil {
		return errors.Wrap(errors.KindStoreAccess, "engine.sync", err)
	}
	report.Rows = dataRows(rows)

	var writes []rowstore.CellWrite
	var fatal error
	for i := 1; i < len(rows); i++ {
		if err := ctx.Err(); err != nil {
			report.Aborted = true
			fatal = err
			break
		}

		text := models.CellText(cellAt(rows[i], o.columns.Action))
		if text == "" {
			continue
		}
		action, ok := models.ParseAction(text)
		if !ok {
			logger.Warn("Unknown action, leaving row untouched", "row", i+1, "action", text)
			report.Skipped++
			report.Results = append(report.Results, RowResult{Row: i + 1, Action: text, Error: "unknown action"})
			continue
		}

		writes = append(writes, rowstore.CellWrite{Row: i, Col: o.columns.Action, Value: ""})
		result := RowResult{Row: i + 1, Action: string(action)}

		rec, err := models.RecordFromRow(rows[i], o.columns, o.loc)
		rec.Row = i
		var out Outcome
		if err == nil {
			out, err = o.processor.Process(ctx, rec, action)
		}
		if err != nil {
			report.Failed++
			result.Err, result.Error = err, err.Error()
			o.recorder.ActionFinished(action, "error")
			logger.Warn("Action failed", "row", i+1, "action", action, "id", rec.CombinedID.String(), "error", err)
			report.Results = append(report.Results, result)
			if ctx.Err() != nil {
				report.Aborted = true
				fatal = ctx.Err()
				break
			}
			continue
		}

		report.Processed++
		o.recorder.ActionFinished(action, "ok")
		if out.Identifier != nil {
			result.Identifier = out.Identifier.String()
			writes = append(writes, rowstore.CellWrite{Row: i, Col: o.columns.Identifier, Value: result.Identifier})
		}
		if out.Status != nil {
			result.Status = *out.Status
			result.Changed = true
			writes = append(writes, rowstore.CellWrite{Row: i, Col: o.columns.Status, Value: *out.Status})
		}
		logger.Info("Action applied", "row", i+1, "action", action, "id", result.Identifier)
		report.Results = append(report.Results, result)
	}

	return o.flush(ctx, writes, fatal)
}

func (o *Orchestrator) reconcile(ctx context.Context, report *Report) error {
	rows, err := o.store.ReadAllRows(ctx)
	if err != nil {
		return errors.Wrap(errors.KindStoreAccess, "engine.reconcile", err)
	}
	report.Rows = dataRows(rows)
	now := o.now().In(o.loc)

	var writes []rowstore.CellWrite
	var fatal error
	for i := 1; i < len(rows); i++ {
		if err := ctx.Err(); err != nil {
			report.Aborted = true
			fatal = err
			break
		}

		id := models.ParseCombinedID(models.CellText(cellAt(rows[i], o.columns.Identifier)))
		if id.IsZero() || models.CellText(cellAt(rows[i], o.columns.Date)) == "" {
			continue
		}
		result := RowResult{Row: i + 1, Identifier: id.String()}

		rec, err := models.RecordFromRow(rows[i], o.columns, o.loc)
		if err != nil {
			report.Failed++
			result.Err, result.Error = err, err.Error()
			logger.Warn("Skipping row with unreadable date", "row", i+1, "error", err)
			report.Results = append(report.Results, result)
			continue
		}

		decision, err := o.reconciler.Reconcile(ctx, rec.CombinedID, rec.Status, rec.ScheduledDate, now)
		if err != nil && ctx.Err() != nil {
			report.Aborted = true
			fatal = ctx.Err()
			break
		}
		if err != nil {
			report.Failed++
			result.Err, result.Error = err, err.Error()
			logger.Warn("Task lookup failed", "row", i+1, "id", id.String(), "error", err)
		} else {
			report.Processed++
		}

		if decision.Change && decision.Status != rec.Status {
			report.Changed++
			result.Status, result.Changed = decision.Status, true
			writes = append(writes, rowstore.CellWrite{Row: i, Col: o.columns.Status, Value: decision.Status})
			o.recorder.StatusChanged(o.labels.Kind(decision.Status))
			logger.Info("Status updated", "row", i+1, "id", id.String(), "from", rec.Status, "to", decision.Status, "reason", decision.Reason)
		}
		if result.Changed || result.Err != nil {
			report.Results = append(report.Results, result)
		}
	}

	return o.flush(ctx, writes, fatal)
}

// flush applies queued writes even when the sweep was cancelled.
func (o *Orchestrator) flush(ctx context.Context, writes []rowstore.CellWrite, fatal error) error {
	if len(writes) == 0 {
		return fatal
	}
	if err := o.store.WriteCells(context.WithoutCancel(ctx), writes); err != nil {
		return stderrors.Join(fatal, errors.Wrap(errors.KindStoreAccess, "engine.flush", err))
	}
	return fatal
}

func dataRows(rows []rowstore.Row) int {
	if len(rows) <= 1 {
		return 0
	}
	return len(rows) - 1
}

func cellAt(row rowstore.Row, index int) interface{} {
	if index < 0 || index >= len(row) {
		return nil
	}
	return row[index]
}
