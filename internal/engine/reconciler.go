package engine

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/julianstephens/trainsync/internal/config"
	"github.com/julianstephens/trainsync/internal/errors"
	"github.com/julianstephens/trainsync/internal/models"
	"github.com/julianstephens/trainsync/internal/services"
	"github.com/julianstephens/trainsync/internal/utils"
)

// Decision is the reconciler's verdict for one row. Status is only
// meaningful when Change is true.
type Decision struct {
	Change bool
	Status string
	Reason string
}

func keep(reason string) Decision {
	return Decision{Reason: reason}
}

type Reconciler struct {
	tasks     services.TaskService
	labels    models.StatusLabels
	tolerance int
}

func NewReconciler(cfg config.Config, tasks services.TaskService) *Reconciler {
	return &Reconciler{
		tasks:     tasks,
		labels:    cfg.Status.StatusLabels,
		tolerance: cfg.Status.ToleranceDays,
	}
}

// Deadline is the last instant a session scheduled on date counts as pending.
func (r *Reconciler) Deadline(date time.Time) time.Time {
	return utils.EndOfDay(date.AddDate(0, 0, r.tolerance))
}

// Reconcile decides the status a row should carry given its remote task.
// A non-nil error accompanies a NotFound decision when the task could not be
// fetched, or reports context cancellation.
func (r *Reconciler) Reconcile(ctx context.Context, id models.CombinedID, current string, scheduledDate time.Time, now time.Time) (Decision, error) {
	if id.TaskID == "" {
		return keep("no task"), nil
	}
	kind := r.labels.Kind(current)

	task, err := r.tasks.Get(ctx, id.TaskID)
	switch {
	case err == nil:
	case errors.IsNotFound(err):
		if kind.Clearable() {
			return Decision{Change: true, Status: "", Reason: "task deleted"}, nil
		}
		return keep("task deleted"), nil
	case stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded):
		return keep("cancelled"), err
	default:
		if kind == models.StatusNotFound {
			return keep("fetch failed"), err
		}
		return Decision{Change: true, Status: r.labels.NotFound, Reason: "fetch failed"}, err
	}

	if task.Completed {
		if kind != models.StatusCompleted {
			return Decision{Change: true, Status: r.labels.Completed, Reason: "completed remotely"}, nil
		}
		return keep("completed"), nil
	}

	if now.After(r.Deadline(scheduledDate)) {
		if !kind.Protected() {
			return Decision{Change: true, Status: r.labels.Expired, Reason: "past deadline"}, nil
		}
		return keep("past deadline"), nil
	}

	switch kind {
	case models.StatusPending, models.StatusCompleted, models.StatusExpired:
		return keep("within deadline"), nil
	default:
		return Decision{Change: true, Status: r.labels.Pending, Reason: "within deadline"}, nil
	}
}
