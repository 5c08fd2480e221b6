package google

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"
	"google.golang.org/api/option"
	tasksapi "google.golang.org/api/tasks/v1"

	"github.com/julianstephens/trainsync/internal/constants"
	"github.com/julianstephens/trainsync/internal/errors"
	"github.com/julianstephens/trainsync/internal/services"
)

const taskStatusCompleted = "completed"

// Tasks talks to one Google Tasks list.
type Tasks struct {
	svc     *tasksapi.Service
	listID  string
	limiter *rate.Limiter
}

var _ services.TaskService = (*Tasks)(nil)

func NewTasks(ctx context.Context, listID string, limiter *rate.Limiter, opts ...option.ClientOption) (*Tasks, error) {
	if listID == "" {
		return nil, fmt.Errorf("google.task_list_id is not set (run 'trainsync tasklists --select')")
	}
	svc, err := tasksapi.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create tasks client: %w", err)
	}
	return &Tasks{svc: svc, listID: listID, limiter: limiter}, nil
}

func (t *Tasks) wait(ctx context.Context, op string) error {
	if t.limiter == nil {
		return nil
	}
	if err := t.limiter.Wait(ctx); err != nil {
		return errors.Wrap(errors.KindRemoteTransient, op, err)
	}
	return nil
}

func (t *Tasks) Insert(ctx context.Context, in services.TaskInput) (string, error) {
	const op = "tasks.insert"
	if err := t.wait(ctx, op); err != nil {
		return "", err
	}
	created, err := t.svc.Tasks.Insert(t.listID, &tasksapi.Task{
		Title: in.Title,
		Notes: in.Notes,
		Due:   formatDue(in.Due),
	}).Context(ctx).Do()
	if err != nil {
		return "", classify(op, err)
	}
	return created.Id, nil
}

func (t *Tasks) Get(ctx context.Context, id string) (services.Task, error) {
	const op = "tasks.get"
	if err := t.wait(ctx, op); err != nil {
		return services.Task{}, err
	}
	task, err := t.svc.Tasks.Get(t.listID, id).Context(ctx).Do()
	if err != nil {
		return services.Task{}, classify(op, err)
	}
	if task.Deleted {
		return services.Task{}, errors.New(errors.KindRemoteNotFound, op, "task %s was deleted", id)
	}
	return services.Task{
		ID:        task.Id,
		Title:     task.Title,
		Notes:     task.Notes,
		Due:       parseDue(task.Due),
		Completed: task.Status == taskStatusCompleted,
	}, nil
}

func (t *Tasks) Update(ctx context.Context, id string, in services.TaskInput) error {
	const op = "tasks.update"
	if err := t.wait(ctx, op); err != nil {
		return err
	}
	_, err := t.svc.Tasks.Patch(t.listID, id, &tasksapi.Task{
		Title: in.Title,
		Notes: in.Notes,
		Due:   formatDue(in.Due),
	}).Context(ctx).Do()
	return classify(op, err)
}

func (t *Tasks) Remove(ctx context.Context, id string) error {
	const op = "tasks.remove"
	if err := t.wait(ctx, op); err != nil {
		return err
	}
	return classify(op, t.svc.Tasks.Delete(t.listID, id).Context(ctx).Do())
}

// ListTaskLists returns every task list of the signed-in account.
func ListTaskLists(ctx context.Context, opts ...option.ClientOption) ([]services.TaskList, error) {
	svc, err := tasksapi.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create tasks client: %w", err)
	}

	var lists []services.TaskList
	err = svc.Tasklists.List().MaxResults(100).Pages(ctx, func(page *tasksapi.TaskLists) error {
		for _, l := range page.Items {
			lists = append(lists, services.TaskList{ID: l.Id, Title: l.Title})
		}
		return nil
	})
	if err != nil {
		return nil, classify("tasklists.list", err)
	}
	return lists, nil
}

// formatDue renders the calendar date of due as Google Tasks expects; the
// API keeps only the date part.
func formatDue(due time.Time) string {
	if due.IsZero() {
		return ""
	}
	return due.Format(constants.DateFormat) + "T00:00:00.000Z"
}

func parseDue(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
