// Package memory provides in-process task and calendar services for tests
// and dry runs.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/julianstephens/trainsync/internal/errors"
	"github.com/julianstephens/trainsync/internal/services"
)

// Operation names accepted by FailOn.
const (
	OpInsert = "insert"
	OpGet    = "get"
	OpUpdate = "update"
	OpRemove = "remove"
	OpCreate = "create"
	OpPatch  = "patch"
	OpDelete = "delete"
)

// Sequence returns an id generator yielding prefix1, prefix2, ...
func Sequence(prefix string) func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("%s%d", prefix, n)
	}
}

type Tasks struct {
	mu     sync.Mutex
	tasks  map[string]services.Task
	fail   map[string]error
	calls  []string
	nextID func() string
}

var _ services.TaskService = (*Tasks)(nil)

func NewTasks() *Tasks {
	return &Tasks{
		tasks:  make(map[string]services.Task),
		fail:   make(map[string]error),
		nextID: uuid.NewString,
	}
}

// WithIDs replaces the id generator.
func (t *Tasks) WithIDs(next func() string) *Tasks {
	t.nextID = next
	return t
}

// FailOn makes every call of op return err until cleared with a nil err.
func (t *Tasks) FailOn(op string, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err == nil {
		delete(t.fail, op)
		return
	}
	t.fail[op] = err
}

func (t *Tasks) Insert(ctx context.Context, in services.TaskInput) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.record(ctx, OpInsert, ""); err != nil {
		return "", err
	}
	id := t.nextID()
	t.tasks[id] = services.Task{ID: id, Title: in.Title, Notes: in.Notes, Due: in.Due}
	return id, nil
}

func (t *Tasks) Get(ctx context.Context, id string) (services.Task, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.record(ctx, OpGet, id); err != nil {
		return services.Task{}, err
	}
	task, ok := t.tasks[id]
	if !ok {
		return services.Task{}, notFound("tasks.get", id)
	}
	return task, nil
}

func (t *Tasks) Update(ctx context.Context, id string, in services.TaskInput) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.record(ctx, OpUpdate, id); err != nil {
		return err
	}
	task, ok := t.tasks[id]
	if !ok {
		return notFound("tasks.update", id)
	}
	task.Title, task.Notes, task.Due = in.Title, in.Notes, in.Due
	t.tasks[id] = task
	return nil
}

func (t *Tasks) Remove(ctx context.Context, id string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.record(ctx, OpRemove, id); err != nil {
		return err
	}
	if _, ok := t.tasks[id]; !ok {
		return notFound("tasks.remove", id)
	}
	delete(t.tasks, id)
	return nil
}

// Put stores a task directly, bypassing call recording.
func (t *Tasks) Put(task services.Task) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.tasks[task.ID] = task
}

// Complete marks a task done as if the user ticked it remotely.
func (t *Tasks) Complete(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if task, ok := t.tasks[id]; ok {
		task.Completed = true
		t.tasks[id] = task
	}
}

// Lookup returns a stored task without recording a call.
func (t *Tasks) Lookup(id string) (services.Task, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	task, ok := t.tasks[id]
	return task, ok
}

func (t *Tasks) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.tasks)
}

// Calls lists the recorded calls as "op" or "op:id".
func (t *Tasks) Calls() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.calls...)
}

func (t *Tasks) record(ctx context.Context, op, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t.calls = append(t.calls, callName(op, id))
	return t.fail[op]
}

func callName(op, id string) string {
	if id == "" {
		return op
	}
	return op + ":" + id
}

func notFound(op, id string) error {
	return errors.New(errors.KindRemoteNotFound, op, "%s does not exist", id)
}
