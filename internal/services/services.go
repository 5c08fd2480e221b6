// Package services declares the remote task and calendar collaborators the
// sync engine drives.
package services

import (
	"context"
	"time"
)

// Task is a remote to-do item.
type Task struct {
	ID        string
	Title     string
	Notes     string
	Due       time.Time
	Completed bool
}

type TaskInput struct {
	Title string
	Notes string
	Due   time.Time
}

// TaskService is implemented by the Google Tasks adapter and the in-memory fake.
// Get fails with a KindRemoteNotFound error when the task does not exist.
type TaskService interface {
	Insert(ctx context.Context, in TaskInput) (string, error)
	Get(ctx context.Context, id string) (Task, error)
	Update(ctx context.Context, id string, in TaskInput) error
	Remove(ctx context.Context, id string) error
}

// Event is a remote calendar event.
type Event struct {
	ID              string
	Title           string
	Description     string
	Location        string
	Start           time.Time
	End             time.Time
	ColorID         string
	ReminderMinutes []int
}

type EventInput struct {
	Title       string
	Description string
	Location    string
	Start       time.Time
	End         time.Time
	ColorID     string
	// ReminderMinutes replaces the calendar's default reminders.
	ReminderMinutes []int
}

// TimeRange is an event's start and end.
type TimeRange struct {
	Start time.Time
	End   time.Time
}

// EventPatch changes only the fields that are set.
type EventPatch struct {
	Title           *string
	Description     *string
	Time            *TimeRange
	ColorID         *string
	ReminderMinutes *[]int
}

// Empty reports whether the patch changes nothing.
func (p EventPatch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Time == nil && p.ColorID == nil && p.ReminderMinutes == nil
}

// CalendarService is implemented by the Google Calendar adapter and the
// in-memory fake. GetByID returns nil, nil for an absent or cancelled event.
type CalendarService interface {
	CreateEvent(ctx context.Context, in EventInput) (string, error)
	GetByID(ctx context.Context, id string) (*Event, error)
	PatchEvent(ctx context.Context, id string, patch EventPatch) error
	DeleteEvent(ctx context.Context, id string) error
}

// TaskList is a Google Tasks list, used when choosing where tasks go.
type TaskList struct {
	ID    string
	Title string
}

func String(s string) *string {
	return &s
}
