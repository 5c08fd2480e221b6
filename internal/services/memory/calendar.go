package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/julianstephens/trainsync/internal/services"
)

type Calendar struct {
	mu     sync.Mutex
	events map[string]services.Event
	fail   map[string]error
	calls  []string
	nextID func() string
}

var _ services.CalendarService = (*Calendar)(nil)

func NewCalendar() *Calendar {
	return &Calendar{
		events: make(map[string]services.Event),
		fail:   make(map[string]error),
		nextID: uuid.NewString,
	}
}

// WithIDs replaces the id generator.
func (c *Calendar) WithIDs(next func() string) *Calendar {
	c.nextID = next
	return c
}

// FailOn makes every call of op return err until cleared with a nil err.
func (c *Calendar) FailOn(op string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err == nil {
		delete(c.fail, op)
		return
	}
	c.fail[op] = err
}

func (c *Calendar) CreateEvent(ctx context.Context, in services.EventInput) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.record(ctx, OpCreate, ""); err != nil {
		return "", err
	}
	id := c.nextID()
	c.events[id] = services.Event{
		ID:              id,
		Title:           in.Title,
		Description:     in.Description,
		Location:        in.Location,
		Start:           in.Start,
		End:             in.End,
		ColorID:         in.ColorID,
		ReminderMinutes: append([]int(nil), in.ReminderMinutes...),
	}
	return id, nil
}

func (c *Calendar) GetByID(ctx context.Context, id string) (*services.Event, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.record(ctx, OpGet, id); err != nil {
		return nil, err
	}
	ev, ok := c.events[id]
	if !ok {
		return nil, nil
	}
	return &ev, nil
}

func (c *Calendar) PatchEvent(ctx context.Context, id string, patch services.EventPatch) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.record(ctx, OpPatch, id); err != nil {
		return err
	}
	ev, ok := c.events[id]
	if !ok {
		return notFound("calendar.patch", id)
	}
	if patch.Title != nil {
		ev.Title = *patch.Title
	}
	if patch.Description != nil {
		ev.Description = *patch.Description
	}
	if patch.Time != nil {
		ev.Start, ev.End = patch.Time.Start, patch.Time.End
	}
	if patch.ColorID != nil {
		ev.ColorID = *patch.ColorID
	}
	if patch.ReminderMinutes != nil {
		ev.ReminderMinutes = append([]int(nil), (*patch.ReminderMinutes)...)
	}
	c.events[id] = ev
	return nil
}

func (c *Calendar) DeleteEvent(ctx context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.record(ctx, OpDelete, id); err != nil {
		return err
	}
	if _, ok := c.events[id]; !ok {
		return notFound("calendar.delete", id)
	}
	delete(c.events, id)
	return nil
}

// Put stores an event directly, bypassing call recording.
func (c *Calendar) Put(ev services.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events[ev.ID] = ev
}

// Lookup returns a stored event without recording a call.
func (c *Calendar) Lookup(id string) (services.Event, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ev, ok := c.events[id]
	return ev, ok
}

func (c *Calendar) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.events)
}

// Calls lists the recorded calls as "op" or "op:id".
func (c *Calendar) Calls() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.calls...)
}

func (c *Calendar) record(ctx context.Context, op, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.calls = append(c.calls, callName(op, id))
	return c.fail[op]
}
