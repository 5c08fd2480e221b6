package google

import (
	"context"
	"time"

	"golang.org/x/time/rate"
	calendarapi "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/julianstephens/trainsync/internal/constants"
	"github.com/julianstephens/trainsync/internal/errors"
	"github.com/julianstephens/trainsync/internal/services"
)

const eventStatusCancelled = "cancelled"

// Calendar talks to one Google calendar.
type Calendar struct {
	svc        *calendarapi.Service
	calendarID string
	limiter    *rate.Limiter
}

var _ services.CalendarService = (*Calendar)(nil)

func NewCalendar(ctx context.Context, calendarID string, limiter *rate.Limiter, opts ...option.ClientOption) (*Calendar, error) {
	if calendarID == "" {
		calendarID = constants.DefaultCalendarID
	}
	svc, err := calendarapi.NewService(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return &Calendar{svc: svc, calendarID: calendarID, limiter: limiter}, nil
}

func (c *Calendar) wait(ctx context.Context, op string) error {
	if c.limiter == nil {
		return nil
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return errors.Wrap(errors.KindRemoteTransient, op, err)
	}
	return nil
}

func (c *Calendar) CreateEvent(ctx context.Context, in services.EventInput) (string, error) {
	const op = "calendar.create"
	if err := c.wait(ctx, op); err != nil {
		return "", err
	}
	ev := &calendarapi.Event{
		Summary:     in.Title,
		Description: in.Description,
		Location:    in.Location,
		Start:       eventTime(in.Start),
		End:         eventTime(in.End),
		ColorId:     in.ColorID,
		Reminders:   reminders(in.ReminderMinutes),
	}
	created, err := c.svc.Events.Insert(c.calendarID, ev).Context(ctx).Do()
	if err != nil {
		return "", classify(op, err)
	}
	return created.Id, nil
}

func (c *Calendar) GetByID(ctx context.Context, id string) (*services.Event, error) {
	const op = "calendar.get"
	if err := c.wait(ctx, op); err != nil {
		return nil, err
	}
	ev, err := c.svc.Events.Get(c.calendarID, id).Context(ctx).Do()
	if err != nil {
		err = classify(op, err)
		if errors.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	if ev.Status == eventStatusCancelled {
		return nil, nil
	}

	out := &services.Event{
		ID:          ev.Id,
		Title:       ev.Summary,
		Description: ev.Description,
		Location:    ev.Location,
		ColorID:     ev.ColorId,
		Start:       parseEventTime(ev.Start),
		End:         parseEventTime(ev.End),
	}
	if ev.Reminders != nil {
		for _, r := range ev.Reminders.Overrides {
			out.ReminderMinutes = append(out.ReminderMinutes, int(r.Minutes))
		}
	}
	return out, nil
}

func (c *Calendar) PatchEvent(ctx context.Context, id string, patch services.EventPatch) error {
	const op = "calendar.patch"
	if patch.Empty() {
		return nil
	}
	if err := c.wait(ctx, op); err != nil {
		return err
	}

	ev := &calendarapi.Event{}
	if patch.Title != nil {
		ev.Summary = *patch.Title
		ev.ForceSendFields = append(ev.ForceSendFields, "Summary")
	}
	if patch.Description != nil {
		ev.Description = *patch.Description
		ev.ForceSendFields = append(ev.ForceSendFields, "Description")
	}
	if patch.Time != nil {
		ev.Start = eventTime(patch.Time.Start)
		ev.End = eventTime(patch.Time.End)
	}
	if patch.ColorID != nil {
		ev.ColorId = *patch.ColorID
		ev.ForceSendFields = append(ev.ForceSendFields, "ColorId")
	}
	if patch.ReminderMinutes != nil {
		ev.Reminders = reminders(*patch.ReminderMinutes)
	}

	_, err := c.svc.Events.Patch(c.calendarID, id, ev).Context(ctx).Do()
	return classify(op, err)
}

func (c *Calendar) DeleteEvent(ctx context.Context, id string) error {
	const op = "calendar.delete"
	if err := c.wait(ctx, op); err != nil {
		return err
	}
	return classify(op, c.svc.Events.Delete(c.calendarID, id).Context(ctx).Do())
}

func eventTime(t time.Time) *calendarapi.EventDateTime {
	edt := &calendarapi.EventDateTime{DateTime: t.Format(time.RFC3339)}
	// IANA names only; "Local" is not accepted by the API
	if name := t.Location().String(); name != "Local" && name != "" {
		edt.TimeZone = name
	}
	return edt
}

func parseEventTime(edt *calendarapi.EventDateTime) time.Time {
	if edt == nil {
		return time.Time{}
	}
	if edt.DateTime != "" {
		if t, err := time.Parse(time.RFC3339, edt.DateTime); err == nil {
			return t
		}
	}
	if edt.Date != "" {
		if t, err := time.Parse(constants.DateFormat, edt.Date); err == nil {
			return t
		}
	}
	return time.Time{}
}

// reminders replaces the calendar defaults with popup reminders.
func reminders(minutes []int) *calendarapi.EventReminders {
	r := &calendarapi.EventReminders{
		UseDefault:      false,
		ForceSendFields: []string{"UseDefault", "Overrides"},
		Overrides:       make([]*calendarapi.EventReminder, 0, len(minutes)),
	}
	for _, m := range minutes {
		r.Overrides = append(r.Overrides, &calendarapi.EventReminder{
			Method:          constants.PopupReminderMethod,
			Minutes:         int64(m),
			ForceSendFields: []string{"Minutes"},
		})
	}
	return r
}
