// Package engine pushes training rows to the task and calendar services and
// pulls completion state back into the row status.
package engine

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/julianstephens/trainsync/internal/classify"
	"github.com/julianstephens/trainsync/internal/config"
	"github.com/julianstephens/trainsync/internal/errors"
	"github.com/julianstephens/trainsync/internal/logger"
	"github.com/julianstephens/trainsync/internal/models"
	"github.com/julianstephens/trainsync/internal/render"
	"github.com/julianstephens/trainsync/internal/schedule"
	"github.com/julianstephens/trainsync/internal/services"
)

// Outcome lists the cells an action wants written back. Nil fields are left
// alone; an empty Status clears the cell.
type Outcome struct {
	Action     models.Action
	Identifier *models.CombinedID
	Status     *string
}

// Processor performs Add, Update and Remove against both services.
type Processor struct {
	tasks     services.TaskService
	calendar  services.CalendarService
	renderer  *render.Renderer
	labels    models.StatusLabels
	palette   classify.Palette
	duration  time.Duration
	location  string
	reminders []int
}

func NewProcessor(cfg config.Config, tasks services.TaskService, cal services.CalendarService, renderer *render.Renderer) *Processor {
	return &Processor{
		tasks:     tasks,
		calendar:  cal,
		renderer:  renderer,
		labels:    cfg.Status.StatusLabels,
		palette:   cfg.Colors,
		duration:  cfg.Duration(),
		location:  cfg.Schedule.Location,
		reminders: append([]int(nil), cfg.Schedule.ReminderMinutes...),
	}
}

// Process runs one action for rec. A failed action returns no writes.
func (p *Processor) Process(ctx context.Context, rec models.Record, action models.Action) (Outcome, error) {
	switch action {
	case models.ActionAdd:
		return p.add(ctx, rec)
	case models.ActionUpdate:
		return p.update(ctx, rec)
	case models.ActionRemove:
		return p.remove(ctx, rec)
	default:
		return Outcome{Action: action}, errors.New(errors.KindInvalidAction, "engine.process", "unknown action %q", string(action))
	}
}

func (p *Processor) fields(rec models.Record, sched schedule.Schedule) render.Fields {
	return render.Fields{
		Label:         rec.Label,
		Date:          rec.ScheduledDate,
		TimeText:      sched.Text(),
		HeartRateZone: rec.HeartRateZone,
		Description:   rec.Description,
	}
}

func (p *Processor) taskInput(rec models.Record, f render.Fields) services.TaskInput {
	return services.TaskInput{
		Title: p.renderer.TaskTitle(f),
		Notes: p.renderer.TaskNotes(f),
		Due:   rec.ScheduledDate,
	}
}

func (p *Processor) add(ctx context.Context, rec models.Record) (Outcome, error) {
	out := Outcome{Action: models.ActionAdd}
	sched, err := rec.Schedule(p.duration)
	if err != nil {
		return out, err
	}
	f := p.fields(rec, sched)

	taskID, err := p.tasks.Insert(ctx, p.taskInput(rec, f))
	if err != nil {
		return out, err
	}

	eventID, err := p.calendar.CreateEvent(ctx, services.EventInput{
		Title:           p.renderer.EventTitle(f),
		Description:     p.renderer.EventDescription(f),
		Location:        p.location,
		Start:           sched.Start,
		End:             sched.End,
		ColorID:         p.palette.ColorFor(rec.Label),
		ReminderMinutes: p.reminders,
	})
	if err != nil {
		logger.Warn("Task created but event failed, leaving task in place", "row", rec.Row+1, "task_id", taskID, "error", err)
		return out, err
	}

	id := models.CombinedID{TaskID: taskID, EventID: eventID}
	out.Identifier = &id
	return out, nil
}

func (p *Processor) update(ctx context.Context, rec models.Record) (Outcome, error) {
	out := Outcome{Action: models.ActionUpdate}
	if !rec.HasIdentifier() {
		return out, errors.New(errors.KindMissingIdentifier, "engine.update", "row %d has no identifier", rec.Row+1)
	}
	sched, err := rec.Schedule(p.duration)
	if err != nil {
		return out, err
	}
	f := p.fields(rec, sched)

	var errs []error
	if id := rec.CombinedID.TaskID; id != "" {
		if err := p.tasks.Update(ctx, id, p.taskInput(rec, f)); err != nil {
			if errors.IsNotFound(err) {
				logger.Debug("Task not found, skipping task update", "row", rec.Row+1, "task_id", id)
			} else {
				errs = append(errs, err)
			}
		}
	}

	if id := rec.CombinedID.EventID; id != "" {
		if err := p.patchEvent(ctx, rec, id, f, sched); err != nil {
			errs = append(errs, err)
		}
	}

	return out, stderrors.Join(errs...)
}

func (p *Processor) patchEvent(ctx context.Context, rec models.Record, id string, f render.Fields, sched schedule.Schedule) error {
	ev, err := p.calendar.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if ev == nil {
		logger.Debug("Event not found, skipping event update", "row", rec.Row+1, "event_id", id)
		return nil
	}
	err = p.calendar.PatchEvent(ctx, id, services.EventPatch{
		Title:       services.String(p.renderer.EventTitle(f)),
		Description: services.String(p.renderer.EventDescription(f)),
		Time:        &services.TimeRange{Start: sched.Start, End: sched.End},
		ColorID:     services.String(p.palette.ColorFor(rec.Label)),
	})
	if errors.IsNotFound(err) {
		return nil
	}
	return err
}

func (p *Processor) remove(ctx context.Context, rec models.Record) (Outcome, error) {
	out := Outcome{Action: models.ActionRemove}
	if !rec.HasIdentifier() {
		return out, errors.New(errors.KindMissingIdentifier, "engine.remove", "row %d has no identifier", rec.Row+1)
	}

	if id := rec.CombinedID.TaskID; id != "" {
		if err := p.tasks.Remove(ctx, id); err != nil && !errors.IsNotFound(err) {
			return out, err
		}
	}
	if id := rec.CombinedID.EventID; id != "" {
		if err := p.calendar.DeleteEvent(ctx, id); err != nil && !errors.IsNotFound(err) {
			return out, err
		}
	}

	out.Identifier = &models.CombinedID{}
	if p.labels.Kind(rec.Status).Clearable() {
		empty := ""
		out.Status = &empty
	}
	return out, nil
}
