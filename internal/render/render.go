// Package render builds task and event text from a training record.
package render

import (
	"strings"
	"time"
)

// Placeholders recognised in templates.
const (
	PlaceholderTraining    = "{TRAINING}"
	PlaceholderFullDate    = "{FULL_DATE}"
	PlaceholderShortDate   = "{SHORT_DATE}"
	PlaceholderTime        = "{TIME}"
	PlaceholderHRZone      = "{HR_ZONE}"
	PlaceholderDescription = "{DESCRIPTION}"
)

type Templates struct {
	TaskTitle        string `mapstructure:"task_title" yaml:"task_title"`
	EventTitle       string `mapstructure:"event_title" yaml:"event_title"`
	TaskNotes        string `mapstructure:"task_notes" yaml:"task_notes"`
	EventDescription string `mapstructure:"event_description" yaml:"event_description"`
}

func DefaultTemplates() Templates {
	return Templates{
		TaskTitle:  "🏃 {TRAINING} | {SHORT_DATE}",
		EventTitle: "🏃 {TRAINING} - {SHORT_DATE}",
		TaskNotes: `════════════════════════
🎯 TODAY: {TRAINING}
════════════════════════

📅 Date: {FULL_DATE}
❤️ Heart rate zone: {HR_ZONE}

📝 DESCRIPTION:
{DESCRIPTION}

💪 Have a good session!`,
		EventDescription: `════════════════════════
🏃 TRAINING PLAN
════════════════════════

🎯 Session: {TRAINING}
📅 Date: {FULL_DATE}
⏰ Time: {TIME}
❤️ Heart rate zone: {HR_ZONE}

📝 INSTRUCTIONS:
{DESCRIPTION}

💡 Warm up first, stay hydrated and stretch at the end.`,
	}
}

// Fields are the record values a template can reference. The label is
// rendered in upper case.
type Fields struct {
	Label         string
	Date          time.Time
	TimeText      string
	HeartRateZone string
	Description   string
}

type Renderer struct {
	templates Templates
	locale    Locale
}

func New(templates Templates, locale string) (*Renderer, error) {
	l, err := LookupLocale(locale)
	if err != nil {
		return nil, err
	}
	defaults := DefaultTemplates()
	if templates.TaskTitle == "" {
		templates.TaskTitle = defaults.TaskTitle
	}
	if templates.EventTitle == "" {
		templates.EventTitle = defaults.EventTitle
	}
	if templates.TaskNotes == "" {
		templates.TaskNotes = defaults.TaskNotes
	}
	if templates.EventDescription == "" {
		templates.EventDescription = defaults.EventDescription
	}
	return &Renderer{templates: templates, locale: l}, nil
}

func (r *Renderer) Locale() Locale {
	return r.locale
}

func (r *Renderer) TaskTitle(f Fields) string {
	return r.apply(r.templates.TaskTitle, f, r.locale.NoTaskDescription)
}

func (r *Renderer) EventTitle(f Fields) string {
	return r.apply(r.templates.EventTitle, f, r.locale.NoEventDescription)
}

func (r *Renderer) TaskNotes(f Fields) string {
	return r.apply(r.templates.TaskNotes, f, r.locale.NoTaskDescription)
}

func (r *Renderer) EventDescription(f Fields) string {
	return r.apply(r.templates.EventDescription, f, r.locale.NoEventDescription)
}

func (r *Renderer) apply(tpl string, f Fields, noDescription string) string {
	return strings.NewReplacer(
		PlaceholderTraining, strings.ToUpper(strings.TrimSpace(f.Label)),
		PlaceholderFullDate, r.locale.FullDate(f.Date),
		PlaceholderShortDate, r.locale.ShortDate(f.Date),
		PlaceholderTime, fallback(f.TimeText, r.locale.NoTime),
		PlaceholderHRZone, fallback(f.HeartRateZone, r.locale.NoHeartRateZone),
		PlaceholderDescription, fallback(f.Description, noDescription),
	).Replace(tpl)
}

func fallback(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
