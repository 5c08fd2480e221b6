package render

import (
	"fmt"
	"strings"
	"time"
)

// Locale holds the calendar names and fallback texts for one language.
type Locale struct {
	Tag         string
	ShortDays   [7]string
	LongDays    [7]string
	ShortMonths [12]string
	LongMonths  [12]string

	// longDate lays out weekday, day, month and year.
	longDate func(weekday string, day int, month string, year int) string

	NoTime             string
	NoHeartRateZone    string
	NoTaskDescription  string
	NoEventDescription string
}

var locales = map[string]Locale{
	"en": {
		Tag:         "en",
		ShortDays:   [7]string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"},
		LongDays:    [7]string{"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"},
		ShortMonths: [12]string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"},
		LongMonths: [12]string{"January", "February", "March", "April", "May", "June", "July",
			"August", "September", "October", "November", "December"},
		longDate: func(weekday string, day int, month string, year int) string {
			return fmt.Sprintf("%s, %s %d, %d", weekday, month, day, year)
		},
		NoTime:             "Time not specified",
		NoHeartRateZone:    "Not specified",
		NoTaskDescription:  "No additional description",
		NoEventDescription: "Follow the standard training plan",
	},
	"pt-br": {
		Tag:         "pt-BR",
		ShortDays:   [7]string{"Dom", "Seg", "Ter", "Qua", "Qui", "Sex", "Sáb"},
		LongDays:    [7]string{"Domingo", "Segunda-feira", "Terça-feira", "Quarta-feira", "Quinta-feira", "Sexta-feira", "Sábado"},
		ShortMonths: [12]string{"Jan", "Fev", "Mar", "Abr", "Mai", "Jun", "Jul", "Ago", "Set", "Out", "Nov", "Dez"},
		LongMonths: [12]string{"Janeiro", "Fevereiro", "Março", "Abril", "Maio", "Junho", "Julho",
			"Agosto", "Setembro", "Outubro", "Novembro", "Dezembro"},
		longDate: func(weekday string, day int, month string, year int) string {
			return fmt.Sprintf("%s, %d de %s de %d", weekday, day, month, year)
		},
		NoTime:             "Horário não especificado",
		NoHeartRateZone:    "Não especificada",
		NoTaskDescription:  "Sem descrição adicional",
		NoEventDescription: "Siga o plano de treino padrão",
	},
}

// LookupLocale finds a locale by tag, ignoring case. "pt" resolves to pt-BR.
func LookupLocale(tag string) (Locale, error) {
	key := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(tag), "_", "-"))
	if key == "pt" {
		key = "pt-br"
	}
	l, ok := locales[key]
	if !ok {
		return Locale{}, fmt.Errorf("unsupported locale %q (supported: en, pt-BR)", tag)
	}
	return l, nil
}

// ShortDate formats t as "Mon, 10/Jun".
func (l Locale) ShortDate(t time.Time) string {
	return fmt.Sprintf("%s, %02d/%s", l.ShortDays[t.Weekday()], t.Day(), l.ShortMonths[t.Month()-1])
}

// FullDate formats t with the full weekday and month names.
func (l Locale) FullDate(t time.Time) string {
	return l.longDate(l.LongDays[t.Weekday()], t.Day(), l.LongMonths[t.Month()-1], t.Year())
}
