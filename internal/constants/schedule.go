package constants

// Cell text layouts for dates and times of day.
const (
	DateFormat = "2006-01-02"
	TimeFormat = "15:04"
)

const (
	// Default schedule policy
	DefaultDurationMin   = 60
	DefaultToleranceDays = 1
	DefaultTimezone      = "Local"
	DefaultLocation      = "🏃 Training spot"
	DefaultLocale        = "en"

	// Default status labels
	DefaultStatusPending   = "Pending"
	DefaultStatusCompleted = "Completed"
	DefaultStatusExpired   = "Expired"
	DefaultStatusNotFound  = "ID not found"

	// Default calendar colour ids (Google Calendar event palette)
	ColorTomato    = "11"
	ColorBlueberry = "9"
	ColorBasil     = "10"
	ColorTangerine = "6"

	// Default column layout, zero based (A=0, B=1, ...)
	DefaultColumnWeek          = 0
	DefaultColumnStatus        = 1
	DefaultColumnAction        = 2
	DefaultColumnDate          = 3
	DefaultColumnTime          = 4
	DefaultColumnWeekday       = 5
	DefaultColumnLabel         = 6
	DefaultColumnHeartRateZone = 7
	DefaultColumnDescription   = 8
	DefaultColumnPostNotes     = 9
	DefaultColumnIdentifier    = 10
)

// DefaultReminderMinutes are the popup reminder lead times applied to new events.
var DefaultReminderMinutes = []int{24 * 60, 12 * 60, 6 * 60, 60}
