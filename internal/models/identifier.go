package models

import (
	"strings"

	"github.com/julianstephens/trainsync/internal/constants"
)

// CombinedID links a row to its remote task and calendar event.
// Either half may be empty.
type CombinedID struct {
	TaskID  string
	EventID string
}

// ParseCombinedID decodes "<taskId>|<eventId>". Text without a separator is
// taken as a bare task id.
func ParseCombinedID(text string) CombinedID {
	text = strings.TrimSpace(text)
	taskID, eventID, _ := strings.Cut(text, constants.IdentifierSeparator)
	return CombinedID{
		TaskID:  strings.TrimSpace(taskID),
		EventID: strings.TrimSpace(eventID),
	}
}

// String encodes the id for the identifier cell. The separator is always
// present unless both halves are empty.
func (c CombinedID) String() string {
	if c.IsZero() {
		return ""
	}
	return c.TaskID + constants.IdentifierSeparator + c.EventID
}

func (c CombinedID) IsZero() bool {
	return c.TaskID == "" && c.EventID == ""
}
