package models

import "strings"

type Action string

const (
	ActionNone   Action = ""
	ActionAdd    Action = "Add"
	ActionUpdate Action = "Update"
	ActionRemove Action = "Remove"
)

// ParseAction maps action cell text to an Action, ignoring case and
// surrounding spaces. ok is false for unrecognised text.
func ParseAction(text string) (Action, bool) {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "":
		return ActionNone, true
	case "add":
		return ActionAdd, true
	case "update":
		return ActionUpdate, true
	case "remove":
		return ActionRemove, true
	default:
		return ActionNone, false
	}
}
