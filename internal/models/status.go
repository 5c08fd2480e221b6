package models

import (
	"strings"

	"github.com/julianstephens/trainsync/internal/constants"
)

type StatusKind int

const (
	StatusEmpty StatusKind = iota
	StatusPending
	StatusCompleted
	StatusExpired
	StatusNotFound
	StatusCustom
)

func (k StatusKind) String() string {
	switch k {
	case StatusEmpty:
		return "empty"
	case StatusPending:
		return "pending"
	case StatusCompleted:
		return "completed"
	case StatusExpired:
		return "expired"
	case StatusNotFound:
		return "not_found"
	default:
		return "custom"
	}
}

// StatusLabels holds the cell text written for each status kind.
type StatusLabels struct {
	Pending   string `mapstructure:"pending" yaml:"pending"`
	Completed string `mapstructure:"completed" yaml:"completed"`
	Expired   string `mapstructure:"expired" yaml:"expired"`
	NotFound  string `mapstructure:"not_found" yaml:"not_found"`
}

func DefaultStatusLabels() StatusLabels {
	return StatusLabels{
		Pending:   constants.DefaultStatusPending,
		Completed: constants.DefaultStatusCompleted,
		Expired:   constants.DefaultStatusExpired,
		NotFound:  constants.DefaultStatusNotFound,
	}
}

// Kind classifies a status cell. Text matching no label is StatusCustom.
func (l StatusLabels) Kind(text string) StatusKind {
	text = strings.TrimSpace(text)
	switch text {
	case "":
		return StatusEmpty
	case l.Pending:
		return StatusPending
	case l.Completed:
		return StatusCompleted
	case l.Expired:
		return StatusExpired
	case l.NotFound:
		return StatusNotFound
	default:
		return StatusCustom
	}
}

// Label returns the cell text for k. Custom has no label of its own.
func (l StatusLabels) Label(k StatusKind) string {
	switch k {
	case StatusPending:
		return l.Pending
	case StatusCompleted:
		return l.Completed
	case StatusExpired:
		return l.Expired
	case StatusNotFound:
		return l.NotFound
	default:
		return ""
	}
}

// Clearable reports whether a Remove or a vanished task may blank this status.
func (k StatusKind) Clearable() bool {
	return k == StatusPending || k == StatusCompleted || k == StatusExpired
}

// Protected statuses are never moved back to pending or re-expired.
func (k StatusKind) Protected() bool {
	return k == StatusCompleted || k == StatusExpired
}
