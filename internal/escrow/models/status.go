package models

import (
	"fmt"

	dErrors "escrowd/pkg/domain-errors"
)

// Status is the lifecycle state of an escrow. Active is the only
// non-terminal state.
type Status uint8

const (
	StatusActive Status = iota + 1
	StatusReleased
	StatusRefunded
)

// AllStatuses lists every lifecycle state.
var AllStatuses = []Status{StatusActive, StatusReleased, StatusRefunded}

func (s Status) String() string {
	switch s {
	case StatusActive:
		return "active"
	case StatusReleased:
		return "released"
	case StatusRefunded:
		return "refunded"
	default:
		return fmt.Sprintf("status(%d)", uint8(s))
	}
}

// Label is the human-readable name shown in lists and exports.
func (s Status) Label() string {
	switch s {
	case StatusActive:
		return "Active"
	case StatusReleased:
		return "Released"
	case StatusRefunded:
		return "Refunded"
	default:
		return "Unknown"
	}
}

// IsTerminal reports whether no further transition is possible.
func (s Status) IsTerminal() bool {
	return s == StatusReleased || s == StatusRefunded
}

// ParseStatus reads the stored string form.
func ParseStatus(v string) (Status, error) {
	for _, s := range AllStatuses {
		if s.String() == v {
			return s, nil
		}
	}
	return 0, dErrors.New(dErrors.CodeValidation, "unknown escrow status: "+v)
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Status) UnmarshalText(b []byte) error {
	parsed, err := ParseStatus(string(b))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// DisplayStatus folds the fraud flag into the lifecycle state for display.
// Flagged is never stored.
type DisplayStatus string

const (
	DisplayActive   DisplayStatus = "Active"
	DisplayFlagged  DisplayStatus = "Flagged"
	DisplayReleased DisplayStatus = "Released"
	DisplayRefunded DisplayStatus = "Refunded"
)

// AllDisplayStatuses lists every display state in presentation order.
var AllDisplayStatuses = []DisplayStatus{DisplayActive, DisplayFlagged, DisplayReleased, DisplayRefunded}
