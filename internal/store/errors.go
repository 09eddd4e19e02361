package store

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound indicates an unknown id on lookup, update or delete.
	ErrNotFound = errors.New("store: not found")
	// ErrConflict indicates a duplicate natural key on create.
	ErrConflict = errors.New("store: duplicate natural key")
)

// ValidationError reports a missing or malformed required field, surfaced
// before any write happens.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("store: invalid %s: %s", e.Field, e.Reason)
}

// ValidateStation checks the fields required before persisting a station.
func ValidateStation(id, name string, batteryCount int) error {
	if strings.TrimSpace(id) == "" {
		return &ValidationError{Field: "id", Reason: "required"}
	}
	if strings.TrimSpace(name) == "" {
		return &ValidationError{Field: "name", Reason: "required"}
	}
	if batteryCount < 0 {
		return &ValidationError{Field: "batteryCount", Reason: "must be >= 0"}
	}
	return nil
}

// ValidateRecord checks the fields required before persisting a record.
func ValidateRecord(stationID, date string, earnings float64) error {
	if strings.TrimSpace(stationID) == "" {
		return &ValidationError{Field: "stationId", Reason: "required"}
	}
	if !ValidDate(date) {
		return &ValidationError{Field: "date", Reason: `must be "YYYY-MM-DD"`}
	}
	if earnings < 0 {
		return &ValidationError{Field: "earnings", Reason: "must be >= 0"}
	}
	return nil
}

// ValidDate reports whether s looks like an ISO calendar day. Lexical
// comparison of such strings orders them chronologically.
func ValidDate(s string) bool {
	if len(s) != 10 || s[4] != '-' || s[7] != '-' {
		return false
	}
	for i, c := range s {
		if i == 4 || i == 7 {
			continue
		}
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// InDateRange reports whether date falls within the inclusive [from, to]
// bounds; empty bounds are open.
func InDateRange(date, from, to string) bool {
	if from != "" && date < from {
		return false
	}
	if to != "" && date > to {
		return false
	}
	return true
}
