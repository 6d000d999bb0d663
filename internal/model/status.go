package model

import (
	"strings"

	"github.com/spigell/job-tracker/internal/apperrors"
)

// Status is the lifecycle state of an application.
type Status string

const (
	StatusPending   Status = "Pending"
	StatusApplied   Status = "Applied"
	StatusInterview Status = "Interview"
	StatusOffer     Status = "Offer"
	StatusRejected  Status = "Rejected"
)

// Statuses returns every known status in lifecycle order.
func Statuses() []Status {
	return []Status{StatusPending, StatusApplied, StatusInterview, StatusOffer, StatusRejected}
}

// ParseStatus resolves a status name case-insensitively.
func ParseStatus(s string) (Status, error) {
	trimmed := strings.TrimSpace(s)
	for _, status := range Statuses() {
		if strings.EqualFold(trimmed, string(status)) {
			return status, nil
		}
	}
	return "", apperrors.Validation("unknown status %q", s)
}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	for _, status := range Statuses() {
		if s == status {
			return true
		}
	}
	return false
}

// Active reports whether the application reached Applied or a later stage.
// Only active applications take part in the duplicate check.
func (s Status) Active() bool {
	return s.Valid() && s != StatusPending
}

func (s Status) String() string {
	return string(s)
}
