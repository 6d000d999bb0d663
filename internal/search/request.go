package search

import (
	"strings"
	"time"

	"github.com/spigell/job-tracker/internal/apperrors"
	"github.com/spigell/job-tracker/internal/model"
)

const (
	defaultFetchTimeout = 30 * time.Second
	defaultWorkers      = 4
)

// AutoApply controls whether and how much Apply records.
type AutoApply struct {
	Enabled              bool
	MinMatchScore        float64
	MaxDailyApplications int
}

// Request is one search run.
type Request struct {
	Keywords  string
	Location  string
	Platforms []string
	Limit     int
	Profile   model.Profile
	AutoApply AutoApply
}

// Validate rejects requests that cannot be served.
func (r Request) Validate() error {
	platforms := 0
	for _, p := range r.Platforms {
		if strings.TrimSpace(p) != "" {
			platforms++
		}
	}
	if platforms == 0 {
		return apperrors.Validation("at least one platform is required")
	}
	if r.Limit <= 0 {
		return apperrors.Validation("limit must be positive, got %d", r.Limit)
	}
	if r.AutoApply.MinMatchScore < 0 || r.AutoApply.MinMatchScore > 100 {
		return apperrors.Validation("min match score must be within [0, 100], got %.1f", r.AutoApply.MinMatchScore)
	}
	if r.AutoApply.MaxDailyApplications < 0 {
		return apperrors.Validation("max daily applications must not be negative, got %d", r.AutoApply.MaxDailyApplications)
	}
	return nil
}
