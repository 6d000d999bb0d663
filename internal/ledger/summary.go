package ledger

import (
	"context"
	"math"
	"time"

	"github.com/spigell/job-tracker/internal/apperrors"
	"github.com/spigell/job-tracker/internal/model"
)

// Summary aggregates the ledger.
type Summary struct {
	Total          int                  `json:"total"`
	AverageScore   float64              `json:"average_score"`
	StatusCounts   map[model.Status]int `json:"status_counts"`
	PlatformCounts map[string]int       `json:"platform_counts"`
	WindowDays     int                  `json:"window_days"`
	Recent         []model.Application  `json:"recent"`
}

// Summary counts applications per status and platform and collects those applied within windowDays of today.
// The window boundary is inclusive: with windowDays 7 an application from exactly seven days ago is recent.
func (l *Ledger) Summary(ctx context.Context, windowDays int) (*Summary, error) {
	if windowDays < 0 {
		return nil, apperrors.Validation("window days must not be negative, got %d", windowDays)
	}

	apps, err := l.List(ctx, ListOptions{})
	if err != nil {
		return nil, err
	}

	return summarize(apps, model.Day(l.now()), windowDays), nil
}

func summarize(apps []model.Application, today time.Time, windowDays int) *Summary {
	s := &Summary{
		Total:          len(apps),
		StatusCounts:   make(map[model.Status]int, len(model.Statuses())),
		PlatformCounts: make(map[string]int),
		WindowDays:     windowDays,
		Recent:         make([]model.Application, 0),
	}
	for _, status := range model.Statuses() {
		s.StatusCounts[status] = 0
	}

	cutoff := today.AddDate(0, 0, -windowDays)
	var scoreSum float64
	for _, app := range apps {
		s.StatusCounts[app.Status]++
		s.PlatformCounts[app.Platform]++
		scoreSum += app.MatchingScore

		if !model.Day(app.DateApplied).Before(cutoff) {
			s.Recent = append(s.Recent, app)
		}
	}

	if len(apps) > 0 {
		s.AverageScore = math.Round(scoreSum/float64(len(apps))*10) / 10
	}

	return s
}
