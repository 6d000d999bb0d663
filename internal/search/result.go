package search

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spigell/job-tracker/internal/match"
	"github.com/spigell/job-tracker/internal/model"
)

// SkipReason explains why a posting was not applied to.
type SkipReason string

const (
	SkipBelowMinScore     SkipReason = "below_min_score"
	SkipDailyLimitReached SkipReason = "daily_limit_reached"
	SkipAlreadyApplied    SkipReason = "already_applied"
	SkipFiltered          SkipReason = "filtered"
)

// Scored is a posting with its match breakdown.
type Scored struct {
	Posting   model.Posting   `json:"posting"`
	Score     float64         `json:"score"`
	Breakdown match.Breakdown `json:"breakdown"`
}

// Skipped is a posting that was not applied to.
type Skipped struct {
	Posting model.Posting `json:"posting"`
	Score   float64       `json:"score,omitempty"`
	Reason  SkipReason    `json:"reason"`
	// Detail names the filter for SkipFiltered or the existing application for SkipAlreadyApplied.
	Detail string `json:"detail,omitempty"`
}

// Result is the outcome of a search run.
type Result struct {
	RunID    string    `json:"run_id"`
	Postings Ranked    `json:"postings"`
	Applied  []uint    `json:"applied"`
	Skipped  []Skipped `json:"skipped"`
}

// SkippedBy returns the skipped postings with reason.
func (r *Result) SkippedBy(reason SkipReason) []Skipped {
	var out []Skipped
	for _, s := range r.Skipped {
		if s.Reason == reason {
			out = append(out, s)
		}
	}
	return out
}

// Ranked is a list of scored postings, best first.
type Ranked []Scored

func (r Ranked) Len() int {
	return len(r)
}

// Postings returns the bare postings in rank order.
func (r Ranked) Postings() []model.Posting {
	out := make([]model.Posting, 0, len(r))
	for _, s := range r {
		out = append(out, s.Posting)
	}
	return out
}

// FindByURL returns the scored posting with url or nil.
func (r Ranked) FindByURL(url string) *Scored {
	for i := range r {
		if r[i].Posting.SourceURL == url {
			return &r[i]
		}
	}
	return nil
}

// Without returns r minus the postings whose key is in keys.
func (r Ranked) Without(keys map[string]struct{}) Ranked {
	out := make(Ranked, 0, len(r))
	for _, s := range r {
		if _, drop := keys[s.Posting.Key()]; !drop {
			out = append(out, s)
		}
	}
	return out
}

// ReportByCompany groups the ranked postings by company for a quick review.
func (r Ranked) ReportByCompany() map[string][]map[string]string {
	report := make(map[string][]map[string]string)
	for _, s := range r {
		report[s.Posting.Company] = append(report[s.Posting.Company], map[string]string{
			"title":    s.Posting.JobTitle,
			"url":      s.Posting.SourceURL,
			"platform": s.Posting.Platform,
			"location": s.Posting.Location,
			"salary":   s.Posting.Salary,
			"posted":   s.Posting.DatePosted.Format(time.DateOnly),
			"score":    fmt.Sprintf("%.1f", s.Score),
		})
	}
	return report
}

// DumpToTmpFile writes the ranked postings as JSON into a new temporary file and returns its name.
func (r Ranked) DumpToTmpFile() (string, error) {
	file, err := os.CreateTemp("", "postings_*.json")
	if err != nil {
		return "", err
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return "", err
	}
	return file.Name(), nil
}

// ToExcluded converts the ranked postings into exclude file entries.
func (r Ranked) ToExcluded(at time.Time) *model.ExcludedPostings {
	return model.ToExcluded(r.Postings(), at)
}
