package model

import (
	"time"

	"gorm.io/datatypes"
)

// Application is a persisted record of having applied to a posting.
// Posting fields are denormalized since postings are not stored on their own.
type Application struct {
	ID            uint              `gorm:"primaryKey" json:"id"`
	JobTitle      string            `json:"job_title"`
	Company       string            `json:"company"`
	Location      string            `json:"location"`
	Description   string            `json:"description"`
	Salary        string            `json:"salary"`
	SourceURL     string            `gorm:"index:idx_applications_posting" json:"source_url"`
	Platform      string            `gorm:"index:idx_applications_posting" json:"platform"`
	DatePosted    time.Time         `json:"date_posted"`
	Status        Status            `gorm:"index;not null" json:"status"`
	MatchingScore float64           `json:"matching_score"`
	MatchDetails  datatypes.JSONMap `json:"match_details,omitempty"`
	DateApplied   time.Time         `gorm:"index" json:"date_applied"`
	Notes         string            `json:"notes"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

// Posting rebuilds the posting the application was made for.
func (a Application) Posting() Posting {
	return Posting{
		JobTitle:    a.JobTitle,
		Company:     a.Company,
		Location:    a.Location,
		Description: a.Description,
		Salary:      a.Salary,
		SourceURL:   a.SourceURL,
		Platform:    a.Platform,
		DatePosted:  a.DatePosted,
	}
}

// Day truncates t to its calendar date, expressed as midnight UTC.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
