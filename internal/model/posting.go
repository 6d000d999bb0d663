package model

import (
	"strings"
	"time"
)

const (
	PostingURLField      = "SourceURL"
	PostingCompanyField  = "Company"
	PostingPlatformField = "Platform"
)

// Posting is one job listing produced by a job source. It is never mutated after fetch.
type Posting struct {
	JobTitle    string    `json:"job_title" mapstructure:"job_title"`
	Company     string    `json:"company" mapstructure:"company"`
	Location    string    `json:"location" mapstructure:"location"`
	Description string    `json:"description" mapstructure:"description"`
	Salary      string    `json:"salary" mapstructure:"salary"`
	SourceURL   string    `json:"source_url" mapstructure:"source_url"`
	Platform    string    `json:"platform" mapstructure:"platform"`
	DatePosted  time.Time `json:"date_posted" mapstructure:"date_posted"`
}

// Key identifies a posting within the ledger.
func (p Posting) Key() string {
	return p.Platform + "|" + p.SourceURL
}

// GetStringField returns the value of one of the Posting*Field names.
func (p Posting) GetStringField(name string) string {
	switch name {
	case PostingURLField:
		return p.SourceURL
	case PostingCompanyField:
		return p.Company
	case PostingPlatformField:
		return p.Platform
	default:
		return ""
	}
}

// Postings is an ordered list of postings.
type Postings struct {
	Items []Posting
}

func NewPostings(items []Posting) *Postings {
	return &Postings{Items: items}
}

func (p *Postings) Len() int {
	if p == nil {
		return 0
	}
	return len(p.Items)
}

func (p *Postings) FindByURL(url string) *Posting {
	for i := range p.Items {
		if p.Items[i].SourceURL == url {
			return &p.Items[i]
		}
	}
	return nil
}

// Exclude removes postings whose field matches one of targets (case-insensitive) and returns them.
// Order of the remaining postings is preserved.
func (p *Postings) Exclude(field string, targets []string) []Posting {
	if len(targets) == 0 || p.Len() == 0 {
		return nil
	}

	lookup := make(map[string]struct{}, len(targets))
	for _, target := range targets {
		target = strings.ToLower(strings.TrimSpace(target))
		if target != "" {
			lookup[target] = struct{}{}
		}
	}

	return p.ExcludeFunc(func(posting Posting) bool {
		_, ok := lookup[strings.ToLower(strings.TrimSpace(posting.GetStringField(field)))]
		return ok
	})
}

// ExcludeFunc removes postings for which drop returns true and returns them.
func (p *Postings) ExcludeFunc(drop func(Posting) bool) []Posting {
	if p.Len() == 0 {
		return nil
	}

	var excluded []Posting
	kept := p.Items[:0:0]
	for _, posting := range p.Items {
		if drop(posting) {
			excluded = append(excluded, posting)
			continue
		}
		kept = append(kept, posting)
	}
	p.Items = kept
	return excluded
}
