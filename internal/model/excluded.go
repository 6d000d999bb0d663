package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"
)

// ExcludedPostings is the content of an exclude file: postings the user never wants to see again.
type ExcludedPostings struct {
	Items []*ExcludedPosting `json:"items"`
}

type ExcludedPosting struct {
	Platform   string    `json:"platform"`
	SourceURL  string    `json:"source_url"`
	Company    string    `json:"company"`
	JobTitle   string    `json:"job_title"`
	ExcludedAt time.Time `json:"excluded_at"`
}

// Key matches Posting.Key.
func (e *ExcludedPosting) Key() string {
	return e.Platform + "|" + e.SourceURL
}

// ToExcluded converts postings into exclude file entries stamped with at.
func ToExcluded(postings []Posting, at time.Time) *ExcludedPostings {
	excluded := &ExcludedPostings{Items: make([]*ExcludedPosting, 0, len(postings))}
	for _, p := range postings {
		excluded.Items = append(excluded.Items, &ExcludedPosting{
			Platform:   p.Platform,
			SourceURL:  p.SourceURL,
			Company:    p.Company,
			JobTitle:   p.JobTitle,
			ExcludedAt: at.UTC(),
		})
	}
	return excluded
}

// LoadExcludedPostings reads an exclude file. A missing or empty file yields an empty list.
func LoadExcludedPostings(path string) (*ExcludedPostings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &ExcludedPostings{}, nil
		}
		return nil, err
	}
	if len(data) == 0 {
		return &ExcludedPostings{}, nil
	}

	var excluded ExcludedPostings
	if err := json.Unmarshal(data, &excluded); err != nil {
		return nil, fmt.Errorf("decoding exclude file %q: %w", path, err)
	}
	return &excluded, nil
}

func (e *ExcludedPostings) Append(other *ExcludedPostings) {
	if other == nil {
		return
	}
	e.Items = append(e.Items, other.Items...)
}

// Keys returns the platform|url keys of the excluded postings.
func (e *ExcludedPostings) Keys() map[string]struct{} {
	keys := make(map[string]struct{}, len(e.Items))
	for _, item := range e.Items {
		keys[item.Key()] = struct{}{}
	}
	return keys
}

// ToFile overwrites path with the excluded postings.
func (e *ExcludedPostings) ToFile(path string) error {
	data, err := json.MarshalIndent(e, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}
