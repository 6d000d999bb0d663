package source

import (
	"context"
	"strings"

	"github.com/spigell/job-tracker/internal/model"
)

// Query describes what a job source should look for.
type Query struct {
	Keywords  string
	Location  string
	Platforms []string
	Limit     int
}

// KeywordList splits Keywords on whitespace.
func (q Query) KeywordList() []string {
	return strings.Fields(q.Keywords)
}

// JobSource produces postings for a query. Implementations must honour ctx cancellation.
type JobSource interface {
	Fetch(ctx context.Context, q Query) ([]model.Posting, error)
}

// platformSet returns a case-insensitive lookup of platforms, or nil when platforms is empty.
func platformSet(platforms []string) map[string]struct{} {
	if len(platforms) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(platforms))
	for _, p := range platforms {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			set[p] = struct{}{}
		}
	}
	return set
}
