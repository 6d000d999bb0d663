package utils

import (
	"context"
	"strings"
	"time"
)

// WaitFor blocks for d or until ctx is done, whichever comes first.
func WaitFor(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// TruncateForLog trims s and cuts it to limit runes, appending an ellipsis when cut.
func TruncateForLog(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	s = strings.TrimSpace(s)
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}

// Slug lower-cases s and joins its words with dashes, for use in generated urls.
func Slug(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), "-")
}
