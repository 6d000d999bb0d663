package utils

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestWaitFor(t *testing.T) {
	t.Parallel()

	if err := WaitFor(context.Background(), time.Millisecond); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := WaitFor(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if err := WaitFor(ctx, 0); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected canceled context to be reported for zero wait, got %v", err)
	}
}

func TestSlug(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"Data Scientist": "data-scientist",
		"  Tech  Corp ":  "tech-corp",
		"LinkedIn":       "linkedin",
		"":               "",
	}
	for in, want := range cases {
		if got := Slug(in); got != want {
			t.Fatalf("Slug(%q) = %q, want %q", in, got, want)
		}
	}
}
