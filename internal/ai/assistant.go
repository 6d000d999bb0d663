package ai

import (
	"context"

	"github.com/spigell/job-tracker/internal/match"
	"github.com/spigell/job-tracker/internal/model"
)

// NoteRequest is everything a note writer may use to describe an application.
type NoteRequest struct {
	Posting   model.Posting
	Profile   model.Profile
	Breakdown match.Breakdown
}

// NoteWriter composes the note stored on an auto-applied application.
type NoteWriter interface {
	WriteNote(ctx context.Context, req NoteRequest) (string, error)
}
