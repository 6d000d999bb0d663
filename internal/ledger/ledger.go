package ledger

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/spigell/job-tracker/internal/apperrors"
	"github.com/spigell/job-tracker/internal/logger"
	"github.com/spigell/job-tracker/internal/match"
	"github.com/spigell/job-tracker/internal/model"
	"github.com/spigell/job-tracker/internal/storage"
)

const defaultNoteTemplate = "Auto-applied via job-tracker on %s (match score %.1f)"

// Store is the persistence the ledger needs. *storage.Store implements it.
type Store interface {
	CreateApplication(ctx context.Context, app *model.Application) error
	UpdateApplication(ctx context.Context, id uint, values map[string]any) error
	AppendApplicationNote(ctx context.Context, id uint, line string) error
	GetApplication(ctx context.Context, id uint) (*model.Application, error)
	ListApplications(ctx context.Context, q storage.ApplicationQuery) ([]model.Application, error)
	FindActiveDuplicate(ctx context.Context, platform, url string, exceptID uint) (*model.Application, error)
	CountAppliedOn(ctx context.Context, day time.Time) (int64, error)
	DeleteAllApplications(ctx context.Context) (int64, error)
}

// Ledger records applications and enforces their lifecycle rules.
// Mutating operations are serialized so the duplicate check cannot race.
type Ledger struct {
	store  Store
	logger *zap.Logger
	now    func() time.Time

	mu sync.Mutex
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithClock overrides the clock used for date_applied and the recent window.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		if now != nil {
			l.now = now
		}
	}
}

// New creates a Ledger over store.
func New(store Store, log *zap.Logger, opts ...Option) *Ledger {
	l := &Ledger{
		store:  store,
		logger: logger.WithFields(log),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

type recordOptions struct {
	note string
}

// RecordOption customizes RecordApplication.
type RecordOption func(*recordOptions)

// WithNote replaces the default auto-apply annotation.
func WithNote(note string) RecordOption {
	return func(o *recordOptions) {
		o.note = strings.TrimSpace(note)
	}
}

// RecordApplication scores posting against profile and stores a new application with status Applied.
// A second application to the same platform and url fails with apperrors.ErrAlreadyApplied and writes nothing.
func (l *Ledger) RecordApplication(ctx context.Context, posting model.Posting, profile model.Profile, opts ...RecordOption) (uint, error) {
	if strings.TrimSpace(posting.Platform) == "" || strings.TrimSpace(posting.SourceURL) == "" {
		return 0, apperrors.Validation("posting platform and source url are required")
	}

	breakdown := match.Explain(posting, profile)
	today := model.Day(l.now())

	o := recordOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.note == "" {
		o.note = DefaultNote(today, breakdown.Score)
	}

	app := &model.Application{
		JobTitle:      posting.JobTitle,
		Company:       posting.Company,
		Location:      posting.Location,
		Description:   posting.Description,
		Salary:        posting.Salary,
		SourceURL:     posting.SourceURL,
		Platform:      posting.Platform,
		DatePosted:    posting.DatePosted,
		Status:        model.StatusApplied,
		MatchingScore: breakdown.Score,
		MatchDetails:  datatypes.JSONMap(breakdown.Details()),
		DateApplied:   today,
		Notes:         o.note,
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.store.CreateApplication(ctx, app); err != nil {
		return 0, fmt.Errorf("record application: %w", err)
	}

	l.logger.Info("application recorded",
		append(logger.PostingFields(posting),
			zap.Uint("application_id", app.ID),
			zap.Float64("matching_score", app.MatchingScore),
		)...,
	)

	return app.ID, nil
}

// UpdateStatus moves application id to status. Transitions are unrestricted, except that a Pending
// application cannot become active while another active application exists for the same posting.
// A nil notes keeps the existing notes, otherwise they are replaced.
func (l *Ledger) UpdateStatus(ctx context.Context, id uint, status model.Status, notes *string) error {
	if !status.Valid() {
		return apperrors.Validation("unknown status %q", status)
	}

	values := map[string]any{"status": status}
	if notes != nil {
		values["notes"] = *notes
	}
	if status == model.StatusApplied {
		values["date_applied"] = model.Day(l.now())
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if status.Active() {
		if err := l.checkReapply(ctx, id); err != nil {
			return err
		}
	}

	if err := l.store.UpdateApplication(ctx, id, values); err != nil {
		return fmt.Errorf("update status: %w", err)
	}

	l.logger.Info("application status updated",
		zap.Uint("application_id", id),
		zap.String("status", status.String()),
		zap.Bool("notes_replaced", notes != nil),
	)
	return nil
}

// checkReapply fails with a conflict when application id is Pending and another application for the
// same platform and url is already Applied or later. Active applications pass unchecked.
func (l *Ledger) checkReapply(ctx context.Context, id uint) error {
	app, err := l.store.GetApplication(ctx, id)
	if err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	if app.Status.Active() {
		return nil
	}

	other, err := l.store.FindActiveDuplicate(ctx, app.Platform, app.SourceURL, app.ID)
	if err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	if other != nil {
		return &apperrors.ConflictError{Platform: app.Platform, SourceURL: app.SourceURL, ExistingID: other.ID}
	}
	return nil
}

// AppendNote adds a line to the notes of application id.
func (l *Ledger) AppendNote(ctx context.Context, id uint, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return apperrors.Validation("note must not be empty")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.store.AppendApplicationNote(ctx, id, text); err != nil {
		return fmt.Errorf("append note: %w", err)
	}
	return nil
}

// Get returns a single application.
func (l *Ledger) Get(ctx context.Context, id uint) (*model.Application, error) {
	return l.store.GetApplication(ctx, id)
}

// ListOptions filters List.
type ListOptions struct {
	Status   model.Status
	Platform string
}

// List returns a snapshot of applications, newest date_applied first, ties in insertion order.
func (l *Ledger) List(ctx context.Context, opts ListOptions) ([]model.Application, error) {
	if opts.Status != "" && !opts.Status.Valid() {
		return nil, apperrors.Validation("unknown status %q", opts.Status)
	}
	return l.store.ListApplications(ctx, storage.ApplicationQuery{Status: opts.Status, Platform: opts.Platform})
}

// AppliedOn counts applications recorded on the calendar day of t.
func (l *Ledger) AppliedOn(ctx context.Context, t time.Time) (int64, error) {
	return l.store.CountAppliedOn(ctx, model.Day(t))
}

// Today returns the ledger's current time.
func (l *Ledger) Today() time.Time {
	return l.now()
}

// Clear deletes the whole ledger. It is the only way applications are removed.
func (l *Ledger) Clear(ctx context.Context) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	removed, err := l.store.DeleteAllApplications(ctx)
	if err != nil {
		return 0, fmt.Errorf("clear ledger: %w", err)
	}

	l.logger.Warn("ledger cleared", zap.Int64("removed", removed))
	return removed, nil
}

// DefaultNote is the annotation stored on auto-applied applications.
func DefaultNote(day time.Time, score float64) string {
	return fmt.Sprintf(defaultNoteTemplate, day.Format(time.DateOnly), score)
}
