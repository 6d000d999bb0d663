package search

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spigell/job-tracker/internal/ai"
	"github.com/spigell/job-tracker/internal/apperrors"
	"github.com/spigell/job-tracker/internal/filtering"
	"github.com/spigell/job-tracker/internal/ledger"
	"github.com/spigell/job-tracker/internal/logger"
	"github.com/spigell/job-tracker/internal/match"
	"github.com/spigell/job-tracker/internal/model"
	"github.com/spigell/job-tracker/internal/source"
)

// Ledger is the part of *ledger.Ledger the orchestrator needs.
type Ledger interface {
	filtering.History
	RecordApplication(ctx context.Context, posting model.Posting, profile model.Profile, opts ...ledger.RecordOption) (uint, error)
	AppliedOn(ctx context.Context, t time.Time) (int64, error)
	Today() time.Time
}

// Options tunes an Orchestrator.
type Options struct {
	// FetchTimeout bounds the job source call. Zero means 30s.
	FetchTimeout time.Duration
	// Workers bounds parallel scoring. Zero means 4.
	Workers int
	// Filters run between fetch and scoring. Nil means filtering.Default().
	Filters []filtering.Filter
	// Exclude carries companies and the exclude file for the filters; platforms come from the request.
	Exclude filtering.Config
	// Notes composes application notes. Nil uses the default annotation.
	Notes ai.NoteWriter
}

// Orchestrator pulls postings from a source, ranks them against a profile and optionally applies.
// Evaluate and Apply may run concurrently; toggling Filters() must happen before the first run.
type Orchestrator struct {
	source  source.JobSource
	ledger  Ledger
	logger  *zap.Logger
	opts    Options
	filters []filtering.Filter
}

// New creates an Orchestrator.
func New(src source.JobSource, l Ledger, log *zap.Logger, opts Options) *Orchestrator {
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = defaultFetchTimeout
	}
	if opts.Workers <= 0 {
		opts.Workers = defaultWorkers
	}
	filters := opts.Filters
	if filters == nil {
		filters = filtering.Default()
	}

	return &Orchestrator{
		source:  src,
		ledger:  l,
		logger:  logger.WithFields(log),
		opts:    opts,
		filters: filters,
	}
}

// Filters exposes the pipeline so callers can toggle steps.
func (o *Orchestrator) Filters() []filtering.Filter {
	return o.filters
}

// SearchAndApply evaluates the request and, when auto-apply is enabled, applies to the best postings.
// On a storage failure the partial result is returned together with the error.
func (o *Orchestrator) SearchAndApply(ctx context.Context, req Request) (*Result, error) {
	res, err := o.Evaluate(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := o.Apply(ctx, req, res); err != nil {
		return res, err
	}
	return res, nil
}

// Evaluate fetches, filters and ranks postings. It never writes to the ledger.
func (o *Orchestrator) Evaluate(ctx context.Context, req Request) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	res := &Result{RunID: uuid.NewString()}
	log := o.logger.With(zap.String(logger.FieldRunID, res.RunID))

	log.Info("starting the search",
		zap.String("keywords", req.Keywords),
		zap.String("location", req.Location),
		zap.Strings("platforms", req.Platforms),
		zap.Int("limit", req.Limit),
	)

	fetched, err := o.fetch(ctx, req)
	if err != nil {
		return nil, err
	}
	log.Info("postings fetched", zap.Int("count", len(fetched)))

	postings := model.NewPostings(fetched)
	cfg := o.opts.Exclude
	cfg.Platforms = req.Platforms
	dropped, err := filtering.Run(ctx, &cfg, filtering.Deps{Logger: log, History: o.ledger}, o.filters, postings)
	if err != nil {
		return nil, fmt.Errorf("filtering postings: %w", err)
	}
	for _, d := range dropped {
		res.Skipped = append(res.Skipped, Skipped{Posting: d.Posting, Reason: SkipFiltered, Detail: d.Filter})
	}

	ranked, err := o.rank(ctx, postings.Items, req.Profile)
	if err != nil {
		return nil, err
	}
	res.Postings = ranked

	log.Info("postings ranked", zap.Int("count", ranked.Len()), zap.Int("filtered", len(dropped)))
	return res, nil
}

func (o *Orchestrator) fetch(ctx context.Context, req Request) ([]model.Posting, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, o.opts.FetchTimeout)
	defer cancel()

	postings, err := o.source.Fetch(fetchCtx, source.Query{
		Keywords:  req.Keywords,
		Location:  req.Location,
		Platforms: req.Platforms,
		Limit:     req.Limit,
	})
	if err == nil {
		err = fetchCtx.Err()
	}
	if err != nil {
		return nil, apperrors.Source("fetch postings", err)
	}

	if len(postings) > req.Limit {
		postings = postings[:req.Limit]
	}
	return postings, nil
}

// rank scores postings in parallel and sorts them by score desc, date_posted desc, then fetch order.
func (o *Orchestrator) rank(ctx context.Context, postings []model.Posting, profile model.Profile) (Ranked, error) {
	ranked := make(Ranked, len(postings))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.opts.Workers)
	for i := range postings {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			b := match.Explain(postings[i], profile)
			ranked[i] = Scored{Posting: postings[i], Score: b.Score, Breakdown: b}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("scoring postings: %w", err)
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].Posting.DatePosted.After(ranked[j].Posting.DatePosted)
	})
	return ranked, nil
}

// Apply records applications for res.Postings in rank order when auto-apply is enabled.
// The daily budget accounts for applications already recorded today. A duplicate is skipped and
// the walk continues; any other failure stops it.
func (o *Orchestrator) Apply(ctx context.Context, req Request, res *Result) error {
	if !req.AutoApply.Enabled {
		return nil
	}
	if err := req.Validate(); err != nil {
		return err
	}

	log := o.logger.With(zap.String(logger.FieldRunID, res.RunID))

	already, err := o.ledger.AppliedOn(ctx, o.ledger.Today())
	if err != nil {
		return fmt.Errorf("counting today's applications: %w", err)
	}
	budget := int64(req.AutoApply.MaxDailyApplications) - already
	if budget < 0 {
		budget = 0
	}

	log.Info("auto-apply started",
		zap.Float64("min_match_score", req.AutoApply.MinMatchScore),
		zap.Int("max_daily_applications", req.AutoApply.MaxDailyApplications),
		zap.Int64("applied_today", already),
	)

	for _, s := range res.Postings {
		switch {
		case s.Score < req.AutoApply.MinMatchScore:
			res.Skipped = append(res.Skipped, Skipped{Posting: s.Posting, Score: s.Score, Reason: SkipBelowMinScore})
			continue
		case budget <= 0:
			res.Skipped = append(res.Skipped, Skipped{Posting: s.Posting, Score: s.Score, Reason: SkipDailyLimitReached})
			continue
		}

		id, err := o.ledger.RecordApplication(ctx, s.Posting, req.Profile, o.noteOptions(ctx, log, s, req.Profile)...)
		if err != nil {
			var conflict *apperrors.ConflictError
			if errors.As(err, &conflict) {
				log.Info("already applied, skipping", append(logger.PostingFields(s.Posting), zap.Uint("existing_id", conflict.ExistingID))...)
				res.Skipped = append(res.Skipped, Skipped{
					Posting: s.Posting,
					Score:   s.Score,
					Reason:  SkipAlreadyApplied,
					Detail:  strconv.FormatUint(uint64(conflict.ExistingID), 10),
				})
				continue
			}
			return fmt.Errorf("auto-apply stopped after %d applications: %w", len(res.Applied), err)
		}

		res.Applied = append(res.Applied, id)
		budget--
	}

	log.Info("auto-apply finished", zap.Int("applied", len(res.Applied)), zap.Int("skipped", len(res.Skipped)))
	return nil
}

// ApplyOne records a single posting chosen by the user, ignoring threshold and budget.
func (o *Orchestrator) ApplyOne(ctx context.Context, s Scored, profile model.Profile) (uint, error) {
	return o.ledger.RecordApplication(ctx, s.Posting, profile, o.noteOptions(ctx, o.logger, s, profile)...)
}

func (o *Orchestrator) noteOptions(ctx context.Context, log *zap.Logger, s Scored, profile model.Profile) []ledger.RecordOption {
	if o.opts.Notes == nil {
		return nil
	}

	note, err := o.opts.Notes.WriteNote(ctx, ai.NoteRequest{Posting: s.Posting, Profile: profile, Breakdown: s.Breakdown})
	if err != nil {
		log.Warn("composing note failed, using the default one", append(logger.PostingFields(s.Posting), zap.Error(err))...)
		return nil
	}
	return []ledger.RecordOption{ledger.WithNote(note)}
}
