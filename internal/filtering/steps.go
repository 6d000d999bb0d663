package filtering

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/job-tracker/internal/ledger"
	"github.com/spigell/job-tracker/internal/model"
)

type platformsFilter struct {
	base
}

// NewPlatforms creates a filter that keeps only postings from the requested platforms.
// Sources are expected to honour the platform list already; this catches the ones that do not.
func NewPlatforms() Filter {
	return &platformsFilter{}
}

func (f *platformsFilter) Name() string { return "platforms" }

func (f *platformsFilter) Validate(cfg *Config) error {
	for _, platform := range cfg.Platforms {
		if strings.TrimSpace(platform) == "" {
			return fmt.Errorf("empty platform name")
		}
	}
	return nil
}

func (f *platformsFilter) Apply(_ context.Context, cfg *Config, deps Deps, p *model.Postings) (Step, error) {
	initial := p.Len()
	if len(cfg.Platforms) == 0 {
		return step(initial, nil, p.Len()), nil
	}

	allowed := make(map[string]struct{}, len(cfg.Platforms))
	for _, platform := range cfg.Platforms {
		allowed[strings.ToLower(strings.TrimSpace(platform))] = struct{}{}
	}

	excluded := p.ExcludeFunc(func(posting model.Posting) bool {
		_, ok := allowed[strings.ToLower(strings.TrimSpace(posting.Platform))]
		return !ok
	})
	if deps.Logger != nil && len(excluded) > 0 {
		deps.Logger.Info("excluding postings from unrequested platforms",
			zap.Strings("platforms", cfg.Platforms),
			zap.Strings("excluded_postings", urls(excluded)),
			zap.Int("postings_left", p.Len()),
		)
	}

	return step(initial, excluded, p.Len()), nil
}

type companiesFilter struct {
	base
}

// NewCompanies creates a filter that removes postings by companies configured in the config.
func NewCompanies() Filter {
	return &companiesFilter{}
}

func (f *companiesFilter) Name() string { return "companies" }

func (f *companiesFilter) Validate(*Config) error { return nil }

func (f *companiesFilter) Apply(_ context.Context, cfg *Config, deps Deps, p *model.Postings) (Step, error) {
	initial := p.Len()
	if len(cfg.Companies) == 0 {
		return step(initial, nil, p.Len()), nil
	}

	excluded := p.Exclude(model.PostingCompanyField, cfg.Companies)
	if deps.Logger != nil && len(excluded) > 0 {
		deps.Logger.Info("excluding postings by companies",
			zap.Strings("excluded_companies", cfg.Companies),
			zap.Strings("excluded_postings", urls(excluded)),
			zap.Int("postings_left", p.Len()),
		)
	}

	return step(initial, excluded, p.Len()), nil
}

type excludeFileFilter struct {
	base
}

// NewExcludeFile creates a filter that removes postings listed in the exclude file.
func NewExcludeFile() Filter {
	return &excludeFileFilter{}
}

func (f *excludeFileFilter) Name() string { return "exclude_file" }

func (f *excludeFileFilter) Validate(*Config) error { return nil }

func (f *excludeFileFilter) Apply(_ context.Context, cfg *Config, deps Deps, p *model.Postings) (Step, error) {
	initial := p.Len()
	path := strings.TrimSpace(cfg.ExcludeFile)
	if path == "" {
		return step(initial, nil, p.Len()), nil
	}

	listed, err := model.LoadExcludedPostings(path)
	if err != nil {
		return Step{}, fmt.Errorf("getting excluded postings from file: %w", err)
	}

	keys := listed.Keys()
	excluded := p.ExcludeFunc(func(posting model.Posting) bool {
		_, ok := keys[posting.Key()]
		return ok
	})
	if deps.Logger != nil && len(excluded) > 0 {
		deps.Logger.Info("excluding postings based on exclude file",
			zap.String("path", path),
			zap.Strings("excluded_postings", urls(excluded)),
			zap.Int("postings_left", p.Len()),
		)
	}

	return step(initial, excluded, p.Len()), nil
}

// AppliedHistoryName is the name of the applied history filter.
const AppliedHistoryName = "applied_history"

type appliedHistoryFilter struct {
	base
}

// NewAppliedHistory creates a filter that removes postings already present in the ledger
// with a status other than Pending. It starts disabled; the search command enables it on request.
func NewAppliedHistory() Filter {
	f := &appliedHistoryFilter{}
	f.Disable("not requested")
	return f
}

func (f *appliedHistoryFilter) Name() string { return AppliedHistoryName }

func (f *appliedHistoryFilter) Validate(*Config) error { return nil }

func (f *appliedHistoryFilter) Apply(ctx context.Context, _ *Config, deps Deps, p *model.Postings) (Step, error) {
	initial := p.Len()
	if deps.History == nil {
		return Step{}, fmt.Errorf("application history is required")
	}

	apps, err := deps.History.List(ctx, ledger.ListOptions{})
	if err != nil {
		return Step{}, fmt.Errorf("listing applications: %w", err)
	}

	applied := make(map[string]struct{}, len(apps))
	for _, app := range apps {
		if app.Status.Active() {
			applied[app.Posting().Key()] = struct{}{}
		}
	}

	excluded := p.ExcludeFunc(func(posting model.Posting) bool {
		_, ok := applied[posting.Key()]
		return ok
	})
	if deps.Logger != nil && len(excluded) > 0 {
		deps.Logger.Info("excluding postings based on application history",
			zap.Strings("excluded_postings", urls(excluded)),
			zap.Int("postings_left", p.Len()),
		)
	}

	return step(initial, excluded, p.Len()), nil
}

func (f *appliedHistoryFilter) Status() Status {
	return Status{
		Name:    f.Name(),
		Enabled: f.IsEnabled(),
		Reason:  f.reason,
		Details: map[string]string{"exclude_applied": strconv.FormatBool(f.IsEnabled())},
	}
}
