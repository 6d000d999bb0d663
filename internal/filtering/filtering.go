package filtering

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spigell/job-tracker/internal/ledger"
	"github.com/spigell/job-tracker/internal/model"
)

// Filter is a single pre-scoring step applied to fetched postings.
// Per-run settings arrive through cfg, so one pipeline may serve concurrent runs.
// Only Disable and EnableByName change a filter and must not overlap a run.
type Filter interface {
	Name() string
	Disable(reason string)
	IsEnabled() bool

	Validate(cfg *Config) error
	Apply(ctx context.Context, cfg *Config, deps Deps, p *model.Postings) (Step, error)
}

// History lists recorded applications. *ledger.Ledger implements it.
type History interface {
	List(ctx context.Context, opts ledger.ListOptions) ([]model.Application, error)
}

// Deps aggregates dependencies shared across all filtering steps.
type Deps struct {
	Logger  *zap.Logger
	History History
}

// Step describes the result of executing a filtering step.
type Step struct {
	Initial  int
	Dropped  int
	Left     int
	Excluded []model.Posting
}

// Config contains configuration settings consumed by the filters.
type Config struct {
	Platforms   []string
	Companies   []string
	ExcludeFile string
}

// Status represents runtime information about a filter.
type Status struct {
	Name    string
	Enabled bool
	Reason  string
	Details map[string]string
}

type statusProvider interface {
	Status() Status
}

// Dropped is a posting removed by a filter.
type Dropped struct {
	Posting model.Posting
	Filter  string
}

// base carries the enable/disable state every filter shares.
type base struct {
	disabled bool
	reason   string
}

func (b *base) Disable(reason string) {
	b.disabled = true
	b.reason = reason
}

func (b *base) IsEnabled() bool { return !b.disabled }

func (b *base) disabledReason() string { return b.reason }

func (b *base) enable() {
	b.disabled = false
	b.reason = ""
}

// EnableByName turns a disabled filter with the provided name back on.
func EnableByName(steps []Filter, name string) {
	for _, step := range steps {
		if step.Name() != name {
			continue
		}
		if e, ok := step.(interface{ enable() }); ok {
			e.enable()
		}
	}
}

// Default returns the standard pipeline in execution order.
func Default() []Filter {
	return []Filter{
		NewPlatforms(),
		NewCompanies(),
		NewExcludeFile(),
		NewAppliedHistory(),
	}
}

// DisableByName marks a filter with the provided name as disabled while keeping it in the list.
func DisableByName(steps []Filter, name, reason string) {
	for _, step := range steps {
		if step.Name() == name {
			step.Disable(reason)
		}
	}
}

// Run validates and then executes the enabled filters in order. Postings are filtered in place;
// everything a step removed is returned with the step name.
func Run(ctx context.Context, cfg *Config, deps Deps, steps []Filter, p *model.Postings) ([]Dropped, error) {
	if cfg == nil {
		cfg = &Config{}
	}

	for _, step := range steps {
		if !step.IsEnabled() {
			continue
		}
		if err := step.Validate(cfg); err != nil {
			return nil, fmt.Errorf("%s: %w", step.Name(), err)
		}
	}

	var dropped []Dropped
	for _, step := range steps {
		if !step.IsEnabled() {
			if deps.Logger != nil {
				deps.Logger.Debug("filter disabled", zap.String("name", step.Name()))
			}
			continue
		}

		info, err := step.Apply(ctx, cfg, deps, p)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", step.Name(), err)
		}

		if deps.Logger != nil {
			deps.Logger.Info("filter step",
				zap.String("name", step.Name()),
				zap.Int("initial", info.Initial),
				zap.Int("dropped", info.Dropped),
				zap.Int("left", info.Left),
			)
		}

		for _, posting := range info.Excluded {
			dropped = append(dropped, Dropped{Posting: posting, Filter: step.Name()})
		}
	}

	return dropped, nil
}

// Describe returns status entries for the provided filters.
func Describe(steps []Filter) []Status {
	statuses := make([]Status, 0, len(steps))
	for _, step := range steps {
		if reporter, ok := step.(statusProvider); ok {
			statuses = append(statuses, reporter.Status())
			continue
		}

		status := Status{Name: step.Name(), Enabled: step.IsEnabled()}
		if r, ok := step.(interface{ disabledReason() string }); ok {
			status.Reason = r.disabledReason()
		}
		statuses = append(statuses, status)
	}
	return statuses
}

func urls(postings []model.Posting) []string {
	out := make([]string, 0, len(postings))
	for _, p := range postings {
		out = append(out, p.SourceURL)
	}
	return out
}

func step(initial int, excluded []model.Posting, left int) Step {
	return Step{Initial: initial, Dropped: len(excluded), Left: left, Excluded: excluded}
}
