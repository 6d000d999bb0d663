package filtering

import (
	"context"
	"errors"
	"path/filepath"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spigell/job-tracker/internal/ledger"
	"github.com/spigell/job-tracker/internal/model"
)

type stubHistory struct {
	apps []model.Application
	err  error
}

func (s stubHistory) List(context.Context, ledger.ListOptions) ([]model.Application, error) {
	return s.apps, s.err
}

func samplePostings() *model.Postings {
	return model.NewPostings([]model.Posting{
		{JobTitle: "Go Engineer", Company: "Acme", Platform: "LinkedIn", SourceURL: "https://linkedin.com/jobs/1"},
		{JobTitle: "SRE", Company: "Globex", Platform: "Indeed", SourceURL: "https://indeed.com/jobs/2"},
		{JobTitle: "Data Analyst", Company: "acme", Platform: "Glassdoor", SourceURL: "https://glassdoor.com/jobs/3"},
		{JobTitle: "Backend Developer", Company: "Initech", Platform: "LinkedIn", SourceURL: "https://linkedin.com/jobs/4"},
	})
}

func titles(p *model.Postings) []string {
	out := make([]string, 0, p.Len())
	for _, posting := range p.Items {
		out = append(out, posting.JobTitle)
	}
	return out
}

func TestRunDefaultPipeline(t *testing.T) {
	t.Parallel()

	excludeFile := filepath.Join(t.TempDir(), "exclude.json")
	listed := model.ToExcluded([]model.Posting{
		{Platform: "LinkedIn", SourceURL: "https://linkedin.com/jobs/4"},
	}, time.Now())
	require.NoError(t, listed.ToFile(excludeFile))

	core, observed := observer.New(zapcore.InfoLevel)
	postings := samplePostings()
	cfg := &Config{
		Platforms:   []string{"linkedin", "Indeed"},
		Companies:   []string{"GLOBEX"},
		ExcludeFile: excludeFile,
	}

	dropped, err := Run(context.Background(), cfg, Deps{Logger: zap.New(core)}, Default(), postings)
	require.NoError(t, err)

	require.Equal(t, []string{"Go Engineer"}, titles(postings))
	require.Len(t, dropped, 3)
	require.Equal(t, "platforms", dropped[0].Filter)
	require.Equal(t, "Data Analyst", dropped[0].Posting.JobTitle)
	require.Equal(t, "companies", dropped[1].Filter)
	require.Equal(t, "exclude_file", dropped[2].Filter)

	require.Equal(t, 3, observed.FilterMessage("filter step").Len())
	require.Equal(t, 1, observed.FilterMessage("excluding postings by companies").Len())
}

func TestAppliedHistoryIsOptIn(t *testing.T) {
	t.Parallel()

	history := stubHistory{apps: []model.Application{
		{Platform: "LinkedIn", SourceURL: "https://linkedin.com/jobs/1", Status: model.StatusInterview},
		{Platform: "Indeed", SourceURL: "https://indeed.com/jobs/2", Status: model.StatusPending},
	}}

	steps := Default()
	postings := samplePostings()
	dropped, err := Run(context.Background(), &Config{}, Deps{History: history}, steps, postings)
	require.NoError(t, err)
	require.Empty(t, dropped)
	require.Equal(t, 4, postings.Len())

	EnableByName(steps, AppliedHistoryName)
	dropped, err = Run(context.Background(), &Config{}, Deps{History: history}, steps, postings)
	require.NoError(t, err)
	require.Len(t, dropped, 1)
	require.Equal(t, AppliedHistoryName, dropped[0].Filter)
	require.Equal(t, "https://linkedin.com/jobs/1", dropped[0].Posting.SourceURL)
	require.Equal(t, 3, postings.Len())
}

func TestAppliedHistoryErrors(t *testing.T) {
	t.Parallel()

	steps := []Filter{NewAppliedHistory()}
	EnableByName(steps, AppliedHistoryName)

	_, err := Run(context.Background(), nil, Deps{}, steps, samplePostings())
	require.ErrorContains(t, err, "application history is required")

	boom := errors.New("db is gone")
	_, err = Run(context.Background(), nil, Deps{History: stubHistory{err: boom}}, steps, samplePostings())
	require.ErrorIs(t, err, boom)
}

func TestExcludeFileMissingIsEmpty(t *testing.T) {
	t.Parallel()

	postings := samplePostings()
	cfg := &Config{ExcludeFile: filepath.Join(t.TempDir(), "absent.json")}
	dropped, err := Run(context.Background(), cfg, Deps{}, []Filter{NewExcludeFile()}, postings)
	require.NoError(t, err)
	require.Empty(t, dropped)
	require.Equal(t, 4, postings.Len())
}

func TestDisableAndDescribe(t *testing.T) {
	t.Parallel()

	steps := Default()
	DisableByName(steps, "companies", "disabled in test")

	postings := samplePostings()
	_, err := Run(context.Background(), &Config{Companies: []string{"Acme"}}, Deps{}, steps, postings)
	require.NoError(t, err)
	require.Equal(t, 4, postings.Len())

	statuses := Describe(steps)
	require.Len(t, statuses, 4)
	require.Equal(t, "companies", statuses[1].Name)
	require.False(t, statuses[1].Enabled)
	require.Equal(t, "disabled in test", statuses[1].Reason)
	require.Equal(t, "false", statuses[3].Details["exclude_applied"])
}

func TestSharedPipelineKeepsRunsApart(t *testing.T) {
	t.Parallel()

	steps := Default()
	configs := []struct {
		cfg  *Config
		want []string
	}{
		{cfg: &Config{Platforms: []string{"LinkedIn"}}, want: []string{"Go Engineer", "Backend Developer"}},
		{cfg: &Config{Platforms: []string{"Indeed", "Glassdoor"}, Companies: []string{"Globex"}}, want: []string{"Data Analyst"}},
		{cfg: &Config{Companies: []string{"Acme"}}, want: []string{"SRE", "Backend Developer"}},
	}

	var wg sync.WaitGroup
	for i := 0; i < 30; i++ {
		tc := configs[i%len(configs)]
		wg.Add(1)
		go func() {
			defer wg.Done()
			postings := samplePostings()
			_, err := Run(context.Background(), tc.cfg, Deps{}, steps, postings)
			if err != nil {
				t.Errorf("run: %v", err)
				return
			}
			if got := titles(postings); !slices.Equal(got, tc.want) {
				t.Errorf("config %+v kept %v, want %v", *tc.cfg, got, tc.want)
			}
		}()
	}
	wg.Wait()
}

func TestRunRejectsBlankPlatform(t *testing.T) {
	t.Parallel()

	postings := samplePostings()
	_, err := Run(context.Background(), &Config{Platforms: []string{"LinkedIn", " "}}, Deps{}, Default(), postings)
	require.ErrorContains(t, err, "platforms: empty platform name")
	require.Equal(t, 4, postings.Len())
}
