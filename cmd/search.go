package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/job-tracker/internal/ai"
	"github.com/spigell/job-tracker/internal/ai/gemini"
	"github.com/spigell/job-tracker/internal/apperrors"
	"github.com/spigell/job-tracker/internal/filtering"
	"github.com/spigell/job-tracker/internal/logger"
	"github.com/spigell/job-tracker/internal/model"
	"github.com/spigell/job-tracker/internal/search"
	"github.com/spigell/job-tracker/internal/secrets"
	"github.com/spigell/job-tracker/internal/source"
)

const (
	PromptYes                 = "Yes"
	PromptNo                  = "No"
	PromptBack                = "back"
	PromptReportByCompany     = "Report by company"
	PromptManualApply         = "Apply postings in manual mode"
	PromptAppendToExcludeFile = "Append all postings to exclude file"
	PromptPostingsToFile      = "Dump postings to file"
)

var errExit = errors.New("exit requested")

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Search postings, rank them against the saved profile and apply",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runSearch(cmd)
	},
}

func init() {
	rootCmd.AddCommand(searchCmd)

	searchCmd.Flags().StringP("keywords", "k", "", "search keywords")
	searchCmd.Flags().StringP("location", "l", "", "preferred location")
	searchCmd.Flags().StringSlice("platforms", nil, "platforms to search")
	searchCmd.Flags().Int("limit", 0, "maximum number of postings to fetch")
	searchCmd.Flags().StringP("exclude-file", "e", "", "special file with postings to exclude. Default is unset.")
	searchCmd.Flags().BoolP("auto-approve", "y", false, "do not ask for confirmation, apply when auto-apply is enabled")
	searchCmd.Flags().Bool("exclude-applied", false, "drop postings already present in the application ledger")

	viper.BindPFlag("search.keywords", searchCmd.Flags().Lookup("keywords"))
	viper.BindPFlag("search.location", searchCmd.Flags().Lookup("location"))
	viper.BindPFlag("search.platforms", searchCmd.Flags().Lookup("platforms"))
	viper.BindPFlag("search.limit", searchCmd.Flags().Lookup("limit"))
	viper.BindPFlag("exclude.file", searchCmd.Flags().Lookup("exclude-file"))
}

func runSearch(cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	e, err := newEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	e.logger.Info("starting the job-tracker", zap.String("version", resolveVersion()))

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(e.config, "", "  ")
	e.logger.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	profile, err := e.store.CurrentProfile(ctx)
	if err != nil {
		return err
	}
	if profile == nil {
		e.logger.Error("no profile saved", zap.String("hint", "run `job-tracker profile set` first"))
		return errors.New("profile is required")
	}

	orchestrator := search.New(newSource(e), e.ledger, e.logger, search.Options{
		FetchTimeout: e.config.Source.FetchTimeout,
		Workers:      e.config.Search.Workers,
		Exclude: filtering.Config{
			Companies:   e.config.Exclude.Companies,
			ExcludeFile: e.config.Exclude.File,
		},
		Notes: newNoteWriter(ctx, e.config.AI, e.logger),
	})

	excludeApplied, _ := cmd.Flags().GetBool("exclude-applied")
	if excludeApplied {
		filtering.EnableByName(orchestrator.Filters(), filtering.AppliedHistoryName)
	}
	for _, status := range filtering.Describe(orchestrator.Filters()) {
		e.logger.Debug("filter", zap.String("name", status.Name), zap.Bool("enabled", status.Enabled), zap.Any("details", status.Details))
	}

	req := search.Request{
		Keywords:  e.config.Search.Keywords,
		Location:  e.config.Search.Location,
		Platforms: e.config.Search.Platforms,
		Limit:     e.config.Search.Limit,
		Profile:   *profile,
		AutoApply: search.AutoApply{
			Enabled:              e.config.AutoApply.Enabled,
			MinMatchScore:        e.config.AutoApply.MinMatchScore,
			MaxDailyApplications: e.config.AutoApply.MaxDailyApplications,
		},
	}

	res, err := orchestrator.Evaluate(ctx, req)
	if err != nil {
		return err
	}

	if res.Postings.Len() == 0 {
		e.logger.Info("exiting", zap.String("reason", "no postings left after filters"))
		return nil
	}

	autoApprove, _ := cmd.Flags().GetBool("auto-approve")
	if autoApprove {
		if !req.AutoApply.Enabled {
			logRanked(e.logger, res.Postings)
			e.logger.Info("exiting", zap.String("reason", "auto-apply is disabled"))
			return nil
		}
		return applyRanked(ctx, e, orchestrator, req, res)
	}

	prompt := promptui.Select{
		Label: "Proceed?",
		Items: []string{PromptYes, PromptNo, PromptReportByCompany, PromptManualApply, PromptPostingsToFile},
	}

	for {
		logRanked(e.logger, res.Postings)

		_, action, err := prompt.Run()
		if err != nil {
			return fmt.Errorf("prompt: %w", err)
		}

		err = handleAction(ctx, action, e, orchestrator, req, res)
		if errors.Is(err, errExit) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

func handleAction(ctx context.Context, action string, e *env, o *search.Orchestrator, req search.Request, res *search.Result) error {
	switch action {
	case PromptYes:
		// The user approved, so apply even when auto-apply is off in the config.
		req.AutoApply.Enabled = true
		if err := applyRanked(ctx, e, o, req, res); err != nil {
			return err
		}
		return errExit
	case PromptNo:
		e.logger.Info("exiting", zap.String("reason", "got no from prompt"))
		return errExit
	case PromptManualApply:
		return manualApply(ctx, e, o, req, res)
	case PromptReportByCompany:
		pretty, _ := json.MarshalIndent(res.Postings.ReportByCompany(), "", "  ")
		e.logger.Info(string(pretty), zap.Int("postings count", res.Postings.Len()))
		return nil
	case PromptPostingsToFile:
		filename, err := res.Postings.DumpToTmpFile()
		if err != nil {
			return fmt.Errorf("dump results to file: %w", err)
		}
		e.logger.Info("dumping result to file", zap.String("filename", filename))
		return nil
	default:
		return fmt.Errorf("invalid action: %s", action)
	}
}

func applyRanked(ctx context.Context, e *env, o *search.Orchestrator, req search.Request, res *search.Result) error {
	err := o.Apply(ctx, req, res)

	for _, skipped := range res.Skipped {
		e.logger.Debug("skipped posting",
			append(logger.PostingFields(skipped.Posting),
				zap.String("reason", string(skipped.Reason)),
				zap.String("detail", skipped.Detail),
				zap.Float64("score", skipped.Score),
			)...,
		)
	}
	e.logger.Info("search finished",
		zap.String(logger.FieldRunID, res.RunID),
		zap.Int("applied", len(res.Applied)),
		zap.Int("below_min_score", len(res.SkippedBy(search.SkipBelowMinScore))),
		zap.Int("daily_limit_reached", len(res.SkippedBy(search.SkipDailyLimitReached))),
		zap.Int("already_applied", len(res.SkippedBy(search.SkipAlreadyApplied))),
		zap.Int("filtered", len(res.SkippedBy(search.SkipFiltered))),
	)
	return err
}

func manualApply(ctx context.Context, e *env, o *search.Orchestrator, req search.Request, res *search.Result) error {
	excludeFile := strings.TrimSpace(e.config.Exclude.File)

	for {
		items := make([]string, 0, res.Postings.Len()+2)
		for _, s := range res.Postings {
			items = append(items, fmt.Sprintf("%s %5.1f %s / %s / %s",
				s.Posting.SourceURL, s.Score, s.Posting.JobTitle, s.Posting.Company, s.Posting.Platform,
			))
		}

		if excludeFile != "" && res.Postings.Len() != 0 {
			items = append(items, PromptAppendToExcludeFile)
		}

		postingPrompt := promptui.Select{
			Label: "Choose a posting and press ENTER",
			Items: append(items, PromptBack),
			Size:  15,
		}

		_, selected, err := postingPrompt.Run()
		if err != nil {
			return err
		}

		switch selected {
		case PromptBack:
			return nil
		case PromptAppendToExcludeFile:
			excluded, err := model.LoadExcludedPostings(excludeFile)
			if err != nil {
				return err
			}

			excluded.Append(res.Postings.ToExcluded(e.ledger.Today()))

			if err = excluded.ToFile(excludeFile); err != nil {
				return err
			}

			e.logger.Info("appended to exclude file", zap.String("filename", excludeFile))

			res.Postings = res.Postings.Without(excluded.Keys())
		default:
			url := strings.Split(selected, " ")[0]

			chosen := res.Postings.FindByURL(url)
			if chosen == nil {
				return fmt.Errorf("there is no such posting %s", url)
			}

			id, err := o.ApplyOne(ctx, *chosen, req.Profile)
			switch {
			case apperrors.IsRecoverable(err):
				e.logger.Warn("already applied", append(logger.PostingFields(chosen.Posting), zap.Error(err))...)
			case err != nil:
				return err
			default:
				res.Applied = append(res.Applied, id)
				e.logger.Info("successfully applied to posting",
					append(logger.PostingFields(chosen.Posting), zap.Uint("application_id", id))...,
				)
			}

			res.Postings = res.Postings.Without(map[string]struct{}{chosen.Posting.Key(): {}})
		}
	}
}

func logRanked(log *zap.Logger, ranked search.Ranked) {
	for i, s := range ranked {
		log.Info("posting",
			append(logger.PostingFields(s.Posting),
				zap.Int("rank", i+1),
				zap.Float64("score", s.Score),
				zap.Strings("matched_skills", s.Breakdown.MatchedSkills),
			)...,
		)
	}
	log.Info("current list of postings", zap.Int("count", ranked.Len()))
}

func newSource(e *env) source.JobSource {
	if e.config.Source.Kind == "file" {
		return source.NewFile(e.config.Source.File, e.logger)
	}
	return source.NewGenerator(source.GeneratorOptions{
		Seed:  e.config.Source.Seed,
		Delay: e.config.Source.Delay,
	}, e.logger)
}

// newNoteWriter returns nil when AI notes are disabled or cannot be set up; the default note is used then.
func newNoteWriter(ctx context.Context, cfg *AIConfig, log *zap.Logger) ai.NoteWriter {
	if cfg == nil || !cfg.Enabled {
		return nil
	}
	if cfg.Gemini == nil {
		log.Warn("skipping AI notes", zap.String("reason", "gemini configuration is missing"))
		return nil
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name: "gemini api key",
		File: cfg.Gemini.APIKeyFile,
		Env:  "GEMINI_API_KEY",
	})
	if err != nil {
		log.Warn("skipping AI notes", zap.Error(err), zap.String("hint", "set ai.gemini.api-key-file or GEMINI_API_KEY"))
		return nil
	}

	aiLogger := logger.WithCommonFields(log, "gemini", cfg.Gemini.Model)

	generator, err := gemini.NewGenerator(ctx, apiKey, cfg.Gemini.Model, cfg.Gemini.MaxRetries, aiLogger)
	if err != nil {
		log.Warn("skipping AI notes", zap.Error(err))
		return nil
	}

	return gemini.NewNoteWriter(generator, aiLogger, cfg.Gemini.MaxLogLength)
}
