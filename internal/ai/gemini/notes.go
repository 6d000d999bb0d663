package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	_ "embed"

	"go.uber.org/zap"

	"github.com/spigell/job-tracker/internal/ai"
	"github.com/spigell/job-tracker/internal/utils"
)

const (
	systemInstruction   = "You are a concise career assistant. Always answer with a single JSON object."
	defaultMaxLogLength = 200
	maxNoteLength       = 500
)

//go:embed prompt.md
var promptTemplate string

type contentGenerator interface {
	GenerateContent(ctx context.Context, system, message string) (string, error)
}

// NoteWriter asks Gemini for a short application note.
type NoteWriter struct {
	generator contentGenerator
	logger    *zap.Logger
	maxLogLen int
}

var _ ai.NoteWriter = (*NoteWriter)(nil)

func NewNoteWriter(generator contentGenerator, logger *zap.Logger, maxLogLength int) *NoteWriter {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &NoteWriter{
		generator: generator,
		logger:    logger,
		maxLogLen: maxLogLength,
	}
}

func (w *NoteWriter) WriteNote(ctx context.Context, req ai.NoteRequest) (string, error) {
	profileJSON, err := json.MarshalIndent(map[string]any{
		"skills":      req.Profile.SkillList(),
		"experience":  req.Profile.Experience,
		"education":   req.Profile.Education,
		"preferences": req.Profile.Preferences,
	}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal profile payload: %w", err)
	}

	postingJSON, err := json.MarshalIndent(req.Posting, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal posting payload: %w", err)
	}

	prompt := buildPrompt(string(profileJSON), string(postingJSON), req.Breakdown.Score)

	w.logger.Debug("gemini note request",
		zap.String("source_url", req.Posting.SourceURL),
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", utils.TruncateForLog(prompt, w.maxLogLen)),
	)

	raw, err := w.generator.GenerateContent(ctx, systemInstruction, prompt)
	if err != nil {
		return "", err
	}

	w.logger.Debug("gemini note response",
		zap.String("source_url", req.Posting.SourceURL),
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", utils.TruncateForLog(raw, w.maxLogLen)),
	)

	return parseResponse(raw)
}

func buildPrompt(profileJSON, postingJSON string, score float64) string {
	template := promptTemplate
	if strings.TrimSpace(template) == "" {
		template = "Match score: {{SCORE}}\n\nProfile:\n{{PROFILE_JSON}}\n\nPosting:\n{{POSTING_JSON}}\n\nJSON Response:"
	}
	return strings.NewReplacer(
		"{{SCORE}}", strconv.FormatFloat(score, 'f', 1, 64),
		"{{PROFILE_JSON}}", profileJSON,
		"{{POSTING_JSON}}", postingJSON,
	).Replace(template)
}

func parseResponse(raw string) (string, error) {
	var data map[string]any
	if err := json.Unmarshal([]byte(extractJSON(raw)), &data); err != nil {
		return "", fmt.Errorf("parse gemini response: %w", err)
	}

	note, _ := data["note"].(string)
	note = strings.Join(strings.Fields(note), " ")
	if note == "" {
		return "", errors.New("gemini response has no note")
	}
	return utils.TruncateForLog(note, maxNoteLength), nil
}

func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	raw = strings.Trim(raw, "`")
	return strings.TrimSpace(raw)
}
