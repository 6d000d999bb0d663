package source

import (
	"context"
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/spigell/job-tracker/internal/apperrors"
	"github.com/spigell/job-tracker/internal/logger"
	"github.com/spigell/job-tracker/internal/model"
)

// File is a JobSource backed by a YAML or JSON list of postings.
// The document is either a list or a mapping with a "postings" list.
type File struct {
	path   string
	logger *zap.Logger
}

// NewFile creates a fixture source reading path on every fetch.
func NewFile(path string, log *zap.Logger) *File {
	return &File{
		path:   path,
		logger: logger.WithFields(log, zap.String("source", "file"), zap.String("path", path)),
	}
}

type fileDocument struct {
	Postings []map[string]any `yaml:"postings"`
}

// Fetch reads the file and returns postings on the requested platforms, in file order, up to Limit.
func (f *File) Fetch(ctx context.Context, q Query) ([]model.Posting, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, fmt.Errorf("reading postings file: %w", err)
	}

	items, err := parseItems(data)
	if err != nil {
		return nil, fmt.Errorf("parsing postings file %q: %w", f.path, err)
	}

	platforms := platformSet(q.Platforms)
	postings := make([]model.Posting, 0, len(items))
	for i, item := range items {
		posting, err := DecodePosting(item)
		if err != nil {
			return nil, fmt.Errorf("posting #%d: %w", i, err)
		}
		if platforms != nil {
			if _, ok := platforms[strings.ToLower(posting.Platform)]; !ok {
				continue
			}
		}
		postings = append(postings, posting)
		if q.Limit > 0 && len(postings) == q.Limit {
			break
		}
	}

	f.logger.Debug("postings loaded", zap.Int("items", len(items)), zap.Int("postings", len(postings)))
	return postings, nil
}

func parseItems(data []byte) ([]map[string]any, error) {
	var list []map[string]any
	if err := yaml.Unmarshal(data, &list); err == nil {
		return list, nil
	}

	var doc fileDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return doc.Postings, nil
}

// DecodePosting converts a loosely typed map into a Posting.
// date_posted accepts RFC3339 timestamps and plain dates.
func DecodePosting(item map[string]any) (model.Posting, error) {
	var posting model.Posting
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       stringToTimeHook,
		WeaklyTypedInput: true,
		Result:           &posting,
	})
	if err != nil {
		return model.Posting{}, fmt.Errorf("creating decoder: %w", err)
	}
	if err := decoder.Decode(item); err != nil {
		return model.Posting{}, apperrors.Validation("decoding posting: %v", err)
	}
	if strings.TrimSpace(posting.Platform) == "" || strings.TrimSpace(posting.SourceURL) == "" {
		return model.Posting{}, apperrors.Validation("posting %q must have platform and source_url", posting.JobTitle)
	}
	return posting, nil
}

func stringToTimeHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	if from.Kind() != reflect.String || to != reflect.TypeOf(time.Time{}) {
		return data, nil
	}
	s := strings.TrimSpace(data.(string))
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range []string{time.RFC3339, time.DateOnly} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return nil, fmt.Errorf("unsupported date %q", s)
}
