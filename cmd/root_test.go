package cmd

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"

	"github.com/spigell/job-tracker/internal/apperrors"
)

func resetViper(t *testing.T) {
	t.Helper()
	viper.Reset()
	setDefaults(viper.GetViper())
	t.Cleanup(func() {
		viper.Reset()
		setDefaults(viper.GetViper())
	})
}

func TestGetConfigDefaults(t *testing.T) {
	resetViper(t)

	config, err := getConfig()
	require.NoError(t, err)
	require.Equal(t, "generator", config.Source.Kind)
	require.Equal(t, 30*time.Second, config.Source.FetchTimeout)
	require.Equal(t, []string{"LinkedIn", "Indeed", "Glassdoor"}, config.Search.Platforms)
	require.Equal(t, 20, config.Search.Limit)
	require.Equal(t, 70.0, config.AutoApply.MinMatchScore)
	require.Equal(t, 7, config.Summary.WindowDays)
}

func TestGetConfigValidation(t *testing.T) {
	tests := map[string]func(){
		"file source without file": func() { viper.Set("source.kind", "file") },
		"unknown source":           func() { viper.Set("source.kind", "scraper") },
		"score out of range":       func() { viper.Set("auto-apply.min-match-score", 120) },
		"zero limit":               func() { viper.Set("search.limit", 0) },
		"empty platforms":          func() { viper.Set("search.platforms", []string{}) },
		"unknown ai provider":      func() { viper.Set("ai.provider", "openai") },
	}

	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			resetViper(t)
			mutate()
			_, err := getConfig()
			require.Error(t, err)
		})
	}
}

func TestGetConfigDurationsFromStrings(t *testing.T) {
	resetViper(t)
	viper.Set("source.delay", "250ms")
	viper.Set("source.fetch-timeout", "5s")

	config, err := getConfig()
	require.NoError(t, err)
	require.Equal(t, 250*time.Millisecond, config.Source.Delay)
	require.Equal(t, 5*time.Second, config.Source.FetchTimeout)
}

func TestParseID(t *testing.T) {
	t.Parallel()

	id, err := parseID("42")
	require.NoError(t, err)
	require.EqualValues(t, 42, id)

	for _, raw := range []string{"0", "-1", "abc", ""} {
		_, err := parseID(raw)
		require.ErrorIs(t, err, apperrors.ErrValidation, raw)
	}
}
