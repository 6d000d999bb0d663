package secrets

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	keyFile := filepath.Join(dir, "key")
	if err := os.WriteFile(keyFile, []byte("  from-file\n"), 0o600); err != nil {
		t.Fatalf("write key: %v", err)
	}
	emptyFile := filepath.Join(dir, "empty")
	if err := os.WriteFile(emptyFile, []byte("\n"), 0o600); err != nil {
		t.Fatalf("write empty: %v", err)
	}
	t.Setenv("JOB_TRACKER_TEST_KEY", " from-env ")

	tests := []struct {
		name    string
		src     Source
		want    string
		wantErr string
	}{
		{name: "file wins", src: Source{File: keyFile, Env: "JOB_TRACKER_TEST_KEY", Value: "inline"}, want: "from-file"},
		{name: "env before value", src: Source{Env: "JOB_TRACKER_TEST_KEY", Value: "inline"}, want: "from-env"},
		{name: "unset env falls back to value", src: Source{Env: "JOB_TRACKER_TEST_MISSING", Value: " inline "}, want: "inline"},
		{name: "empty file", src: Source{Name: "gemini api key", File: emptyFile}, wantErr: "is empty"},
		{name: "missing file", src: Source{File: filepath.Join(dir, "nope")}, wantErr: "reading secret"},
		{name: "nothing configured", src: Source{Name: "gemini api key"}, wantErr: "gemini api key is not configured"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Load(tt.src)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, got)
			}
		})
	}
}
