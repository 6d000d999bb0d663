package utils

import "testing"

func TestTruncateForLog(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		in    string
		limit int
		want  string
	}{
		{name: "zero limit drops the text", in: "Senior Data Engineer", limit: 0, want: ""},
		{name: "negative limit drops the text", in: "Senior Data Engineer", limit: -3, want: ""},
		{name: "fits", in: "Data Analyst", limit: 40, want: "Data Analyst"},
		{name: "cut at the limit", in: "Machine Learning Engineer", limit: 7, want: "Machine..."},
		{name: "whitespace trimmed before cutting", in: "\n  Python, SQL  \t", limit: 11, want: "Python, SQL"},
		{name: "counts runes not bytes", in: "Zürich Köln", limit: 6, want: "Zürich..."},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := TruncateForLog(tc.in, tc.limit); got != tc.want {
				t.Fatalf("TruncateForLog(%q, %d) = %q, want %q", tc.in, tc.limit, got, tc.want)
			}
		})
	}
}
