package match

import (
	"testing"

	"github.com/spigell/job-tracker/internal/model"
)

func TestScore(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		skills      string
		experience  string
		description string
		expected    float64
	}{
		{
			name:        "half skills and enough experience",
			skills:      "Python, SQL",
			experience:  "5 years",
			description: "We need Python. Requirements: 3+ years of experience.",
			expected:    65.0,
		},
		{
			name:        "empty skills falls back to experience only",
			skills:      "",
			experience:  "2 yrs in backend",
			description: "4+ years with Go",
			expected:    15.0,
		},
		{
			name:        "no stated years anywhere is neutral",
			skills:      "go, docker",
			experience:  "a lot",
			description: "Go and Docker and Kubernetes",
			expected:    85.0,
		},
		{
			name:        "no skills and no years",
			skills:      " , ,",
			experience:  "",
			description: "anything",
			expected:    15.0,
		},
		{
			name:        "case-insensitive matching and partial experience",
			skills:      "JavaScript, React, AWS",
			experience:  "1 Years",
			description: "Proficiency in: javascript, REACT. 4 YEARS required",
			expected:    54.2,
		},
		{
			name:        "profile years missing with requirement",
			skills:      "sql",
			experience:  "",
			description: "SQL, 3+ years",
			expected:    70.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			posting := model.Posting{Description: tt.description}
			profile := model.Profile{Skills: tt.skills, Experience: tt.experience}

			if got := Score(posting, profile); got != tt.expected {
				t.Fatalf("expected %.1f, got %.1f", tt.expected, got)
			}
		})
	}
}

func TestExplainComponents(t *testing.T) {
	t.Parallel()

	b := Explain(
		model.Posting{Description: "Python developer, 3+ years"},
		model.Profile{Skills: "Python, SQL", Experience: "5 years"},
	)

	if b.SkillRatio != 0.5 {
		t.Fatalf("expected skill ratio 0.5, got %v", b.SkillRatio)
	}
	if b.ExperienceComponent != 1.0 {
		t.Fatalf("expected experience component 1.0, got %v", b.ExperienceComponent)
	}
	if b.ProfileYears != 5 || b.RequiredYears != 3 {
		t.Fatalf("unexpected years: profile=%d required=%d", b.ProfileYears, b.RequiredYears)
	}
	if len(b.MatchedSkills) != 1 || b.MatchedSkills[0] != "python" {
		t.Fatalf("unexpected matched skills: %v", b.MatchedSkills)
	}
	if b.Details()["total_skills"] != 2 {
		t.Fatalf("expected details to carry total skills, got %v", b.Details())
	}
}

func TestScoreIsDeterministic(t *testing.T) {
	t.Parallel()

	posting := model.Posting{Description: "Docker, AWS, Terraform; 6+ yrs"}
	profile := model.Profile{Skills: "aws, terraform, gcp", Experience: "4 years"}

	first := Score(posting, profile)
	for i := 0; i < 50; i++ {
		if got := Score(posting, profile); got != first {
			t.Fatalf("score changed between calls: %v != %v", got, first)
		}
	}
}

func TestScoreMonotonicInMatchedSkills(t *testing.T) {
	t.Parallel()

	posting := model.Posting{Description: "Python, SQL, Docker, Kubernetes. 2+ years"}
	skills := []string{"rust", "python", "sql", "docker", "kubernetes"}

	profile := model.Profile{Experience: "1 years"}
	previous := Score(posting, profile)
	for _, skill := range skills[1:] {
		if profile.Skills == "" {
			profile.Skills = skills[0]
		}
		profile.Skills += ", " + skill
		got := Score(posting, profile)
		if got < previous {
			t.Fatalf("adding matching skill %q decreased score: %v -> %v", skill, previous, got)
		}
		previous = got
	}
}

func TestScoreBounds(t *testing.T) {
	t.Parallel()

	full := Score(
		model.Posting{Description: "go 1 years"},
		model.Profile{Skills: "go", Experience: "10 years"},
	)
	if full != 100 {
		t.Fatalf("expected 100, got %v", full)
	}

	empty := Score(model.Posting{}, model.Profile{})
	if empty < 0 || empty > 100 {
		t.Fatalf("score out of range: %v", empty)
	}
}
