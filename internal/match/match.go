// Package match computes how well a posting fits the user profile.
package match

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/spigell/job-tracker/internal/model"
)

const (
	skillWeight      = 0.7
	experienceWeight = 0.3
	// neutralExperience is used when the posting states no required years.
	neutralExperience = 0.5
)

var (
	profileYearsRe  = regexp.MustCompile(`(?i)(\d+)\s*(?:years|yrs)`)
	requiredYearsRe = regexp.MustCompile(`(?i)(\d+)\+?\s*(?:years|yrs)`)
)

// Breakdown explains a score.
type Breakdown struct {
	Score               float64
	SkillRatio          float64
	ExperienceComponent float64
	ProfileYears        int
	RequiredYears       int
	MatchedSkills       []string
	TotalSkills         int
}

// Score returns the compatibility of posting and profile in [0, 100], rounded to one decimal.
func Score(posting model.Posting, profile model.Profile) float64 {
	return Explain(posting, profile).Score
}

// Explain computes the score together with its components.
func Explain(posting model.Posting, profile model.Profile) Breakdown {
	description := strings.ToLower(posting.Description)
	skills := profile.SkillList()

	b := Breakdown{
		TotalSkills:   len(skills),
		MatchedSkills: make([]string, 0, len(skills)),
		ProfileYears:  firstYears(profileYearsRe, profile.Experience),
		RequiredYears: firstYears(requiredYearsRe, posting.Description),
	}

	for _, skill := range skills {
		if strings.Contains(description, skill) {
			b.MatchedSkills = append(b.MatchedSkills, skill)
		}
	}
	if len(skills) > 0 {
		b.SkillRatio = float64(len(b.MatchedSkills)) / float64(len(skills))
	}

	b.ExperienceComponent = neutralExperience
	if b.RequiredYears > 0 {
		b.ExperienceComponent = math.Min(1.0, float64(b.ProfileYears)/float64(b.RequiredYears))
	}

	b.Score = round1((b.SkillRatio*skillWeight + b.ExperienceComponent*experienceWeight) * 100)
	return b
}

// Details converts the breakdown into a JSON-friendly map for storage.
func (b Breakdown) Details() map[string]any {
	matched := make([]any, 0, len(b.MatchedSkills))
	for _, s := range b.MatchedSkills {
		matched = append(matched, s)
	}
	return map[string]any{
		"skill_ratio":          b.SkillRatio,
		"experience_component": b.ExperienceComponent,
		"profile_years":        b.ProfileYears,
		"required_years":       b.RequiredYears,
		"matched_skills":       matched,
		"total_skills":         b.TotalSkills,
	}
}

func firstYears(re *regexp.Regexp, text string) int {
	m := re.FindStringSubmatch(text)
	if len(m) < 2 {
		return 0
	}
	years, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return years
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
