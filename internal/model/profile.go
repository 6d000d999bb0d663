package model

import (
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/spigell/job-tracker/internal/apperrors"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Profile is the single active user profile used for scoring and applications.
type Profile struct {
	ID          uint      `gorm:"primaryKey" json:"-" yaml:"-"`
	FullName    string    `json:"full_name" yaml:"full_name" validate:"required"`
	Email       string    `json:"email" yaml:"email" validate:"required,email"`
	Phone       string    `json:"phone,omitempty" yaml:"phone"`
	ResumePath  string    `json:"resume_path,omitempty" yaml:"resume_path"`
	Skills      string    `json:"skills" yaml:"skills"`
	Experience  string    `json:"experience" yaml:"experience"`
	Education   string    `json:"education,omitempty" yaml:"education"`
	Preferences string    `json:"preferences,omitempty" yaml:"preferences"`
	UpdatedAt   time.Time `json:"updated_at" yaml:"-"`
}

// SkillList splits the comma separated skills into a lower-cased set, keeping first-seen order.
func (p Profile) SkillList() []string {
	parts := strings.Split(p.Skills, ",")
	skills := make([]string, 0, len(parts))
	seen := make(map[string]struct{}, len(parts))
	for _, part := range parts {
		skill := strings.ToLower(strings.TrimSpace(part))
		if skill == "" {
			continue
		}
		if _, ok := seen[skill]; ok {
			continue
		}
		seen[skill] = struct{}{}
		skills = append(skills, skill)
	}
	return skills
}

// Validate checks the fields required to save a profile.
func (p Profile) Validate() error {
	err := validate.Struct(p)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		fields := make([]string, 0, len(fieldErrs))
		for _, fe := range fieldErrs {
			fields = append(fields, strings.ToLower(fe.Field())+" ("+fe.Tag()+")")
		}
		return apperrors.Validation("profile: invalid %s", strings.Join(fields, ", "))
	}

	return apperrors.Validation("profile: %v", err)
}
