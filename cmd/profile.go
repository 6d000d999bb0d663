package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/job-tracker/internal/model"
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Show or update the profile used for matching",
}

var profileShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the saved profile",
	Args:  cobra.NoArgs,
	RunE: withEnv(func(ctx context.Context, _ *cobra.Command, e *env, _ []string) error {
		profile, err := e.store.CurrentProfile(ctx)
		if err != nil {
			return err
		}
		if profile == nil {
			fmt.Println("no profile saved yet")
			return nil
		}

		pretty, err := json.MarshalIndent(profile, "", "  ")
		if err != nil {
			return fmt.Errorf("encoding profile: %w", err)
		}
		fmt.Println(string(pretty))
		return nil
	}),
}

var profileSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Update the profile. Fields not given keep their saved value",
	Args:  cobra.NoArgs,
	RunE: withEnv(func(ctx context.Context, cmd *cobra.Command, e *env, _ []string) error {
		current, err := e.store.CurrentProfile(ctx)
		if err != nil {
			return err
		}

		profile := current
		if profile == nil {
			profile = &model.Profile{}
		}

		fields := map[string]*string{
			"name":        &profile.FullName,
			"email":       &profile.Email,
			"phone":       &profile.Phone,
			"resume":      &profile.ResumePath,
			"skills":      &profile.Skills,
			"experience":  &profile.Experience,
			"education":   &profile.Education,
			"preferences": &profile.Preferences,
		}
		for flag, target := range fields {
			if cmd.Flags().Changed(flag) {
				*target, _ = cmd.Flags().GetString(flag)
			}
		}

		if err := e.store.SaveProfile(ctx, *profile); err != nil {
			return err
		}

		e.logger.Info("profile saved", zap.Strings("skills", profile.SkillList()))
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(profileCmd)
	profileCmd.AddCommand(profileShowCmd, profileSetCmd)

	profileSetCmd.Flags().String("name", "", "full name")
	profileSetCmd.Flags().String("email", "", "email address")
	profileSetCmd.Flags().String("phone", "", "phone number")
	profileSetCmd.Flags().String("resume", "", "path to the resume file")
	profileSetCmd.Flags().String("skills", "", "comma separated skills, e.g. \"Go, SQL, Kubernetes\"")
	profileSetCmd.Flags().String("experience", "", "experience summary, e.g. \"5 years of backend development\"")
	profileSetCmd.Flags().String("education", "", "education summary")
	profileSetCmd.Flags().String("preferences", "", "job preferences")
}
