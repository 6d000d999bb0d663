package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/job-tracker/internal/apperrors"
	"github.com/spigell/job-tracker/internal/ledger"
	"github.com/spigell/job-tracker/internal/model"
)

var applicationsCmd = &cobra.Command{
	Use:     "applications",
	Aliases: []string{"apps"},
	Short:   "Inspect and update the application ledger",
}

var applicationsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List applications, newest first",
	Args:  cobra.NoArgs,
	RunE: withEnv(func(ctx context.Context, cmd *cobra.Command, e *env, _ []string) error {
		statusFlag, _ := cmd.Flags().GetString("status")
		platform, _ := cmd.Flags().GetString("platform")

		opts := ledger.ListOptions{Platform: platform}
		if statusFlag != "" {
			status, err := model.ParseStatus(statusFlag)
			if err != nil {
				return err
			}
			opts.Status = status
		}

		apps, err := e.ledger.List(ctx, opts)
		if err != nil {
			return err
		}
		return printApplications(apps)
	}),
}

var applicationsStatusCmd = &cobra.Command{
	Use:   "status <id> <status>",
	Short: "Move an application to another status",
	Args:  cobra.ExactArgs(2),
	RunE: withEnv(func(ctx context.Context, cmd *cobra.Command, e *env, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		status, err := model.ParseStatus(args[1])
		if err != nil {
			return err
		}

		var notes *string
		if cmd.Flags().Changed("notes") {
			value, _ := cmd.Flags().GetString("notes")
			notes = &value
		}

		return e.ledger.UpdateStatus(ctx, id, status, notes)
	}),
}

var applicationsNoteCmd = &cobra.Command{
	Use:   "note <id> <text>",
	Short: "Append a line to the notes of an application",
	Args:  cobra.ExactArgs(2),
	RunE: withEnv(func(ctx context.Context, _ *cobra.Command, e *env, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		return e.ledger.AppendNote(ctx, id, args[1])
	}),
}

var applicationsSummaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Show counts per status and platform and the recent applications",
	Args:  cobra.NoArgs,
	RunE: withEnv(func(ctx context.Context, _ *cobra.Command, e *env, _ []string) error {
		summary, err := e.ledger.Summary(ctx, e.config.Summary.WindowDays)
		if err != nil {
			return err
		}

		pretty, err := json.MarshalIndent(summary, "", "  ")
		if err != nil {
			return fmt.Errorf("encoding summary: %w", err)
		}
		fmt.Println(string(pretty))
		return nil
	}),
}

var applicationsClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every application from the ledger",
	Args:  cobra.NoArgs,
	RunE: withEnv(func(ctx context.Context, cmd *cobra.Command, e *env, _ []string) error {
		if yes, _ := cmd.Flags().GetBool("yes"); !yes {
			confirm := promptui.Prompt{
				Label:     "Delete all applications",
				IsConfirm: true,
			}
			if _, err := confirm.Run(); err != nil {
				e.logger.Info("exiting", zap.String("reason", "clear not confirmed"))
				return nil
			}
		}

		removed, err := e.ledger.Clear(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("removed %d applications\n", removed)
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(applicationsCmd)
	applicationsCmd.AddCommand(applicationsListCmd, applicationsStatusCmd, applicationsNoteCmd, applicationsSummaryCmd, applicationsClearCmd)

	applicationsListCmd.Flags().String("status", "", "only applications with this status")
	applicationsListCmd.Flags().String("platform", "", "only applications from this platform")
	applicationsStatusCmd.Flags().String("notes", "", "replace the notes")
	applicationsSummaryCmd.Flags().Int("window-days", 0, "recent window in days")
	applicationsClearCmd.Flags().BoolP("yes", "y", false, "do not ask for confirmation")

	viper.BindPFlag("summary.window-days", applicationsSummaryCmd.Flags().Lookup("window-days"))
}

// withEnv opens the configured database around run.
func withEnv(run func(ctx context.Context, cmd *cobra.Command, e *env, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		e, err := newEnv()
		if err != nil {
			return err
		}
		defer e.Close()

		return run(ctx, cmd, e, args)
	}
}

func parseID(raw string) (uint, error) {
	id, err := strconv.ParseUint(raw, 10, 0)
	if err != nil || id == 0 {
		return 0, apperrors.Validation("invalid application id %q", raw)
	}
	return uint(id), nil
}

func printApplications(apps []model.Application) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tAPPLIED\tSTATUS\tSCORE\tPLATFORM\tCOMPANY\tTITLE")
	for _, app := range apps {
		fmt.Fprintf(w, "%d\t%s\t%s\t%.1f\t%s\t%s\t%s\n",
			app.ID,
			app.DateApplied.Format(time.DateOnly),
			app.Status,
			app.MatchingScore,
			app.Platform,
			app.Company,
			app.JobTitle,
		)
	}
	return w.Flush()
}
