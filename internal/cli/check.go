package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/mealledger/internal/compliance"
)

// CheckOptions holds flags for the check command.
type CheckOptions struct {
	*RootOptions
	Filter     string
	SchoolYear string
	Week       int
}

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CheckOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check which expected delivery weeks each school is missing",
		Long: `Check which expected delivery weeks each school is missing.

The weeks due are the calendar's expected weeks up to the current ISO week,
in academic order. A school is compliant for a week when at least one row
exists for it. Schools matching a reference data exception are only
expected up to the exception's last week.

Example:
  mealledger check --year 2023-2024
  mealledger check --filter brigitte --week 14`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Filter, "filter", "", "only schools whose name contains this text")
	cmd.Flags().StringVar(&opts.SchoolYear, "year", "", "school year; empty counts weeks from every year")
	cmd.Flags().IntVar(&opts.Week, "week", 0, "evaluate as of this ISO week instead of the current one")

	return cmd
}

func runCheck(opts *CheckOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	if opts.Week < 0 || opts.Week > 53 {
		return formatter.Fail(ExitCommandError, ErrCodeInvalidArg, fmt.Sprintf("week %d out of range 1..53", opts.Week), nil)
	}

	sess, err := openSession(cmd.Context(), opts.RootOptions, formatter)
	if err != nil {
		return err
	}
	defer sess.Close()

	present, err := sess.store.PresentWeeks(cmd.Context(), opts.SchoolYear)
	if err != nil {
		return queryFailure(formatter, "failed to read delivered weeks", err)
	}

	exceptions := make([]compliance.Exception, len(sess.ref.Exceptions))
	for i, ex := range sess.ref.Exceptions {
		exceptions[i] = compliance.Exception{Match: ex.Match, MaxWeekInclusive: ex.MaxWeekInclusive}
	}
	checker := compliance.NewChecker(
		compliance.NewCalendar(sess.ref.Calendar.Weeks, sess.ref.Calendar.RolloverThreshold),
		compliance.WithExceptions(exceptions),
		compliance.WithCurrentWeek(opts.Week),
	)
	report := checker.Check(present, opts.Filter)

	if formatter.JSON() {
		return formatter.Success(report)
	}

	fmt.Fprintf(formatter.Writer, "Current week: %s (%d week(s) due)\n\n", report.CurrentWeek, len(report.WeeksDue))
	if len(report.Rows) == 0 {
		fmt.Fprintln(formatter.Writer, "No schools.")
		return nil
	}
	tw := formatter.Table()
	fmt.Fprintln(tw, "SCHOOL\tCOMPLIANCE\tVALID\tMISSING")
	for _, r := range report.Rows {
		name := r.SchoolName
		if r.IsException {
			name += " *"
		}
		missing := strings.Join(r.MissingWeeks, ", ")
		fmt.Fprintf(tw, "%s\t%s\t%d/%d\t%s\n", name, percentWord(r.Percentage), r.ValidCount, r.ExpectedCount, orDash(missing))
	}
	return tw.Flush()
}
