package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/roach88/mealledger/internal/ledger"
)

// NewStrikeCommand creates the strike command group.
func NewStrikeCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "strike",
		Short: "Manage strike days excluded from summaries",
		Long: `Manage strike days.

A strike day is a (school year, week, weekday) on which meals were ordered
but not served. Summaries and territory roll-ups count zero for that day;
stored rows keep their counts.`,
	}
	cmd.AddCommand(newStrikeAddCommand(rootOpts))
	cmd.AddCommand(newStrikeRemoveCommand(rootOpts))
	cmd.AddCommand(newStrikeListCommand(rootOpts))
	return cmd
}

// StrikeAddOptions holds flags for the strike add command.
type StrikeAddOptions struct {
	*RootOptions
	Date string
}

// StrikeAddResult is the outcome of strike add.
type StrikeAddResult struct {
	ID       int64            `json:"id"`
	Inserted bool             `json:"inserted"`
	Strike   ledger.StrikeDay `json:"strike"`
}

func newStrikeAddCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &StrikeAddOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "add <school-year> <week> <weekday>",
		Short: "Register a strike day",
		Long: `Register a strike day. Registering the same day twice is a no-op.

Example:
  mealledger strike add 2023-2024 12 monday --date 18/03/2024`,
		Args:          cobra.ExactArgs(3),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

			day, err := ledger.ParseWeekday(args[2])
			if err != nil {
				return formatter.Fail(ExitCommandError, ErrCodeInvalidArg, "invalid weekday", err)
			}
			week, err := ledger.NormalizeWeek(args[1])
			if err != nil {
				return formatter.Fail(ExitCommandError, ErrCodeInvalidArg, "invalid week", err)
			}

			sess, err := openSession(cmd.Context(), opts.RootOptions, formatter)
			if err != nil {
				return err
			}
			defer sess.Close()

			strike := ledger.StrikeDay{SchoolYear: args[0], WeekNumber: week, Day: day, Date: opts.Date}
			id, inserted, err := sess.store.AddStrike(cmd.Context(), strike)
			if err != nil {
				return formatter.Fail(ExitFailure, ErrCodeDatabase, "failed to register strike", err)
			}
			strike.ID = id

			if formatter.JSON() {
				return formatter.Success(StrikeAddResult{ID: id, Inserted: inserted, Strike: strike})
			}
			if inserted {
				fmt.Fprintf(formatter.Writer, "%s Strike %d registered: %s week %s %s\n", okMark(), id, strike.SchoolYear, week, day)
			} else {
				fmt.Fprintf(formatter.Writer, "Strike %d already registered: %s week %s %s\n", id, strike.SchoolYear, week, day)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.Date, "date", "", "calendar date of the strike, for reference")
	return cmd
}

func newStrikeRemoveCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "remove <id>",
		Short:         "Remove a strike day by id",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(rootOpts, cmd.OutOrStdout(), cmd.ErrOrStderr())

			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return formatter.Fail(ExitCommandError, ErrCodeInvalidArg, fmt.Sprintf("invalid strike id %q", args[0]), nil)
			}

			sess, err := openSession(cmd.Context(), rootOpts, formatter)
			if err != nil {
				return err
			}
			defer sess.Close()

			if err := sess.store.RemoveStrike(cmd.Context(), id); err != nil {
				return queryFailure(formatter, "failed to remove strike", err)
			}

			if formatter.JSON() {
				return formatter.Success(map[string]int64{"removed": id})
			}
			fmt.Fprintf(formatter.Writer, "%s Strike %d removed\n", okMark(), id)
			return nil
		},
	}
}

func newStrikeListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "list",
		Short:         "List strike days, most recent first",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(rootOpts, cmd.OutOrStdout(), cmd.ErrOrStderr())

			sess, err := openSession(cmd.Context(), rootOpts, formatter)
			if err != nil {
				return err
			}
			defer sess.Close()

			strikes, err := sess.store.ListStrikes(cmd.Context())
			if err != nil {
				return queryFailure(formatter, "failed to list strikes", err)
			}

			if formatter.JSON() {
				return formatter.Success(strikes)
			}
			if len(strikes) == 0 {
				fmt.Fprintln(formatter.Writer, "No strike days.")
				return nil
			}
			tw := formatter.Table()
			fmt.Fprintln(tw, "ID\tYEAR\tWEEK\tDAY\tDATE")
			for _, s := range strikes {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", s.ID, s.SchoolYear, s.WeekNumber, s.Day, orDash(s.Date))
			}
			return tw.Flush()
		},
	}
}
