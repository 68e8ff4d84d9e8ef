package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/mealledger/internal/ledger"
)

// ListOptions holds flags for the list command.
type ListOptions struct {
	*RootOptions
	filterFlags
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ListOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored delivery rows",
		Long: `List stored delivery rows with their territory.

Rows are ordered by week, base school, school type and regime. Counts are
shown as stored; strike days are applied by summary and territory rollup only.

Example:
  mealledger list --year 2023-2024 --week 12
  mealledger list --territory NORTH --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(opts, cmd)
		},
	}

	opts.register(cmd)
	return cmd
}

func runList(opts *ListOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	filter, err := opts.filter()
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeInvalidArg, "invalid filter", err)
	}

	sess, err := openSession(cmd.Context(), opts.RootOptions, formatter)
	if err != nil {
		return err
	}
	defer sess.Close()

	rows, err := sess.engine().List(cmd.Context(), filter)
	if err != nil {
		return queryFailure(formatter, "failed to list deliveries", err)
	}
	if rows == nil {
		rows = []ledger.DeliveryRecord{}
	}

	if formatter.JSON() {
		return formatter.Success(rows)
	}

	if len(rows) == 0 {
		fmt.Fprintln(formatter.Writer, "No deliveries.")
		return nil
	}
	tw := formatter.Table()
	fmt.Fprintln(tw, "YEAR\tWEEK\tSCHOOL\tTYPE\tREGIME\tMON\tTUE\tTHU\tFRI\tTOTAL\tTERRITORY")
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\t%d\t%d\t%d\t%d\t%s\n",
			orDash(r.SchoolYear), r.WeekNumber, r.BaseSchool, r.SchoolType, r.Regime,
			r.Monday, r.Tuesday, r.Thursday, r.Friday, r.Total, r.Territory)
	}
	return tw.Flush()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
