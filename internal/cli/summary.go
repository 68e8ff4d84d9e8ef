package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/mealledger/internal/aggregate"
)

// SummaryOptions holds flags for the summary command.
type SummaryOptions struct {
	*RootOptions
	filterFlags
}

// NewSummaryCommand creates the summary command.
func NewSummaryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SummaryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Summarise deliveries per school",
		Long: `Summarise deliveries per base school and school type.

Day totals are strike-adjusted: a weekday registered as a strike day for a
school year and week contributes zero.

Example:
  mealledger summary --year 2023-2024
  mealledger summary --territory SOUTH --week 12`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSummary(opts, cmd)
		},
	}

	opts.register(cmd)
	return cmd
}

func runSummary(opts *SummaryOptions, cmd *cobra.Command) error {
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

	rows, err := sess.engine().Summary(cmd.Context(), filter)
	if err != nil {
		return queryFailure(formatter, "failed to summarise deliveries", err)
	}
	if rows == nil {
		rows = []aggregate.SummaryRow{}
	}

	if formatter.JSON() {
		return formatter.Success(rows)
	}

	if len(rows) == 0 {
		fmt.Fprintln(formatter.Writer, "No deliveries.")
		return nil
	}
	tw := formatter.Table()
	fmt.Fprintln(tw, "TERRITORY\tSCHOOL\tTYPE\tWEEKS\tMON\tTUE\tTHU\tFRI\tTOTAL")
	var grand int64
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\t%d\t%d\t%d\n",
			r.Territory, r.BaseSchool, r.SchoolType, r.Weeks,
			r.Monday, r.Tuesday, r.Thursday, r.Friday, r.GrandTotal)
		grand += r.GrandTotal
	}
	fmt.Fprintf(tw, "\t\t\t\t\t\t\t\t%d\n", grand)
	return tw.Flush()
}
