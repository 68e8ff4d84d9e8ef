package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/mealledger/internal/aggregate"
	"github.com/roach88/mealledger/internal/ledger"
)

// NewTerritoryCommand creates the territory command group.
func NewTerritoryCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "territory",
		Short: "Inspect territories and their regime roll-ups",
	}
	cmd.AddCommand(newTerritoryListCommand(rootOpts))
	cmd.AddCommand(newTerritoryRollupCommand(rootOpts))
	return cmd
}

func newTerritoryListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "list",
		Short:         "List territory definitions from the reference data",
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

			territories := sess.store.Territories()
			if territories == nil {
				territories = []ledger.Territory{}
			}
			if formatter.JSON() {
				return formatter.Success(territories)
			}

			tw := formatter.Table()
			fmt.Fprintln(tw, "LOT\tTERRITORY\tSCHOOLS")
			for _, t := range territories {
				fmt.Fprintf(tw, "%d\t%s\t%s\n", t.Lot, t.Name, strings.Join(t.Schools, ", "))
			}
			return tw.Flush()
		},
	}
}

// RollupOptions holds flags for the territory rollup command.
type RollupOptions struct {
	*RootOptions
	SchoolYear string
	Week       string
}

func newTerritoryRollupCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RollupOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "rollup <territory>",
		Short: "Per-regime totals across a territory's member schools",
		Long: `Per-regime totals across a territory's member schools.

Membership is the territory's declared school list. Totals are
strike-adjusted.

Example:
  mealledger territory rollup "MN : Meinau, Neuhof" --year 2023-2024`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRollup(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.SchoolYear, "year", "", "school year, e.g. 2023-2024")
	cmd.Flags().StringVar(&opts.Week, "week", "", "week number")
	return cmd
}

func runRollup(opts *RollupOptions, name string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	ff := filterFlags{SchoolYear: opts.SchoolYear, Week: opts.Week}
	filter, err := ff.filter()
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeInvalidArg, "invalid filter", err)
	}

	sess, err := openSession(cmd.Context(), opts.RootOptions, formatter)
	if err != nil {
		return err
	}
	defer sess.Close()

	rollup, err := sess.engine().TerritoryRollup(cmd.Context(), name, filter)
	if err != nil {
		return queryFailure(formatter, fmt.Sprintf("failed to roll up territory %q", name), err)
	}

	if formatter.JSON() {
		return formatter.Success(rollup)
	}
	printRollup(formatter, rollup)
	return nil
}

func printRollup(f *OutputFormatter, r *aggregate.Rollup) {
	fmt.Fprintf(f.Writer, "Territory: %s\n\n", r.Territory)
	if len(r.Rows) == 0 {
		fmt.Fprintln(f.Writer, "No deliveries.")
		return
	}
	tw := f.Table()
	fmt.Fprintln(tw, "REGIME\tMON\tTUE\tTHU\tFRI\tTOTAL")
	for _, row := range r.Rows {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%d\n", row.Regime, row.Monday, row.Tuesday, row.Thursday, row.Friday, row.Total)
	}
	fmt.Fprintf(tw, "\t\t\t\t\t%d\n", r.GrandTotal)
	tw.Flush()
}
