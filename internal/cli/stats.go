package cli

import (
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/mealledger/internal/store"
)

// NewStatsCommand creates the stats command.
func NewStatsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "stats",
		Short:         "Count stored rows and schools",
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

			stats, err := sess.store.Stats(cmd.Context())
			if err != nil {
				return queryFailure(formatter, "failed to read stats", err)
			}

			if formatter.JSON() {
				return formatter.Success(stats)
			}
			fmt.Fprintf(formatter.Writer, "Records: %d\nSchools: %d\n", stats.Records, stats.Schools)
			return nil
		},
	}
}

// NewValuesCommand creates the values command.
func NewValuesCommand(rootOpts *RootOptions) *cobra.Command {
	columns := store.DistinctColumns()

	return &cobra.Command{
		Use:   "values <column>",
		Short: "List the distinct values of a column",
		Long: fmt.Sprintf(`List the distinct values of a column, for building filters.

Columns: %s`, strings.Join(columns, ", ")),
		Args:          cobra.ExactArgs(1),
		ValidArgs:     columns,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(rootOpts, cmd.OutOrStdout(), cmd.ErrOrStderr())

			column := args[0]
			if !slices.Contains(columns, column) {
				return formatter.Fail(ExitCommandError, ErrCodeUnknownColumn,
					fmt.Sprintf("unknown column %q: must be one of %s", column, strings.Join(columns, ", ")), nil)
			}

			sess, err := openSession(cmd.Context(), rootOpts, formatter)
			if err != nil {
				return err
			}
			defer sess.Close()

			values, err := sess.store.Distinct(cmd.Context(), column)
			if err != nil {
				return queryFailure(formatter, "failed to read values", err)
			}

			if formatter.JSON() {
				return formatter.Success(values)
			}
			for _, v := range values {
				fmt.Fprintln(formatter.Writer, v)
			}
			return nil
		},
	}
}
