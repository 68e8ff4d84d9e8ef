package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/mealledger/internal/ledger"
)

// NewSchoolsCommand creates the schools command group.
func NewSchoolsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schools",
		Short: "Inspect and assign school territories",
	}
	cmd.AddCommand(newSchoolsListCommand(rootOpts))
	cmd.AddCommand(newSchoolsAssignCommand(rootOpts))
	return cmd
}

func newSchoolsListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "list",
		Short:         "List schools with their territory",
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

			schools, err := sess.store.ListSchools(cmd.Context())
			if err != nil {
				return queryFailure(formatter, "failed to list schools", err)
			}

			if formatter.JSON() {
				return formatter.Success(schools)
			}
			if len(schools) == 0 {
				fmt.Fprintln(formatter.Writer, "No schools.")
				return nil
			}
			tw := formatter.Table()
			fmt.Fprintln(tw, "TERRITORY\tSCHOOL")
			for _, s := range schools {
				fmt.Fprintf(tw, "%s\t%s\n", s.Territory, s.SchoolName)
			}
			return tw.Flush()
		},
	}
}

func newSchoolsAssignCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "assign <school> <territory>",
		Short: "Assign a school to a territory",
		Long: `Assign a school to a territory.

The assignment is authoritative: it takes precedence over the reference
data member lists and over name matching, and survives later syncs.
The territory must be defined in the reference data.

Example:
  mealledger schools assign "SCHOOL ALPHA ANNEX" NORTH`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(rootOpts, cmd.OutOrStdout(), cmd.ErrOrStderr())
			school, territory := args[0], args[1]

			sess, err := openSession(cmd.Context(), rootOpts, formatter)
			if err != nil {
				return err
			}
			defer sess.Close()

			if _, ok := sess.ref.Territory(territory); !ok {
				return formatter.Fail(ExitCommandError, ErrCodeNotFound,
					fmt.Sprintf("unknown territory %q", territory), nil)
			}
			if err := sess.store.AssignTerritory(cmd.Context(), school, territory); err != nil {
				return formatter.Fail(ExitFailure, ErrCodeDatabase, "failed to assign territory", err)
			}

			if formatter.JSON() {
				return formatter.Success(ledger.SchoolDetail{SchoolName: school, Territory: territory})
			}
			fmt.Fprintf(formatter.Writer, "%s %s assigned to %s\n", okMark(), school, territory)
			return nil
		},
	}
}

// SyncResult counts schools per territory after a sync.
type SyncResult struct {
	Schools     int            `json:"schools"`
	Territories map[string]int `json:"territories"`
}

// NewSyncCommand creates the sync command.
func NewSyncCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Reconcile school territories with the reference data",
		Long: `Reconcile school territories with the reference data.

Member schools are reassigned to their declared territory, recorded
assignments are reapplied, and delivered schools still unassigned are
resolved by name. The ledger is also synchronised every time it is opened;
this command reports the outcome.`,
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

			if err := sess.store.SyncTerritories(cmd.Context()); err != nil {
				return formatter.Fail(ExitFailure, ErrCodeDatabase, "failed to sync territories", err)
			}
			schools, err := sess.store.ListSchools(cmd.Context())
			if err != nil {
				return queryFailure(formatter, "failed to list schools", err)
			}

			result := SyncResult{Schools: len(schools), Territories: map[string]int{}}
			for _, s := range schools {
				result.Territories[s.Territory]++
			}

			if formatter.JSON() {
				return formatter.Success(result)
			}
			fmt.Fprintf(formatter.Writer, "%s %d school(s) synchronised\n\n", okMark(), result.Schools)
			tw := formatter.Table()
			for _, t := range sess.store.Territories() {
				fmt.Fprintf(tw, "%s\t%d\n", t.Name, result.Territories[t.Name])
			}
			fmt.Fprintf(tw, "%s\t%d\n", ledger.Unassigned, result.Territories[ledger.Unassigned])
			return tw.Flush()
		},
	}
}
