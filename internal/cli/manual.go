package cli

import (
	"bytes"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/roach88/mealledger/internal/store"
)

// ManualOptions holds flags for the manual command.
type ManualOptions struct {
	*RootOptions
	School     string
	Week       string
	SchoolYear string
	Regime     string
	Monday     int64
	Tuesday    int64
	Thursday   int64
	Friday     int64
}

// ManualResult is the outcome of a manual entry.
type ManualResult struct {
	School  string `json:"school"`
	Week    string `json:"week_number"`
	Written int    `json:"written"`
}

// NewManualCommand creates the manual command.
func NewManualCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ManualOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "manual [entry.yaml]",
		Short: "Record or correct counts by hand",
		Long: `Record or correct counts by hand.

An entry replaces any stored row with the same school, type, week, school
year and regime. Rows whose counts are all zero are ignored. Give either a
YAML entry file:

  school: BRIGITTE - MATERNELLE
  week_number: "07"
  school_year: 2023-2024
  rows:
    - {regime: STANDARD, monday: 40, tuesday: 41, thursday: 39, friday: 38}

or a single row with flags:

  mealledger manual --school "BRIGITTE - MATERNELLE" --week 7 --year 2023-2024 \
    --regime STANDARD --mon 40 --tue 41 --thu 39 --fri 38`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runManual(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.School, "school", "", "school location as printed on documents")
	cmd.Flags().StringVar(&opts.Week, "week", "", "week number")
	cmd.Flags().StringVar(&opts.SchoolYear, "year", "", "school year, e.g. 2023-2024")
	cmd.Flags().StringVar(&opts.Regime, "regime", "STANDARD", "meal regime")
	cmd.Flags().Int64Var(&opts.Monday, "mon", 0, "monday count")
	cmd.Flags().Int64Var(&opts.Tuesday, "tue", 0, "tuesday count")
	cmd.Flags().Int64Var(&opts.Thursday, "thu", 0, "thursday count")
	cmd.Flags().Int64Var(&opts.Friday, "fri", 0, "friday count")

	return cmd
}

func runManual(opts *ManualOptions, args []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	var entry store.ManualEntry
	if len(args) == 1 {
		e, err := loadManualEntry(args[0])
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeInvalidArg, "failed to read entry", err)
		}
		entry = *e
	} else {
		if opts.School == "" || opts.Week == "" {
			return formatter.Fail(ExitCommandError, ErrCodeInvalidArg, "--school and --week are required without an entry file", nil)
		}
		entry = store.ManualEntry{
			School:     opts.School,
			WeekNumber: opts.Week,
			SchoolYear: opts.SchoolYear,
			Rows: []store.ManualRow{{
				Regime:   opts.Regime,
				Monday:   opts.Monday,
				Tuesday:  opts.Tuesday,
				Thursday: opts.Thursday,
				Friday:   opts.Friday,
			}},
		}
	}

	sess, err := openSession(cmd.Context(), opts.RootOptions, formatter)
	if err != nil {
		return err
	}
	defer sess.Close()

	written, err := sess.store.ManualEntry(cmd.Context(), entry)
	if err != nil {
		return formatter.Fail(ExitFailure, ErrCodeDatabase, "failed to save manual entry", err)
	}

	result := ManualResult{School: entry.School, Week: entry.WeekNumber, Written: written}
	if formatter.JSON() {
		return formatter.Success(result)
	}
	fmt.Fprintf(formatter.Writer, "%s %d row(s) written for %s week %s\n", okMark(), written, entry.School, entry.WeekNumber)
	return nil
}

func loadManualEntry(path string) (*store.ManualEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var e store.ManualEntry
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&e); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &e, nil
}
