package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/roach88/mealledger/internal/aggregate"
	"github.com/roach88/mealledger/internal/ledger"
	"github.com/roach88/mealledger/internal/refdata"
	"github.com/roach88/mealledger/internal/store"
)

// session is the state most commands share: reference data and an open ledger.
type session struct {
	ref   *refdata.RefData
	store *store.Store
	log   *zap.Logger
}

func (o *RootOptions) logger() *zap.Logger {
	if o.Logger == nil {
		return zap.NewNop()
	}
	return o.Logger
}

func (o *RootOptions) database() string {
	if o.Database != "" {
		return o.Database
	}
	return envOr(EnvDatabase, DefaultDatabase)
}

// openSession loads reference data and opens the ledger. Failures are
// reported through f and returned as command errors.
func openSession(ctx context.Context, opts *RootOptions, f *OutputFormatter) (*session, error) {
	log := opts.logger()

	ref, err := refdata.Load(opts.RefData)
	if err != nil {
		return nil, f.Fail(ExitCommandError, ErrCodeRefData, "failed to load reference data", err)
	}
	f.VerboseLog("Reference data: %d territories, %d expected weeks", len(ref.Territories), len(ref.Calendar.Weeks))

	path := opts.database()
	s, err := store.Open(ctx, path,
		store.WithTerritories(ref.Territories),
		store.WithLogger(log.Named("store")),
	)
	if err != nil {
		return nil, f.Fail(ExitCommandError, ErrCodeDatabase, "failed to open ledger", err)
	}
	f.VerboseLog("Ledger: %s", path)

	return &session{ref: ref, store: s, log: log}, nil
}

func (s *session) Close() {
	if err := s.store.Close(); err != nil {
		s.log.Error("error closing ledger", zap.Error(err))
	}
}

func (s *session) engine() *aggregate.Engine {
	return aggregate.New(s.store.DB(), s.store.Territories())
}

// filterFlags are the listing filters shared by list and summary.
type filterFlags struct {
	SchoolYear string
	Week       string
	School     string
	SchoolType string
	Territory  string
}

func (ff *filterFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&ff.SchoolYear, "year", "", "school year, e.g. 2023-2024")
	cmd.Flags().StringVar(&ff.Week, "week", "", "week number")
	cmd.Flags().StringVar(&ff.School, "school", "", "base school (exact)")
	cmd.Flags().StringVar(&ff.SchoolType, "type", "", "school type (substring)")
	cmd.Flags().StringVar(&ff.Territory, "territory", "", "territory name")
}

// filter validates the week and returns the aggregate filter.
func (ff *filterFlags) filter() (aggregate.Filter, error) {
	f := aggregate.Filter{
		SchoolYear: ff.SchoolYear,
		BaseSchool: ff.School,
		SchoolType: ff.SchoolType,
		Territory:  ff.Territory,
	}
	if ff.Week != "" {
		week, err := ledger.NormalizeWeek(ff.Week)
		if err != nil {
			return f, err
		}
		f.WeekNumber = week
	}
	return f, nil
}

// queryFailure maps a read-side error to an exit code and envelope.
func queryFailure(f *OutputFormatter, message string, err error) error {
	switch {
	case errors.Is(err, aggregate.ErrUnknownTerritory), errors.Is(err, store.ErrNotFound):
		return f.Fail(ExitCommandError, ErrCodeNotFound, message, err)
	}
	return f.Fail(ExitFailure, ErrCodeDatabase, message, err)
}
