package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"github.com/roach88/mealledger/internal/ledger"
)

// Stats summarises the ledger for dashboards.
type Stats struct {
	Records int64 `json:"records"`
	Schools int64 `json:"schools"`
}

// distinctColumns maps the columns Distinct accepts to their source query.
var distinctColumns = map[string]string{
	"school_year": `SELECT DISTINCT school_year FROM deliveries WHERE school_year != '' ORDER BY school_year`,
	"week_number": `SELECT DISTINCT week_number FROM deliveries ORDER BY week_number`,
	"base_school": `SELECT DISTINCT base_school FROM deliveries ORDER BY base_school`,
	"school_type": `SELECT DISTINCT school_type FROM deliveries ORDER BY school_type`,
	"regime":      `SELECT DISTINCT regime FROM deliveries ORDER BY regime`,
	"territory":   `SELECT DISTINCT territory FROM school_details WHERE territory != 'Non assigné' ORDER BY territory`,
}

// DistinctColumns lists the column names Distinct accepts.
func DistinctColumns() []string {
	cols := make([]string, 0, len(distinctColumns))
	for c := range distinctColumns {
		cols = append(cols, c)
	}
	sort.Strings(cols)
	return cols
}

// Distinct returns the sorted distinct values of a whitelisted column.
// territory excludes the unassigned sentinel.
func (s *Store) Distinct(ctx context.Context, column string) ([]string, error) {
	query, ok := distinctColumns[column]
	if !ok {
		return nil, fmt.Errorf("distinct: unsupported column %q", column)
	}

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, &StoreError{Op: "distinct " + column, Err: err}
	}
	defer rows.Close()

	values := []string{}
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, &StoreError{Op: "scan distinct " + column, Err: err}
		}
		values = append(values, v)
	}
	if err := rows.Err(); err != nil {
		return nil, &StoreError{Op: "iterate distinct " + column, Err: err}
	}
	return values, nil
}

// Stats counts stored records and distinct base schools.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COUNT(DISTINCT base_school) FROM deliveries`,
	).Scan(&st.Records, &st.Schools)
	if err != nil {
		return Stats{}, &StoreError{Op: "stats", Err: err}
	}
	return st, nil
}

// PresentWeeks returns, per base school, the distinct week numbers with at
// least one record. An empty schoolYear matches every year.
func (s *Store) PresentWeeks(ctx context.Context, schoolYear string) (map[string][]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT base_school, CAST(week_number AS INTEGER)
		FROM deliveries
		WHERE ? = '' OR school_year = ?
		ORDER BY base_school, CAST(week_number AS INTEGER)
	`, schoolYear, schoolYear)
	if err != nil {
		return nil, &StoreError{Op: "present weeks", Err: err}
	}
	defer rows.Close()

	present := make(map[string][]int)
	for rows.Next() {
		var school string
		var week int
		if err := rows.Scan(&school, &week); err != nil {
			return nil, &StoreError{Op: "scan present week", Err: err}
		}
		present[school] = append(present[school], week)
	}
	if err := rows.Err(); err != nil {
		return nil, &StoreError{Op: "iterate present weeks", Err: err}
	}
	return present, nil
}

// Get returns the record stored under key, or ErrNotFound.
func (s *Store) Get(ctx context.Context, key ledger.Key) (ledger.DeliveryRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, document_id, base_school, school_type, regime, week_number, school_year,
		       monday, tuesday, wednesday, thursday, friday, total, document_date
		FROM deliveries
		WHERE base_school = ? AND school_type = ? AND week_number = ? AND school_year = ? AND regime = ?
	`, key.BaseSchool, key.SchoolType, key.WeekNumber, key.SchoolYear, key.Regime)

	rec, err := ScanDelivery(row)
	if err != nil {
		if isNoRows(err) {
			return ledger.DeliveryRecord{}, fmt.Errorf("delivery %s: %w", key, ErrNotFound)
		}
		return ledger.DeliveryRecord{}, &StoreError{Op: "get delivery", Err: err}
	}
	return rec, nil
}

// scanner is implemented by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// ScanDelivery scans the columns id, document_id, base_school, school_type,
// regime, week_number, school_year, monday..friday, total, document_date in
// that order.
func ScanDelivery(row scanner) (ledger.DeliveryRecord, error) {
	var r ledger.DeliveryRecord
	err := row.Scan(
		&r.ID, &r.DocumentID, &r.BaseSchool, &r.SchoolType, &r.Regime, &r.WeekNumber, &r.SchoolYear,
		&r.Monday, &r.Tuesday, &r.Wednesday, &r.Thursday, &r.Friday, &r.Total, &r.DocumentDate,
	)
	return r, err
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
