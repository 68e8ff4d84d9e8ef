// Package aggregate answers the read-side questions asked of the ledger:
// filtered listings, per-school summaries and per-territory roll-ups.
//
// Summaries and roll-ups are strike-aware: a weekday registered as a strike
// day for a (school year, week) contributes zero, while the stored records
// keep their original counts.
package aggregate

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/mealledger/internal/ledger"
	"github.com/roach88/mealledger/internal/querysql"
	"github.com/roach88/mealledger/internal/store"
)

// ErrUnknownTerritory is returned when a roll-up names no defined territory.
var ErrUnknownTerritory = errors.New("unknown territory")

// Filter narrows a query. Empty fields are ignored; set fields are ANDed.
type Filter struct {
	SchoolYear string `json:"school_year,omitempty"`
	WeekNumber string `json:"week_number,omitempty"`
	BaseSchool string `json:"base_school,omitempty"` // exact
	SchoolType string `json:"school_type,omitempty"` // substring
	Territory  string `json:"territory,omitempty"`
}

// Engine runs aggregate queries against an explicit store handle.
type Engine struct {
	q           store.Querier
	territories []ledger.Territory
}

// New returns an engine reading through q. territories are the static
// definitions used by TerritoryRollup.
func New(q store.Querier, territories []ledger.Territory) *Engine {
	return &Engine{q: q, territories: territories}
}

// predicates translates the filter to query predicates over deliveries d
// joined with school_details sd.
func (f Filter) predicates() (querysql.And, error) {
	var where querysql.And
	if f.SchoolYear != "" {
		where = append(where, querysql.Equals{Field: "d.school_year", Value: f.SchoolYear})
	}
	if f.WeekNumber != "" {
		week, err := ledger.NormalizeWeek(f.WeekNumber)
		if err != nil {
			return nil, err
		}
		where = append(where, querysql.Equals{Field: "d.week_number", Value: week})
	}
	if f.BaseSchool != "" {
		where = append(where, querysql.Equals{Field: "d.base_school", Value: f.BaseSchool})
	}
	if f.SchoolType != "" {
		where = append(where, querysql.Contains{Field: "d.school_type", Value: f.SchoolType})
	}
	if f.Territory != "" {
		where = append(where, querysql.Equals{Field: "sd.territory", Value: f.Territory})
	}
	return where, nil
}

const joined = `deliveries d LEFT JOIN school_details sd ON sd.school_name = d.base_school`

// territoryColumn falls back to the sentinel for schools not yet reconciled.
const territoryColumn = `COALESCE(sd.territory, '` + ledger.Unassigned + `')`

// List returns the records matching f with their territory, ordered by week,
// base school, school type and regime.
func (e *Engine) List(ctx context.Context, f Filter) ([]ledger.DeliveryRecord, error) {
	where, err := f.predicates()
	if err != nil {
		return nil, fmt.Errorf("list: %w", err)
	}

	query, params, err := querysql.Compile(querysql.Select{
		Columns: []string{
			"d.id", "d.document_id", "d.base_school", "d.school_type", "d.regime",
			"d.week_number", "d.school_year",
			"d.monday", "d.tuesday", "d.wednesday", "d.thursday", "d.friday",
			"d.total", "d.document_date", territoryColumn,
		},
		From:    joined,
		Where:   where,
		OrderBy: []string{"CAST(d.week_number AS INTEGER)", "d.base_school", "d.school_type", "d.regime"},
	})
	if err != nil {
		return nil, fmt.Errorf("list: %w", err)
	}

	rows, err := e.q.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, &store.StoreError{Op: "list deliveries", Err: err}
	}
	defer rows.Close()

	records := []ledger.DeliveryRecord{}
	for rows.Next() {
		var r ledger.DeliveryRecord
		err := rows.Scan(
			&r.ID, &r.DocumentID, &r.BaseSchool, &r.SchoolType, &r.Regime,
			&r.WeekNumber, &r.SchoolYear,
			&r.Monday, &r.Tuesday, &r.Wednesday, &r.Thursday, &r.Friday,
			&r.Total, &r.DocumentDate, &r.Territory,
		)
		if err != nil {
			return nil, &store.StoreError{Op: "scan delivery", Err: err}
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, &store.StoreError{Op: "iterate deliveries", Err: err}
	}
	return records, nil
}

// adjusted is the strike-aware sum of one weekday column of deliveries d.
func adjusted(day ledger.Weekday) string {
	return fmt.Sprintf(`SUM(CASE WHEN EXISTS (
		SELECT 1 FROM strike_days s
		WHERE s.school_year = d.school_year AND s.week_number = d.week_number AND s.day = '%s'
	) THEN 0 ELSE d.%s END)`, day, day)
}
