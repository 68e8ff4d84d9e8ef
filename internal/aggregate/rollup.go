package aggregate

import (
	"context"
	"fmt"

	"github.com/roach88/mealledger/internal/ledger"
	"github.com/roach88/mealledger/internal/querysql"
	"github.com/roach88/mealledger/internal/store"
)

// RollupRow aggregates one regime across a territory's member schools.
type RollupRow struct {
	Regime string `json:"regime"`
	DayTotals
	Total int64 `json:"total"`
}

// Rollup is the per-regime breakdown of one territory.
type Rollup struct {
	Territory  string      `json:"territory"`
	Rows       []RollupRow `json:"rows"`
	GrandTotal int64       `json:"grand_total"`
}

// TerritoryRollup sums the records of the territory's static member schools
// by regime. Membership is the declared list, not the resolved SchoolDetail,
// and matches base school names exactly. Only the SchoolYear and WeekNumber
// filter fields apply.
func (e *Engine) TerritoryRollup(ctx context.Context, name string, f Filter) (*Rollup, error) {
	terr, ok := e.territory(name)
	if !ok {
		return nil, fmt.Errorf("territory rollup: %w: %q", ErrUnknownTerritory, name)
	}

	where, err := Filter{SchoolYear: f.SchoolYear, WeekNumber: f.WeekNumber}.predicates()
	if err != nil {
		return nil, fmt.Errorf("territory rollup: %w", err)
	}
	members := make([]any, 0, len(terr.Schools))
	for _, s := range terr.Schools {
		members = append(members, s)
	}
	where = append(where, querysql.In{Field: "d.base_school", Values: members})

	query, params, err := querysql.Compile(querysql.Select{
		Columns: []string{
			"d.regime",
			adjusted(ledger.Monday),
			adjusted(ledger.Tuesday),
			adjusted(ledger.Thursday),
			adjusted(ledger.Friday),
		},
		From:    "deliveries d",
		Where:   where,
		GroupBy: []string{"d.regime"},
		OrderBy: []string{"d.regime"},
	})
	if err != nil {
		return nil, fmt.Errorf("territory rollup: %w", err)
	}

	rows, err := e.q.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, &store.StoreError{Op: "territory rollup", Err: err}
	}
	defer rows.Close()

	out := &Rollup{Territory: terr.Name, Rows: []RollupRow{}}
	for rows.Next() {
		var r RollupRow
		if err := rows.Scan(&r.Regime, &r.Monday, &r.Tuesday, &r.Thursday, &r.Friday); err != nil {
			return nil, &store.StoreError{Op: "scan rollup", Err: err}
		}
		r.Total = r.Sum()
		out.GrandTotal += r.Total
		out.Rows = append(out.Rows, r)
	}
	if err := rows.Err(); err != nil {
		return nil, &store.StoreError{Op: "iterate rollup", Err: err}
	}
	return out, nil
}

func (e *Engine) territory(name string) (ledger.Territory, bool) {
	for _, t := range e.territories {
		if t.Name == name {
			return t, true
		}
	}
	return ledger.Territory{}, false
}
