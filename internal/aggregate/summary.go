package aggregate

import (
	"context"
	"fmt"

	"github.com/roach88/mealledger/internal/ledger"
	"github.com/roach88/mealledger/internal/querysql"
	"github.com/roach88/mealledger/internal/store"
)

// DayTotals holds strike-adjusted sums per weekday. Wednesday is always 0.
type DayTotals struct {
	Monday    int64 `json:"total_mon"`
	Tuesday   int64 `json:"total_tue"`
	Wednesday int64 `json:"total_wed"`
	Thursday  int64 `json:"total_thu"`
	Friday    int64 `json:"total_fri"`
}

// Sum adds the four counted days.
func (d DayTotals) Sum() int64 {
	return d.Monday + d.Tuesday + d.Thursday + d.Friday
}

// SummaryRow aggregates one (base school, school type).
type SummaryRow struct {
	BaseSchool string `json:"base_school"`
	SchoolType string `json:"school_type"`
	Territory  string `json:"territory"`
	Weeks      int64  `json:"weeks"`
	DayTotals
	GrandTotal int64 `json:"grand_total"`
}

// Summary groups the records matching f by base school and school type.
// BaseSchool and SchoolType filters are honoured as in List. Rows are ordered
// by territory, base school and school type.
func (e *Engine) Summary(ctx context.Context, f Filter) ([]SummaryRow, error) {
	where, err := f.predicates()
	if err != nil {
		return nil, fmt.Errorf("summary: %w", err)
	}

	query, params, err := querysql.Compile(querysql.Select{
		Columns: []string{
			"d.base_school",
			"d.school_type",
			territoryColumn + " AS territory",
			"COUNT(DISTINCT d.school_year || '/' || d.week_number)",
			adjusted(ledger.Monday),
			adjusted(ledger.Tuesday),
			adjusted(ledger.Thursday),
			adjusted(ledger.Friday),
		},
		From:    joined,
		Where:   where,
		GroupBy: []string{"d.base_school", "d.school_type", "territory"},
		OrderBy: []string{"territory", "d.base_school", "d.school_type"},
	})
	if err != nil {
		return nil, fmt.Errorf("summary: %w", err)
	}

	rows, err := e.q.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, &store.StoreError{Op: "summary", Err: err}
	}
	defer rows.Close()

	out := []SummaryRow{}
	for rows.Next() {
		var r SummaryRow
		err := rows.Scan(&r.BaseSchool, &r.SchoolType, &r.Territory, &r.Weeks,
			&r.Monday, &r.Tuesday, &r.Thursday, &r.Friday)
		if err != nil {
			return nil, &store.StoreError{Op: "scan summary", Err: err}
		}
		r.GrandTotal = r.Sum()
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, &store.StoreError{Op: "iterate summary", Err: err}
	}
	return out, nil
}
