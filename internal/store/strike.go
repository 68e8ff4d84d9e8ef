package store

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/roach88/mealledger/internal/ledger"
)

// AddStrike registers a strike day. Returns the id and whether a new row was
// inserted; an existing (year, week, day) returns its id and inserted=false.
// Stored delivery counts are left untouched.
func (s *Store) AddStrike(ctx context.Context, strike ledger.StrikeDay) (id int64, inserted bool, err error) {
	if !strike.Day.Valid() {
		return 0, false, fmt.Errorf("add strike: %w: %q", ledger.ErrInvalidWeekday, strike.Day)
	}
	week, err := ledger.NormalizeWeek(strike.WeekNumber)
	if err != nil {
		return 0, false, fmt.Errorf("add strike: %w", err)
	}
	if strike.SchoolYear == "" {
		return 0, false, fmt.Errorf("add strike: school year is required")
	}

	err = s.Batch(ctx, func(tx *Tx) error {
		res, err := tx.tx.ExecContext(ctx, `
			INSERT INTO strike_days (school_year, week_number, day, strike_date)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(school_year, week_number, day) DO NOTHING
		`, strike.SchoolYear, week, string(strike.Day), strike.Date)
		if err != nil {
			return &StoreError{Op: "insert strike", Err: err}
		}

		n, err := res.RowsAffected()
		if err != nil {
			return &StoreError{Op: "insert strike: rows affected", Err: err}
		}
		if n > 0 {
			id, err = res.LastInsertId()
			if err != nil {
				return &StoreError{Op: "insert strike: last insert id", Err: err}
			}
			inserted = true
			return nil
		}

		err = tx.tx.QueryRowContext(ctx, `
			SELECT id FROM strike_days
			WHERE school_year = ? AND week_number = ? AND day = ?
		`, strike.SchoolYear, week, string(strike.Day)).Scan(&id)
		if err != nil {
			return &StoreError{Op: "select existing strike", Err: err}
		}
		return nil
	})
	if err != nil {
		return 0, false, fmt.Errorf("add strike: %w", err)
	}

	s.logger.Info("strike registered",
		zap.String("school_year", strike.SchoolYear),
		zap.String("week", week),
		zap.String("day", string(strike.Day)),
		zap.Bool("inserted", inserted),
	)
	return id, inserted, nil
}

// RemoveStrike deletes a strike day by id. Returns ErrNotFound for unknown ids.
func (s *Store) RemoveStrike(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM strike_days WHERE id = ?`, id)
	if err != nil {
		return &StoreError{Op: "delete strike", Err: err}
	}
	n, err := res.RowsAffected()
	if err != nil {
		return &StoreError{Op: "delete strike: rows affected", Err: err}
	}
	if n == 0 {
		return fmt.Errorf("strike %d: %w", id, ErrNotFound)
	}
	return nil
}

// ListStrikes returns strike days, most recent year and week first.
func (s *Store) ListStrikes(ctx context.Context) ([]ledger.StrikeDay, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, school_year, week_number, day, strike_date
		FROM strike_days
		ORDER BY school_year DESC, week_number DESC,
			CASE day
				WHEN 'monday' THEN 1 WHEN 'tuesday' THEN 2 WHEN 'wednesday' THEN 3
				WHEN 'thursday' THEN 4 ELSE 5
			END ASC
	`)
	if err != nil {
		return nil, &StoreError{Op: "list strikes", Err: err}
	}
	defer rows.Close()

	strikes := []ledger.StrikeDay{}
	for rows.Next() {
		var sd ledger.StrikeDay
		var day string
		if err := rows.Scan(&sd.ID, &sd.SchoolYear, &sd.WeekNumber, &day, &sd.Date); err != nil {
			return nil, &StoreError{Op: "scan strike", Err: err}
		}
		sd.Day = ledger.Weekday(day)
		strikes = append(strikes, sd)
	}
	if err := rows.Err(); err != nil {
		return nil, &StoreError{Op: "iterate strikes", Err: err}
	}
	return strikes, nil
}
