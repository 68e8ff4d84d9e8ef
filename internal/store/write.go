package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/roach88/mealledger/internal/identity"
	"github.com/roach88/mealledger/internal/ledger"
)

// Outcome is the result of inserting one record.
type Outcome int

const (
	// Inserted means the record was new and has been stored.
	Inserted Outcome = iota
	// Skipped means a record with the same key already existed; nothing changed.
	Skipped
)

func (o Outcome) String() string {
	switch o {
	case Inserted:
		return "inserted"
	case Skipped:
		return "skipped"
	}
	return fmt.Sprintf("Outcome(%d)", int(o))
}

// ErrInvalidRecord is returned for records that can never be stored.
var ErrInvalidRecord = errors.New("invalid delivery record")

// Insert stores rec in its own transaction.
func (s *Store) Insert(ctx context.Context, rec ledger.DeliveryRecord) (Outcome, error) {
	var out Outcome
	err := s.Batch(ctx, func(tx *Tx) error {
		var err error
		out, err = tx.Insert(ctx, rec)
		return err
	})
	return out, err
}

// Batch runs fn inside one transaction. The transaction commits when fn
// returns nil and rolls back otherwise.
func (s *Store) Batch(ctx context.Context, fn func(tx *Tx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &StoreError{Op: "begin", Err: err}
	}
	defer sqlTx.Rollback() // No-op if committed

	if err := fn(&Tx{tx: sqlTx, store: s}); err != nil {
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return &StoreError{Op: "commit", Err: err}
	}
	return nil
}

// Tx is a write transaction opened by Batch.
type Tx struct {
	tx    *sql.Tx
	store *Store
	saves int
}

// Document runs fn inside a savepoint. If fn fails, every row written by fn
// is rolled back and the error is returned; the enclosing transaction stays
// usable for the next document.
func (t *Tx) Document(ctx context.Context, name string, fn func() error) error {
	t.saves++
	sp := fmt.Sprintf("doc_%d", t.saves)

	if _, err := t.tx.ExecContext(ctx, "SAVEPOINT "+sp); err != nil {
		return &StoreError{Op: "savepoint " + name, Err: err}
	}

	if err := fn(); err != nil {
		t.store.logger.Debug("rolling back document",
			zap.String("document", name),
			zap.Error(err),
		)
		if _, rbErr := t.tx.ExecContext(ctx, "ROLLBACK TO "+sp); rbErr != nil {
			return &StoreError{Op: "rollback " + name, Err: errors.Join(err, rbErr)}
		}
		if _, relErr := t.tx.ExecContext(ctx, "RELEASE "+sp); relErr != nil {
			return &StoreError{Op: "release " + name, Err: errors.Join(err, relErr)}
		}
		return err
	}

	if _, err := t.tx.ExecContext(ctx, "RELEASE "+sp); err != nil {
		return &StoreError{Op: "release " + name, Err: err}
	}
	return nil
}

// Insert stores rec unless a record with the same key exists.
//
// The total is recomputed from the four counted days and wednesday is forced
// to zero. When the base school has no SchoolDetail yet, its territory is
// resolved and recorded in the same transaction.
func (t *Tx) Insert(ctx context.Context, rec ledger.DeliveryRecord) (Outcome, error) {
	if err := validate(rec); err != nil {
		return Skipped, err
	}
	rec.Wednesday = 0
	rec.Total = rec.DayTotal()

	res, err := t.tx.ExecContext(ctx, `
		INSERT INTO deliveries
		(document_id, base_school, school_type, week_number, regime,
		 monday, tuesday, wednesday, thursday, friday, total, document_date, school_year)
		VALUES (?, ?, ?, ?, ?, ?, ?, 0, ?, ?, ?, ?, ?)
		ON CONFLICT(base_school, school_type, week_number, school_year, regime) DO NOTHING
	`,
		rec.DocumentID,
		rec.BaseSchool,
		rec.SchoolType,
		rec.WeekNumber,
		rec.Regime,
		rec.Monday,
		rec.Tuesday,
		rec.Thursday,
		rec.Friday,
		rec.Total,
		rec.DocumentDate,
		rec.SchoolYear,
	)
	if err != nil {
		return Skipped, &StoreError{Op: "insert delivery", Err: err}
	}

	n, err := res.RowsAffected()
	if err != nil {
		return Skipped, &StoreError{Op: "insert delivery: rows affected", Err: err}
	}
	if n == 0 {
		return Skipped, nil
	}

	if err := t.ensureSchoolDetail(ctx, rec.BaseSchool); err != nil {
		return Skipped, err
	}
	return Inserted, nil
}

// ensureSchoolDetail creates the SchoolDetail of a school seen for the first
// time. A recorded override wins over resolution.
func (t *Tx) ensureSchoolDetail(ctx context.Context, school string) error {
	var exists bool
	err := t.tx.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM school_details WHERE school_name = ?)`, school,
	).Scan(&exists)
	if err != nil {
		return &StoreError{Op: "lookup school detail", Err: err}
	}
	if exists {
		return nil
	}

	territory := t.store.resolver.Resolve(school)
	_, err = t.tx.ExecContext(ctx, `
		INSERT INTO school_details (school_name, territory)
		VALUES (?, COALESCE((SELECT territory FROM territory_overrides WHERE school_name = ?), ?))
		ON CONFLICT(school_name) DO NOTHING
	`, school, school, territory)
	if err != nil {
		return &StoreError{Op: "insert school detail", Err: err}
	}
	return nil
}

func validate(rec ledger.DeliveryRecord) error {
	switch {
	case strings.TrimSpace(rec.BaseSchool) == "":
		return fmt.Errorf("%w: empty base school", ErrInvalidRecord)
	case rec.WeekNumber == "":
		return fmt.Errorf("%w: empty week number", ErrInvalidRecord)
	case rec.Regime == "":
		return fmt.Errorf("%w: empty regime", ErrInvalidRecord)
	}
	for _, d := range ledger.CountedWeekdays {
		if rec.Count(d) < 0 {
			return fmt.Errorf("%w: negative %s count", ErrInvalidRecord, d)
		}
	}
	return nil
}

// ManualRow is one regime line of a manual entry.
type ManualRow struct {
	Regime   string `json:"regime" yaml:"regime"`
	Monday   int64  `json:"monday" yaml:"monday"`
	Tuesday  int64  `json:"tuesday" yaml:"tuesday"`
	Thursday int64  `json:"thursday" yaml:"thursday"`
	Friday   int64  `json:"friday" yaml:"friday"`
}

func (r ManualRow) total() int64 {
	return r.Monday + r.Tuesday + r.Thursday + r.Friday
}

// ManualEntry is a hand-typed correction for one school and week.
type ManualEntry struct {
	School     string      `json:"school" yaml:"school"`
	WeekNumber string      `json:"week_number" yaml:"week_number"`
	SchoolYear string      `json:"school_year" yaml:"school_year"`
	Rows       []ManualRow `json:"rows" yaml:"rows"`
}

// ManualEntry writes the non-empty rows of e, replacing any record with the
// same key. It returns the number of rows written.
func (s *Store) ManualEntry(ctx context.Context, e ManualEntry) (int, error) {
	school := identity.SchoolType(e.School)
	if school == "" {
		return 0, fmt.Errorf("manual entry: %w: empty school", ErrInvalidRecord)
	}
	week, err := ledger.NormalizeWeek(e.WeekNumber)
	if err != nil {
		return 0, fmt.Errorf("manual entry: %w", err)
	}
	base := identity.BaseSchool(school)
	docID := fmt.Sprintf("MANUAL_%s_%s_%s", strings.ReplaceAll(base, " ", "-"), week, s.ids.Generate())

	written := 0
	err = s.Batch(ctx, func(tx *Tx) error {
		for _, row := range e.Rows {
			regime := identity.Fold(row.Regime)
			if row.total() == 0 {
				continue
			}
			rec := ledger.DeliveryRecord{
				DocumentID: docID,
				BaseSchool: base,
				SchoolType: school,
				Regime:     regime,
				WeekNumber: week,
				SchoolYear: e.SchoolYear,
				Monday:     row.Monday,
				Tuesday:    row.Tuesday,
				Thursday:   row.Thursday,
				Friday:     row.Friday,
			}
			if err := tx.upsert(ctx, rec); err != nil {
				return err
			}
			written++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("manual entry: %w", err)
	}

	s.logger.Info("manual entry saved",
		zap.String("school", base),
		zap.String("week", week),
		zap.Int("rows", written),
	)
	return written, nil
}

func (t *Tx) upsert(ctx context.Context, rec ledger.DeliveryRecord) error {
	if err := validate(rec); err != nil {
		return err
	}
	rec.Total = rec.DayTotal()

	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO deliveries
		(document_id, base_school, school_type, week_number, regime,
		 monday, tuesday, wednesday, thursday, friday, total, document_date, school_year)
		VALUES (?, ?, ?, ?, ?, ?, ?, 0, ?, ?, ?, '', ?)
		ON CONFLICT(base_school, school_type, week_number, school_year, regime) DO UPDATE SET
			document_id = excluded.document_id,
			monday      = excluded.monday,
			tuesday     = excluded.tuesday,
			thursday    = excluded.thursday,
			friday      = excluded.friday,
			total       = excluded.total
	`,
		rec.DocumentID,
		rec.BaseSchool,
		rec.SchoolType,
		rec.WeekNumber,
		rec.Regime,
		rec.Monday,
		rec.Tuesday,
		rec.Thursday,
		rec.Friday,
		rec.Total,
		rec.SchoolYear,
	)
	if err != nil {
		return &StoreError{Op: "upsert delivery", Err: err}
	}
	return t.ensureSchoolDetail(ctx, rec.BaseSchool)
}
