package store

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/roach88/mealledger/internal/ledger"
)

// SyncTerritories reconciles school_details with the reference data.
//
// Static members are reseeded first (the first definition listing a school
// wins), recorded overrides are re-applied on top, then every delivered base
// school still without a SchoolDetail is resolved. Running it twice leaves
// the table unchanged.
func (s *Store) SyncTerritories(ctx context.Context) error {
	seeded, resolved := 0, 0
	err := s.Batch(ctx, func(tx *Tx) error {
		seen := make(map[string]bool)
		for _, terr := range s.territories {
			for _, school := range terr.Schools {
				if seen[school] {
					continue
				}
				seen[school] = true
				_, err := tx.tx.ExecContext(ctx, `
					INSERT INTO school_details (school_name, territory) VALUES (?, ?)
					ON CONFLICT(school_name) DO UPDATE SET territory = excluded.territory
				`, school, terr.Name)
				if err != nil {
					return &StoreError{Op: "seed school detail", Err: err}
				}
				seeded++
			}
		}

		// WHERE true disambiguates the upsert clause after a SELECT.
		_, err := tx.tx.ExecContext(ctx, `
			INSERT INTO school_details (school_name, territory)
			SELECT school_name, territory FROM territory_overrides WHERE true
			ON CONFLICT(school_name) DO UPDATE SET territory = excluded.territory
		`)
		if err != nil {
			return &StoreError{Op: "apply territory overrides", Err: err}
		}

		orphans, err := tx.orphanSchools(ctx)
		if err != nil {
			return err
		}
		for _, school := range orphans {
			if err := tx.ensureSchoolDetail(ctx, school); err != nil {
				return err
			}
			resolved++
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("sync territories: %w", err)
	}

	s.logger.Debug("territories synchronised",
		zap.Int("seeded", seeded),
		zap.Int("resolved", resolved),
	)
	return nil
}

func (t *Tx) orphanSchools(ctx context.Context) ([]string, error) {
	rows, err := t.tx.QueryContext(ctx, `
		SELECT DISTINCT d.base_school
		FROM deliveries d
		LEFT JOIN school_details sd ON sd.school_name = d.base_school
		WHERE sd.school_name IS NULL
		ORDER BY d.base_school
	`)
	if err != nil {
		return nil, &StoreError{Op: "query orphan schools", Err: err}
	}
	defer rows.Close()

	var schools []string
	for rows.Next() {
		var school string
		if err := rows.Scan(&school); err != nil {
			return nil, &StoreError{Op: "scan orphan school", Err: err}
		}
		schools = append(schools, school)
	}
	if err := rows.Err(); err != nil {
		return nil, &StoreError{Op: "iterate orphan schools", Err: err}
	}
	return schools, nil
}

// ListSchools returns every SchoolDetail ordered by territory then name.
func (s *Store) ListSchools(ctx context.Context) ([]ledger.SchoolDetail, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT school_name, territory
		FROM school_details
		ORDER BY territory ASC, school_name ASC
	`)
	if err != nil {
		return nil, &StoreError{Op: "list schools", Err: err}
	}
	defer rows.Close()

	schools := []ledger.SchoolDetail{}
	for rows.Next() {
		var d ledger.SchoolDetail
		if err := rows.Scan(&d.SchoolName, &d.Territory); err != nil {
			return nil, &StoreError{Op: "scan school", Err: err}
		}
		schools = append(schools, d)
	}
	if err := rows.Err(); err != nil {
		return nil, &StoreError{Op: "iterate schools", Err: err}
	}
	return schools, nil
}

// SchoolTerritory returns the territory recorded for school, or ErrNotFound.
func (s *Store) SchoolTerritory(ctx context.Context, school string) (string, error) {
	var territory string
	err := s.db.QueryRowContext(ctx,
		`SELECT territory FROM school_details WHERE school_name = ?`, school,
	).Scan(&territory)
	if err != nil {
		if isNoRows(err) {
			return "", fmt.Errorf("school %q: %w", school, ErrNotFound)
		}
		return "", &StoreError{Op: "lookup school territory", Err: err}
	}
	return territory, nil
}

// AssignTerritory records an authoritative assignment for school and applies
// it immediately. The override survives later synchronisations.
func (s *Store) AssignTerritory(ctx context.Context, school, territory string) error {
	school = strings.TrimSpace(school)
	territory = strings.TrimSpace(territory)
	if school == "" || territory == "" {
		return fmt.Errorf("assign territory: school and territory are required")
	}

	err := s.Batch(ctx, func(tx *Tx) error {
		_, err := tx.tx.ExecContext(ctx, `
			INSERT INTO territory_overrides (school_name, territory) VALUES (?, ?)
			ON CONFLICT(school_name) DO UPDATE SET
				territory = excluded.territory,
				updated_at = CURRENT_TIMESTAMP
		`, school, territory)
		if err != nil {
			return &StoreError{Op: "record override", Err: err}
		}

		_, err = tx.tx.ExecContext(ctx, `
			INSERT INTO school_details (school_name, territory) VALUES (?, ?)
			ON CONFLICT(school_name) DO UPDATE SET territory = excluded.territory
		`, school, territory)
		if err != nil {
			return &StoreError{Op: "update school detail", Err: err}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("assign territory: %w", err)
	}

	s.logger.Info("territory assigned",
		zap.String("school", school),
		zap.String("territory", territory),
	)
	return nil
}
