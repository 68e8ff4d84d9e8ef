package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/mealledger/internal/ledger"
)

var compass = []ledger.Territory{
	{Lot: 1, Name: "NORTH", Schools: []string{"SCHOOL ALPHA", "SCHOOL BRAVO"}},
	{Lot: 2, Name: "SOUTH", Schools: []string{"SCHOOL CHARLIE"}},
}

// createTestStore opens a store in a temporary directory.
func createTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	opts = append([]Option{WithTerritories(compass)}, opts...)
	s, err := Open(context.Background(), path, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// alphaRecord is the row extracted from
// "SCHOOL ALPHA ELEMENTARY STANDARD 12 8 0 15" in week 12.
func alphaRecord() ledger.DeliveryRecord {
	return ledger.DeliveryRecord{
		DocumentID: "doc_SCHOOL-ALPHA_12",
		BaseSchool: "SCHOOL ALPHA",
		SchoolType: "SCHOOL ALPHA ELEMENTARY",
		Regime:     "STANDARD",
		WeekNumber: "12",
		SchoolYear: "2023-2024",
		Monday:     12,
		Tuesday:    8,
		Thursday:   0,
		Friday:     15,
		Total:      35,
	}
}

func countRows(t *testing.T, s *Store, table string) int {
	t.Helper()
	var n int
	require.NoError(t, s.db.QueryRow("SELECT COUNT(*) FROM "+table).Scan(&n))
	return n
}
