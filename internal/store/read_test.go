package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/mealledger/internal/ledger"
)

func seedWeeks(t *testing.T, s *Store) {
	t.Helper()
	ctx := context.Background()
	for _, r := range []struct {
		school, week, year, regime string
	}{
		{"SCHOOL ALPHA", "12", "2023-2024", "STANDARD"},
		{"SCHOOL ALPHA", "12", "2023-2024", "HALAL"},
		{"SCHOOL ALPHA", "14", "2023-2024", "STANDARD"},
		{"SCHOOL ECHO", "02", "2023-2024", "STANDARD"},
		{"SCHOOL ECHO", "40", "2022-2023", "STANDARD"},
	} {
		rec := alphaRecord()
		rec.BaseSchool, rec.SchoolType = r.school, r.school
		rec.WeekNumber, rec.SchoolYear, rec.Regime = r.week, r.year, r.regime
		_, err := s.Insert(ctx, rec)
		require.NoError(t, err)
	}
}

func TestDistinct(t *testing.T) {
	s := createTestStore(t)
	seedWeeks(t, s)
	ctx := context.Background()

	years, err := s.Distinct(ctx, "school_year")
	require.NoError(t, err)
	assert.Equal(t, []string{"2022-2023", "2023-2024"}, years)

	weeks, err := s.Distinct(ctx, "week_number")
	require.NoError(t, err)
	assert.Equal(t, []string{"02", "12", "14", "40"}, weeks)

	territories, err := s.Distinct(ctx, "territory")
	require.NoError(t, err)
	assert.Equal(t, []string{"NORTH", "SOUTH"}, territories, "sentinel excluded")

	_, err = s.Distinct(ctx, "monday; DROP TABLE deliveries")
	assert.Error(t, err)
}

func TestDistinctColumns(t *testing.T) {
	assert.Equal(t, []string{"base_school", "regime", "school_type", "school_year", "territory", "week_number"}, DistinctColumns())
}

func TestStats(t *testing.T) {
	s := createTestStore(t)
	seedWeeks(t, s)

	st, err := s.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Stats{Records: 5, Schools: 2}, st)
}

func TestPresentWeeks(t *testing.T) {
	s := createTestStore(t)
	seedWeeks(t, s)
	ctx := context.Background()

	present, err := s.PresentWeeks(ctx, "2023-2024")
	require.NoError(t, err)
	assert.Equal(t, map[string][]int{
		"SCHOOL ALPHA": {12, 14},
		"SCHOOL ECHO":  {2},
	}, present)

	all, err := s.PresentWeeks(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []int{2, 40}, all["SCHOOL ECHO"])
}

func TestGet_NotFound(t *testing.T) {
	s := createTestStore(t)
	_, err := s.Get(context.Background(), ledger.Key{BaseSchool: "NOPE"})
	assert.ErrorIs(t, err, ErrNotFound)
}
