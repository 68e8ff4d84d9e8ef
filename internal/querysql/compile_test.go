package querysql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompile_SimpleSelect(t *testing.T) {
	sql, params, err := Compile(Select{
		Columns: []string{"base_school", "regime"},
		From:    "deliveries",
		Where:   Equals{Field: "week_number", Value: "12"},
		OrderBy: []string{"base_school"},
	})
	require.NoError(t, err)

	assert.Equal(t, "SELECT base_school, regime FROM deliveries WHERE week_number = ? ORDER BY base_school", sql)
	assert.NotContains(t, sql, "12")
	assert.Equal(t, []any{"12"}, params)
}

func TestCompile_Pointer(t *testing.T) {
	sql, _, err := Compile(&Select{From: "deliveries", OrderBy: []string{"id"}})
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM deliveries ORDER BY id", sql)
}

func TestCompile_RequiresOrderBy(t *testing.T) {
	_, _, err := Compile(Select{From: "deliveries"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ORDER BY")
}

func TestCompile_NilQuery(t *testing.T) {
	_, _, err := Compile(nil)
	assert.Error(t, err)
}

func TestCompile_GroupBy(t *testing.T) {
	sql, _, err := Compile(Select{
		Columns: []string{"regime", "SUM(total)"},
		From:    "deliveries",
		GroupBy: []string{"regime"},
		OrderBy: []string{"regime"},
	})
	require.NoError(t, err)
	assert.Equal(t, "SELECT regime, SUM(total) FROM deliveries GROUP BY regime ORDER BY regime", sql)
}

func TestCompile_And(t *testing.T) {
	sql, params, err := Compile(Select{
		From: "deliveries d",
		Where: And{
			Equals{Field: "d.school_year", Value: "2023-2024"},
			nil,
			Contains{Field: "d.school_type", Value: "MATERNELLE"},
			And{Equals{Field: "d.regime", Value: "HALAL"}},
		},
		OrderBy: []string{"d.id"},
	})
	require.NoError(t, err)

	assert.Equal(t,
		`SELECT * FROM deliveries d WHERE d.school_year = ? AND d.school_type LIKE '%' || ? || '%' ESCAPE '\' AND (d.regime = ?) ORDER BY d.id`,
		sql)
	assert.Equal(t, []any{"2023-2024", "MATERNELLE", "HALAL"}, params)
}

func TestCompile_EmptyAndIsTrue(t *testing.T) {
	sql, params, err := Compile(Select{From: "deliveries", Where: And{}, OrderBy: []string{"id"}})
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM deliveries WHERE 1 = 1 ORDER BY id", sql)
	assert.Empty(t, params)
}

func TestCompile_ContainsEscapesWildcards(t *testing.T) {
	_, params, err := Compile(Select{
		From:    "deliveries",
		Where:   Contains{Field: "school_type", Value: `50%_OFF\`},
		OrderBy: []string{"id"},
	})
	require.NoError(t, err)
	assert.Equal(t, []any{`50\%\_OFF\\`}, params)
}

func TestCompile_In(t *testing.T) {
	sql, params, err := Compile(Select{
		From:    "deliveries",
		Where:   In{Field: "base_school", Values: []any{"A", "B"}},
		OrderBy: []string{"id"},
	})
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM deliveries WHERE base_school IN (?, ?) ORDER BY id", sql)
	assert.Equal(t, []any{"A", "B"}, params)

	sql, params, err = Compile(Select{From: "deliveries", Where: In{Field: "base_school"}, OrderBy: []string{"id"}})
	require.NoError(t, err)
	assert.Contains(t, sql, "WHERE 0 = 1")
	assert.Empty(t, params)
}

func TestCompile_Exists(t *testing.T) {
	sql, params, err := Compile(Select{
		From:    "deliveries d",
		Where:   Exists{Subquery: "SELECT 1 FROM strike_days s WHERE s.week_number = d.week_number AND s.day = ?", Args: []any{"monday"}},
		OrderBy: []string{"d.id"},
	})
	require.NoError(t, err)
	assert.Contains(t, sql, "WHERE EXISTS (SELECT 1 FROM strike_days s")
	assert.Equal(t, []any{"monday"}, params)
}

func TestCompile_RejectsInvalidField(t *testing.T) {
	for _, field := range []string{"", "week_number; DROP TABLE deliveries", "a.b.c", "1col"} {
		_, _, err := Compile(Select{From: "deliveries", Where: Equals{Field: field, Value: 1}, OrderBy: []string{"id"}})
		assert.Error(t, err, field)
	}
}
