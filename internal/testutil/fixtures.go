// Package testutil provides deterministic clocks, ids and fixtures for tests.
package testutil

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/mealledger/internal/layout"
	"github.com/roach88/mealledger/internal/ledger"
	"github.com/roach88/mealledger/internal/store"
)

// Compass is a small territory set used across package tests.
var Compass = []ledger.Territory{
	{Lot: 1, Name: "NORTH", Schools: []string{"SCHOOL ALPHA", "SCHOOL BRAVO"}},
	{Lot: 2, Name: "SOUTH", Schools: []string{"SCHOOL CHARLIE"}},
}

// OpenStore opens a store over Compass in a temporary directory, closed
// when the test ends.
func OpenStore(t testing.TB, opts ...store.Option) *store.Store {
	t.Helper()
	opts = append([]store.Option{store.WithTerritories(Compass)}, opts...)
	s, err := store.Open(context.Background(), filepath.Join(t.TempDir(), "ledger.db"), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// PageFromLines lays lines out as a page of word fragments, one band per
// line from the top, the way a PDF extractor reports them. Fragments are
// emitted last word first so callers exercise reordering.
func PageFromLines(lines ...string) layout.Page {
	var p layout.Page
	for i, line := range lines {
		y := 800 - float64(i)*14
		words := strings.Fields(line)
		for j := len(words) - 1; j >= 0; j-- {
			p.Fragments = append(p.Fragments, layout.Fragment{
				X:    40 + float64(j)*30,
				Y:    y + float64(j%2)*0.5,
				Text: words[j],
			})
		}
	}
	return p
}
