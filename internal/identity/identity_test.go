package identity

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/mealledger/internal/ledger"
)

func TestBaseSchool(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"english trailing qualifier", "SCHOOL ALPHA ELEMENTARY", "SCHOOL ALPHA"},
		{"dash qualifier", "BRIGITTE - MATERNELLE", "BRIGITTE"},
		{"em dash accented", "HIRTZ — ÉLÉMENTAIRE", "HIRTZ"},
		{"parenthesised", "DORE (ELEMENTAIRE)", "DORE"},
		{"lower case", "Jacqueline maternelle", "Jacqueline"},
		{"two qualifiers", "VAUBAN MATERNELLE ELEMENTAIRE", "VAUBAN"},
		{"embedded qualifier", "CLAUS ELEMENTAIRE ANNEXE", "CLAUS ANNEXE"},
		{"no qualifier", "LE GRAND (DELESTAGE LE GRAND )", "LE GRAND (DELESTAGE LE GRAND )"},
		{"qualifier as word part", "MATERNELLES UNIES", "MATERNELLES UNIES"},
		{"whitespace", "  SCHUMAN   ", "SCHUMAN"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BaseSchool(tt.in))
		})
	}
}

func TestSchoolType(t *testing.T) {
	assert.Equal(t, "SCHOOL ALPHA ELEMENTARY", SchoolType("School  Alpha elementary"))
	assert.Equal(t, "HIRTZ - ÉLÉMENTAIRE", SchoolType("Hirtz - Élémentaire"))
}

func TestFold(t *testing.T) {
	assert.Equal(t, "VEGETARIEN", Fold("Végétarien"))
	assert.Equal(t, "SALLE DU MANEGE", Fold("salle du  manège"))
	assert.Equal(t, "", Fold("   "))
}

var lots = []ledger.Territory{
	{Lot: 1, Name: "NORTH", Schools: []string{"SCHOOL ALPHA", "BRIGITTE"}},
	{Lot: 2, Name: "SOUTH", Schools: []string{"LE GRAND", "SALLE DU MANÈGE"}},
	{Lot: 3, Name: "EAST", Schools: []string{"ALPHA"}},
}

func TestResolve(t *testing.T) {
	r := NewResolver(lots)

	tests := []struct {
		school string
		want   string
	}{
		{"SCHOOL ALPHA", "NORTH"},             // exact
		{"school alpha", "NORTH"},             // case-insensitive
		{"ECOLE BRIGITTE", "NORTH"},           // school contains member
		{"GRAND", "SOUTH"},                    // member contains school
		{"SALLE DU MANEGE", "SOUTH"},          // accent-insensitive
		{"LE GRAND (DELESTAGE)", "SOUTH"},     // contains
		{"ALPHA", "NORTH"},                    // NORTH's "SCHOOL ALPHA" contains it before EAST is reached
		{"UNKNOWN PLACE", ledger.Unassigned},  // no match
		{"", ledger.Unassigned},               // empty
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, r.Resolve(tt.school), "Resolve(%q)", tt.school)
	}
}

func TestResolve_ExactIndexChangesPrecedence(t *testing.T) {
	scan := NewResolver(lots)
	fast := NewResolver(lots, WithExactIndex())

	assert.Equal(t, "NORTH", scan.Resolve("ALPHA"))
	assert.Equal(t, "EAST", fast.Resolve("ALPHA"))

	// Misses fall back to the scan.
	assert.Equal(t, "NORTH", fast.Resolve("ECOLE BRIGITTE"))
	assert.Equal(t, ledger.Unassigned, fast.Resolve("NOWHERE"))
}

func TestResolve_ConcurrentUse(t *testing.T) {
	r := NewResolver(lots, WithExactIndex())
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				assert.Equal(t, "NORTH", r.Resolve("BRIGITTE"))
			}
		}()
	}
	wg.Wait()
}
