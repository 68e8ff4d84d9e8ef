// Package identity derives canonical school identities and resolves them to territories.
//
// A raw location string from a delivery document ("BRIGITTE - MATERNELLE") yields two
// identities: the base school, with grade-level qualifiers stripped, used for grouping
// and territory lookup; and the school type, the full upper-cased descriptor, which
// keeps two grade levels at the same site apart.
package identity

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const qualifiers = `MATERNELLE|ÉLÉMENTAIRE|ELEMENTAIRE|ELEMENTARY|KINDERGARTEN`

var (
	dashQualifier  = regexp.MustCompile(`(?i)\s[-–—]\s*(` + qualifiers + `)\b`)
	parenQualifier = regexp.MustCompile(`(?i)\(\s*(` + qualifiers + `)\s*\)`)
	bareQualifier  = regexp.MustCompile(`(?i)(^|[\s(])(` + qualifiers + `)($|[\s)])`)
	emptyParens    = regexp.MustCompile(`\(\s*\)`)
)

// BaseSchool strips grade-level qualifiers from a raw location, whether dash-prefixed,
// parenthesised or bare, and collapses whitespace.
//
//	BaseSchool("SCHOOL ALPHA ELEMENTARY")    // "SCHOOL ALPHA"
//	BaseSchool("BRIGITTE - MATERNELLE")      // "BRIGITTE"
//	BaseSchool("HIRTZ (ÉLÉMENTAIRE)")        // "HIRTZ"
func BaseSchool(location string) string {
	s := " " + collapse(location) + " "
	s = dashQualifier.ReplaceAllString(s, " ")
	s = parenQualifier.ReplaceAllString(s, " ")
	// Bare qualifiers can be adjacent ("MATERNELLE ELEMENTAIRE"), and each match
	// consumes its separators, so repeat until stable.
	for {
		next := bareQualifier.ReplaceAllString(s, "$1 $3")
		if next == s {
			break
		}
		s = next
	}
	s = emptyParens.ReplaceAllString(s, " ")
	return collapse(s)
}

// SchoolType is the full location descriptor, upper-cased.
func SchoolType(location string) string {
	return strings.ToUpper(collapse(location))
}

// Fold upper-cases s and removes diacritics, for accent-insensitive comparison.
//
//	Fold("Végétarien") // "VEGETARIEN"
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToUpper(collapse(out))
}

func collapse(s string) string {
	return strings.Join(strings.Fields(norm.NFC.String(s)), " ")
}
