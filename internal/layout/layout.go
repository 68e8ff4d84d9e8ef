// Package layout rebuilds reading-order text lines from positioned text fragments.
//
// A document-text extractor reports each page as an unordered set of fragments,
// each with the (x, y) of its baseline origin. Fragments whose y coordinates lie
// within a tolerance of each other form a horizontal band; a band becomes one line,
// read left to right. Bands are emitted top of page first (descending y), and pages
// are appended in order.
//
// The output depends only on the fragment set, never on the order the extractor
// happened to report it in.
package layout

import (
	"sort"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// DefaultTolerance is the vertical distance under which two fragments share a line.
const DefaultTolerance = 2.0

// Fragment is one positioned run of text on a page.
type Fragment struct {
	X    float64 `yaml:"x" json:"x"`
	Y    float64 `yaml:"y" json:"y"`
	Text string  `yaml:"text" json:"text"`
}

// Page is the fragment set of one page.
type Page struct {
	Fragments []Fragment `yaml:"fragments" json:"fragments"`
}

// Reconstructor clusters fragments into lines.
// The zero value uses DefaultTolerance.
type Reconstructor struct {
	Tolerance float64
}

type band struct {
	y     float64
	items []Fragment
}

// Lines returns the ordered line sequence for the pages, in page order.
func (r Reconstructor) Lines(pages []Page) []string {
	var lines []string
	for _, p := range pages {
		lines = append(lines, r.PageLines(p)...)
	}
	return lines
}

// PageLines returns the ordered, non-empty lines of a single page.
func (r Reconstructor) PageLines(p Page) []string {
	tol := r.Tolerance
	if tol <= 0 {
		tol = DefaultTolerance
	}

	// Canonical fragment order first, so band membership cannot depend on the
	// order the extractor reported fragments in.
	frags := make([]Fragment, len(p.Fragments))
	copy(frags, p.Fragments)
	sort.SliceStable(frags, func(i, j int) bool {
		a, b := frags[i], frags[j]
		if a.Y != b.Y {
			return a.Y > b.Y
		}
		if a.X != b.X {
			return a.X < b.X
		}
		return a.Text < b.Text
	})

	var bands []*band
	for _, f := range frags {
		var target *band
		for _, b := range bands {
			if abs(b.y-f.Y) <= tol {
				target = b
				break
			}
		}
		if target == nil {
			target = &band{y: f.Y}
			bands = append(bands, target)
		}
		target.items = append(target.items, f)
	}

	sort.SliceStable(bands, func(i, j int) bool { return bands[i].y > bands[j].y })

	lines := make([]string, 0, len(bands))
	for _, b := range bands {
		sort.SliceStable(b.items, func(i, j int) bool {
			if b.items[i].X != b.items[j].X {
				return b.items[i].X < b.items[j].X
			}
			return b.items[i].Text < b.items[j].Text
		})
		parts := make([]string, len(b.items))
		for i, it := range b.items {
			parts[i] = it.Text
		}
		if line := Normalize(strings.Join(parts, " ")); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// Lines reconstructs pages with the default tolerance.
func Lines(pages []Page) []string {
	return Reconstructor{}.Lines(pages)
}

// Normalize folds a text run to NFC, turns non-breaking spaces into spaces,
// collapses whitespace runs and trims.
func Normalize(s string) string {
	s = norm.NFC.String(s)
	s = strings.ReplaceAll(s, "\u00a0", " ")
	return strings.Join(strings.Fields(s), " ")
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
