package layout

import (
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func samplePage() Page {
	return Page{Fragments: []Fragment{
		{X: 300, Y: 700, Text: "Semaine 12"},
		{X: 20, Y: 700.5, Text: "Bon de commande"},
		{X: 20, Y: 650, Text: "Lieu de prise de repas"},
		{X: 200, Y: 651, Text: "Lundi"},
		{X: 250, Y: 649.2, Text: "Mardi"},
		{X: 20, Y: 600, Text: "ECOLE   BRIGITTE"},
		{X: 140, Y: 600, Text: "STANDARD"},
		{X: 200, Y: 600, Text: "12"},
		{X: 250, Y: 600, Text: "8"},
	}}
}

func TestPageLines_OrdersTopToBottomLeftToRight(t *testing.T) {
	lines := Reconstructor{}.PageLines(samplePage())

	assert.Equal(t, []string{
		"Bon de commande Semaine 12",
		"Lieu de prise de repas Lundi Mardi",
		"ECOLE BRIGITTE STANDARD 12 8",
	}, lines)
}

func TestPageLines_IndependentOfFragmentOrder(t *testing.T) {
	want := Reconstructor{}.PageLines(samplePage())

	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 20; i++ {
		p := samplePage()
		rng.Shuffle(len(p.Fragments), func(a, b int) {
			p.Fragments[a], p.Fragments[b] = p.Fragments[b], p.Fragments[a]
		})
		assert.Equal(t, want, Reconstructor{}.PageLines(p), "shuffle %d", i)
	}
}

func TestPageLines_ToleranceSplitsBands(t *testing.T) {
	p := Page{Fragments: []Fragment{
		{X: 0, Y: 100, Text: "a"},
		{X: 10, Y: 97, Text: "b"},
	}}

	assert.Equal(t, []string{"a", "b"}, Reconstructor{}.PageLines(p))
	assert.Equal(t, []string{"a b"}, Reconstructor{Tolerance: 5}.PageLines(p))
}

func TestPageLines_DropsBlankBands(t *testing.T) {
	p := Page{Fragments: []Fragment{
		{X: 0, Y: 100, Text: "  "},
		{X: 0, Y: 50, Text: "x"},
	}}
	assert.Equal(t, []string{"x"}, Lines([]Page{p}))
}

func TestLines_AppendsPagesInOrder(t *testing.T) {
	p1 := Page{Fragments: []Fragment{{X: 0, Y: 10, Text: "page one"}}}
	p2 := Page{Fragments: []Fragment{{X: 0, Y: 900, Text: "page two"}}}

	assert.Equal(t, []string{"page one", "page two"}, Lines([]Page{p1, p2}))
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"  a   b ", "a b"},
		{"a  b", "a b"},
		{"E\u0301COLE", "\u00c9COLE"},
		{"\t", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Normalize(tt.in), "Normalize(%q)", tt.in)
	}
}

func TestLoadDocument_YAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
name: brigitte-s12.pdf
pages:
  - fragments:
      - {x: 10, y: 700, text: "Semaine 12"}
      - {x: 10, y: 650, text: "ligne"}
`), 0o644))

	doc, err := LoadDocument(path)
	require.NoError(t, err)
	assert.Equal(t, "brigitte-s12.pdf", doc.Name)
	assert.Equal(t, []string{"Semaine 12", "ligne"}, doc.TextLines(Reconstructor{}))
}

func TestLoadDocument_JSONDefaultsName(t *testing.T) {
	path := filepath.Join(t.TempDir(), "export.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"pages":[{"fragments":[{"x":1,"y":2,"text":"hello"}]}]}`), 0o644))

	doc, err := LoadDocument(path)
	require.NoError(t, err)
	assert.Equal(t, "export.json", doc.Name)
	assert.Equal(t, []string{"hello"}, doc.TextLines(Reconstructor{}))
}

func TestLoadDocument_Text(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lines.txt")
	require.NoError(t, os.WriteFile(path, []byte("Semaine 3\n\n  ECOLE   X  \n"), 0o644))

	doc, err := LoadDocument(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"Semaine 3", "ECOLE X"}, doc.TextLines(Reconstructor{}))
}

func TestLoadDocument_RejectsUnknownFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: x\npagez: []\n"), 0o644))

	_, err := LoadDocument(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad.yaml")
}

func TestLoadDocument_UnsupportedExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scan.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF"), 0o644))

	_, err := LoadDocument(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported document format")
}
