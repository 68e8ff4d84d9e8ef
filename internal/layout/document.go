package layout

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Document is the output of an external text extractor for one source file.
// Either Pages or Lines is set: Lines carries text that is already in reading order.
type Document struct {
	Name  string   `yaml:"name" json:"name"`
	Pages []Page   `yaml:"pages,omitempty" json:"pages,omitempty"`
	Lines []string `yaml:"lines,omitempty" json:"lines,omitempty"`
}

// TextLines returns the document's lines in reading order.
func (d Document) TextLines(r Reconstructor) []string {
	if len(d.Pages) == 0 {
		out := make([]string, 0, len(d.Lines))
		for _, l := range d.Lines {
			if l = Normalize(l); l != "" {
				out = append(out, l)
			}
		}
		return out
	}
	return r.Lines(d.Pages)
}

// LoadDocument reads an extractor dump.
//
// Supported formats, chosen by extension:
//   - .yaml, .yml, .json: {name, pages: [{fragments: [{x, y, text}]}]} or {name, lines: [...]}
//   - .txt: one line of text per line, already in reading order
//
// The document name defaults to the file's base name.
func LoadDocument(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read document: %w", err)
	}

	var doc *Document
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt":
		doc, err = decodeText(bytes.NewReader(data))
	case ".yaml", ".yml", ".json":
		doc, err = DecodeDocument(data)
	default:
		return nil, fmt.Errorf("unsupported document format: %s", filepath.Ext(path))
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	if doc.Name == "" {
		doc.Name = filepath.Base(path)
	}
	return doc, nil
}

// DecodeDocument parses a YAML or JSON extractor dump.
// Unknown fields are rejected so that a mislabelled key fails loudly.
func DecodeDocument(data []byte) (*Document, error) {
	var doc Document
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&doc); err != nil {
		if err == io.EOF {
			return &doc, nil
		}
		return nil, fmt.Errorf("failed to parse document: %w", err)
	}
	return &doc, nil
}

func decodeText(r io.Reader) (*Document, error) {
	doc := &Document{}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		doc.Lines = append(doc.Lines, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan lines: %w", err)
	}
	return doc, nil
}
