package extract

import (
	"errors"

	"github.com/roach88/mealledger/internal/ledger"
)

// Result is the outcome of extracting one document.
type Result struct {
	Meta Metadata
	Rows []ledger.DeliveryRecord
}

// Extractor runs the state machine over whole documents.
// The zero value is ready to use.
type Extractor struct {
	// Trace, when set, receives every line event in order.
	Trace func(Event)
}

// Extract parses metadata and rows from a document's lines.
// A missing week marker returns a *ParseError; malformed lines are skipped.
func (x Extractor) Extract(lines []string) (*Result, error) {
	meta, err := ParseMetadata(lines)
	if err != nil {
		return nil, err
	}

	m := NewMachine(meta)
	res := &Result{Meta: meta}
	for _, line := range lines {
		ev := m.Step(line)
		if x.Trace != nil {
			x.Trace(ev)
		}
		if ev.Transition == DataMatch {
			res.Rows = append(res.Rows, *ev.Row)
		}
	}
	return res, nil
}

// ExtractDocument is Extract with the document name attached to any ParseError.
func (x Extractor) ExtractDocument(name string, lines []string) (*Result, error) {
	res, err := x.Extract(lines)
	var perr *ParseError
	if errors.As(err, &perr) {
		perr.Document = name
	}
	return res, err
}
