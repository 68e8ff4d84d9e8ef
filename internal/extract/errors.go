package extract

import "fmt"

// ParseError reports a document that cannot be extracted at all.
// It is fatal for that document only.
type ParseError struct {
	// Document is the source document name, when known.
	Document string

	// Reason is a human-readable description.
	Reason string
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	if e.Document != "" {
		return fmt.Sprintf("parse %s: %s", e.Document, e.Reason)
	}
	return "parse: " + e.Reason
}

// ErrNoWeek is the reason recorded when a document has no week marker.
const ErrNoWeek = "week number not found"
