package harness

import (
	"github.com/roach88/mealledger/internal/aggregate"
	"github.com/roach88/mealledger/internal/extract"
	"github.com/roach88/mealledger/internal/ingest"
)

// Trace event types.
const (
	EventTransition = "transition"
	EventDocument   = "document"
)

// TraceEvent is one step of a scenario run: an extractor line transition or
// the settled outcome of a document.
type TraceEvent struct {
	Type       string        `json:"type"`
	Document   string        `json:"document"`
	Transition string        `json:"transition,omitempty"`
	From       string        `json:"from,omitempty"`
	To         string        `json:"to,omitempty"`
	Line       string        `json:"line,omitempty"`
	Reason     string        `json:"reason,omitempty"`
	Status     ingest.Status `json:"status,omitempty"`
}

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true when every step expectation and assertion held.
	Pass bool `json:"pass"`

	// Trace holds extractor transitions and document outcomes in run order.
	Trace []TraceEvent `json:"trace"`

	// Errors holds one message per failed expectation.
	Errors []string `json:"errors,omitempty"`

	// Documents is every document report across all ingest steps.
	Documents []ingest.DocumentReport `json:"documents"`

	// Summary is the unfiltered, strike-adjusted summary after the last step.
	Summary []aggregate.SummaryRow `json:"summary"`
}

// NewResult creates a passing result.
func NewResult() *Result {
	return &Result{
		Pass:      true,
		Trace:     []TraceEvent{},
		Errors:    []string{},
		Documents: []ingest.DocumentReport{},
		Summary:   []aggregate.SummaryRow{},
	}
}

// AddError records a failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

func (r *Result) addTransition(document string, ev extract.Event) {
	r.Trace = append(r.Trace, TraceEvent{
		Type:       EventTransition,
		Document:   document,
		Transition: ev.Transition.String(),
		From:       ev.From.String(),
		To:         ev.To.String(),
		Line:       ev.Line,
		Reason:     ev.Reason,
	})
}

func (r *Result) addReport(report *ingest.Report) {
	for _, d := range report.Documents {
		r.Documents = append(r.Documents, d)
		r.Trace = append(r.Trace, TraceEvent{
			Type:     EventDocument,
			Document: d.Name,
			Status:   d.Status,
			Reason:   d.Reason,
		})
	}
}
