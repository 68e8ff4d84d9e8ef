package ingest

// Status classifies what ingestion did with one document.
type Status string

const (
	// StatusAdded means at least one new row was stored.
	StatusAdded Status = "added"
	// StatusDuplicate means rows were extracted but all already existed.
	StatusDuplicate Status = "duplicate"
	// StatusEmpty means the document parsed but held no data rows.
	StatusEmpty Status = "empty"
	// StatusFailed means the document could not be read, parsed or stored.
	StatusFailed Status = "failed"
)

// DocumentReport is the outcome of one document.
type DocumentReport struct {
	Name       string `json:"name"`
	Status     Status `json:"status"`
	Week       string `json:"week,omitempty"`
	SchoolYear string `json:"school_year,omitempty"`
	Inserted   int    `json:"inserted"`
	Skipped    int    `json:"skipped"`
	Reason     string `json:"reason,omitempty"`
}

func (d *DocumentReport) fail(reason string) {
	d.Status = StatusFailed
	d.Inserted = 0
	d.Skipped = 0
	d.Reason = reason
}

func (d *DocumentReport) settle(rows int) {
	switch {
	case d.Inserted > 0:
		d.Status = StatusAdded
	case rows == 0:
		d.Status = StatusEmpty
	default:
		d.Status = StatusDuplicate
	}
}

// Report summarises one ingestion run. Documents keep input order.
type Report struct {
	RunID        string           `json:"run_id"`
	Documents    []DocumentReport `json:"documents"`
	Processed    int              `json:"processed"`
	Skipped      int              `json:"skipped"`
	Failed       int              `json:"failed"`
	RowsInserted int              `json:"rows_inserted"`
	RowsSkipped  int              `json:"rows_skipped"`
}

func (r *Report) tally() {
	r.Processed, r.Skipped, r.Failed = 0, 0, 0
	r.RowsInserted, r.RowsSkipped = 0, 0
	for _, d := range r.Documents {
		switch d.Status {
		case StatusAdded:
			r.Processed++
		case StatusDuplicate, StatusEmpty:
			r.Skipped++
		case StatusFailed:
			r.Failed++
		}
		r.RowsInserted += d.Inserted
		r.RowsSkipped += d.Skipped
	}
}
