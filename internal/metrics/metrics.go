// Package metrics counts ingestion activity with Prometheus collectors.
//
// The CLI is a short-lived process, so counters are exported by writing a
// node_exporter textfile rather than serving /metrics.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "mealledger"

// Recorder holds the ingestion counters on a private registry.
// A nil *Recorder discards every observation.
type Recorder struct {
	reg       *prometheus.Registry
	documents *prometheus.CounterVec
	rows      *prometheus.CounterVec
}

// New registers the ingestion counters on a fresh registry.
func New() *Recorder {
	r := &Recorder{
		reg: prometheus.NewRegistry(),
		documents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "documents_total",
			Help:      "Documents processed by ingestion, by status.",
		}, []string{"status"}),
		rows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_total",
			Help:      "Delivery rows offered to the store, by outcome.",
		}, []string{"outcome"}),
	}
	r.reg.MustRegister(r.documents, r.rows)
	return r
}

// Document counts one document with the given status.
func (r *Recorder) Document(status string) {
	if r == nil {
		return
	}
	r.documents.WithLabelValues(status).Inc()
}

// Rows counts n rows with the given outcome.
func (r *Recorder) Rows(outcome string, n int) {
	if r == nil || n <= 0 {
		return
	}
	r.rows.WithLabelValues(outcome).Add(float64(n))
}

// Registry exposes the registry for gathering.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.reg
}

// WriteFile writes the counters in text exposition format to path.
func (r *Recorder) WriteFile(path string) error {
	if r == nil {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, r.reg); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}
	return nil
}
