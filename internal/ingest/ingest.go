// Package ingest turns extractor dumps into stored delivery records.
//
// Documents are laid out and parsed concurrently, then funnelled in input
// order through the single store writer in groups of BatchSize documents per
// transaction. Each document is atomic: a failure rolls back that document
// alone and is reported, and the run continues.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/mealledger/internal/extract"
	"github.com/roach88/mealledger/internal/layout"
	"github.com/roach88/mealledger/internal/ledger"
	"github.com/roach88/mealledger/internal/metrics"
	"github.com/roach88/mealledger/internal/store"
)

const (
	// DefaultBatchSize is the number of documents per transaction.
	DefaultBatchSize = 10
	// DefaultWorkers bounds concurrent extraction.
	DefaultWorkers = 4
)

// Pipeline ingests documents into a store.
type Pipeline struct {
	store     *store.Store
	layout    layout.Reconstructor
	workers   int
	batchSize int
	ids       ledger.IDGenerator
	logger    *zap.Logger
	metrics   *metrics.Recorder
	trace     func(document string, ev extract.Event)
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithWorkers bounds concurrent extraction. Values below 1 are ignored.
func WithWorkers(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.workers = n
		}
	}
}

// WithBatchSize sets the documents per transaction. Values below 1 are ignored.
func WithBatchSize(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.batchSize = n
		}
	}
}

// WithTolerance sets the layout band tolerance.
func WithTolerance(eps float64) Option {
	return func(p *Pipeline) {
		p.layout = layout.Reconstructor{Tolerance: eps}
	}
}

// WithIDGenerator sets the run id generator.
func WithIDGenerator(g ledger.IDGenerator) Option {
	return func(p *Pipeline) {
		p.ids = g
	}
}

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(p *Pipeline) {
		p.logger = l
	}
}

// WithMetrics records document and row counters.
func WithMetrics(m *metrics.Recorder) Option {
	return func(p *Pipeline) {
		p.metrics = m
	}
}

// WithTrace receives every extractor line event. It is called from the
// extraction workers concurrently, once per document in line order.
func WithTrace(fn func(document string, ev extract.Event)) Option {
	return func(p *Pipeline) {
		p.trace = fn
	}
}

// New returns a pipeline writing to s.
func New(s *store.Store, opts ...Option) *Pipeline {
	p := &Pipeline{
		store:     s,
		layout:    layout.Reconstructor{},
		workers:   DefaultWorkers,
		batchSize: DefaultBatchSize,
		ids:       ledger.UUIDv7Generator{},
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// parsed is the extraction outcome of one input, kept at its input index.
type parsed struct {
	name   string
	result *extract.Result
	err    error
}

// IngestFiles loads and ingests the documents at paths.
func (p *Pipeline) IngestFiles(ctx context.Context, paths []string) (*Report, error) {
	return p.run(ctx, len(paths), func(i int) parsed {
		doc, err := layout.LoadDocument(paths[i])
		if err != nil {
			return parsed{name: filepath.Base(paths[i]), err: err}
		}
		return p.extract(doc)
	})
}

// Ingest ingests already-loaded documents.
func (p *Pipeline) Ingest(ctx context.Context, docs []*layout.Document) (*Report, error) {
	return p.run(ctx, len(docs), func(i int) parsed {
		return p.extract(docs[i])
	})
}

func (p *Pipeline) extract(doc *layout.Document) parsed {
	x := extract.Extractor{}
	if p.trace != nil {
		name := doc.Name
		x.Trace = func(ev extract.Event) { p.trace(name, ev) }
	}
	res, err := x.ExtractDocument(doc.Name, doc.TextLines(p.layout))
	return parsed{name: doc.Name, result: res, err: err}
}

func (p *Pipeline) run(ctx context.Context, n int, load func(i int) parsed) (*Report, error) {
	report := &Report{RunID: p.ids.Generate(), Documents: make([]DocumentReport, n)}
	log := p.logger.With(zap.String("run_id", report.RunID))
	log.Info("ingest started", zap.Int("documents", n))

	results := make([]parsed, n)
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(p.workers)
	for i := 0; i < n; i++ {
		i := i
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			results[i] = load(i)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, fmt.Errorf("extract documents: %w", err)
	}

	for start := 0; start < n; start += p.batchSize {
		if err := ctx.Err(); err != nil {
			report.Documents = report.Documents[:start]
			report.tally()
			return report, err
		}
		end := min(start+p.batchSize, n)
		p.persistGroup(ctx, log, results[start:end], report.Documents[start:end])
	}

	report.tally()
	log.Info("ingest finished",
		zap.Int("processed", report.Processed),
		zap.Int("skipped", report.Skipped),
		zap.Int("failed", report.Failed),
		zap.Int("rows_inserted", report.RowsInserted),
	)
	return report, nil
}

// persistGroup stores one group of documents in a single transaction.
func (p *Pipeline) persistGroup(ctx context.Context, log *zap.Logger, group []parsed, out []DocumentReport) {
	err := p.store.Batch(ctx, func(tx *store.Tx) error {
		for i, doc := range group {
			rep := &out[i]
			*rep = DocumentReport{Name: doc.name}

			if doc.err != nil {
				rep.fail(reason(doc.err))
				log.Warn("document rejected", zap.String("document", doc.name), zap.Error(doc.err))
				continue
			}
			rep.Week = doc.result.Meta.Week
			rep.SchoolYear = doc.result.Meta.SchoolYear

			err := tx.Document(ctx, doc.name, func() error {
				for _, row := range doc.result.Rows {
					outcome, err := tx.Insert(ctx, row)
					if err != nil {
						return err
					}
					if outcome == store.Inserted {
						rep.Inserted++
					} else {
						rep.Skipped++
					}
				}
				return nil
			})
			if err != nil {
				rep.fail(reason(err))
				log.Warn("document not stored", zap.String("document", doc.name), zap.Error(err))
				continue
			}
			rep.settle(len(doc.result.Rows))
			log.Debug("document stored",
				zap.String("document", doc.name),
				zap.String("status", string(rep.Status)),
				zap.Int("inserted", rep.Inserted),
				zap.Int("skipped", rep.Skipped),
			)
		}
		return nil
	})
	if err != nil {
		log.Error("batch aborted", zap.Int("documents", len(group)), zap.Error(err))
		for i := range out {
			if out[i].Status != StatusFailed {
				out[i].fail(reason(err))
			}
		}
	}

	for _, rep := range out {
		p.metrics.Document(string(rep.Status))
		p.metrics.Rows(store.Inserted.String(), rep.Inserted)
		p.metrics.Rows(store.Skipped.String(), rep.Skipped)
	}
}

func reason(err error) string {
	var perr *extract.ParseError
	if errors.As(err, &perr) {
		return perr.Reason
	}
	return err.Error()
}
