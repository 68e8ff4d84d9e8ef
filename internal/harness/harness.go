package harness

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/roach88/mealledger/internal/aggregate"
	"github.com/roach88/mealledger/internal/compliance"
	"github.com/roach88/mealledger/internal/extract"
	"github.com/roach88/mealledger/internal/ingest"
	"github.com/roach88/mealledger/internal/layout"
	"github.com/roach88/mealledger/internal/refdata"
	"github.com/roach88/mealledger/internal/store"
	"github.com/roach88/mealledger/internal/testutil"
)

// Harness runs one scenario against one ledger.
type Harness struct {
	store    *store.Store
	ref      *refdata.RefData
	engine   *aggregate.Engine
	pipeline *ingest.Pipeline
	docs     map[string]*layout.Document
	logger   *zap.Logger

	mu     sync.Mutex
	result *Result
}

// Run executes a scenario against a fresh ledger and returns the result.
//
// Run returns an error only when the scenario cannot execute at all (bad
// reference data, a store that will not open, a step the ledger rejects).
// Failed expectations and assertions are collected in Result.Errors.
func Run(scenario *Scenario) (*Result, error) {
	return RunContext(context.Background(), scenario, zap.NewNop())
}

// RunContext is Run with an explicit context and logger.
func RunContext(ctx context.Context, scenario *Scenario, logger *zap.Logger) (*Result, error) {
	ref, err := refdata.Load(scenario.RefData)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
	}

	dir, err := os.MkdirTemp("", "mealledger-harness-*")
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
	}
	defer os.RemoveAll(dir)

	st, err := store.Open(ctx, filepath.Join(dir, "ledger.db"),
		store.WithTerritories(ref.Territories),
		store.WithLogger(logger.Named("store")),
	)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
	}
	defer st.Close()

	h := &Harness{
		store:  st,
		ref:    ref,
		engine: aggregate.New(st.DB(), st.Territories()),
		docs:   make(map[string]*layout.Document, len(scenario.Documents)),
		logger: logger,
		result: NewResult(),
	}
	for i := range scenario.Documents {
		h.docs[scenario.Documents[i].Name] = &scenario.Documents[i]
	}
	h.pipeline = ingest.New(st,
		ingest.WithWorkers(1),
		ingest.WithIDGenerator(testutil.NewRepeatingIDGenerator(scenario.RunID)),
		ingest.WithLogger(logger.Named("ingest")),
		ingest.WithTrace(h.trace),
	)

	for i, step := range scenario.Steps {
		if err := h.executeStep(ctx, i, step); err != nil {
			return nil, fmt.Errorf("scenario %s: step %d: %w", scenario.Name, i, err)
		}
	}

	summary, err := h.engine.Summary(ctx, aggregate.Filter{})
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
	}
	h.result.Summary = summary

	for _, assertion := range scenario.Assertions {
		if err := h.evaluate(ctx, assertion); err != nil {
			h.result.AddError(err.Error())
		}
	}

	logger.Debug("scenario completed",
		zap.String("scenario", scenario.Name),
		zap.Bool("pass", h.result.Pass),
		zap.Int("errors", len(h.result.Errors)),
	)
	return h.result, nil
}

func (h *Harness) trace(document string, ev extract.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.result.addTransition(document, ev)
}

// executeStep applies one step to the ledger.
func (h *Harness) executeStep(ctx context.Context, i int, step Step) error {
	switch {
	case len(step.Ingest) > 0:
		docs := make([]*layout.Document, len(step.Ingest))
		for j, name := range step.Ingest {
			docs[j] = h.docs[name]
		}
		report, err := h.pipeline.Ingest(ctx, docs)
		if err != nil {
			return err
		}
		h.mu.Lock()
		h.result.addReport(report)
		h.mu.Unlock()
		if step.Expect != nil {
			if err := matchExpect(fmt.Sprintf("steps[%d]", i), report, step.Expect); err != nil {
				h.result.AddError(err.Error())
			}
		}

	case step.Strike != nil:
		strike, err := step.Strike.StrikeDay()
		if err != nil {
			return err
		}
		if _, _, err := h.store.AddStrike(ctx, strike); err != nil {
			return err
		}

	case step.Manual != nil:
		if _, err := h.store.ManualEntry(ctx, *step.Manual); err != nil {
			return err
		}

	case step.Assign != nil:
		if _, ok := h.ref.Territory(step.Assign.Territory); !ok {
			return fmt.Errorf("assign: unknown territory %q", step.Assign.Territory)
		}
		if err := h.store.AssignTerritory(ctx, step.Assign.School, step.Assign.Territory); err != nil {
			return err
		}

	case step.Sync:
		if err := h.store.SyncTerritories(ctx); err != nil {
			return err
		}
	}

	h.logger.Debug("step completed", zap.Int("step", i))
	return nil
}

// checker builds a compliance checker pinned to week.
func (h *Harness) checker(week int) *compliance.Checker {
	exceptions := make([]compliance.Exception, len(h.ref.Exceptions))
	for i, ex := range h.ref.Exceptions {
		exceptions[i] = compliance.Exception{Match: ex.Match, MaxWeekInclusive: ex.MaxWeekInclusive}
	}
	return compliance.NewChecker(
		compliance.NewCalendar(h.ref.Calendar.Weeks, h.ref.Calendar.RolloverThreshold),
		compliance.WithExceptions(exceptions),
		compliance.WithCurrentWeek(week),
	)
}
