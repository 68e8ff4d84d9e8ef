package ingest

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/mealledger/internal/aggregate"
	"github.com/roach88/mealledger/internal/extract"
	"github.com/roach88/mealledger/internal/layout"
	"github.com/roach88/mealledger/internal/ledger"
	"github.com/roach88/mealledger/internal/metrics"
	"github.com/roach88/mealledger/internal/store"
	"github.com/roach88/mealledger/internal/testutil"
)

const header = "Lieu de prise de repas Régime Lundi Mardi Mercredi Jeudi Vendredi"

func document(name string, lines ...string) *layout.Document {
	return &layout.Document{Name: name, Pages: []layout.Page{testutil.PageFromLines(lines...)}}
}

func weekDoc(name, week, school string) *layout.Document {
	return document(name,
		"BON DE LIVRAISON Semaine "+week,
		"Période du 11/03/2024 au 15/03/2024",
		header,
		school+" STANDARD 10 11 0 12 13",
		school+" HALAL 1 2 0 3 4",
		"Edité le 15/03/2024",
	)
}

func listAll(t *testing.T, s *store.Store) []ledger.DeliveryRecord {
	t.Helper()
	recs, err := aggregate.New(s.DB(), testutil.Compass).List(context.Background(), aggregate.Filter{})
	require.NoError(t, err)
	for i := range recs {
		recs[i].ID = 0
	}
	return recs
}

func TestIngest_Statuses(t *testing.T) {
	s := testutil.OpenStore(t)
	m := metrics.New()
	p := New(s, WithIDGenerator(ledger.NewFixedGenerator("run-1")), WithMetrics(m))

	report, err := p.Ingest(context.Background(), []*layout.Document{
		weekDoc("a.yaml", "11", "SCHOOL ALPHA - MATERNELLE"),
		weekDoc("a-copy.yaml", "11", "SCHOOL ALPHA - MATERNELLE"),
		document("empty.yaml", "Semaine 11", header, "Edité le 15/03/2024"),
		document("noweek.yaml", header, "SCHOOL ALPHA STANDARD 1 2 0 3 4"),
	})
	require.NoError(t, err)

	assert.Equal(t, "run-1", report.RunID)
	require.Len(t, report.Documents, 4)
	assert.Equal(t, DocumentReport{Name: "a.yaml", Status: StatusAdded, Week: "11", SchoolYear: "2023-2024", Inserted: 2}, report.Documents[0])
	assert.Equal(t, DocumentReport{Name: "a-copy.yaml", Status: StatusDuplicate, Week: "11", SchoolYear: "2023-2024", Skipped: 2}, report.Documents[1])
	assert.Equal(t, StatusEmpty, report.Documents[2].Status)
	assert.Equal(t, DocumentReport{Name: "noweek.yaml", Status: StatusFailed, Reason: extract.ErrNoWeek}, report.Documents[3])

	assert.Equal(t, 1, report.Processed)
	assert.Equal(t, 2, report.Skipped)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 2, report.RowsInserted)
	assert.Equal(t, 2, report.RowsSkipped)

	expected := `
# HELP mealledger_documents_total Documents processed by ingestion, by status.
# TYPE mealledger_documents_total counter
mealledger_documents_total{status="added"} 1
mealledger_documents_total{status="duplicate"} 1
mealledger_documents_total{status="empty"} 1
mealledger_documents_total{status="failed"} 1
# HELP mealledger_rows_total Delivery rows offered to the store, by outcome.
# TYPE mealledger_rows_total counter
mealledger_rows_total{outcome="inserted"} 2
mealledger_rows_total{outcome="skipped"} 2
`
	assert.NoError(t, promtest.GatherAndCompare(m.Registry(), strings.NewReader(expected)))
}

func TestIngest_Idempotent(t *testing.T) {
	s := testutil.OpenStore(t)
	p := New(s)
	docs := []*layout.Document{
		weekDoc("a.yaml", "11", "SCHOOL ALPHA"),
		weekDoc("b.yaml", "12", "SCHOOL CHARLIE"),
	}
	ctx := context.Background()

	first, err := p.Ingest(ctx, docs)
	require.NoError(t, err)
	assert.Equal(t, 4, first.RowsInserted)
	before := listAll(t, s)

	second, err := p.Ingest(ctx, docs)
	require.NoError(t, err)
	assert.Zero(t, second.RowsInserted)
	assert.Equal(t, 4, second.RowsSkipped)
	for _, d := range second.Documents {
		assert.Equal(t, StatusDuplicate, d.Status)
	}
	assert.Equal(t, before, listAll(t, s))
}

func TestIngest_OrderInvariance(t *testing.T) {
	docs := []*layout.Document{
		weekDoc("a.yaml", "11", "SCHOOL ALPHA"),
		weekDoc("b.yaml", "12", "SCHOOL ALPHA"),
		weekDoc("c.yaml", "11", "SCHOOL CHARLIE"),
		weekDoc("d.yaml", "13", "SCHOOL ECHO ELEMENTAIRE"),
	}
	reversed := []*layout.Document{docs[3], docs[2], docs[1], docs[0]}

	s1 := testutil.OpenStore(t)
	_, err := New(s1, WithBatchSize(3)).Ingest(context.Background(), docs)
	require.NoError(t, err)

	s2 := testutil.OpenStore(t)
	_, err = New(s2, WithBatchSize(1), WithWorkers(1)).Ingest(context.Background(), reversed)
	require.NoError(t, err)

	assert.Equal(t, listAll(t, s1), listAll(t, s2))

	schools1, err := s1.ListSchools(context.Background())
	require.NoError(t, err)
	schools2, err := s2.ListSchools(context.Background())
	require.NoError(t, err)
	assert.Equal(t, schools1, schools2)
}

func TestIngest_ReportKeepsInputOrderAcrossBatches(t *testing.T) {
	s := testutil.OpenStore(t)
	var docs []*layout.Document
	var names []string
	for _, w := range []string{"02", "03", "04", "05", "06", "09", "10"} {
		name := "week-" + w + ".yaml"
		docs = append(docs, weekDoc(name, w, "SCHOOL BRAVO"))
		names = append(names, name)
	}

	report, err := New(s, WithBatchSize(3), WithWorkers(8)).Ingest(context.Background(), docs)
	require.NoError(t, err)

	var got []string
	for _, d := range report.Documents {
		got = append(got, d.Name)
		assert.Equal(t, StatusAdded, d.Status)
	}
	assert.Equal(t, names, got)
	assert.Equal(t, 14, report.RowsInserted)
}

func TestIngest_TerritoryResolvedOnIngest(t *testing.T) {
	s := testutil.OpenStore(t)
	_, err := New(s).Ingest(context.Background(), []*layout.Document{
		weekDoc("a.yaml", "11", "SCHOOL CHARLIE (ELEMENTAIRE)"),
	})
	require.NoError(t, err)

	territory, err := s.SchoolTerritory(context.Background(), "SCHOOL CHARLIE")
	require.NoError(t, err)
	assert.Equal(t, "SOUTH", territory)
}

func TestIngest_Trace(t *testing.T) {
	s := testutil.OpenStore(t)

	var mu sync.Mutex
	counts := map[string]int{}
	p := New(s, WithTrace(func(document string, ev extract.Event) {
		mu.Lock()
		defer mu.Unlock()
		if ev.Transition == extract.DataMatch {
			counts[document]++
		}
	}))

	_, err := p.Ingest(context.Background(), []*layout.Document{
		weekDoc("a.yaml", "11", "SCHOOL ALPHA"),
		weekDoc("b.yaml", "12", "SCHOOL ALPHA"),
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"a.yaml": 2, "b.yaml": 2}, counts)
}

func TestIngest_Cancelled(t *testing.T) {
	s := testutil.OpenStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(s).Ingest(ctx, []*layout.Document{weekDoc("a.yaml", "11", "SCHOOL ALPHA")})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, listAll(t, s))
}

func TestIngestFiles(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
		return path
	}

	yamlDoc := write("week11.yaml", `name: week11.pdf
pages:
  - fragments:
      - {x: 40, y: 800, text: "Semaine 11"}
      - {x: 40, y: 780, text: "du 11/03/2024"}
      - {x: 200, y: 760, text: "Lundi Mardi Mercredi Jeudi Vendredi"}
      - {x: 40, y: 760.5, text: "Lieu de prise de repas"}
      - {x: 120, y: 740, text: "STANDARD 10 11 0 12 13"}
      - {x: 40, y: 741, text: "SCHOOL ALPHA"}
`)
	txtDoc := write("week12.txt", "Semaine 12\ndu 18/03/2024\n"+header+"\nSCHOOL BRAVO HALAL 1 1 0 1 1\n")
	bad := write("week13.pdf", "%PDF-1.7")

	report, err := New(testutil.OpenStore(t)).IngestFiles(context.Background(), []string{yamlDoc, txtDoc, bad})
	require.NoError(t, err)
	require.Len(t, report.Documents, 3)

	assert.Equal(t, "week11.pdf", report.Documents[0].Name)
	assert.Equal(t, StatusAdded, report.Documents[0].Status)
	assert.Equal(t, 1, report.Documents[0].Inserted)

	assert.Equal(t, StatusAdded, report.Documents[1].Status)
	assert.Equal(t, "12", report.Documents[1].Week)

	assert.Equal(t, StatusFailed, report.Documents[2].Status)
	assert.Contains(t, report.Documents[2].Reason, "unsupported document format")
}
