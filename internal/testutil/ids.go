package testutil

// RepeatingIDGenerator returns the same id every time.
//
// Golden outputs that embed generated ids stay byte-identical across runs.
//
// Thread-safety: RepeatingIDGenerator is stateless and safe for concurrent use.
type RepeatingIDGenerator struct {
	id string
}

// NewRepeatingIDGenerator creates a generator returning id. An empty id
// becomes "test-id-default".
func NewRepeatingIDGenerator(id string) *RepeatingIDGenerator {
	if id == "" {
		id = "test-id-default"
	}
	return &RepeatingIDGenerator{id: id}
}

// Generate returns the fixed id.
//
// Implements ledger.IDGenerator.
func (g *RepeatingIDGenerator) Generate() string {
	return g.id
}
