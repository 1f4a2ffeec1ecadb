package testutil

// FixedRunIDGenerator returns the same run ID every time.
//
// Scenario runs use it so log output and the runs table are reproducible.
//
// Thread-safety: FixedRunIDGenerator is stateless and safe for concurrent use.
type FixedRunIDGenerator struct {
	id string
}

// NewFixedRunIDGenerator creates a fixed run ID generator.
//
// If id is empty, Generate() returns "test-run-default".
func NewFixedRunIDGenerator(id string) *FixedRunIDGenerator {
	if id == "" {
		id = "test-run-default"
	}
	return &FixedRunIDGenerator{id: id}
}

// Generate returns the fixed run ID.
//
// Implements engine.RunIDGenerator.
func (g *FixedRunIDGenerator) Generate() string {
	return g.id
}
