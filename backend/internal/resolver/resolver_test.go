package resolver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kaybee/backend/internal/graph"
)

func people() map[string]graph.Entity {
	return map[string]graph.Entity{
		"alic.0001": {ID: "alic.0001", Names: []string{"Alice", "Ali"}},
		"bob.0002":  {ID: "bob.0002", Names: []string{"Bob"}},
		"carl.0003": {ID: "carl.0003", Names: []string{"Carl", "Charles Carlson"}},
		"acme.0004": {ID: "acme.0004", Names: []string{"ACME Corporation", "Acme"}},
	}
}

func TestNew_UnknownAlgorithm(t *testing.T) {
	_, err := New("soundex")
	assert.Error(t, err)

	r, err := New("Levenshtein")
	require.NoError(t, err)
	assert.Equal(t, "levenshtein", r.Algorithm())
}

func TestScore(t *testing.T) {
	r := Default()
	assert.Equal(t, 100.0, r.Score("Alice", "alice"))
	assert.Greater(t, r.Score("Alise", "Alice"), 80.0)
	assert.Less(t, r.Score("Bob", "Alice"), 80.0)
	assert.Equal(t, 0.0, r.Score("", "Alice"))
	assert.Equal(t, r.Score("Carl", "Karl"), r.Score("Karl", "Carl"), "score is symmetric")
}

func TestResolve_Scenarios(t *testing.T) {
	r := Default()
	entities := people()

	assert.Equal(t, []string{"alic.0001"}, r.Resolve([]string{"Alise"}, entities, DefaultThreshold))
	assert.Empty(t, r.Resolve([]string{"Zed"}, entities, DefaultThreshold))
	assert.Equal(t, []string{"bob.0002"}, r.Resolve([]string{"bob"}, entities, DefaultThreshold))
}

func TestResolve_UnionOverCandidatesAndSynonyms(t *testing.T) {
	r := Default()
	ids := r.Resolve([]string{"acme", "charles carlson", "ALI"}, people(), DefaultThreshold)
	assert.Equal(t, []string{"acme.0004", "alic.0001", "carl.0003"}, ids)
}

func TestResolve_EmptyInputs(t *testing.T) {
	r := Default()
	assert.Empty(t, r.Resolve(nil, people(), DefaultThreshold))
	assert.Empty(t, r.Resolve([]string{"Alice"}, nil, DefaultThreshold))
	assert.Empty(t, r.Resolve([]string{""}, people(), 0))
}

func TestResolve_ThresholdIsStrict(t *testing.T) {
	r := Default()
	assert.Empty(t, r.Resolve([]string{"Bob"}, people(), 100), "an exact match scores 100, not above it")
}

func TestResolve_Monotonic(t *testing.T) {
	candidates := []string{"Alise", "Karl", "Acm", "Bobby"}
	for name := range algorithms {
		r, err := New(name)
		require.NoError(t, err)
		var previous []string
		for _, threshold := range []float64{95, 90, 80, 60, 40, 20, 0} {
			current := r.Resolve(candidates, people(), threshold)
			assert.Subset(t, current, previous, "%s: lowering the threshold to %v dropped matches", name, threshold)
			previous = current
		}
	}
}

func TestLevenshteinRatio(t *testing.T) {
	r, err := New("levenshtein")
	require.NoError(t, err)
	// one substitution over five characters
	assert.InDelta(t, 80.0, r.Score("Alise", "Alice"), 0.01)
}
