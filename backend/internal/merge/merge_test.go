package merge

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kaybee/backend/internal/graph"
	"kaybee/backend/internal/idalloc"
	"kaybee/backend/internal/neighborhood"
	kberrors "kaybee/backend/pkg/errors"
)

func rel(src, label, dst string) graph.Relationship {
	return graph.Relationship{SourceID: src, TargetID: dst, Label: label}
}

// A - B - C - D - E, seed A: C is frozen because of D
func chain() *graph.Graph {
	g := graph.New()
	for id, name := range map[string]string{"A": "Alice", "B": "Bob", "C": "Carl", "D": "Dana", "E": "Eve"} {
		g.Entities[id] = graph.Entity{ID: id, Names: []string{name}}
	}
	g.Relationships = []graph.Relationship{
		rel("A", "knows", "B"),
		rel("B", "knows", "C"),
		rel("C", "knows", "D"),
		rel("D", "knows", "E"),
	}
	return g
}

func sortedRels(rels []graph.Relationship) []graph.Relationship {
	out := append([]graph.Relationship(nil), rels...)
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.SourceID != b.SourceID {
			return a.SourceID < b.SourceID
		}
		if a.TargetID != b.TargetID {
			return a.TargetID < b.TargetID
		}
		return a.Label < b.Label
	})
	return out
}

func TestApply_RoundTripIsNoOp(t *testing.T) {
	current := chain()
	original := neighborhood.Extract(current, []string{"A"})
	require.True(t, original.Entities["C"].Frozen)

	out, result, err := Apply(current, original, original.AsReplacement(), idalloc.DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, "C", result.IDs["C"], "frozen id kept")
	assert.Equal(t, 2, result.EntitiesAllocated)

	// rename fresh ids back to compare
	back := make(map[string]string)
	for local, final := range result.IDs {
		back[final] = local
	}
	rename := func(id string) string {
		if local, ok := back[id]; ok {
			return local
		}
		return id
	}
	restored := graph.New()
	for id, e := range out.Entities {
		e.ID = rename(id)
		restored.Entities[e.ID] = e
	}
	for _, r := range out.Relationships {
		restored.Relationships = append(restored.Relationships, rel(rename(r.SourceID), r.Label, rename(r.TargetID)))
	}

	assert.Equal(t, current.Entities, restored.Entities)
	assert.Equal(t, sortedRels(current.Relationships), sortedRels(restored.Relationships))
	assert.Len(t, chain().Entities, 5, "input graph untouched")
}

func TestApply_Eradication(t *testing.T) {
	current := chain()
	original := neighborhood.Extract(current, []string{"A"})

	out, result, err := Apply(current, original, &graph.Replacement{}, idalloc.DefaultOptions())
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"C", "D", "E"}, out.EntityIDs())
	assert.Equal(t, []graph.Relationship{rel("C", "knows", "D"), rel("D", "knows", "E")}, out.Relationships)
	assert.Equal(t, 2, result.EntitiesRemoved)
	assert.Equal(t, 2, result.RelationshipsRemoved)
	assert.Equal(t, 1, result.FrozenEntitiesRetained)
	assert.Empty(t, result.IDs)
}

func TestApply_FrozenIdentityInvariance(t *testing.T) {
	current := chain()
	original := neighborhood.Extract(current, []string{"A"})

	replacement := &graph.Replacement{
		Entities: []graph.Entity{
			{ID: "A", Names: []string{"Alice", "Ali"}},
			{ID: "C", Names: []string{"Carl"}},
			{ID: "new", Names: []string{"Frank"}},
		},
		Relationships: []graph.Relationship{
			rel("A", "knows", "new"),
			rel("new", "manages", "C"),
		},
	}
	out, result, err := Apply(current, original, replacement, idalloc.DefaultOptions())
	require.NoError(t, err)

	assert.Contains(t, out.Entities, "C")
	assert.Contains(t, out.Relationships, rel("C", "knows", "D"), "outside relationship survives")
	assert.Contains(t, out.Relationships, rel(result.IDs["new"], "manages", "C"))
	assert.NotContains(t, out.Entities, "A")
	assert.NotContains(t, out.Entities, "B")
	assert.Equal(t, []string{"Alice", "Ali"}, out.Entities[result.IDs["A"]].Names)
	assert.Equal(t, result.IDs["A"], out.Entities[result.IDs["A"]].ID)
}

func TestApply_FrozenReferencedWithoutEcho(t *testing.T) {
	current := chain()
	original := neighborhood.Extract(current, []string{"A"})

	replacement := &graph.Replacement{
		Entities:      []graph.Entity{{ID: "x", Names: []string{"Xavier"}}},
		Relationships: []graph.Relationship{rel("x", "knows", "C")},
	}
	out, result, err := Apply(current, original, replacement, idalloc.DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, "Carl", out.Entities["C"].PrimaryName())
	assert.Contains(t, out.Relationships, rel(result.IDs["x"], "knows", "C"))
}

func TestApply_RejectsUnknownEndpoint(t *testing.T) {
	current := chain()
	original := neighborhood.Extract(current, []string{"A"})

	tests := []struct {
		name string
		r    *graph.Replacement
	}{
		{"unknown local id", &graph.Replacement{
			Entities:      []graph.Entity{{ID: "A", Names: []string{"Alice"}}},
			Relationships: []graph.Relationship{rel("A", "knows", "ghost")},
		}},
		{"non-frozen original id not re-emitted", &graph.Replacement{
			Entities:      []graph.Entity{{ID: "A", Names: []string{"Alice"}}},
			Relationships: []graph.Relationship{rel("A", "knows", "B")},
		}},
		{"entity without names", &graph.Replacement{
			Entities: []graph.Entity{{ID: "A"}},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, result, err := Apply(current, original, tt.r, idalloc.DefaultOptions())
			require.Error(t, err)
			assert.True(t, kberrors.IsInput(err))
			var malformed *kberrors.ErrMalformedReplacement
			assert.ErrorAs(t, err, &malformed)
			assert.Nil(t, out)
			assert.Nil(t, result)
		})
	}
	assert.Equal(t, chain(), current)
}

func TestApply_LabelIsPartOfRelationshipIdentity(t *testing.T) {
	current := chain()
	current.Relationships = append(current.Relationships, rel("A", "employs", "B"))

	// a stale view that only knew about the "knows" edge
	original := graph.NewSubgraph()
	original.Entities["A"] = graph.SubgraphEntity{Entity: current.Entities["A"], Frozen: true}
	original.Entities["B"] = graph.SubgraphEntity{Entity: current.Entities["B"], Frozen: true}
	original.Relationships = []graph.Relationship{rel("A", "knows", "B")}

	out, _, err := Apply(current, original, &graph.Replacement{}, idalloc.DefaultOptions())
	require.NoError(t, err)
	assert.Contains(t, out.Relationships, rel("A", "employs", "B"))
	assert.NotContains(t, out.Relationships, rel("A", "knows", "B"))
}

func TestApply_RemovesEveryDuplicateOccurrence(t *testing.T) {
	current := chain()
	current.Relationships = append(current.Relationships, rel("A", "knows", "B"))
	original := neighborhood.Extract(current, []string{"A"})

	out, result, err := Apply(current, original, &graph.Replacement{}, idalloc.DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, 3, result.RelationshipsRemoved)
	assert.NotContains(t, out.Relationships, rel("A", "knows", "B"))
}

func TestApply_FreshIDsAvoidCurrentGraph(t *testing.T) {
	current := graph.New()
	current.Entities["bob.aaaaaa"] = graph.Entity{ID: "bob.aaaaaa", Names: []string{"Bob"}}

	replacement := &graph.Replacement{Entities: []graph.Entity{
		{ID: "1", Names: []string{"Bob"}},
		{ID: "2", Names: []string{"Bob"}},
	}}
	out, result, err := Apply(current, graph.NewSubgraph(), replacement, idalloc.Options{SuffixLength: 1})
	require.NoError(t, err)

	assert.NotEqual(t, result.IDs["1"], result.IDs["2"])
	assert.NotEqual(t, "bob.aaaaaa", result.IDs["1"])
	assert.NotEqual(t, "bob.aaaaaa", result.IDs["2"])
	assert.Len(t, out.Entities, 3)
}

func TestApply_EmptyStore(t *testing.T) {
	replacement := &graph.Replacement{
		Entities:      []graph.Entity{{ID: "1", Names: []string{"Alice"}}, {ID: "2", Names: []string{"Bob"}}},
		Relationships: []graph.Relationship{rel("1", "knows", "2")},
	}
	out, result, err := Apply(nil, nil, replacement, idalloc.DefaultOptions())
	require.NoError(t, err)
	assert.Len(t, out.Entities, 2)
	assert.Equal(t, []graph.Relationship{rel(result.IDs["1"], "knows", result.IDs["2"])}, out.Relationships)
	assert.Equal(t, 2, result.EntitiesWritten)
	assert.Equal(t, 1, result.RelationshipsWritten)
}
