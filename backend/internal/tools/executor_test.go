package tools

import (
	"context"
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kaybee/backend/internal/adapter"
	"kaybee/backend/internal/engine"
	"kaybee/backend/internal/graph"
	"kaybee/backend/internal/store"
	kberrors "kaybee/backend/pkg/errors"
)

func newTestExecutor(t *testing.T) (*Executor, *engine.Engine) {
	t.Helper()
	eng := engine.New(store.NewMemory(), engine.WithRandSeed(7))

	g := graph.New()
	g.Entities["alic.0001"] = graph.Entity{ID: "alic.0001", Names: []string{"Alice"}}
	g.Entities["bob.0002"] = graph.Entity{ID: "bob.0002", Names: []string{"Bob"}}
	g.Entities["carl.0003"] = graph.Entity{ID: "carl.0003", Names: []string{"Carl"}}
	g.Entities["dana.0004"] = graph.Entity{ID: "dana.0004", Names: []string{"Dana"}}
	g.Relationships = []graph.Relationship{
		{SourceID: "alic.0001", TargetID: "bob.0002", Label: "knows"},
		{SourceID: "bob.0002", TargetID: "carl.0003", Label: "knows"},
		{SourceID: "carl.0003", TargetID: "dana.0004", Label: "knows"},
	}
	_, err := eng.Import(context.Background(), "user-1", g)
	require.NoError(t, err)

	return NewExecutor(eng), eng
}

func TestGetAllTools(t *testing.T) {
	tools := GetAllTools()
	require.Len(t, tools, 2)

	names := []string{tools[0].Function.Name, tools[1].Function.Name}
	assert.ElementsMatch(t, []string{ToolGetRelevantNeighborhood, ToolGetRandomEntity}, names)

	tool, err := Lookup(ToolGetRelevantNeighborhood)
	require.NoError(t, err)
	assert.Equal(t, []string{"entity_names"}, tool.Function.Parameters["required"])

	_, err = Lookup("web_search")
	assert.True(t, kberrors.IsErrorType(err, kberrors.ErrorTypeTool))
}

func TestExecute_GetRelevantNeighborhood(t *testing.T) {
	exec, _ := newTestExecutor(t)
	execCtx := &ExecutionContext{GraphID: "user-1"}

	result := exec.Execute(context.Background(), execCtx, adapter.ToolCall{
		Name:      ToolGetRelevantNeighborhood,
		Arguments: map[string]interface{}{"entity_names": []interface{}{"Alise"}},
	})

	require.True(t, result.Success, result.Error)
	sub, ok := result.Data.(*graph.Subgraph)
	require.True(t, ok)
	assert.Len(t, sub.Entities, 3)
	assert.True(t, sub.Entities["carl.0003"].Frozen)
	assert.Contains(t, result.Message, "Alice")
}

func TestExecute_GetRelevantNeighborhood_NoMatch(t *testing.T) {
	exec, _ := newTestExecutor(t)

	result := exec.Execute(context.Background(), &ExecutionContext{GraphID: "user-1"}, adapter.ToolCall{
		Name:      ToolGetRelevantNeighborhood,
		Arguments: map[string]interface{}{"entity_names": "Zed"},
	})

	require.True(t, result.Success)
	assert.True(t, result.Data.(*graph.Subgraph).IsEmpty())
	assert.Contains(t, result.Message, "Zed")
}

func TestExecute_GetRelevantNeighborhood_BadArguments(t *testing.T) {
	exec, _ := newTestExecutor(t)

	result := exec.Execute(context.Background(), &ExecutionContext{GraphID: "user-1"}, adapter.ToolCall{
		Name:      ToolGetRelevantNeighborhood,
		Arguments: map[string]interface{}{"entity_names": []interface{}{"", 3}},
	})
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "entity_names")

	result = exec.Execute(context.Background(), &ExecutionContext{GraphID: "../etc"}, adapter.ToolCall{
		Name:      ToolGetRelevantNeighborhood,
		Arguments: map[string]interface{}{"entity_names": []interface{}{"Alice"}},
	})
	assert.False(t, result.Success)
}

func TestExecute_GetRandomEntity(t *testing.T) {
	exec, _ := newTestExecutor(t)

	result := exec.Execute(context.Background(), &ExecutionContext{GraphID: "user-1"}, adapter.ToolCall{
		Name: ToolGetRandomEntity,
	})
	require.True(t, result.Success, result.Error)
	pick, ok := result.Data.(*engine.RandomPick)
	require.True(t, ok)
	assert.Contains(t, pick.Neighborhood.Entities, pick.Entity.ID)

	result = exec.Execute(context.Background(), &ExecutionContext{GraphID: "nobody"}, adapter.ToolCall{
		Name: ToolGetRandomEntity,
	})
	require.True(t, result.Success)
	assert.Nil(t, result.Data)
}

func TestExecute_GetRandomEntity_HopsOutOfRange(t *testing.T) {
	exec, _ := newTestExecutor(t)

	for _, hops := range []float64{0, 1 << 40, 1e300} {
		result := exec.Execute(context.Background(), &ExecutionContext{GraphID: "user-1"}, adapter.ToolCall{
			Name:      ToolGetRandomEntity,
			Arguments: map[string]interface{}{"hops": hops},
		})
		assert.False(t, result.Success, "hops=%v", hops)
		assert.Contains(t, result.Error, "hops")
	}

	result := exec.Execute(context.Background(), &ExecutionContext{GraphID: "user-1"}, adapter.ToolCall{
		Name:      ToolGetRandomEntity,
		Arguments: map[string]interface{}{"hops": float64(3)},
	})
	assert.True(t, result.Success, result.Error)
}

func TestExecute_UnknownTool(t *testing.T) {
	exec, _ := newTestExecutor(t)

	result := exec.Execute(context.Background(), nil, adapter.ToolCall{Name: "music_play"})
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "music_play")
}

func TestCommitReplacement(t *testing.T) {
	exec, eng := newTestExecutor(t)
	ctx := context.Background()

	original, err := eng.FindRelevantNeighborhood(ctx, []string{"Alice"}, "user-1")
	require.NoError(t, err)

	content := "```json\n" + `{
  "entities": [
    {"entity_id": "alic.0001", "entity_names": ["Alice"], "properties": {"city": "Paris"}},
    {"entity_id": "bob.0002", "entity_names": ["Bob"]},
    {"entity_id": "carl.0003", "entity_names": ["Carl"]}
  ],
  "relationships": [
    {"source_entity_id": "alic.0001", "target_entity_id": "bob.0002", "relationship": "knows"},
    {"source_entity_id": "bob.0002", "target_entity_id": "carl.0003", "relationship": "knows"}
  ]
}` + "\n```"

	_, err = exec.CommitReplacement(ctx, "user-1", original, ModelOutput{Content: content[:40], Partial: true})
	assert.ErrorIs(t, err, kberrors.ErrPartialResponse)

	result, err := exec.CommitReplacement(ctx, "user-1", original, ModelOutput{Content: content})
	require.NoError(t, err)
	assert.Equal(t, "carl.0003", result.IDs["carl.0003"])
	assert.NotEqual(t, "alic.0001", result.IDs["alic.0001"])

	g, _, err := eng.Graph(ctx, "user-1")
	require.NoError(t, err)
	assert.Len(t, g.Entities, 4)
	assert.Equal(t, "Paris", g.Entities[result.IDs["alic.0001"]].Properties["city"])
	assert.Contains(t, g.Entities, "dana.0004")
}

func TestCommitReplacement_RejectsGarbage(t *testing.T) {
	exec, eng := newTestExecutor(t)
	ctx := context.Background()
	_, before, err := eng.Graph(ctx, "user-1")
	require.NoError(t, err)

	_, err = exec.CommitReplacement(ctx, "user-1", graph.NewSubgraph(), ModelOutput{Content: "I could not do that."})
	assert.True(t, kberrors.IsInput(err))

	_, after, err := eng.Graph(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestOutputFromChoice(t *testing.T) {
	done := OutputFromChoice(openai.ChatCompletionChoice{
		Message:      openai.ChatCompletionMessage{Content: "{}"},
		FinishReason: openai.FinishReasonStop,
	})
	assert.False(t, done.Partial)
	assert.Equal(t, "{}", done.Content)

	cut := OutputFromChoice(openai.ChatCompletionChoice{FinishReason: openai.FinishReasonLength})
	assert.True(t, cut.Partial)
}
