package adapter

import (
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	kberrors "kaybee/backend/pkg/errors"
)

func TestToOpenAITools(t *testing.T) {
	tools := []Tool{
		{
			Type: "function",
			Function: FunctionDefinition{
				Name:        "get_relevant_neighborhood",
				Description: "Fetch entities related to names",
				Parameters: map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"entity_names": map[string]interface{}{"type": "array"},
					},
				},
			},
		},
	}

	out := ToOpenAITools(tools)
	require.Len(t, out, 1)
	assert.Equal(t, openai.ToolTypeFunction, out[0].Type)
	assert.Equal(t, "get_relevant_neighborhood", out[0].Function.Name)
	assert.Equal(t, tools[0].Function.Parameters, out[0].Function.Parameters)
}

func TestParseToolCalls(t *testing.T) {
	msg := openai.ChatCompletionMessage{
		Role: openai.ChatMessageRoleAssistant,
		ToolCalls: []openai.ToolCall{
			{ID: "call_1", Type: openai.ToolTypeFunction, Function: openai.FunctionCall{
				Name: "get_relevant_neighborhood", Arguments: `{"entity_names":["Alice"]}`,
			}},
			{ID: "call_2", Type: openai.ToolTypeFunction, Function: openai.FunctionCall{
				Name: "get_random_entity", Arguments: ``,
			}},
			{ID: "call_3", Type: openai.ToolTypeFunction, Function: openai.FunctionCall{
				Name: "get_relevant_neighborhood", Arguments: `{"entity_names":`,
			}},
		},
	}

	calls, errs := ParseToolCalls(msg)
	require.Len(t, calls, 3)
	assert.Equal(t, []interface{}{"Alice"}, calls[0].Arguments["entity_names"])
	assert.Empty(t, calls[1].Arguments)
	assert.Empty(t, calls[2].Arguments)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "call_3")
}

func TestToolResultMessage(t *testing.T) {
	msg := ToolResultMessage(ToolCall{ID: "call_1", Name: "get_random_entity"}, `{"ok":true}`)
	assert.Equal(t, openai.ChatMessageRoleTool, msg.Role)
	assert.Equal(t, "call_1", msg.ToolCallID)
	assert.Equal(t, `{"ok":true}`, msg.Content)
}

func TestParseJSONArguments(t *testing.T) {
	args, err := ParseJSONArguments("  ")
	require.NoError(t, err)
	assert.Empty(t, args)

	args, err = ParseJSONArguments("null")
	require.NoError(t, err)
	assert.NotNil(t, args)

	_, err = ParseJSONArguments("[1,2]")
	assert.Error(t, err)
}

func TestParseReplacement(t *testing.T) {
	plain := `{"entities":[{"entity_id":"1","entity_names":["Alice"]}],"relationships":[]}`
	fenced := "```json\n" + plain + "\n```"

	for _, content := range []string{plain, fenced, "\n  " + fenced + "  \n"} {
		r, err := ParseReplacement(content)
		require.NoError(t, err)
		require.Len(t, r.Entities, 1)
		assert.Equal(t, "Alice", r.Entities[0].PrimaryName())
	}

	_, err := ParseReplacement("")
	assert.True(t, kberrors.IsInput(err))
	_, err = ParseReplacement("```json\n{\"entities\": [\n")
	assert.True(t, kberrors.IsInput(err))
}
