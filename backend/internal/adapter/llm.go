// Package adapter converts between the engine's tool surface and the OpenAI chat wire types.
// It does not call any model; the orchestration layer owns the conversation.
package adapter

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"

	"kaybee/backend/internal/graph"
	kberrors "kaybee/backend/pkg/errors"
)

// Tool represents a function that can be called by the LLM
type Tool struct {
	Type     string             `json:"type"`
	Function FunctionDefinition `json:"function"`
}

// FunctionDefinition defines a function that can be called
type FunctionDefinition struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Parameters  map[string]interface{} `json:"parameters"`
}

// ToolCall represents a function call from the LLM
type ToolCall struct {
	ID        string                 `json:"id"`
	Name      string                 `json:"name"`
	Arguments map[string]interface{} `json:"arguments"`
}

// ToOpenAITools converts tool definitions to the OpenAI request format
func ToOpenAITools(tools []Tool) []openai.Tool {
	out := make([]openai.Tool, 0, len(tools))
	for _, tool := range tools {
		out = append(out, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        tool.Function.Name,
				Description: tool.Function.Description,
				Parameters:  tool.Function.Parameters,
			},
		})
	}
	return out
}

// ParseToolCalls extracts the tool calls of an assistant message. Calls whose arguments are
// not valid JSON get empty arguments and are reported in the returned error list.
// Exported for the orchestration layer that drives the model.
func ParseToolCalls(msg openai.ChatCompletionMessage) ([]ToolCall, []error) {
	calls := make([]ToolCall, 0, len(msg.ToolCalls))
	var errs []error
	for _, tc := range msg.ToolCalls {
		args, err := ParseJSONArguments(tc.Function.Arguments)
		if err != nil {
			errs = append(errs, fmt.Errorf("tool call %s (%s): %w", tc.ID, tc.Function.Name, err))
			args = make(map[string]interface{})
		}
		calls = append(calls, ToolCall{ID: tc.ID, Name: tc.Function.Name, Arguments: args})
	}
	return calls, errs
}

// ToolResultMessage wraps a tool result as the message answering call.
// Like ParseToolCalls it is codec API for the caller's model loop.
func ToolResultMessage(call ToolCall, content string) openai.ChatCompletionMessage {
	return openai.ChatCompletionMessage{
		Role:       openai.ChatMessageRoleTool,
		Content:    content,
		Name:       call.Name,
		ToolCallID: call.ID,
	}
}

// ParseJSONArguments parses the JSON string arguments into a map
func ParseJSONArguments(jsonStr string) (map[string]interface{}, error) {
	var args map[string]interface{}
	if strings.TrimSpace(jsonStr) == "" {
		return make(map[string]interface{}), nil
	}

	if err := json.Unmarshal([]byte(jsonStr), &args); err != nil {
		return nil, fmt.Errorf("failed to parse arguments: %w", err)
	}
	if args == nil {
		args = make(map[string]interface{})
	}
	return args, nil
}

// ParseReplacement reads the replacement a model produced as its final answer: a JSON
// object with "entities" and "relationships", optionally inside a ``` code fence.
func ParseReplacement(content string) (*graph.Replacement, error) {
	body := stripFence(content)
	if body == "" {
		return nil, kberrors.NewInvalidInput("replacement", "model output is empty")
	}
	r, err := graph.DecodeReplacement([]byte(body))
	if err != nil {
		return nil, kberrors.NewInvalidInput("replacement", err.Error())
	}
	return r, nil
}

func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	// drop the info string, e.g. ```json
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	} else {
		s = ""
	}
	if end := strings.LastIndex(s, "```"); end >= 0 {
		s = s[:end]
	}
	return strings.TrimSpace(s)
}
