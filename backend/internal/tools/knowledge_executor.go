package tools

import (
	"context"
	"fmt"
	"strings"

	"kaybee/backend/internal/neighborhood"
	"kaybee/backend/internal/render"
	kberrors "kaybee/backend/pkg/errors"
)

// ============================================================================
// Knowledge Graph Tool Implementations
// ============================================================================

func (e *Executor) executeGetRelevantNeighborhood(ctx context.Context, execCtx *ExecutionContext, args map[string]interface{}) *ToolResult {
	names := stringList(args["entity_names"])
	if len(names) == 0 {
		return failed(kberrors.NewInvalidInput("entity_names", "at least one name is required"))
	}

	sub, err := e.engine.FindRelevantNeighborhood(ctx, names, execCtx.GraphID)
	if err != nil {
		return failed(kberrors.NewToolExecutionFailed(ToolGetRelevantNeighborhood, "neighborhood lookup failed", err))
	}

	if sub.IsEmpty() {
		return &ToolResult{
			Success: true,
			Data:    sub,
			Message: fmt.Sprintf("Nothing is known about %s", strings.Join(names, ", ")),
		}
	}
	return &ToolResult{
		Success: true,
		Data:    sub,
		Message: render.Describe(sub),
	}
}

func (e *Executor) executeGetRandomEntity(ctx context.Context, execCtx *ExecutionContext, args map[string]interface{}) *ToolResult {
	hops := 1
	if v, ok := args["hops"].(float64); ok {
		if v < 1 || v > neighborhood.MaxHops {
			return failed(kberrors.NewInvalidInput("hops", fmt.Sprintf("must be between 1 and %d", neighborhood.MaxHops)))
		}
		hops = int(v)
	}

	pick, found, err := e.engine.RandomEntity(ctx, execCtx.GraphID, hops)
	if err != nil {
		return failed(kberrors.NewToolExecutionFailed(ToolGetRandomEntity, "random pick failed", err))
	}
	if !found {
		return &ToolResult{Success: true, Message: "The knowledge graph is empty"}
	}

	return &ToolResult{
		Success: true,
		Data:    pick,
		Message: fmt.Sprintf("Picked %s", pick.Entity.PrimaryName()),
	}
}

// stringList accepts a JSON array of strings or a single string
func stringList(v interface{}) []string {
	var out []string
	switch val := v.(type) {
	case string:
		if s := strings.TrimSpace(val); s != "" {
			out = append(out, s)
		}
	case []interface{}:
		for _, item := range val {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				out = append(out, strings.TrimSpace(s))
			}
		}
	case []string:
		for _, s := range val {
			if strings.TrimSpace(s) != "" {
				out = append(out, strings.TrimSpace(s))
			}
		}
	}
	return out
}
