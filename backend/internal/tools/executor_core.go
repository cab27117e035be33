// Package tools exposes the knowledge graph engine to a tool-calling model.
package tools

import (
	"context"

	"go.uber.org/zap"

	"kaybee/backend/internal/adapter"
	"kaybee/backend/internal/engine"
	"kaybee/backend/internal/graph"
	"kaybee/backend/internal/merge"
	kberrors "kaybee/backend/pkg/errors"
	"kaybee/backend/pkg/logger"
)

// ExecutionContext holds context for tool execution
type ExecutionContext struct {
	GraphID   string
	RequestID string
}

// ToolResult represents the result of a tool execution
type ToolResult struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Message string      `json:"message,omitempty"`
}

// KnowledgeEngine is the part of engine.Engine the tools call into
type KnowledgeEngine interface {
	FindRelevantNeighborhood(ctx context.Context, names []string, graphID string) (*graph.Subgraph, error)
	RandomEntity(ctx context.Context, graphID string, hops int) (*engine.RandomPick, bool, error)
	ApplyReplacement(ctx context.Context, graphID string, original *graph.Subgraph, replacement *graph.Replacement) (*merge.Result, error)
}

// Executor handles tool execution
type Executor struct {
	engine KnowledgeEngine
	logger *zap.Logger
}

// NewExecutor creates a new tool executor
func NewExecutor(eng KnowledgeEngine) *Executor {
	return &Executor{
		engine: eng,
		logger: logger.Named("tools"),
	}
}

// Execute runs a tool call and returns the result. Failures are reported in the result.
func (e *Executor) Execute(ctx context.Context, execCtx *ExecutionContext, toolCall adapter.ToolCall) *ToolResult {
	if execCtx == nil {
		execCtx = &ExecutionContext{}
	}
	e.logger.Debug("Executing tool",
		zap.String("tool", toolCall.Name),
		zap.String("graph_id", execCtx.GraphID),
		zap.String("request_id", execCtx.RequestID),
	)

	args := toolCall.Arguments
	if args == nil {
		args = make(map[string]interface{})
	}

	switch toolCall.Name {
	// Knowledge Graph Tools
	case ToolGetRelevantNeighborhood:
		return e.executeGetRelevantNeighborhood(ctx, execCtx, args)
	case ToolGetRandomEntity:
		return e.executeGetRandomEntity(ctx, execCtx, args)

	default:
		e.logger.Warn("Unknown tool", zap.String("tool", toolCall.Name))
		return failed(kberrors.NewToolNotFound(toolCall.Name))
	}
}

func failed(err error) *ToolResult {
	return &ToolResult{Success: false, Error: err.Error()}
}
