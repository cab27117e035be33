package tools

import (
	"context"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"kaybee/backend/internal/adapter"
	"kaybee/backend/internal/graph"
	"kaybee/backend/internal/merge"
	kberrors "kaybee/backend/pkg/errors"
)

// ModelOutput is the text a model produced for an updated neighborhood.
// Partial is set while the output is still streaming or was cut off.
type ModelOutput struct {
	Content string
	Partial bool
}

// OutputFromChoice reads a completion choice; anything but a normal stop counts as partial
func OutputFromChoice(choice openai.ChatCompletionChoice) ModelOutput {
	return ModelOutput{
		Content: choice.Message.Content,
		Partial: choice.FinishReason != openai.FinishReasonStop,
	}
}

// CommitReplacement merges the model's rewrite of original back into the graph.
// original must be the subgraph the model was shown. Partial output is refused with
// ErrPartialResponse and nothing is written.
func (e *Executor) CommitReplacement(ctx context.Context, graphID string, original *graph.Subgraph, output ModelOutput) (*merge.Result, error) {
	if output.Partial {
		e.logger.Debug("Skipping partial model output", zap.String("graph_id", graphID))
		return nil, kberrors.ErrPartialResponse
	}

	replacement, err := adapter.ParseReplacement(output.Content)
	if err != nil {
		e.logger.Warn("Model output is not a knowledge graph",
			zap.String("graph_id", graphID),
			zap.Error(err),
		)
		return nil, err
	}

	return e.engine.ApplyReplacement(ctx, graphID, original, replacement)
}
