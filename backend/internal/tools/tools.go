package tools

import (
	"kaybee/backend/internal/adapter"
)

// Tool names - Knowledge Graph Tools
const (
	ToolGetRelevantNeighborhood = "get_relevant_neighborhood"
	ToolGetRandomEntity         = "get_random_entity"
)

// GetAllTools returns all tools a model can call against a knowledge graph
func GetAllTools() []adapter.Tool {
	tools := []adapter.Tool{}

	// Knowledge Graph Tools
	tools = append(tools, GetKnowledgeTools()...)

	return tools
}
