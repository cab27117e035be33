package tools

import (
	"kaybee/backend/internal/adapter"
)

// GetKnowledgeTools returns the knowledge graph lookup tools
func GetKnowledgeTools() []adapter.Tool {
	return []adapter.Tool{
		{
			Type: "function",
			Function: adapter.FunctionDefinition{
				Name:        ToolGetRelevantNeighborhood,
				Description: "Look up what the knowledge graph knows about some entities. Pass every name the user mentioned; close spellings still match. Returns the matching entities, everything within a few relationships of them, and the relationships between those. Entities marked frozen have links outside the result and must keep their entity_id in any update.",
				Parameters: map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"entity_names": map[string]interface{}{
							"type":        "array",
							"items":       map[string]interface{}{"type": "string"},
							"description": "Names of the entities to look up (e.g., ['Alice', 'Acme Corp'])",
						},
					},
					"required": []string{"entity_names"},
				},
			},
		},
		{
			Type: "function",
			Function: adapter.FunctionDefinition{
				Name:        ToolGetRandomEntity,
				Description: "Pick one entity from the knowledge graph at random and return it with its neighborhood. Use this to bring up something the user told you before.",
				Parameters: map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"hops": map[string]interface{}{
							"type":        "integer",
							"description": "How many relationships away from the entity to include (default 1)",
						},
					},
					"required": []string{},
				},
			},
		},
	}
}
