package graph

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Decode parses a stored graph document. Empty input decodes to an empty graph.
// The map key is authoritative for an entity's id.
func Decode(data []byte) (*Graph, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return New(), nil
	}

	var g Graph
	if err := json.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("failed to decode graph document: %w", err)
	}
	if g.Entities == nil {
		g.Entities = make(map[string]Entity)
	}
	if g.Relationships == nil {
		g.Relationships = []Relationship{}
	}
	for id, e := range g.Entities {
		if e.ID != id {
			e.ID = id
			g.Entities[id] = e
		}
	}
	return &g, nil
}

// Encode serializes a graph into its stored document form
func Encode(g *Graph) ([]byte, error) {
	if g == nil {
		g = New()
	}
	// every stored entity carries a properties object, even an empty one
	doc := &Graph{Entities: make(map[string]Entity, len(g.Entities)), Relationships: g.Relationships}
	if doc.Relationships == nil {
		doc.Relationships = []Relationship{}
	}
	for id, e := range g.Entities {
		if e.Properties == nil {
			e.Properties = map[string]interface{}{}
		}
		doc.Entities[id] = e
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode graph document: %w", err)
	}
	return data, nil
}

// DecodeReplacement parses a replacement in the KnowledgeGraph shape:
// {"entities": [...], "relationships": [...]}.
func DecodeReplacement(data []byte) (*Replacement, error) {
	var r Replacement
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to decode replacement: %w", err)
	}
	if r.Entities == nil {
		r.Entities = []Entity{}
	}
	if r.Relationships == nil {
		r.Relationships = []Relationship{}
	}
	return &r, nil
}
