// Package render turns neighborhoods into plain text that can be prepended to a model prompt.
package render

import (
	"fmt"
	"sort"
	"strings"

	"kaybee/backend/internal/graph"
)

// Describe renders the facts in sub: properties and synonyms per entity, then one line per
// relationship. It returns "" when sub says nothing.
func Describe(sub *graph.Subgraph) string {
	if sub.IsEmpty() {
		return ""
	}

	entities := make([]graph.SubgraphEntity, 0, len(sub.Entities))
	for _, e := range sub.Entities {
		entities = append(entities, e)
	}
	sort.Slice(entities, func(i, j int) bool {
		a, b := entities[i], entities[j]
		if a.PrimaryName() != b.PrimaryName() {
			return a.PrimaryName() < b.PrimaryName()
		}
		return a.ID < b.ID
	})

	var facts strings.Builder
	for _, e := range entities {
		var line strings.Builder
		name := e.PrimaryName()
		if len(e.Properties) > 0 {
			fmt.Fprintf(&line, "%s has properties: %s. ", name, properties(e.Properties))
		}
		if len(e.Names) > 1 {
			fmt.Fprintf(&line, "%s is also known as: %s", name, strings.Join(e.Names[1:], ", "))
		}
		if line.Len() > 0 {
			facts.WriteString(strings.TrimSpace(line.String()))
			facts.WriteString("\n")
		}
	}

	var rels strings.Builder
	for _, r := range sub.Relationships {
		fmt.Fprintf(&rels, "%s %s %s\n", nameOf(sub, r.SourceID), r.Label, nameOf(sub, r.TargetID))
	}

	if facts.Len() == 0 && rels.Len() == 0 {
		return ""
	}
	return fmt.Sprintf("(FYI, according to the Knowledge Graph: %s\n%s.)", facts.String(), rels.String())
}

// ExpandQuery returns the description of sub followed by the graph id the facts came from
func ExpandQuery(sub *graph.Subgraph, graphID string) string {
	return Describe(sub) + "\ngraph_id=" + graphID
}

func nameOf(sub *graph.Subgraph, id string) string {
	if e, ok := sub.Entities[id]; ok && e.PrimaryName() != "" {
		return e.PrimaryName()
	}
	return id
}

func properties(props map[string]interface{}) string {
	keys := make([]string, 0, len(props))
	for k := range props {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, props[k]))
	}
	return strings.Join(parts, ", ")
}
