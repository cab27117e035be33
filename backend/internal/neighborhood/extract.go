// Package neighborhood extracts bounded, boundary-annotated subgraphs around seed entities.
package neighborhood

import "kaybee/backend/internal/graph"

const (
	// DefaultHops is the extraction radius used by the engine
	DefaultHops = 2
	// MaxHops is the largest radius a caller may ask for
	MaxHops = 16
)

// Extract returns the subgraph induced on every entity within DefaultHops undirected hops of
// the seeds.
func Extract(g *graph.Graph, seedIDs []string) *graph.Subgraph {
	return ExtractHops(g, seedIDs, DefaultHops)
}

// ExtractHops returns the subgraph induced on every entity within hops undirected hops of the
// seeds (hops below 1 are treated as 1). Entities of the outermost ring that still have a
// neighbor outside the result are marked frozen. Seed ids absent from g are ignored; no seeds
// yields an empty subgraph.
func ExtractHops(g *graph.Graph, seedIDs []string, hops int) *graph.Subgraph {
	sub := graph.NewSubgraph()
	if g == nil || len(seedIDs) == 0 {
		return sub
	}
	if hops < 1 {
		hops = 1
	}

	adj := g.Neighbors()
	included := make(map[string]struct{})

	ring := make(map[string]struct{})
	for _, id := range seedIDs {
		if _, ok := g.Entities[id]; ok {
			ring[id] = struct{}{}
			included[id] = struct{}{}
		}
	}
	if len(ring) == 0 {
		return sub
	}

	for hop := 0; hop < hops; hop++ {
		next := make(map[string]struct{})
		for id := range ring {
			for nbr := range adj[id] {
				if _, seen := included[nbr]; seen {
					continue
				}
				if _, ok := g.Entities[nbr]; !ok {
					// dangling endpoint, nothing to show
					continue
				}
				next[nbr] = struct{}{}
			}
		}
		if len(next) == 0 {
			// component exhausted; the last ring has no outside neighbors
			ring = next
			break
		}
		for id := range next {
			included[id] = struct{}{}
		}
		ring = next
	}

	// ring now holds the outermost layer
	frozen := make(map[string]struct{})
	for id := range ring {
		for nbr := range adj[id] {
			if _, inside := included[nbr]; !inside {
				frozen[id] = struct{}{}
				break
			}
		}
	}

	for id := range included {
		_, isFrozen := frozen[id]
		sub.Entities[id] = graph.SubgraphEntity{Entity: g.Entities[id].Clone(), Frozen: isFrozen}
	}
	for _, rel := range g.Relationships {
		_, src := included[rel.SourceID]
		_, dst := included[rel.TargetID]
		if src && dst {
			sub.Relationships = append(sub.Relationships, rel)
		}
	}
	return sub
}
