// Package merge replaces a previously extracted neighborhood inside a full graph.
package merge

import (
	"fmt"

	"kaybee/backend/internal/graph"
	"kaybee/backend/internal/idalloc"
	kberrors "kaybee/backend/pkg/errors"
)

// Result describes what a merge changed
type Result struct {
	// IDs maps every replacement local id to the id it was stored under
	IDs                    map[string]string `json:"ids"`
	EntitiesRemoved        int               `json:"entities_removed"`
	RelationshipsRemoved   int               `json:"relationships_removed"`
	EntitiesWritten        int               `json:"entities_written"`
	RelationshipsWritten   int               `json:"relationships_written"`
	EntitiesAllocated      int               `json:"entities_allocated"`
	FrozenEntitiesRetained int               `json:"frozen_entities_retained"`
}

type relKey struct {
	source, target, label string
}

func keyOf(r graph.Relationship) relKey {
	return relKey{r.SourceID, r.TargetID, r.Label}
}

// Apply returns current with original cut out and replacement put in its place.
// current is not modified. A malformed replacement is rejected as a whole: every relationship
// endpoint must name a replacement entity or a frozen entity of original.
//
// Frozen entities keep their id and are never removed. Every other replacement entity gets a
// fresh id that is unused in current. A relationship of original is removed wherever the same
// (source, target, label) occurs in current.
func Apply(current *graph.Graph, original *graph.Subgraph, replacement *graph.Replacement, opts idalloc.Options) (*graph.Graph, *Result, error) {
	if current == nil {
		current = graph.New()
	}
	if original == nil {
		original = graph.NewSubgraph()
	}
	if err := Validate(original, replacement); err != nil {
		return nil, nil, err
	}
	frozen := original.FrozenIDs()

	// Reassign identifiers
	taken := make(map[string]struct{}, len(current.Entities))
	for id := range current.Entities {
		taken[id] = struct{}{}
	}
	alloc := idalloc.New(opts, taken)

	result := &Result{IDs: make(map[string]string, len(replacement.Entities))}
	for _, e := range replacement.Entities {
		if _, ok := frozen[e.ID]; ok {
			result.IDs[e.ID] = alloc.Reserve(e.ID)
			continue
		}
		id, err := alloc.Allocate(e.PrimaryName())
		if err != nil {
			return nil, nil, fmt.Errorf("failed to allocate id for %q: %w", e.ID, err)
		}
		result.IDs[e.ID] = id
		result.EntitiesAllocated++
	}

	// Excise
	out := current.Clone()
	for id := range original.Entities {
		if _, ok := frozen[id]; ok {
			if _, stored := out.Entities[id]; stored {
				result.FrozenEntitiesRetained++
			}
			continue
		}
		if _, stored := out.Entities[id]; stored {
			delete(out.Entities, id)
			result.EntitiesRemoved++
		}
	}

	cut := make(map[relKey]struct{}, len(original.Relationships))
	for _, r := range original.Relationships {
		cut[keyOf(r)] = struct{}{}
	}
	kept := out.Relationships[:0]
	for _, r := range out.Relationships {
		if _, ok := cut[keyOf(r)]; ok {
			result.RelationshipsRemoved++
			continue
		}
		kept = append(kept, r)
	}
	out.Relationships = kept

	// Insert
	for _, e := range replacement.Entities {
		stored := e.Clone()
		stored.ID = result.IDs[e.ID]
		out.Entities[stored.ID] = stored
		result.EntitiesWritten++
	}
	for _, r := range replacement.Relationships {
		out.Relationships = append(out.Relationships, graph.Relationship{
			SourceID: finalID(result.IDs, r.SourceID),
			TargetID: finalID(result.IDs, r.TargetID),
			Label:    r.Label,
		})
		result.RelationshipsWritten++
	}

	return out, result, nil
}

// Validate checks that replacement can be merged over original without touching any store
func Validate(original *graph.Subgraph, replacement *graph.Replacement) error {
	if err := graph.ValidateReplacement(replacement); err != nil {
		return err
	}
	return checkEndpoints(replacement, original.FrozenIDs())
}

func checkEndpoints(r *graph.Replacement, frozen map[string]struct{}) error {
	local := make(map[string]struct{}, len(r.Entities))
	for _, e := range r.Entities {
		local[e.ID] = struct{}{}
	}
	known := func(id string) bool {
		if _, ok := local[id]; ok {
			return true
		}
		_, ok := frozen[id]
		return ok
	}
	for i, rel := range r.Relationships {
		for _, id := range []string{rel.SourceID, rel.TargetID} {
			if !known(id) {
				return kberrors.NewMalformedReplacement(id,
					fmt.Sprintf("relationship %d (%s -[%s]-> %s) references unknown entity %q", i, rel.SourceID, rel.Label, rel.TargetID, id))
			}
		}
	}
	return nil
}

// frozen ids referenced without being re-emitted map to themselves
func finalID(ids map[string]string, local string) string {
	if id, ok := ids[local]; ok {
		return id
	}
	return local
}
