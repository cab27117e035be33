package graph

import "sort"

// ============================================================================
// Knowledge Graph Types
// ============================================================================

// Entity is a named node. Names[0] is the display name, the rest are synonyms.
type Entity struct {
	ID         string                 `json:"entity_id" validate:"required"`
	Names      []string               `json:"entity_names" validate:"required,min=1,dive,required"`
	Properties map[string]interface{} `json:"properties"`
}

// PrimaryName returns the display name of the entity
func (e Entity) PrimaryName() string {
	if len(e.Names) == 0 {
		return ""
	}
	return e.Names[0]
}

// Relationship is a directed, labeled edge. Several may connect the same pair.
type Relationship struct {
	SourceID string `json:"source_entity_id" validate:"required"`
	TargetID string `json:"target_entity_id" validate:"required"`
	Label    string `json:"relationship"`
}

// Graph is the persisted knowledge graph of one tenant
type Graph struct {
	Entities      map[string]Entity `json:"entities" validate:"dive"`
	Relationships []Relationship    `json:"relationships" validate:"dive"`
}

// New returns an empty graph. A graph that was never stored is indistinguishable from this.
func New() *Graph {
	return &Graph{
		Entities:      make(map[string]Entity),
		Relationships: []Relationship{},
	}
}

// Clone returns a deep copy of the entity maps and slices (property values are shared)
func (g *Graph) Clone() *Graph {
	out := &Graph{
		Entities:      make(map[string]Entity, len(g.Entities)),
		Relationships: make([]Relationship, len(g.Relationships)),
	}
	for id, e := range g.Entities {
		out.Entities[id] = e.Clone()
	}
	copy(out.Relationships, g.Relationships)
	return out
}

// EntityIDs returns the ids of all entities in sorted order
func (g *Graph) EntityIDs() []string {
	ids := make([]string, 0, len(g.Entities))
	for id := range g.Entities {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Neighbors builds an undirected adjacency index. Self-loops are ignored.
func (g *Graph) Neighbors() map[string]map[string]struct{} {
	adj := make(map[string]map[string]struct{}, len(g.Entities))
	link := func(a, b string) {
		if adj[a] == nil {
			adj[a] = make(map[string]struct{})
		}
		adj[a][b] = struct{}{}
	}
	for _, rel := range g.Relationships {
		if rel.SourceID == rel.TargetID {
			continue
		}
		link(rel.SourceID, rel.TargetID)
		link(rel.TargetID, rel.SourceID)
	}
	return adj
}

// Clone returns a copy of the entity that shares no slices or maps with e
func (e Entity) Clone() Entity {
	out := Entity{ID: e.ID, Names: append([]string(nil), e.Names...)}
	if e.Properties != nil {
		out.Properties = make(map[string]interface{}, len(e.Properties))
		for k, v := range e.Properties {
			out.Properties[k] = v
		}
	}
	return out
}

// ============================================================================
// Subgraph
// ============================================================================

// SubgraphEntity is an entity inside an extracted neighborhood.
// Frozen marks a boundary entity with relationships the neighborhood does not show;
// its id must survive any patch built from this neighborhood.
type SubgraphEntity struct {
	Entity
	Frozen bool `json:"frozen"`
}

// Subgraph is a caller-local working copy of part of a graph. It is never persisted.
type Subgraph struct {
	Entities      map[string]SubgraphEntity `json:"entities"`
	Relationships []Relationship            `json:"relationships"`
}

// NewSubgraph returns an empty subgraph
func NewSubgraph() *Subgraph {
	return &Subgraph{
		Entities:      make(map[string]SubgraphEntity),
		Relationships: []Relationship{},
	}
}

// IsEmpty reports whether nothing was found
func (s *Subgraph) IsEmpty() bool {
	return s == nil || len(s.Entities) == 0
}

// FrozenIDs returns the set of frozen entity ids
func (s *Subgraph) FrozenIDs() map[string]struct{} {
	frozen := make(map[string]struct{})
	if s == nil {
		return frozen
	}
	for id, e := range s.Entities {
		if e.Frozen {
			frozen[id] = struct{}{}
		}
	}
	return frozen
}

// AsReplacement echoes the subgraph back as a replacement, keeping every local id.
func (s *Subgraph) AsReplacement() *Replacement {
	r := &Replacement{
		Entities:      make([]Entity, 0, len(s.Entities)),
		Relationships: append([]Relationship(nil), s.Relationships...),
	}
	ids := make([]string, 0, len(s.Entities))
	for id := range s.Entities {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		r.Entities = append(r.Entities, s.Entities[id].Entity.Clone())
	}
	return r
}

// ============================================================================
// Replacement
// ============================================================================

// Replacement is a caller-edited version of a subgraph. Entity ids are local: they refer
// to entities of the original subgraph or are placeholders for new ones.
type Replacement struct {
	Entities      []Entity       `json:"entities" validate:"dive"`
	Relationships []Relationship `json:"relationships" validate:"dive"`
}
