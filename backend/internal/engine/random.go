package engine

import (
	"context"

	"go.uber.org/zap"

	"kaybee/backend/internal/graph"
	"kaybee/backend/internal/neighborhood"
)

// RandomPick is an entity drawn uniformly from a graph and its neighborhood
type RandomPick struct {
	Entity       graph.Entity    `json:"entity"`
	Neighborhood *graph.Subgraph `json:"entity_neighborhood"`
}

// RandomEntity draws one entity uniformly at random and extracts its neighborhood with the
// given radius (1 when hops < 1). found is false for an empty graph.
func (e *Engine) RandomEntity(ctx context.Context, graphID string, hops int) (*RandomPick, bool, error) {
	if err := graph.ValidateGraphID(graphID); err != nil {
		return nil, false, err
	}
	if err := e.checkHops(hops); err != nil {
		return nil, false, err
	}
	snap, err := e.load(ctx, graphID)
	if err != nil {
		return nil, false, err
	}
	ids := snap.graph.EntityIDs()
	if len(ids) == 0 {
		return nil, false, nil
	}

	e.randMu.Lock()
	id := ids[e.rand.Intn(len(ids))]
	e.randMu.Unlock()

	if hops < 1 {
		hops = 1
	}
	pick := &RandomPick{
		Entity:       snap.graph.Entities[id].Clone(),
		Neighborhood: neighborhood.ExtractHops(snap.graph, []string{id}, hops),
	}
	e.logger.Debug("Picked random entity",
		zap.String("graph_id", graphID),
		zap.String("entity_id", id),
		zap.Int("entities", len(pick.Neighborhood.Entities)),
	)
	return pick, true, nil
}
