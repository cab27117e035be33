package resolver

import (
	"fmt"
	"sort"
	"strings"

	"github.com/hbollon/go-edlib"
	"go.uber.org/zap"

	"kaybee/backend/internal/graph"
	"kaybee/backend/pkg/logger"
)

// DefaultThreshold is the score a name must strictly exceed to count as a match
const DefaultThreshold = 80.0

var algorithms = map[string]edlib.Algorithm{
	"jaro-winkler":        edlib.JaroWinkler,
	"jaro":                edlib.Jaro,
	"levenshtein":         edlib.Levenshtein,
	"damerau-levenshtein": edlib.DamerauLevenshtein,
}

// Resolver fuzzy-matches free-text names against entity names and synonyms
type Resolver struct {
	name      string
	algorithm edlib.Algorithm
	logger    *zap.Logger
}

// New creates a resolver using the named similarity algorithm
func New(algorithm string) (*Resolver, error) {
	algo, ok := algorithms[strings.ToLower(algorithm)]
	if !ok {
		return nil, fmt.Errorf("unknown match algorithm %q", algorithm)
	}
	return &Resolver{
		name:      strings.ToLower(algorithm),
		algorithm: algo,
		logger:    logger.Named("resolver"),
	}, nil
}

// Default returns a Jaro-Winkler resolver
func Default() *Resolver {
	r, _ := New("jaro-winkler")
	return r
}

// Algorithm returns the configured algorithm name
func (r *Resolver) Algorithm() string {
	return r.name
}

// Score returns the case-insensitive similarity of a and b on a 0-100 scale.
// Empty names never match anything.
func (r *Resolver) Score(a, b string) float64 {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 100
	}
	sim, err := edlib.StringsSimilarity(a, b, r.algorithm)
	if err != nil {
		return 0
	}
	return float64(sim) * 100
}

// Resolve returns the sorted ids of every entity having any name that scores strictly
// above threshold against any candidate. Matching is deliberately permissive: a false
// positive only widens the neighborhood shown to the editor.
func (r *Resolver) Resolve(candidates []string, entities map[string]graph.Entity, threshold float64) []string {
	matched := make(map[string]struct{})
	for id, entity := range entities {
		if r.matches(candidates, entity.Names, threshold) {
			matched[id] = struct{}{}
		}
	}

	ids := make([]string, 0, len(matched))
	for id := range matched {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	r.logger.Debug("Resolved entity names",
		zap.Strings("candidates", candidates),
		zap.Int("entities", len(entities)),
		zap.Int("matches", len(ids)),
		zap.Float64("threshold", threshold),
	)
	return ids
}

func (r *Resolver) matches(candidates, names []string, threshold float64) bool {
	for _, candidate := range candidates {
		for _, name := range names {
			if r.Score(candidate, name) > threshold {
				return true
			}
		}
	}
	return false
}
