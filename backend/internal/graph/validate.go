package graph

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	kberrors "kaybee/backend/pkg/errors"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// ValidateGraphID rejects ids that cannot be used as a storage key
func ValidateGraphID(graphID string) error {
	switch {
	case strings.TrimSpace(graphID) == "":
		return kberrors.NewInvalidInput("graph_id", "cannot be empty")
	case strings.ContainsAny(graphID, `/\`), strings.Contains(graphID, ".."):
		return kberrors.NewInvalidInput("graph_id", fmt.Sprintf("%q contains a path separator", graphID))
	}
	return nil
}

// ValidateReplacement checks the shape of a replacement: every entity has a local id and
// at least one non-empty name, local ids are unique, and relationships have endpoints.
// Whether endpoints resolve is decided by the merger, which knows the frozen set.
func ValidateReplacement(r *Replacement) error {
	if r == nil {
		return kberrors.NewMalformedReplacement("", "replacement is missing")
	}
	if err := validate.Struct(r); err != nil {
		return kberrors.NewMalformedReplacement("", describe(err))
	}

	seen := make(map[string]struct{}, len(r.Entities))
	for _, e := range r.Entities {
		if _, dup := seen[e.ID]; dup {
			return kberrors.NewMalformedReplacement(e.ID, fmt.Sprintf("entity id %q appears more than once", e.ID))
		}
		seen[e.ID] = struct{}{}
	}
	return nil
}

// ValidateGraph checks a whole document before it is imported: every entity has a name and
// is stored under its own id. Dangling relationship endpoints are tolerated.
func ValidateGraph(g *Graph) error {
	if g == nil {
		return kberrors.NewInvalidInput("graph", "graph is missing")
	}
	if err := validate.Struct(g); err != nil {
		return kberrors.NewInvalidInput("graph", describe(err))
	}
	for id, e := range g.Entities {
		if e.ID != id {
			return kberrors.NewInvalidInput("graph", fmt.Sprintf("entity %q is stored under key %q", e.ID, id))
		}
	}
	return nil
}

func describe(err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok || len(verrs) == 0 {
		return err.Error()
	}
	fe := verrs[0]
	return fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag())
}
