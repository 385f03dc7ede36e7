package tree

import (
	"fmt"
)

// Validate checks the forest invariants of nodes: non-empty unique ids,
// parentId agreeing with the owning children list, known geometry modes,
// finite geometry and nesting within maxDepth. A repeated pointer shows up
// as a duplicate id, so cycles are caught too.
func Validate(nodes []*Node, maxDepth int) error {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	seen := make(map[string]bool)
	return validateLevel(nodes, "", 0, maxDepth, seen)
}

func validateLevel(nodes []*Node, parentID string, depth, maxDepth int, seen map[string]bool) error {
	if len(nodes) > 0 && depth >= maxDepth {
		return fmt.Errorf("%w: %v", ErrInvalidForest, ErrMaxDepth)
	}
	for i, n := range nodes {
		if n == nil {
			return fmt.Errorf("%w: nil node at index %d under %q", ErrInvalidForest, i, parentID)
		}
		if n.ID == "" {
			return fmt.Errorf("%w: node at index %d under %q has no id", ErrInvalidForest, i, parentID)
		}
		if n.Kind == "" {
			return fmt.Errorf("%w: node %s has no kind", ErrInvalidForest, n.ID)
		}
		if seen[n.ID] {
			return fmt.Errorf("%w: duplicate id %s", ErrInvalidForest, n.ID)
		}
		seen[n.ID] = true
		if n.ParentID != parentID {
			return fmt.Errorf("%w: node %s claims parent %q but is owned by %q", ErrInvalidForest, n.ID, n.ParentID, parentID)
		}
		if !n.Geometry.Mode.Valid() {
			return fmt.Errorf("%w: node %s has unknown geometry mode %q", ErrInvalidForest, n.ID, n.Geometry.Mode)
		}
		if !n.Geometry.IsFinite() {
			return fmt.Errorf("%w: node %s: %v", ErrInvalidForest, n.ID, ErrInvalidGeometry)
		}
		if err := validateLevel(n.Children, n.ID, depth+1, maxDepth, seen); err != nil {
			return err
		}
	}
	return nil
}
