package tree

import "errors"

// Structural errors. Reference errors (a missing target) are reported as a
// false return rather than an error wherever the operation allows it.
var (
	// ErrUnknownKind is returned when Add names a kind the catalog does not know
	ErrUnknownKind = errors.New("unknown kind")
	// ErrNodeNotFound is returned when a required node does not exist
	ErrNodeNotFound = errors.New("node not found")
	// ErrNotContainer is returned when the parent kind cannot own children
	ErrNotContainer = errors.New("parent is not a container")
	// ErrNotAllowed is returned when the parent's rule rejects the child kind
	ErrNotAllowed = errors.New("child kind not allowed in parent")
	// ErrCycle is returned when a node would become its own ancestor
	ErrCycle = errors.New("node cannot become its own ancestor")
	// ErrMaxDepth is returned when nesting would exceed the configured depth
	ErrMaxDepth = errors.New("maximum nesting depth exceeded")
	// ErrInvalidProperty is returned for property values with no JSON form
	ErrInvalidProperty = errors.New("invalid property value")
	// ErrInvalidGeometry is returned for NaN or infinite coordinates and sizes
	ErrInvalidGeometry = errors.New("invalid geometry")
	// ErrInvalidForest is returned by Restore and Validate for malformed input
	ErrInvalidForest = errors.New("invalid forest")
)
