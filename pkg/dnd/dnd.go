package dnd

import (
	"errors"
	"math"
	"sync"

	"github.com/dshills/pagebuilder/pkg/geometry"
	"github.com/dshills/pagebuilder/pkg/tree"
	"github.com/rs/zerolog"
)

// DefaultThreshold is the pointer travel, in pixels, before a press becomes a drag
const DefaultThreshold = 5

// CanvasID is the drop target id of the canvas background
const CanvasID = "canvas"

var (
	// ErrNoDrag is returned by End when no gesture is in progress
	ErrNoDrag = errors.New("no drag in progress")
	// ErrRejected is returned when the store refuses a committed drop
	ErrRejected = errors.New("drop rejected by store")
)

// OutcomeKind is the single mutation a committed drop produced
type OutcomeKind string

const (
	OutcomeNone     OutcomeKind = "none"
	OutcomeMove     OutcomeKind = "move"
	OutcomeReorder  OutcomeKind = "reorder"
	OutcomeReparent OutcomeKind = "reparent"
)

// Outcome describes what a gesture did to the tree
type Outcome struct {
	Kind     OutcomeKind
	NodeID   string
	ParentID string
	Index    int
	Position geometry.Position
}

// Option configures a Reconciler
type Option func(*Reconciler)

// WithThreshold sets the activation distance
func WithThreshold(px float64) Option {
	return func(r *Reconciler) {
		if px >= 0 {
			r.threshold = px
		}
	}
}

// WithLogger sets the logger for rejected drops
func WithLogger(logger zerolog.Logger) Option {
	return func(r *Reconciler) {
		r.logger = logger
	}
}

type gesture struct {
	nodeID string
	start  geometry.Position
	over   string
}

// Reconciler turns pointer and keyboard gestures into store mutations. The
// tree is only touched when a drop commits.
type Reconciler struct {
	mu        sync.Mutex
	store     *tree.Store
	threshold float64
	logger    zerolog.Logger
	active    *gesture
	onCommit  func(Outcome)
}

// New creates a reconciler for store
func New(store *tree.Store, opts ...Option) *Reconciler {
	r := &Reconciler{
		store:     store,
		threshold: DefaultThreshold,
		logger:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// OnBeforeCommit registers fn to run right before a drop mutates the tree
func (r *Reconciler) OnBeforeCommit(fn func(Outcome)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onCommit = fn
}

// Start begins a gesture on nodeID at pointer (document coordinates)
func (r *Reconciler) Start(nodeID string, pointer geometry.Position) bool {
	if !r.store.Has(nodeID) {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.active = &gesture{nodeID: nodeID, start: pointer}
	return true
}

// Over records the element under the pointer. An empty id means no target.
func (r *Reconciler) Over(targetID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active != nil {
		r.active.over = targetID
	}
}

// Dragging reports whether a gesture is in progress
func (r *Reconciler) Dragging() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active != nil
}

// Cancel abandons the gesture without touching the tree
func (r *Reconciler) Cancel() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.active = nil
}

// End commits the gesture at pointer. A drop with no target, below the
// activation threshold, or rejected by the store leaves the tree unchanged
// and yields OutcomeNone; a store rejection is also returned as the error.
func (r *Reconciler) End(pointer geometry.Position) (Outcome, error) {
	r.mu.Lock()
	g := r.active
	r.active = nil
	before := r.onCommit
	r.mu.Unlock()

	none := Outcome{Kind: OutcomeNone}
	if g == nil {
		return none, ErrNoDrag
	}
	none.NodeID = g.nodeID
	if g.start.Distance(pointer) < r.threshold || g.over == "" {
		return none, nil
	}

	node, ok := r.store.Get(g.nodeID)
	if !ok {
		return none, nil
	}
	dx, dy := pointer.X-g.start.X, pointer.Y-g.start.Y

	plan, ok := r.plan(node, g.over, dx, dy)
	if !ok {
		return none, nil
	}
	if before != nil {
		before(plan)
	}
	if err := r.commit(plan, node); err != nil {
		r.logger.Debug().Err(err).Str("node", node.ID).Str("target", g.over).Msg("drop rejected")
		return none, err
	}
	return plan, nil
}

// plan decides which single mutation the drop maps to
func (r *Reconciler) plan(node *tree.Node, over string, dx, dy float64) (Outcome, bool) {
	absolute := node.Geometry.IsAbsolute()
	moveBy := func() (Outcome, bool) {
		if !absolute || node.Locked {
			return Outcome{}, false
		}
		pos := geometry.ClampPosition(node.Geometry.Position().Add(dx, dy))
		return Outcome{Kind: OutcomeMove, NodeID: node.ID, ParentID: node.ParentID, Position: pos}, true
	}

	if over == CanvasID {
		if node.IsRoot() {
			return moveBy()
		}
		return r.reparentPlan(node, "", dx, dy)
	}
	if over == node.ID || over == node.ParentID {
		return moveBy()
	}

	overParent, overIndex, ok := r.store.Locate(over)
	if !ok {
		return Outcome{}, false
	}
	if overParent == node.ParentID {
		switch {
		case !absolute:
			return Outcome{Kind: OutcomeReorder, NodeID: node.ID, ParentID: node.ParentID, Index: overIndex}, true
		case !r.store.IsContainer(over):
			return moveBy()
		}
		return r.reparentPlan(node, over, dx, dy)
	}

	if r.store.IsContainer(over) {
		return r.reparentPlan(node, over, dx, dy)
	}
	out, ok := r.reparentPlan(node, overParent, dx, dy)
	out.Index = overIndex
	return out, ok
}

func (r *Reconciler) reparentPlan(node *tree.Node, parentID string, dx, dy float64) (Outcome, bool) {
	out := Outcome{Kind: OutcomeReparent, NodeID: node.ID, ParentID: parentID, Index: -1}
	if node.Geometry.IsAbsolute() {
		from, _ := r.store.Origin(node.ID)
		var to geometry.Position
		if parentID != "" {
			to, _ = r.store.Origin(parentID)
		}
		out.Position = geometry.ClampPosition(from.Add(dx-to.X, dy-to.Y))
	}
	return out, true
}

func (r *Reconciler) commit(plan Outcome, node *tree.Node) error {
	switch plan.Kind {
	case OutcomeMove:
		if !r.store.Move(plan.NodeID, plan.Position) {
			return ErrRejected
		}
		return nil
	case OutcomeReorder:
		overID := r.siblingAt(plan.ParentID, plan.Index)
		if overID == "" || !r.store.Reorder(plan.NodeID, overID) {
			return ErrRejected
		}
		return nil
	case OutcomeReparent:
		return r.store.Batch(func(tx *tree.Tx) error {
			index := plan.Index
			if index < 0 {
				index = math.MaxInt
			}
			if err := tx.Reparent(plan.NodeID, plan.ParentID, index); err != nil {
				return err
			}
			if node.Geometry.IsAbsolute() && !node.Locked {
				tx.Move(plan.NodeID, plan.Position)
			}
			return nil
		})
	}
	return nil
}

// KeyboardReorder moves id delta places among its siblings
func (r *Reconciler) KeyboardReorder(id string, delta int) bool {
	parentID, index, ok := r.store.Locate(id)
	if !ok || delta == 0 {
		return false
	}
	overID := r.siblingAt(parentID, index+delta)
	if overID == "" {
		return false
	}
	return r.store.Reorder(id, overID)
}

func (r *Reconciler) siblingAt(parentID string, index int) string {
	var siblings []*tree.Node
	if parentID == "" {
		siblings = r.store.Roots()
	} else if p, ok := r.store.Get(parentID); ok {
		siblings = p.Children
	}
	if index < 0 || index >= len(siblings) {
		return ""
	}
	return siblings[index].ID
}
