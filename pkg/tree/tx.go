package tree

import (
	"fmt"
	"reflect"

	"github.com/dshills/pagebuilder/pkg/catalog"
	"github.com/dshills/pagebuilder/pkg/geometry"
	"github.com/dshills/pagebuilder/pkg/props"
)

// duplicateOffset shifts an absolute duplicate so it does not cover the original
const duplicateOffset = 20

// Tx is the mutation handle passed to Store.Batch. It is only valid inside
// the batch function.
type Tx struct {
	store  *Store
	events []Event
	done   bool
}

func (tx *Tx) check() {
	if tx.done {
		panic("tree: Tx used after its batch returned")
	}
}

// Get returns a deep copy of id as seen inside the batch
func (tx *Tx) Get(id string) (*Node, bool) {
	tx.check()
	n, ok := tx.store.index[id]
	if !ok {
		return nil, false
	}
	return n.Clone(), true
}

// Has reports whether id exists
func (tx *Tx) Has(id string) bool {
	tx.check()
	_, ok := tx.store.index[id]
	return ok
}

// LastAdded returns the most recently added node id
func (tx *Tx) LastAdded() string {
	tx.check()
	return tx.store.lastAdded
}

// Add creates a node of spec.Kind under spec.ParentID ("" or RootID for the
// top level) as its parent's last child. Catalog defaults are overridden by
// any position, size or properties in spec.
func (tx *Tx) Add(spec NodeSpec) (string, error) {
	tx.check()
	s := tx.store

	entry, ok := s.catalog.Lookup(spec.Kind)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, spec.Kind)
	}

	parentID := normalizeParent(spec.ParentID)
	if err := s.checkPlacement(parentID, entry, 0); err != nil {
		s.logger.Debug().Err(err).Str("kind", spec.Kind).Str("parent", parentID).Msg("add rejected")
		return "", err
	}

	if (spec.Position != nil && !spec.Position.IsFinite()) || (spec.Size != nil && !spec.Size.IsFinite()) {
		return "", fmt.Errorf("%w: kind %s", ErrInvalidGeometry, spec.Kind)
	}
	values, err := props.Map(spec.Properties)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidProperty, err)
	}

	g := entry.DefaultGeometry()
	if spec.Position != nil && g.IsAbsolute() {
		g = g.WithPosition(geometry.ClampPosition(*spec.Position))
	}
	if spec.Size != nil {
		g = g.WithSize(s.boundsFor(entry.Kind).Clamp(*spec.Size))
	}

	properties := entry.Properties()
	for k, v := range values {
		properties[k] = v
	}

	n := &Node{
		ID:         s.newID(),
		Kind:       entry.Kind,
		Properties: properties,
		Geometry:   g,
		Visible:    true,
		ParentID:   parentID,
		Children:   []*Node{},
	}
	siblings := s.siblings(parentID)
	if g.IsAbsolute() {
		n.ZOrder = maxZOrder(siblings) + 1
	}

	s.setSiblings(parentID, append(siblings, n))
	s.index[n.ID] = n
	s.lastAdded = n.ID
	s.emit(tx, Event{Type: EventNodeAdded, NodeID: n.ID, ParentID: parentID})
	return n.ID, nil
}

// Update shallow-merges values into id's properties. It reports whether the
// update applied: false for a missing id, or when any value has no JSON form,
// in which case nothing is merged. Merging values that are already present
// emits nothing. Locking does not gate property updates.
func (tx *Tx) Update(id string, values map[string]interface{}) bool {
	tx.check()
	s := tx.store
	n, ok := s.index[id]
	if !ok {
		return false
	}
	normalized, err := props.Map(values)
	if err != nil {
		s.logger.Debug().Err(err).Str("node", id).Msg("update rejected")
		return false
	}

	changed := false
	for k, v := range normalized {
		if old, exists := n.Properties[k]; exists && reflect.DeepEqual(old, v) {
			continue
		}
		if n.Properties == nil {
			n.Properties = make(map[string]interface{})
		}
		n.Properties[k] = v
		changed = true
	}
	if changed {
		s.emit(tx, Event{Type: EventNodeUpdated, NodeID: id, ParentID: n.ParentID})
	}
	return true
}

// Move places an absolute node at pos, clamped to non-negative coordinates.
// Locked, relative and missing nodes are left alone.
func (tx *Tx) Move(id string, pos geometry.Position) bool {
	tx.check()
	s := tx.store
	n, ok := s.index[id]
	if !ok || n.Locked || !n.Geometry.IsAbsolute() || !pos.IsFinite() {
		return false
	}

	pos = geometry.ClampPosition(pos)
	if n.Geometry.Position() != pos {
		n.Geometry = n.Geometry.WithPosition(pos)
		s.emit(tx, Event{Type: EventNodeMoved, NodeID: id, ParentID: n.ParentID})
	}
	return true
}

// Resize sets the size of an unlocked node, clamped to the kind minimum and
// the store bounds
func (tx *Tx) Resize(id string, size geometry.Size) bool {
	tx.check()
	s := tx.store
	n, ok := s.index[id]
	if !ok || n.Locked || !size.IsFinite() {
		return false
	}

	size = s.boundsFor(n.Kind).Clamp(size)
	if n.Geometry.Size() != size {
		n.Geometry = n.Geometry.WithSize(size)
		s.emit(tx, Event{Type: EventNodeResized, NodeID: id, ParentID: n.ParentID})
	}
	return true
}

// SetVisible sets render eligibility
func (tx *Tx) SetVisible(id string, visible bool) bool {
	tx.check()
	s := tx.store
	n, ok := s.index[id]
	if !ok {
		return false
	}
	if n.Visible != visible {
		n.Visible = visible
		s.emit(tx, Event{Type: EventNodeVisibility, NodeID: id, ParentID: n.ParentID})
	}
	return true
}

// SetLocked sets geometry locking
func (tx *Tx) SetLocked(id string, locked bool) bool {
	tx.check()
	s := tx.store
	n, ok := s.index[id]
	if !ok {
		return false
	}
	if n.Locked != locked {
		n.Locked = locked
		s.emit(tx, Event{Type: EventNodeLocked, NodeID: id, ParentID: n.ParentID})
	}
	return true
}

// Remove deletes id and every descendant
func (tx *Tx) Remove(id string) bool {
	tx.check()
	s := tx.store
	n, ok := s.index[id]
	if !ok {
		return false
	}

	s.detach(n)
	removed := append([]string{id}, descendantIDs(n)...)
	for _, rid := range removed {
		delete(s.index, rid)
		if rid == s.lastAdded {
			s.lastAdded = ""
		}
	}
	s.emit(tx, Event{Type: EventNodeRemoved, NodeID: id, ParentID: n.ParentID, RemovedIDs: removed})
	return true
}

// Reorder splices activeID out of its sibling list and reinserts it at
// overID's former index. Nodes with different parents are left alone.
func (tx *Tx) Reorder(activeID, overID string) bool {
	tx.check()
	s := tx.store
	if activeID == overID {
		return false
	}
	a, ok := s.index[activeID]
	if !ok {
		return false
	}
	b, ok := s.index[overID]
	if !ok || a.ParentID != b.ParentID {
		return false
	}

	siblings := s.siblings(a.ParentID)
	from, to := indexOf(siblings, activeID), indexOf(siblings, overID)
	s.setSiblings(a.ParentID, moveItem(siblings, from, to))
	s.emit(tx, Event{Type: EventNodeReordered, NodeID: activeID, ParentID: a.ParentID})
	return true
}

// Reparent moves id under newParentID ("" or RootID for the top level) at
// index, which is clamped into range. The state is unchanged on error.
func (tx *Tx) Reparent(id, newParentID string, index int) error {
	tx.check()
	s := tx.store
	n, ok := s.index[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}

	newParentID = normalizeParent(newParentID)
	if newParentID == id || (newParentID != "" && s.isDescendant(newParentID, n)) {
		s.logger.Debug().Str("node", id).Str("parent", newParentID).Msg("reparent would create a cycle")
		return ErrCycle
	}

	entry, ok := s.catalog.Lookup(n.Kind)
	if !ok {
		entry = catalog.Entry{Kind: n.Kind}
	}
	if err := s.checkPlacement(newParentID, entry, n.Height()); err != nil {
		s.logger.Debug().Err(err).Str("node", id).Str("parent", newParentID).Msg("reparent rejected")
		return err
	}

	oldParentID := n.ParentID
	oldIndex := indexOf(s.siblings(oldParentID), id)
	s.detach(n)

	siblings := s.siblings(newParentID)
	if index < 0 {
		index = 0
	}
	if index > len(siblings) {
		index = len(siblings)
	}
	if oldParentID == newParentID && oldIndex == index {
		s.setSiblings(newParentID, insertAt(siblings, index, n))
		return nil
	}

	n.ParentID = newParentID
	s.setSiblings(newParentID, insertAt(siblings, index, n))
	s.emit(tx, Event{Type: EventNodeReparented, NodeID: id, ParentID: newParentID})
	return nil
}

// BringToFront raises an absolute node's zOrder above its siblings
func (tx *Tx) BringToFront(id string) bool {
	return tx.restack(id, func(siblings []*Node, n *Node) (int, bool) {
		top := maxZOrderExcept(siblings, n.ID)
		return top + 1, n.ZOrder <= top
	})
}

// SendToBack lowers an absolute node's zOrder below its siblings
func (tx *Tx) SendToBack(id string) bool {
	return tx.restack(id, func(siblings []*Node, n *Node) (int, bool) {
		bottom, ok := minZOrderExcept(siblings, n.ID)
		if !ok {
			return n.ZOrder, false
		}
		return bottom - 1, n.ZOrder >= bottom
	})
}

func (tx *Tx) restack(id string, next func(siblings []*Node, n *Node) (int, bool)) bool {
	tx.check()
	s := tx.store
	n, ok := s.index[id]
	if !ok || !n.Geometry.IsAbsolute() {
		return false
	}
	if z, change := next(s.siblings(n.ParentID), n); change {
		n.ZOrder = z
		s.emit(tx, Event{Type: EventNodeZOrder, NodeID: id, ParentID: n.ParentID})
	}
	return true
}

// Duplicate deep-clones id's subtree with fresh ids and inserts it right
// after the original. Absolute copies are offset so both stay visible.
func (tx *Tx) Duplicate(id string) (string, error) {
	tx.check()
	s := tx.store
	n, ok := s.index[id]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}

	c := n.Clone()
	s.reassignIDs(c, n.ParentID)
	siblings := s.siblings(n.ParentID)
	if c.Geometry.IsAbsolute() {
		c.Geometry = c.Geometry.WithPosition(c.Geometry.Position().Add(duplicateOffset, duplicateOffset))
		c.ZOrder = maxZOrder(siblings) + 1
	}

	s.setSiblings(n.ParentID, insertAt(siblings, indexOf(siblings, id)+1, c))
	Walk([]*Node{c}, func(d *Node, _ int) bool {
		s.index[d.ID] = d
		return true
	})
	s.lastAdded = c.ID
	s.emit(tx, Event{Type: EventNodeAdded, NodeID: c.ID, ParentID: c.ParentID})
	return c.ID, nil
}

// Restore replaces the forest with a validated deep copy of nodes
func (tx *Tx) Restore(nodes []*Node) error {
	tx.check()
	s := tx.store
	if err := Validate(nodes, s.maxDepth); err != nil {
		return err
	}

	roots := CloneForest(nodes)
	index := make(map[string]*Node)
	var invalid error
	Walk(roots, func(n *Node, _ int) bool {
		values, err := props.Map(n.Properties)
		if err != nil {
			invalid = fmt.Errorf("%w: node %s: %v", ErrInvalidForest, n.ID, err)
			return false
		}
		n.Properties = values
		if n.Children == nil {
			n.Children = []*Node{}
		}
		index[n.ID] = n
		return true
	})
	if invalid != nil {
		return invalid
	}

	s.roots = roots
	s.index = index
	s.lastAdded = ""
	s.emit(tx, Event{Type: EventTreeRestored})
	return nil
}

// Reset clears the forest
func (tx *Tx) Reset() {
	tx.check()
	s := tx.store
	if len(s.roots) == 0 {
		return
	}
	s.roots = nil
	s.index = make(map[string]*Node)
	s.lastAdded = ""
	s.emit(tx, Event{Type: EventTreeReset})
}

// checkPlacement validates putting a node of kind child, whose subtree is
// height levels deep, under parentID
func (s *Store) checkPlacement(parentID string, child catalog.Entry, height int) error {
	if parentID == "" {
		if height >= s.maxDepth {
			return ErrMaxDepth
		}
		return nil
	}

	parent, ok := s.index[parentID]
	if !ok {
		return fmt.Errorf("%w: parent %s", ErrNodeNotFound, parentID)
	}
	depth := s.depth(parentID) + 1
	if depth+height >= s.maxDepth {
		return fmt.Errorf("%w: depth %d, limit %d", ErrMaxDepth, depth+height, s.maxDepth)
	}

	pe, ok := s.catalog.Lookup(parent.Kind)
	if !ok || !pe.Container {
		return fmt.Errorf("%w: %s", ErrNotContainer, parent.Kind)
	}
	allowed, err := s.catalog.CanContain(pe, child, depth)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNotAllowed, err)
	}
	if !allowed {
		return fmt.Errorf("%w: %s in %s", ErrNotAllowed, child.Kind, parent.Kind)
	}
	return nil
}

func (s *Store) detach(n *Node) {
	siblings := s.siblings(n.ParentID)
	if i := indexOf(siblings, n.ID); i >= 0 {
		out := make([]*Node, 0, len(siblings)-1)
		out = append(out, siblings[:i]...)
		out = append(out, siblings[i+1:]...)
		s.setSiblings(n.ParentID, out)
	}
}

func (s *Store) isDescendant(id string, ancestor *Node) bool {
	for n := s.index[id]; n != nil; n = s.index[n.ParentID] {
		if n.ParentID == ancestor.ID {
			return true
		}
		if n.ParentID == "" {
			return false
		}
	}
	return false
}

func (s *Store) reassignIDs(n *Node, parentID string) {
	n.ID = s.newID()
	n.ParentID = parentID
	for _, c := range n.Children {
		s.reassignIDs(c, n.ID)
	}
}

func normalizeParent(id string) string {
	if id == RootID {
		return ""
	}
	return id
}

func moveItem(nodes []*Node, from, to int) []*Node {
	out := make([]*Node, 0, len(nodes))
	out = append(out, nodes[:from]...)
	out = append(out, nodes[from+1:]...)
	return insertAt(out, to, nodes[from])
}

func insertAt(nodes []*Node, i int, n *Node) []*Node {
	out := make([]*Node, 0, len(nodes)+1)
	out = append(out, nodes[:i]...)
	out = append(out, n)
	return append(out, nodes[i:]...)
}

func maxZOrder(nodes []*Node) int {
	return maxZOrderExcept(nodes, "")
}

func maxZOrderExcept(nodes []*Node, skip string) int {
	top := 0
	for _, n := range nodes {
		if n.ID != skip && n.Geometry.IsAbsolute() && n.ZOrder > top {
			top = n.ZOrder
		}
	}
	return top
}

func minZOrderExcept(nodes []*Node, skip string) (int, bool) {
	bottom, found := 0, false
	for _, n := range nodes {
		if n.ID == skip || !n.Geometry.IsAbsolute() {
			continue
		}
		if !found || n.ZOrder < bottom {
			bottom, found = n.ZOrder, true
		}
	}
	return bottom, found
}
