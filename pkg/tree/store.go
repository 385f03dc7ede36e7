package tree

import (
	"sort"
	"sync"
	"time"

	"github.com/dshills/pagebuilder/pkg/catalog"
	"github.com/dshills/pagebuilder/pkg/geometry"
	"github.com/rs/zerolog"
)

// DefaultMaxDepth bounds nesting so recursive walks stay shallow
const DefaultMaxDepth = 64

// Option configures a Store
type Option func(*Store)

// WithMaxDepth sets the maximum nesting depth. Root nodes have depth 0.
func WithMaxDepth(depth int) Option {
	return func(s *Store) {
		if depth > 0 {
			s.maxDepth = depth
		}
	}
}

// WithBounds sets store-wide resize bounds, merged with each kind's minimum
func WithBounds(b geometry.Bounds) Option {
	return func(s *Store) {
		s.bounds = b
	}
}

// WithLogger sets the logger used for rejected mutations
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// WithIDGenerator replaces the uuid generator
func WithIDGenerator(fn func() string) Option {
	return func(s *Store) {
		if fn != nil {
			s.newID = fn
		}
	}
}

// Store owns the canonical node forest. All mutations are serialised by a
// single mutex; listeners run after the lock is released.
type Store struct {
	mu        sync.Mutex
	catalog   catalog.Catalog
	roots     []*Node
	index     map[string]*Node
	lastAdded string
	version   uint64
	maxDepth  int
	bounds    geometry.Bounds
	newID     func() string
	logger    zerolog.Logger

	subMu     sync.RWMutex
	listeners map[int]Listener
	nextSub   int
}

// New creates an empty store backed by the given catalog
func New(cat catalog.Catalog, opts ...Option) *Store {
	s := &Store{
		catalog:   cat,
		index:     make(map[string]*Node),
		maxDepth:  DefaultMaxDepth,
		bounds:    geometry.DefaultBounds(),
		newID:     NewID,
		logger:    zerolog.Nop(),
		listeners: make(map[int]Listener),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Catalog returns the kind catalog the store validates against
func (s *Store) Catalog() catalog.Catalog {
	return s.catalog
}

// MaxDepth returns the configured nesting limit
func (s *Store) MaxDepth() int {
	return s.maxDepth
}

// Subscribe registers fn for every applied mutation and returns a function
// that removes it.
func (s *Store) Subscribe(fn Listener) func() {
	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.listeners[id] = fn
	s.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.subMu.Lock()
			delete(s.listeners, id)
			s.subMu.Unlock()
		})
	}
}

// Batch runs fn with the store lock held so that no other mutation source
// interleaves. Events are dispatched once fn returns. Mutations made before
// fn returns an error are kept.
func (s *Store) Batch(fn func(tx *Tx) error) error {
	tx := &Tx{store: s}
	err := s.locked(func() error {
		defer func() { tx.done = true }()
		return fn(tx)
	})
	s.dispatch(tx.events)
	return err
}

func (s *Store) locked(fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn()
}

func (s *Store) dispatch(events []Event) {
	if len(events) == 0 {
		return
	}
	s.subMu.RLock()
	ids := make([]int, 0, len(s.listeners))
	for id := range s.listeners {
		ids = append(ids, id)
	}
	listeners := make([]Listener, 0, len(ids))
	sort.Ints(ids)
	for _, id := range ids {
		listeners = append(listeners, s.listeners[id])
	}
	s.subMu.RUnlock()

	for _, ev := range events {
		for _, fn := range listeners {
			fn(ev)
		}
	}
}

// Version returns the dirty counter, bumped by every applied mutation
func (s *Store) Version() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version
}

// Len returns the number of nodes in the forest
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.index)
}

// Get returns a deep copy of the node with id
func (s *Store) Get(id string) (*Node, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.index[id]
	if !ok {
		return nil, false
	}
	return n.Clone(), true
}

// Has reports whether id exists
func (s *Store) Has(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.index[id]
	return ok
}

// Roots returns a deep copy of the forest
func (s *Store) Roots() []*Node {
	s.mu.Lock()
	defer s.mu.Unlock()
	return CloneForest(s.roots)
}

// Export is Roots under the name persistence code expects
func (s *Store) Export() []*Node {
	return s.Roots()
}

// Walk visits a snapshot of the forest depth-first
func (s *Store) Walk(fn func(n *Node, depth int) bool) {
	Walk(s.Roots(), fn)
}

// LastAdded returns the id of the most recently added node still present
func (s *Store) LastAdded() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastAdded
}

// Locate returns the parent id and sibling index of id
func (s *Store) Locate(id string) (parentID string, index int, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.index[id]
	if !ok {
		return "", 0, false
	}
	return n.ParentID, indexOf(s.siblings(n.ParentID), id), true
}

// Descendants returns the ids below id in depth-first order
func (s *Store) Descendants(id string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.index[id]
	if !ok {
		return nil
	}
	return descendantIDs(n)
}

// Path returns the ids from the root down to id, inclusive
func (s *Store) Path(id string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.path(id)
}

// Origin returns the document-space origin of id by summing parent offsets
func (s *Store) Origin(id string) (geometry.Position, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	path := s.path(id)
	if len(path) == 0 {
		return geometry.Position{}, false
	}
	chain := make([]geometry.Geometry, len(path))
	for i, pid := range path {
		chain[i] = s.index[pid].Geometry
	}
	return geometry.AbsoluteOrigin(chain), true
}

// IsContainer reports whether id exists and its kind can own children
func (s *Store) IsContainer(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.index[id]
	if !ok {
		return false
	}
	entry, ok := s.catalog.Lookup(n.Kind)
	return ok && entry.Container
}

// Add creates a node. See Tx.Add.
func (s *Store) Add(spec NodeSpec) (string, error) {
	var id string
	err := s.Batch(func(tx *Tx) error {
		var err error
		id, err = tx.Add(spec)
		return err
	})
	return id, err
}

// Update shallow-merges props into the node's properties
func (s *Store) Update(id string, props map[string]interface{}) bool {
	return s.apply(func(tx *Tx) bool { return tx.Update(id, props) })
}

// Move sets the position of an unlocked absolute node
func (s *Store) Move(id string, pos geometry.Position) bool {
	return s.apply(func(tx *Tx) bool { return tx.Move(id, pos) })
}

// Resize sets the size of an unlocked node, clamped to its bounds
func (s *Store) Resize(id string, size geometry.Size) bool {
	return s.apply(func(tx *Tx) bool { return tx.Resize(id, size) })
}

// SetVisible toggles render eligibility
func (s *Store) SetVisible(id string, visible bool) bool {
	return s.apply(func(tx *Tx) bool { return tx.SetVisible(id, visible) })
}

// SetLocked toggles geometry locking
func (s *Store) SetLocked(id string, locked bool) bool {
	return s.apply(func(tx *Tx) bool { return tx.SetLocked(id, locked) })
}

// Remove deletes id and its subtree
func (s *Store) Remove(id string) bool {
	return s.apply(func(tx *Tx) bool { return tx.Remove(id) })
}

// Reorder moves activeID to overID's index within their shared parent
func (s *Store) Reorder(activeID, overID string) bool {
	return s.apply(func(tx *Tx) bool { return tx.Reorder(activeID, overID) })
}

// Reparent moves id under newParentID at index
func (s *Store) Reparent(id, newParentID string, index int) error {
	return s.Batch(func(tx *Tx) error { return tx.Reparent(id, newParentID, index) })
}

// BringToFront raises an absolute node above its siblings
func (s *Store) BringToFront(id string) bool {
	return s.apply(func(tx *Tx) bool { return tx.BringToFront(id) })
}

// SendToBack lowers an absolute node below its siblings
func (s *Store) SendToBack(id string) bool {
	return s.apply(func(tx *Tx) bool { return tx.SendToBack(id) })
}

// Duplicate clones id's subtree next to it with fresh ids
func (s *Store) Duplicate(id string) (string, error) {
	var newID string
	err := s.Batch(func(tx *Tx) error {
		var err error
		newID, err = tx.Duplicate(id)
		return err
	})
	return newID, err
}

// Restore replaces the forest with a validated copy of nodes
func (s *Store) Restore(nodes []*Node) error {
	return s.Batch(func(tx *Tx) error { return tx.Restore(nodes) })
}

// Reset clears the forest
func (s *Store) Reset() {
	_ = s.Batch(func(tx *Tx) error {
		tx.Reset()
		return nil
	})
}

func (s *Store) apply(fn func(tx *Tx) bool) bool {
	var ok bool
	_ = s.Batch(func(tx *Tx) error {
		ok = fn(tx)
		return nil
	})
	return ok
}

// emit records a mutation; callers hold the lock
func (s *Store) emit(tx *Tx, ev Event) {
	s.version++
	ev.Version = s.version
	ev.Timestamp = time.Now()
	tx.events = append(tx.events, ev)
}

func (s *Store) siblings(parentID string) []*Node {
	if parentID == "" {
		return s.roots
	}
	if p, ok := s.index[parentID]; ok {
		return p.Children
	}
	return nil
}

func (s *Store) setSiblings(parentID string, nodes []*Node) {
	if parentID == "" {
		s.roots = nodes
		return
	}
	if p, ok := s.index[parentID]; ok {
		p.Children = nodes
	}
}

func (s *Store) depth(id string) int {
	d := 0
	for n := s.index[id]; n != nil && n.ParentID != ""; n = s.index[n.ParentID] {
		d++
	}
	return d
}

func (s *Store) path(id string) []string {
	n, ok := s.index[id]
	if !ok {
		return nil
	}
	var rev []string
	for ; n != nil; n = s.index[n.ParentID] {
		rev = append(rev, n.ID)
	}
	out := make([]string, len(rev))
	for i, pid := range rev {
		out[len(rev)-1-i] = pid
	}
	return out
}

func (s *Store) boundsFor(kind string) geometry.Bounds {
	b := s.bounds
	if entry, ok := s.catalog.Lookup(kind); ok {
		b = entry.MinBounds().Merge(b)
	}
	return b
}

func descendantIDs(n *Node) []string {
	var ids []string
	Walk(n.Children, func(c *Node, _ int) bool {
		ids = append(ids, c.ID)
		return true
	})
	return ids
}

func indexOf(nodes []*Node, id string) int {
	for i, n := range nodes {
		if n.ID == id {
			return i
		}
	}
	return -1
}
