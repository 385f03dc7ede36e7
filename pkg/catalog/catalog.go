package catalog

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/dshills/pagebuilder/pkg/geometry"
	"github.com/dshills/pagebuilder/pkg/props"
	"github.com/dshills/pagebuilder/pkg/validation"
	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// Common catalog errors
var (
	// ErrDuplicateKind is returned when a kind is registered twice
	ErrDuplicateKind = errors.New("kind already registered")
	// ErrInvalidEntry is returned for entries that fail validation
	ErrInvalidEntry = errors.New("invalid catalog entry")
)

// Entry describes one addable component kind
type Entry struct {
	Kind              string                 `yaml:"kind"`
	Name              string                 `yaml:"name"`
	Category          string                 `yaml:"category,omitempty"`
	Description       string                 `yaml:"description,omitempty"`
	Container         bool                   `yaml:"container,omitempty"`
	Mode              geometry.Mode          `yaml:"mode,omitempty"`
	DefaultPosition   geometry.Position      `yaml:"position,omitempty"`
	DefaultSize       geometry.Size          `yaml:"size"`
	MinWidth          float64                `yaml:"min_width,omitempty"`
	MinHeight         float64                `yaml:"min_height,omitempty"`
	DefaultProperties map[string]interface{} `yaml:"properties,omitempty"`

	// Accepts is an optional boolean expression deciding which children a
	// container takes. It sees parent, child and depth.
	Accepts string `yaml:"accepts,omitempty"`
}

// DefaultGeometry returns the initial geometry for a new node of this kind
func (e Entry) DefaultGeometry() geometry.Geometry {
	mode := e.Mode
	if mode == "" {
		mode = geometry.ModeAbsolute
	}
	return geometry.Geometry{
		Mode:   mode,
		X:      e.DefaultPosition.X,
		Y:      e.DefaultPosition.Y,
		Width:  e.DefaultSize.Width,
		Height: e.DefaultSize.Height,
	}
}

// MinBounds returns the resize floor for this kind, falling back to the canvas default
func (e Entry) MinBounds() geometry.Bounds {
	b := geometry.DefaultBounds()
	if e.MinWidth > 0 {
		b.MinWidth = e.MinWidth
	}
	if e.MinHeight > 0 {
		b.MinHeight = e.MinHeight
	}
	return b
}

// Properties returns a deep copy of the default properties in JSON-native
// types. Values that cannot be represented are dropped; Register rejects
// entries carrying them.
func (e Entry) Properties() map[string]interface{} {
	out := make(map[string]interface{}, len(e.DefaultProperties))
	for k, v := range e.DefaultProperties {
		if item, err := props.Normalize(v); err == nil {
			out[k] = item
		}
	}
	return out
}

// Catalog is the read-only kind lookup consumed by the node store
type Catalog interface {
	Lookup(kind string) (Entry, bool)
	Kinds() []string
	CanContain(parent, child Entry, depth int) (bool, error)
}

// RuleKind is the view of an entry exposed to Accepts expressions
type RuleKind struct {
	Kind      string `expr:"kind"`
	Category  string `expr:"category"`
	Container bool   `expr:"container"`
}

// RuleEnv is the environment Accepts expressions are evaluated against
type RuleEnv struct {
	Parent RuleKind `expr:"parent"`
	Child  RuleKind `expr:"child"`
	Depth  int      `expr:"depth"`
}

type registered struct {
	entry   Entry
	accepts *vm.Program
}

// Registry is the in-memory Catalog implementation
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*registered
	order   []string
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[string]*registered),
	}
}

// Register validates and adds an entry. Accepts expressions are compiled here
// so a broken rule is rejected at startup rather than on first use.
func (r *Registry) Register(e Entry) error {
	if err := validateEntry(e); err != nil {
		return err
	}

	reg := &registered{entry: e}
	if strings.TrimSpace(e.Accepts) != "" {
		program, err := expr.Compile(e.Accepts, expr.Env(RuleEnv{}), expr.AsBool())
		if err != nil {
			return fmt.Errorf("%w: kind %s: accepts rule: %v", ErrInvalidEntry, e.Kind, err)
		}
		reg.accepts = program
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[e.Kind]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateKind, e.Kind)
	}
	r.entries[e.Kind] = reg
	r.order = append(r.order, e.Kind)
	return nil
}

// Lookup returns the entry for kind
func (r *Registry) Lookup(kind string) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	reg, ok := r.entries[kind]
	if !ok {
		return Entry{}, false
	}
	return reg.entry, true
}

// Kinds returns all registered kinds in registration order
func (r *Registry) Kinds() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return append([]string(nil), r.order...)
}

// Entries returns all entries in registration order
func (r *Registry) Entries() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries := make([]Entry, 0, len(r.order))
	for _, kind := range r.order {
		entries = append(entries, r.entries[kind].entry)
	}
	return entries
}

// Filter returns entries whose kind, name or category contains text
// (case-insensitive). Empty text returns everything.
func (r *Registry) Filter(text string) []Entry {
	all := r.Entries()
	text = strings.ToLower(strings.TrimSpace(text))
	if text == "" {
		return all
	}

	filtered := make([]Entry, 0, len(all))
	for _, e := range all {
		if strings.Contains(strings.ToLower(e.Kind), text) ||
			strings.Contains(strings.ToLower(e.Name), text) ||
			strings.Contains(strings.ToLower(e.Category), text) {
			filtered = append(filtered, e)
		}
	}
	return filtered
}

// Categories returns the distinct categories, sorted
func (r *Registry) Categories() []string {
	seen := make(map[string]bool)
	for _, e := range r.Entries() {
		if e.Category != "" {
			seen[e.Category] = true
		}
	}
	cats := make([]string, 0, len(seen))
	for c := range seen {
		cats = append(cats, c)
	}
	sort.Strings(cats)
	return cats
}

// CanContain reports whether parent may own child at the given depth
func (r *Registry) CanContain(parent, child Entry, depth int) (bool, error) {
	if !parent.Container {
		return false, nil
	}

	r.mu.RLock()
	reg, ok := r.entries[parent.Kind]
	r.mu.RUnlock()
	if !ok || reg.accepts == nil {
		return true, nil
	}

	out, err := expr.Run(reg.accepts, RuleEnv{
		Parent: ruleKind(parent),
		Child:  ruleKind(child),
		Depth:  depth,
	})
	if err != nil {
		return false, fmt.Errorf("evaluating accepts rule for %s: %w", parent.Kind, err)
	}
	allowed, _ := out.(bool)
	return allowed, nil
}

func ruleKind(e Entry) RuleKind {
	return RuleKind{Kind: e.Kind, Category: e.Category, Container: e.Container}
}

func validateEntry(e Entry) error {
	if e.Kind == "" {
		return fmt.Errorf("%w: kind cannot be empty", ErrInvalidEntry)
	}
	for _, ch := range e.Kind {
		if !validation.IsValidIdentifierChar(ch) {
			return fmt.Errorf("%w: kind %q contains invalid character %q", ErrInvalidEntry, e.Kind, ch)
		}
	}
	if e.Mode != "" && !e.Mode.Valid() {
		return fmt.Errorf("%w: kind %s: unknown mode %q", ErrInvalidEntry, e.Kind, e.Mode)
	}
	if e.MinWidth < 0 || e.MinHeight < 0 {
		return fmt.Errorf("%w: kind %s: negative minimum size", ErrInvalidEntry, e.Kind)
	}
	if _, err := props.Map(e.DefaultProperties); err != nil {
		return fmt.Errorf("%w: kind %s: default property %v", ErrInvalidEntry, e.Kind, err)
	}
	return nil
}
