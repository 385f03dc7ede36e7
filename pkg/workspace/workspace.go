package workspace

import (
	"sort"
	"sync"
	"time"

	"github.com/dshills/pagebuilder/pkg/catalog"
	"github.com/dshills/pagebuilder/pkg/geometry"
	"github.com/rs/zerolog"
)

// DefaultPanelBounds limits panel resizing
func DefaultPanelBounds() geometry.Bounds {
	return geometry.Bounds{MinWidth: 200, MinHeight: 120, MaxWidth: 800, MaxHeight: 1200}
}

// DefaultCanvasBounds is the smallest canvas allowed
func DefaultCanvasBounds() geometry.Bounds {
	return geometry.Bounds{MinWidth: 320, MinHeight: 240}
}

// Option configures a Workspace
type Option func(*Workspace)

// WithPanelBounds sets the panel resize limits
func WithPanelBounds(b geometry.Bounds) Option {
	return func(w *Workspace) {
		w.panelBounds = b
	}
}

// WithCanvasBounds sets the canvas size limits
func WithCanvasBounds(b geometry.Bounds) Option {
	return func(w *Workspace) {
		w.canvasBounds = b
	}
}

// WithCatalog drops palette entries for kinds the catalog does not know
func WithCatalog(cat catalog.Catalog) Option {
	return func(w *Workspace) {
		w.catalog = cat
	}
}

// WithLogger sets the logger
func WithLogger(logger zerolog.Logger) Option {
	return func(w *Workspace) {
		w.logger = logger
	}
}

// Workspace guards a Layout and applies editing operations to it. Missing
// panel or section ids make an operation a no-op that reports false.
type Workspace struct {
	mu           sync.Mutex
	layout       *Layout
	panelBounds  geometry.Bounds
	canvasBounds geometry.Bounds
	catalog      catalog.Catalog
	logger       zerolog.Logger
	now          func() time.Time

	subMu     sync.Mutex
	listeners map[int]func()
	nextSub   int
}

// New wraps layout. A nil layout starts from Default.
func New(layout *Layout, opts ...Option) *Workspace {
	if layout == nil {
		layout = Default("Default workspace")
	}
	w := &Workspace{
		layout:       layout.Clone(),
		panelBounds:  DefaultPanelBounds(),
		canvasBounds: DefaultCanvasBounds(),
		logger:       zerolog.Nop(),
		now:          time.Now,
		listeners:    make(map[int]func()),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// OnChange registers fn to run after every change. It returns an
// unsubscribe function.
func (w *Workspace) OnChange(fn func()) func() {
	w.subMu.Lock()
	defer w.subMu.Unlock()
	id := w.nextSub
	w.nextSub++
	w.listeners[id] = fn
	var once sync.Once
	return func() {
		once.Do(func() {
			w.subMu.Lock()
			defer w.subMu.Unlock()
			delete(w.listeners, id)
		})
	}
}

func (w *Workspace) notify() {
	w.subMu.Lock()
	ids := make([]int, 0, len(w.listeners))
	for id := range w.listeners {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]func(), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, w.listeners[id])
	}
	w.subMu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// mutate runs fn under the lock and notifies listeners when it reports a change
func (w *Workspace) mutate(fn func(l *Layout) bool) bool {
	w.mu.Lock()
	changed := fn(w.layout)
	if changed {
		w.layout.UpdatedAt = w.now().UnixMilli()
	}
	w.mu.Unlock()
	if changed {
		w.notify()
	}
	return changed
}

// Layout returns a copy of the current layout
func (w *Workspace) Layout() *Layout {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.layout.Clone()
}

// Panel returns a copy of one panel
func (w *Workspace) Panel(id string) (*Panel, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if p := w.layout.panel(id); p != nil {
		return p.clone(), true
	}
	return nil, false
}

func (l *Layout) panel(id string) *Panel {
	for _, p := range l.Panels {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func (l *Layout) section(id string) (*Panel, int) {
	for _, p := range l.Panels {
		for i, s := range p.Sections {
			if s.ID == id {
				return p, i
			}
		}
	}
	return nil, -1
}

// AddPanel appends a visible panel and returns its id
func (w *Workspace) AddPanel(title string, at geometry.Position, width, height float64) string {
	width, height = w.panelBounds.ClampValue(width, height)
	p := &Panel{
		ID:       newID(),
		Title:    title,
		Position: geometry.ClampPosition(at),
		Width:    width,
		Height:   height,
		Visible:  true,
		Sections: []*Section{},
	}
	w.mutate(func(l *Layout) bool {
		l.Panels = append(l.Panels, p)
		return true
	})
	return p.ID
}

// RemovePanel deletes a panel and its sections
func (w *Workspace) RemovePanel(id string) bool {
	return w.mutate(func(l *Layout) bool {
		for i, p := range l.Panels {
			if p.ID == id {
				l.Panels = append(l.Panels[:i], l.Panels[i+1:]...)
				return true
			}
		}
		return false
	})
}

// MovePanel places a panel at a non-negative position
func (w *Workspace) MovePanel(id string, at geometry.Position) bool {
	if !at.IsFinite() {
		return false
	}
	at = geometry.ClampPosition(at)
	return w.mutate(func(l *Layout) bool {
		p := l.panel(id)
		if p == nil || p.Position == at {
			return false
		}
		p.Position = at
		return true
	})
}

// ResizePanel sets a panel's size clamped to the panel bounds
func (w *Workspace) ResizePanel(id string, width, height float64) bool {
	if !geometry.NewSize(width, height).IsFinite() {
		return false
	}
	width, height = w.panelBounds.ClampValue(width, height)
	return w.mutate(func(l *Layout) bool {
		p := l.panel(id)
		if p == nil || (p.Width == width && p.Height == height) {
			return false
		}
		p.Width, p.Height = width, height
		return true
	})
}

// SetPanelVisible shows or hides a panel
func (w *Workspace) SetPanelVisible(id string, visible bool) bool {
	return w.mutate(func(l *Layout) bool {
		p := l.panel(id)
		if p == nil || p.Visible == visible {
			return false
		}
		p.Visible = visible
		return true
	})
}

// TogglePanelCollapsed flips a panel's collapsed state
func (w *Workspace) TogglePanelCollapsed(id string) bool {
	return w.mutate(func(l *Layout) bool {
		p := l.panel(id)
		if p == nil {
			return false
		}
		p.Collapsed = !p.Collapsed
		return true
	})
}

// ToggleSectionCollapsed flips a section's collapsed state
func (w *Workspace) ToggleSectionCollapsed(id string) bool {
	return w.mutate(func(l *Layout) bool {
		p, i := l.section(id)
		if p == nil {
			return false
		}
		p.Sections[i].Collapsed = !p.Sections[i].Collapsed
		return true
	})
}

// AddSection appends a section to a panel and returns its id. Unknown
// kinds are dropped from the palette when a catalog is configured.
func (w *Workspace) AddSection(panelID string, s Section) (string, bool) {
	sec := s
	sec.ID = newID()
	if sec.Kind == "" {
		sec.Kind = SectionPalette
	}
	sec.Palette = w.filterPalette(s.Palette)

	ok := w.mutate(func(l *Layout) bool {
		p := l.panel(panelID)
		if p == nil {
			return false
		}
		p.Sections = append(p.Sections, &sec)
		return true
	})
	if !ok {
		return "", false
	}
	return sec.ID, true
}

func (w *Workspace) filterPalette(kinds []string) []string {
	out := make([]string, 0, len(kinds))
	seen := make(map[string]bool)
	for _, k := range kinds {
		if seen[k] {
			continue
		}
		if w.catalog != nil {
			if _, ok := w.catalog.Lookup(k); !ok {
				w.logger.Debug().Str("kind", k).Msg("dropping unknown kind from palette")
				continue
			}
		}
		seen[k] = true
		out = append(out, k)
	}
	return out
}

// RemoveSection deletes a section from whichever panel holds it
func (w *Workspace) RemoveSection(id string) bool {
	return w.mutate(func(l *Layout) bool {
		p, i := l.section(id)
		if p == nil {
			return false
		}
		p.Sections = append(p.Sections[:i], p.Sections[i+1:]...)
		return true
	})
}

// MoveSection moves a section to index within panelID, which may be the
// panel it is already in. The index is clamped.
func (w *Workspace) MoveSection(id, panelID string, index int) bool {
	return w.mutate(func(l *Layout) bool {
		from, i := l.section(id)
		to := l.panel(panelID)
		if from == nil || to == nil {
			return false
		}
		if from == to {
			index = clampIndex(index, len(from.Sections)-1)
			if index == i {
				return false
			}
		}
		sec := from.Sections[i]
		from.Sections = append(from.Sections[:i], from.Sections[i+1:]...)
		index = clampIndex(index, len(to.Sections))
		to.Sections = append(to.Sections, nil)
		copy(to.Sections[index+1:], to.Sections[index:])
		to.Sections[index] = sec
		return true
	})
}

func clampIndex(i, hi int) int {
	if i < 0 {
		return 0
	}
	if i > hi {
		return hi
	}
	return i
}

// SetTheme replaces the theme
func (w *Workspace) SetTheme(t Theme) bool {
	return w.mutate(func(l *Layout) bool {
		if l.Theme == t {
			return false
		}
		l.Theme = t
		return true
	})
}

// SetCanvas replaces the canvas configuration, clamping its size
func (w *Workspace) SetCanvas(c Canvas) bool {
	if !geometry.NewSize(c.Width, c.Height).IsFinite() {
		return false
	}
	c.Width, c.Height = w.canvasBounds.ClampValue(c.Width, c.Height)
	if c.GridSize < 0 {
		c.GridSize = 0
	}
	return w.mutate(func(l *Layout) bool {
		if l.Canvas == c {
			return false
		}
		l.Canvas = c
		return true
	})
}

// Reset restores the default panels, theme and canvas. The document
// identity and name are kept.
func (w *Workspace) Reset() {
	w.mutate(func(l *Layout) bool {
		fresh := Default(l.Name)
		l.Panels = fresh.Panels
		l.Theme = fresh.Theme
		l.Canvas = fresh.Canvas
		return true
	})
}
