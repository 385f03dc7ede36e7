// Package workspace models the editor's own layout: floating panels made
// of sections, the theme and the canvas configuration. It never holds
// page nodes; palette sections only list kinds that can be added.
package workspace

import (
	"errors"
	"fmt"
	"time"

	"github.com/dshills/pagebuilder/pkg/document"
	"github.com/dshills/pagebuilder/pkg/geometry"
	"github.com/google/uuid"
)

// ErrInvalidLayout is returned when a layout fails validation
var ErrInvalidLayout = errors.New("invalid layout")

// SectionKind is what a panel section shows
type SectionKind string

const (
	SectionPalette    SectionKind = "palette"
	SectionProperties SectionKind = "properties"
	SectionLayers     SectionKind = "layers"
	SectionAgent      SectionKind = "agent"
)

// Section is one collapsible block inside a panel
type Section struct {
	ID        string      `json:"id" yaml:"id"`
	Title     string      `json:"title" yaml:"title"`
	Kind      SectionKind `json:"kind" yaml:"kind"`
	Collapsed bool        `json:"collapsed" yaml:"collapsed"`
	Palette   []string    `json:"palette,omitempty" yaml:"palette,omitempty"`
}

// Panel is a floating editor panel
type Panel struct {
	ID        string            `json:"id" yaml:"id"`
	Title     string            `json:"title" yaml:"title"`
	Position  geometry.Position `json:"position" yaml:"position"`
	Width     float64           `json:"width" yaml:"width"`
	Height    float64           `json:"height" yaml:"height"`
	Visible   bool              `json:"visible" yaml:"visible"`
	Collapsed bool              `json:"collapsed" yaml:"collapsed"`
	Sections  []*Section        `json:"sections" yaml:"sections"`
}

// Theme is the editor's colour scheme
type Theme struct {
	Mode   string `json:"mode" yaml:"mode"`
	Accent string `json:"accent" yaml:"accent"`
}

// Canvas configures the page canvas
type Canvas struct {
	Width      float64 `json:"width" yaml:"width"`
	Height     float64 `json:"height" yaml:"height"`
	Background string  `json:"background" yaml:"background"`
	GridSize   int     `json:"gridSize" yaml:"grid_size"`
	SnapToGrid bool    `json:"snapToGrid" yaml:"snap_to_grid"`
}

// Layout is the persisted workspace document
type Layout struct {
	document.Meta `yaml:",inline"`
	Panels        []*Panel `json:"panels" yaml:"panels"`
	Theme         Theme    `json:"theme" yaml:"theme"`
	Canvas        Canvas   `json:"canvas" yaml:"canvas"`
}

func newID() string {
	return uuid.NewString()
}

// Default returns the stock layout: a component palette on the left and
// properties, layers and assistant sections on the right.
func Default(name string) *Layout {
	return &Layout{
		Meta: document.NewMeta(name, time.Now()),
		Panels: []*Panel{
			{
				ID:       newID(),
				Title:    "Components",
				Position: geometry.NewPosition(16, 16),
				Width:    260,
				Height:   640,
				Visible:  true,
				Sections: []*Section{
					{ID: newID(), Title: "Layout", Kind: SectionPalette, Palette: []string{"container", "section", "card", "grid"}},
					{ID: newID(), Title: "Content", Kind: SectionPalette, Palette: []string{"heading", "text", "image", "list"}},
					{ID: newID(), Title: "Interactive", Kind: SectionPalette, Palette: []string{"button", "input", "form", "navbar"}},
				},
			},
			{
				ID:       newID(),
				Title:    "Inspector",
				Position: geometry.NewPosition(1000, 16),
				Width:    300,
				Height:   640,
				Visible:  true,
				Sections: []*Section{
					{ID: newID(), Title: "Properties", Kind: SectionProperties},
					{ID: newID(), Title: "Layers", Kind: SectionLayers, Collapsed: true},
					{ID: newID(), Title: "Assistant", Kind: SectionAgent, Collapsed: true},
				},
			},
		},
		Theme:  Theme{Mode: "dark", Accent: "#7c3aed"},
		Canvas: Canvas{Width: 1280, Height: 800, Background: "#ffffff", GridSize: 8},
	}
}

// Clone returns a deep copy of l
func (l *Layout) Clone() *Layout {
	if l == nil {
		return nil
	}
	out := *l
	out.Panels = make([]*Panel, len(l.Panels))
	for i, p := range l.Panels {
		out.Panels[i] = p.clone()
	}
	return &out
}

func (p *Panel) clone() *Panel {
	out := *p
	out.Sections = make([]*Section, len(p.Sections))
	for i, s := range p.Sections {
		sc := *s
		sc.Palette = append([]string(nil), s.Palette...)
		out.Sections[i] = &sc
	}
	return &out
}

// Validate checks that panel and section ids are present and unique
func Validate(l *Layout) error {
	seen := make(map[string]bool)
	for i, p := range l.Panels {
		if p == nil || p.ID == "" {
			return fmt.Errorf("%w: panel %d has no id", ErrInvalidLayout, i)
		}
		if seen[p.ID] {
			return fmt.Errorf("%w: duplicate id %s", ErrInvalidLayout, p.ID)
		}
		seen[p.ID] = true
		if p.Width < 0 || p.Height < 0 {
			return fmt.Errorf("%w: panel %s has a negative size", ErrInvalidLayout, p.ID)
		}
		for j, s := range p.Sections {
			if s == nil || s.ID == "" {
				return fmt.Errorf("%w: section %d of panel %s has no id", ErrInvalidLayout, j, p.ID)
			}
			if seen[s.ID] {
				return fmt.Errorf("%w: duplicate id %s", ErrInvalidLayout, s.ID)
			}
			seen[s.ID] = true
		}
	}
	return nil
}
