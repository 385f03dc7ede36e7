package geometry

import (
	"math"
)

// Mode selects how a node's geometry is interpreted
type Mode string

const (
	// ModeAbsolute places a node at X/Y inside its parent's content box (free-form canvas)
	ModeAbsolute Mode = "absolute"
	// ModeRelative places a node in its container's flow; X/Y are ignored
	ModeRelative Mode = "relative"
)

// Valid reports whether m is a known mode
func (m Mode) Valid() bool {
	return m == ModeAbsolute || m == ModeRelative
}

// Position represents a coordinate in pixels
type Position struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// NewPosition creates a new position
func NewPosition(x, y float64) Position {
	return Position{X: x, Y: y}
}

// Add returns p translated by (dx, dy)
func (p Position) Add(dx, dy float64) Position {
	return Position{X: p.X + dx, Y: p.Y + dy}
}

// Distance returns the euclidean distance between p and other
func (p Position) Distance(other Position) float64 {
	return math.Hypot(other.X-p.X, other.Y-p.Y)
}

// Size represents the dimensions of a node
type Size struct {
	Width  Dimension `json:"width" yaml:"width"`
	Height Dimension `json:"height" yaml:"height"`
}

// NewSize creates a fixed pixel size
func NewSize(width, height float64) Size {
	return Size{Width: Px(width), Height: Px(height)}
}

// Geometry is the placement of a node. Absolute geometry is always relative to
// the immediate parent's content box, never to the document root.
type Geometry struct {
	Mode   Mode      `json:"mode" yaml:"mode"`
	X      float64   `json:"x,omitempty" yaml:"x,omitempty"`
	Y      float64   `json:"y,omitempty" yaml:"y,omitempty"`
	Width  Dimension `json:"width" yaml:"width"`
	Height Dimension `json:"height" yaml:"height"`
}

// Absolute creates an absolute geometry
func Absolute(x, y, width, height float64) Geometry {
	return Geometry{Mode: ModeAbsolute, X: x, Y: y, Width: Px(width), Height: Px(height)}
}

// Relative creates a container-relative geometry
func Relative(width, height Dimension) Geometry {
	return Geometry{Mode: ModeRelative, Width: width, Height: height}
}

// IsAbsolute reports whether the geometry is free-form
func (g Geometry) IsAbsolute() bool {
	return g.Mode == ModeAbsolute
}

// Position returns the X/Y pair
func (g Geometry) Position() Position {
	return Position{X: g.X, Y: g.Y}
}

// Size returns the width/height pair
func (g Geometry) Size() Size {
	return Size{Width: g.Width, Height: g.Height}
}

// WithPosition returns a copy of g at p
func (g Geometry) WithPosition(p Position) Geometry {
	g.X, g.Y = p.X, p.Y
	return g
}

// WithSize returns a copy of g with size s
func (g Geometry) WithSize(s Size) Geometry {
	g.Width, g.Height = s.Width, s.Height
	return g
}

// IsFinite reports whether both coordinates are real numbers
func (p Position) IsFinite() bool {
	return finite(p.X) && finite(p.Y)
}

// IsFinite reports whether neither dimension is NaN or infinite
func (s Size) IsFinite() bool {
	return s.Width.IsFinite() && s.Height.IsFinite()
}

// IsFinite reports whether the position and size are finite
func (g Geometry) IsFinite() bool {
	return g.Position().IsFinite() && g.Size().IsFinite()
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// ClampPosition clamps coordinates to be non-negative
func ClampPosition(p Position) Position {
	return Position{X: math.Max(0, p.X), Y: math.Max(0, p.Y)}
}

// AbsoluteOrigin returns the document-space origin of the last geometry in
// chain, where chain runs from a root down to the node itself. Relative
// geometries contribute no offset.
func AbsoluteOrigin(chain []Geometry) Position {
	var origin Position
	for _, g := range chain {
		if g.IsAbsolute() {
			origin = origin.Add(g.X, g.Y)
		}
	}
	return origin
}
