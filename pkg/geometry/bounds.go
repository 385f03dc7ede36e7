package geometry

import "math"

// DefaultMinWidth and DefaultMinHeight are the floor for canvas nodes
const (
	DefaultMinWidth  = 50
	DefaultMinHeight = 30
)

// Bounds limits interactive resizing. A zero maximum means unbounded.
type Bounds struct {
	MinWidth  float64 `json:"minWidth" yaml:"min_width"`
	MinHeight float64 `json:"minHeight" yaml:"min_height"`
	MaxWidth  float64 `json:"maxWidth,omitempty" yaml:"max_width,omitempty"`
	MaxHeight float64 `json:"maxHeight,omitempty" yaml:"max_height,omitempty"`
}

// DefaultBounds returns the canvas floor with no maximum
func DefaultBounds() Bounds {
	return Bounds{MinWidth: DefaultMinWidth, MinHeight: DefaultMinHeight}
}

// Merge returns the tighter of b and other on every edge
func (b Bounds) Merge(other Bounds) Bounds {
	return Bounds{
		MinWidth:  math.Max(b.MinWidth, other.MinWidth),
		MinHeight: math.Max(b.MinHeight, other.MinHeight),
		MaxWidth:  tighterMax(b.MaxWidth, other.MaxWidth),
		MaxHeight: tighterMax(b.MaxHeight, other.MaxHeight),
	}
}

// Clamp keeps fixed dimensions inside the bounds; Auto passes through
func (b Bounds) Clamp(s Size) Size {
	return Size{
		Width:  clampDimension(s.Width, b.MinWidth, b.MaxWidth),
		Height: clampDimension(s.Height, b.MinHeight, b.MaxHeight),
	}
}

// ClampValue clamps a single fixed width/height pair
func (b Bounds) ClampValue(width, height float64) (float64, float64) {
	s := b.Clamp(NewSize(width, height))
	return s.Width.Value, s.Height.Value
}

func clampDimension(d Dimension, lo, hi float64) Dimension {
	if d.Auto {
		return d
	}
	v := math.Max(d.Value, lo)
	if hi > 0 && hi >= lo {
		v = math.Min(v, hi)
	}
	return Px(v)
}

func tighterMax(a, b float64) float64 {
	switch {
	case a == 0:
		return b
	case b == 0:
		return a
	default:
		return math.Min(a, b)
	}
}
