package geometry

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const autoToken = "auto"

// Dimension is a width or height: either a fixed pixel value or Auto
// (fill the container / size to content).
type Dimension struct {
	Value float64
	Auto  bool
}

// Auto is the fill/auto sentinel
var Auto = Dimension{Auto: true}

// Px creates a fixed dimension
func Px(v float64) Dimension {
	return Dimension{Value: v}
}

// IsAuto reports whether d is the auto sentinel
func (d Dimension) IsAuto() bool {
	return d.Auto
}

// IsFinite reports whether d is auto or a real pixel value
func (d Dimension) IsFinite() bool {
	return d.Auto || finite(d.Value)
}

// String returns "auto" or the pixel value
func (d Dimension) String() string {
	if d.Auto {
		return autoToken
	}
	return strconv.FormatFloat(d.Value, 'f', -1, 64)
}

// ParseDimension parses "auto", "fill" or a number with an optional "px" suffix
func ParseDimension(s string) (Dimension, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	switch s {
	case autoToken, "fill":
		return Auto, nil
	case "":
		return Dimension{}, fmt.Errorf("empty dimension")
	}

	v, err := strconv.ParseFloat(strings.TrimSuffix(s, "px"), 64)
	if err != nil {
		return Dimension{}, fmt.Errorf("invalid dimension %q", s)
	}
	return Px(v), nil
}

// MarshalJSON encodes a number, or the string "auto"
func (d Dimension) MarshalJSON() ([]byte, error) {
	if d.Auto {
		return json.Marshal(autoToken)
	}
	return json.Marshal(d.Value)
}

// UnmarshalJSON accepts a number or a string dimension
func (d *Dimension) UnmarshalJSON(data []byte) error {
	var v float64
	if err := json.Unmarshal(data, &v); err == nil {
		*d = Px(v)
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("dimension must be a number or string: %w", err)
	}
	parsed, err := ParseDimension(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// MarshalYAML encodes a number, or the string "auto"
func (d Dimension) MarshalYAML() (interface{}, error) {
	if d.Auto {
		return autoToken, nil
	}
	return d.Value, nil
}

// UnmarshalYAML accepts a scalar number or string dimension
func (d *Dimension) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: dimension must be a scalar", value.Line)
	}
	parsed, err := ParseDimension(value.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", value.Line, err)
	}
	*d = parsed
	return nil
}
