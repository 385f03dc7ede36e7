package tree

import (
	"github.com/dshills/pagebuilder/pkg/geometry"
	"github.com/google/uuid"
)

// RootID is the sentinel parent id meaning "top level of the forest"
const RootID = "root"

// Node is a single positioned, typed unit in the component forest.
// ParentID is empty for root-level nodes.
type Node struct {
	ID         string                 `json:"id" yaml:"id"`
	Kind       string                 `json:"kind" yaml:"kind"`
	Properties map[string]interface{} `json:"properties" yaml:"properties"`
	Geometry   geometry.Geometry      `json:"geometry" yaml:"geometry"`
	Visible    bool                   `json:"visible" yaml:"visible"`
	Locked     bool                   `json:"locked" yaml:"locked"`
	ZOrder     int                    `json:"zOrder" yaml:"zOrder"`
	ParentID   string                 `json:"parentId,omitempty" yaml:"parentId,omitempty"`
	Children   []*Node                `json:"children" yaml:"children"`
}

// NodeSpec describes a node to add. Nil Position/Size keep the kind defaults.
type NodeSpec struct {
	Kind       string
	ParentID   string
	Position   *geometry.Position
	Size       *geometry.Size
	Properties map[string]interface{}
}

// NewID returns a fresh node identifier
func NewID() string {
	return uuid.New().String()
}

// Clone returns a deep copy of n and its subtree
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	c := *n
	c.Properties = CopyProperties(n.Properties)
	c.Children = make([]*Node, len(n.Children))
	for i, child := range n.Children {
		c.Children[i] = child.Clone()
	}
	return &c
}

// IsRoot reports whether n sits at the top level
func (n *Node) IsRoot() bool {
	return n.ParentID == ""
}

// Count returns the number of nodes in n's subtree, n included
func (n *Node) Count() int {
	total := 1
	for _, c := range n.Children {
		total += c.Count()
	}
	return total
}

// Height returns the depth of the deepest descendant below n (0 for a leaf)
func (n *Node) Height() int {
	h := 0
	for _, c := range n.Children {
		if ch := c.Height() + 1; ch > h {
			h = ch
		}
	}
	return h
}

// CloneForest deep-copies a list of nodes
func CloneForest(nodes []*Node) []*Node {
	out := make([]*Node, len(nodes))
	for i, n := range nodes {
		out[i] = n.Clone()
	}
	return out
}

// CopyProperties deep-copies a normalized property bag. Stored properties
// only nest map[string]interface{} and []interface{}; scalars are shared.
func CopyProperties(props map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(props))
	for k, v := range props {
		out[k] = copyValue(v)
	}
	return out
}

func copyValue(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		return CopyProperties(val)
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, item := range val {
			out[i] = copyValue(item)
		}
		return out
	default:
		return v
	}
}

// Walk visits nodes depth-first in child order. Returning false from fn
// stops the walk.
func Walk(nodes []*Node, fn func(n *Node, depth int) bool) {
	walk(nodes, 0, fn)
}

func walk(nodes []*Node, depth int, fn func(n *Node, depth int) bool) bool {
	for _, n := range nodes {
		if !fn(n, depth) {
			return false
		}
		if !walk(n.Children, depth+1, fn) {
			return false
		}
	}
	return true
}

// Find returns the node with id in the forest, or nil
func Find(nodes []*Node, id string) *Node {
	var found *Node
	Walk(nodes, func(n *Node, _ int) bool {
		if n.ID == id {
			found = n
			return false
		}
		return true
	})
	return found
}
