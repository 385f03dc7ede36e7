package agent

import (
	"errors"
	"fmt"

	"github.com/dshills/pagebuilder/pkg/geometry"
)

// ActionType is the structural edit an action performs
type ActionType string

const (
	ActionAdd    ActionType = "add"
	ActionUpdate ActionType = "update"
	ActionRemove ActionType = "remove"
	ActionMove   ActionType = "move"
	ActionResize ActionType = "resize"
)

// Target placeholders resolved at apply time
const (
	TargetLast     = "$last"
	TargetSelected = "$selected"
)

// Skip reasons
var (
	ErrUnknownAction   = errors.New("unknown action type")
	ErrMalformedAction = errors.New("malformed action")
	ErrStaleTarget     = errors.New("target node does not exist")
	ErrNoTarget        = errors.New("no node to resolve target against")
	ErrNotApplied      = errors.New("node rejected the change")
)

// Action is one structural edit in a batch. TargetID may be a node id or one
// of the placeholders; empty means the node most recently added.
type Action struct {
	Type       ActionType             `json:"type"`
	Kind       string                 `json:"kind,omitempty"`
	ParentID   string                 `json:"parentId,omitempty"`
	TargetID   string                 `json:"targetId,omitempty"`
	Position   *geometry.Position     `json:"position,omitempty"`
	Size       *geometry.Size         `json:"size,omitempty"`
	Properties map[string]interface{} `json:"properties,omitempty"`
}

// String renders the action for logs
func (a Action) String() string {
	switch a.Type {
	case ActionAdd:
		return fmt.Sprintf("add %s", a.Kind)
	default:
		target := a.TargetID
		if target == "" {
			target = TargetLast
		}
		return fmt.Sprintf("%s %s", a.Type, target)
	}
}

// Skip records an action that was not applied
type Skip struct {
	Index  int
	Action Action
	Err    error
}

// Result summarises an applied batch
type Result struct {
	Applied int
	Skipped []Skip
	// Added lists ids created by add actions, in order
	Added []string
}

// Summary is the user-facing feedback line
func (r Result) Summary() string {
	return fmt.Sprintf("(%d) changes applied", r.Applied)
}
