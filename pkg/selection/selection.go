package selection

import (
	"sync"

	"github.com/dshills/pagebuilder/pkg/tree"
)

// Mode is the editing surface state
type Mode string

const (
	ModeEdit    Mode = "edit"
	ModePreview Mode = "preview"
)

// Source is the part of the node store the controller reads
type Source interface {
	Has(id string) bool
	Subscribe(fn tree.Listener) func()
}

// Controller tracks the selected node and the edit/preview mode. Entering
// preview clears the selection; returning to edit does not restore it.
type Controller struct {
	mu          sync.Mutex
	source      Source
	mode        Mode
	selected    string
	onChange    []func(selected string, mode Mode)
	unsubscribe func()
}

// New creates a controller in edit mode listening to source
func New(source Source) *Controller {
	c := &Controller{
		source: source,
		mode:   ModeEdit,
	}
	c.unsubscribe = source.Subscribe(c.handle)
	return c
}

// OnChange registers fn to run whenever the selection or mode changes
func (c *Controller) OnChange(fn func(selected string, mode Mode)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onChange = append(c.onChange, fn)
}

// Mode returns the current mode
func (c *Controller) Mode() Mode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

// SetMode switches between edit and preview
func (c *Controller) SetMode(mode Mode) {
	c.update(func() bool {
		if (mode != ModeEdit && mode != ModePreview) || mode == c.mode {
			return false
		}
		c.mode = mode
		if mode == ModePreview {
			c.selected = ""
		}
		return true
	})
}

// Toggle flips the mode
func (c *Controller) Toggle() {
	if c.Mode() == ModeEdit {
		c.SetMode(ModePreview)
		return
	}
	c.SetMode(ModeEdit)
}

// Select marks id as selected. Ids the store does not know yet are held as a
// pending reference until the next read. Ignored in preview mode.
func (c *Controller) Select(id string) bool {
	var accepted bool
	c.update(func() bool {
		if c.mode == ModePreview {
			return false
		}
		accepted = true
		if c.selected == id {
			return false
		}
		c.selected = id
		return true
	})
	return accepted
}

// Clear drops the selection
func (c *Controller) Clear() {
	c.Select("")
}

// Selected returns the selected id, or "" if nothing valid is selected.
// A stale reference is cleared on read.
func (c *Controller) Selected() string {
	c.mu.Lock()
	id := c.selected
	c.mu.Unlock()
	if id == "" || c.source.Has(id) {
		return id
	}

	c.update(func() bool {
		if c.selected != id {
			return false
		}
		c.selected = ""
		return true
	})
	return ""
}

// IsSelected reports whether id is the current valid selection
func (c *Controller) IsSelected(id string) bool {
	return id != "" && c.Selected() == id
}

// Close stops listening to the store
func (c *Controller) Close() {
	if c.unsubscribe != nil {
		c.unsubscribe()
	}
}

func (c *Controller) handle(ev tree.Event) {
	switch ev.Type {
	case tree.EventNodeRemoved:
		c.update(func() bool {
			for _, id := range ev.RemovedIDs {
				if id == c.selected {
					c.selected = ""
					return true
				}
			}
			return false
		})
	case tree.EventTreeReset, tree.EventTreeRestored:
		c.Selected()
	}
}

// update applies fn under the lock and notifies listeners if it reports a change
func (c *Controller) update(fn func() bool) {
	c.mu.Lock()
	changed := fn()
	selected, mode := c.selected, c.mode
	listeners := append([]func(string, Mode){}, c.onChange...)
	c.mu.Unlock()

	if !changed {
		return
	}
	for _, l := range listeners {
		l(selected, mode)
	}
}
