package tree

import "time"

// EventType categorizes store mutations
type EventType string

const (
	EventNodeAdded      EventType = "node.added"
	EventNodeUpdated    EventType = "node.updated"
	EventNodeMoved      EventType = "node.moved"
	EventNodeResized    EventType = "node.resized"
	EventNodeVisibility EventType = "node.visibility"
	EventNodeLocked     EventType = "node.locked"
	EventNodeZOrder     EventType = "node.zorder"
	// EventNodeRemoved carries every removed id in RemovedIDs
	EventNodeRemoved    EventType = "node.removed"
	EventNodeReordered  EventType = "node.reordered"
	EventNodeReparented EventType = "node.reparented"
	EventTreeRestored   EventType = "tree.restored"
	EventTreeReset      EventType = "tree.reset"
)

// Event describes one applied mutation
type Event struct {
	Type       EventType
	NodeID     string
	ParentID   string
	RemovedIDs []string
	// Version is the store version after this mutation
	Version   uint64
	Timestamp time.Time
}

// Listener receives events after the store lock has been released
type Listener func(Event)
