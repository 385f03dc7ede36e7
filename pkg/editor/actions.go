package editor

import (
	"context"

	"github.com/dshills/pagebuilder/pkg/agent"
	"github.com/dshills/pagebuilder/pkg/dnd"
	"github.com/dshills/pagebuilder/pkg/geometry"
	"github.com/dshills/pagebuilder/pkg/tree"
)

// Checkpoint records the current tree as an undo step
func (e *Editor) Checkpoint() error {
	return e.history.Record(e.store.Export())
}

func (e *Editor) record(before []*tree.Node) {
	if err := e.history.Record(before); err != nil {
		e.logger.Warn().Err(err).Msg("failed to record undo step")
	}
}

// tracked runs fn and records the prior tree if fn changed anything
func (e *Editor) tracked(fn func()) {
	before := e.store.Export()
	version := e.store.Version()
	fn()
	if e.store.Version() != version {
		e.record(before)
	}
}

// Edit runs fn as one store batch and one undo step
func (e *Editor) Edit(fn func(tx *tree.Tx) error) error {
	if err := e.checkOpen(); err != nil {
		return err
	}
	var err error
	e.tracked(func() { err = e.store.Batch(fn) })
	return err
}

// Undo restores the tree before the last recorded step
func (e *Editor) Undo() error {
	return e.step(e.history.Undo)
}

// Redo reapplies the last undone step
func (e *Editor) Redo() error {
	return e.step(e.history.Redo)
}

func (e *Editor) step(fn func([]*tree.Node) ([]*tree.Node, error)) error {
	if err := e.checkOpen(); err != nil {
		return err
	}
	nodes, err := fn(e.store.Export())
	if err != nil {
		return err
	}
	return e.store.Restore(nodes)
}

// CanUndo reports whether Undo has a step to restore
func (e *Editor) CanUndo() bool { return e.history.CanUndo() }

// CanRedo reports whether Redo has a step to reapply
func (e *Editor) CanRedo() bool { return e.history.CanRedo() }

// ApplyActions applies a batch as one undo step
func (e *Editor) ApplyActions(actions []agent.Action) (agent.Result, error) {
	if err := e.checkOpen(); err != nil {
		return agent.Result{}, err
	}
	var res agent.Result
	e.tracked(func() { res = e.applier.Apply(actions) })
	return res, nil
}

func (e *Editor) captureRun() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pendingRun = &snapshot{nodes: e.store.Export(), version: e.store.Version()}
}

// RunAgent sends instruction to the suggester and applies the reply. The
// undo step is taken when the reply arrives, so edits made while waiting
// are not folded into it.
func (e *Editor) RunAgent(ctx context.Context, instruction string, attachments []agent.Attachment) (*agent.Outcome, error) {
	if err := e.checkOpen(); err != nil {
		return nil, err
	}
	out, err := e.session.Run(ctx, instruction, attachments)

	e.mu.Lock()
	before := e.pendingRun
	e.pendingRun = nil
	e.mu.Unlock()

	if err != nil {
		return nil, err
	}
	if before != nil && e.store.Version() != before.version {
		e.record(before.nodes)
	}
	return out, nil
}

func (e *Editor) captureDrag(dnd.Outcome) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pendingDrag = e.store.Export()
}

// StartDrag begins a pointer gesture on id
func (e *Editor) StartDrag(id string, pointer geometry.Position) bool {
	if e.checkOpen() != nil {
		return false
	}
	return e.reconciler.Start(id, pointer)
}

// DragOver records the drop target under the pointer
func (e *Editor) DragOver(targetID string) {
	e.reconciler.Over(targetID)
}

// CancelDrag abandons the gesture
func (e *Editor) CancelDrag() {
	e.reconciler.Cancel()
}

// EndDrag commits the gesture as one undo step
func (e *Editor) EndDrag(pointer geometry.Position) (dnd.Outcome, error) {
	version := e.store.Version()
	out, err := e.reconciler.End(pointer)

	e.mu.Lock()
	before := e.pendingDrag
	e.pendingDrag = nil
	e.mu.Unlock()

	if before != nil && e.store.Version() != version {
		e.record(before)
	}
	return out, err
}

// KeyboardReorder moves id delta places among its siblings as one undo step
func (e *Editor) KeyboardReorder(id string, delta int) bool {
	if e.checkOpen() != nil {
		return false
	}
	var moved bool
	e.tracked(func() { moved = e.reconciler.KeyboardReorder(id, delta) })
	return moved
}
