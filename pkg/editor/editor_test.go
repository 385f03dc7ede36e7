package editor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dshills/pagebuilder/pkg/agent"
	"github.com/dshills/pagebuilder/pkg/document"
	"github.com/dshills/pagebuilder/pkg/geometry"
	"github.com/dshills/pagebuilder/pkg/history"
	"github.com/dshills/pagebuilder/pkg/storage"
	"github.com/dshills/pagebuilder/pkg/tree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEditor(t *testing.T, opts Options) *Editor {
	t.Helper()
	e, err := New(opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close(context.Background()) })
	return e
}

func addNode(t *testing.T, e *Editor, kind, parent string) string {
	t.Helper()
	var id string
	require.NoError(t, e.Edit(func(tx *tree.Tx) error {
		var err error
		id, err = tx.Add(tree.NodeSpec{Kind: kind, ParentID: parent})
		return err
	}))
	return id
}

func TestEditor_UndoRedo(t *testing.T) {
	e := newEditor(t, Options{Name: "Home"})
	assert.False(t, e.CanUndo())

	card := addNode(t, e, "card", "")
	addNode(t, e, "text", card)
	assert.Equal(t, 2, e.Store().Len())

	require.NoError(t, e.Undo())
	assert.Equal(t, 1, e.Store().Len())
	require.NoError(t, e.Undo())
	assert.Equal(t, 0, e.Store().Len())
	assert.ErrorIs(t, e.Undo(), history.ErrNothingToUndo)

	require.NoError(t, e.Redo())
	require.NoError(t, e.Redo())
	assert.Equal(t, 2, e.Store().Len())
	assert.ErrorIs(t, e.Redo(), history.ErrNothingToRedo)
}

func TestEditor_NoOpEditsAreNotRecorded(t *testing.T) {
	e := newEditor(t, Options{})
	require.NoError(t, e.Edit(func(tx *tree.Tx) error {
		tx.Update("missing", map[string]interface{}{"a": 1})
		return nil
	}))
	assert.False(t, e.CanUndo())

	res, err := e.ApplyActions([]agent.Action{{Type: agent.ActionRemove, TargetID: "ghost"}})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Applied)
	assert.False(t, e.CanUndo())
}

func TestEditor_ApplyActionsIsOneStep(t *testing.T) {
	e := newEditor(t, Options{})
	res, err := e.ApplyActions([]agent.Action{
		{Type: agent.ActionAdd, Kind: "card"},
		{Type: agent.ActionAdd, Kind: "text", ParentID: agent.TargetLast},
		{Type: agent.ActionAdd, Kind: "button"},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Applied)
	assert.Equal(t, 3, e.Store().Len())

	require.NoError(t, e.Undo())
	assert.Equal(t, 0, e.Store().Len())
}

func TestEditor_SelectionDrivesAgentTargets(t *testing.T) {
	e := newEditor(t, Options{})
	card := addNode(t, e, "card", "")
	addNode(t, e, "button", "")
	require.True(t, e.Selection().Select(card))

	res, err := e.ApplyActions([]agent.Action{
		{Type: agent.ActionUpdate, TargetID: agent.TargetSelected, Properties: map[string]interface{}{"title": "Plans"}},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Applied)
	n, _ := e.Store().Get(card)
	assert.Equal(t, "Plans", n.Properties["title"])

	// undoing the add clears a selection that no longer exists
	require.NoError(t, e.Undo())
	require.NoError(t, e.Undo())
	require.NoError(t, e.Undo())
	assert.Equal(t, "", e.Selection().Selected())
}

func TestEditor_RunAgentCheckpointsOnReply(t *testing.T) {
	var e *Editor
	suggester := agent.SuggesterFunc(func(_ context.Context, req agent.Request) (string, error) {
		// the user keeps editing while the model works
		addNode(t, e, "button", "")
		return `{"explanation":"Added a card","actions":[{"type":"add","kind":"card"}]}`, nil
	})
	e = newEditor(t, Options{Suggester: suggester})

	out, err := e.RunAgent(context.Background(), "add a card", nil)
	require.NoError(t, err)
	assert.Equal(t, "Added a card", out.Explanation)
	assert.Equal(t, 2, e.Store().Len())

	require.NoError(t, e.Undo())
	roots := e.Store().Roots()
	require.Len(t, roots, 1)
	assert.Equal(t, "button", roots[0].Kind, "only the agent batch is undone")
}

func TestEditor_RunAgentErrors(t *testing.T) {
	e := newEditor(t, Options{})
	_, err := e.RunAgent(context.Background(), "x", nil)
	assert.ErrorIs(t, err, agent.ErrNoSuggester)

	boom := errors.New("offline")
	e2 := newEditor(t, Options{Suggester: agent.SuggesterFunc(func(context.Context, agent.Request) (string, error) {
		return "", boom
	})})
	_, err = e2.RunAgent(context.Background(), "x", nil)
	assert.ErrorIs(t, err, boom)
	assert.False(t, e2.CanUndo())
}

func TestEditor_DragIsOneStep(t *testing.T) {
	e := newEditor(t, Options{DragThreshold: 10})
	card := addNode(t, e, "card", "")
	e.History().Clear()

	// below the threshold nothing happens and nothing is recorded
	require.True(t, e.StartDrag(card, geometry.NewPosition(0, 0)))
	e.DragOver("canvas")
	_, err := e.EndDrag(geometry.NewPosition(3, 3))
	require.NoError(t, err)
	assert.False(t, e.CanUndo())

	require.True(t, e.StartDrag(card, geometry.NewPosition(0, 0)))
	e.DragOver("canvas")
	out, err := e.EndDrag(geometry.NewPosition(40, 40))
	require.NoError(t, err)
	assert.Equal(t, "move", string(out.Kind))
	assert.True(t, e.CanUndo())

	require.NoError(t, e.Undo())
	n, _ := e.Store().Get(card)
	assert.Equal(t, geometry.NewPosition(100, 100), n.Geometry.Position())

	e.CancelDrag()
	_, err = e.EndDrag(geometry.NewPosition(0, 0))
	assert.Error(t, err)
}

func TestEditor_KeyboardReorder(t *testing.T) {
	e := newEditor(t, Options{})
	a := addNode(t, e, "section", "")
	b := addNode(t, e, "section", "")
	e.History().Clear()

	require.True(t, e.KeyboardReorder(a, 1))
	assert.Equal(t, b, e.Store().Roots()[0].ID)
	assert.False(t, e.KeyboardReorder(a, 1))

	require.NoError(t, e.Undo())
	assert.Equal(t, a, e.Store().Roots()[0].ID)
}

func TestEditor_AutoSave(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemoryKV()
	pages := document.Pages(kv)
	clock := document.NewManualScheduler()

	e := newEditor(t, Options{Name: "Landing", Pages: pages, Scheduler: clock})
	id := e.Page().ID

	addNode(t, e, "card", "")
	addNode(t, e, "text", "")
	_, ok := pages.Load(ctx, id)
	assert.False(t, ok, "nothing saved inside the quiet period")

	clock.Advance(document.DefaultAutoSaveDelay)
	saved, ok := pages.Load(ctx, id)
	require.True(t, ok)
	assert.Equal(t, "Landing", saved.Name)
	assert.Equal(t, 2, saved.Count())

	require.NoError(t, e.Undo())
	require.NoError(t, e.Close(ctx))
	saved, ok = pages.Load(ctx, id)
	require.True(t, ok)
	assert.Equal(t, 1, saved.Count(), "close flushes the pending save")

	assert.ErrorIs(t, e.Undo(), ErrClosed)
	_, err := e.ApplyActions(nil)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestEditor_ReopenSavedPage(t *testing.T) {
	ctx := context.Background()
	pages := document.Pages(storage.NewMemoryKV())

	first := newEditor(t, Options{Name: "Docs", Pages: pages})
	card := addNode(t, first, "card", "")
	first.Rename("Docs v2")
	require.NoError(t, first.Save(ctx))

	page, ok := pages.Load(ctx, first.Page().ID)
	require.True(t, ok)
	assert.Equal(t, "Docs v2", page.Name)

	second := newEditor(t, Options{Page: page, Pages: pages})
	assert.True(t, second.Store().Has(card))
	assert.False(t, second.CanUndo())

	_, err := New(Options{Page: &document.Page{Nodes: []*tree.Node{{ID: "", Kind: "card"}}}})
	assert.ErrorIs(t, err, tree.ErrInvalidForest)
}

func TestEditor_SaveErrorsAreReported(t *testing.T) {
	kv := storage.NewMemoryKV()
	require.NoError(t, kv.Close())
	clock := document.NewManualScheduler()

	var reported []error
	e := newEditor(t, Options{
		Pages:       document.Pages(kv),
		Scheduler:   clock,
		OnSaveError: func(err error) { reported = append(reported, err) },
	})

	addNode(t, e, "card", "")
	clock.Advance(time.Second)
	require.Len(t, reported, 1)
	assert.ErrorIs(t, reported[0], storage.ErrClosed)
	assert.Equal(t, 1, e.Store().Len(), "editing continues after a failed save")
}

type countingKV struct {
	storage.KV
	saves int
}

func (c *countingKV) Save(ctx context.Context, key string, value []byte) error {
	c.saves++
	return c.KV.Save(ctx, key, value)
}

func TestEditor_SaveWritesOnce(t *testing.T) {
	ctx := context.Background()
	kv := &countingKV{KV: storage.NewMemoryKV()}
	clock := document.NewManualScheduler()
	e := newEditor(t, Options{Name: "Once", Pages: document.Pages(kv), Scheduler: clock})

	addNode(t, e, "card", "")
	require.NoError(t, e.Save(ctx))
	assert.Equal(t, 1, kv.saves, "pending save is flushed, not repeated")
	assert.Equal(t, 0, clock.Pending())

	require.NoError(t, e.Save(ctx))
	assert.Equal(t, 2, kv.saves, "explicit save without pending changes still writes")
}
