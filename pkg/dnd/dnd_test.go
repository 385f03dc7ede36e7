package dnd

import (
	"encoding/json"
	"testing"

	"github.com/dshills/pagebuilder/pkg/catalog"
	"github.com/dshills/pagebuilder/pkg/geometry"
	"github.com/dshills/pagebuilder/pkg/tree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pt(x, y float64) geometry.Position {
	return geometry.NewPosition(x, y)
}

func add(t *testing.T, s *tree.Store, kind, parent string, at *geometry.Position) string {
	t.Helper()
	id, err := s.Add(tree.NodeSpec{Kind: kind, ParentID: parent, Position: at})
	require.NoError(t, err)
	return id
}

func snapshot(t *testing.T, s *tree.Store) string {
	t.Helper()
	data, err := json.Marshal(s.Export())
	require.NoError(t, err)
	return string(data)
}

func rootIDs(s *tree.Store) []string {
	var ids []string
	for _, n := range s.Roots() {
		ids = append(ids, n.ID)
	}
	return ids
}

func TestReconciler_NoOpGestures(t *testing.T) {
	s := tree.New(catalog.Default())
	card := add(t, s, "card", "", nil)
	r := New(s)
	before := snapshot(t, s)

	t.Run("below threshold", func(t *testing.T) {
		require.True(t, r.Start(card, pt(110, 110)))
		r.Over(CanvasID)
		out, err := r.End(pt(113, 111))
		require.NoError(t, err)
		assert.Equal(t, OutcomeNone, out.Kind)
	})

	t.Run("no target", func(t *testing.T) {
		r.Start(card, pt(110, 110))
		out, err := r.End(pt(300, 300))
		require.NoError(t, err)
		assert.Equal(t, OutcomeNone, out.Kind)
	})

	t.Run("target cleared", func(t *testing.T) {
		r.Start(card, pt(110, 110))
		r.Over(CanvasID)
		r.Over("")
		out, err := r.End(pt(300, 300))
		require.NoError(t, err)
		assert.Equal(t, OutcomeNone, out.Kind)
	})

	t.Run("cancelled", func(t *testing.T) {
		r.Start(card, pt(110, 110))
		r.Over(CanvasID)
		r.Cancel()
		assert.False(t, r.Dragging())
		out, err := r.End(pt(300, 300))
		assert.ErrorIs(t, err, ErrNoDrag)
		assert.Equal(t, OutcomeNone, out.Kind)
	})

	t.Run("unknown node", func(t *testing.T) {
		assert.False(t, r.Start("ghost", pt(0, 0)))
	})

	assert.Equal(t, before, snapshot(t, s))
}

func TestReconciler_MoveOnCanvas(t *testing.T) {
	s := tree.New(catalog.Default())
	card := add(t, s, "card", "", nil)
	r := New(s)

	var planned []Outcome
	r.OnBeforeCommit(func(o Outcome) { planned = append(planned, o) })

	r.Start(card, pt(110, 110))
	r.Over(CanvasID)
	out, err := r.End(pt(160, 90))
	require.NoError(t, err)
	assert.Equal(t, OutcomeMove, out.Kind)
	assert.Equal(t, pt(150, 80), out.Position)
	require.Len(t, planned, 1)

	n, _ := s.Get(card)
	assert.Equal(t, pt(150, 80), n.Geometry.Position())

	r.Start(card, pt(0, 0))
	r.Over(card)
	_, err = r.End(pt(-500, -10))
	require.NoError(t, err)
	n, _ = s.Get(card)
	assert.Equal(t, pt(0, 70), n.Geometry.Position(), "clamped to non-negative")
}

func TestReconciler_LockedNodeDoesNotMove(t *testing.T) {
	s := tree.New(catalog.Default())
	card := add(t, s, "card", "", nil)
	s.SetLocked(card, true)
	before := snapshot(t, s)

	r := New(s)
	r.Start(card, pt(0, 0))
	r.Over(CanvasID)
	out, err := r.End(pt(50, 50))
	require.NoError(t, err)
	assert.Equal(t, OutcomeNone, out.Kind)
	assert.Equal(t, before, snapshot(t, s))
}

func TestReconciler_ReorderSiblings(t *testing.T) {
	s := tree.New(catalog.Default())
	s1 := add(t, s, "section", "", nil)
	s2 := add(t, s, "section", "", nil)
	s3 := add(t, s, "section", "", nil)
	r := New(s)

	r.Start(s3, pt(0, 300))
	r.Over(s1)
	out, err := r.End(pt(0, 10))
	require.NoError(t, err)
	assert.Equal(t, OutcomeReorder, out.Kind)
	assert.Equal(t, []string{s3, s1, s2}, rootIDs(s))
}

func TestReconciler_ReparentIntoContainer(t *testing.T) {
	s := tree.New(catalog.Default())
	box := add(t, s, "container", "", &geometry.Position{X: 200, Y: 200})
	text := add(t, s, "text", "", &geometry.Position{X: 250, Y: 260})
	r := New(s)

	r.Start(text, pt(250, 260))
	r.Over(box)
	out, err := r.End(pt(260, 270))
	require.NoError(t, err)
	assert.Equal(t, OutcomeReparent, out.Kind)

	n, _ := s.Get(text)
	assert.Equal(t, box, n.ParentID)
	assert.Equal(t, pt(60, 70), n.Geometry.Position())

	origin, _ := s.Origin(text)
	assert.Equal(t, pt(260, 270), origin, "document position follows the pointer")
}

func TestReconciler_ReparentNextToLeaf(t *testing.T) {
	s := tree.New(catalog.Default())
	card := add(t, s, "card", "", nil)
	add(t, s, "text", card, nil)
	add(t, s, "text", card, nil)
	button := add(t, s, "button", "", nil)
	r := New(s)

	first, _ := s.Get(card)
	r.Start(button, pt(0, 0))
	r.Over(first.Children[1].ID)
	out, err := r.End(pt(20, 20))
	require.NoError(t, err)
	assert.Equal(t, OutcomeReparent, out.Kind)

	parent, index, ok := s.Locate(button)
	require.True(t, ok)
	assert.Equal(t, card, parent)
	assert.Equal(t, 1, index)
}

func TestReconciler_ReparentBackToCanvas(t *testing.T) {
	s := tree.New(catalog.Default())
	card := add(t, s, "card", "", nil)
	text := add(t, s, "text", card, &geometry.Position{X: 10, Y: 10})
	r := New(s)

	r.Start(text, pt(110, 110))
	r.Over(CanvasID)
	out, err := r.End(pt(600, 600))
	require.NoError(t, err)
	assert.Equal(t, OutcomeReparent, out.Kind)

	n, _ := s.Get(text)
	assert.True(t, n.IsRoot())
	assert.Equal(t, pt(600, 600), n.Geometry.Position())
}

func TestReconciler_DropIntoOwnDescendantIsNoOp(t *testing.T) {
	s := tree.New(catalog.Default())
	outer := add(t, s, "container", "", nil)
	inner := add(t, s, "container", outer, nil)
	before := snapshot(t, s)
	r := New(s)

	r.Start(outer, pt(0, 0))
	r.Over(inner)
	out, err := r.End(pt(50, 50))
	assert.ErrorIs(t, err, tree.ErrCycle)
	assert.Equal(t, OutcomeNone, out.Kind)
	assert.Equal(t, before, snapshot(t, s))
}

func TestReconciler_KeyboardReorder(t *testing.T) {
	s := tree.New(catalog.Default())
	s1 := add(t, s, "section", "", nil)
	s2 := add(t, s, "section", "", nil)
	s3 := add(t, s, "section", "", nil)
	r := New(s)

	require.True(t, r.KeyboardReorder(s1, 1))
	assert.Equal(t, []string{s2, s1, s3}, rootIDs(s))

	require.True(t, r.KeyboardReorder(s3, -2))
	assert.Equal(t, []string{s3, s2, s1}, rootIDs(s))

	assert.False(t, r.KeyboardReorder(s3, -1))
	assert.False(t, r.KeyboardReorder(s1, 1))
	assert.False(t, r.KeyboardReorder(s1, 0))
	assert.False(t, r.KeyboardReorder("ghost", 1))
}

func TestReconciler_Threshold(t *testing.T) {
	s := tree.New(catalog.Default())
	card := add(t, s, "card", "", nil)
	r := New(s, WithThreshold(20))

	r.Start(card, pt(0, 0))
	r.Over(CanvasID)
	out, err := r.End(pt(12, 12))
	require.NoError(t, err)
	assert.Equal(t, OutcomeNone, out.Kind)
}
