package agent

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/dshills/pagebuilder/pkg/tree"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDescribe(t *testing.T) {
	store := newStore()
	card, err := store.Add(tree.NodeSpec{Kind: "card"})
	require.NoError(t, err)
	_, err = store.Add(tree.NodeSpec{Kind: "text", ParentID: card})
	require.NoError(t, err)
	_, err = store.Add(tree.NodeSpec{Kind: "section"})
	require.NoError(t, err)
	store.SetLocked(card, true)

	out := Describe(store.Roots())
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")

	assert.Equal(t, "- card id=n1 at (100,100) size 350x250 z=1 locked", lines[0])
	assert.Equal(t, `  title: "Card title"`, lines[1])
	assert.True(t, strings.HasPrefix(lines[2], "  - text id=n2 at (0,0) size 200x40"))
	assert.Equal(t, `    text: "Text block"`, lines[3])
	assert.Equal(t, "- section id=n3 in flow size autoxauto", lines[4])
}

func TestDescribe_Empty(t *testing.T) {
	assert.Equal(t, "(empty page)\n", Describe(nil))
}

func TestSession_Run(t *testing.T) {
	store := newStore()
	var got Request
	suggester := SuggesterFunc(func(_ context.Context, req Request) (string, error) {
		got = req
		// the store stays usable while the model works
		_, err := store.Add(tree.NodeSpec{Kind: "button"})
		require.NoError(t, err)
		return "```json\n" + `{"explanation":"Added a card","actions":[{"type":"add","kind":"card"},{"type":"remove","targetId":"gone"},{"type":"bogus"}]}` + "\n```", nil
	})

	s := NewSession(store, NewApplier(store), suggester, zerolog.Nop())
	out, err := s.Run(context.Background(), "add a card", []Attachment{{Name: "sketch.png", MediaType: "image/png"}})
	require.NoError(t, err)

	assert.Equal(t, "add a card", got.Instruction)
	assert.Equal(t, "(empty page)\n", got.Tree)
	assert.Contains(t, got.Kinds, "card")
	require.Len(t, got.Attachments, 1)

	assert.Equal(t, "Added a card", out.Explanation)
	assert.Equal(t, 1, out.Result.Applied)
	assert.Len(t, out.Result.Skipped, 1)
	assert.Len(t, out.Rejected, 1)
	assert.Equal(t, 2, store.Len())
}

func TestSession_CancelledDiscardsReply(t *testing.T) {
	store := newStore()
	ctx, cancel := context.WithCancel(context.Background())
	suggester := SuggesterFunc(func(context.Context, Request) (string, error) {
		cancel()
		return `[{"type":"add","kind":"card"}]`, nil
	})

	s := NewSession(store, NewApplier(store), suggester, zerolog.Nop())
	_, err := s.Run(ctx, "add", nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, store.Len())
}

func TestSession_Errors(t *testing.T) {
	store := newStore()
	_, err := NewSession(store, NewApplier(store), nil, zerolog.Nop()).Run(context.Background(), "x", nil)
	assert.ErrorIs(t, err, ErrNoSuggester)

	boom := errors.New("model offline")
	failing := SuggesterFunc(func(context.Context, Request) (string, error) { return "", boom })
	_, err = NewSession(store, NewApplier(store), failing, zerolog.Nop()).Run(context.Background(), "x", nil)
	assert.ErrorIs(t, err, boom)
}

func TestSession_OnBeforeApply(t *testing.T) {
	store := newStore()
	reply := `[{"type":"add","kind":"card"}]`
	suggester := SuggesterFunc(func(context.Context, Request) (string, error) { return reply, nil })

	s := NewSession(store, NewApplier(store), suggester, zerolog.Nop())
	var lens []int
	s.OnBeforeApply(func() { lens = append(lens, store.Len()) })

	_, err := s.Run(context.Background(), "add", nil)
	require.NoError(t, err)
	assert.Equal(t, []int{0}, lens, "runs before the batch touches the store")

	reply = "nothing to do"
	_, err = s.Run(context.Background(), "noop", nil)
	require.NoError(t, err)
	assert.Len(t, lens, 1, "skipped when there is nothing to apply")
}
