package agent

import (
	"fmt"

	"github.com/dshills/pagebuilder/pkg/tree"
	"github.com/rs/zerolog"
)

// Selector exposes the current selection for the $selected placeholder
type Selector interface {
	Selected() string
}

// ApplierOption configures an Applier
type ApplierOption func(*Applier)

// WithSelector enables the $selected placeholder
func WithSelector(sel Selector) ApplierOption {
	return func(a *Applier) {
		a.selector = sel
	}
}

// WithLogger sets the logger for skipped actions
func WithLogger(logger zerolog.Logger) ApplierOption {
	return func(a *Applier) {
		a.logger = logger
	}
}

// Applier replays action batches against a store. A batch runs inside a
// single store batch so no other mutation source interleaves, and every
// action is isolated: a failing action is skipped and the rest continue.
type Applier struct {
	store    *tree.Store
	selector Selector
	logger   zerolog.Logger
}

// NewApplier creates an applier for store
func NewApplier(store *tree.Store, opts ...ApplierOption) *Applier {
	a := &Applier{
		store:  store,
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// batchState tracks placeholders within one batch
type batchState struct {
	lastAdded string
	selected  string
}

// Apply runs actions in order and reports how many applied
func (a *Applier) Apply(actions []Action) Result {
	var res Result
	if len(actions) == 0 {
		return res
	}

	st := &batchState{}
	if a.selector != nil {
		// read before taking the store lock; the selector consults the store
		st.selected = a.selector.Selected()
	}

	_ = a.store.Batch(func(tx *tree.Tx) error {
		for i, action := range actions {
			addedID, err := a.applyOne(tx, st, action)
			if err != nil {
				res.Skipped = append(res.Skipped, Skip{Index: i, Action: action, Err: err})
				a.logger.Warn().Err(err).Int("index", i).Str("action", action.String()).Msg("skipping action")
				continue
			}
			if addedID != "" {
				res.Added = append(res.Added, addedID)
			}
			res.Applied++
		}
		return nil
	})

	a.logger.Debug().Int("applied", res.Applied).Int("skipped", len(res.Skipped)).Msg("action batch applied")
	return res
}

func (a *Applier) applyOne(tx *tree.Tx, st *batchState, action Action) (string, error) {
	switch action.Type {
	case ActionAdd:
		if action.Kind == "" {
			return "", fmt.Errorf("%w: add without kind", ErrMalformedAction)
		}
		parent, err := a.resolveParent(tx, st, action.ParentID)
		if err != nil {
			return "", err
		}
		id, err := tx.Add(tree.NodeSpec{
			Kind:       action.Kind,
			ParentID:   parent,
			Position:   action.Position,
			Size:       action.Size,
			Properties: action.Properties,
		})
		if err != nil {
			return "", err
		}
		st.lastAdded = id
		return id, nil

	case ActionUpdate:
		if len(action.Properties) == 0 {
			return "", fmt.Errorf("%w: update without properties", ErrMalformedAction)
		}
		return "", a.withTarget(tx, st, action, func(id string) bool { return tx.Update(id, action.Properties) })

	case ActionRemove:
		return "", a.withTarget(tx, st, action, tx.Remove)

	case ActionMove:
		if action.Position == nil {
			return "", fmt.Errorf("%w: move without position", ErrMalformedAction)
		}
		return "", a.withTarget(tx, st, action, func(id string) bool { return tx.Move(id, *action.Position) })

	case ActionResize:
		if action.Size == nil {
			return "", fmt.Errorf("%w: resize without size", ErrMalformedAction)
		}
		return "", a.withTarget(tx, st, action, func(id string) bool { return tx.Resize(id, *action.Size) })

	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownAction, action.Type)
	}
}

func (a *Applier) withTarget(tx *tree.Tx, st *batchState, action Action, fn func(id string) bool) error {
	id, err := a.resolveTarget(tx, st, action.TargetID)
	if err != nil {
		return err
	}
	if !tx.Has(id) {
		return fmt.Errorf("%w: %s", ErrStaleTarget, id)
	}
	if !fn(id) {
		return fmt.Errorf("%w: %s %s", ErrNotApplied, action.Type, id)
	}
	return nil
}

func (a *Applier) resolveTarget(tx *tree.Tx, st *batchState, target string) (string, error) {
	switch target {
	case "", TargetLast, "last":
		if st.lastAdded != "" && tx.Has(st.lastAdded) {
			return st.lastAdded, nil
		}
		if last := tx.LastAdded(); last != "" {
			return last, nil
		}
		return "", ErrNoTarget
	case TargetSelected:
		if st.selected == "" {
			return "", fmt.Errorf("%w: nothing selected", ErrNoTarget)
		}
		return st.selected, nil
	default:
		return target, nil
	}
}

func (a *Applier) resolveParent(tx *tree.Tx, st *batchState, parent string) (string, error) {
	switch parent {
	case TargetLast, TargetSelected:
		return a.resolveTarget(tx, st, parent)
	default:
		return parent, nil
	}
}
