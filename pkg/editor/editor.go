// Package editor wires the node store, selection, agent applier, drag
// reconciler, undo history and auto-save for one page document. Create it
// with New and release it with Close.
package editor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dshills/pagebuilder/pkg/agent"
	"github.com/dshills/pagebuilder/pkg/catalog"
	"github.com/dshills/pagebuilder/pkg/dnd"
	"github.com/dshills/pagebuilder/pkg/document"
	"github.com/dshills/pagebuilder/pkg/geometry"
	"github.com/dshills/pagebuilder/pkg/history"
	"github.com/dshills/pagebuilder/pkg/selection"
	"github.com/dshills/pagebuilder/pkg/tree"
	"github.com/rs/zerolog"
)

// ErrClosed is returned by operations on a closed editor
var ErrClosed = errors.New("editor closed")

// Options configures an Editor. Zero values fall back to defaults.
type Options struct {
	// Catalog supplies node kinds. Nil means catalog.Default().
	Catalog catalog.Catalog
	// Page is the document to open. Nil starts a new page named Name.
	Page *document.Page
	Name string
	// Pages receives auto-saves. Nil disables persistence.
	Pages *document.Collection[*document.Page]
	// Suggester answers RunAgent instructions
	Suggester agent.Suggester

	MaxDepth        int
	Bounds          geometry.Bounds
	DragThreshold   float64
	HistoryCapacity int
	AutosaveDelay   time.Duration
	Scheduler       document.Scheduler
	// OnSaveError is told about failed background saves
	OnSaveError func(error)
	Logger      *zerolog.Logger
}

// Editor is one open page
type Editor struct {
	store      *tree.Store
	selection  *selection.Controller
	applier    *agent.Applier
	session    *agent.Session
	reconciler *dnd.Reconciler
	history    *history.History
	saver      *document.AutoSaver
	pages      *document.Collection[*document.Page]
	logger     zerolog.Logger

	mu          sync.Mutex
	meta        document.Meta
	pendingDrag []*tree.Node
	pendingRun  *snapshot
	closed      bool
	unsubscribe func()
}

type snapshot struct {
	nodes   []*tree.Node
	version uint64
}

// New opens an editor
func New(opts Options) (*Editor, error) {
	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	cat := opts.Catalog
	if cat == nil {
		cat = catalog.Default()
	}

	storeOpts := []tree.Option{tree.WithLogger(logger)}
	if opts.MaxDepth > 0 {
		storeOpts = append(storeOpts, tree.WithMaxDepth(opts.MaxDepth))
	}
	if opts.Bounds != (geometry.Bounds{}) {
		storeOpts = append(storeOpts, tree.WithBounds(opts.Bounds))
	}
	store := tree.New(cat, storeOpts...)

	page := opts.Page
	if page == nil {
		page = document.NewPage(opts.Name)
	}
	if err := store.Restore(page.Nodes); err != nil {
		return nil, fmt.Errorf("opening page %s: %w", page.ID, err)
	}

	e := &Editor{
		store:   store,
		history: history.New(opts.HistoryCapacity),
		pages:   opts.Pages,
		logger:  logger,
		meta:    page.Meta,
	}
	e.selection = selection.New(store)
	e.applier = agent.NewApplier(store, agent.WithSelector(e.selection), agent.WithLogger(logger))
	e.session = agent.NewSession(store, e.applier, opts.Suggester, logger)
	e.session.OnBeforeApply(e.captureRun)

	dndOpts := []dnd.Option{dnd.WithLogger(logger)}
	if opts.DragThreshold > 0 {
		dndOpts = append(dndOpts, dnd.WithThreshold(opts.DragThreshold))
	}
	e.reconciler = dnd.New(store, dndOpts...)
	e.reconciler.OnBeforeCommit(e.captureDrag)

	if e.pages != nil {
		saveOpts := []document.AutoSaveOption{
			document.WithDelay(opts.AutosaveDelay),
			document.WithSaveLogger(logger),
			document.WithOnError(opts.OnSaveError),
		}
		if opts.Scheduler != nil {
			saveOpts = append(saveOpts, document.WithScheduler(opts.Scheduler))
		}
		e.saver = document.NewAutoSaver(e.save, saveOpts...)
		e.unsubscribe = store.Subscribe(func(tree.Event) { e.saver.Notify() })
	}
	return e, nil
}

// Store returns the node store
func (e *Editor) Store() *tree.Store { return e.store }

// Selection returns the selection controller
func (e *Editor) Selection() *selection.Controller { return e.selection }

// Reconciler returns the drag reconciler. Gestures ended through it
// directly are not recorded in history; use EndDrag for that.
func (e *Editor) Reconciler() *dnd.Reconciler { return e.reconciler }

// History returns the undo history
func (e *Editor) History() *history.History { return e.history }

// Page returns the current document
func (e *Editor) Page() *document.Page {
	e.mu.Lock()
	meta := e.meta
	e.mu.Unlock()
	return &document.Page{Meta: meta, Nodes: e.store.Export()}
}

// Rename changes the document name
func (e *Editor) Rename(name string) {
	e.mu.Lock()
	e.meta.Name = name
	e.mu.Unlock()
	if e.saver != nil {
		e.saver.Notify()
	}
}

func (e *Editor) save(ctx context.Context) error {
	page := e.Page()
	if err := e.pages.Save(ctx, page); err != nil {
		return err
	}
	e.mu.Lock()
	e.meta.ID = page.ID
	e.meta.CreatedAt = page.CreatedAt
	e.meta.UpdatedAt = page.UpdatedAt
	e.mu.Unlock()
	return nil
}

// Save writes the page now, cancelling any pending auto-save
func (e *Editor) Save(ctx context.Context) error {
	if e.pages == nil {
		return nil
	}
	if err := e.checkOpen(); err != nil {
		return err
	}
	saved, err := e.saver.Flush(ctx)
	if saved || err != nil {
		return err
	}
	return e.save(ctx)
}

func (e *Editor) checkOpen() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrClosed
	}
	return nil
}

// Close flushes any pending save and detaches every listener
func (e *Editor) Close(ctx context.Context) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	e.mu.Unlock()

	e.reconciler.Cancel()
	e.selection.Close()
	if e.unsubscribe != nil {
		e.unsubscribe()
	}
	if e.saver != nil {
		return e.saver.Close(ctx)
	}
	return nil
}
