package document

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// DefaultAutoSaveDelay is the quiet period before a pending save runs
const DefaultAutoSaveDelay = time.Second

// ErrSaverClosed is returned by Flush after Close
var ErrSaverClosed = errors.New("auto-saver closed")

// SaveFunc writes the current state
type SaveFunc func(ctx context.Context) error

// AutoSaveOption configures an AutoSaver
type AutoSaveOption func(*AutoSaver)

// WithDelay sets the quiet period
func WithDelay(d time.Duration) AutoSaveOption {
	return func(a *AutoSaver) {
		if d > 0 {
			a.delay = d
		}
	}
}

// WithScheduler replaces the wall-clock scheduler
func WithScheduler(s Scheduler) AutoSaveOption {
	return func(a *AutoSaver) {
		a.scheduler = s
	}
}

// WithSaveLogger sets the logger for failed saves
func WithSaveLogger(logger zerolog.Logger) AutoSaveOption {
	return func(a *AutoSaver) {
		a.logger = logger
	}
}

// WithOnError registers a callback for failed background saves
func WithOnError(fn func(error)) AutoSaveOption {
	return func(a *AutoSaver) {
		a.onError = fn
	}
}

// AutoSaver collapses bursts of changes into a single save that runs once
// no change has been reported for the configured delay.
type AutoSaver struct {
	save      SaveFunc
	delay     time.Duration
	scheduler Scheduler
	logger    zerolog.Logger
	onError   func(error)

	mu      sync.Mutex
	pending Timer
	gen     uint64
	closed  bool

	saveMu sync.Mutex
	saves  int
}

// NewAutoSaver creates a saver around save
func NewAutoSaver(save SaveFunc, opts ...AutoSaveOption) *AutoSaver {
	a := &AutoSaver{
		save:      save,
		delay:     DefaultAutoSaveDelay,
		scheduler: RealScheduler{},
		logger:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Notify reports a change. Any pending save is pushed back by the delay.
func (a *AutoSaver) Notify() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return
	}
	if a.pending != nil {
		a.pending.Stop()
	}
	a.gen++
	gen := a.gen
	a.pending = a.scheduler.AfterFunc(a.delay, func() { a.fire(gen) })
}

// Pending reports whether a save is scheduled
func (a *AutoSaver) Pending() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.pending != nil
}

// Saves returns how many saves have run
func (a *AutoSaver) Saves() int {
	a.saveMu.Lock()
	defer a.saveMu.Unlock()
	return a.saves
}

func (a *AutoSaver) fire(gen uint64) {
	a.mu.Lock()
	if gen != a.gen || a.pending == nil {
		a.mu.Unlock()
		return
	}
	a.pending = nil
	a.mu.Unlock()

	if err := a.run(context.Background()); err != nil {
		a.logger.Warn().Err(err).Msg("auto-save failed")
		if a.onError != nil {
			a.onError(err)
		}
	}
}

func (a *AutoSaver) run(ctx context.Context) error {
	a.saveMu.Lock()
	defer a.saveMu.Unlock()
	a.saves++
	return a.save(ctx)
}

// Flush runs a pending save now. It reports whether a save ran, along with
// that save's error. Without a pending save it does nothing.
func (a *AutoSaver) Flush(ctx context.Context) (bool, error) {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return false, ErrSaverClosed
	}
	pending := a.pending
	a.pending = nil
	a.gen++
	a.mu.Unlock()

	if pending == nil {
		return false, nil
	}
	pending.Stop()
	return true, a.run(ctx)
}

// Close runs any pending save and stops accepting changes
func (a *AutoSaver) Close(ctx context.Context) error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	pending := a.pending
	a.pending = nil
	a.gen++
	a.mu.Unlock()

	if pending == nil {
		return nil
	}
	pending.Stop()
	return a.run(ctx)
}
