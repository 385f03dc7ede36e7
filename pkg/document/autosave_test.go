package document

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type saveCounter struct {
	mu    sync.Mutex
	count int
	err   error
}

func (c *saveCounter) save(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.count++
	return c.err
}

func (c *saveCounter) calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.count
}

func TestAutoSaver_DebouncesBursts(t *testing.T) {
	clock := NewManualScheduler()
	c := &saveCounter{}
	a := NewAutoSaver(c.save, WithScheduler(clock))

	for i := 0; i < 5; i++ {
		a.Notify()
		clock.Advance(300 * time.Millisecond)
	}
	assert.Equal(t, 0, c.calls(), "each change pushes the save back")
	assert.Equal(t, 1, clock.Pending())

	clock.Advance(699 * time.Millisecond)
	assert.Equal(t, 0, c.calls())
	clock.Advance(time.Millisecond)
	assert.Equal(t, 1, c.calls())
	assert.False(t, a.Pending())

	clock.Advance(10 * time.Second)
	assert.Equal(t, 1, c.calls(), "no change, no save")
}

func TestAutoSaver_CustomDelay(t *testing.T) {
	clock := NewManualScheduler()
	c := &saveCounter{}
	a := NewAutoSaver(c.save, WithScheduler(clock), WithDelay(5*time.Second))

	a.Notify()
	clock.Advance(time.Second)
	assert.Equal(t, 0, c.calls())
	clock.Advance(4 * time.Second)
	assert.Equal(t, 1, c.calls())
}

func TestAutoSaver_FailuresAreReported(t *testing.T) {
	clock := NewManualScheduler()
	boom := errors.New("quota exceeded")
	c := &saveCounter{err: boom}

	var reported []error
	a := NewAutoSaver(c.save, WithScheduler(clock), WithOnError(func(err error) {
		reported = append(reported, err)
	}))

	a.Notify()
	clock.Advance(DefaultAutoSaveDelay)
	require.Len(t, reported, 1)
	assert.ErrorIs(t, reported[0], boom)

	// still usable after a failure
	c.mu.Lock()
	c.err = nil
	c.mu.Unlock()
	a.Notify()
	clock.Advance(DefaultAutoSaveDelay)
	assert.Equal(t, 2, c.calls())
	assert.Len(t, reported, 1)
}

func TestAutoSaver_FlushAndClose(t *testing.T) {
	clock := NewManualScheduler()
	c := &saveCounter{}
	a := NewAutoSaver(c.save, WithScheduler(clock))
	ctx := context.Background()

	saved, err := a.Flush(ctx)
	require.NoError(t, err)
	assert.False(t, saved)
	assert.Equal(t, 0, c.calls(), "nothing pending")

	a.Notify()
	saved, err = a.Flush(ctx)
	require.NoError(t, err)
	assert.True(t, saved)
	assert.Equal(t, 1, c.calls())
	assert.Equal(t, 0, clock.Pending())

	a.Notify()
	require.NoError(t, a.Close(ctx))
	assert.Equal(t, 2, c.calls())

	a.Notify()
	clock.Advance(time.Minute)
	assert.Equal(t, 2, c.calls(), "closed savers ignore changes")
	_, err = a.Flush(ctx)
	assert.ErrorIs(t, err, ErrSaverClosed)
	assert.NoError(t, a.Close(ctx))
}

func TestAutoSaver_RealScheduler(t *testing.T) {
	done := make(chan struct{}, 1)
	a := NewAutoSaver(func(context.Context) error {
		done <- struct{}{}
		return nil
	}, WithDelay(10*time.Millisecond))

	a.Notify()
	a.Notify()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("save never ran")
	}
	assert.Equal(t, 1, a.Saves())
}
