package document

import (
	"sort"
	"sync"
	"time"
)

// Timer is a pending scheduled call
type Timer interface {
	// Stop cancels the call and reports whether it was still pending
	Stop() bool
}

// Scheduler runs a function after a delay
type Scheduler interface {
	AfterFunc(d time.Duration, fn func()) Timer
}

// RealScheduler schedules on the wall clock
type RealScheduler struct{}

// AfterFunc wraps time.AfterFunc
func (RealScheduler) AfterFunc(d time.Duration, fn func()) Timer {
	return time.AfterFunc(d, fn)
}

// ManualScheduler only fires when Advance moves its clock past a task's
// deadline. Tasks fire synchronously inside Advance, in deadline order.
type ManualScheduler struct {
	mu    sync.Mutex
	now   time.Duration
	seq   int
	tasks []*manualTask
}

type manualTask struct {
	s       *ManualScheduler
	at      time.Duration
	seq     int
	fn      func()
	stopped bool
}

// NewManualScheduler creates a scheduler at time zero
func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{}
}

// AfterFunc registers fn to run once the clock has advanced by d
func (m *ManualScheduler) AfterFunc(d time.Duration, fn func()) Timer {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	t := &manualTask{s: m, at: m.now + d, seq: m.seq, fn: fn}
	m.tasks = append(m.tasks, t)
	return t
}

// Stop cancels the task
func (t *manualTask) Stop() bool {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if t.stopped {
		return false
	}
	t.stopped = true
	t.s.remove(t)
	return true
}

func (m *ManualScheduler) remove(t *manualTask) {
	for i, task := range m.tasks {
		if task == t {
			m.tasks = append(m.tasks[:i], m.tasks[i+1:]...)
			return
		}
	}
}

// Advance moves the clock forward by d and runs every task that became due
func (m *ManualScheduler) Advance(d time.Duration) {
	m.mu.Lock()
	m.now += d
	now := m.now
	m.mu.Unlock()

	for {
		m.mu.Lock()
		sort.Slice(m.tasks, func(i, j int) bool {
			if m.tasks[i].at != m.tasks[j].at {
				return m.tasks[i].at < m.tasks[j].at
			}
			return m.tasks[i].seq < m.tasks[j].seq
		})
		if len(m.tasks) == 0 || m.tasks[0].at > now {
			m.mu.Unlock()
			return
		}
		t := m.tasks[0]
		m.tasks = m.tasks[1:]
		t.stopped = true
		m.mu.Unlock()

		t.fn()
	}
}

// Pending returns the number of scheduled tasks
func (m *ManualScheduler) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tasks)
}
