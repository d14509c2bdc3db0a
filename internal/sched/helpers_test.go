package sched

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const testTick = 100 * time.Millisecond

// manualClock only moves when told to.
type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func newManualClock() *manualClock {
	return &manualClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// failingClock panics on the first Now call after fail is set.
type failingClock struct {
	*manualClock
	fail atomic.Bool
}

func (c *failingClock) Now() time.Time {
	if c.fail.CompareAndSwap(true, false) {
		panic("clock failure")
	}
	return c.manualClock.Now()
}

// creepingClock moves forward a millisecond on every read.
type creepingClock struct {
	*manualClock
}

func (c *creepingClock) Now() time.Time {
	c.Advance(time.Millisecond)
	return c.manualClock.Now()
}

func newTestScheduler(t *testing.T, p Policy) (*Scheduler, *manualClock) {
	t.Helper()
	clock := newManualClock()
	cfg := DefaultConfig()
	cfg.Policy = p
	return New(cfg, WithClock(clock)), clock
}

// step advances the clock one tick interval and ticks, n times, checking that
// no more than one task is running afterwards.
func step(t *testing.T, s *Scheduler, c *manualClock, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		c.Advance(testTick)
		require.True(t, s.Tick())
		require.LessOrEqual(t, countStatus(s.Tasks(), StatusRunning), 1)
	}
}

func countStatus(tasks []Task, st Status) int {
	n := 0
	for _, t := range tasks {
		if t.Status == st {
			n++
		}
	}
	return n
}

func submit(t *testing.T, s *Scheduler, name string, deadline, exec time.Duration) Task {
	t.Helper()
	task, err := s.SubmitTask(TaskSpec{Name: name, Priority: 5, Deadline: deadline, ExecutionTime: exec})
	require.NoError(t, err)
	return task
}

func findTask(t *testing.T, s *Scheduler, id TaskID) Task {
	t.Helper()
	for _, task := range s.Tasks() {
		if task.ID == id {
			return task
		}
	}
	t.Fatalf("task %s not found", id)
	return Task{}
}

func messages(logs []LogEntry) []string {
	out := make([]string, len(logs))
	for i, e := range logs {
		out[i] = e.Message
	}
	return out
}
