// internal/sched/tickclock.go

package sched

import (
	"sync/atomic"
	"time"
)

// Clock is the scheduler's source of time.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// TickClock emits ticks and counts them atomically. A tick that fires while
// the consumer is still busy with the previous one is dropped, not queued.
type TickClock struct {
	Ch      chan time.Time
	count   atomic.Int64
	dropped atomic.Int64
	stop    chan struct{}
}

// NewTickClock creates a clock but does not start it.
func NewTickClock() *TickClock {
	return &TickClock{
		Ch:   make(chan time.Time),
		stop: make(chan struct{}),
	}
}

// Start begins emitting ticks at the given interval.
func (c *TickClock) Start(interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case now := <-ticker.C:
				c.count.Add(1)
				select {
				case c.Ch <- now:
				default:
					c.dropped.Add(1)
				}
			case <-c.stop:
				close(c.Ch)
				return
			}
		}
	}()
}

// Stop signals the clock to stop emitting ticks.
func (c *TickClock) Stop() {
	close(c.stop)
}

// Count returns the number of times the clock fired.
func (c *TickClock) Count() int64 {
	return c.count.Load()
}

// Dropped returns the number of fires nobody was ready to receive.
func (c *TickClock) Dropped() int64 {
	return c.dropped.Load()
}
