package sched

import "time"

// Metrics is a summary derived from a task list. It is recomputed whole on
// every tick.
type Metrics struct {
	CPUUtilization  int // 0 or 100
	CompletedTasks  int
	MissedDeadlines int
	// AverageWaitTime is the mean of (start reference - now) over the task
	// list. It is signed and usually negative.
	AverageWaitTime time.Duration
	IsRunning       bool
	Policy          Policy
	TimeSlice       time.Duration
}

// Flags carries the controller settings reported alongside the counts.
type Flags struct {
	IsRunning bool
	Policy    Policy
	TimeSlice time.Duration
}

// Aggregate derives metrics. Status counts come from counted, start references
// from stamped; the tick engine passes the pre-tick list for the former and the
// post-tick list for the latter.
func Aggregate(counted, stamped []Task, now time.Time, flags Flags) Metrics {
	m := Metrics{
		IsRunning: flags.IsRunning,
		Policy:    flags.Policy,
		TimeSlice: flags.TimeSlice,
	}

	running := 0
	for _, t := range counted {
		switch t.Status {
		case StatusCompleted:
			m.CompletedTasks++
		case StatusMissed:
			m.MissedDeadlines++
		case StatusRunning:
			running++
		}
	}
	if running > 0 {
		m.CPUUtilization = 100
	}

	var sum time.Duration
	for _, t := range stamped {
		if !t.StartedAt.IsZero() {
			sum += t.StartedAt.Sub(now)
		}
	}
	m.AverageWaitTime = sum / time.Duration(max(1, len(stamped)))

	return m
}
