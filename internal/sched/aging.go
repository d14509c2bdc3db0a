package sched

import (
	"math"
	"time"
)

// Age rewrites the effective priority of every ready or running task from its
// deadline pressure:
//
//	urgency  = max(1, 10 * (1 - timeToDeadline/deadline))
//	priority = min(10, floor(priority * urgency))
//
// The rule is applied to the already-aged value, so it compounds across ticks.
func Age(tasks []*Task, now time.Time) {
	for _, t := range tasks {
		if t.Status != StatusReady && t.Status != StatusRunning {
			continue
		}
		t.Priority = agedPriority(t, now)
	}
}

func agedPriority(t *Task, now time.Time) int {
	deadline := float64(t.Deadline)
	timeToDeadline := deadline - float64(t.Elapsed(now))
	urgency := math.Max(1, 10*(1-timeToDeadline/deadline))
	return int(math.Min(MaxPriority, math.Floor(float64(t.Priority)*urgency)))
}
