package sched

import (
	"fmt"
	"time"

	"github.com/rs/xid"
)

// TaskID uniquely identifies a task in the scheduler.
type TaskID string

const (
	MinPriority = 1
	MaxPriority = 10
)

// Status is the lifecycle state of a task.
type Status int

const (
	StatusReady Status = iota
	StatusRunning
	StatusPaused
	StatusCompleted
	StatusMissed
)

func (s Status) String() string {
	switch s {
	case StatusReady:
		return "ready"
	case StatusRunning:
		return "running"
	case StatusPaused:
		return "paused"
	case StatusCompleted:
		return "completed"
	case StatusMissed:
		return "missed"
	default:
		return "unknown"
	}
}

// Frozen reports whether the tick engine leaves a task in this state untouched.
func (s Status) Frozen() bool {
	return s == StatusCompleted || s == StatusMissed || s == StatusPaused
}

// TaskSpec is what a caller submits to create a task.
type TaskSpec struct {
	Name          string
	Priority      int           // 1 - 10
	Deadline      time.Duration // budget measured from the task's start reference
	ExecutionTime time.Duration // CPU time required
}

// Validate rejects specs the engine cannot simulate. Nothing is clamped.
func (s TaskSpec) Validate() error {
	if s.Priority < MinPriority || s.Priority > MaxPriority {
		return fmt.Errorf("%w: priority %d outside [%d,%d]", ErrInvalidTask, s.Priority, MinPriority, MaxPriority)
	}
	if s.Deadline <= 0 {
		return fmt.Errorf("%w: deadline must be positive, got %s", ErrInvalidTask, s.Deadline)
	}
	if s.ExecutionTime <= 0 {
		return fmt.Errorf("%w: execution time must be positive, got %s", ErrInvalidTask, s.ExecutionTime)
	}
	return nil
}

// Task represents one simulated workload.
type Task struct {
	ID            TaskID
	Seq           uint64 // submission order, used to break ties
	Name          string
	BasePriority  int           // as submitted
	Priority      int           // effective priority, rewritten by aging every tick
	Deadline      time.Duration
	ExecutionTime time.Duration
	Status        Status
	Progress      float64   // 0 - 100
	StartedAt     time.Time // arrival stamp, re-stamped every time the task is dispatched
	Remaining     time.Duration
}

// NewTask creates a ready task with its full execution time remaining.
func NewTask(seq uint64, spec TaskSpec, now time.Time) (*Task, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	return &Task{
		ID:            TaskID(xid.New().String()),
		Seq:           seq,
		Name:          spec.Name,
		BasePriority:  spec.Priority,
		Priority:      spec.Priority,
		Deadline:      spec.Deadline,
		ExecutionTime: spec.ExecutionTime,
		Status:        StatusReady,
		StartedAt:     now,
		Remaining:     spec.ExecutionTime,
	}, nil
}

// Elapsed returns the time since the task's start reference.
func (t *Task) Elapsed(now time.Time) time.Duration {
	return now.Sub(t.StartedAt)
}

// effectiveRemaining falls back to the full execution time when remaining is unset.
func (t *Task) effectiveRemaining() time.Duration {
	if t.Remaining > 0 {
		return t.Remaining
	}
	return t.ExecutionTime
}
