// internal/sched/policy.go

package sched

import (
	"fmt"
	"time"

	"github.com/emirpasic/gods/trees/redblacktree"
)

// Policy selects which task should hold the CPU next.
type Policy int

const (
	RoundRobin Policy = iota
	FCFS
	SJFNonPreemptive
	SJFPreemptive
)

// Policies lists every policy in display order.
var Policies = []Policy{RoundRobin, FCFS, SJFNonPreemptive, SJFPreemptive}

func (p Policy) String() string {
	switch p {
	case RoundRobin:
		return "round-robin"
	case FCFS:
		return "fcfs"
	case SJFNonPreemptive:
		return "sjf-nonpreemptive"
	case SJFPreemptive:
		return "sjf-preemptive"
	default:
		return "unknown"
	}
}

// Valid reports whether p is one of Policies.
func (p Policy) Valid() bool {
	return p >= RoundRobin && p <= SJFPreemptive
}

// ParsePolicy maps a policy name to its Policy.
func ParsePolicy(name string) (Policy, error) {
	for _, p := range Policies {
		if p.String() == name {
			return p, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownPolicy, name)
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Policy) UnmarshalText(b []byte) error {
	v, err := ParsePolicy(string(b))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// Select returns the task that should run for this tick, or nil. tasks must be
// in submission order. Select does not modify tasks.
func (p Policy) Select(tasks []*Task, now time.Time, slice time.Duration) *Task {
	switch p {
	case FCFS:
		return selectFCFS(tasks)
	case SJFNonPreemptive:
		return selectSJFNonPreemptive(tasks)
	case SJFPreemptive:
		return selectSJFPreemptive(tasks)
	default:
		return selectRoundRobin(tasks, now, slice)
	}
}

// selectRoundRobin keeps the running task until its slice expires while
// another task is waiting, then hands the CPU to the next ready task after it
// in submission order.
func selectRoundRobin(tasks []*Task, now time.Time, slice time.Duration) *Task {
	idx := runningIndex(tasks)
	if idx < 0 {
		for _, t := range tasks {
			if t.Status == StatusReady {
				return t
			}
		}
		return nil
	}

	running := tasks[idx]
	if running.Elapsed(now) < slice {
		return running
	}
	for i := 1; i < len(tasks); i++ {
		t := tasks[(idx+i)%len(tasks)]
		if t.Status == StatusReady {
			return t
		}
	}
	return running
}

func selectFCFS(tasks []*Task) *Task {
	if idx := runningIndex(tasks); idx >= 0 {
		return tasks[idx]
	}
	return pickMin(tasks, isReady, func(t *Task) int64 {
		return t.StartedAt.UnixNano()
	})
}

func selectSJFNonPreemptive(tasks []*Task) *Task {
	if idx := runningIndex(tasks); idx >= 0 {
		return tasks[idx]
	}
	return pickMin(tasks, isReady, func(t *Task) int64 {
		return int64(t.ExecutionTime)
	})
}

func selectSJFPreemptive(tasks []*Task) *Task {
	return pickMin(tasks, func(t *Task) bool {
		return t.Status == StatusReady || t.Status == StatusRunning
	}, func(t *Task) int64 {
		return int64(t.effectiveRemaining())
	})
}

func isReady(t *Task) bool { return t.Status == StatusReady }

func runningIndex(tasks []*Task) int {
	for i, t := range tasks {
		if t.Status == StatusRunning {
			return i
		}
	}
	return -1
}

// pickMin orders the eligible tasks by (key, seq) and returns the leftmost.
func pickMin(tasks []*Task, eligible func(*Task) bool, key func(*Task) int64) *Task {
	rbt := redblacktree.NewWith(cmp)
	for _, t := range tasks {
		if eligible(t) {
			rbt.Put(nodeKey{key: key(t), seq: t.Seq}, t)
		}
	}
	node := rbt.Left()
	if node == nil {
		return nil
	}
	return node.Value.(*Task)
}

// nodeKey is used as a key in the red-black tree.
type nodeKey struct {
	key int64
	seq uint64
}

// cmp implements the Comparator for nodeKey ordering.
func cmp(a, b any) int {
	ka, kb := a.(nodeKey), b.(nodeKey)
	switch {
	case ka.key < kb.key:
		return -1
	case ka.key > kb.key:
		return 1
	case ka.seq < kb.seq:
		return -1
	case ka.seq > kb.seq:
		return 1
	default:
		return 0
	}
}
