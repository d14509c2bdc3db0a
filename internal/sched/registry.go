// internal/sched/registry.go

package sched

import (
	"time"

	"github.com/emirpasic/gods/maps/linkedhashmap"
)

// Registry owns the task set. Iteration follows submission order.
// It is not safe for concurrent use; the Scheduler serializes access.
type Registry struct {
	tasks   *linkedhashmap.Map // TaskID -> *Task
	nextSeq uint64
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{tasks: linkedhashmap.New()}
}

// Add creates a ready task from spec, stamped with now as its arrival.
func (r *Registry) Add(spec TaskSpec, now time.Time) (*Task, error) {
	t, err := NewTask(r.nextSeq, spec, now)
	if err != nil {
		return nil, err
	}
	r.nextSeq++
	r.tasks.Put(t.ID, t)
	return t, nil
}

// Remove deletes a task unconditionally and returns it, or nil when absent.
func (r *Registry) Remove(id TaskID) *Task {
	v, ok := r.tasks.Get(id)
	if !ok {
		return nil
	}
	r.tasks.Remove(id)
	return v.(*Task)
}

// Get returns the live task for id.
func (r *Registry) Get(id TaskID) (*Task, bool) {
	v, ok := r.tasks.Get(id)
	if !ok {
		return nil, false
	}
	return v.(*Task), true
}

// Len returns the number of tasks.
func (r *Registry) Len() int { return r.tasks.Size() }

// each visits live tasks in submission order.
func (r *Registry) each(fn func(t *Task)) {
	r.tasks.Each(func(_ interface{}, v interface{}) {
		fn(v.(*Task))
	})
}

// List returns a copy of every task in submission order. Callers may modify
// the returned values freely.
func (r *Registry) List() []Task {
	out := make([]Task, 0, r.tasks.Size())
	r.each(func(t *Task) {
		out = append(out, *t)
	})
	return out
}
