package job

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"time"

	yaml "github.com/goccy/go-yaml"

	"adaptsched/internal/sched"
)

// Entry is one synthetic task and when to submit it.
type Entry struct {
	Name        string `yaml:"name"`
	Priority    int    `yaml:"priority"`
	DeadlineMS  int64  `yaml:"deadline_ms"`
	ExecutionMS int64  `yaml:"execution_ms"`
	AtMS        int64  `yaml:"at_ms"` // offset from replay start
}

// Spec converts the entry into a task spec.
func (e Entry) Spec() sched.TaskSpec {
	return sched.TaskSpec{
		Name:          e.Name,
		Priority:      e.Priority,
		Deadline:      time.Duration(e.DeadlineMS) * time.Millisecond,
		ExecutionTime: time.Duration(e.ExecutionMS) * time.Millisecond,
	}
}

// Scenario is a workload replayed against a scheduler.
type Scenario struct {
	Tasks []Entry `yaml:"tasks"`
}

// Submitter accepts tasks. *sched.Scheduler satisfies it.
type Submitter interface {
	SubmitTask(spec sched.TaskSpec) (sched.Task, error)
}

// LoadScenario reads and validates a scenario file.
func LoadScenario(path string) (Scenario, error) {
	var sc Scenario

	data, err := os.ReadFile(path)
	if err != nil {
		return sc, fmt.Errorf("read scenario: %w", err)
	}
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return sc, fmt.Errorf("parse scenario %s: %w", path, err)
	}
	if err := sc.Validate(); err != nil {
		return sc, fmt.Errorf("scenario %s: %w", path, err)
	}
	return sc, nil
}

// Validate checks every entry, reporting all problems at once.
func (sc Scenario) Validate() error {
	var errs []error
	for i, e := range sc.Tasks {
		if e.AtMS < 0 {
			errs = append(errs, fmt.Errorf("task %d (%s): negative at_ms %d", i, e.Name, e.AtMS))
		}
		if err := e.Spec().Validate(); err != nil {
			errs = append(errs, fmt.Errorf("task %d (%s): %w", i, e.Name, err))
		}
	}
	return errors.Join(errs...)
}

// ordered returns the entries sorted by submission offset, keeping file order
// for equal offsets.
func (sc Scenario) ordered() []Entry {
	out := make([]Entry, len(sc.Tasks))
	copy(out, sc.Tasks)
	sort.SliceStable(out, func(i, j int) bool { return out[i].AtMS < out[j].AtMS })
	return out
}

// Replay submits each entry once its offset has elapsed. A rejected entry is
// reported through onErr and does not stop the replay. Replay returns when
// every entry was submitted or ctx is done.
func (sc Scenario) Replay(ctx context.Context, sub Submitter, onErr func(Entry, error)) error {
	start := time.Now()
	for _, e := range sc.ordered() {
		wait := time.Duration(e.AtMS)*time.Millisecond - time.Since(start)
		if wait > 0 {
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		} else if ctx.Err() != nil {
			return ctx.Err()
		}

		if _, err := sub.SubmitTask(e.Spec()); err != nil && onErr != nil {
			onErr(e, err)
		}
	}
	return nil
}

// Random generates n valid entries. Deadlines get between 1x and 3x slack over
// the execution time; arrivals are staggered up to a second apart.
func Random(n int, rng *rand.Rand) Scenario {
	sc := Scenario{Tasks: make([]Entry, 0, n)}
	var at int64
	for i := 0; i < n; i++ {
		exec := 500 + rng.Int63n(5500)
		slack := 1 + rng.Float64()*2
		sc.Tasks = append(sc.Tasks, Entry{
			Name:        fmt.Sprintf("task-%02d", i+1),
			Priority:    sched.MinPriority + rng.Intn(sched.MaxPriority),
			DeadlineMS:  int64(float64(exec) * slack),
			ExecutionMS: exec,
			AtMS:        at,
		})
		at += rng.Int63n(1000)
	}
	return sc
}
