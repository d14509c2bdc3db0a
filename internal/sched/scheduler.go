// internal/sched/scheduler.go

package sched

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// State is an immutable copy of everything the scheduler exposes.
type State struct {
	Policy    Policy
	TimeSlice time.Duration
	IsRunning bool
	Tick      int64
	Tasks     []Task
	Logs      []LogEntry
	Metrics   Metrics
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithClock replaces the wall clock, mostly for tests.
func WithClock(c Clock) Option {
	return func(s *Scheduler) { s.clock = c }
}

// WithLogger mirrors scheduler log entries to l.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Scheduler) { s.log = l }
}

// Scheduler simulates a single CPU and streams state changes. Commands and
// ticks share one mutex, so a command is never applied in the middle of a tick.
type Scheduler struct {
	// Scheduler-related
	mu        sync.Mutex    // protects the scheduler state
	busy      atomic.Bool   // set while a tick is in progress; overlapping ticks are dropped
	clock     Clock         // source of all timestamps
	interval  time.Duration // logical tick interval
	policy    Policy        // active task selection policy
	timeSlice time.Duration // round robin quantum
	running   bool          // false while paused
	tasks     *Registry     // all tasks, in submission order
	logs      *EventLog     // last LogCapacity entries
	metrics   Metrics       // recomputed every tick
	ticks     int64         // executed ticks
	dropped   atomic.Int64  // ticks discarded by the busy latch
	ticker    atomic.Pointer[TickClock]
	updates   chan State // snapshots published after each tick

	// logging-related
	log       zerolog.Logger
	csvFile   *os.File
	csvWriter *csv.Writer
}

// New creates a new Scheduler instance with the given configuration.
// It starts unpaused with no tasks.
func New(cfg Config, opts ...Option) *Scheduler {
	cfg.clamp()

	s := &Scheduler{
		clock:     systemClock{},
		interval:  time.Duration(cfg.TickMS) * time.Millisecond,
		policy:    cfg.Policy,
		timeSlice: time.Duration(cfg.TimeSliceMS) * time.Millisecond,
		running:   true,
		tasks:     NewRegistry(),
		logs:      NewEventLog(LogCapacity),
		updates:   make(chan State, 16),
		log:       zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.metrics = Aggregate(nil, nil, s.clock.Now(), s.flags())
	return s
}

// EnableCSVLogging opens the given file path for CSV logging of log entries.
func (s *Scheduler) EnableCSVLogging(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv log: %w", err)
	}
	w := csv.NewWriter(f)

	// write header
	if err := w.Write([]string{"timestamp", "tick", "severity", "message"}); err != nil {
		f.Close()
		return fmt.Errorf("write csv header: %w", err)
	}
	w.Flush()

	s.mu.Lock()
	s.csvFile = f
	s.csvWriter = w
	s.mu.Unlock()
	return nil
}

// Close flushes and closes the CSV log, if any.
func (s *Scheduler) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.csvFile == nil {
		return nil
	}
	s.csvWriter.Flush()
	err := s.csvWriter.Error()
	if cerr := s.csvFile.Close(); err == nil {
		err = cerr
	}
	s.csvFile, s.csvWriter = nil, nil
	return err
}

// Updates exposes a read-only stream of post-tick snapshots. Snapshots are
// dropped when the consumer falls behind. The channel is never closed; stop
// reading when the context passed to Run is done.
func (s *Scheduler) Updates() <-chan State { return s.updates }

// Run ticks the scheduler at the configured interval until ctx is done.
func (s *Scheduler) Run(ctx context.Context) error {
	clock := NewTickClock()
	clock.Start(s.interval)
	s.ticker.Store(clock)
	defer clock.Stop()

	s.log.Info().
		Dur("interval", s.interval).
		Stringer("policy", s.Policy()).
		Msg("tick loop started")

	for {
		select {
		case <-ctx.Done():
			s.log.Info().Int64("ticks", s.Ticks()).Int64("dropped", s.DroppedTicks()).Msg("tick loop stopped")
			return nil
		case _, ok := <-clock.Ch:
			if !ok {
				return nil
			}
			s.safeTick()
		}
	}
}

// safeTick keeps the loop alive if a tick panics.
func (s *Scheduler) safeTick() {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error().Interface("panic", r).Msg("tick panicked")
		}
	}()
	s.Tick()
}

// Tick runs one simulation step and reports whether it did anything. A tick
// requested while another is in progress is dropped; a paused scheduler does
// nothing.
func (s *Scheduler) Tick() bool {
	if !s.busy.CompareAndSwap(false, true) {
		s.dropped.Add(1)
		return false
	}
	defer s.busy.Store(false)

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return false
	}

	now := s.clock.Now()
	before := s.tasks.List()

	live := make([]*Task, 0, s.tasks.Len())
	s.tasks.each(func(t *Task) { live = append(live, t) })

	Age(live, now)

	var nextID TaskID
	var nextName string
	if next := s.policy.Select(live, now, s.timeSlice); next != nil {
		nextID, nextName = next.ID, next.Name
	}

	for _, t := range live {
		s.advance(t, nextID, nextName, now)
	}

	s.ticks++
	s.metrics = Aggregate(before, s.tasks.List(), now, s.flags())
	s.publish()
	return true
}

// advance applies one tick of the task state machine to t. nextID is the
// policy's selection for this tick, empty when nothing was selected.
func (s *Scheduler) advance(t *Task, nextID TaskID, nextName string, now time.Time) {
	if t.Status.Frozen() {
		return
	}

	elapsed := t.Elapsed(now)
	if elapsed > t.Deadline {
		t.Status = StatusMissed
		s.logf(now, SeverityError, "Task %s missed deadline", t.Name)
		return
	}

	switch {
	case t.Status == StatusRunning:
		progress := min(100, float64(elapsed)/float64(t.ExecutionTime)*100)
		remaining := max(0, t.ExecutionTime-elapsed)

		if progress >= 100 {
			t.Status = StatusCompleted
			t.Progress = 100
			t.Remaining = 0
			s.logf(now, SeveritySuccess, "Task %s completed", t.Name)
			return
		}

		t.Progress = progress
		t.Remaining = remaining
		if nextID != "" && nextID != t.ID {
			t.Status = StatusReady
			s.logf(now, SeverityInfo, "Task %s yielded to %s", t.Name, nextName)
		}

	case t.Status == StatusReady && t.ID == nextID:
		t.Status = StatusRunning
		t.StartedAt = now
		t.Progress = 0
		t.Remaining = t.effectiveRemaining()
		s.logf(now, SeverityInfo, "Starting task: %s", t.Name)
	}
}

// SubmitTask creates a ready task. Invalid specs are rejected and logged.
func (s *Scheduler) SubmitTask(spec TaskSpec) (Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	t, err := s.tasks.Add(spec, now)
	if err != nil {
		s.logf(now, SeverityError, "Rejected task %s: %v", spec.Name, err)
		return Task{}, err
	}
	s.logf(now, SeverityInfo, "Added new task: %s", t.Name)
	return *t, nil
}

// RemoveTask deletes a task. Unknown ids are ignored.
func (s *Scheduler) RemoveTask(id TaskID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.tasks.Remove(id)
	if t == nil {
		return false
	}
	s.logf(s.clock.Now(), SeverityWarning, "Removed task: %s", t.Name)
	return true
}

// ToggleRun pauses or resumes ticking and returns the new run flag.
func (s *Scheduler) ToggleRun() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.running = !s.running
	if s.running {
		s.logf(s.clock.Now(), SeveritySuccess, "Scheduler started")
	} else {
		s.logf(s.clock.Now(), SeverityWarning, "Scheduler paused")
	}
	s.refreshFlags()
	return s.running
}

// SetPolicy switches the active policy. Any running task goes back to ready.
func (s *Scheduler) SetPolicy(p Policy) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !p.Valid() {
		err := fmt.Errorf("%w: %d", ErrUnknownPolicy, int(p))
		s.logf(s.clock.Now(), SeverityError, "Cannot switch policy: %v", err)
		return err
	}

	s.policy = p
	s.tasks.each(func(t *Task) {
		if t.Status == StatusRunning {
			t.Status = StatusReady
		}
	})
	s.logf(s.clock.Now(), SeverityInfo, "Switched to %s scheduling algorithm", strings.ToUpper(p.String()))
	s.refreshFlags()
	return nil
}

// SetPolicyName is SetPolicy by name.
func (s *Scheduler) SetPolicyName(name string) error {
	p, err := ParsePolicy(name)
	if err != nil {
		s.mu.Lock()
		s.logf(s.clock.Now(), SeverityError, "Cannot switch policy: %v", err)
		s.mu.Unlock()
		return err
	}
	return s.SetPolicy(p)
}

// SetTimeSlice changes the round robin quantum. It is a silent no-op under
// any other policy.
func (s *Scheduler) SetTimeSlice(d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if d <= 0 {
		err := fmt.Errorf("%w: %s", ErrInvalidTimeSlice, d)
		s.logf(s.clock.Now(), SeverityError, "Cannot update time slice: %v", err)
		return err
	}
	if s.policy != RoundRobin {
		return nil
	}

	s.timeSlice = d
	s.logf(s.clock.Now(), SeverityInfo, "Time slice updated to %g seconds", d.Seconds())
	s.refreshFlags()
	return nil
}

// Tasks returns a copy of all tasks in submission order.
func (s *Scheduler) Tasks() []Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tasks.List()
}

// Metrics returns the last computed metrics.
func (s *Scheduler) Metrics() Metrics {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.metrics
}

// Logs returns the retained log entries, oldest first.
func (s *Scheduler) Logs() []LogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.logs.Entries()
}

// Policy returns the active policy.
func (s *Scheduler) Policy() Policy {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.policy
}

// State returns a full snapshot.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

// Ticks returns the number of executed ticks.
func (s *Scheduler) Ticks() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ticks
}

// DroppedTicks counts ticks lost to backpressure, both at the clock and at the
// busy latch.
func (s *Scheduler) DroppedTicks() int64 {
	n := s.dropped.Load()
	if c := s.ticker.Load(); c != nil {
		n += c.Dropped()
	}
	return n
}

func (s *Scheduler) snapshot() State {
	return State{
		Policy:    s.policy,
		TimeSlice: s.timeSlice,
		IsRunning: s.running,
		Tick:      s.ticks,
		Tasks:     s.tasks.List(),
		Logs:      s.logs.Entries(),
		Metrics:   s.metrics,
	}
}

func (s *Scheduler) publish() {
	select {
	case s.updates <- s.snapshot():
	default:
	}
}

func (s *Scheduler) flags() Flags {
	return Flags{IsRunning: s.running, Policy: s.policy, TimeSlice: s.timeSlice}
}

func (s *Scheduler) refreshFlags() {
	s.metrics.IsRunning = s.running
	s.metrics.Policy = s.policy
	s.metrics.TimeSlice = s.timeSlice
}

// logf appends a log entry stamped with now and mirrors it to the logger and
// CSV file. Callers must hold s.mu.
func (s *Scheduler) logf(now time.Time, sev Severity, format string, args ...any) {
	e := LogEntry{
		Time:     now,
		Message:  fmt.Sprintf(format, args...),
		Severity: sev,
	}
	s.logs.Append(e)

	var ev *zerolog.Event
	switch sev {
	case SeverityWarning:
		ev = s.log.Warn()
	case SeverityError:
		ev = s.log.Error()
	default:
		ev = s.log.Info()
	}
	ev.Int64("tick", s.ticks).Stringer("severity", sev).Msg(e.Message)

	// CSV output
	if s.csvWriter != nil {
		rec := []string{
			e.Time.Format(time.RFC3339Nano),
			strconv.FormatInt(s.ticks, 10),
			sev.String(),
			e.Message,
		}
		if err := s.csvWriter.Write(rec); err != nil {
			s.log.Error().Err(err).Msg("csv log write failed")
		}
		s.csvWriter.Flush()
	}
}
