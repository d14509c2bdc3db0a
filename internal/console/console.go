// Package console is a line-oriented command shell over the scheduler
// commands. It plays the part of the UI: it submits and controls tasks and
// renders the task list, metrics and log.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"adaptsched/internal/sched"
)

// Controller is the command and query surface the console drives.
type Controller interface {
	SubmitTask(spec sched.TaskSpec) (sched.Task, error)
	RemoveTask(id sched.TaskID) bool
	ToggleRun() bool
	SetPolicyName(name string) error
	SetTimeSlice(d time.Duration) error
	State() sched.State
}

var ErrUsage = errors.New("usage")

const help = `commands:
  add NAME PRIORITY DEADLINE_S EXEC_S   submit a task
  rm ID                                 remove a task
  toggle                                pause or resume
  policy NAME                           round-robin | fcfs | sjf-nonpreemptive | sjf-preemptive
  slice MS                              round robin time slice
  tasks | metrics | logs | help
`

// Console executes commands against a Controller.
type Console struct {
	ctl Controller
	out io.Writer
}

// New creates a console writing its output to out.
func New(ctl Controller, out io.Writer) *Console {
	return &Console{ctl: ctl, out: out}
}

// Serve executes lines from in until EOF or ctx is done. Failed commands are
// reported to out and do not stop the loop.
//
// A Read on in cannot be interrupted, so when ctx is done the reader goroutine
// stays blocked until in yields a line or EOF. If in is an io.Closer it is
// closed on cancellation to release that goroutine.
func (c *Console) Serve(ctx context.Context, in io.Reader) error {
	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- sc.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			if cl, ok := in.(io.Closer); ok {
				cl.Close()
			}
			return nil
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-scanErr:
					return err
				default:
					return nil
				}
			}
			if err := c.Exec(line); err != nil {
				fmt.Fprintf(c.out, "error: %v\n", err)
			}
		}
	}
}

// Exec runs a single command line.
func (c *Console) Exec(line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}

	cmd, args := fields[0], fields[1:]
	switch cmd {
	case "add":
		return c.add(args)
	case "rm":
		if len(args) != 1 {
			return fmt.Errorf("%w: rm ID", ErrUsage)
		}
		if !c.ctl.RemoveTask(sched.TaskID(args[0])) {
			fmt.Fprintf(c.out, "no task %s\n", args[0])
		}
		return nil
	case "toggle":
		if c.ctl.ToggleRun() {
			fmt.Fprintln(c.out, "running")
		} else {
			fmt.Fprintln(c.out, "paused")
		}
		return nil
	case "policy":
		if len(args) != 1 {
			return fmt.Errorf("%w: policy NAME", ErrUsage)
		}
		return c.ctl.SetPolicyName(args[0])
	case "slice":
		if len(args) != 1 {
			return fmt.Errorf("%w: slice MS", ErrUsage)
		}
		ms, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("%w: slice MS: %v", ErrUsage, err)
		}
		return c.ctl.SetTimeSlice(time.Duration(ms) * time.Millisecond)
	case "tasks":
		return WriteTasks(c.out, c.ctl.State().Tasks)
	case "metrics":
		return WriteMetrics(c.out, c.ctl.State().Metrics)
	case "logs":
		return WriteLogs(c.out, c.ctl.State().Logs)
	case "help":
		_, err := io.WriteString(c.out, help)
		return err
	default:
		return fmt.Errorf("%w: unknown command %q, try help", ErrUsage, cmd)
	}
}

func (c *Console) add(args []string) error {
	if len(args) != 4 {
		return fmt.Errorf("%w: add NAME PRIORITY DEADLINE_S EXEC_S", ErrUsage)
	}
	prio, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("%w: priority: %v", ErrUsage, err)
	}
	deadline, err := parseSeconds(args[2])
	if err != nil {
		return fmt.Errorf("%w: deadline: %v", ErrUsage, err)
	}
	exec, err := parseSeconds(args[3])
	if err != nil {
		return fmt.Errorf("%w: execution time: %v", ErrUsage, err)
	}

	t, err := c.ctl.SubmitTask(sched.TaskSpec{
		Name:          args[0],
		Priority:      prio,
		Deadline:      deadline,
		ExecutionTime: exec,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "added %s (%s)\n", t.Name, t.ID)
	return nil
}

func parseSeconds(s string) (time.Duration, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	return time.Duration(f * float64(time.Second)), nil
}

const taskRow = "%-20s  %-16s  %-9s  %-5s  %8s  %-10s  %s\n"

// WriteTasks renders tasks as a fixed-width table.
func WriteTasks(w io.Writer, tasks []sched.Task) error {
	fmt.Fprintf(w, taskRow, "ID", "NAME", "STATUS", "PRIO", "PROGRESS", "REMAINING", "DEADLINE")
	fmt.Fprintf(w, taskRow, "--", "----", "------", "----", "--------", "---------", "--------")
	for _, t := range tasks {
		_, err := fmt.Fprintf(w, taskRow,
			t.ID, t.Name, t.Status,
			fmt.Sprintf("%d/%d", t.Priority, t.BasePriority),
			fmt.Sprintf("%.1f%%", t.Progress),
			t.Remaining.Round(time.Millisecond), t.Deadline)
		if err != nil {
			return err
		}
	}
	return nil
}

// WriteMetrics renders a metrics snapshot.
func WriteMetrics(w io.Writer, m sched.Metrics) error {
	state := "paused"
	if m.IsRunning {
		state = "running"
	}
	_, err := fmt.Fprintf(w,
		"policy=%s slice=%s state=%s cpu=%d%% completed=%d missed=%d avg_wait=%s\n",
		m.Policy, m.TimeSlice, state, m.CPUUtilization, m.CompletedTasks,
		m.MissedDeadlines, m.AverageWaitTime.Round(time.Millisecond))
	return err
}

// WriteLogs renders log entries oldest first.
func WriteLogs(w io.Writer, logs []sched.LogEntry) error {
	for _, e := range logs {
		if _, err := fmt.Fprintf(w, "%s %-7s %s\n",
			e.Time.Format("15:04:05.000"), e.Severity, e.Message); err != nil {
			return err
		}
	}
	return nil
}
