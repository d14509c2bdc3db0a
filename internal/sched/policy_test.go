package sched

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func mkTask(seq uint64, st Status, startedAt time.Duration, exec, remaining time.Duration) *Task {
	return &Task{
		ID:            TaskID(string(rune('a' + seq))),
		Seq:           seq,
		Name:          string(rune('a' + seq)),
		Status:        st,
		StartedAt:     t0.Add(startedAt),
		Deadline:      time.Hour,
		ExecutionTime: exec,
		Remaining:     remaining,
	}
}

func TestParsePolicy(t *testing.T) {
	for _, p := range Policies {
		got, err := ParsePolicy(p.String())
		require.NoError(t, err)
		assert.Equal(t, p, got)
	}

	_, err := ParsePolicy("lottery")
	assert.ErrorIs(t, err, ErrUnknownPolicy)
	assert.Equal(t, "unknown", Policy(99).String())
}

func TestPolicyValid(t *testing.T) {
	for _, p := range Policies {
		assert.True(t, p.Valid(), p.String())
	}
	assert.False(t, Policy(-1).Valid())
	assert.False(t, Policy(len(Policies)).Valid())
}

func TestSelectEmpty(t *testing.T) {
	for _, p := range Policies {
		assert.Nil(t, p.Select(nil, t0, time.Second), p.String())
		done := []*Task{mkTask(0, StatusCompleted, 0, time.Second, 0)}
		assert.Nil(t, p.Select(done, t0, time.Second), p.String())
	}
}

func TestSelectRoundRobin(t *testing.T) {
	slice := 2 * time.Second
	now := t0.Add(10 * time.Second)

	tests := []struct {
		name  string
		tasks []*Task
		want  TaskID
	}{
		{
			name: "first ready when idle",
			tasks: []*Task{
				mkTask(0, StatusMissed, 0, time.Second, 0),
				mkTask(1, StatusReady, 5*time.Second, time.Second, 0),
				mkTask(2, StatusReady, 0, time.Second, 0),
			},
			want: "b",
		},
		{
			name: "running within slice",
			tasks: []*Task{
				mkTask(0, StatusReady, 0, time.Second, 0),
				mkTask(1, StatusRunning, 9*time.Second, time.Second, 0),
			},
			want: "b",
		},
		{
			name: "slice expired hands over to next ready after it",
			tasks: []*Task{
				mkTask(0, StatusReady, 0, time.Second, 0),
				mkTask(1, StatusRunning, 8*time.Second, time.Second, 0),
				mkTask(2, StatusCompleted, 0, time.Second, 0),
				mkTask(3, StatusReady, 0, time.Second, 0),
			},
			want: "d",
		},
		{
			name: "slice expired wraps around",
			tasks: []*Task{
				mkTask(0, StatusReady, 0, time.Second, 0),
				mkTask(1, StatusReady, 0, time.Second, 0),
				mkTask(2, StatusRunning, 8*time.Second, time.Second, 0),
			},
			want: "a",
		},
		{
			name: "slice expired but nobody waiting",
			tasks: []*Task{
				mkTask(0, StatusPaused, 0, time.Second, 0),
				mkTask(1, StatusRunning, 0, time.Second, 0),
			},
			want: "b",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RoundRobin.Select(tt.tasks, now, slice)
			require.NotNil(t, got)
			assert.Equal(t, tt.want, got.ID)
		})
	}
}

func TestSelectFCFS(t *testing.T) {
	tasks := []*Task{
		mkTask(0, StatusReady, 3*time.Second, time.Second, 0),
		mkTask(1, StatusReady, time.Second, time.Second, 0),
		mkTask(2, StatusReady, time.Second, time.Second, 0),
	}
	assert.Equal(t, TaskID("b"), FCFS.Select(tasks, t0, 0).ID, "earliest start, then submission order")

	tasks[0].Status = StatusRunning
	assert.Equal(t, TaskID("a"), FCFS.Select(tasks, t0, 0).ID, "running task is kept")
}

func TestSelectSJFNonPreemptive(t *testing.T) {
	tasks := []*Task{
		mkTask(0, StatusReady, 0, 5*time.Second, 0),
		mkTask(1, StatusReady, 0, 2*time.Second, 0),
		mkTask(2, StatusReady, 0, 2*time.Second, 0),
	}
	assert.Equal(t, TaskID("b"), SJFNonPreemptive.Select(tasks, t0, 0).ID)

	tasks[0].Status = StatusRunning
	assert.Equal(t, TaskID("a"), SJFNonPreemptive.Select(tasks, t0, 0).ID)
}

func TestSelectSJFPreemptive(t *testing.T) {
	tasks := []*Task{
		mkTask(0, StatusRunning, 0, 5*time.Second, 4*time.Second),
		mkTask(1, StatusReady, 0, 3*time.Second, 0), // unset remaining falls back to 3s
		mkTask(2, StatusCompleted, 0, time.Second, 0),
	}
	assert.Equal(t, TaskID("b"), SJFPreemptive.Select(tasks, t0, 0).ID)

	tasks[0].Remaining = 2 * time.Second
	assert.Equal(t, TaskID("a"), SJFPreemptive.Select(tasks, t0, 0).ID)
}

func TestSelectDoesNotMutate(t *testing.T) {
	tasks := []*Task{
		mkTask(0, StatusRunning, 0, 5*time.Second, 4*time.Second),
		mkTask(1, StatusReady, 0, time.Second, 0),
	}
	before := []Task{*tasks[0], *tasks[1]}
	for _, p := range Policies {
		p.Select(tasks, t0.Add(time.Minute), time.Second)
	}
	assert.Equal(t, before, []Task{*tasks[0], *tasks[1]})
}
