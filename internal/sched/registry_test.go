package sched

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryKeepsSubmissionOrder(t *testing.T) {
	r := NewRegistry()
	var ids []TaskID
	for _, name := range []string{"c", "a", "b"} {
		task, err := r.Add(TaskSpec{Name: name, Priority: 1, Deadline: time.Second, ExecutionTime: time.Second}, t0)
		require.NoError(t, err)
		ids = append(ids, task.ID)
	}

	list := r.List()
	require.Len(t, list, 3)
	for i, task := range list {
		assert.Equal(t, ids[i], task.ID)
		assert.EqualValues(t, i, task.Seq)
	}

	require.NotNil(t, r.Remove(ids[1]))
	assert.Nil(t, r.Remove(ids[1]))
	assert.Equal(t, 2, r.Len())

	task, err := r.Add(TaskSpec{Name: "d", Priority: 1, Deadline: time.Second, ExecutionTime: time.Second}, t0)
	require.NoError(t, err)
	assert.EqualValues(t, 3, task.Seq)

	got, ok := r.Get(task.ID)
	require.True(t, ok)
	assert.Same(t, task, got)
}

func TestRegistryRejectsInvalidSpec(t *testing.T) {
	r := NewRegistry()
	_, err := r.Add(TaskSpec{Name: "x", Priority: 0, Deadline: time.Second, ExecutionTime: time.Second}, t0)
	assert.ErrorIs(t, err, ErrInvalidTask)
	assert.Zero(t, r.Len())
}
