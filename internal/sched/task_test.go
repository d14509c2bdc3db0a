package sched

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTaskSpecValidate(t *testing.T) {
	ok := TaskSpec{Name: "x", Priority: 5, Deadline: time.Second, ExecutionTime: time.Second}

	tests := []struct {
		name    string
		mutate  func(*TaskSpec)
		wantErr bool
	}{
		{"valid", func(*TaskSpec) {}, false},
		{"lowest priority", func(s *TaskSpec) { s.Priority = MinPriority }, false},
		{"highest priority", func(s *TaskSpec) { s.Priority = MaxPriority }, false},
		{"priority too low", func(s *TaskSpec) { s.Priority = 0 }, true},
		{"priority too high", func(s *TaskSpec) { s.Priority = 11 }, true},
		{"zero deadline", func(s *TaskSpec) { s.Deadline = 0 }, true},
		{"negative execution", func(s *TaskSpec) { s.ExecutionTime = -time.Second }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := ok
			tt.mutate(&spec)
			err := spec.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidTask)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestStatusFrozen(t *testing.T) {
	assert.False(t, StatusReady.Frozen())
	assert.False(t, StatusRunning.Frozen())
	assert.True(t, StatusPaused.Frozen())
	assert.True(t, StatusCompleted.Frozen())
	assert.True(t, StatusMissed.Frozen())
}
