package sched

import "errors"

var (
	ErrInvalidTask      = errors.New("invalid task")
	ErrUnknownPolicy    = errors.New("unknown scheduling policy")
	ErrInvalidTimeSlice = errors.New("invalid time slice")
)
