package model

import (
	"fmt"
	"time"
)

// JobState is the lifecycle position of an analysis job.
type JobState string

const (
	StateQueued  JobState = "queued"
	StateRunning JobState = "running"
	StateDone    JobState = "done"
	StateError   JobState = "error"
)

// Terminal reports whether no further transition can happen.
func (s JobState) Terminal() bool {
	return s == StateDone || s == StateError
}

// ErrorKind classifies why a job failed.
type ErrorKind string

const (
	ErrDecode     ErrorKind = "decode_error"
	ErrSeparation ErrorKind = "separation_error"
	ErrCompute    ErrorKind = "compute_error"
	ErrInternal   ErrorKind = "internal_error"
)

// JobError is the typed failure stored on a job in the error state.
type JobError struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}

func (e *JobError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Job is the status record polled by clients.
type Job struct {
	ID        string    `json:"id"`
	State     JobState  `json:"status"`
	Error     *JobError `json:"error,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Result is the document written for a finished job.
type Result struct {
	Recs  map[Source][]string `json:"recs"`
	User  FeatureSet          `json:"user"`
	Ref   FeatureSet          `json:"ref"`
	Plots map[string]string   `json:"plots"`
}
