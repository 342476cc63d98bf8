package features

import (
	"errors"
	"fmt"
)

// ErrEmptyBuffer is wrapped by ComputeError when a decoded source has no samples.
var ErrEmptyBuffer = errors.New("empty audio buffer")

// ComputeError reports input an extractor cannot measure at all.
type ComputeError struct {
	Metric string
	Err    error
}

func (e *ComputeError) Error() string {
	return fmt.Sprintf("%s: %v", e.Metric, e.Err)
}

func (e *ComputeError) Unwrap() error {
	return e.Err
}

func emptyBufferError(metric string) error {
	return &ComputeError{Metric: metric, Err: ErrEmptyBuffer}
}
