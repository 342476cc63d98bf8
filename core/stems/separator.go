// Package stems splits a mix into vocals, drums, bass and other.
package stems

import (
	"context"
	"fmt"

	"mixlens/model"
)

// Separator produces stem files for an input mix. The returned map always
// holds SourceMix; stems the tool did not produce are absent.
type Separator interface {
	Separate(ctx context.Context, inputPath, outputDir string) (map[model.Source]string, error)
}

// SeparationError reports a failure of the external separation tool.
type SeparationError struct {
	Input  string
	Err    error
	Stderr string
}

func (e *SeparationError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("separate %s: %v\nDemucs Error: %s", e.Input, e.Err, e.Stderr)
	}
	return fmt.Sprintf("separate %s: %v", e.Input, e.Err)
}

func (e *SeparationError) Unwrap() error {
	return e.Err
}

// PassthroughSeparator performs no separation and returns only the mix.
type PassthroughSeparator struct{}

func (PassthroughSeparator) Separate(_ context.Context, inputPath, _ string) (map[model.Source]string, error) {
	return map[model.Source]string{model.SourceMix: inputPath}, nil
}

// New returns the separator named by kind: "demucs" or "none".
func New(kind, demucsPath, demucsModel string) (Separator, error) {
	switch kind {
	case "demucs":
		return NewDemucsSeparator(demucsPath, demucsModel), nil
	case "none", "":
		return PassthroughSeparator{}, nil
	default:
		return nil, fmt.Errorf("unknown separator %q", kind)
	}
}
