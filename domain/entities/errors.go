package entities

import (
	"errors"
	"fmt"
)

// Error taxonomy shared by every pipeline stage. Stage workers wrap these
// with %w so callers can classify failures with errors.Is / errors.As.
var (
	// ErrNotFound indicates an unknown asset, task, or voice profile id.
	ErrNotFound = errors.New("not found")

	// ErrInvalidTransition indicates a mutation attempted on a task that
	// already reached a terminal state.
	ErrInvalidTransition = errors.New("invalid task transition")

	// ErrPrerequisiteNotReady indicates a dependent task is not completed.
	ErrPrerequisiteNotReady = errors.New("prerequisite task not completed")

	// ErrMediaUnreadable indicates corrupt or unsupported input media.
	ErrMediaUnreadable = errors.New("media unreadable")
)

// SynthesisError reports which transcript segment failed during
// per-segment synthesis. Index is 0-based.
type SynthesisError struct {
	SegmentIndex int
	Err          error
}

func (e *SynthesisError) Error() string {
	return fmt.Sprintf("synthesis failed at segment %d: %v", e.SegmentIndex, e.Err)
}

func (e *SynthesisError) Unwrap() error {
	return e.Err
}
