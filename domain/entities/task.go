package entities

import (
	"fmt"
	"time"
)

// TaskKind identifies which pipeline stage owns a task.
type TaskKind string

const (
	TaskKindTranscription TaskKind = "transcribe"
	TaskKindSynthesis     TaskKind = "tts"
	TaskKindReplace       TaskKind = "replace"
	TaskKindCourseware    TaskKind = "courseware"
)

// TaskStatus is the lifecycle state of a pipeline task.
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusProcessing TaskStatus = "processing"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
)

// Terminal reports whether a status admits no further mutation.
func (s TaskStatus) Terminal() bool {
	return s == TaskStatusCompleted || s == TaskStatusFailed
}

// TaskArtifact references the output produced by a completed task.
type TaskArtifact struct {
	Path     string  `json:"path" bson:"path"`
	Duration float64 `json:"duration,omitempty" bson:"duration"`
}

// PipelineTask is the authoritative record of one asynchronous stage
// invocation. A task is mutated only by its owning stage worker and never
// after reaching a terminal state.
type PipelineTask struct {
	ID        string        `json:"id" bson:"id"`
	Kind      TaskKind      `json:"kind" bson:"kind"`
	InputRef  string        `json:"input_ref" bson:"input_ref"`
	Status    TaskStatus    `json:"status" bson:"status"`
	Progress  float64       `json:"progress" bson:"progress"`
	Error     string        `json:"error,omitempty" bson:"error"`
	Artifact  *TaskArtifact `json:"artifact,omitempty" bson:"artifact"`
	CreatedAt time.Time     `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time     `json:"updated_at" bson:"updated_at"`

	// Extra carries stage-specific fields (transcript id, subtitle paths,
	// slide counters). Kept as a loose map so records written by older
	// schema versions still load.
	Extra map[string]any `json:"extra,omitempty" bson:"extra"`
}

// CanTransition validates a status edge of the task state machine.
func (t *PipelineTask) CanTransition(next TaskStatus) error {
	if t.Status.Terminal() {
		return fmt.Errorf("task %s is %s: %w", t.ID, t.Status, ErrInvalidTransition)
	}
	switch next {
	case TaskStatusPending, TaskStatusProcessing, TaskStatusCompleted, TaskStatusFailed:
	default:
		return fmt.Errorf("unknown status %q: %w", next, ErrInvalidTransition)
	}
	if t.Status == TaskStatusProcessing && next == TaskStatusPending {
		return fmt.Errorf("cannot move %s back to pending: %w", t.ID, ErrInvalidTransition)
	}
	return nil
}

// ValidProgress checks monotonic non-decreasing progress within [0,1].
func (t *PipelineTask) ValidProgress(next float64) bool {
	return next >= t.Progress && next >= 0 && next <= 1
}
