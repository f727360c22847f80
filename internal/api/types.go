package api

import (
	"errors"
	"net/http"

	"github.com/prasasta/revoice/domain/entities"
)

// SynthesisRequestBody represents the request payload for speech synthesis
type SynthesisRequestBody struct {
	Text           string  `json:"text" validate:"required"`
	VoiceProfileID string  `json:"voice_profile_id"`
	Speed          float64 `json:"speed"`
	Pitch          float64 `json:"pitch"`
	Energy         float64 `json:"energy"`
	Emotion        string  `json:"emotion"`
	PauseFactor    float64 `json:"pause_factor"`
	Preview        bool    `json:"preview"`
}

// Params converts the body into domain synthesis params, applying defaults
// for omitted fields.
func (b SynthesisRequestBody) Params() entities.SynthesisParams {
	params := entities.DefaultSynthesisParams()
	if b.Speed != 0 {
		params.Speed = b.Speed
	}
	if b.Pitch != 0 {
		params.Pitch = b.Pitch
	}
	if b.Energy != 0 {
		params.Energy = b.Energy
	}
	if b.Emotion != "" {
		params.Emotion = b.Emotion
	}
	if b.PauseFactor != 0 {
		params.PauseFactor = b.PauseFactor
	}
	return params.Clamp()
}

// ReplaceRequestBody represents the request payload for a voice replacement
type ReplaceRequestBody struct {
	TranscriptionTaskID string  `json:"transcription_task_id" validate:"required"`
	VoiceProfileID      string  `json:"voice_profile_id" validate:"required"`
	Speed               float64 `json:"speed"`
}

// GenerateRequestBody represents the request payload for courseware narration
type GenerateRequestBody struct {
	CoursewareID   string  `json:"courseware_id" validate:"required"`
	VoiceProfileID string  `json:"voice_profile_id" validate:"required"`
	Speed          float64 `json:"speed"`
}

// TaskResponse is the task status payload
type TaskResponse struct {
	TaskID   string                 `json:"task_id"`
	Kind     entities.TaskKind      `json:"kind"`
	Status   entities.TaskStatus    `json:"status"`
	Progress float64                `json:"progress"`
	Error    string                 `json:"error,omitempty"`
	Artifact *entities.TaskArtifact `json:"artifact,omitempty"`
}

func taskResponse(t *entities.PipelineTask) TaskResponse {
	return TaskResponse{
		TaskID:   t.ID,
		Kind:     t.Kind,
		Status:   t.Status,
		Progress: t.Progress,
		Error:    t.Error,
		Artifact: t.Artifact,
	}
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// statusOf maps domain errors to HTTP status codes.
func statusOf(err error) (int, string) {
	switch {
	case errors.Is(err, entities.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, entities.ErrPrerequisiteNotReady):
		return http.StatusConflict, "prerequisite_not_ready"
	case errors.Is(err, entities.ErrInvalidTransition):
		return http.StatusConflict, "invalid_transition"
	case errors.Is(err, entities.ErrMediaUnreadable):
		return http.StatusUnprocessableEntity, "media_unreadable"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
