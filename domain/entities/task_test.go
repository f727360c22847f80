package entities

import (
	"errors"
	"testing"
)

func TestPipelineTask_CanTransition(t *testing.T) {
	tests := []struct {
		name    string
		from    TaskStatus
		to      TaskStatus
		wantErr bool
	}{
		{"pending to processing", TaskStatusPending, TaskStatusProcessing, false},
		{"processing to completed", TaskStatusProcessing, TaskStatusCompleted, false},
		{"processing to failed", TaskStatusProcessing, TaskStatusFailed, false},
		{"pending to failed", TaskStatusPending, TaskStatusFailed, false},
		{"processing back to pending", TaskStatusProcessing, TaskStatusPending, true},
		{"completed to processing", TaskStatusCompleted, TaskStatusProcessing, true},
		{"failed to completed", TaskStatusFailed, TaskStatusCompleted, true},
		{"unknown status", TaskStatusPending, TaskStatus("paused"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			task := &PipelineTask{ID: "t1", Status: tt.from}
			err := task.CanTransition(tt.to)
			if (err != nil) != tt.wantErr {
				t.Errorf("CanTransition(%s -> %s) error = %v, wantErr %v", tt.from, tt.to, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidTransition) {
				t.Errorf("expected ErrInvalidTransition, got %v", err)
			}
		})
	}
}

func TestPipelineTask_ValidProgress(t *testing.T) {
	task := &PipelineTask{Progress: 0.5}

	if !task.ValidProgress(0.5) {
		t.Error("equal progress should be valid")
	}
	if !task.ValidProgress(0.9) {
		t.Error("higher progress should be valid")
	}
	if task.ValidProgress(0.3) {
		t.Error("lower progress should be invalid")
	}
	if task.ValidProgress(1.1) {
		t.Error("progress above 1 should be invalid")
	}
}

func TestTranscript_Validate(t *testing.T) {
	valid := &Transcript{
		Segments: []Segment{
			{Start: 0, End: 2.5, Text: "first"},
			{Start: 2.5, End: 5, Text: "second"},
			{Start: 6, End: 9.5, Text: "third"},
		},
		Language:      "en-US",
		TotalDuration: 10,
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid transcript rejected: %v", err)
	}

	outOfOrder := &Transcript{
		Segments: []Segment{
			{Start: 5, End: 7, Text: "later"},
			{Start: 1, End: 3, Text: "earlier"},
		},
		TotalDuration: 10,
	}
	if err := outOfOrder.Validate(); err == nil {
		t.Error("out-of-order segments should be rejected")
	}

	tooShort := &Transcript{
		Segments:      []Segment{{Start: 0, End: 8, Text: "x"}},
		TotalDuration: 5,
	}
	if err := tooShort.Validate(); err == nil {
		t.Error("total duration below max end should be rejected")
	}

	emptyText := &Transcript{
		Segments:      []Segment{{Start: 0, End: 1, Text: ""}},
		TotalDuration: 1,
	}
	if err := emptyText.Validate(); err == nil {
		t.Error("empty segment text should be rejected")
	}
}

func TestSynthesisParams_Clamp(t *testing.T) {
	p := SynthesisParams{Speed: 9, Pitch: -3, Energy: 0.1, PauseFactor: 1}
	c := p.Clamp()

	if c.Speed != MaxSpeed {
		t.Errorf("speed = %v, want %v", c.Speed, MaxSpeed)
	}
	if c.Pitch != MinPitch {
		t.Errorf("pitch = %v, want %v", c.Pitch, MinPitch)
	}
	if c.Energy != MinEnergy {
		t.Errorf("energy = %v, want %v", c.Energy, MinEnergy)
	}
	if p.Speed != 9 {
		t.Error("Clamp must not mutate the receiver")
	}
}
