package entities

import (
	"errors"
	"fmt"
)

// Segment is a time-bounded, transcribed span of speech.
type Segment struct {
	Start float64 `json:"start" bson:"start"`
	End   float64 `json:"end" bson:"end"`
	Text  string  `json:"text" bson:"text"`
}

func (s Segment) Validate() error {
	if s.Start < 0 {
		return errors.New("segment start must be non-negative")
	}
	if s.End <= s.Start {
		return fmt.Errorf("segment end %.3f must be after start %.3f", s.End, s.Start)
	}
	if s.Text == "" {
		return errors.New("segment text is required")
	}
	return nil
}

// Transcript is an ordered set of segments plus language and total duration.
// It is owned by a transcription task and immutable once that task reaches a
// terminal state.
type Transcript struct {
	Segments      []Segment `json:"segments" bson:"segments"`
	Language      string    `json:"language" bson:"language"`
	TotalDuration float64   `json:"total_duration" bson:"total_duration"`
}

// Validate checks ordering and the total-duration invariant: segments are
// non-decreasing in start, and total duration equals max(end) when segments
// are present.
func (t *Transcript) Validate() error {
	for i, seg := range t.Segments {
		if err := seg.Validate(); err != nil {
			return fmt.Errorf("segment %d: %w", i, err)
		}
		if i > 0 && seg.Start < t.Segments[i-1].Start {
			return fmt.Errorf("segment %d starts before segment %d", i, i-1)
		}
	}
	if len(t.Segments) > 0 {
		maxEnd := 0.0
		for _, seg := range t.Segments {
			if seg.End > maxEnd {
				maxEnd = seg.End
			}
		}
		if t.TotalDuration < maxEnd {
			return fmt.Errorf("total duration %.3f is less than last segment end %.3f", t.TotalDuration, maxEnd)
		}
	}
	return nil
}

// RecomputeDuration sets TotalDuration to max(segment end), keeping the
// current value when it is already larger (asset-detected duration).
func (t *Transcript) RecomputeDuration() {
	for _, seg := range t.Segments {
		if seg.End > t.TotalDuration {
			t.TotalDuration = seg.End
		}
	}
}
