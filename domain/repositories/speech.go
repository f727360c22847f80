package repositories

import (
	"context"

	"github.com/prasasta/revoice/domain/entities"
)

// AudioClip is decoded mono PCM audio exchanged with the speech engine.
type AudioClip struct {
	Samples    []float64
	SampleRate int
}

// Duration returns the clip length in seconds.
func (c AudioClip) Duration() float64 {
	if c.SampleRate <= 0 {
		return 0
	}
	return float64(len(c.Samples)) / float64(c.SampleRate)
}

// Recognizer abstracts the speech engine's recognition capability. The
// transcription stage feeds it one speech-active interval at a time.
type Recognizer interface {
	// Recognize converts the clip to text. The interval index and bounds
	// are provided so fallback implementations can produce deterministic,
	// interval-stamped text.
	Recognize(ctx context.Context, clip AudioClip, interval Interval, language string) (string, error)
	Name() string
}

// Interval is a speech-active span detected by the VAD pass.
type Interval struct {
	Index int
	Start float64
	End   float64
}

// Synthesizer abstracts the speech engine's synthesis capability.
type Synthesizer interface {
	// Synthesize renders text into audio using the given params. Params
	// arrive pre-adjusted by the voice embedding engine.
	Synthesize(ctx context.Context, text string, params entities.SynthesisParams) (AudioClip, error)
	Name() string
}

// StreamingSynthesizer extends Synthesizer with chunked delivery for
// low-latency preview over a live connection.
type StreamingSynthesizer interface {
	Synthesizer
	SynthesizeStream(ctx context.Context, text string, params entities.SynthesisParams, chunks chan<- AudioClip) error
}

// TextGenerator produces narration text when no recognition result is
// available. The Gemini adapter implements it; the script adapter is the
// deterministic fallback.
type TextGenerator interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
}
