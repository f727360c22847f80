package entities

// Bounds for synthesis parameters. Speed and energy are multiplicative
// factors, pitch is a normalized offset mapped to semitones downstream.
const (
	MinSpeed  = 0.5
	MaxSpeed  = 2.0
	MinPitch  = -1.0
	MaxPitch  = 1.0
	MinEnergy = 0.5
	MaxEnergy = 2.0
)

// SynthesisParams are passed by value into every synthesis call. Stages
// derive per-call copies; a caller's base params are never mutated.
type SynthesisParams struct {
	Speed       float64 `json:"speed" bson:"speed"`
	Pitch       float64 `json:"pitch" bson:"pitch"`
	Energy      float64 `json:"energy" bson:"energy"`
	Emotion     string  `json:"emotion,omitempty" bson:"emotion"`
	PauseFactor float64 `json:"pause_factor,omitempty" bson:"pause_factor"`

	// SpeakerEmbedding carries a neural embedding through to the
	// synthesizer unchanged. Nil for traditional voice adaptation.
	SpeakerEmbedding []float64 `json:"speaker_embedding,omitempty" bson:"speaker_embedding"`

	// Preview asks the synthesizer for a faster, lower-fidelity render.
	Preview bool `json:"is_preview,omitempty" bson:"is_preview"`
}

// DefaultSynthesisParams returns the neutral parameter set.
func DefaultSynthesisParams() SynthesisParams {
	return SynthesisParams{
		Speed:       1.0,
		Pitch:       0.0,
		Energy:      1.0,
		Emotion:     "neutral",
		PauseFactor: 1.0,
	}
}

// Clamp forces every scalar into its valid range.
func (p SynthesisParams) Clamp() SynthesisParams {
	p.Speed = clamp(p.Speed, MinSpeed, MaxSpeed)
	p.Pitch = clamp(p.Pitch, MinPitch, MaxPitch)
	p.Energy = clamp(p.Energy, MinEnergy, MaxEnergy)
	if p.PauseFactor <= 0 {
		p.PauseFactor = 1.0
	}
	return p
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
