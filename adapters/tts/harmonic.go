package tts

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"math/rand"

	"go.uber.org/zap"

	"github.com/prasasta/revoice/domain/entities"
	"github.com/prasasta/revoice/domain/repositories"
)

const (
	sampleRate    = 24000
	charsPerSec   = 5.0 // assumed reading rate at speed 1.0
	syllableWidth = 0.15
	streamChunk   = 4096
)

// HarmonicSynthesizer renders speech-shaped audio from text without an
// external engine. A pitch-scaled carrier with harmonics is shaped by a
// per-syllable envelope, emotion styling, tremolo and consonant noise.
// Output is deterministic for a given text and params.
type HarmonicSynthesizer struct {
	logger *zap.Logger
}

var _ repositories.StreamingSynthesizer = (*HarmonicSynthesizer)(nil)

func NewHarmonicSynthesizer(logger *zap.Logger) *HarmonicSynthesizer {
	return &HarmonicSynthesizer{logger: logger}
}

func (h *HarmonicSynthesizer) Name() string {
	return "harmonic"
}

// Synthesize implements repositories.Synthesizer
func (h *HarmonicSynthesizer) Synthesize(ctx context.Context, text string, params entities.SynthesisParams) (repositories.AudioClip, error) {
	if err := ctx.Err(); err != nil {
		return repositories.AudioClip{}, err
	}
	chars := len([]rune(text))
	if chars == 0 {
		return repositories.AudioClip{}, fmt.Errorf("cannot synthesize empty text")
	}

	params = params.Clamp()
	duration := math.Max(1.0, float64(chars)/(charsPerSec*params.Speed))
	n := int(duration * sampleRate)

	baseFreq := 170 * math.Pow(2, params.Pitch*0.5)
	carrier := make([]float64, n)
	for i := range carrier {
		t := float64(i) / sampleRate
		c := math.Sin(2 * math.Pi * baseFreq * t)
		var harmonics float64
		for k := 2; k <= 5; k++ {
			harmonics += (1 / float64(k)) * math.Sin(2*math.Pi*baseFreq*float64(k)*t)
		}
		carrier[i] = 0.7*c + 0.3*harmonics
	}

	envelope := syllableEnvelope(n, chars, duration, params.PauseFactor)
	gaussianSmooth(envelope, 0.01*sampleRate)
	applyEmotion(carrier, envelope, params.Emotion, duration)

	rng := rand.New(rand.NewSource(textSeed(text)))
	audio := make([]float64, n)
	for i := range audio {
		t := float64(i) / sampleRate
		s := carrier[i] * envelope[i] * params.Energy
		noise := (rng.Float64()*2 - 1) * 0.05
		s += noise * envelope[i] * 0.3
		s *= 1.0 + 0.03*math.Sin(2*math.Pi*5*t)
		audio[i] = s
	}

	applyFade(audio)
	normalize(audio)

	h.logger.Debug("synthesized clip",
		zap.Int("chars", chars),
		zap.Float64("duration", duration),
		zap.Float64("base_freq", baseFreq))

	return repositories.AudioClip{Samples: audio, SampleRate: sampleRate}, nil
}

// SynthesizeStream implements repositories.StreamingSynthesizer. The clip is
// rendered up front and delivered in fixed-size chunks; the channel is not
// closed so callers can stream several texts over one channel.
func (h *HarmonicSynthesizer) SynthesizeStream(ctx context.Context, text string, params entities.SynthesisParams, chunks chan<- repositories.AudioClip) error {
	clip, err := h.Synthesize(ctx, text, params)
	if err != nil {
		return err
	}
	for off := 0; off < len(clip.Samples); off += streamChunk {
		end := off + streamChunk
		if end > len(clip.Samples) {
			end = len(clip.Samples)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case chunks <- repositories.AudioClip{Samples: clip.Samples[off:end], SampleRate: clip.SampleRate}:
		}
	}
	return nil
}

// syllableEnvelope places one half-sine bump per character across the first
// 80% of the clip, over a 0.1 floor. The pause factor stretches the gaps by
// shrinking the portion of the clip the bumps occupy.
func syllableEnvelope(n, chars int, duration, pauseFactor float64) []float64 {
	envelope := make([]float64, n)
	for i := range envelope {
		envelope[i] = 0.1
	}

	span := duration * 0.8 / pauseFactor
	if span > duration*0.8 {
		span = duration * 0.8
	}
	syllables := chars
	if syllables < 1 {
		syllables = 1
	}
	for s := 0; s < syllables; s++ {
		var pos float64
		if syllables > 1 {
			pos = span * float64(s) / float64(syllables-1)
		}
		lo := int(pos * sampleRate)
		hi := int((pos + syllableWidth) * sampleRate)
		if hi > n {
			hi = n
		}
		for i := lo; i < hi; i++ {
			t := float64(i)/sampleRate - pos
			envelope[i] = 0.5 + 0.5*math.Sin(math.Pi*t/syllableWidth)
		}
	}
	return envelope
}

func applyEmotion(carrier, envelope []float64, emotion string, duration float64) {
	n := len(carrier)
	switch emotion {
	case "happy":
		for i := range carrier {
			t := float64(i) / sampleRate
			carrier[i] += 0.1 * math.Sin(2*math.Pi*3*t/duration)
			envelope[i] = math.Pow(envelope[i], 0.9)
		}
	case "sad":
		for i := range carrier {
			t := float64(i) / sampleRate
			carrier[i] -= 0.05 * math.Sin(2*math.Pi*1*t/duration)
			envelope[i] = math.Pow(envelope[i], 1.2)
		}
	case "serious":
		for i := 0; i < n; i++ {
			envelope[i] = math.Min(math.Pow(envelope[i], 1.1), 0.9)
		}
	}
}

// gaussianSmooth approximates a gaussian blur with three box passes.
func gaussianSmooth(data []float64, sigma float64) {
	w := int(sigma*math.Sqrt(12.0/3.0+1.0)) | 1
	if w < 3 {
		return
	}
	for pass := 0; pass < 3; pass++ {
		boxBlur(data, w)
	}
}

func boxBlur(data []float64, w int) {
	half := w / 2
	out := make([]float64, len(data))
	var sum float64
	count := 0
	for i := 0; i < len(data) && i <= half; i++ {
		sum += data[i]
		count++
	}
	for i := range data {
		out[i] = sum / float64(count)
		if next := i + half + 1; next < len(data) {
			sum += data[next]
			count++
		}
		if prev := i - half; prev >= 0 {
			sum -= data[prev]
			count--
		}
	}
	copy(data, out)
}

func applyFade(audio []float64) {
	fadeLen := int(0.05 * sampleRate)
	if len(audio) <= 2*fadeLen {
		return
	}
	for i := 0; i < fadeLen; i++ {
		gain := float64(i) / float64(fadeLen-1)
		audio[i] *= gain
		audio[len(audio)-1-i] *= gain
	}
}

func normalize(audio []float64) {
	var peak float64
	for _, s := range audio {
		if a := math.Abs(s); a > peak {
			peak = a
		}
	}
	if peak > 0 {
		scale := 0.95 / peak
		for i := range audio {
			audio[i] *= scale
		}
	}
}

func textSeed(text string) int64 {
	h := fnv.New64a()
	h.Write([]byte(text))
	return int64(h.Sum64())
}
