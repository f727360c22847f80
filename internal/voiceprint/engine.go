// Package voiceprint turns a reference audio sample into a fixed, comparable
// acoustic fingerprint and uses it to personalize synthesis parameters.
package voiceprint

import (
	"context"
	"math"
	"sort"

	"go.uber.org/zap"

	"github.com/prasasta/revoice/domain/entities"
	"github.com/prasasta/revoice/internal/audio"
)

// Embedding is an acoustic fingerprint tagged with how it was produced.
// Vectors of different kinds are never compared against each other.
type Embedding struct {
	Kind   entities.EmbeddingKind
	Vector []float64
}

// Model is an optional model-derived extractor backed by the speech engine.
// When absent or failing, the engine falls back to hand-engineered features.
type Model interface {
	Embed(ctx context.Context, clip audio.Clip) ([]float64, error)
}

// Engine extracts, compares, and applies voice embeddings.
type Engine struct {
	model  Model
	logger *zap.Logger
}

// NewEngine creates an embedding engine. model may be nil.
func NewEngine(model Model, logger *zap.Logger) *Engine {
	return &Engine{model: model, logger: logger}
}

// modelSampleRate is what speaker-embedding models are trained on.
const modelSampleRate = 16000

// Extract computes the embedding for a reference sample. A model-derived
// embedding is preferred; extraction failure there falls back to the
// hand-engineered vector transparently and is not surfaced as an error.
func (e *Engine) Extract(ctx context.Context, clip audio.Clip) (Embedding, audio.Features) {
	if e.model != nil {
		prepared := audio.Resample(clip, modelSampleRate)
		prepared.Samples = audio.Normalize(prepared.Samples)

		vec, err := e.model.Embed(ctx, prepared)
		if err == nil && len(vec) > 0 {
			return Embedding{Kind: entities.EmbeddingKindNeural, Vector: vec},
				audio.ExtractFeatures(clip)
		}
		if err != nil {
			e.logger.Warn("model embedding failed, using hand-engineered features",
				zap.Error(err))
		}
	}

	features := audio.ExtractFeatures(clip)
	return Embedding{Kind: entities.EmbeddingKindTraditional, Vector: features.Embedding()}, features
}

// Similarity computes cosine similarity on the common-length prefix of two
// vectors, rescaled from [-1,1] to [0,1]. Returns 0 when either vector has
// zero norm.
func Similarity(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	if n == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	cos := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	return (cos + 1) / 2
}

// Adapt derives synthesis params biased toward the embedded voice. The base
// params are copied, never mutated, and the result is clamped to the valid
// ranges. Callers must always adapt from the original base params: the
// formula is not idempotent, so adapting an already-adapted result would
// compound the nudge.
func (e *Engine) Adapt(emb Embedding, base entities.SynthesisParams) entities.SynthesisParams {
	params := base

	if emb.Kind == entities.EmbeddingKindNeural {
		// Neural embeddings condition the synthesizer directly; scalar
		// params stay untouched.
		params.SpeakerEmbedding = append([]float64(nil), emb.Vector...)
		return params
	}

	if len(emb.Vector) < 4 {
		return params.Clamp()
	}

	pitchMean := emb.Vector[0]
	energyMean := emb.Vector[2]

	// Map the speaker's mean pitch around a 170 Hz midpoint: female voices
	// typically sit above 220 Hz, male voices around 100-170 Hz.
	if pitchMean > 100 && pitchMean < 300 {
		params.Pitch = base.Pitch + (pitchMean-170)/100*0.3
	}

	// Nudge energy relative to an assumed 0.1-0.3 normal RMS band.
	if energyMean > 0 {
		adj := (energyMean - 0.1) / 0.2
		factor := 1 + adj*0.2
		if factor < 0.8 {
			factor = 0.8
		}
		if factor > 1.2 {
			factor = 1.2
		}
		params.Energy = base.Energy * factor
	}

	return params.Clamp()
}

// Match is one similarity-search result.
type Match struct {
	ProfileID  string  `json:"profile_id"`
	Name       string  `json:"name"`
	Similarity float64 `json:"similarity"`
}

// FindSimilar ranks stored profiles against a query embedding, descending,
// and returns the top n. Profiles whose embedding kind differs from the
// query are skipped. Ties keep insertion order (stable sort).
func (e *Engine) FindSimilar(profiles []*entities.VoiceProfile, query Embedding, topN int) []Match {
	var matches []Match
	for _, p := range profiles {
		if len(p.Embedding) == 0 || p.EmbeddingKind != query.Kind {
			continue
		}
		matches = append(matches, Match{
			ProfileID:  p.ID,
			Name:       p.Name,
			Similarity: Similarity(query.Vector, p.Embedding),
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Similarity > matches[j].Similarity
	})
	if topN > 0 && len(matches) > topN {
		matches = matches[:topN]
	}
	return matches
}
