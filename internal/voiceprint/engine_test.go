package voiceprint

import (
	"context"
	"errors"
	"math"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/prasasta/revoice/domain/entities"
	"github.com/prasasta/revoice/internal/audio"
)

func TestSimilarity_SelfIsOne(t *testing.T) {
	e := []float64{150, 20, 0.12, 0.03, 1800, 950, 12.4, -5, 3, 1}
	if got := Similarity(e, e); math.Abs(got-1.0) > 1e-12 {
		t.Errorf("self similarity = %v, want 1.0", got)
	}
}

func TestSimilarity_IdenticalVectors(t *testing.T) {
	a := []float64{1, 2, 3, 4}
	b := []float64{1, 2, 3, 4}
	if got := Similarity(a, b); math.Abs(got-1.0) > 1e-12 {
		t.Errorf("similarity of identical vectors = %v, want 1.0", got)
	}
}

func TestSimilarity_TruncatesToCommonPrefix(t *testing.T) {
	a := []float64{1, 0}
	b := []float64{1, 0, 99, -40, 7}
	if got := Similarity(a, b); got != 1.0 {
		t.Errorf("prefix similarity = %v, want 1.0", got)
	}
}

func TestSimilarity_ZeroNorm(t *testing.T) {
	if got := Similarity([]float64{0, 0}, []float64{1, 2}); got != 0 {
		t.Errorf("zero-norm similarity = %v, want 0", got)
	}
	if got := Similarity(nil, []float64{1}); got != 0 {
		t.Errorf("empty similarity = %v, want 0", got)
	}
}

func TestAdapt_TraditionalNudgesWithinBounds(t *testing.T) {
	engine := NewEngine(nil, zaptest.NewLogger(t))
	base := entities.DefaultSynthesisParams()

	vectors := [][]float64{
		{250, 30, 0.25, 0.05, 1800, 950, 12, -5},  // high female pitch, loud
		{110, 15, 0.02, 0.01, 1200, 700, 9, -3},   // low male pitch, quiet
		{500, 90, 5.0, 2.0, 9999, 9999, 99, 42},   // absurd outliers
		{0, 0, 0, 0, 0, 0, 0, 0},                  // silence
	}
	for _, vec := range vectors {
		emb := Embedding{Kind: entities.EmbeddingKindTraditional, Vector: vec}
		got := engine.Adapt(emb, base)
		if got.Pitch < entities.MinPitch || got.Pitch > entities.MaxPitch {
			t.Errorf("vector %v: pitch %v out of range", vec, got.Pitch)
		}
		if got.Energy < entities.MinEnergy || got.Energy > entities.MaxEnergy {
			t.Errorf("vector %v: energy %v out of range", vec, got.Energy)
		}
	}

	if base.Pitch != 0 || base.Energy != 1 {
		t.Error("Adapt must not mutate the base params")
	}
}

func TestAdapt_TraditionalDirection(t *testing.T) {
	engine := NewEngine(nil, zaptest.NewLogger(t))
	base := entities.DefaultSynthesisParams()

	high := Embedding{Kind: entities.EmbeddingKindTraditional, Vector: []float64{250, 10, 0.1, 0.01}}
	low := Embedding{Kind: entities.EmbeddingKindTraditional, Vector: []float64{110, 10, 0.1, 0.01}}

	if got := engine.Adapt(high, base); got.Pitch <= base.Pitch {
		t.Errorf("high-pitched voice should raise pitch, got %v", got.Pitch)
	}
	if got := engine.Adapt(low, base); got.Pitch >= base.Pitch {
		t.Errorf("low-pitched voice should lower pitch, got %v", got.Pitch)
	}
}

func TestAdapt_NeuralPassthrough(t *testing.T) {
	engine := NewEngine(nil, zaptest.NewLogger(t))
	base := entities.DefaultSynthesisParams()
	vec := make([]float64, 192)
	for i := range vec {
		vec[i] = float64(i) * 0.01
	}

	got := engine.Adapt(Embedding{Kind: entities.EmbeddingKindNeural, Vector: vec}, base)
	if got.Pitch != base.Pitch || got.Energy != base.Energy || got.Speed != base.Speed {
		t.Error("neural embedding must leave scalar params untouched")
	}
	if len(got.SpeakerEmbedding) != len(vec) {
		t.Fatalf("speaker embedding length = %d, want %d", len(got.SpeakerEmbedding), len(vec))
	}
	got.SpeakerEmbedding[0] = 999
	if vec[0] == 999 {
		t.Error("speaker embedding must be a copy, not an alias")
	}
}

func TestExtract_FallsBackOnModelFailure(t *testing.T) {
	engine := NewEngine(failingModel{}, zaptest.NewLogger(t))
	clip := sineClip(16000, 1.0, 220)

	emb, features := engine.Extract(context.Background(), clip)
	if emb.Kind != entities.EmbeddingKindTraditional {
		t.Fatalf("kind = %s, want traditional fallback", emb.Kind)
	}
	if len(emb.Vector) == 0 {
		t.Fatal("fallback embedding is empty")
	}
	if features.EnergyMean <= 0 {
		t.Error("features should still be extracted on fallback")
	}
}

func TestExtract_PrefersModel(t *testing.T) {
	vec := make([]float64, 192)
	vec[0] = 1
	engine := NewEngine(fixedModel{vec: vec}, zaptest.NewLogger(t))

	emb, _ := engine.Extract(context.Background(), sineClip(16000, 1.0, 220))
	if emb.Kind != entities.EmbeddingKindNeural {
		t.Fatalf("kind = %s, want neural", emb.Kind)
	}
	if len(emb.Vector) != 192 {
		t.Fatalf("vector length = %d, want 192", len(emb.Vector))
	}
}

func TestFindSimilar_RanksAndFilters(t *testing.T) {
	engine := NewEngine(nil, zaptest.NewLogger(t))
	query := Embedding{Kind: entities.EmbeddingKindTraditional, Vector: []float64{1, 0, 0}}

	profiles := []*entities.VoiceProfile{
		{ID: "far", Name: "far", EmbeddingKind: entities.EmbeddingKindTraditional, Embedding: []float64{-1, 0.5, 0}},
		{ID: "exact", Name: "exact", EmbeddingKind: entities.EmbeddingKindTraditional, Embedding: []float64{1, 0, 0}},
		{ID: "neural", Name: "neural", EmbeddingKind: entities.EmbeddingKindNeural, Embedding: []float64{1, 0, 0}},
		{ID: "close", Name: "close", EmbeddingKind: entities.EmbeddingKindTraditional, Embedding: []float64{0.9, 0.1, 0}},
		{ID: "empty", Name: "empty", EmbeddingKind: entities.EmbeddingKindTraditional},
	}

	matches := engine.FindSimilar(profiles, query, 10)
	if len(matches) != 3 {
		t.Fatalf("got %d matches, want 3 (kind and empty filtered)", len(matches))
	}
	if matches[0].ProfileID != "exact" {
		t.Errorf("best match = %s, want exact", matches[0].ProfileID)
	}
	if matches[0].Similarity != 1.0 {
		t.Errorf("best similarity = %v, want 1.0", matches[0].Similarity)
	}
	if matches[1].ProfileID != "close" || matches[2].ProfileID != "far" {
		t.Errorf("ranking wrong: %+v", matches)
	}

	top1 := engine.FindSimilar(profiles, query, 1)
	if len(top1) != 1 || top1[0].ProfileID != "exact" {
		t.Errorf("topN cut wrong: %+v", top1)
	}
}

type failingModel struct{}

func (failingModel) Embed(ctx context.Context, clip audio.Clip) ([]float64, error) {
	return nil, errors.New("model unavailable")
}

type fixedModel struct {
	vec []float64
}

func (m fixedModel) Embed(ctx context.Context, clip audio.Clip) ([]float64, error) {
	return m.vec, nil
}

func sineClip(rate int, seconds, freq float64) audio.Clip {
	samples := make([]float64, int(seconds*float64(rate)))
	for i := range samples {
		samples[i] = 0.5 * math.Sin(2*math.Pi*freq*float64(i)/float64(rate))
	}
	return audio.Clip{Samples: samples, Rate: rate}
}
