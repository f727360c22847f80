package entities

import (
	"errors"
	"time"
)

// EmbeddingKind tags how an acoustic embedding was produced. Two embeddings
// are only meaningfully comparable when both carry the same kind.
type EmbeddingKind string

const (
	// EmbeddingKindNeural is a model-derived speaker embedding. It is passed
	// through to the synthesizer as a conditioning input.
	EmbeddingKindNeural EmbeddingKind = "neural"

	// EmbeddingKindTraditional is the hand-engineered acoustic vector:
	// [pitch_mean, pitch_std, energy_mean, energy_std, spectral_centroid,
	// spectral_bandwidth, spectral_contrast, mfcc_means...].
	EmbeddingKindTraditional EmbeddingKind = "traditional"
)

// VoiceProfileStatus is the lifecycle of an uploaded voice sample.
type VoiceProfileStatus string

const (
	VoiceProfileStatusProcessing VoiceProfileStatus = "processing"
	VoiceProfileStatusReady      VoiceProfileStatus = "ready"
	VoiceProfileStatusFailed     VoiceProfileStatus = "failed"
)

// VoiceProfile is a stored acoustic fingerprint plus optional normalized
// reference audio for a target voice. The embedding is write-once.
type VoiceProfile struct {
	ID            string             `json:"id" bson:"id"`
	Name          string             `json:"name" bson:"name"`
	Description   string             `json:"description,omitempty" bson:"description"`
	Tags          []string           `json:"tags,omitempty" bson:"tags"`
	SamplePath    string             `json:"sample_path" bson:"sample_path"`
	ModelPath     string             `json:"model_path,omitempty" bson:"model_path"`
	Embedding     []float64          `json:"embedding,omitempty" bson:"embedding"`
	EmbeddingKind EmbeddingKind      `json:"embedding_kind,omitempty" bson:"embedding_kind"`
	QualityScore  float64            `json:"quality_score" bson:"quality_score"`
	Status        VoiceProfileStatus `json:"status" bson:"status"`
	Error         string             `json:"error,omitempty" bson:"error"`
	CreatedAt     time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at" bson:"updated_at"`
}

func (v *VoiceProfile) Validate() error {
	if v.Name == "" {
		return errors.New("voice profile name is required")
	}
	if v.SamplePath == "" {
		return errors.New("voice profile sample path is required")
	}
	return nil
}
