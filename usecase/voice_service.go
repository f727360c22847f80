package usecase

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/prasasta/revoice/domain/entities"
	"github.com/prasasta/revoice/domain/repositories"
	"github.com/prasasta/revoice/internal/audio"
	"github.com/prasasta/revoice/internal/metrics"
	"github.com/prasasta/revoice/internal/voiceprint"
)

// Reference samples must carry enough speech to fingerprint but stay small
// enough for in-memory analysis.
const (
	minSampleSeconds = 5.0
	maxSampleSeconds = 30.0
)

// VoiceService manages voice profiles: sample upload, asynchronous embedding
// extraction, similarity search, and the normalized reference model used for
// preview playback.
type VoiceService struct {
	voices  repositories.VoiceRepository
	engine  *voiceprint.Engine
	dataDir string
	logger  *zap.Logger
}

// NewVoiceService creates a new voice service
func NewVoiceService(voices repositories.VoiceRepository, engine *voiceprint.Engine, dataDir string, logger *zap.Logger) *VoiceService {
	return &VoiceService{
		voices:  voices,
		engine:  engine,
		dataDir: dataDir,
		logger:  logger,
	}
}

// CreateProfile stores an uploaded voice sample and starts embedding
// extraction in the background. The returned profile is in processing state.
func (s *VoiceService) CreateProfile(ctx context.Context, name, description string, tags []string, sample []byte) (*entities.VoiceProfile, error) {
	if len(sample) == 0 {
		return nil, fmt.Errorf("voice sample is empty")
	}

	id := uuid.NewString()
	dir := filepath.Join(s.dataDir, "voice_samples")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create sample dir: %w", err)
	}
	samplePath := filepath.Join(dir, id+".wav")
	if err := os.WriteFile(samplePath, sample, 0o644); err != nil {
		return nil, fmt.Errorf("store voice sample: %w", err)
	}

	profile := &entities.VoiceProfile{
		ID:          id,
		Name:        name,
		Description: description,
		Tags:        tags,
		SamplePath:  samplePath,
		Status:      entities.VoiceProfileStatusProcessing,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	if err := profile.Validate(); err != nil {
		return nil, err
	}
	if err := s.voices.Create(ctx, profile); err != nil {
		return nil, fmt.Errorf("persist voice profile: %w", err)
	}

	go s.process(context.Background(), id)
	return profile, nil
}

// process extracts the embedding and builds the normalized voice model. It
// runs detached from the upload request.
func (s *VoiceService) process(ctx context.Context, id string) {
	profile, err := s.voices.Get(ctx, id)
	if err != nil {
		s.logger.Error("voice profile vanished before processing", zap.String("profileID", id), zap.Error(err))
		return
	}

	clip, err := audio.LoadWAV(profile.SamplePath)
	if err != nil {
		s.failProfile(ctx, profile, fmt.Errorf("%w: %v", entities.ErrMediaUnreadable, err))
		return
	}
	if d := clip.Duration(); d < minSampleSeconds || d > maxSampleSeconds {
		s.failProfile(ctx, profile, fmt.Errorf("sample duration %.1fs outside %.0f-%.0fs range",
			d, minSampleSeconds, maxSampleSeconds))
		return
	}

	embedding, features := s.engine.Extract(ctx, clip)

	// Louder, pitched samples score higher, capped below a perfect score.
	quality := math.Min(0.95,
		0.5+0.5*(features.EnergyMean/0.1)+0.2*math.Min(1, features.PitchMean/500))

	// The voice model is the sample with leading/trailing silence removed
	// and peak-normalized, kept for preview playback.
	model := audio.TrimSilence(clip, -40)
	model.Samples = audio.Normalize(model.Samples)
	modelDir := filepath.Join(s.dataDir, "voice_models")
	if err := os.MkdirAll(modelDir, 0o755); err != nil {
		s.failProfile(ctx, profile, err)
		return
	}
	modelPath := filepath.Join(modelDir, id+".wav")
	if err := audio.SaveWAV(modelPath, model); err != nil {
		s.failProfile(ctx, profile, err)
		return
	}

	profile.Embedding = embedding.Vector
	profile.EmbeddingKind = embedding.Kind
	profile.QualityScore = quality
	profile.ModelPath = modelPath
	profile.Status = entities.VoiceProfileStatusReady
	if err := s.voices.Update(ctx, profile); err != nil {
		s.logger.Error("failed to persist processed profile", zap.String("profileID", id), zap.Error(err))
		return
	}

	metrics.RecordVoiceQuality(quality)
	s.logger.Info("voice profile ready",
		zap.String("profileID", id),
		zap.String("embeddingKind", string(embedding.Kind)),
		zap.Float64("qualityScore", quality))
}

func (s *VoiceService) failProfile(ctx context.Context, profile *entities.VoiceProfile, cause error) {
	profile.Status = entities.VoiceProfileStatusFailed
	profile.Error = cause.Error()
	if err := s.voices.Update(ctx, profile); err != nil {
		s.logger.Error("failed to persist failed profile", zap.String("profileID", profile.ID), zap.Error(err))
	}
	s.logger.Warn("voice profile processing failed",
		zap.String("profileID", profile.ID),
		zap.Error(cause))
}

// Get returns a stored voice profile.
func (s *VoiceService) Get(ctx context.Context, id string) (*entities.VoiceProfile, error) {
	return s.voices.Get(ctx, id)
}

// List returns every stored voice profile.
func (s *VoiceService) List(ctx context.Context) ([]*entities.VoiceProfile, error) {
	return s.voices.List(ctx)
}

// Delete removes a profile and its stored audio.
func (s *VoiceService) Delete(ctx context.Context, id string) error {
	profile, err := s.voices.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.voices.Delete(ctx, id); err != nil {
		return err
	}
	for _, p := range []string{profile.SamplePath, profile.ModelPath} {
		if p != "" {
			os.Remove(p)
		}
	}
	return nil
}

// FindSimilar ranks every other ready profile against the given one.
func (s *VoiceService) FindSimilar(ctx context.Context, id string, topN int) ([]voiceprint.Match, error) {
	query, err := s.voices.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if query.Status != entities.VoiceProfileStatusReady {
		return nil, fmt.Errorf("profile %s is %s: %w", id, query.Status, entities.ErrPrerequisiteNotReady)
	}

	all, err := s.voices.List(ctx)
	if err != nil {
		return nil, err
	}
	others := all[:0]
	for _, p := range all {
		if p.ID != id {
			others = append(others, p)
		}
	}

	emb := voiceprint.Embedding{Kind: query.EmbeddingKind, Vector: query.Embedding}
	return s.engine.FindSimilar(others, emb, topN), nil
}
