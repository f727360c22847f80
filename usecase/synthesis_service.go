package usecase

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/prasasta/revoice/domain/entities"
	"github.com/prasasta/revoice/domain/repositories"
	"github.com/prasasta/revoice/internal/audio"
	"github.com/prasasta/revoice/internal/metrics"
	"github.com/prasasta/revoice/internal/registry"
	"github.com/prasasta/revoice/internal/voiceprint"
)

// SynthesisRequest describes one text-to-speech invocation.
type SynthesisRequest struct {
	Text           string
	VoiceProfileID string
	Params         entities.SynthesisParams
	Preview        bool

	// OutputDir overrides the default result directory. The replace
	// orchestrator uses it to keep per-segment audio in a task-scoped area.
	OutputDir string
}

// SynthesisService runs text-to-speech tasks. Each task adapts the caller's
// base params with the target voice embedding before synthesis.
type SynthesisService struct {
	registry *registry.Registry
	voices   repositories.VoiceRepository
	synth    repositories.Synthesizer
	engine   *voiceprint.Engine
	dataDir  string
	logger   *zap.Logger
}

// NewSynthesisService creates a new synthesis service
func NewSynthesisService(
	reg *registry.Registry,
	voices repositories.VoiceRepository,
	synth repositories.Synthesizer,
	engine *voiceprint.Engine,
	dataDir string,
	logger *zap.Logger,
) *SynthesisService {
	return &SynthesisService{
		registry: reg,
		voices:   voices,
		synth:    synth,
		engine:   engine,
		dataDir:  dataDir,
		logger:   logger,
	}
}

// Submit creates a synthesis task and starts its worker.
func (s *SynthesisService) Submit(ctx context.Context, req SynthesisRequest) (*entities.PipelineTask, error) {
	if req.Text == "" {
		return nil, fmt.Errorf("text is required")
	}
	if req.VoiceProfileID != "" {
		if _, err := s.voices.Get(ctx, req.VoiceProfileID); err != nil {
			return nil, err
		}
	}

	task, err := s.registry.Create(ctx, entities.TaskKindSynthesis, req.VoiceProfileID)
	if err != nil {
		return nil, err
	}

	workerCtx, cancel := context.WithCancel(context.Background())
	s.registry.RegisterCancel(task.ID, cancel)
	go s.process(workerCtx, task.ID, req)
	return task, nil
}

func (s *SynthesisService) process(ctx context.Context, taskID string, req SynthesisRequest) {
	started := time.Now()
	if err := s.run(ctx, taskID, req); err != nil {
		failTask(ctx, s.registry, s.logger, taskID, err)
		metrics.RecordTask(string(entities.TaskKindSynthesis), "failed")
		return
	}
	metrics.RecordTask(string(entities.TaskKindSynthesis), "completed")
	metrics.RecordTaskDuration(string(entities.TaskKindSynthesis), time.Since(started).Seconds())
}

func (s *SynthesisService) run(ctx context.Context, taskID string, req SynthesisRequest) error {
	if err := applyProgress(ctx, s.registry, taskID, entities.TaskStatusProcessing, 0.1); err != nil {
		return err
	}

	params, err := s.adaptedParams(ctx, req)
	if err != nil {
		return err
	}
	if _, err := s.registry.Apply(ctx, taskID, registry.Update{Progress: ptr(0.3)}); err != nil {
		return err
	}

	clip, err := s.synth.Synthesize(ctx, req.Text, params)
	if err != nil {
		return fmt.Errorf("synthesize: %w", err)
	}
	if _, err := s.registry.Apply(ctx, taskID, registry.Update{Progress: ptr(0.7)}); err != nil {
		return err
	}

	dir := req.OutputDir
	if dir == "" {
		dir = filepath.Join(s.dataDir, "tts_results")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	path := filepath.Join(dir, taskID+".wav")
	if err := audio.SaveWAV(path, audio.Clip{Samples: clip.Samples, Rate: clip.SampleRate}); err != nil {
		return fmt.Errorf("store synthesized audio: %w", err)
	}

	duration := clip.Duration()
	metrics.RecordSynthesis(s.synth.Name(), duration)

	status := entities.TaskStatusCompleted
	_, err = s.registry.Apply(ctx, taskID, registry.Update{
		Status:   &status,
		Artifact: &entities.TaskArtifact{Path: path, Duration: duration},
	})
	return err
}

// adaptedParams derives the per-call params from the request's base params
// and the target voice embedding. The base is never mutated; adaptation
// always starts from it, never from a previously adapted result.
func (s *SynthesisService) adaptedParams(ctx context.Context, req SynthesisRequest) (entities.SynthesisParams, error) {
	params := req.Params
	params.Preview = req.Preview

	if req.VoiceProfileID == "" {
		return params.Clamp(), nil
	}
	profile, err := s.voices.Get(ctx, req.VoiceProfileID)
	if err != nil {
		return params, err
	}
	if profile.Status != entities.VoiceProfileStatusReady {
		return params, fmt.Errorf("voice profile %s is %s: %w",
			profile.ID, profile.Status, entities.ErrPrerequisiteNotReady)
	}
	if len(profile.Embedding) == 0 {
		return params.Clamp(), nil
	}

	emb := voiceprint.Embedding{Kind: profile.EmbeddingKind, Vector: profile.Embedding}
	return s.engine.Adapt(emb, params), nil
}

// Stream renders text as chunked audio for live delivery. It requires the
// configured synthesizer to support streaming.
func (s *SynthesisService) Stream(ctx context.Context, req SynthesisRequest, chunks chan<- repositories.AudioClip) error {
	streamer, ok := s.synth.(repositories.StreamingSynthesizer)
	if !ok {
		return fmt.Errorf("synthesizer %s does not support streaming", s.synth.Name())
	}
	params, err := s.adaptedParams(ctx, req)
	if err != nil {
		return err
	}
	return streamer.SynthesizeStream(ctx, req.Text, params, chunks)
}
