package usecase

import (
	"context"
	"encoding/json"
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
	"github.com/prasasta/revoice/internal/subtitle"
)

// TranscriptionService runs the transcription stage: decode, detect
// speech-active intervals, recognize each one, and persist the time-aligned
// transcript with subtitle exports.
type TranscriptionService struct {
	registry   *registry.Registry
	media      repositories.MediaRepository
	recognizer repositories.Recognizer
	vadOpts    audio.VADOptions
	language   string
	dataDir    string
	logger     *zap.Logger
}

// NewTranscriptionService creates a new transcription service
func NewTranscriptionService(
	reg *registry.Registry,
	media repositories.MediaRepository,
	recognizer repositories.Recognizer,
	vadOpts audio.VADOptions,
	language string,
	dataDir string,
	logger *zap.Logger,
) *TranscriptionService {
	return &TranscriptionService{
		registry:   reg,
		media:      media,
		recognizer: recognizer,
		vadOpts:    vadOpts,
		language:   language,
		dataDir:    dataDir,
		logger:     logger,
	}
}

// Submit creates a transcription task for an uploaded asset and starts the
// worker. Failed stages are not retried automatically; resubmitting creates
// a fresh task.
func (s *TranscriptionService) Submit(ctx context.Context, assetID string) (*entities.PipelineTask, error) {
	asset, err := s.media.Get(ctx, assetID)
	if err != nil {
		return nil, err
	}

	task, err := s.registry.Create(ctx, entities.TaskKindTranscription, assetID)
	if err != nil {
		return nil, err
	}

	workerCtx, cancel := context.WithCancel(context.Background())
	s.registry.RegisterCancel(task.ID, cancel)
	go s.process(workerCtx, task.ID, asset)
	return task, nil
}

func (s *TranscriptionService) process(ctx context.Context, taskID string, asset *entities.MediaAsset) {
	started := time.Now()
	if err := s.run(ctx, taskID, asset); err != nil {
		failTask(ctx, s.registry, s.logger, taskID, err)
		metrics.RecordTask(string(entities.TaskKindTranscription), "failed")
		return
	}
	metrics.RecordTask(string(entities.TaskKindTranscription), "completed")
	metrics.RecordTaskDuration(string(entities.TaskKindTranscription), time.Since(started).Seconds())
}

func (s *TranscriptionService) run(ctx context.Context, taskID string, asset *entities.MediaAsset) error {
	if err := applyProgress(ctx, s.registry, taskID, entities.TaskStatusProcessing, 0.1); err != nil {
		return err
	}

	clip, err := audio.LoadWAV(asset.Path)
	if err != nil {
		return fmt.Errorf("%w: %v", entities.ErrMediaUnreadable, err)
	}
	duration := clip.Duration()

	// Detected duration is written exactly once.
	if asset.Duration == nil {
		asset.Duration = &duration
		if err := s.media.Update(ctx, asset); err != nil {
			return fmt.Errorf("persist asset duration: %w", err)
		}
	}

	spans := audio.DetectSpeech(clip, s.vadOpts)
	if len(spans) == 0 {
		spans = audio.UniformSplit(duration, s.vadOpts.FallbackSplits)
		s.logger.Info("no speech detected, using uniform split",
			zap.String("taskID", taskID),
			zap.Int("intervals", len(spans)))
	}

	if _, err := s.registry.Apply(ctx, taskID, registry.Update{Progress: ptr(0.3)}); err != nil {
		return err
	}

	segments := make([]entities.Segment, 0, len(spans))
	for i, span := range spans {
		piece := audio.Slice(clip, span)
		text, err := s.recognizer.Recognize(ctx,
			repositories.AudioClip{Samples: piece.Samples, SampleRate: piece.Rate},
			repositories.Interval{Index: i, Start: span.Start, End: span.End},
			s.language)
		if err != nil {
			return fmt.Errorf("recognize interval %d: %w", i, err)
		}
		segments = append(segments, entities.Segment{Start: span.Start, End: span.End, Text: text})

		progress := 0.3 + 0.6*float64(i+1)/float64(len(spans))
		if _, err := s.registry.Apply(ctx, taskID, registry.Update{Progress: &progress}); err != nil {
			return err
		}
	}

	transcript := &entities.Transcript{
		Segments:      segments,
		Language:      s.language,
		TotalDuration: duration,
	}
	if err := transcript.Validate(); err != nil {
		return fmt.Errorf("invalid transcript: %w", err)
	}

	paths, err := s.persistTranscript(taskID, transcript)
	if err != nil {
		return err
	}

	status := entities.TaskStatusCompleted
	_, err = s.registry.Apply(ctx, taskID, registry.Update{
		Status: &status,
		Extra:  paths,
	})
	return err
}

// persistTranscript writes the transcript JSON and both subtitle renderings.
func (s *TranscriptionService) persistTranscript(taskID string, t *entities.Transcript) (map[string]any, error) {
	dir := filepath.Join(s.dataDir, "transcripts")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	jsonPath := filepath.Join(dir, taskID+".json")
	data, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(jsonPath, data, 0o644); err != nil {
		return nil, err
	}

	srtPath := filepath.Join(dir, taskID+".srt")
	if err := os.WriteFile(srtPath, []byte(subtitle.RenderSRT(t)), 0o644); err != nil {
		return nil, err
	}
	vttPath := filepath.Join(dir, taskID+".vtt")
	if err := os.WriteFile(vttPath, []byte(subtitle.RenderVTT(t)), 0o644); err != nil {
		return nil, err
	}

	return map[string]any{
		"transcript_path": jsonPath,
		"srt_path":        srtPath,
		"vtt_path":        vttPath,
	}, nil
}

// GetTranscript loads the transcript of a completed transcription task.
func (s *TranscriptionService) GetTranscript(ctx context.Context, taskID string) (*entities.Transcript, error) {
	task, err := s.registry.Get(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task.Kind != entities.TaskKindTranscription {
		return nil, fmt.Errorf("task %s is not a transcription task: %w", taskID, entities.ErrNotFound)
	}
	if task.Status != entities.TaskStatusCompleted {
		return nil, fmt.Errorf("transcription task %s is %s: %w", taskID, task.Status, entities.ErrPrerequisiteNotReady)
	}

	path, _ := task.Extra["transcript_path"].(string)
	if path == "" {
		return nil, fmt.Errorf("transcript of task %s: %w", taskID, entities.ErrNotFound)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read transcript: %w", err)
	}
	var t entities.Transcript
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("decode transcript: %w", err)
	}
	return &t, nil
}

// SubtitlePath returns the rendered subtitle file of a completed task in the
// requested format ("srt" or "vtt").
func (s *TranscriptionService) SubtitlePath(ctx context.Context, taskID, format string) (string, error) {
	task, err := s.registry.Get(ctx, taskID)
	if err != nil {
		return "", err
	}
	if task.Status != entities.TaskStatusCompleted {
		return "", fmt.Errorf("transcription task %s is %s: %w", taskID, task.Status, entities.ErrPrerequisiteNotReady)
	}
	key := format + "_path"
	path, _ := task.Extra[key].(string)
	if path == "" {
		return "", fmt.Errorf("subtitle format %q: %w", format, entities.ErrNotFound)
	}
	return path, nil
}
