package usecase

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/prasasta/revoice/domain/entities"
	"github.com/prasasta/revoice/domain/repositories"
	"github.com/prasasta/revoice/internal/audio"
	"github.com/prasasta/revoice/internal/metrics"
	"github.com/prasasta/revoice/internal/registry"
)

const subTaskPollInterval = 500 * time.Millisecond

// ReplaceService is the segment-synthesis-stitch orchestrator. Given a
// completed transcript and a target voice, it synthesizes each segment as
// its own sub-task, awaits every one in order, then stitches the results
// into one continuous track preserving segment start order.
type ReplaceService struct {
	registry      *registry.Registry
	media         repositories.MediaRepository
	voices        repositories.VoiceRepository
	transcription *TranscriptionService
	synthesis     *SynthesisService
	dataDir       string
	logger        *zap.Logger
}

// NewReplaceService creates a new replace service
func NewReplaceService(
	reg *registry.Registry,
	media repositories.MediaRepository,
	voices repositories.VoiceRepository,
	transcription *TranscriptionService,
	synthesis *SynthesisService,
	dataDir string,
	logger *zap.Logger,
) *ReplaceService {
	return &ReplaceService{
		registry:      reg,
		media:         media,
		voices:        voices,
		transcription: transcription,
		synthesis:     synthesis,
		dataDir:       dataDir,
		logger:        logger,
	}
}

// Submit validates prerequisites and starts a replace task. The owning
// transcription task must already be completed.
func (s *ReplaceService) Submit(ctx context.Context, transcriptionTaskID, voiceProfileID string, speed float64) (*entities.PipelineTask, error) {
	tt, err := s.registry.Get(ctx, transcriptionTaskID)
	if err != nil {
		return nil, err
	}
	if tt.Status != entities.TaskStatusCompleted {
		return nil, fmt.Errorf("transcription task %s is %s: %w",
			transcriptionTaskID, tt.Status, entities.ErrPrerequisiteNotReady)
	}
	if _, err := s.voices.Get(ctx, voiceProfileID); err != nil {
		return nil, err
	}

	task, err := s.registry.Create(ctx, entities.TaskKindReplace, transcriptionTaskID)
	if err != nil {
		return nil, err
	}
	if _, err := s.registry.Apply(ctx, task.ID, registry.Update{
		Extra: map[string]any{"voice_profile_id": voiceProfileID, "speed": speed},
	}); err != nil {
		return nil, err
	}

	workerCtx, cancel := context.WithCancel(context.Background())
	s.registry.RegisterCancel(task.ID, cancel)
	go s.process(workerCtx, task.ID, transcriptionTaskID, voiceProfileID, speed)
	return task, nil
}

func (s *ReplaceService) process(ctx context.Context, taskID, transcriptionTaskID, voiceProfileID string, speed float64) {
	started := time.Now()
	if err := s.run(ctx, taskID, transcriptionTaskID, voiceProfileID, speed); err != nil {
		failTask(ctx, s.registry, s.logger, taskID, err)
		metrics.RecordTask(string(entities.TaskKindReplace), "failed")
		return
	}
	metrics.RecordTask(string(entities.TaskKindReplace), "completed")
	metrics.RecordTaskDuration(string(entities.TaskKindReplace), time.Since(started).Seconds())
}

type segmentResult struct {
	start float64
	path  string
}

func (s *ReplaceService) run(ctx context.Context, taskID, transcriptionTaskID, voiceProfileID string, speed float64) error {
	if err := applyProgress(ctx, s.registry, taskID, entities.TaskStatusProcessing, 0.1); err != nil {
		return err
	}

	transcript, err := s.transcription.GetTranscript(ctx, transcriptionTaskID)
	if err != nil {
		return err
	}
	if len(transcript.Segments) == 0 {
		return fmt.Errorf("transcript of task %s has no segments", transcriptionTaskID)
	}

	base := entities.DefaultSynthesisParams()
	base.Speed = speed
	base = base.Clamp()

	segmentDir := filepath.Join(s.dataDir, "replaced_media", taskID+"_segments")
	if err := os.MkdirAll(segmentDir, 0o755); err != nil {
		return err
	}

	// Segments are synthesized strictly in order: segment i+1 starts only
	// after segment i resolved, so cumulative progress and the failing
	// index stay well-defined.
	total := len(transcript.Segments)
	results := make([]segmentResult, 0, total)
	for i, seg := range transcript.Segments {
		sub, err := s.synthesis.Submit(ctx, SynthesisRequest{
			Text:           seg.Text,
			VoiceProfileID: voiceProfileID,
			Params:         base,
			OutputDir:      segmentDir,
		})
		if err != nil {
			return &entities.SynthesisError{SegmentIndex: i, Err: err}
		}

		final, err := s.registry.Await(ctx, sub.ID, subTaskPollInterval)
		if err != nil {
			return &entities.SynthesisError{SegmentIndex: i, Err: err}
		}
		if final.Status == entities.TaskStatusFailed {
			return &entities.SynthesisError{SegmentIndex: i, Err: errors.New(final.Error)}
		}
		if final.Artifact == nil {
			return &entities.SynthesisError{SegmentIndex: i, Err: errors.New("sub-task completed without artifact")}
		}
		results = append(results, segmentResult{start: seg.Start, path: final.Artifact.Path})

		progress := 0.1 + 0.7*float64(i+1)/float64(total)
		if _, err := s.registry.Apply(ctx, taskID, registry.Update{Progress: &progress}); err != nil {
			return err
		}
	}

	// Reassemble by original start time, not completion order.
	sort.SliceStable(results, func(i, j int) bool { return results[i].start < results[j].start })

	clips := make([]audio.Clip, 0, len(results))
	for _, r := range results {
		clip, err := audio.LoadWAV(r.path)
		if err != nil {
			return fmt.Errorf("load segment audio %s: %w", r.path, err)
		}
		clips = append(clips, clip)
	}
	if _, err := s.registry.Apply(ctx, taskID, registry.Update{Progress: ptr(0.9)}); err != nil {
		return err
	}

	stitched := audio.Stitch(clips)
	outPath := filepath.Join(s.dataDir, "replaced_media", taskID+".wav")
	if err := audio.SaveWAV(outPath, stitched); err != nil {
		return fmt.Errorf("store stitched audio: %w", err)
	}

	s.logger.Info("replace task stitched",
		zap.String("taskID", taskID),
		zap.Int("segments", total),
		zap.Float64("duration", stitched.Duration()))

	status := entities.TaskStatusCompleted
	_, err = s.registry.Apply(ctx, taskID, registry.Update{
		Status:   &status,
		Artifact: &entities.TaskArtifact{Path: outPath, Duration: stitched.Duration()},
	})
	return err
}
