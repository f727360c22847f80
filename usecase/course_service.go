package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/prasasta/revoice/domain/entities"
	"github.com/prasasta/revoice/domain/repositories"
	"github.com/prasasta/revoice/internal/audio"
	"github.com/prasasta/revoice/internal/metrics"
	"github.com/prasasta/revoice/internal/registry"
	"github.com/prasasta/revoice/internal/voiceprint"
)

// slideWorkers bounds concurrent slide synthesis per courseware task.
const slideWorkers = 4

// SlideAudio is one entry of a generated narration manifest.
type SlideAudio struct {
	SlideID  int     `json:"slide_id"`
	Title    string  `json:"title,omitempty"`
	Path     string  `json:"audio_path"`
	Duration float64 `json:"duration"`
}

// CourseService narrates courseware: upload, text extraction into slides,
// and fan-out synthesis of one audio file per slide plus a manifest.
type CourseService struct {
	registry *registry.Registry
	courses  repositories.CoursewareRepository
	voices   repositories.VoiceRepository
	synth    repositories.Synthesizer
	engine   *voiceprint.Engine
	textgen  repositories.TextGenerator
	dataDir  string
	logger   *zap.Logger
}

// NewCourseService creates a new course service. textgen may be nil; when
// set, slide text is rewritten into spoken narration before synthesis.
func NewCourseService(
	reg *registry.Registry,
	courses repositories.CoursewareRepository,
	voices repositories.VoiceRepository,
	synth repositories.Synthesizer,
	engine *voiceprint.Engine,
	textgen repositories.TextGenerator,
	dataDir string,
	logger *zap.Logger,
) *CourseService {
	return &CourseService{
		registry: reg,
		courses:  courses,
		voices:   voices,
		synth:    synth,
		engine:   engine,
		textgen:  textgen,
		dataDir:  dataDir,
		logger:   logger,
	}
}

// Upload stores a courseware document and extracts its slide text.
func (s *CourseService) Upload(ctx context.Context, name, filename string, data []byte) (*entities.Courseware, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("uploaded file is empty")
	}

	id := uuid.NewString()
	dir := filepath.Join(s.dataDir, "courseware")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create courseware dir: %w", err)
	}
	path := filepath.Join(dir, id+strings.ToLower(filepath.Ext(filename)))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return nil, fmt.Errorf("store courseware file: %w", err)
	}

	course := &entities.Courseware{
		ID:               id,
		Name:             name,
		OriginalFilename: filename,
		Path:             path,
		Size:             int64(len(data)),
		Slides:           extractSlides(data),
		CreatedAt:        time.Now(),
		UpdatedAt:        time.Now(),
	}
	if err := course.Validate(); err != nil {
		return nil, err
	}
	if err := s.courses.Create(ctx, course); err != nil {
		return nil, fmt.Errorf("persist courseware: %w", err)
	}

	s.logger.Info("courseware uploaded",
		zap.String("coursewareID", id),
		zap.Int("slides", len(course.Slides)))
	return course, nil
}

// extractSlides splits plain-text courseware into slides on blank lines. The
// first line of a chunk becomes the slide title when it is short enough.
func extractSlides(data []byte) []entities.Slide {
	var slides []entities.Slide
	for _, chunk := range strings.Split(string(data), "\n\n") {
		chunk = strings.TrimSpace(chunk)
		if chunk == "" {
			continue
		}
		slide := entities.Slide{SlideID: len(slides) + 1, Content: chunk}
		if lines := strings.SplitN(chunk, "\n", 2); len(lines) == 2 && len(lines[0]) <= 80 {
			slide.Title = strings.TrimSpace(lines[0])
			slide.Content = strings.TrimSpace(lines[1])
		}
		slides = append(slides, slide)
	}
	return slides
}

// Get returns a stored courseware document.
func (s *CourseService) Get(ctx context.Context, id string) (*entities.Courseware, error) {
	return s.courses.Get(ctx, id)
}

// List returns every stored courseware document.
func (s *CourseService) List(ctx context.Context) ([]*entities.Courseware, error) {
	return s.courses.List(ctx)
}

// Generate starts a narration task producing one audio file per slide.
func (s *CourseService) Generate(ctx context.Context, coursewareID, voiceProfileID string, speed float64) (*entities.PipelineTask, error) {
	course, err := s.courses.Get(ctx, coursewareID)
	if err != nil {
		return nil, err
	}
	if len(course.Slides) == 0 {
		return nil, fmt.Errorf("courseware %s has no extracted slides", coursewareID)
	}
	if _, err := s.voices.Get(ctx, voiceProfileID); err != nil {
		return nil, err
	}

	task, err := s.registry.Create(ctx, entities.TaskKindCourseware, coursewareID)
	if err != nil {
		return nil, err
	}

	workerCtx, cancel := context.WithCancel(context.Background())
	s.registry.RegisterCancel(task.ID, cancel)
	go s.process(workerCtx, task.ID, course, voiceProfileID, speed)
	return task, nil
}

func (s *CourseService) process(ctx context.Context, taskID string, course *entities.Courseware, voiceProfileID string, speed float64) {
	started := time.Now()
	if err := s.run(ctx, taskID, course, voiceProfileID, speed); err != nil {
		failTask(ctx, s.registry, s.logger, taskID, err)
		metrics.RecordTask(string(entities.TaskKindCourseware), "failed")
		return
	}
	metrics.RecordTask(string(entities.TaskKindCourseware), "completed")
	metrics.RecordTaskDuration(string(entities.TaskKindCourseware), time.Since(started).Seconds())
}

func (s *CourseService) run(ctx context.Context, taskID string, course *entities.Courseware, voiceProfileID string, speed float64) error {
	if err := applyProgress(ctx, s.registry, taskID, entities.TaskStatusProcessing, 0.1); err != nil {
		return err
	}

	params, err := s.voiceParams(ctx, voiceProfileID, speed)
	if err != nil {
		return err
	}

	outDir := filepath.Join(s.dataDir, "course_results", taskID)
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return err
	}

	// Slides are independent, so synthesis fans out concurrently. Results
	// land in a slot per slide; progress counts completions in any order.
	total := len(course.Slides)
	manifest := make([]SlideAudio, total)
	var (
		mu   sync.Mutex
		done int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(slideWorkers)
	for i, slide := range course.Slides {
		g.Go(func() error {
			clip, err := s.synth.Synthesize(gctx, s.narration(gctx, slide), params)
			if err != nil {
				return &entities.SynthesisError{SegmentIndex: i, Err: err}
			}
			path := filepath.Join(outDir, fmt.Sprintf("slide_%d.wav", slide.SlideID))
			if err := audio.SaveWAV(path, audio.Clip{Samples: clip.Samples, Rate: clip.SampleRate}); err != nil {
				return &entities.SynthesisError{SegmentIndex: i, Err: err}
			}
			metrics.RecordSynthesis(s.synth.Name(), clip.Duration())

			manifest[i] = SlideAudio{
				SlideID:  slide.SlideID,
				Title:    slide.Title,
				Path:     path,
				Duration: clip.Duration(),
			}

			mu.Lock()
			done++
			progress := 0.1 + 0.8*float64(done)/float64(total)
			mu.Unlock()
			_, err = s.registry.Apply(gctx, taskID, registry.Update{Progress: &progress})
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	manifestPath := filepath.Join(outDir, "manifest.json")
	doc := map[string]any{
		"courseware_id": course.ID,
		"name":          course.Name,
		"voice_profile": voiceProfileID,
		"total_slides":  total,
		"slides":        manifest,
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(manifestPath, data, 0o644); err != nil {
		return fmt.Errorf("store manifest: %w", err)
	}

	var totalDuration float64
	for _, m := range manifest {
		totalDuration += m.Duration
	}

	status := entities.TaskStatusCompleted
	_, err = s.registry.Apply(ctx, taskID, registry.Update{
		Status:   &status,
		Artifact: &entities.TaskArtifact{Path: manifestPath, Duration: totalDuration},
		Extra:    map[string]any{"total_slides": total},
	})
	return err
}

// narration returns the text spoken for a slide. With a text generator
// configured, the raw slide text is rewritten into natural spoken narration;
// generation failures fall back to the literal slide text.
func (s *CourseService) narration(ctx context.Context, slide entities.Slide) string {
	text := slide.NarrationText()
	if s.textgen == nil {
		return text
	}

	prompt := fmt.Sprintf(
		"Rewrite the following slide text as natural spoken narration for a course recording. "+
			"Keep every fact, drop list markers and headings, and answer with the narration only.\n\n%s",
		text)
	rewritten, err := s.textgen.GenerateText(ctx, prompt)
	if err != nil {
		s.logger.Warn("narration rewrite failed, using slide text",
			zap.Int("slideID", slide.SlideID),
			zap.Error(err))
		return text
	}
	return rewritten
}

func (s *CourseService) voiceParams(ctx context.Context, voiceProfileID string, speed float64) (entities.SynthesisParams, error) {
	params := entities.DefaultSynthesisParams()
	params.Speed = speed
	params = params.Clamp()

	profile, err := s.voices.Get(ctx, voiceProfileID)
	if err != nil {
		return params, err
	}
	if profile.Status != entities.VoiceProfileStatusReady {
		return params, fmt.Errorf("voice profile %s is %s: %w",
			profile.ID, profile.Status, entities.ErrPrerequisiteNotReady)
	}
	if len(profile.Embedding) == 0 {
		return params, nil
	}
	emb := voiceprint.Embedding{Kind: profile.EmbeddingKind, Vector: profile.Embedding}
	return s.engine.Adapt(emb, params), nil
}
