package api

import (
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/prasasta/revoice/domain/entities"
	"github.com/prasasta/revoice/internal/auth"
	"github.com/prasasta/revoice/internal/registry"
	"github.com/prasasta/revoice/usecase"
)

// Server wires the pipeline services to the HTTP surface.
type Server struct {
	registry      *registry.Registry
	media         *usecase.MediaService
	voices        *usecase.VoiceService
	transcription *usecase.TranscriptionService
	synthesis     *usecase.SynthesisService
	replace       *usecase.ReplaceService
	course        *usecase.CourseService
	auth          *auth.Manager
	logger        *zap.Logger
}

// NewServer creates a new API server
func NewServer(
	reg *registry.Registry,
	media *usecase.MediaService,
	voices *usecase.VoiceService,
	transcription *usecase.TranscriptionService,
	synthesis *usecase.SynthesisService,
	replace *usecase.ReplaceService,
	course *usecase.CourseService,
	authManager *auth.Manager,
	logger *zap.Logger,
) *Server {
	return &Server{
		registry:      reg,
		media:         media,
		voices:        voices,
		transcription: transcription,
		synthesis:     synthesis,
		replace:       replace,
		course:        course,
		auth:          authManager,
		logger:        logger,
	}
}

// InitRoutes initializes all API routes
func (s *Server) InitRoutes(e *echo.Echo) {
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"service": "revoice-server",
		})
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	v1 := e.Group("/api/v1")

	// Auth APIs
	v1.POST("/auth/token", s.issueToken)

	// Media APIs
	v1.POST("/media", s.uploadMedia)
	v1.GET("/media", s.listMedia)
	v1.GET("/media/:id", s.getMedia)

	// Stats API
	v1.GET("/stats", s.getStats)

	// Task APIs
	v1.POST("/transcriptions", s.submitTranscription)
	v1.POST("/replacements", s.submitReplace)
	v1.GET("/tasks/:id", s.getTask)
	v1.POST("/tasks/:id/cancel", s.cancelTask)
	v1.GET("/tasks/:id/transcript", s.getTranscript)
	v1.GET("/tasks/:id/subtitles/:format", s.getSubtitles)
	v1.GET("/tasks/:id/artifact", s.getArtifact)

	// Voice profile APIs
	v1.POST("/voices", s.createVoice)
	v1.GET("/voices", s.listVoices)
	v1.GET("/voices/:id", s.getVoice)
	v1.DELETE("/voices/:id", s.deleteVoice)
	v1.GET("/voices/:id/similar", s.findSimilarVoices)
	v1.GET("/voices/:id/preview", s.voicePreview)

	// Synthesis APIs
	v1.POST("/synthesis", s.submitSynthesis)
	e.GET("/ws/synthesis", s.streamSynthesis)

	// Courseware APIs
	v1.POST("/courseware", s.uploadCourseware)
	v1.GET("/courseware", s.listCourseware)
	v1.GET("/courseware/:id", s.getCourseware)
	v1.POST("/courseware/:id/narrate", s.generateNarration)
}

// issueToken mints an access token. Service tokens are long-lived and meant
// for machine callers such as the streaming synthesis client.
func (s *Server) issueToken(c echo.Context) error {
	var req struct {
		UserID  string `json:"user_id"`
		Service bool   `json:"service"`
	}
	if err := c.Bind(&req); err != nil || req.UserID == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid_request", Message: "user_id is required"})
	}

	var (
		token string
		err   error
	)
	if req.Service {
		token, err = s.auth.GenerateServiceToken(req.UserID)
	} else {
		token, err = s.auth.GenerateUserToken(req.UserID)
	}
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"token": token})
}

func (s *Server) fail(c echo.Context, err error) error {
	code, label := statusOf(err)
	if code == http.StatusInternalServerError {
		s.logger.Error("request failed", zap.String("path", c.Path()), zap.Error(err))
	}
	return c.JSON(code, ErrorResponse{Error: label, Message: err.Error()})
}

func (s *Server) uploadMedia(c echo.Context) error {
	name := c.FormValue("name")
	file, err := c.FormFile("file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "missing_file", Message: "file field is required"})
	}
	if name == "" {
		name = file.Filename
	}

	src, err := file.Open()
	if err != nil {
		return s.fail(c, err)
	}
	defer src.Close()
	data, err := io.ReadAll(src)
	if err != nil {
		return s.fail(c, err)
	}

	asset, err := s.media.Upload(c.Request().Context(), name, file.Filename, data)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusCreated, asset)
}

func (s *Server) listMedia(c echo.Context) error {
	assets, err := s.media.List(c.Request().Context())
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, assets)
}

func (s *Server) getMedia(c echo.Context) error {
	asset, err := s.media.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, asset)
}

// getStats summarizes pipeline activity: task counts per kind and status,
// total completed audio, and mean voice quality.
func (s *Server) getStats(c echo.Context) error {
	tasks, err := s.registry.List(c.Request().Context(), "")
	if err != nil {
		return s.fail(c, err)
	}

	byKind := make(map[string]map[string]int)
	var totalAudioSeconds float64
	for _, task := range tasks {
		kind := string(task.Kind)
		if byKind[kind] == nil {
			byKind[kind] = make(map[string]int)
		}
		byKind[kind][string(task.Status)]++
		if task.Status == entities.TaskStatusCompleted && task.Artifact != nil {
			totalAudioSeconds += task.Artifact.Duration
		}
	}

	stats := map[string]any{
		"total_tasks":         len(tasks),
		"tasks":               byKind,
		"total_audio_seconds": totalAudioSeconds,
	}

	if s.voices != nil {
		profiles, err := s.voices.List(c.Request().Context())
		if err != nil {
			return s.fail(c, err)
		}
		var sum float64
		ready := 0
		for _, p := range profiles {
			if p.Status == entities.VoiceProfileStatusReady {
				sum += p.QualityScore
				ready++
			}
		}
		stats["voice_profiles"] = len(profiles)
		if ready > 0 {
			stats["average_voice_quality"] = sum / float64(ready)
		}
	}
	return c.JSON(http.StatusOK, stats)
}

func (s *Server) submitTranscription(c echo.Context) error {
	var req struct {
		AssetID string `json:"asset_id"`
	}
	if err := c.Bind(&req); err != nil || req.AssetID == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid_request", Message: "asset_id is required"})
	}

	task, err := s.transcription.Submit(c.Request().Context(), req.AssetID)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusAccepted, taskResponse(task))
}

func (s *Server) submitReplace(c echo.Context) error {
	var req ReplaceRequestBody
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid_request", Message: "invalid request format"})
	}
	if req.TranscriptionTaskID == "" || req.VoiceProfileID == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "missing_fields", Message: "transcription_task_id and voice_profile_id are required"})
	}
	if req.Speed == 0 {
		req.Speed = 1.0
	}

	task, err := s.replace.Submit(c.Request().Context(), req.TranscriptionTaskID, req.VoiceProfileID, req.Speed)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusAccepted, taskResponse(task))
}

func (s *Server) getTask(c echo.Context) error {
	task, err := s.registry.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, taskResponse(task))
}

func (s *Server) cancelTask(c echo.Context) error {
	if !s.registry.Cancel(c.Param("id")) {
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: "not_found", Message: "no cancellable worker for task"})
	}
	return c.NoContent(http.StatusAccepted)
}

func (s *Server) getTranscript(c echo.Context) error {
	transcript, err := s.transcription.GetTranscript(c.Request().Context(), c.Param("id"))
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, transcript)
}

func (s *Server) getSubtitles(c echo.Context) error {
	format := c.Param("format")
	if format != "srt" && format != "vtt" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid_format", Message: "format must be srt or vtt"})
	}
	path, err := s.transcription.SubtitlePath(c.Request().Context(), c.Param("id"), format)
	if err != nil {
		return s.fail(c, err)
	}
	return c.File(path)
}

func (s *Server) getArtifact(c echo.Context) error {
	task, err := s.registry.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return s.fail(c, err)
	}
	if task.Status != entities.TaskStatusCompleted || task.Artifact == nil {
		return c.JSON(http.StatusConflict, ErrorResponse{Error: "prerequisite_not_ready", Message: "task has no completed artifact"})
	}
	return c.File(task.Artifact.Path)
}

func (s *Server) createVoice(c echo.Context) error {
	name := c.FormValue("name")
	if name == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "missing_fields", Message: "name is required"})
	}
	file, err := c.FormFile("sample")
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "missing_file", Message: "sample field is required"})
	}
	src, err := file.Open()
	if err != nil {
		return s.fail(c, err)
	}
	defer src.Close()
	data, err := io.ReadAll(src)
	if err != nil {
		return s.fail(c, err)
	}

	var tags []string
	if raw := c.FormValue("tags"); raw != "" {
		tags = splitTags(raw)
	}
	profile, err := s.voices.CreateProfile(c.Request().Context(), name, c.FormValue("description"), tags, data)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusCreated, profile)
}

func (s *Server) listVoices(c echo.Context) error {
	profiles, err := s.voices.List(c.Request().Context())
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, profiles)
}

func (s *Server) getVoice(c echo.Context) error {
	profile, err := s.voices.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, profile)
}

func (s *Server) deleteVoice(c echo.Context) error {
	if err := s.voices.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return s.fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) findSimilarVoices(c echo.Context) error {
	topN := 5
	if raw := c.QueryParam("top_n"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			topN = n
		}
	}
	matches, err := s.voices.FindSimilar(c.Request().Context(), c.Param("id"), topN)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, matches)
}

func (s *Server) voicePreview(c echo.Context) error {
	profile, err := s.voices.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return s.fail(c, err)
	}
	if profile.ModelPath == "" {
		return c.JSON(http.StatusConflict, ErrorResponse{Error: "prerequisite_not_ready", Message: "voice model not ready"})
	}
	return c.File(profile.ModelPath)
}

func (s *Server) submitSynthesis(c echo.Context) error {
	var req SynthesisRequestBody
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid_request", Message: "invalid request format"})
	}
	if req.Text == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "missing_fields", Message: "text is required"})
	}

	task, err := s.synthesis.Submit(c.Request().Context(), usecase.SynthesisRequest{
		Text:           req.Text,
		VoiceProfileID: req.VoiceProfileID,
		Params:         req.Params(),
		Preview:        req.Preview,
	})
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusAccepted, taskResponse(task))
}

func (s *Server) uploadCourseware(c echo.Context) error {
	name := c.FormValue("name")
	file, err := c.FormFile("file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "missing_file", Message: "file field is required"})
	}
	if name == "" {
		name = file.Filename
	}
	src, err := file.Open()
	if err != nil {
		return s.fail(c, err)
	}
	defer src.Close()
	data, err := io.ReadAll(src)
	if err != nil {
		return s.fail(c, err)
	}

	course, err := s.course.Upload(c.Request().Context(), name, file.Filename, data)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusCreated, course)
}

func (s *Server) listCourseware(c echo.Context) error {
	courses, err := s.course.List(c.Request().Context())
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, courses)
}

func (s *Server) getCourseware(c echo.Context) error {
	course, err := s.course.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, course)
}

func (s *Server) generateNarration(c echo.Context) error {
	var req GenerateRequestBody
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid_request", Message: "invalid request format"})
	}
	if req.VoiceProfileID == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "missing_fields", Message: "voice_profile_id is required"})
	}
	if req.Speed == 0 {
		req.Speed = 1.0
	}

	task, err := s.course.Generate(c.Request().Context(), c.Param("id"), req.VoiceProfileID, req.Speed)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusAccepted, taskResponse(task))
}

func splitTags(raw string) []string {
	var tags []string
	for _, t := range strings.Split(raw, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}
