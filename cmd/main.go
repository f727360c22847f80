package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/prasasta/revoice/adapters/filestore"
	"github.com/prasasta/revoice/adapters/llm"
	"github.com/prasasta/revoice/adapters/mongo"
	"github.com/prasasta/revoice/adapters/stt"
	"github.com/prasasta/revoice/adapters/tts"
	"github.com/prasasta/revoice/domain/repositories"
	"github.com/prasasta/revoice/internal/api"
	"github.com/prasasta/revoice/internal/audio"
	"github.com/prasasta/revoice/internal/auth"
	"github.com/prasasta/revoice/internal/config"
	"github.com/prasasta/revoice/internal/logging"
	"github.com/prasasta/revoice/internal/registry"
	"github.com/prasasta/revoice/internal/voiceprint"
	"github.com/prasasta/revoice/usecase"
)

func main() {
	cfg := config.Load()

	logger := logging.New(cfg.LogFile, cfg.Debug)
	defer logger.Sync()

	tasks, media, voices, courses, closeStore, err := buildStorage(cfg, logger)
	if err != nil {
		logger.Fatal("failed to initialize storage", zap.Error(err))
	}
	defer closeStore()

	// Recognition engine
	var recognizer repositories.Recognizer
	switch cfg.Recognizer {
	case "google":
		recognizer = stt.NewGoogleRecognizer()
	default:
		recognizer = stt.NewScriptRecognizer()
	}

	synthesizer := tts.NewHarmonicSynthesizer(logger)
	engine := voiceprint.NewEngine(nil, logger)
	reg := registry.New(tasks, logger)
	authManager := auth.NewManager(cfg.JWTSecret)

	// Narration rewriting is optional; without an API key slides are read
	// verbatim.
	var textgen repositories.TextGenerator
	if gemini, err := llm.NewGeminiGenerator(logger); err == nil {
		textgen = gemini
	} else {
		logger.Info("text generator disabled", zap.Error(err))
	}

	vadOpts := audio.DefaultVADOptions()
	if cfg.VADFallbackSplits > 0 {
		vadOpts.FallbackSplits = cfg.VADFallbackSplits
	}

	mediaService := usecase.NewMediaService(media, cfg.DataDir, logger)
	voiceService := usecase.NewVoiceService(voices, engine, cfg.DataDir, logger)
	transcriptionService := usecase.NewTranscriptionService(
		reg, media, recognizer, vadOpts, cfg.Language, cfg.DataDir, logger)
	synthesisService := usecase.NewSynthesisService(
		reg, voices, synthesizer, engine, cfg.DataDir, logger)
	replaceService := usecase.NewReplaceService(
		reg, media, voices, transcriptionService, synthesisService, cfg.DataDir, logger)
	courseService := usecase.NewCourseService(
		reg, courses, voices, synthesizer, engine, textgen, cfg.DataDir, logger)

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	server := api.NewServer(reg, mediaService, voiceService, transcriptionService,
		synthesisService, replaceService, courseService, authManager, logger)
	server.InitRoutes(e)

	go func() {
		if err := e.Start(":" + cfg.Port); err != nil && err != http.ErrServerClosed {
			logger.Fatal("shutting down the server", zap.Error(err))
		}
	}()

	logger.Info("Server started",
		zap.String("port", cfg.Port),
		zap.String("storage", cfg.Storage),
		zap.String("recognizer", recognizer.Name()))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("Server is shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}

// buildStorage selects the persistence backend from configuration.
func buildStorage(cfg *config.Config, logger *zap.Logger) (
	repositories.TaskRepository,
	repositories.MediaRepository,
	repositories.VoiceRepository,
	repositories.CoursewareRepository,
	func(),
	error,
) {
	if cfg.Storage == "mongo" {
		client, err := mongo.NewClient(logger)
		if err != nil {
			return nil, nil, nil, nil, nil, err
		}
		closeFn := func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			client.Close(ctx)
		}
		return mongo.NewTaskRepository(client.Database),
			mongo.NewMediaRepository(client.Database),
			mongo.NewVoiceRepository(client.Database),
			mongo.NewCoursewareRepository(client.Database),
			closeFn, nil
	}

	store, err := filestore.Open(cfg.DataDir)
	if err != nil {
		return nil, nil, nil, nil, nil, err
	}
	return filestore.NewTaskRepository(store),
		filestore.NewMediaRepository(store),
		filestore.NewVoiceRepository(store),
		filestore.NewCoursewareRepository(store),
		func() {}, nil
}
