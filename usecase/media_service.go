package usecase

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"lukechampine.com/blake3"

	"github.com/prasasta/revoice/domain/entities"
	"github.com/prasasta/revoice/domain/repositories"
)

// MediaService handles media uploads. Asset ids are derived from a content
// hash, so re-uploading the same bytes returns the existing asset instead of
// storing a duplicate.
type MediaService struct {
	media   repositories.MediaRepository
	dataDir string
	logger  *zap.Logger
}

// NewMediaService creates a new media service
func NewMediaService(media repositories.MediaRepository, dataDir string, logger *zap.Logger) *MediaService {
	return &MediaService{
		media:   media,
		dataDir: dataDir,
		logger:  logger,
	}
}

// Upload stores an uploaded file and registers it as a media asset.
func (s *MediaService) Upload(ctx context.Context, name, filename string, data []byte) (*entities.MediaAsset, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("uploaded file is empty")
	}

	sum := blake3.Sum256(data)
	id := hex.EncodeToString(sum[:8])

	if existing, err := s.media.Get(ctx, id); err == nil {
		s.logger.Info("duplicate upload, reusing asset",
			zap.String("assetID", id),
			zap.String("filename", filename))
		return existing, nil
	}

	dir := filepath.Join(s.dataDir, "media")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create media dir: %w", err)
	}
	path := filepath.Join(dir, id+strings.ToLower(filepath.Ext(filename)))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return nil, fmt.Errorf("store media file: %w", err)
	}

	asset := &entities.MediaAsset{
		ID:               id,
		Name:             name,
		OriginalFilename: filename,
		Path:             path,
		Kind:             detectKind(filename),
		Size:             int64(len(data)),
		CreatedAt:        time.Now(),
		UpdatedAt:        time.Now(),
	}
	if err := asset.Validate(); err != nil {
		return nil, err
	}
	if err := s.media.Create(ctx, asset); err != nil {
		return nil, fmt.Errorf("persist asset: %w", err)
	}

	s.logger.Info("media uploaded",
		zap.String("assetID", id),
		zap.String("kind", string(asset.Kind)),
		zap.Int64("size", asset.Size))
	return asset, nil
}

// Get returns a stored media asset.
func (s *MediaService) Get(ctx context.Context, id string) (*entities.MediaAsset, error) {
	return s.media.Get(ctx, id)
}

// List returns every stored media asset.
func (s *MediaService) List(ctx context.Context) ([]*entities.MediaAsset, error) {
	return s.media.List(ctx)
}

func detectKind(filename string) entities.MediaKind {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".mp4", ".mkv", ".avi", ".mov", ".webm":
		return entities.MediaKindVideo
	default:
		return entities.MediaKindAudio
	}
}
