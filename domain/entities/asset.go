package entities

import (
	"errors"
	"time"
)

// MediaKind distinguishes audio-only assets from video containers.
type MediaKind string

const (
	MediaKindAudio MediaKind = "audio"
	MediaKindVideo MediaKind = "video"
)

// MediaAsset represents an uploaded media file. Duration is set once by the
// transcription stage after the audio has been decoded; every other field is
// immutable after upload.
type MediaAsset struct {
	ID               string    `json:"id" bson:"id"`
	Name             string    `json:"name" bson:"name"`
	OriginalFilename string    `json:"original_filename" bson:"original_filename"`
	Path             string    `json:"path" bson:"path"`
	Kind             MediaKind `json:"kind" bson:"kind"`
	Size             int64     `json:"size" bson:"size"`
	Duration         *float64  `json:"duration,omitempty" bson:"duration"`
	CreatedAt        time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt        time.Time `json:"updated_at" bson:"updated_at"`
}

func (a *MediaAsset) Validate() error {
	if a.Name == "" {
		return errors.New("asset name is required")
	}
	if a.Path == "" {
		return errors.New("asset path is required")
	}
	if a.Kind != MediaKindAudio && a.Kind != MediaKindVideo {
		return errors.New("asset kind must be audio or video")
	}
	return nil
}
