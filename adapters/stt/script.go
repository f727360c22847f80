package stt

import (
	"context"
	"fmt"

	"github.com/prasasta/revoice/domain/repositories"
)

// ScriptRecognizer is the fallback recognizer used when no cloud engine is
// configured. It emits deterministic, interval-stamped text so the rest of
// the pipeline can operate end to end without credentials.
type ScriptRecognizer struct{}

func NewScriptRecognizer() *ScriptRecognizer {
	return &ScriptRecognizer{}
}

func (s *ScriptRecognizer) Name() string {
	return "script"
}

// Recognize implements repositories.Recognizer
func (s *ScriptRecognizer) Recognize(ctx context.Context, clip repositories.AudioClip, interval repositories.Interval, language string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(clip.Samples) == 0 {
		return "", fmt.Errorf("empty audio clip for interval %d", interval.Index)
	}
	if language == "zh" {
		return fmt.Sprintf("这是第%d个转写段落，时间范围从%.2f秒到%.2f秒。",
			interval.Index+1, interval.Start, interval.End), nil
	}
	return fmt.Sprintf("This is transcript segment %d, time range from %.2f seconds to %.2f seconds.",
		interval.Index+1, interval.Start, interval.End), nil
}
