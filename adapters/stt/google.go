package stt

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"strings"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"

	"github.com/prasasta/revoice/domain/repositories"
)

// GoogleRecognizer transcribes speech intervals with Google Cloud
// Speech-to-Text. Each interval is short enough (ten seconds at most after
// segmentation) for the synchronous Recognize API.
type GoogleRecognizer struct{}

func NewGoogleRecognizer() *GoogleRecognizer {
	return &GoogleRecognizer{}
}

func (g *GoogleRecognizer) Name() string {
	return "google"
}

// Recognize implements repositories.Recognizer
func (g *GoogleRecognizer) Recognize(ctx context.Context, clip repositories.AudioClip, interval repositories.Interval, language string) (string, error) {
	if len(clip.Samples) == 0 {
		return "", fmt.Errorf("empty audio clip for interval %d", interval.Index)
	}
	if language == "" {
		language = "en-US"
	}

	client, err := speech.NewClient(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to create speech client: %w", err)
	}
	defer client.Close()

	resp, err := client.Recognize(ctx, &speechpb.RecognizeRequest{
		Config: &speechpb.RecognitionConfig{
			Encoding:        speechpb.RecognitionConfig_LINEAR16,
			SampleRateHertz: int32(clip.SampleRate),
			LanguageCode:    language,
		},
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{
				Content: pcm16Bytes(clip.Samples),
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("recognize interval %d: %w", interval.Index, err)
	}

	var parts []string
	for _, result := range resp.Results {
		if len(result.Alternatives) > 0 {
			parts = append(parts, result.Alternatives[0].Transcript)
		}
	}
	text := strings.TrimSpace(strings.Join(parts, " "))
	if text == "" {
		return "", fmt.Errorf("no speech detected in interval %d", interval.Index)
	}
	return text, nil
}

// pcm16Bytes converts float samples in [-1, 1] to little-endian 16-bit PCM.
func pcm16Bytes(samples []float64) []byte {
	buf := make([]byte, 2*len(samples))
	for i, s := range samples {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		binary.LittleEndian.PutUint16(buf[2*i:], uint16(int16(math.Round(s*32767))))
	}
	return buf
}
