// Package audio provides the in-process signal processing the pipeline
// needs: WAV PCM16 codec, resampling, voice activity detection, and the
// acoustic feature extraction backing the voice embedding engine.
package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"
)

// Clip is decoded mono audio.
type Clip struct {
	Samples []float64
	Rate    int
}

// Duration returns the clip length in seconds.
func (c Clip) Duration() float64 {
	if c.Rate <= 0 {
		return 0
	}
	return float64(len(c.Samples)) / float64(c.Rate)
}

var errNotWAV = errors.New("not a RIFF/WAVE stream")

// DecodeWAV parses a PCM16 WAV byte stream into mono samples in [-1,1].
// Multi-channel audio is downmixed by averaging.
func DecodeWAV(data []byte) (Clip, error) {
	if len(data) < 44 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return Clip{}, errNotWAV
	}

	var (
		sampleRate    int
		channels      int
		bitsPerSample int
		pcm           []byte
	)

	// Walk the chunk list; tolerate unknown chunks.
	off := 12
	for off+8 <= len(data) {
		id := string(data[off : off+4])
		size := int(binary.LittleEndian.Uint32(data[off+4 : off+8]))
		body := off + 8
		if body+size > len(data) {
			size = len(data) - body
		}
		switch id {
		case "fmt ":
			if size < 16 {
				return Clip{}, fmt.Errorf("wav fmt chunk truncated (%d bytes)", size)
			}
			format := int(binary.LittleEndian.Uint16(data[body : body+2]))
			if format != 1 {
				return Clip{}, fmt.Errorf("unsupported wav format tag %d (PCM only)", format)
			}
			channels = int(binary.LittleEndian.Uint16(data[body+2 : body+4]))
			sampleRate = int(binary.LittleEndian.Uint32(data[body+4 : body+8]))
			bitsPerSample = int(binary.LittleEndian.Uint16(data[body+14 : body+16]))
		case "data":
			pcm = data[body : body+size]
		}
		// Chunks are word aligned.
		off = body + size + size%2
	}

	if sampleRate == 0 || channels == 0 || pcm == nil {
		return Clip{}, errors.New("wav missing fmt or data chunk")
	}
	if bitsPerSample != 16 {
		return Clip{}, fmt.Errorf("unsupported bit depth %d (16-bit PCM only)", bitsPerSample)
	}

	frames := len(pcm) / (2 * channels)
	samples := make([]float64, frames)
	for i := 0; i < frames; i++ {
		var sum float64
		for ch := 0; ch < channels; ch++ {
			v := int16(binary.LittleEndian.Uint16(pcm[(i*channels+ch)*2:]))
			sum += float64(v) / 32768.0
		}
		samples[i] = sum / float64(channels)
	}

	return Clip{Samples: samples, Rate: sampleRate}, nil
}

// EncodeWAV renders mono samples as a PCM16 WAV byte stream.
func EncodeWAV(clip Clip) []byte {
	n := len(clip.Samples)
	dataSize := n * 2
	buf := make([]byte, 44+dataSize)

	copy(buf[0:4], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:8], uint32(36+dataSize))
	copy(buf[8:12], "WAVE")
	copy(buf[12:16], "fmt ")
	binary.LittleEndian.PutUint32(buf[16:20], 16)
	binary.LittleEndian.PutUint16(buf[20:22], 1) // PCM
	binary.LittleEndian.PutUint16(buf[22:24], 1) // mono
	binary.LittleEndian.PutUint32(buf[24:28], uint32(clip.Rate))
	binary.LittleEndian.PutUint32(buf[28:32], uint32(clip.Rate*2))
	binary.LittleEndian.PutUint16(buf[32:34], 2)
	binary.LittleEndian.PutUint16(buf[34:36], 16)
	copy(buf[36:40], "data")
	binary.LittleEndian.PutUint32(buf[40:44], uint32(dataSize))

	for i, s := range clip.Samples {
		v := int16(math.Round(clamp(s, -1, 1) * 32767))
		binary.LittleEndian.PutUint16(buf[44+i*2:], uint16(v))
	}
	return buf
}

// LoadWAV reads and decodes a WAV file.
func LoadWAV(path string) (Clip, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Clip{}, err
	}
	clip, err := DecodeWAV(data)
	if err != nil {
		return Clip{}, fmt.Errorf("decode %s: %w", path, err)
	}
	return clip, nil
}

// SaveWAV encodes and writes a WAV file.
func SaveWAV(path string, clip Clip) error {
	return os.WriteFile(path, EncodeWAV(clip), 0o644)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
