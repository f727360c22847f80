package tts

import (
	"context"
	"math"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/prasasta/revoice/domain/entities"
	"github.com/prasasta/revoice/domain/repositories"
)

func TestSynthesize_BasicProperties(t *testing.T) {
	h := NewHarmonicSynthesizer(zaptest.NewLogger(t))
	params := entities.DefaultSynthesisParams()

	clip, err := h.Synthesize(context.Background(), "Hello, this is a narration test.", params)
	if err != nil {
		t.Fatal(err)
	}
	if clip.SampleRate != 24000 {
		t.Errorf("sample rate = %d, want 24000", clip.SampleRate)
	}
	if clip.Duration() < 1.0 {
		t.Errorf("duration = %v, want at least 1s", clip.Duration())
	}

	var peak float64
	for _, s := range clip.Samples {
		if a := math.Abs(s); a > peak {
			peak = a
		}
	}
	if peak > 0.951 || peak < 0.9 {
		t.Errorf("peak = %v, want normalized to 0.95", peak)
	}
}

func TestSynthesize_ShortTextFloorsToOneSecond(t *testing.T) {
	h := NewHarmonicSynthesizer(zaptest.NewLogger(t))

	clip, err := h.Synthesize(context.Background(), "Hi", entities.DefaultSynthesisParams())
	if err != nil {
		t.Fatal(err)
	}
	if got := clip.Duration(); math.Abs(got-1.0) > 1e-9 {
		t.Errorf("duration = %v, want exactly the 1s floor", got)
	}
}

func TestSynthesize_SpeedScalesDuration(t *testing.T) {
	h := NewHarmonicSynthesizer(zaptest.NewLogger(t))
	text := "A reasonably long sentence so the duration is well above one second."

	slow := entities.DefaultSynthesisParams()
	slow.Speed = 0.5
	fast := entities.DefaultSynthesisParams()
	fast.Speed = 2.0

	slowClip, err := h.Synthesize(context.Background(), text, slow)
	if err != nil {
		t.Fatal(err)
	}
	fastClip, err := h.Synthesize(context.Background(), text, fast)
	if err != nil {
		t.Fatal(err)
	}
	ratio := slowClip.Duration() / fastClip.Duration()
	if math.Abs(ratio-4.0) > 0.05 {
		t.Errorf("slow/fast duration ratio = %v, want 4.0", ratio)
	}
}

func TestSynthesize_Deterministic(t *testing.T) {
	h := NewHarmonicSynthesizer(zaptest.NewLogger(t))
	params := entities.DefaultSynthesisParams()
	text := "Determinism matters for caching."

	a, err := h.Synthesize(context.Background(), text, params)
	if err != nil {
		t.Fatal(err)
	}
	b, err := h.Synthesize(context.Background(), text, params)
	if err != nil {
		t.Fatal(err)
	}
	if len(a.Samples) != len(b.Samples) {
		t.Fatalf("lengths differ: %d vs %d", len(a.Samples), len(b.Samples))
	}
	for i := range a.Samples {
		if a.Samples[i] != b.Samples[i] {
			t.Fatalf("sample %d differs: %v vs %v", i, a.Samples[i], b.Samples[i])
		}
	}
}

func TestSynthesize_EmptyText(t *testing.T) {
	h := NewHarmonicSynthesizer(zaptest.NewLogger(t))
	if _, err := h.Synthesize(context.Background(), "", entities.DefaultSynthesisParams()); err == nil {
		t.Fatal("expected error for empty text")
	}
}

func TestSynthesize_CanceledContext(t *testing.T) {
	h := NewHarmonicSynthesizer(zaptest.NewLogger(t))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := h.Synthesize(ctx, "text", entities.DefaultSynthesisParams()); err == nil {
		t.Fatal("expected context error")
	}
}

func TestSynthesizeStream_ChunksReassemble(t *testing.T) {
	h := NewHarmonicSynthesizer(zaptest.NewLogger(t))
	params := entities.DefaultSynthesisParams()
	text := "Streaming delivers the same audio in fixed-size chunks."

	whole, err := h.Synthesize(context.Background(), text, params)
	if err != nil {
		t.Fatal(err)
	}

	chunks := make(chan repositories.AudioClip, 64)
	errs := make(chan error, 1)
	go func() {
		errs <- h.SynthesizeStream(context.Background(), text, params, chunks)
		close(chunks)
	}()

	var streamed []float64
	for chunk := range chunks {
		if chunk.SampleRate != 24000 {
			t.Errorf("chunk sample rate = %d", chunk.SampleRate)
		}
		if len(chunk.Samples) > streamChunk {
			t.Errorf("chunk length %d exceeds %d", len(chunk.Samples), streamChunk)
		}
		streamed = append(streamed, chunk.Samples...)
	}
	if err := <-errs; err != nil {
		t.Fatal(err)
	}
	if len(streamed) != len(whole.Samples) {
		t.Fatalf("streamed %d samples, want %d", len(streamed), len(whole.Samples))
	}
	for i := range streamed {
		if streamed[i] != whole.Samples[i] {
			t.Fatalf("sample %d differs after reassembly", i)
		}
	}
}
