package audio

import (
	"math"
	"os"
	"path/filepath"
	"testing"
)

// testClip builds a clip with sine bursts at the given spans and silence
// elsewhere.
func testClip(rate int, total float64, bursts []Span) Clip {
	samples := make([]float64, int(total*float64(rate)))
	for _, b := range bursts {
		lo := int(b.Start * float64(rate))
		hi := int(b.End * float64(rate))
		for i := lo; i < hi && i < len(samples); i++ {
			t := float64(i) / float64(rate)
			samples[i] = 0.5 * math.Sin(2*math.Pi*220*t)
		}
	}
	return Clip{Samples: samples, Rate: rate}
}

func TestDetectSpeech_ThreeBursts(t *testing.T) {
	bursts := []Span{{Start: 2, End: 5}, {Start: 10, End: 13}, {Start: 20, End: 24}}
	clip := testClip(16000, 30, bursts)

	spans := DetectSpeech(clip, DefaultVADOptions())
	if len(spans) != 3 {
		t.Fatalf("got %d spans, want 3: %+v", len(spans), spans)
	}

	prevEnd := 0.0
	for i, s := range spans {
		if s.End <= prevEnd {
			t.Errorf("span %d end %.2f not strictly increasing", i, s.End)
		}
		prevEnd = s.End
		if s.End > 30 {
			t.Errorf("span %d end %.2f exceeds clip duration", i, s.End)
		}
		// Each detected span should roughly cover its burst.
		if math.Abs(s.Start-bursts[i].Start) > 0.5 {
			t.Errorf("span %d start %.2f far from burst start %.2f", i, s.Start, bursts[i].Start)
		}
	}
}

func TestDetectSpeech_DiscardsShortRuns(t *testing.T) {
	// One real burst plus a 0.2s blip below min duration.
	clip := testClip(16000, 10, []Span{{Start: 1, End: 3}, {Start: 6, End: 6.2}})

	spans := DetectSpeech(clip, DefaultVADOptions())
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1 (short blip discarded): %+v", len(spans), spans)
	}
}

func TestDetectSpeech_ForceSplitsLongRuns(t *testing.T) {
	// 25 seconds of continuous tone must be split at the 10s max.
	clip := testClip(16000, 25, []Span{{Start: 0, End: 25}})

	opts := DefaultVADOptions()
	spans := DetectSpeech(clip, opts)
	if len(spans) < 3 {
		t.Fatalf("got %d spans, want at least 3 from force-splitting", len(spans))
	}
	for i, s := range spans {
		if s.End-s.Start > opts.MaxDuration+0.1 {
			t.Errorf("span %d length %.2f exceeds max duration", i, s.End-s.Start)
		}
	}
}

func TestUniformSplit(t *testing.T) {
	spans := UniformSplit(30, 3)
	if len(spans) != 3 {
		t.Fatalf("got %d spans, want 3", len(spans))
	}
	if spans[0].Start != 0 || spans[2].End != 30 {
		t.Errorf("splits do not cover the full duration: %+v", spans)
	}
	for i := 1; i < len(spans); i++ {
		if spans[i].Start != spans[i-1].End {
			t.Errorf("gap between span %d and %d", i-1, i)
		}
	}
}

func TestStitch_ResamplesToFirstRate(t *testing.T) {
	one := testClip(22050, 1, []Span{{Start: 0, End: 1}})
	two := testClip(44100, 1, []Span{{Start: 0, End: 1}})
	three := testClip(22050, 1, []Span{{Start: 0, End: 1}})

	out := Stitch([]Clip{one, two, three})
	if out.Rate != 22050 {
		t.Fatalf("stitched rate = %d, want 22050", out.Rate)
	}

	want := len(one.Samples) + len(two.Samples)/2 + len(three.Samples)
	got := len(out.Samples)
	if math.Abs(float64(got-want)) > 4 {
		t.Errorf("stitched length = %d, want about %d", got, want)
	}
}

func TestResample_PreservesDuration(t *testing.T) {
	clip := testClip(44100, 2, []Span{{Start: 0, End: 2}})
	out := Resample(clip, 16000)
	if out.Rate != 16000 {
		t.Fatalf("rate = %d, want 16000", out.Rate)
	}
	if math.Abs(out.Duration()-2) > 0.01 {
		t.Errorf("duration = %.3f, want 2.0", out.Duration())
	}
	// Same-rate resampling is a no-op.
	same := Resample(clip, 44100)
	if len(same.Samples) != len(clip.Samples) {
		t.Error("same-rate resample changed length")
	}
}

func TestWAV_RoundTrip(t *testing.T) {
	clip := testClip(16000, 0.5, []Span{{Start: 0, End: 0.5}})

	path := filepath.Join(t.TempDir(), "clip.wav")
	if err := SaveWAV(path, clip); err != nil {
		t.Fatalf("SaveWAV: %v", err)
	}
	loaded, err := LoadWAV(path)
	if err != nil {
		t.Fatalf("LoadWAV: %v", err)
	}

	if loaded.Rate != clip.Rate {
		t.Fatalf("rate = %d, want %d", loaded.Rate, clip.Rate)
	}
	if len(loaded.Samples) != len(clip.Samples) {
		t.Fatalf("length = %d, want %d", len(loaded.Samples), len(clip.Samples))
	}
	for i := range clip.Samples {
		if math.Abs(loaded.Samples[i]-clip.Samples[i]) > 1.0/32000 {
			t.Fatalf("sample %d = %v, want %v", i, loaded.Samples[i], clip.Samples[i])
		}
	}
}

func TestDecodeWAV_Garbage(t *testing.T) {
	if _, err := DecodeWAV([]byte("definitely not a wav file")); err == nil {
		t.Error("garbage input should fail to decode")
	}

	path := filepath.Join(t.TempDir(), "bad.wav")
	os.WriteFile(path, []byte("RIFFxxxx"), 0o644)
	if _, err := LoadWAV(path); err == nil {
		t.Error("truncated file should fail to load")
	}
}

func TestExtractFeatures_PitchedTone(t *testing.T) {
	clip := testClip(16000, 2, []Span{{Start: 0, End: 2}})

	f := ExtractFeatures(clip)
	if f.PitchMean < 180 || f.PitchMean > 260 {
		t.Errorf("pitch mean = %.1f, want near 220", f.PitchMean)
	}
	if f.EnergyMean <= 0 {
		t.Error("energy mean should be positive for a tone")
	}

	emb := f.Embedding()
	if len(emb) != 7+len(f.MFCCMeans) {
		t.Errorf("embedding length = %d, want %d", len(emb), 7+len(f.MFCCMeans))
	}
	if emb[0] != f.PitchMean || emb[2] != f.EnergyMean {
		t.Error("embedding slots do not match feature order")
	}
}

func TestTrimSilence(t *testing.T) {
	clip := testClip(16000, 3, []Span{{Start: 1, End: 2}})
	trimmed := TrimSilence(clip, -40)
	if trimmed.Duration() >= clip.Duration() {
		t.Error("trimming should shorten a padded clip")
	}
	if trimmed.Duration() < 0.8 {
		t.Errorf("trimmed too aggressively: %.2fs left", trimmed.Duration())
	}
}
