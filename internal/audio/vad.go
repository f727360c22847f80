package audio

// Span is a speech-active interval in seconds.
type Span struct {
	Start float64
	End   float64
}

// VADOptions tune the energy-based voice activity detector.
type VADOptions struct {
	FrameMs        int     // analysis frame length, default 25
	HopMs          int     // hop between frames, default 10
	ThresholdK     float64 // adaptive threshold = K * mean(frame energy)
	MinDuration    float64 // discard runs shorter than this, seconds
	MaxDuration    float64 // force-split runs longer than this, seconds
	FallbackSplits int     // uniform split count when nothing is detected
}

// DefaultVADOptions returns the tuning used by the transcription stage.
func DefaultVADOptions() VADOptions {
	return VADOptions{
		FrameMs:        25,
		HopMs:          10,
		ThresholdK:     0.8,
		MinDuration:    0.5,
		MaxDuration:    10.0,
		FallbackSplits: 3,
	}
}

// DetectSpeech marks contiguous above-threshold energy runs as speech spans.
// Runs shorter than MinDuration are discarded; runs longer than MaxDuration
// are split into equal pieces. When no span survives, the whole clip is
// split uniformly into max(FallbackSplits, 3) spans so downstream stages
// always have something to work with.
func DetectSpeech(clip Clip, opts VADOptions) []Span {
	if opts.FrameMs <= 0 {
		opts.FrameMs = 25
	}
	if opts.HopMs <= 0 {
		opts.HopMs = 10
	}
	if opts.ThresholdK <= 0 {
		opts.ThresholdK = 0.8
	}
	if opts.MinDuration <= 0 {
		opts.MinDuration = 0.5
	}
	if opts.MaxDuration <= 0 {
		opts.MaxDuration = 10.0
	}

	total := clip.Duration()
	energies := FrameEnergies(clip, opts.FrameMs, opts.HopMs)
	hop := float64(opts.HopMs) / 1000
	frame := float64(opts.FrameMs) / 1000

	var spans []Span
	if len(energies) > 0 {
		threshold := opts.ThresholdK * mean(energies)

		inRun := false
		runStart := 0.0
		for i, e := range energies {
			t := float64(i) * hop
			switch {
			case e > threshold && !inRun:
				inRun = true
				runStart = t
			case e <= threshold && inRun:
				inRun = false
				spans = appendSpan(spans, Span{Start: runStart, End: t + frame}, opts)
			}
		}
		if inRun {
			spans = appendSpan(spans, Span{Start: runStart, End: total}, opts)
		}
	}

	if len(spans) == 0 {
		spans = UniformSplit(total, opts.FallbackSplits)
	}
	return spans
}

// appendSpan applies the min/max duration policy before keeping a run.
func appendSpan(spans []Span, s Span, opts VADOptions) []Span {
	if s.End-s.Start < opts.MinDuration {
		return spans
	}
	for s.End-s.Start > opts.MaxDuration {
		spans = append(spans, Span{Start: s.Start, End: s.Start + opts.MaxDuration})
		s.Start += opts.MaxDuration
	}
	if s.End-s.Start >= opts.MinDuration {
		spans = append(spans, s)
	}
	return spans
}

// UniformSplit divides [0,total] into at least 3 equal spans. This is a
// policy fallback, not an inference about the audio.
func UniformSplit(total float64, n int) []Span {
	if n < 3 {
		n = 3
	}
	if total <= 0 {
		return nil
	}
	spans := make([]Span, n)
	width := total / float64(n)
	for i := range spans {
		spans[i] = Span{Start: float64(i) * width, End: float64(i+1) * width}
	}
	spans[n-1].End = total
	return spans
}

// Slice extracts the samples covering a span.
func Slice(clip Clip, s Span) Clip {
	lo := int(s.Start * float64(clip.Rate))
	hi := int(s.End * float64(clip.Rate))
	if lo < 0 {
		lo = 0
	}
	if hi > len(clip.Samples) {
		hi = len(clip.Samples)
	}
	if lo >= hi {
		return Clip{Rate: clip.Rate}
	}
	return Clip{Samples: clip.Samples[lo:hi], Rate: clip.Rate}
}
