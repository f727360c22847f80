package audio

// Stitch concatenates clips into one continuous track. Clips whose sample
// rate differs from the first clip's are resampled to match it before
// concatenation. Order is the caller's responsibility.
func Stitch(clips []Clip) Clip {
	if len(clips) == 0 {
		return Clip{}
	}
	rate := clips[0].Rate

	total := 0
	resampled := make([]Clip, len(clips))
	for i, c := range clips {
		resampled[i] = Resample(c, rate)
		total += len(resampled[i].Samples)
	}

	out := make([]float64, 0, total)
	for _, c := range resampled {
		out = append(out, c.Samples...)
	}
	return Clip{Samples: out, Rate: rate}
}
