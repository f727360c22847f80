package audio

import "math"

// Resample converts a clip to a target sample rate by linear interpolation.
// Returns the clip unchanged when rates already match.
func Resample(clip Clip, targetRate int) Clip {
	if clip.Rate == targetRate || clip.Rate <= 0 || len(clip.Samples) == 0 {
		return Clip{Samples: clip.Samples, Rate: targetRate}
	}

	ratio := float64(clip.Rate) / float64(targetRate)
	n := int(math.Floor(float64(len(clip.Samples)) / ratio))
	out := make([]float64, n)
	for i := range out {
		pos := float64(i) * ratio
		j := int(pos)
		if j+1 >= len(clip.Samples) {
			out[i] = clip.Samples[len(clip.Samples)-1]
			continue
		}
		frac := pos - float64(j)
		out[i] = clip.Samples[j]*(1-frac) + clip.Samples[j+1]*frac
	}
	return Clip{Samples: out, Rate: targetRate}
}

// Normalize scales samples so the peak magnitude is 0.95. Silent input is
// returned unchanged.
func Normalize(samples []float64) []float64 {
	peak := 0.0
	for _, s := range samples {
		if a := math.Abs(s); a > peak {
			peak = a
		}
	}
	if peak == 0 {
		return samples
	}
	out := make([]float64, len(samples))
	scale := 0.95 / peak
	for i, s := range samples {
		out[i] = s * scale
	}
	return out
}

// TrimSilence drops leading and trailing runs whose RMS falls below
// threshold relative to the clip peak.
func TrimSilence(clip Clip, thresholdDB float64) Clip {
	if len(clip.Samples) == 0 {
		return clip
	}
	frame := clip.Rate / 50 // 20 ms
	if frame < 1 {
		frame = 1
	}
	peak := 0.0
	for _, s := range clip.Samples {
		if a := math.Abs(s); a > peak {
			peak = a
		}
	}
	if peak == 0 {
		return clip
	}
	limit := peak * math.Pow(10, -thresholdDB/20)

	start, end := 0, len(clip.Samples)
	for start < end {
		hi := start + frame
		if hi > end {
			hi = end
		}
		if rms(clip.Samples[start:hi]) > limit {
			break
		}
		start = hi
	}
	for end > start {
		lo := end - frame
		if lo < start {
			lo = start
		}
		if rms(clip.Samples[lo:end]) > limit {
			break
		}
		end = lo
	}
	return Clip{Samples: clip.Samples[start:end], Rate: clip.Rate}
}

// FrameEnergies computes short-time RMS energy with the given frame and hop
// lengths in milliseconds.
func FrameEnergies(clip Clip, frameMs, hopMs int) []float64 {
	frame := clip.Rate * frameMs / 1000
	hop := clip.Rate * hopMs / 1000
	if frame <= 0 || hop <= 0 || len(clip.Samples) < frame {
		return nil
	}
	var energies []float64
	for start := 0; start+frame <= len(clip.Samples); start += hop {
		energies = append(energies, rms(clip.Samples[start:start+frame]))
	}
	return energies
}

func rms(samples []float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += s * s
	}
	return math.Sqrt(sum / float64(len(samples)))
}

func mean(v []float64) float64 {
	if len(v) == 0 {
		return 0
	}
	var sum float64
	for _, x := range v {
		sum += x
	}
	return sum / float64(len(v))
}

func stddev(v []float64) float64 {
	if len(v) < 2 {
		return 0
	}
	m := mean(v)
	var sum float64
	for _, x := range v {
		d := x - m
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(v)))
}

// fft computes an in-place iterative radix-2 Cooley-Tukey transform.
// len(re) must be a power of two.
func fft(re, im []float64) {
	n := len(re)
	if n <= 1 {
		return
	}

	// Bit reversal permutation.
	for i, j := 1, 0; i < n; i++ {
		bit := n >> 1
		for ; j&bit != 0; bit >>= 1 {
			j ^= bit
		}
		j ^= bit
		if i < j {
			re[i], re[j] = re[j], re[i]
			im[i], im[j] = im[j], im[i]
		}
	}

	for length := 2; length <= n; length <<= 1 {
		ang := -2 * math.Pi / float64(length)
		wRe, wIm := math.Cos(ang), math.Sin(ang)
		for start := 0; start < n; start += length {
			curRe, curIm := 1.0, 0.0
			for k := 0; k < length/2; k++ {
				i, j := start+k, start+k+length/2
				tRe := re[j]*curRe - im[j]*curIm
				tIm := re[j]*curIm + im[j]*curRe
				re[j], im[j] = re[i]-tRe, im[i]-tIm
				re[i], im[i] = re[i]+tRe, im[i]+tIm
				curRe, curIm = curRe*wRe-curIm*wIm, curRe*wIm+curIm*wRe
			}
		}
	}
}

// powerSpectrum returns |FFT|^2 of a Hann-windowed frame, zero padded to the
// next power of two. Only the first n/2+1 bins are returned.
func powerSpectrum(frame []float64) []float64 {
	n := 1
	for n < len(frame) {
		n <<= 1
	}
	re := make([]float64, n)
	im := make([]float64, n)
	for i, s := range frame {
		w := 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(len(frame)-1))
		re[i] = s * w
	}
	fft(re, im)

	out := make([]float64, n/2+1)
	for i := range out {
		out[i] = re[i]*re[i] + im[i]*im[i]
	}
	return out
}
