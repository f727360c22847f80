package audio

import "math"

// Number of MFCC coefficients in the hand-engineered embedding.
const numMFCC = 13

const numMelFilters = 26

// Features are the hand-engineered acoustic statistics of a voice sample.
type Features struct {
	Duration          float64   `json:"duration"`
	PitchMean         float64   `json:"pitch_mean"`
	PitchStd          float64   `json:"pitch_std"`
	EnergyMean        float64   `json:"energy_mean"`
	EnergyStd         float64   `json:"energy_std"`
	SpectralCentroid  float64   `json:"spectral_centroid"`
	SpectralBandwidth float64   `json:"spectral_bandwidth"`
	SpectralContrast  float64   `json:"spectral_contrast"`
	MFCCMeans         []float64 `json:"mfcc_means"`
}

// Embedding concatenates the features into the comparable fingerprint
// vector: [pitch_mean, pitch_std, energy_mean, energy_std, centroid,
// bandwidth, contrast, mfcc_means...].
func (f Features) Embedding() []float64 {
	emb := make([]float64, 0, 7+len(f.MFCCMeans))
	emb = append(emb, f.PitchMean, f.PitchStd, f.EnergyMean, f.EnergyStd,
		f.SpectralCentroid, f.SpectralBandwidth, f.SpectralContrast)
	emb = append(emb, f.MFCCMeans...)
	return emb
}

// ExtractFeatures computes the full feature set over a clip using 25 ms
// frames with a 10 ms hop.
func ExtractFeatures(clip Clip) Features {
	f := Features{Duration: clip.Duration(), MFCCMeans: make([]float64, numMFCC)}
	if len(clip.Samples) == 0 || clip.Rate <= 0 {
		return f
	}

	frame := clip.Rate * 25 / 1000
	hop := clip.Rate * 10 / 1000
	if frame <= 0 || len(clip.Samples) < frame {
		return f
	}

	energies := FrameEnergies(clip, 25, 10)
	f.EnergyMean = mean(energies)
	f.EnergyStd = stddev(energies)

	// Voiced-frame gate for the pitch track: keep frames whose energy is
	// above a tenth of the peak frame energy.
	peakEnergy := 0.0
	for _, e := range energies {
		if e > peakEnergy {
			peakEnergy = e
		}
	}
	gate := 0.1 * peakEnergy

	var (
		pitches   []float64
		centroids []float64
		bands     []float64
		contrasts []float64
		mfccSums  = make([]float64, numMFCC)
		frames    int
	)

	mel := melFilterbank(clip.Rate, frame)

	for start, i := 0, 0; start+frame <= len(clip.Samples); start, i = start+hop, i+1 {
		window := clip.Samples[start : start+frame]

		if i < len(energies) && energies[i] > gate {
			if p := framePitch(window, clip.Rate); p > 0 {
				pitches = append(pitches, p)
			}
		}

		spec := powerSpectrum(window)
		c, bw := spectralMoments(spec, clip.Rate)
		centroids = append(centroids, c)
		bands = append(bands, bw)
		contrasts = append(contrasts, spectralContrast(spec))

		coeffs := mfcc(spec, mel)
		for k := range mfccSums {
			mfccSums[k] += coeffs[k]
		}
		frames++
	}

	f.PitchMean = mean(pitches)
	f.PitchStd = stddev(pitches)
	f.SpectralCentroid = mean(centroids)
	f.SpectralBandwidth = mean(bands)
	f.SpectralContrast = mean(contrasts)
	if frames > 0 {
		for k := range mfccSums {
			f.MFCCMeans[k] = mfccSums[k] / float64(frames)
		}
	}
	return f
}

// framePitch estimates fundamental frequency by autocorrelation, searching
// the 60-400 Hz band typical for human speech. Returns 0 for unvoiced.
func framePitch(window []float64, rate int) float64 {
	minLag := rate / 400
	maxLag := rate / 60
	if maxLag >= len(window) {
		maxLag = len(window) - 1
	}
	if minLag < 1 || minLag >= maxLag {
		return 0
	}

	var energy float64
	for _, s := range window {
		energy += s * s
	}
	if energy == 0 {
		return 0
	}

	bestLag, bestCorr := 0, 0.0
	for lag := minLag; lag <= maxLag; lag++ {
		var corr float64
		for i := 0; i+lag < len(window); i++ {
			corr += window[i] * window[i+lag]
		}
		if corr > bestCorr {
			bestCorr = corr
			bestLag = lag
		}
	}

	// Require meaningful periodicity before declaring the frame voiced.
	if bestLag == 0 || bestCorr/energy < 0.3 {
		return 0
	}
	return float64(rate) / float64(bestLag)
}

// spectralMoments returns the centroid and bandwidth (Hz) of one frame.
func spectralMoments(spec []float64, rate int) (centroid, bandwidth float64) {
	binHz := float64(rate) / float64((len(spec)-1)*2)
	var total, weighted float64
	for i, p := range spec {
		total += p
		weighted += p * float64(i) * binHz
	}
	if total == 0 {
		return 0, 0
	}
	centroid = weighted / total

	var spread float64
	for i, p := range spec {
		d := float64(i)*binHz - centroid
		spread += p * d * d
	}
	bandwidth = math.Sqrt(spread / total)
	return centroid, bandwidth
}

// spectralContrast measures the mean peak-to-valley distance of the log
// spectrum across six octave bands.
func spectralContrast(spec []float64) float64 {
	const bandCount = 6
	if len(spec) < bandCount*2 {
		return 0
	}

	var sum float64
	lo := 1
	for b := 0; b < bandCount; b++ {
		hi := lo * 2
		if b == bandCount-1 || hi > len(spec) {
			hi = len(spec)
		}
		peak, valley := math.Inf(-1), math.Inf(1)
		for i := lo; i < hi; i++ {
			v := math.Log(spec[i] + 1e-10)
			if v > peak {
				peak = v
			}
			if v < valley {
				valley = v
			}
		}
		if !math.IsInf(peak, -1) {
			sum += peak - valley
		}
		lo = hi
		if lo >= len(spec) {
			break
		}
	}
	return sum / bandCount
}

// melFilterbank builds triangular filters over the power spectrum bins.
func melFilterbank(rate, frameLen int) [][]float64 {
	fftLen := 1
	for fftLen < frameLen {
		fftLen <<= 1
	}
	bins := fftLen/2 + 1
	binHz := float64(rate) / float64(fftLen)

	melLo := hzToMel(0)
	melHi := hzToMel(float64(rate) / 2)
	points := make([]float64, numMelFilters+2)
	for i := range points {
		m := melLo + (melHi-melLo)*float64(i)/float64(numMelFilters+1)
		points[i] = melToHz(m) / binHz
	}

	filters := make([][]float64, numMelFilters)
	for m := range filters {
		filters[m] = make([]float64, bins)
		left, center, right := points[m], points[m+1], points[m+2]
		for k := 0; k < bins; k++ {
			f := float64(k)
			switch {
			case f > left && f <= center:
				filters[m][k] = (f - left) / (center - left)
			case f > center && f < right:
				filters[m][k] = (right - f) / (right - center)
			}
		}
	}
	return filters
}

// mfcc projects a frame's power spectrum through the mel filterbank and a
// DCT-II, returning the first numMFCC coefficients.
func mfcc(spec []float64, filters [][]float64) []float64 {
	logMel := make([]float64, len(filters))
	for m, filter := range filters {
		var sum float64
		n := len(spec)
		if len(filter) < n {
			n = len(filter)
		}
		for k := 0; k < n; k++ {
			sum += spec[k] * filter[k]
		}
		logMel[m] = math.Log(sum + 1e-10)
	}

	coeffs := make([]float64, numMFCC)
	for k := range coeffs {
		var sum float64
		for m, v := range logMel {
			sum += v * math.Cos(math.Pi*float64(k)*(float64(m)+0.5)/float64(len(logMel)))
		}
		coeffs[k] = sum
	}
	return coeffs
}

func hzToMel(hz float64) float64 {
	return 2595 * math.Log10(1+hz/700)
}

func melToHz(mel float64) float64 {
	return 700 * (math.Pow(10, mel/2595) - 1)
}
