// Package pitch estimates the fundamental frequency of analysis frames.
//
// The tracker is a pure function over a frame: identical input produces
// identical output, which keeps parallel evaluation and tests
// reproducible.
package pitch

import (
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
	"gonum.org/v1/gonum/dsp/window"

	"github.com/dudk/transcribe"
	"github.com/dudk/transcribe/signal"
)

// Observation is a per-frame pitch estimate. Frequency is 0 for an
// unvoiced frame. Confidence is the normalized periodicity strength.
type Observation struct {
	Time       float64
	Frequency  float64
	Confidence float64
}

// Voiced reports whether the frame exhibits a detectable pitch.
func (o Observation) Voiced() bool {
	return o.Frequency > 0
}

// Tracker estimates fundamental frequency with windowed FFT
// autocorrelation restricted to a configurable band.
type Tracker struct {
	sampleRate int
	fMin       float64
	fMax       float64
	threshold  float64
}

// NewTracker creates a tracker for the given analysis config.
func NewTracker(cfg transcribe.Config) *Tracker {
	return &Tracker{
		sampleRate: cfg.SampleRate,
		fMin:       cfg.FMin,
		fMax:       cfg.FMax,
		threshold:  cfg.VoicingThreshold,
	}
}

// Track returns the pitch observation for a single frame. Silent frames
// and frames with non-finite samples are unvoiced with confidence 0.
func (t *Tracker) Track(frame signal.Frame) Observation {
	unvoiced := Observation{Time: frame.Start}
	if len(frame.Samples) == 0 || !signal.Finite(frame.Samples) {
		return unvoiced
	}

	// frames are borrowed, window a copy
	windowed := make([]float64, len(frame.Samples))
	copy(windowed, frame.Samples)
	window.Hann(windowed)

	r := autocorrelation(windowed)
	r0 := r[0]
	if r0 <= 1e-12 {
		return unvoiced
	}

	minLag := int(float64(t.sampleRate) / t.fMax)
	if minLag < 2 {
		minLag = 2
	}
	maxLag := int(math.Ceil(float64(t.sampleRate) / t.fMin))
	if maxLag > len(r)-2 {
		maxLag = len(r) - 2
	}
	if minLag >= maxLag {
		return unvoiced
	}

	// the zero-lag main lobe decays slowly and can exceed the period
	// peak for low fundamentals, so the search starts after the first
	// non-positive autocorrelation value
	start := minLag
	for lag := 1; lag <= maxLag; lag++ {
		if r[lag] <= 0 {
			if lag > start {
				start = lag
			}
			break
		}
	}

	best := -1
	bestValue := 0.0
	for lag := start; lag <= maxLag; lag++ {
		if v := r[lag]; v > bestValue {
			best = lag
			bestValue = v
		}
	}
	if best < 0 {
		return unvoiced
	}

	strength := bestValue / r0
	if strength > 1 {
		strength = 1
	}
	if strength < t.threshold {
		unvoiced.Confidence = strength
		return unvoiced
	}

	lag := interpolate(r, best)
	frequency := float64(t.sampleRate) / lag
	if frequency < t.fMin || frequency > t.fMax {
		unvoiced.Confidence = strength
		return unvoiced
	}

	return Observation{
		Time:       frame.Start,
		Frequency:  frequency,
		Confidence: strength,
	}
}

// autocorrelation computes the raw autocorrelation of x via FFT over a
// zero-padded power-of-two buffer.
func autocorrelation(x []float64) []float64 {
	size := nextPowerOfTwo(2 * len(x))
	padded := make([]float64, size)
	copy(padded, x)

	spectrum := fft.FFTReal(padded)
	for i := range spectrum {
		spectrum[i] = spectrum[i] * cmplx.Conj(spectrum[i])
	}
	inverse := fft.IFFT(spectrum)

	r := make([]float64, len(x))
	for i := range r {
		r[i] = real(inverse[i])
	}
	return r
}

// interpolate refines a peak lag with a parabolic fit over its
// neighbors.
func interpolate(r []float64, lag int) float64 {
	if lag <= 0 || lag >= len(r)-1 {
		return float64(lag)
	}
	a, b, c := r[lag-1], r[lag], r[lag+1]
	denominator := a - 2*b + c
	if denominator == 0 {
		return float64(lag)
	}
	shift := 0.5 * (a - c) / denominator
	if shift < -1 || shift > 1 {
		return float64(lag)
	}
	return float64(lag) + shift
}

func nextPowerOfTwo(n int) int {
	size := 1
	for size < n {
		size <<= 1
	}
	return size
}
