// Package onset detects note attacks in a frame stream with a spectral
// flux envelope and adaptive peak picking.
package onset

import (
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
	"gonum.org/v1/gonum/dsp/window"
	"gonum.org/v1/gonum/stat"

	"github.com/dudk/transcribe"
	"github.com/dudk/transcribe/signal"
)

const (
	// thresholdWindow is the number of flux frames on each side used
	// for the local adaptive threshold.
	thresholdWindow = 8
	// minStrength is the absolute floor on normalized flux. A steady
	// tone still carries numerical jitter that forms local peaks above
	// its local mean; those are orders of magnitude below any attack.
	minStrength = 0.05
)

// Event marks the time a new note attack begins. Events are sparse,
// ordered and deduplicated.
type Event struct {
	Time     float64
	Strength float64
}

// Detector scans a frame stream for note attacks.
type Detector struct {
	sampleRate  int
	sensitivity float64
	minGap      float64 // seconds
}

// NewDetector creates a detector for the given analysis config.
func NewDetector(cfg transcribe.Config) *Detector {
	return &Detector{
		sampleRate:  cfg.SampleRate,
		sensitivity: cfg.OnsetSensitivity,
		minGap:      cfg.MinOnsetGapMs / 1000,
	}
}

// Spectrum returns the magnitude spectrum of a single frame. It is a
// pure function, safe to evaluate in parallel across frames.
func (d *Detector) Spectrum(frame signal.Frame) []float64 {
	windowed := make([]float64, len(frame.Samples))
	if signal.Finite(frame.Samples) {
		copy(windowed, frame.Samples)
	}
	window.Hann(windowed)

	spectrum := fft.FFTReal(windowed)
	magnitudes := make([]float64, len(spectrum)/2+1)
	for i := range magnitudes {
		magnitudes[i] = cmplx.Abs(spectrum[i])
	}
	return magnitudes
}

// Pick computes the spectral flux envelope over precomputed spectra and
// picks onset peaks. Pure silence yields no events.
func (d *Detector) Pick(spectra [][]float64, frames []signal.Frame) []Event {
	if len(spectra) == 0 {
		return nil
	}
	flux := flux(spectra)

	peak := 0.0
	for _, v := range flux {
		if v > peak {
			peak = v
		}
	}
	if peak <= 0 {
		return nil
	}
	for i := range flux {
		flux[i] /= peak
	}

	// sensitivity 1 keeps the threshold at the local mean,
	// sensitivity 0 doubles it
	multiplier := 2 - d.sensitivity

	var events []Event
	lastTime := math.Inf(-1)
	for i := range flux {
		if !isPeak(flux, i) {
			continue
		}
		if flux[i] < minStrength || flux[i] <= localMean(flux, i)*multiplier {
			continue
		}
		t := frames[i].Start
		if t-lastTime < d.minGap {
			continue
		}
		events = append(events, Event{Time: t, Strength: flux[i]})
		lastTime = t
	}
	return events
}

// Detect is the sequential convenience form of Spectrum and Pick.
func (d *Detector) Detect(frames []signal.Frame) []Event {
	spectra := make([][]float64, len(frames))
	for i := range frames {
		spectra[i] = d.Spectrum(frames[i])
	}
	return d.Pick(spectra, frames)
}

// flux computes the positive spectral-energy difference between
// consecutive frames. The first frame is compared against silence, so a
// signal starting at time zero still produces an attack.
func flux(spectra [][]float64) []float64 {
	flux := make([]float64, len(spectra))
	for i := range spectra {
		sum := 0.0
		for k, m := range spectra[i] {
			previous := 0.0
			if i > 0 {
				previous = spectra[i-1][k]
			}
			if d := m - previous; d > 0 {
				sum += d
			}
		}
		flux[i] = sum
	}
	return flux
}

func isPeak(flux []float64, i int) bool {
	if i > 0 && flux[i] < flux[i-1] {
		return false
	}
	if i < len(flux)-1 && flux[i] <= flux[i+1] {
		return false
	}
	return flux[i] > 0
}

// localMean is the mean flux over a sliding window centered at i.
func localMean(flux []float64, i int) float64 {
	lo := i - thresholdWindow
	if lo < 0 {
		lo = 0
	}
	hi := i + thresholdWindow + 1
	if hi > len(flux) {
		hi = len(flux)
	}
	return stat.Mean(flux[lo:hi], nil)
}
