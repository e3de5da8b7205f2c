// Package mock provides deterministic signal fixtures for tests.
package mock

import (
	"math"
)

const (
	// DefaultSampleRate is used by package tests.
	DefaultSampleRate = 22050

	attackSeconds = 0.005
	decayLevel    = 0.3
)

// Sine generates a steady sine tone.
func Sine(frequency, amplitude, seconds float64, sampleRate int) []float64 {
	n := int(seconds * float64(sampleRate))
	buf := make([]float64, n)
	for i := range buf {
		buf[i] = amplitude * math.Sin(2*math.Pi*frequency*float64(i)/float64(sampleRate))
	}
	return buf
}

// Tone generates a sine with a sharp attack ramp and an exponential
// decay, so consecutive tones produce articulated transients.
func Tone(frequency, amplitude, seconds float64, sampleRate int) []float64 {
	buf := Sine(frequency, amplitude, seconds, sampleRate)
	attack := int(attackSeconds * float64(sampleRate))
	if attack > len(buf) {
		attack = len(buf)
	}
	for i := 0; i < attack; i++ {
		buf[i] *= float64(i) / float64(attack)
	}
	if len(buf) > attack {
		k := math.Log(decayLevel) / float64(len(buf)-attack)
		for i := attack; i < len(buf); i++ {
			buf[i] *= math.Exp(k * float64(i-attack))
		}
	}
	return buf
}

// Silence generates a zero buffer.
func Silence(seconds float64, sampleRate int) []float64 {
	return make([]float64, int(seconds*float64(sampleRate)))
}

// Concat joins buffers into a single one.
func Concat(bufs ...[]float64) []float64 {
	size := 0
	for _, b := range bufs {
		size += len(b)
	}
	out := make([]float64, 0, size)
	for _, b := range bufs {
		out = append(out, b...)
	}
	return out
}
