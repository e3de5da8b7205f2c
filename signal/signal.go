// Package signal provides mono analysis-buffer primitives: interleaved
// PCM conversion, duration math and the overlapping frame slicer.
package signal

import (
	"math"
	"time"
)

const (
	// BitDepth8 is 8 bit depth.
	BitDepth8 = BitDepth(8)
	// BitDepth16 is 16 bit depth.
	BitDepth16 = BitDepth(16)
	// BitDepth24 is 24 bit depth.
	BitDepth24 = BitDepth(24)
	// BitDepth32 is 32 bit depth.
	BitDepth32 = BitDepth(32)
)

// BitDepth contains values required for int-to-float conversion.
type BitDepth int

// divisor is used when int to float conversion is done.
func (bitDepth BitDepth) divisor() float64 {
	switch bitDepth {
	case BitDepth8, BitDepth16, BitDepth24, BitDepth32:
		return float64(uint64(1) << (uint(bitDepth) - 1))
	default:
		return 1
	}
}

// InterInt is an interleaved int signal.
type InterInt struct {
	Data        []int
	NumChannels int
	BitDepth
}

// AsMono converts an interleaved int signal to a mono float64 buffer.
// Channels are averaged, which is how a predominantly monophonic
// recording is folded down before analysis.
func (ints InterInt) AsMono() []float64 {
	if ints.Data == nil || ints.NumChannels == 0 {
		return nil
	}
	size := int(math.Ceil(float64(len(ints.Data)) / float64(ints.NumChannels)))
	mono := make([]float64, size)

	divisor := ints.BitDepth.divisor()
	for i := 0; i < size; i++ {
		sum := 0.0
		n := 0
		for c := 0; c < ints.NumChannels; c++ {
			pos := i*ints.NumChannels + c
			if pos < len(ints.Data) {
				sum += float64(ints.Data[pos]) / divisor
				n++
			}
		}
		mono[i] = sum / float64(n)
	}
	return mono
}

// DurationOf returns time duration of passed samples for this sample rate.
func DurationOf(sampleRate int, samples int) time.Duration {
	return time.Duration(float64(samples) / float64(sampleRate) * float64(time.Second))
}

// Frame is a fixed-length window of audio samples. Samples are borrowed
// from the source buffer and must be treated as read-only.
type Frame struct {
	Samples []float64
	Index   int
	Start   float64 // seconds
}

// Frames slices a mono buffer into overlapping analysis frames of fixed
// length and hop. Only complete frames are produced, so the frame stream
// is contiguous with constant spacing.
func Frames(buf []float64, frameLength, hopLength, sampleRate int) []Frame {
	if len(buf) < frameLength {
		return nil
	}
	n := (len(buf)-frameLength)/hopLength + 1
	frames := make([]Frame, n)
	for i := 0; i < n; i++ {
		offset := i * hopLength
		frames[i] = Frame{
			Samples: buf[offset : offset+frameLength],
			Index:   i,
			Start:   float64(offset) / float64(sampleRate),
		}
	}
	return frames
}

// RMS returns the root mean square of a buffer.
func RMS(buf []float64) float64 {
	if len(buf) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range buf {
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(buf)))
}

// Finite reports whether all samples are finite numbers.
func Finite(buf []float64) bool {
	for _, v := range buf {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Peak returns the maximum absolute sample value.
func Peak(buf []float64) float64 {
	peak := 0.0
	for _, v := range buf {
		if a := math.Abs(v); a > peak {
			peak = a
		}
	}
	return peak
}
