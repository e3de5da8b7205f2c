// Package note defines the symbolic note-event model produced by the
// transcription pipeline.
package note

import (
	"fmt"
	"math"
)

// MIDI ranges.
const (
	MinNumber = 0
	MaxNumber = 127

	MinVelocity = 1
	MaxVelocity = 127
)

var names = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// Event is a single transcribed note. Events are immutable and ordered
// by start time in any sequence crossing the pipeline boundary.
type Event struct {
	Start    float64 // seconds
	Duration float64 // seconds, strictly positive
	Number   int     // MIDI note number
	Velocity int     // MIDI velocity
}

// End returns the event's end time in seconds.
func (e Event) End() float64 {
	return e.Start + e.Duration
}

// Frequency returns the equal-tempered frequency of the event's pitch.
func (e Event) Frequency() float64 {
	return FrequencyOf(e.Number)
}

// Name returns the note name with octave, e.g. "A4".
func (e Event) Name() string {
	return Name(e.Number)
}

// Overlaps reports whether two events share any span of time.
func (e Event) Overlaps(other Event) bool {
	return e.Start < other.End() && other.Start < e.End()
}

func (e Event) String() string {
	return fmt.Sprintf("%s at %.3fs for %.3fs v%d", e.Name(), e.Start, e.Duration, e.Velocity)
}

// Name returns the note name for a MIDI number.
func Name(number int) string {
	return fmt.Sprintf("%s%d", names[((number%12)+12)%12], number/12-1)
}

// Semitones converts a frequency to a fractional MIDI number with
// A4 = 440 Hz tuning. Non-positive frequencies are not defined.
func Semitones(frequency float64) float64 {
	return 69 + 12*math.Log2(frequency/440.0)
}

// NumberOf converts a frequency to the nearest MIDI number, clamped to
// the valid range.
func NumberOf(frequency float64) int {
	if frequency <= 0 {
		return MinNumber
	}
	n := int(math.Round(Semitones(frequency)))
	if n < MinNumber {
		return MinNumber
	}
	if n > MaxNumber {
		return MaxNumber
	}
	return n
}

// FrequencyOf converts a MIDI number to its frequency in Hz.
func FrequencyOf(number int) float64 {
	return 440.0 * math.Pow(2, float64(number-69)/12.0)
}
