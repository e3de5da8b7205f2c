// Package midi encodes transcribed events as a standard MIDI file.
package midi

import (
	"math"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/dudk/transcribe/note"
)

const (
	ticksPerQuarter = 960
	// program 0 is Acoustic Grand Piano.
	program = 0
	channel = 0
)

// Encode builds a format-1 SMF: a tempo track and one note track with a
// Note-On/Note-Off pair per event. A non-positive bpm falls back to
// 120.
func Encode(events []note.Event, bpm float64) *smf.SMF {
	if bpm <= 0 {
		bpm = 120
	}

	var file smf.SMF
	file.TimeFormat = smf.MetricTicks(ticksPerQuarter)

	var tempoTrack smf.Track
	tempoTrack.Add(0, smf.MetaTempo(bpm))
	tempoTrack.Close(0)
	file.Tracks = append(file.Tracks, tempoTrack)

	var track smf.Track
	track.Add(0, midi.ProgramChange(channel, program))
	var last uint32
	for _, e := range events {
		on := ticks(e.Start, bpm)
		off := ticks(e.End(), bpm)
		if off <= on {
			off = on + 1
		}
		track.Add(on-last, midi.NoteOn(channel, uint8(e.Number), uint8(e.Velocity)))
		track.Add(off-on, midi.NoteOff(channel, uint8(e.Number)))
		last = off
	}
	track.Close(0)
	file.Tracks = append(file.Tracks, track)

	return &file
}

// WriteFile encodes events and writes the MIDI file to path.
func WriteFile(path string, events []note.Event, bpm float64) error {
	return Encode(events, bpm).WriteFile(path)
}

// ticks converts seconds to MIDI ticks at the given tempo.
func ticks(seconds, bpm float64) uint32 {
	return uint32(math.Round(seconds * bpm / 60 * ticksPerQuarter))
}
