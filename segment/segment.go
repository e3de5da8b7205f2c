// Package segment fuses the pitch and onset streams into raw note
// candidates with an explicit two-state machine.
package segment

import (
	"fmt"
	"math"

	"github.com/dudk/transcribe"
	"github.com/dudk/transcribe/note"
	"github.com/dudk/transcribe/onset"
	"github.com/dudk/transcribe/pitch"
)

// Candidate is a provisional note segment. It is mutable while open and
// becomes immutable once the segmenter closes it.
type Candidate struct {
	Number            int
	Start             float64
	End               float64
	MeanConfidence    float64
	PeakOnsetStrength float64
}

// Duration returns the candidate's length in seconds.
func (c Candidate) Duration() float64 {
	return c.End - c.Start
}

// state identifies one of the possible states the segmenter can be in.
type state int

const (
	// idle means no candidate is open.
	idle state = iota
	// tracking means a candidate is open and pitch is accumulated.
	tracking
)

func (s state) String() string {
	if s == idle {
		return "idle"
	}
	return "tracking"
}

// open accumulates the candidate currently being tracked.
type open struct {
	start         float64
	end           float64
	sumSemitones  float64
	sumConfidence float64
	count         int
	onsetStrength float64
	silenceStart  float64 // -1 while voiced
}

func (o *open) meanSemitones() float64 {
	return o.sumSemitones / float64(o.count)
}

func (o *open) accumulate(obs pitch.Observation, frameSeconds float64) {
	o.end = obs.Time + frameSeconds
	o.sumSemitones += note.Semitones(obs.Frequency)
	o.sumConfidence += obs.Confidence
	o.count++
	o.silenceStart = -1
}

// Segmenter folds an ordered observation stream and a sparse onset
// stream into non-overlapping note candidates. At most one candidate is
// open at a time.
type Segmenter struct {
	frameSeconds float64
	drift        float64 // semitones
	silenceGap   float64 // seconds
	minDuration  float64 // seconds

	state   state
	current open

	onsets []onset.Event
	next   int

	closed []Candidate
}

// New creates a segmenter over a fixed onset sequence.
func New(cfg transcribe.Config, onsets []onset.Event) *Segmenter {
	return &Segmenter{
		frameSeconds: cfg.FrameSeconds(),
		drift:        cfg.DriftTolerance,
		silenceGap:   cfg.MinSilenceGapMs / 1000,
		minDuration:  cfg.MinNoteDurationMs / 1000,
		state:        idle,
		onsets:       onsets,
	}
}

// Feed advances the state machine with the next pitch observation.
// Observations must arrive in time order.
func (s *Segmenter) Feed(obs pitch.Observation) {
	switch s.state {
	case idle:
		s.feedIdle(obs)
	case tracking:
		s.feedTracking(obs)
	}
}

func (s *Segmenter) feedIdle(obs pitch.Observation) {
	if !obs.Voiced() {
		return
	}
	strength := s.consumeOnsets(obs.Time)
	s.openAt(obs.Time, obs, strength)
}

func (s *Segmenter) feedTracking(obs pitch.Observation) {
	// an explicit attack always starts a new note, so the onset
	// boundary wins over any continuity decision
	if strength, at, ok := s.onsetWithin(obs.Time); ok {
		s.close(at)
		if obs.Voiced() {
			s.openAt(at, obs, strength)
		} else {
			s.state = idle
		}
		return
	}

	if !obs.Voiced() {
		if s.current.silenceStart < 0 {
			s.current.silenceStart = obs.Time
		}
		if obs.Time-s.current.silenceStart >= s.silenceGap {
			s.close(s.current.silenceStart)
			s.state = idle
		}
		return
	}

	if math.Abs(note.Semitones(obs.Frequency)-s.current.meanSemitones()) <= s.drift {
		s.current.accumulate(obs, s.frameSeconds)
		return
	}

	// pitch drifted beyond tolerance: close at the break and reopen
	boundary := obs.Time
	if s.current.silenceStart >= 0 {
		boundary = s.current.silenceStart
	}
	s.close(boundary)
	s.openAt(obs.Time, obs, 0)
}

// Flush closes any open candidate at end of stream and returns the
// emitted sequence.
func (s *Segmenter) Flush() []Candidate {
	if s.state == tracking {
		end := s.current.end
		if s.current.silenceStart >= 0 {
			end = s.current.silenceStart
		}
		s.close(end)
		s.state = idle
	}
	assertOrdered(s.closed)
	return s.closed
}

// openAt opens a new candidate and switches to tracking.
func (s *Segmenter) openAt(start float64, obs pitch.Observation, onsetStrength float64) {
	s.current = open{
		start:         start,
		end:           obs.Time + s.frameSeconds,
		sumSemitones:  note.Semitones(obs.Frequency),
		sumConfidence: obs.Confidence,
		count:         1,
		onsetStrength: onsetStrength,
		silenceStart:  -1,
	}
	s.state = tracking
}

// close emits the open candidate, discarding detection noise shorter
// than the minimum duration.
func (s *Segmenter) close(at float64) {
	end := at
	if end > s.current.end {
		end = s.current.end
	}
	if end <= s.current.start {
		return
	}
	if end-s.current.start < s.minDuration {
		return
	}
	number := int(math.Round(s.current.meanSemitones()))
	if number < note.MinNumber || number > note.MaxNumber {
		return
	}
	s.closed = append(s.closed, Candidate{
		Number:            number,
		Start:             s.current.start,
		End:               end,
		MeanConfidence:    s.current.sumConfidence / float64(s.current.count),
		PeakOnsetStrength: s.current.onsetStrength,
	})
}

// consumeOnsets consumes all onsets up to t and returns the strongest.
func (s *Segmenter) consumeOnsets(t float64) float64 {
	strength := 0.0
	for s.next < len(s.onsets) && s.onsets[s.next].Time <= t {
		if s.onsets[s.next].Strength > strength {
			strength = s.onsets[s.next].Strength
		}
		s.next++
	}
	return strength
}

// onsetWithin consumes the next onset if it falls inside the open
// candidate's span up to t.
func (s *Segmenter) onsetWithin(t float64) (strength, at float64, ok bool) {
	for s.next < len(s.onsets) && s.onsets[s.next].Time <= t {
		event := s.onsets[s.next]
		s.next++
		if event.Time > s.current.start {
			return event.Strength, event.Time, true
		}
	}
	return 0, 0, false
}

// assertOrdered panics on overlapping candidates: the state machine
// keeps at most one candidate open, so an overlap is a programming
// defect, not an input condition.
func assertOrdered(candidates []Candidate) {
	for i := 1; i < len(candidates); i++ {
		if candidates[i].Start < candidates[i-1].End {
			panic(fmt.Sprintf("segment: overlapping candidates %v and %v",
				candidates[i-1], candidates[i]))
		}
	}
}

// Notes runs a segmenter over a complete observation stream.
func Notes(cfg transcribe.Config, observations []pitch.Observation, onsets []onset.Event) []Candidate {
	s := New(cfg, onsets)
	for _, obs := range observations {
		s.Feed(obs)
	}
	return s.Flush()
}
