// Package quantize snaps raw note candidates onto a tempo grid and
// normalizes them into the final event sequence.
package quantize

import (
	"math"
	"sort"

	"github.com/dudk/transcribe"
	"github.com/dudk/transcribe/note"
	"github.com/dudk/transcribe/segment"
)

// DefaultBPM is assumed when no tempo is supplied.
const DefaultBPM = 120.0

// Grid is a musical tempo grid.
type Grid struct {
	BPM      float64
	Division int // grid lines per quarter note
}

// DefaultGrid returns a 120 BPM sixteenth-note grid.
func DefaultGrid() Grid {
	return Grid{BPM: DefaultBPM, Division: 4}
}

// Spacing returns the distance between grid lines in seconds.
func (g Grid) Spacing() float64 {
	return 60.0 / g.BPM / float64(g.Division)
}

// snap moves t onto the nearest grid line when it is within tolerance.
func (g Grid) snap(t, tolerance float64) float64 {
	spacing := g.Spacing()
	line := math.Round(t/spacing) * spacing
	if math.Abs(line-t) <= tolerance {
		return line
	}
	return t
}

// Quantizer produces the final event sequence from raw candidates.
type Quantizer struct {
	grid        Grid
	tolerance   float64 // seconds
	minDuration float64 // seconds
}

// New creates a quantizer. A non-positive bpm falls back to the default
// tempo.
func New(cfg transcribe.Config, bpm float64) *Quantizer {
	grid := DefaultGrid()
	if bpm > 0 {
		grid.BPM = bpm
	}
	return &Quantizer{
		grid:        grid,
		tolerance:   cfg.SnapToleranceMs / 1000,
		minDuration: cfg.MinNoteDurationMs / 1000,
	}
}

// Grid returns the tempo grid in use.
func (q *Quantizer) Grid() Grid {
	return q.grid
}

// Notes maps candidates to events and quantizes them. Mean confidence
// becomes velocity on a linear scale: 0 maps to 1, 1 maps to 127.
func (q *Quantizer) Notes(candidates []segment.Candidate) []note.Event {
	events := make([]note.Event, 0, len(candidates))
	for _, c := range candidates {
		events = append(events, note.Event{
			Start:    c.Start,
			Duration: c.Duration(),
			Number:   c.Number,
			Velocity: VelocityOf(c.MeanConfidence),
		})
	}
	return q.Apply(events)
}

// Apply snaps, merges and filters an event sequence. It is idempotent:
// applying it to its own output returns the same sequence.
func (q *Quantizer) Apply(events []note.Event) []note.Event {
	if len(events) == 0 {
		return nil
	}
	out := make([]note.Event, len(events))
	copy(out, events)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Start < out[j].Start
	})

	out = q.snap(out)
	out = q.filter(out)
	out = q.merge(out)
	if len(out) == 0 {
		return nil
	}
	return out
}

// snap moves boundaries onto the grid without crossing a neighboring
// note, so overlap is impossible by construction.
func (q *Quantizer) snap(events []note.Event) []note.Event {
	starts := make([]float64, len(events))
	ends := make([]float64, len(events))
	for i, e := range events {
		starts[i] = q.grid.snap(e.Start, q.tolerance)
		ends[i] = q.grid.snap(e.End(), q.tolerance)
	}
	// keep starts monotonic against the preceding end
	for i := range events {
		if i > 0 && starts[i] < ends[i-1] {
			starts[i] = ends[i-1]
		}
		if ends[i] < starts[i] {
			ends[i] = starts[i]
		}
	}
	// trim ends that snapped past the following note
	for i := range events {
		if i < len(events)-1 && ends[i] > starts[i+1] {
			ends[i] = starts[i+1]
		}
		events[i].Start = starts[i]
		events[i].Duration = ends[i] - starts[i]
	}
	return events
}

// merge joins same-pitch events separated by a gap below tolerance,
// artifacts of micro-dropouts in tracking. Events that abut exactly are
// left alone: a zero gap marks an onset boundary, which is a deliberate
// re-articulation.
func (q *Quantizer) merge(events []note.Event) []note.Event {
	if len(events) < 2 {
		return events
	}
	merged := events[:1]
	for _, next := range events[1:] {
		current := &merged[len(merged)-1]
		gap := next.Start - current.End()
		if next.Number == current.Number && gap > 0 && gap <= q.tolerance {
			current.Duration = next.End() - current.Start
			if next.Velocity > current.Velocity {
				current.Velocity = next.Velocity
			}
			continue
		}
		merged = append(merged, next)
	}
	return merged
}

// filter drops events below the minimum duration, including any that
// snapping reduced to zero or negative length.
func (q *Quantizer) filter(events []note.Event) []note.Event {
	kept := events[:0]
	for _, e := range events {
		if e.Duration <= 0 || e.Duration < q.minDuration {
			continue
		}
		kept = append(kept, e)
	}
	return kept
}

// VelocityOf maps confidence to MIDI velocity on a fixed monotonic
// linear scale.
func VelocityOf(confidence float64) int {
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}
	v := note.MinVelocity + int(math.Round(confidence*float64(note.MaxVelocity-note.MinVelocity)))
	if v < note.MinVelocity {
		v = note.MinVelocity
	}
	if v > note.MaxVelocity {
		v = note.MaxVelocity
	}
	return v
}
