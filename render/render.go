// Package render draws a static piano-roll image of the transcribed
// events. It is a read-only consumer of the event sequence.
package render

import (
	"math"

	"github.com/fogleman/gg"

	"github.com/dudk/transcribe/note"
	"github.com/dudk/transcribe/quantize"
)

// Options control the rendered image.
type Options struct {
	Width  int
	Height int
}

// DefaultOptions returns the default canvas size.
func DefaultOptions() Options {
	return Options{Width: 1280, Height: 480}
}

// PianoRoll renders events over the duration of the source onto a beat
// grid and writes a PNG to path.
func PianoRoll(path string, events []note.Event, duration float64, grid quantize.Grid, opts Options) error {
	if opts.Width <= 0 || opts.Height <= 0 {
		opts = DefaultOptions()
	}
	if duration <= 0 {
		duration = 1
	}

	dc := gg.NewContext(opts.Width, opts.Height)
	dc.SetRGB(0.12, 0.12, 0.16)
	dc.Clear()

	width := float64(opts.Width)
	height := float64(opts.Height)

	// one grid line per beat
	beat := grid.Spacing() * float64(grid.Division)
	dc.SetRGB(0.23, 0.23, 0.27)
	dc.SetLineWidth(1)
	for t := 0.0; t <= duration; t += beat {
		x := t / duration * width
		dc.DrawLine(x, 0, x, height)
		dc.Stroke()
	}

	low, high := pitchRange(events)
	rows := float64(high - low + 1)
	rowHeight := height / rows

	for _, e := range events {
		x := e.Start / duration * width
		w := e.Duration / duration * width
		y := float64(high-e.Number) * rowHeight
		r, g, b := classColor(e.Number % 12)
		brightness := 0.4 + 0.6*float64(e.Velocity)/float64(note.MaxVelocity)
		dc.SetRGB(r*brightness, g*brightness, b*brightness)
		dc.DrawRectangle(x, y+1, math.Max(w, 2), math.Max(rowHeight-2, 1))
		dc.Fill()
	}

	return dc.SavePNG(path)
}

// pitchRange returns the note range to display with two rows of
// headroom on both sides.
func pitchRange(events []note.Event) (low, high int) {
	low, high = 57, 81 // A3..A5 when there is nothing to show
	if len(events) > 0 {
		low, high = events[0].Number, events[0].Number
		for _, e := range events {
			if e.Number < low {
				low = e.Number
			}
			if e.Number > high {
				high = e.Number
			}
		}
	}
	low -= 2
	high += 2
	if low < note.MinNumber {
		low = note.MinNumber
	}
	if high > note.MaxNumber {
		high = note.MaxNumber
	}
	return low, high
}

// classColor maps a pitch class onto the chromatic color wheel.
func classColor(class int) (r, g, b float64) {
	h := float64(class) / 12 * 6
	c := 1.0
	x := c * (1 - math.Abs(math.Mod(h, 2)-1))
	switch {
	case h < 1:
		return c, x, 0
	case h < 2:
		return x, c, 0
	case h < 3:
		return 0, c, x
	case h < 4:
		return 0, x, c
	case h < 5:
		return x, 0, c
	default:
		return c, 0, x
	}
}
