package render_test

import (
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dudk/transcribe/note"
	"github.com/dudk/transcribe/quantize"
	"github.com/dudk/transcribe/render"
)

func TestPianoRoll(t *testing.T) {
	events := []note.Event{
		{Start: 0, Duration: 0.5, Number: 60, Velocity: 90},
		{Start: 0.5, Duration: 0.5, Number: 64, Velocity: 100},
		{Start: 1, Duration: 1, Number: 67, Velocity: 120},
	}
	path := filepath.Join(t.TempDir(), "roll.png")
	err := render.PianoRoll(path, events, 2, quantize.DefaultGrid(), render.DefaultOptions())
	assert.Nil(t, err)

	file, err := os.Open(path)
	assert.Nil(t, err)
	defer file.Close()
	img, err := png.Decode(file)
	assert.Nil(t, err)
	assert.Equal(t, 1280, img.Bounds().Dx())
	assert.Equal(t, 480, img.Bounds().Dy())
}

func TestPianoRollEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.png")
	err := render.PianoRoll(path, nil, 0, quantize.DefaultGrid(), render.Options{Width: 320, Height: 120})
	assert.Nil(t, err)

	info, err := os.Stat(path)
	assert.Nil(t, err)
	assert.True(t, info.Size() > 0)
}
