// Package wav loads PCM wav files into mono analysis buffers.
package wav

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-audio/wav"

	"github.com/dudk/transcribe/signal"
)

// ErrUnsupportedBitDepth is returned when unsupported bit depth is used.
var ErrUnsupportedBitDepth = errors.New("only 8, 16, 24 and 32 bit depth is supported")

// Load decodes a whole wav file into a mono float64 buffer and returns
// it with the file's sample rate. Multi-channel audio is folded down by
// averaging and the result is peak-normalized. Resampling is left to
// the caller.
func Load(path string) ([]float64, int, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer file.Close()

	decoder := wav.NewDecoder(file)
	if !decoder.IsValidFile() {
		return nil, 0, fmt.Errorf("wav is not valid: %v", path)
	}

	bitDepth := signal.BitDepth(decoder.BitDepth)
	switch bitDepth {
	case signal.BitDepth8, signal.BitDepth16, signal.BitDepth24, signal.BitDepth32:
	default:
		return nil, 0, ErrUnsupportedBitDepth
	}

	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, 0, err
	}

	mono := signal.InterInt{
		Data:        buf.Data,
		NumChannels: buf.Format.NumChannels,
		BitDepth:    bitDepth,
	}.AsMono()
	normalize(mono)
	return mono, int(decoder.SampleRate), nil
}

// normalize scales the buffer so its peak reaches full scale. A silent
// buffer is left untouched.
func normalize(buf []float64) {
	peak := signal.Peak(buf)
	if peak == 0 {
		return
	}
	for i := range buf {
		buf[i] /= peak
	}
}
