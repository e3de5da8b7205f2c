package segment_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dudk/transcribe"
	"github.com/dudk/transcribe/onset"
	"github.com/dudk/transcribe/pitch"
	"github.com/dudk/transcribe/segment"
)

const hop = 512.0 / 22050.0

// run produces a voiced observation run starting at the given frame
// index. A frequency of 0 produces unvoiced observations.
func run(from, count int, frequency, confidence float64) []pitch.Observation {
	observations := make([]pitch.Observation, count)
	for i := range observations {
		observations[i] = pitch.Observation{
			Time:       float64(from+i) * hop,
			Frequency:  frequency,
			Confidence: confidence,
		}
	}
	return observations
}

func join(runs ...[]pitch.Observation) []pitch.Observation {
	var out []pitch.Observation
	for _, r := range runs {
		out = append(out, r...)
	}
	return out
}

func TestSteadyTone(t *testing.T) {
	cfg := transcribe.DefaultConfig()
	candidates := segment.Notes(cfg, run(0, 20, 440, 0.9), nil)

	assert.Equal(t, 1, len(candidates))
	assert.Equal(t, 69, candidates[0].Number)
	assert.Equal(t, 0.0, candidates[0].Start)
	assert.InDelta(t, 19*hop+cfg.FrameSeconds(), candidates[0].End, 1e-9)
	assert.InDelta(t, 0.9, candidates[0].MeanConfidence, 1e-9)
}

func TestEmptyStream(t *testing.T) {
	cfg := transcribe.DefaultConfig()
	assert.Empty(t, segment.Notes(cfg, nil, nil))
	assert.Empty(t, segment.Notes(cfg, run(0, 20, 0, 0), nil))
}

func TestPitchBreak(t *testing.T) {
	cfg := transcribe.DefaultConfig()
	observations := join(run(0, 10, 440, 0.9), run(10, 10, 523.25, 0.9))
	candidates := segment.Notes(cfg, observations, nil)

	assert.Equal(t, 2, len(candidates))
	assert.Equal(t, 69, candidates[0].Number)
	assert.Equal(t, 72, candidates[1].Number)
	assert.Equal(t, candidates[0].End, candidates[1].Start)
	assert.InDelta(t, 10*hop, candidates[1].Start, 1e-9)
}

func TestVibratoWithinTolerance(t *testing.T) {
	cfg := transcribe.DefaultConfig()
	// alternate 440 and 445 Hz, under half a semitone apart
	observations := make([]pitch.Observation, 20)
	for i := range observations {
		f := 440.0
		if i%2 == 1 {
			f = 445.0
		}
		observations[i] = pitch.Observation{Time: float64(i) * hop, Frequency: f, Confidence: 0.8}
	}
	candidates := segment.Notes(cfg, observations, nil)
	assert.Equal(t, 1, len(candidates))
	assert.Equal(t, 69, candidates[0].Number)
}

func TestOnsetSplitsContinuousPitch(t *testing.T) {
	cfg := transcribe.DefaultConfig()
	at := 10 * hop
	onsets := []onset.Event{{Time: at, Strength: 0.7}}
	candidates := segment.Notes(cfg, run(0, 20, 440, 0.9), onsets)

	assert.Equal(t, 2, len(candidates))
	assert.Equal(t, 69, candidates[0].Number)
	assert.Equal(t, 69, candidates[1].Number)
	assert.InDelta(t, at, candidates[0].End, 1e-9)
	assert.InDelta(t, at, candidates[1].Start, 1e-9)
	assert.Equal(t, 0.7, candidates[1].PeakOnsetStrength)
}

func TestOnsetWinsOverPitchBreak(t *testing.T) {
	cfg := transcribe.DefaultConfig()
	at := 9.5 * hop
	onsets := []onset.Event{{Time: at, Strength: 0.5}}
	observations := join(run(0, 10, 440, 0.9), run(10, 10, 523.25, 0.9))
	candidates := segment.Notes(cfg, observations, onsets)

	assert.Equal(t, 2, len(candidates))
	// the boundary is the onset time, not the deviating observation
	assert.InDelta(t, at, candidates[0].End, 1e-9)
	assert.InDelta(t, at, candidates[1].Start, 1e-9)
	assert.Equal(t, 0.5, candidates[1].PeakOnsetStrength)
}

func TestMicroDropoutMerges(t *testing.T) {
	cfg := transcribe.DefaultConfig()
	// two unvoiced frames span less than the minimum silence gap
	observations := join(run(0, 10, 440, 0.9), run(10, 2, 0, 0), run(12, 10, 440, 0.9))
	candidates := segment.Notes(cfg, observations, nil)

	assert.Equal(t, 1, len(candidates))
	assert.Equal(t, 69, candidates[0].Number)
}

func TestSilenceGapSplits(t *testing.T) {
	cfg := transcribe.DefaultConfig()
	// four unvoiced frames exceed the minimum silence gap
	observations := join(run(0, 10, 440, 0.9), run(10, 4, 0, 0), run(14, 10, 440, 0.9))
	candidates := segment.Notes(cfg, observations, nil)

	assert.Equal(t, 2, len(candidates))
	assert.InDelta(t, 10*hop, candidates[0].End, 1e-9)
	assert.InDelta(t, 14*hop, candidates[1].Start, 1e-9)
}

func TestShortCandidateDiscarded(t *testing.T) {
	cfg := transcribe.DefaultConfig()
	// a single deviating frame is detection noise, not a note
	observations := join(run(0, 1, 440, 0.9), run(1, 10, 523.25, 0.9))
	candidates := segment.Notes(cfg, observations, nil)

	assert.Equal(t, 1, len(candidates))
	assert.Equal(t, 72, candidates[0].Number)
}

func TestCandidatesNeverOverlap(t *testing.T) {
	cfg := transcribe.DefaultConfig()
	observations := join(
		run(0, 8, 440, 0.9),
		run(8, 2, 0, 0),
		run(10, 8, 523.25, 0.7),
		run(18, 8, 659.26, 0.8),
	)
	onsets := []onset.Event{{Time: 4 * hop, Strength: 0.4}, {Time: 20 * hop, Strength: 0.6}}
	candidates := segment.Notes(cfg, observations, onsets)

	for i := 1; i < len(candidates); i++ {
		assert.True(t, candidates[i].Start >= candidates[i-1].End)
	}
	for _, c := range candidates {
		assert.True(t, c.Duration() >= cfg.MinNoteDurationMs/1000)
	}
}
