package pipeline_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"

	"github.com/dudk/transcribe"
	"github.com/dudk/transcribe/mock"
	"github.com/dudk/transcribe/pipeline"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestRunSine(t *testing.T) {
	cfg := transcribe.DefaultConfig()
	p, err := pipeline.New(cfg)
	assert.Nil(t, err)

	result, err := p.Run(context.Background(), mock.Sine(440, 0.8, 1, cfg.SampleRate))
	assert.Nil(t, err)
	assert.Equal(t, 1, result.NoteCount())
	assert.Equal(t, 69, result.Events[0].Number)
	assert.InDelta(t, 0.0, result.Events[0].Start, cfg.SnapToleranceMs/1000)
	assert.InDelta(t, 1.0, result.Events[0].Duration, cfg.SnapToleranceMs/1000)
	assert.Equal(t, 1.0, result.Duration)
	assert.Equal(t, 120.0, result.Tempo)
}

func TestRunSilence(t *testing.T) {
	cfg := transcribe.DefaultConfig()
	p, err := pipeline.New(cfg)
	assert.Nil(t, err)

	result, err := p.Run(context.Background(), mock.Silence(2, cfg.SampleRate))
	assert.Nil(t, err)
	assert.Equal(t, 0, result.NoteCount())
	assert.Equal(t, 2.0, result.Duration)
}

func TestRunEmpty(t *testing.T) {
	cfg := transcribe.DefaultConfig()
	p, err := pipeline.New(cfg)
	assert.Nil(t, err)

	result, err := p.Run(context.Background(), nil)
	assert.Nil(t, err)
	assert.Equal(t, 0, result.NoteCount())
	assert.Equal(t, 0.0, result.Duration)
}

func TestRunMelody(t *testing.T) {
	cfg := transcribe.DefaultConfig()
	p, err := pipeline.New(cfg)
	assert.Nil(t, err)

	buf := mock.Concat(
		mock.Tone(261.63, 0.8, 0.5, cfg.SampleRate),
		mock.Tone(329.63, 0.8, 0.5, cfg.SampleRate),
		mock.Tone(392, 0.8, 0.5, cfg.SampleRate),
	)
	result, err := p.Run(context.Background(), buf)
	assert.Nil(t, err)
	assert.True(t, result.NoteCount() >= 3, "expected all three tones, got %d", result.NoteCount())

	numbers := make(map[int]bool)
	for _, e := range result.Events {
		numbers[e.Number] = true
	}
	assert.True(t, numbers[60])
	assert.True(t, numbers[64])
	assert.True(t, numbers[67])
	for i := 1; i < len(result.Events); i++ {
		assert.True(t, result.Events[i].Start >= result.Events[i-1].End())
	}
}

func TestRunDeterministic(t *testing.T) {
	cfg := transcribe.DefaultConfig()
	p, err := pipeline.New(cfg, pipeline.WithWorkers(4))
	assert.Nil(t, err)

	buf := mock.Concat(
		mock.Tone(440, 0.8, 0.4, cfg.SampleRate),
		mock.Tone(554.37, 0.8, 0.4, cfg.SampleRate),
		mock.Tone(659.26, 0.8, 0.4, cfg.SampleRate),
	)
	first, err := p.Run(context.Background(), buf)
	assert.Nil(t, err)
	second, err := p.Run(context.Background(), buf)
	assert.Nil(t, err)
	assert.Equal(t, first, second)
}

func TestRunCanceled(t *testing.T) {
	cfg := transcribe.DefaultConfig()
	p, err := pipeline.New(cfg)
	assert.Nil(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = p.Run(ctx, mock.Sine(440, 0.8, 1, cfg.SampleRate))
	assert.NotNil(t, err)

	var stageErr *pipeline.Error
	assert.True(t, errors.As(err, &stageErr))
	assert.Equal(t, pipeline.StagePitch, stageErr.Stage)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestNewInvalidConfig(t *testing.T) {
	cfg := transcribe.DefaultConfig()
	cfg.FMin = cfg.FMax

	p, err := pipeline.New(cfg)
	assert.Nil(t, p)

	var cfgErr *transcribe.ConfigError
	assert.True(t, errors.As(err, &cfgErr))
}

func TestProgressMilestones(t *testing.T) {
	cfg := transcribe.DefaultConfig()
	var stages []pipeline.Stage
	p, err := pipeline.New(cfg, pipeline.WithProgress(func(s pipeline.Stage) {
		stages = append(stages, s)
	}))
	assert.Nil(t, err)

	_, err = p.Run(context.Background(), mock.Sine(440, 0.8, 0.5, cfg.SampleRate))
	assert.Nil(t, err)
	assert.Equal(t, []pipeline.Stage{
		pipeline.StageFrames,
		pipeline.StagePitch,
		pipeline.StageOnsets,
		pipeline.StageSegment,
		pipeline.StageQuantize,
	}, stages)
}

func TestWithTempo(t *testing.T) {
	cfg := transcribe.DefaultConfig()
	p, err := pipeline.New(cfg, pipeline.WithTempo(90))
	assert.Nil(t, err)

	result, err := p.Run(context.Background(), mock.Silence(1, cfg.SampleRate))
	assert.Nil(t, err)
	assert.Equal(t, 90.0, result.Tempo)
}
