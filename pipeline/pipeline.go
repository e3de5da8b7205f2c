// Package pipeline orchestrates the transcription stages over a single
// immutable sample buffer.
//
// Pitch tracking and onset spectra are stateless per frame and run on a
// worker pool over index ranges; segmentation and quantization are
// order-dependent and run on one goroutine. The whole run is pure over
// its inputs, so cancellation aborts without partial side effects.
package pipeline

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/davecgh/go-spew/spew"
	"github.com/rs/xid"
	"github.com/sirupsen/logrus"

	"github.com/dudk/transcribe"
	"github.com/dudk/transcribe/log"
	"github.com/dudk/transcribe/note"
	"github.com/dudk/transcribe/onset"
	"github.com/dudk/transcribe/pitch"
	"github.com/dudk/transcribe/quantize"
	"github.com/dudk/transcribe/segment"
	"github.com/dudk/transcribe/signal"
)

// frameBatch is the number of frames dispatched to a worker at once;
// cancellation is checked between batches.
const frameBatch = 64

// Stage identifies a coarse pipeline milestone.
type Stage int

// Stages in execution order.
const (
	StageFrames Stage = iota
	StagePitch
	StageOnsets
	StageSegment
	StageQuantize
)

func (s Stage) String() string {
	switch s {
	case StageFrames:
		return "frames"
	case StagePitch:
		return "pitch"
	case StageOnsets:
		return "onsets"
	case StageSegment:
		return "segment"
	case StageQuantize:
		return "quantize"
	}
	return "unknown"
}

// Error is a single typed pipeline failure with the offending stage
// identified. No partial event sequence accompanies it.
type Error struct {
	Stage Stage
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("pipeline stage %v: %v", e.Stage, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Progress is called after each completed stage.
type Progress func(Stage)

// Result is the sole artifact crossing the core boundary outward.
type Result struct {
	Events   []note.Event
	Duration float64 // seconds
	Tempo    float64 // BPM
}

// NoteCount returns the number of transcribed events.
func (r Result) NoteCount() int {
	return len(r.Events)
}

// Pipeline runs the transcription stages with a fixed configuration.
type Pipeline struct {
	uid      string
	cfg      transcribe.Config
	tempo    float64
	workers  int
	progress Progress
	log      *logrus.Entry
}

// Option provides a way to set optional pipeline parameters.
type Option func(*Pipeline)

// WithTempo sets an explicit tempo for the quantization grid.
func WithTempo(bpm float64) Option {
	return func(p *Pipeline) {
		p.tempo = bpm
	}
}

// WithProgress sets the stage milestone callback.
func WithProgress(fn Progress) Option {
	return func(p *Pipeline) {
		p.progress = fn
	}
}

// WithWorkers overrides the analysis worker count.
func WithWorkers(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.workers = n
		}
	}
}

// New validates the configuration and creates a pipeline. An invalid
// configuration is rejected before any frame is processed.
func New(cfg transcribe.Config, options ...Option) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	p := &Pipeline{
		uid:     xid.New().String(),
		cfg:     cfg,
		workers: runtime.NumCPU(),
	}
	for _, option := range options {
		option(p)
	}
	p.log = log.GetLogger().WithField("pipeline", p.uid)
	return p, nil
}

// Run executes the pipeline over a mono buffer. Empty or silent input
// produces an empty result, not a failure. Identical input and
// configuration produce identical output.
func (p *Pipeline) Run(ctx context.Context, buf []float64) (Result, error) {
	p.log.Debug("config ", spew.Sdump(p.cfg))

	quantizer := quantize.New(p.cfg, p.tempo)
	result := Result{
		Duration: signal.DurationOf(p.cfg.SampleRate, len(buf)).Seconds(),
		Tempo:    quantizer.Grid().BPM,
	}

	frames := signal.Frames(buf, p.cfg.FrameLength, p.cfg.HopLength, p.cfg.SampleRate)
	p.report(StageFrames)
	if len(frames) == 0 {
		p.log.Info("no complete analysis frames in input")
		return result, nil
	}
	p.log.Debugf("sliced %d frames", len(frames))

	tracker := pitch.NewTracker(p.cfg)
	observations := make([]pitch.Observation, len(frames))
	if err := p.each(ctx, len(frames), func(i int) {
		observations[i] = tracker.Track(frames[i])
	}); err != nil {
		return Result{}, &Error{Stage: StagePitch, Err: err}
	}
	p.report(StagePitch)

	detector := onset.NewDetector(p.cfg)
	spectra := make([][]float64, len(frames))
	if err := p.each(ctx, len(frames), func(i int) {
		spectra[i] = detector.Spectrum(frames[i])
	}); err != nil {
		return Result{}, &Error{Stage: StageOnsets, Err: err}
	}
	onsets := detector.Pick(spectra, frames)
	p.report(StageOnsets)
	p.log.Debugf("detected %d onsets", len(onsets))

	candidates := segment.Notes(p.cfg, observations, onsets)
	p.report(StageSegment)
	p.log.Debugf("segmented %d candidates", len(candidates))

	result.Events = quantizer.Notes(candidates)
	p.report(StageQuantize)
	p.log.Infof("transcribed %d notes from %.2fs of audio", len(result.Events), result.Duration)

	return result, nil
}

func (p *Pipeline) report(s Stage) {
	if p.progress != nil {
		p.progress(s)
	}
}

// each evaluates fn over [0, n) on the worker pool. Writes are indexed,
// so the result does not depend on scheduling.
func (p *Pipeline) each(ctx context.Context, n int, fn func(int)) error {
	batches := make(chan [2]int)
	var wg sync.WaitGroup
	for w := 0; w < p.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for b := range batches {
				for i := b[0]; i < b[1]; i++ {
					fn(i)
				}
			}
		}()
	}

	var err error
feed:
	for start := 0; start < n; start += frameBatch {
		end := start + frameBatch
		if end > n {
			end = n
		}
		select {
		case <-ctx.Done():
			err = ctx.Err()
			break feed
		default:
		}
		select {
		case <-ctx.Done():
			err = ctx.Err()
			break feed
		case batches <- [2]int{start, end}:
		}
	}
	close(batches)
	wg.Wait()
	return err
}
