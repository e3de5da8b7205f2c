package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dudk/transcribe"
	"github.com/dudk/transcribe/export"
	"github.com/dudk/transcribe/log"
	"github.com/dudk/transcribe/midi"
	"github.com/dudk/transcribe/pipeline"
	"github.com/dudk/transcribe/quantize"
	"github.com/dudk/transcribe/render"
	"github.com/dudk/transcribe/wav"
)

var (
	midiOut string
	jsonOut string
	pngOut  string

	bpm         float64
	fMin        float64
	fMax        float64
	voicing     float64
	sensitivity float64
	snapMs      float64
	minNoteMs   float64
)

var rootCmd = &cobra.Command{
	Use:   "transcribe [flags] input.wav",
	Short: "Transcribe a monophonic recording into note events",
	Args:  cobra.ExactArgs(1),
	RunE:  run,
}

func init() {
	rootCmd.Flags().StringVarP(&midiOut, "midi", "m", "", "write a MIDI file")
	rootCmd.Flags().StringVarP(&jsonOut, "json", "j", "", "write a JSON file")
	rootCmd.Flags().StringVarP(&pngOut, "png", "p", "", "write a piano-roll PNG")
	rootCmd.Flags().Float64Var(&bpm, "bpm", 0, "tempo for the quantization grid (default 120)")
	rootCmd.Flags().Float64Var(&fMin, "fmin", 0, "lowest detectable frequency in Hz")
	rootCmd.Flags().Float64Var(&fMax, "fmax", 0, "highest detectable frequency in Hz")
	rootCmd.Flags().Float64Var(&voicing, "voicing", -1, "voicing threshold in [0, 1]")
	rootCmd.Flags().Float64Var(&sensitivity, "sensitivity", -1, "onset sensitivity in [0, 1]")
	rootCmd.Flags().Float64Var(&snapMs, "snap", -1, "grid snap tolerance in ms")
	rootCmd.Flags().Float64Var(&minNoteMs, "min-note", -1, "minimum note duration in ms")
}

func run(cmd *cobra.Command, args []string) error {
	l := log.GetLogger()
	path := args[0]

	buf, sampleRate, err := wav.Load(path)
	if err != nil {
		return err
	}
	l.Infof("loaded %s: %d samples at %d Hz", path, len(buf), sampleRate)

	cfg := config(sampleRate)
	p, err := pipeline.New(cfg,
		pipeline.WithTempo(bpm),
		pipeline.WithProgress(func(s pipeline.Stage) {
			l.Infof("stage %v done", s)
		}),
	)
	if err != nil {
		return err
	}

	result, err := p.Run(context.Background(), buf)
	if err != nil {
		return err
	}
	l.Infof("%d notes, %.2fs, %.0f BPM", result.NoteCount(), result.Duration, result.Tempo)

	if midiOut != "" {
		if err := midi.WriteFile(midiOut, result.Events, result.Tempo); err != nil {
			return fmt.Errorf("write midi: %w", err)
		}
		l.Info("wrote ", midiOut)
	}
	if jsonOut != "" {
		meta := export.NewMetadata(path, sampleRate, result.Tempo, result.Duration, result.NoteCount())
		if err := export.WriteJSONFile(jsonOut, meta, result.Events); err != nil {
			return fmt.Errorf("write json: %w", err)
		}
		l.Info("wrote ", jsonOut)
	}
	if pngOut != "" {
		grid := quantize.Grid{BPM: result.Tempo, Division: 4}
		if err := render.PianoRoll(pngOut, result.Events, result.Duration, grid, render.DefaultOptions()); err != nil {
			return fmt.Errorf("render png: %w", err)
		}
		l.Info("wrote ", pngOut)
	}
	if midiOut == "" && jsonOut == "" && pngOut == "" {
		for _, e := range result.Events {
			fmt.Println(e)
		}
	}
	return nil
}

// config builds the analysis config from the defaults and flag
// overrides.
func config(sampleRate int) transcribe.Config {
	cfg := transcribe.DefaultConfig()
	cfg.SampleRate = sampleRate
	if fMin > 0 {
		cfg.FMin = fMin
	}
	if fMax > 0 {
		cfg.FMax = fMax
	}
	if voicing >= 0 {
		cfg.VoicingThreshold = voicing
	}
	if sensitivity >= 0 {
		cfg.OnsetSensitivity = sensitivity
	}
	if snapMs >= 0 {
		cfg.SnapToleranceMs = snapMs
	}
	if minNoteMs >= 0 {
		cfg.MinNoteDurationMs = minNoteMs
	}
	return cfg
}

func main() {
	cobra.CheckErr(rootCmd.Execute())
}
