// Package export serializes the transcription result for downstream
// consumers. Encoders read the event sequence only and never feed back
// into the core.
package export

import (
	"encoding/json"
	"io"
	"math"
	"os"
	"time"

	"github.com/dudk/transcribe/note"
)

// Metadata is the JSON document header.
type Metadata struct {
	Source          string  `json:"source"`
	SampleRate      int     `json:"sample_rate"`
	GeneratedAt     string  `json:"generated_at"`
	TempoBPM        float64 `json:"tempo_bpm"`
	DurationSeconds float64 `json:"duration_seconds"`
	NoteCount       int     `json:"note_count"`
}

type jsonNote struct {
	Time      float64 `json:"time"`
	Note      string  `json:"note"`
	Midi      int     `json:"midi"`
	Duration  float64 `json:"duration"`
	Velocity  int     `json:"velocity"`
	Frequency float64 `json:"frequency"`
}

type document struct {
	Metadata Metadata   `json:"metadata"`
	Notes    []jsonNote `json:"notes"`
}

// NewMetadata fills a header for the given source and stamps it with
// the current time.
func NewMetadata(source string, sampleRate int, tempo, duration float64, noteCount int) Metadata {
	return Metadata{
		Source:          source,
		SampleRate:      sampleRate,
		GeneratedAt:     time.Now().UTC().Format(time.RFC3339),
		TempoBPM:        tempo,
		DurationSeconds: milliseconds(duration),
		NoteCount:       noteCount,
	}
}

// JSON writes the pretty-printed UTF-8 document. Times carry
// millisecond precision.
func JSON(w io.Writer, meta Metadata, events []note.Event) error {
	doc := document{
		Metadata: meta,
		Notes:    make([]jsonNote, 0, len(events)),
	}
	for _, e := range events {
		doc.Notes = append(doc.Notes, jsonNote{
			Time:      milliseconds(e.Start),
			Note:      e.Name(),
			Midi:      e.Number,
			Duration:  milliseconds(e.Duration),
			Velocity:  e.Velocity,
			Frequency: math.Round(e.Frequency()*100) / 100,
		})
	}
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(doc)
}

// WriteJSONFile writes the document to path.
func WriteJSONFile(path string, meta Metadata, events []note.Event) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := JSON(file, meta, events); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// milliseconds rounds a duration in seconds to millisecond precision.
func milliseconds(seconds float64) float64 {
	return math.Round(seconds*1000) / 1000
}
