package engine

import (
	"context"
	"io"
)

// SampleRate is the rate of the PCM every engine returns: 16-bit signed
// little-endian mono.
const SampleRate = 16000

// Voice describes an available TTS voice.
type Voice struct {
	ID       string
	Name     string
	Language string
}

// ModelInfo describes an available model for a backend.
type ModelInfo struct {
	ID          string
	DisplayName string
	IsDefault   bool
}

// SynthesisOptions tune a single synthesis request. Zero values mean the
// backend default.
type SynthesisOptions struct {
	Voice string
	// Rate is a speed multiplier, 1 being normal speech.
	Rate float64
	// Pitch is a frequency multiplier, 1 being the voice's natural pitch.
	// Backends without pitch control ignore it.
	Pitch float64
}

// RateOr returns o.Rate, or def when unset.
func (o SynthesisOptions) RateOr(def float64) float64 {
	if o.Rate <= 0 {
		return def
	}
	return o.Rate
}

// TTSEngine synthesizes speech from text.
type TTSEngine interface {
	Synthesize(ctx context.Context, text string, opts SynthesisOptions) (io.Reader, error)
	Voices() []Voice
	Models() []ModelInfo
	Close() error
}
