package piper

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strconv"

	"github.com/equinology/waleed/internal/speech/engine"
	"github.com/equinology/waleed/internal/speech/registry"
)

func init() {
	registry.TTS.Register("piper", func(config map[string]string) (engine.TTSEngine, error) {
		binaryPath := config["binary_path"]
		if binaryPath == "" {
			binaryPath = "piper"
		}
		modelPath := config["model_path"]
		if modelPath == "" {
			modelPath = "./models/en_GB-alan-medium.onnx"
		}
		return NewPiperTTS(binaryPath, modelPath), nil
	})
}

// PiperTTS implements TTSEngine by running the Piper binary once per line.
type PiperTTS struct {
	binaryPath string
	modelPath  string
}

// NewPiperTTS creates a new Piper TTS engine.
func NewPiperTTS(binaryPath, modelPath string) *PiperTTS {
	return &PiperTTS{
		binaryPath: binaryPath,
		modelPath:  modelPath,
	}
}

// args builds the command line for one synthesis. Piper expresses speed
// as a phoneme length scale, so a faster rate is a smaller scale.
func (p *PiperTTS) args(opts engine.SynthesisOptions) []string {
	args := []string{"--model", p.modelPath, "--output-raw"}
	if rate := opts.RateOr(1); rate != 1 {
		args = append(args, "--length_scale", strconv.FormatFloat(1/rate, 'f', 3, 64))
	}
	if opts.Voice != "" && opts.Voice != "default" {
		args = append(args, "--speaker", opts.Voice)
	}
	return args
}

// Synthesize returns 16kHz 16-bit mono PCM for text.
func (p *PiperTTS) Synthesize(ctx context.Context, text string, opts engine.SynthesisOptions) (io.Reader, error) {
	cmd := exec.CommandContext(ctx, p.binaryPath, p.args(opts)...)
	cmd.Stdin = bytes.NewBufferString(text)

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("piper TTS: %w: %s", err, stderr.String())
	}

	return &stdout, nil
}

func (p *PiperTTS) Voices() []engine.Voice {
	return []engine.Voice{
		{ID: "default", Name: "Alan", Language: "en-GB"},
	}
}

func (p *PiperTTS) Models() []engine.ModelInfo {
	return []engine.ModelInfo{
		{ID: "en_GB-alan-medium", DisplayName: "Alan (Medium)", IsDefault: true},
	}
}

func (p *PiperTTS) Close() error {
	return nil
}
