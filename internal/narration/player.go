package narration

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"

	"github.com/rs/xid"

	"github.com/equinology/waleed/internal/speech/engine"
)

// Player renders one utterance of 16-bit mono PCM. Play blocks until
// playback finishes or ctx is cancelled.
type Player interface {
	Play(ctx context.Context, pcm []byte) error
}

// ExecPlayer pipes PCM into an external command's stdin.
type ExecPlayer struct {
	Command string
	Args    []string
}

// NewAplayPlayer plays through ALSA's aplay.
func NewAplayPlayer() *ExecPlayer {
	return &ExecPlayer{
		Command: "aplay",
		Args:    []string{"-q", "-t", "raw", "-f", "S16_LE", "-c", "1", "-r", strconv.Itoa(engine.SampleRate)},
	}
}

// Play streams pcm to the command in chunks and waits for it to exit.
// Cancelling ctx kills the command.
func (p *ExecPlayer) Play(ctx context.Context, pcm []byte) error {
	cmd := exec.CommandContext(ctx, p.Command, p.Args...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("%s stdin: %w", p.Command, err)
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", p.Command, err)
	}

	_, copyErr := io.CopyBuffer(stdin, bytes.NewReader(pcm), make([]byte, 4096))
	stdin.Close()

	if err := cmd.Wait(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%s: %w: %s", p.Command, err, stderr.String())
	}
	if copyErr != nil {
		return fmt.Errorf("write to %s: %w", p.Command, copyErr)
	}
	return nil
}

// WAVFilePlayer writes each utterance to its own WAV file in Dir.
type WAVFilePlayer struct {
	Dir string
}

func (p *WAVFilePlayer) Play(ctx context.Context, pcm []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(p.Dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", p.Dir, err)
	}

	path := filepath.Join(p.Dir, "utterance-"+xid.New().String()+".wav")
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	if err := writeWAVHeader(f, len(pcm)); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if _, err := f.Write(pcm); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

// DiscardPlayer drops audio. Useful to exercise a backend without a
// sound device.
type DiscardPlayer struct{}

func (DiscardPlayer) Play(ctx context.Context, _ []byte) error {
	return ctx.Err()
}
