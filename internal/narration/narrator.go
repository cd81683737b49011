package narration

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/equinology/waleed/internal/clock"
	"github.com/equinology/waleed/internal/speech/engine"
)

// Narrator voices dialog lines through a TTS engine and a player. At most
// one utterance plays at a time; a new one cancels its predecessor.
type Narrator struct {
	engine  engine.TTSEngine
	player  Player
	cfg     Config
	voice   string
	logger  *slog.Logger
	breaker *breaker

	mu     sync.Mutex
	cancel context.CancelFunc
	closed bool

	// play serializes playback so a cancelled utterance has released the
	// device before the next one starts.
	play sync.Mutex
	wg   sync.WaitGroup
}

// Option configures a Narrator.
type Option func(*options)

type options struct {
	clock clock.Clock
}

// WithClock sets the clock that times the backend retry delay. The
// default is clock.Real().
func WithClock(c clock.Clock) Option {
	return func(o *options) { o.clock = c }
}

// New creates a Narrator. The voice is chosen once from e.Voices().
func New(e engine.TTSEngine, p Player, cfg Config, logger *slog.Logger, opts ...Option) *Narrator {
	if logger == nil {
		logger = slog.Default()
	}
	o := options{clock: clock.Real()}
	for _, opt := range opts {
		opt(&o)
	}
	n := &Narrator{
		engine:  e,
		player:  p,
		cfg:     cfg,
		voice:   SelectVoice(e.Voices(), cfg),
		logger:  logger,
		breaker: newBreaker(o.clock, cfg.FailureThreshold, cfg.RetryAfter),
	}
	logger.Debug("narration voice selected", slog.String("voice", n.voice))
	return n
}

// Voice returns the selected voice id, empty for the engine default.
func (n *Narrator) Voice() string {
	return n.voice
}

// Narrate starts speaking text in the background. status(true) is called
// when playback starts and status(false) when it ends or fails. A
// cancelled utterance reports nothing further.
func (n *Narrator) Narrate(text string, status func(speaking bool)) {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return
	}
	if n.cancel != nil {
		n.cancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	n.cancel = cancel
	n.wg.Add(1)
	n.mu.Unlock()

	go func() {
		defer n.wg.Done()
		defer cancel()
		n.speak(ctx, text, status)
	}()
}

// Cancel stops the utterance in progress, if any.
func (n *Narrator) Cancel() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.cancel != nil {
		n.cancel()
		n.cancel = nil
	}
}

// Close cancels narration, waits for it to stop and closes the engine.
func (n *Narrator) Close() error {
	n.mu.Lock()
	n.closed = true
	if n.cancel != nil {
		n.cancel()
		n.cancel = nil
	}
	n.mu.Unlock()

	n.wg.Wait()
	return n.engine.Close()
}

func (n *Narrator) speak(ctx context.Context, text string, status func(bool)) {
	if !n.breaker.allow() {
		n.logger.Debug("narration suspended after backend failures",
			slog.String("breaker", n.breaker.current().String()))
		return
	}

	pcm, err := n.synthesize(ctx, text)
	switch {
	case err == nil:
		n.breaker.success()
	case ctx.Err() != nil:
		n.breaker.abandon()
		return
	default:
		n.breaker.failure()
		n.report(ctx, err, status)
		return
	}

	n.play.Lock()
	defer n.play.Unlock()
	if ctx.Err() != nil {
		return
	}

	status(true)
	err = n.player.Play(ctx, pcm)
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		n.report(ctx, err, status)
		return
	}
	status(false)
}

func (n *Narrator) synthesize(ctx context.Context, text string) ([]byte, error) {
	audio, err := n.engine.Synthesize(ctx, text, engine.SynthesisOptions{
		Voice: n.voice,
		Rate:  n.cfg.Rate,
		Pitch: n.cfg.Pitch,
	})
	if err != nil {
		return nil, err
	}
	pcm, err := io.ReadAll(audio)
	if err != nil {
		return nil, fmt.Errorf("read synthesized audio: %w", err)
	}
	applyGain(pcm, n.cfg.Volume)
	return pcm, nil
}

// report clears the speaking indicator after a failure. Failures are
// logged at debug level only: the dialog goes on without a voice.
func (n *Narrator) report(ctx context.Context, err error, status func(bool)) {
	if errors.Is(err, context.Canceled) || ctx.Err() != nil {
		return
	}
	n.logger.Debug("narration failed", slog.String("error", err.Error()))
	status(false)
}
