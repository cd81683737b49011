package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/equinology/waleed/internal/narration"
	"github.com/equinology/waleed/pkg/dialog"
)

// WaleedConfig holds the settings of the waleed binary. Every field can
// be set through a WALEED_-prefixed environment variable; command-line
// flags override it.
type WaleedConfig struct {
	LogLevel  string `envDefault:"info" env:"LOG_LEVEL"`
	LogFile   string `envDefault:""     env:"LOG_FILE"`
	EventsLog string `envDefault:""     env:"EVENTS_LOG"`

	// Dialog
	DialogDir     string `envDefault:""       env:"DIALOG_DIR"`
	DefaultDialog string `envDefault:"waleed" env:"DEFAULT_DIALOG"`
	WatchDialogs  bool   `envDefault:"true"   env:"WATCH_DIALOGS"`

	// Timing
	RevealInterval time.Duration `envDefault:"20ms"  env:"REVEAL_INTERVAL"`
	ThinkingDelay  time.Duration `envDefault:"800ms" env:"THINKING_DELAY"`
	NarrationDelay time.Duration `envDefault:"500ms" env:"NARRATION_DELAY"`
	TeardownDelay  time.Duration `envDefault:"500ms" env:"TEARDOWN_DELAY"`

	// Voice
	VoiceEnabled    bool     `envDefault:"true"                                  env:"VOICE_ENABLED"`
	TTSBackend      string   `envDefault:""                                      env:"TTS_BACKEND"`
	TTSModel        string   `envDefault:""                                      env:"TTS_MODEL"`
	Voice           string   `envDefault:""                                      env:"VOICE"`
	VoiceRate       float64  `envDefault:"1.1"                                   env:"VOICE_RATE"`
	VoicePitch      float64  `envDefault:"1.05"                                  env:"VOICE_PITCH"`
	VoiceVolume     float64  `envDefault:"0.9"                                   env:"VOICE_VOLUME"`
	VoiceLanguage   string   `envDefault:"en"                                    env:"VOICE_LANGUAGE"`
	PreferredVoices []string `envDefault:"Daniel,Google UK English Male"         env:"PREFERRED_VOICES" envSeparator:","`
	AudioPlayer     string   `envDefault:"aplay"                                 env:"AUDIO_PLAYER"`
	AudioOutDir     string   `envDefault:"./utterances"                          env:"AUDIO_OUT_DIR"`

	TTSFailureThreshold int           `envDefault:"3"   env:"TTS_FAILURE_THRESHOLD"`
	TTSRetryAfter       time.Duration `envDefault:"30s" env:"TTS_RETRY_AFTER"`

	// Speech backends
	PiperBinaryPath  string `envDefault:"piper"                             env:"PIPER_BINARY_PATH"`
	PiperModelPath   string `envDefault:"./models/en_GB-alan-medium.onnx"   env:"PIPER_MODEL_PATH"`
	GoogleAPIKey     string `envDefault:""                                  env:"GOOGLE_API_KEY"`
	ElevenLabsAPIKey string `envDefault:""                                  env:"ELEVENLABS_API_KEY"`
	OpenAIAPIKey     string `envDefault:""                                  env:"OPENAI_API_KEY"`
	OpenAIBaseURL    string `envDefault:"https://api.openai.com/v1"         env:"OPENAI_BASE_URL"`
}

// Prefix is prepended to every environment variable name.
const Prefix = "WALEED_"

// Load reads WaleedConfig from the environment.
func Load() (WaleedConfig, error) {
	cfg, err := env.ParseAsWithOptions[WaleedConfig](env.Options{Prefix: Prefix})
	if err != nil {
		return cfg, fmt.Errorf("parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks value ranges env tags cannot express.
func (c *WaleedConfig) Validate() error {
	switch {
	case c.RevealInterval <= 0:
		return fmt.Errorf("WALEED_REVEAL_INTERVAL must be positive, got %s", c.RevealInterval)
	case c.VoiceRate <= 0:
		return fmt.Errorf("WALEED_VOICE_RATE must be positive, got %v", c.VoiceRate)
	case c.VoicePitch <= 0:
		return fmt.Errorf("WALEED_VOICE_PITCH must be positive, got %v", c.VoicePitch)
	case c.VoiceVolume < 0 || c.VoiceVolume > 1:
		return fmt.Errorf("WALEED_VOICE_VOLUME must be within [0, 1], got %v", c.VoiceVolume)
	}
	switch c.AudioPlayer {
	case "aplay", "wav", "discard":
	default:
		return fmt.Errorf("WALEED_AUDIO_PLAYER must be aplay, wav or discard, got %q", c.AudioPlayer)
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// Timing returns the presenter delays.
func (c *WaleedConfig) Timing() dialog.Timing {
	return dialog.Timing{
		RevealInterval: c.RevealInterval,
		ThinkingDelay:  c.ThinkingDelay,
		NarrationDelay: c.NarrationDelay,
		TeardownDelay:  c.TeardownDelay,
	}
}

// Narration returns the speaking style.
func (c *WaleedConfig) Narration() narration.Config {
	return narration.Config{
		Rate:            c.VoiceRate,
		Pitch:           c.VoicePitch,
		Volume:          c.VoiceVolume,
		PreferredVoices: c.PreferredVoices,
		Language:        c.VoiceLanguage,
		Voice:           c.Voice,

		FailureThreshold: c.TTSFailureThreshold,
		RetryAfter:       c.TTSRetryAfter,
	}
}

// TTSConfig returns the config map handed to the TTS backend factory.
func (c *WaleedConfig) TTSConfig() map[string]string {
	return map[string]string{
		"model":              c.TTSModel,
		"model_path":         c.PiperModelPath,
		"binary_path":        c.PiperBinaryPath,
		"google_api_key":     c.GoogleAPIKey,
		"elevenlabs_api_key": c.ElevenLabsAPIKey,
		"openai_api_key":     c.OpenAIAPIKey,
		"openai_base_url":    c.OpenAIBaseURL,
	}
}

// Level returns LogLevel as a slog level.
func (c *WaleedConfig) Level() slog.Level {
	level, _ := parseLevel(c.LogLevel)
	return level
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("WALEED_LOG_LEVEL: %w", err)
	}
	return level, nil
}
