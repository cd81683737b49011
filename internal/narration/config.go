package narration

import (
	"fmt"
	"strings"
	"time"

	"github.com/equinology/waleed/internal/speech/engine"
	"github.com/equinology/waleed/internal/speech/registry"
)

// Config controls how lines are voiced.
type Config struct {
	Rate   float64
	Pitch  float64
	Volume float64 // 0 (silent) to 1 (unchanged)
	// PreferredVoices are matched as substrings of voice names, in order.
	PreferredVoices []string
	// Language is the prefix a voice's language must start with when no
	// preferred voice is available.
	Language string
	// Voice pins a voice id and skips selection.
	Voice string

	// After FailureThreshold consecutive synthesis failures narration is
	// suspended for RetryAfter.
	FailureThreshold int
	RetryAfter       time.Duration
}

// DefaultConfig returns Waleed's speaking style: slightly quick, slightly
// high, a little quieter than full volume, British male if available.
func DefaultConfig() Config {
	return Config{
		Rate:            1.1,
		Pitch:           1.05,
		Volume:          0.9,
		PreferredVoices: []string{"Daniel", "Google UK English Male", "UK English Male"},
		Language:        "en",

		FailureThreshold: 3,
		RetryAfter:       30 * time.Second,
	}
}

// SelectVoice picks the voice to speak with: the pinned voice, else the
// first voice whose name contains a preferred name, else the first voice
// in the configured language. An empty result means the engine default.
func SelectVoice(voices []engine.Voice, cfg Config) string {
	if cfg.Voice != "" {
		return cfg.Voice
	}
	for _, preferred := range cfg.PreferredVoices {
		for _, v := range voices {
			if preferred != "" && strings.Contains(v.Name, preferred) {
				return v.ID
			}
		}
	}
	if cfg.Language != "" {
		for _, v := range voices {
			if strings.HasPrefix(strings.ToLower(v.Language), strings.ToLower(cfg.Language)) {
				return v.ID
			}
		}
	}
	return ""
}

// OpenEngine creates the named TTS backend. Non-empty values in
// overrides take precedence over base.
func OpenEngine(backend string, base, overrides map[string]string) (engine.TTSEngine, error) {
	merged := make(map[string]string, len(base)+len(overrides))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range overrides {
		if v != "" {
			merged[k] = v
		}
	}

	e, err := registry.TTS.Create(backend, merged)
	if err != nil {
		return nil, fmt.Errorf("create TTS backend %q: %w", backend, err)
	}
	return e, nil
}
