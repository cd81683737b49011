package elevenlabs

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math"

	"github.com/equinology/waleed/internal/speech/backends/restutil"
	"github.com/equinology/waleed/internal/speech/engine"
	"github.com/equinology/waleed/internal/speech/registry"
)

const (
	defaultBaseURL = "https://api.elevenlabs.io/v1"
	defaultVoice   = "onwK4e9ZLuTAKqWW03F9" // Daniel
)

func init() {
	registry.TTS.Register("elevenlabs", func(config map[string]string) (engine.TTSEngine, error) {
		apiKey := config["elevenlabs_api_key"]
		if apiKey == "" {
			apiKey = config["api_key"]
		}
		if apiKey == "" {
			return nil, fmt.Errorf("elevenlabs API key required (set elevenlabs_api_key in config)")
		}
		model := config["model"]
		if model == "" {
			model = "eleven_multilingual_v2"
		}
		baseURL := config["base_url"]
		if baseURL == "" {
			baseURL = defaultBaseURL
		}
		return &ElevenLabsTTS{apiKey: apiKey, baseURL: baseURL, model: model}, nil
	})
}

type request struct {
	Text          string      `json:"text"`
	ModelID       string      `json:"model_id"`
	VoiceSettings voiceConfig `json:"voice_settings"`
}

type voiceConfig struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Speed           float64 `json:"speed,omitempty"`
}

// ElevenLabsTTS implements TTSEngine using the ElevenLabs REST API.
type ElevenLabsTTS struct {
	apiKey  string
	baseURL string
	model   string
}

// Synthesize asks for pcm_16000 output, which is already in the shared
// PCM format. Speed is limited to [0.7, 1.2] by the API.
func (e *ElevenLabsTTS) Synthesize(ctx context.Context, text string, opts engine.SynthesisOptions) (io.Reader, error) {
	voice := opts.Voice
	if voice == "" {
		voice = defaultVoice
	}

	apiURL := fmt.Sprintf("%s/text-to-speech/%s?output_format=pcm_16000", e.baseURL, voice)

	headers := map[string]string{
		"xi-api-key": e.apiKey,
	}

	req := request{
		Text:    text,
		ModelID: e.model,
		VoiceSettings: voiceConfig{
			Stability:       0.5,
			SimilarityBoost: 0.75,
		},
	}
	if opts.Rate > 0 {
		req.VoiceSettings.Speed = math.Min(math.Max(opts.Rate, 0.7), 1.2)
	}

	pcm, err := restutil.PostJSONRaw(ctx, apiURL, headers, req)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs TTS: %w", err)
	}
	return bytes.NewReader(pcm), nil
}

func (e *ElevenLabsTTS) Voices() []engine.Voice {
	return []engine.Voice{
		{ID: "onwK4e9ZLuTAKqWW03F9", Name: "Daniel", Language: "en-GB"},
		{ID: "21m00Tcm4TlvDq8ikWAM", Name: "Rachel", Language: "en"},
		{ID: "EXAVITQu4vr4xnSDxMaL", Name: "Bella", Language: "en"},
		{ID: "ErXwobaYiN019PkySvjV", Name: "Antoni", Language: "en"},
	}
}

func (e *ElevenLabsTTS) Models() []engine.ModelInfo {
	return []engine.ModelInfo{
		{ID: "eleven_multilingual_v2", DisplayName: "Multilingual v2", IsDefault: true},
		{ID: "eleven_turbo_v2_5", DisplayName: "Turbo v2.5"},
		{ID: "eleven_flash_v2_5", DisplayName: "Flash v2.5"},
	}
}

func (e *ElevenLabsTTS) Close() error {
	return nil
}
