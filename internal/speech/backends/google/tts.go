package google

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/equinology/waleed/internal/speech/backends/restutil"
	"github.com/equinology/waleed/internal/speech/engine"
	"github.com/equinology/waleed/internal/speech/registry"
)

const (
	defaultBaseURL = "https://texttospeech.googleapis.com/v1"
	defaultVoice   = "en-GB-Neural2-B"
)

func init() {
	registry.TTS.Register("google", func(config map[string]string) (engine.TTSEngine, error) {
		apiKey := config["google_api_key"]
		if apiKey == "" {
			apiKey = config["api_key"]
		}
		if apiKey == "" {
			return nil, fmt.Errorf("google API key required (set google_api_key in config)")
		}
		baseURL := config["base_url"]
		if baseURL == "" {
			baseURL = defaultBaseURL
		}
		return &GoogleTTS{apiKey: apiKey, baseURL: baseURL, model: config["model"]}, nil
	})
}

type synthRequest struct {
	Input       synthInput       `json:"input"`
	Voice       synthVoice       `json:"voice"`
	AudioConfig synthAudioConfig `json:"audioConfig"`
}

type synthInput struct {
	Text string `json:"text"`
}

type synthVoice struct {
	LanguageCode string `json:"languageCode"`
	Name         string `json:"name"`
}

type synthAudioConfig struct {
	AudioEncoding   string  `json:"audioEncoding"`
	SampleRateHertz int     `json:"sampleRateHertz"`
	SpeakingRate    float64 `json:"speakingRate,omitempty"`
	Pitch           float64 `json:"pitch,omitempty"` // semitones
}

type synthResponse struct {
	AudioContent string `json:"audioContent"` // base64
}

// GoogleTTS implements TTSEngine using the Cloud Text-to-Speech REST API.
type GoogleTTS struct {
	apiKey  string
	baseURL string
	model   string
}

// Synthesize requests LINEAR16 audio at 16kHz. LINEAR16 responses carry
// a WAV header, which is stripped.
func (g *GoogleTTS) Synthesize(ctx context.Context, text string, opts engine.SynthesisOptions) (io.Reader, error) {
	voice := opts.Voice
	if voice == "" {
		voice = defaultVoice
	}

	req := synthRequest{
		Input: synthInput{Text: text},
		Voice: synthVoice{
			LanguageCode: languageOf(voice),
			Name:         voice,
		},
		AudioConfig: synthAudioConfig{
			AudioEncoding:   "LINEAR16",
			SampleRateHertz: engine.SampleRate,
			SpeakingRate:    opts.Rate,
			Pitch:           semitones(opts.Pitch),
		},
	}

	var resp synthResponse
	apiURL := g.baseURL + "/text:synthesize?key=" + g.apiKey
	if err := restutil.DoJSON(ctx, "POST", apiURL, nil, req, &resp); err != nil {
		return nil, fmt.Errorf("google TTS: %w", err)
	}

	audio, err := base64.StdEncoding.DecodeString(resp.AudioContent)
	if err != nil {
		return nil, fmt.Errorf("google TTS decode audio: %w", err)
	}

	return bytes.NewReader(stripWAVHeader(audio)), nil
}

// semitones converts a frequency multiplier to the API's semitone
// offset, clamped to its [-20, 20] range.
func semitones(pitch float64) float64 {
	if pitch <= 0 || pitch == 1 {
		return 0
	}
	st := 12 * math.Log2(pitch)
	return math.Round(math.Min(math.Max(st, -20), 20)*100) / 100
}

// languageOf extracts the BCP-47 prefix of a voice name such as
// "en-GB-Neural2-B".
func languageOf(voice string) string {
	parts := strings.SplitN(voice, "-", 3)
	if len(parts) < 3 {
		return "en-US"
	}
	return parts[0] + "-" + parts[1]
}

func stripWAVHeader(audio []byte) []byte {
	if len(audio) >= 44 && string(audio[:4]) == "RIFF" && string(audio[8:12]) == "WAVE" {
		return audio[44:]
	}
	return audio
}

func (g *GoogleTTS) Voices() []engine.Voice {
	return []engine.Voice{
		{ID: "en-GB-Neural2-B", Name: "Neural2 B (UK English Male)", Language: "en-GB"},
		{ID: "en-GB-Neural2-D", Name: "Neural2 D (UK English Male)", Language: "en-GB"},
		{ID: "en-US-Neural2-A", Name: "Neural2 A (Female)", Language: "en-US"},
		{ID: "en-US-Studio-M", Name: "Studio M (Male)", Language: "en-US"},
	}
}

func (g *GoogleTTS) Models() []engine.ModelInfo {
	return []engine.ModelInfo{
		{ID: "neural2", DisplayName: "Neural2", IsDefault: true},
		{ID: "studio", DisplayName: "Studio"},
	}
}

func (g *GoogleTTS) Close() error {
	return nil
}
