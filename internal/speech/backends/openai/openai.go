package openai

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/equinology/waleed/internal/speech/backends/restutil"
	"github.com/equinology/waleed/internal/speech/engine"
	"github.com/equinology/waleed/internal/speech/registry"
)

const defaultBaseURL = "https://api.openai.com/v1"

// responseRate is the sample rate of the raw PCM the speech API returns.
const responseRate = 24000

func init() {
	registry.TTS.Register("openai", func(config map[string]string) (engine.TTSEngine, error) {
		apiKey := config["openai_api_key"]
		if apiKey == "" {
			apiKey = config["api_key"]
		}
		if apiKey == "" {
			return nil, fmt.Errorf("openai API key required (set openai_api_key in config)")
		}
		baseURL := config["openai_base_url"]
		if baseURL == "" {
			baseURL = config["base_url"]
		}
		if baseURL == "" {
			baseURL = defaultBaseURL
		}
		model := config["model"]
		if model == "" {
			model = "tts-1"
		}
		return &OpenAITTS{apiKey: apiKey, baseURL: baseURL, model: model}, nil
	})
}

// OpenAITTS implements TTSEngine using the OpenAI-compatible speech API.
type OpenAITTS struct {
	apiKey  string
	baseURL string
	model   string
}

type speechRequest struct {
	Model          string  `json:"model"`
	Input          string  `json:"input"`
	Voice          string  `json:"voice"`
	ResponseFormat string  `json:"response_format"`
	Speed          float64 `json:"speed,omitempty"`
}

// Synthesize requests raw PCM and downsamples it to 16kHz. The API has
// no pitch control.
func (o *OpenAITTS) Synthesize(ctx context.Context, text string, opts engine.SynthesisOptions) (io.Reader, error) {
	voice := opts.Voice
	if voice == "" {
		voice = "onyx"
	}

	req := speechRequest{
		Model:          o.model,
		Input:          text,
		Voice:          voice,
		ResponseFormat: "pcm",
	}
	if opts.Rate > 0 {
		req.Speed = math.Min(math.Max(opts.Rate, 0.25), 4)
	}

	headers := map[string]string{
		"Authorization": "Bearer " + o.apiKey,
	}

	pcm, err := restutil.PostJSONRaw(ctx, o.baseURL+"/audio/speech", headers, req)
	if err != nil {
		return nil, fmt.Errorf("openai TTS: %w", err)
	}

	return bytes.NewReader(toEngineRate(pcm)), nil
}

// toEngineRate converts 16-bit little-endian mono PCM from responseRate
// to engine.SampleRate by linear interpolation. Fewer than two samples
// yield nil.
func toEngineRate(pcm []byte) []byte {
	n := len(pcm) / 2
	if n < 2 {
		return nil
	}
	sample := func(i int) float64 {
		i = min(i, n-1)
		return float64(int16(binary.LittleEndian.Uint16(pcm[i*2:])))
	}

	step := float64(responseRate) / float64(engine.SampleRate)
	out := make([]byte, 0, int(float64(n)/step+1)*2)
	for i := 0; ; i++ {
		pos := float64(i) * step
		if pos > float64(n-1) {
			break
		}
		idx := int(pos)
		s0, s1 := sample(idx), sample(idx+1)
		v := math.Round(s0 + (pos-float64(idx))*(s1-s0))
		out = binary.LittleEndian.AppendUint16(out, uint16(int16(v)))
	}
	return out
}

func (o *OpenAITTS) Voices() []engine.Voice {
	return []engine.Voice{
		{ID: "alloy", Name: "Alloy", Language: "en"},
		{ID: "echo", Name: "Echo", Language: "en"},
		{ID: "fable", Name: "Fable (British)", Language: "en-GB"},
		{ID: "onyx", Name: "Onyx", Language: "en"},
		{ID: "nova", Name: "Nova", Language: "en"},
		{ID: "shimmer", Name: "Shimmer", Language: "en"},
	}
}

func (o *OpenAITTS) Models() []engine.ModelInfo {
	return []engine.ModelInfo{
		{ID: "tts-1", DisplayName: "TTS 1", IsDefault: true},
		{ID: "tts-1-hd", DisplayName: "TTS 1 HD"},
	}
}

func (o *OpenAITTS) Close() error {
	return nil
}
