package google

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/equinology/waleed/internal/speech/engine"
	"github.com/equinology/waleed/internal/speech/registry"
)

func TestSynthesize(t *testing.T) {
	header := append([]byte("RIFF\x00\x00\x00\x00WAVE"), make([]byte, 32)...)
	pcm := []byte{1, 2, 3, 4}

	var got synthRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/text:synthesize" || r.URL.Query().Get("key") != "k" {
			t.Errorf("url = %s", r.URL)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		_ = json.NewEncoder(w).Encode(synthResponse{
			AudioContent: base64.StdEncoding.EncodeToString(append(header, pcm...)),
		})
	}))
	defer srv.Close()

	e, err := registry.TTS.Create("google", map[string]string{"google_api_key": "k", "base_url": srv.URL})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	r, err := e.Synthesize(context.Background(), "Hello", engine.SynthesisOptions{Rate: 1.1, Pitch: 1.05})
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	out, _ := io.ReadAll(r)
	if string(out) != string(pcm) {
		t.Errorf("audio = %v, want header stripped", out)
	}

	if got.Voice.Name != defaultVoice || got.Voice.LanguageCode != "en-GB" {
		t.Errorf("voice = %+v", got.Voice)
	}
	if got.AudioConfig.SpeakingRate != 1.1 || got.AudioConfig.Pitch != 0.84 {
		t.Errorf("audio config = %+v", got.AudioConfig)
	}
}

func TestSemitones(t *testing.T) {
	tests := []struct {
		pitch float64
		want  float64
	}{
		{0, 0},
		{1, 0},
		{2, 12},
		{0.5, -12},
		{1000, 20},
	}
	for _, tt := range tests {
		if got := semitones(tt.pitch); got != tt.want {
			t.Errorf("semitones(%v) = %v, want %v", tt.pitch, got, tt.want)
		}
	}
}

func TestLanguageOf(t *testing.T) {
	if got := languageOf("en-GB-Neural2-B"); got != "en-GB" {
		t.Errorf("languageOf = %q", got)
	}
	if got := languageOf("custom"); got != "en-US" {
		t.Errorf("languageOf fallback = %q", got)
	}
}
