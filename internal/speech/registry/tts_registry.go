package registry

import "github.com/equinology/waleed/internal/speech/engine"

// TTS holds the text-to-speech backends linked into the binary.
var TTS = New[engine.TTSEngine]()
