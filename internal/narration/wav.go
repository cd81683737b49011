package narration

import (
	"encoding/binary"
	"io"

	"github.com/equinology/waleed/internal/speech/engine"
)

// writeWAVHeader writes a 44-byte WAV header for 16-bit mono PCM at
// engine.SampleRate.
func writeWAVHeader(w io.Writer, dataSize int) error {
	const (
		channels      = 1
		bitsPerSample = 16
		blockAlign    = channels * bitsPerSample / 8
	)

	header := []any{
		[4]byte{'R', 'I', 'F', 'F'},
		uint32(36 + dataSize),
		[4]byte{'W', 'A', 'V', 'E'},
		[4]byte{'f', 'm', 't', ' '},
		uint32(16), // fmt chunk size
		uint16(1),  // PCM
		uint16(channels),
		uint32(engine.SampleRate),
		uint32(engine.SampleRate * blockAlign),
		uint16(blockAlign),
		uint16(bitsPerSample),
		[4]byte{'d', 'a', 't', 'a'},
		uint32(dataSize),
	}
	for _, field := range header {
		if err := binary.Write(w, binary.LittleEndian, field); err != nil {
			return err
		}
	}
	return nil
}

// applyGain scales 16-bit little-endian samples in place, clipping at
// the sample range.
func applyGain(pcm []byte, volume float64) {
	if volume >= 1 || volume < 0 {
		return
	}
	for i := 0; i+1 < len(pcm); i += 2 {
		s := float64(int16(binary.LittleEndian.Uint16(pcm[i:])))
		s = min(max(s*volume, -32768), 32767)
		binary.LittleEndian.PutUint16(pcm[i:], uint16(int16(s)))
	}
}
