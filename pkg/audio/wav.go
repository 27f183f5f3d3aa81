package audio

import (
	"bytes"
	"errors"
	"fmt"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// sampleRate, bitDepth, and numChannels match the artifact store's
// WAV contract: single-channel, 16-bit PCM, 16 kHz.
const (
	sampleRate  = 16000
	bitDepth    = 16
	numChannels = 1
)

// ErrChunkTooShort is returned by Validate when a chunk's decoded
// duration falls below the minimum valid length.
var ErrChunkTooShort = errors.New("audio: chunk duration below 1.0s minimum")

// Validate parses data as WAV and enforces duration >= 1.0s. Invalid
// chunks must be dropped without consuming a chunk number.
func Validate(data []byte) (durationSeconds float64, err error) {
	decoder := wav.NewDecoder(bytes.NewReader(data))
	if !decoder.IsValidFile() {
		return 0, fmt.Errorf("audio: not a valid WAV file")
	}

	duration, err := decoder.Duration()
	if err != nil {
		return 0, fmt.Errorf("audio: read duration: %w", err)
	}

	seconds := duration.Seconds()
	if seconds < 1.0 {
		return seconds, ErrChunkTooShort
	}
	return seconds, nil
}

// GenerateSilence synthesizes a silent mono 16-bit/16kHz WAV placeholder
// of the given duration, used when real capture is unavailable.
func GenerateSilence(durationSeconds int) ([]byte, error) {
	buf := &memWriteSeeker{}
	enc := wav.NewEncoder(buf, sampleRate, bitDepth, numChannels, 1)

	frames := durationSeconds * sampleRate
	samples := make([]int, frames)

	if err := enc.Write(&goaudio.IntBuffer{
		Format: &goaudio.Format{SampleRate: sampleRate, NumChannels: numChannels},
		Data:   samples,
	}); err != nil {
		return nil, fmt.Errorf("audio: write silence samples: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("audio: close encoder: %w", err)
	}

	return buf.buf.Bytes(), nil
}

// memWriteSeeker adapts a bytes.Buffer to io.WriteSeeker, which the
// wav.Encoder requires to patch its RIFF header lengths after writing.
type memWriteSeeker struct {
	buf bytes.Buffer
	pos int64
}

func (m *memWriteSeeker) Write(p []byte) (int, error) {
	if m.pos == int64(m.buf.Len()) {
		n, err := m.buf.Write(p)
		m.pos += int64(n)
		return n, err
	}
	end := m.pos + int64(len(p))
	data := m.buf.Bytes()
	if end > int64(len(data)) {
		grown := make([]byte, end)
		copy(grown, data)
		data = grown
	}
	copy(data[m.pos:end], p)
	m.buf.Reset()
	m.buf.Write(data)
	m.pos = end
	return len(p), nil
}

func (m *memWriteSeeker) Seek(offset int64, whence int) (int64, error) {
	var newPos int64
	switch whence {
	case 0:
		newPos = offset
	case 1:
		newPos = m.pos + offset
	case 2:
		newPos = int64(m.buf.Len()) + offset
	default:
		return 0, fmt.Errorf("audio: invalid whence %d", whence)
	}
	if newPos < 0 {
		return 0, fmt.Errorf("audio: negative seek position")
	}
	m.pos = newPos
	return newPos, nil
}
