package models

import (
	"fmt"
	"strings"
	"time"
)

// AudioChunk is a per-interval audio capture record. Invariant:
// ChunkNumber increments by exactly one per valid chunk recorded in a
// session; invalid or silent-only chunks must not consume a number.
type AudioChunk struct {
	ChunkID              string                `json:"chunk_id"`
	ChunkNumber          int                   `json:"chunk_number"`
	MeetingID            string                `json:"meeting_id"`
	SessionID            string                `json:"session_id"`
	StartTS              time.Time             `json:"start_ts"`
	EndTS                time.Time             `json:"end_ts"`
	DurationSeconds      float64               `json:"duration_s"`
	AudioPath            string                `json:"audio_path"`
	AudioSizeBytes       int64                 `json:"audio_size_bytes"`
	ParticipantsSnapshot []ParticipantSnapshot `json:"participants_snapshot"`
	ActiveSpeaker        *SpeakerInfo          `json:"active_speaker,omitempty"`
	AllSpeakers          []SpeakerInfo         `json:"all_speakers"`
}

// Filename returns the chunk audio file's basename per the richer
// filename convention: chunk_{NNN}_{bot_token}_{name_tokens...}_{iso_ts_safe}.wav.
// Up to three non-bot participant name tokens (lowercased first ten
// letters) are included.
func (c AudioChunk) Filename(botToken string) string {
	tokens := make([]string, 0, 3)
	for _, p := range c.ParticipantsSnapshot {
		if p.IsBot {
			continue
		}
		tokens = append(tokens, nameToken(p.Name))
		if len(tokens) == 3 {
			break
		}
	}

	parts := append([]string{fmt.Sprintf("chunk_%03d", c.ChunkNumber), botToken}, tokens...)
	parts = append(parts, safeTimestamp(c.StartTS))
	return strings.Join(parts, "_") + ".wav"
}

func nameToken(name string) string {
	lower := strings.ToLower(name)
	if len(lower) > 10 {
		lower = lower[:10]
	}
	return lower
}

func safeTimestamp(t time.Time) string {
	return strings.ReplaceAll(t.UTC().Format(time.RFC3339), ":", "-")
}
