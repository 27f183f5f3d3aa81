// Package artifact is the durable half of the Event Sink & Artifact
// Store (C12): a local filesystem backend for audio chunks and session
// summaries, with an optional HTTP mirror for hybrid deployments.
package artifact

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/codeready-toolchain/meetingbot/pkg/models"
)

// LocalStore writes chunks and summaries under Root using the fixed
// path conventions: audio at "{meeting_id}/{session_id}/{iso_ts_safe}.wav",
// its metadata sibling at "chunks/{meeting_id}/{session_id}/chunk_{NNN}.json",
// and session summaries at "sessions/{session_id}.json".
type LocalStore struct {
	Root string
}

// NewLocalStore constructs a LocalStore rooted at root.
func NewLocalStore(root string) *LocalStore {
	return &LocalStore{Root: root}
}

// WriteChunk writes the chunk's audio bytes and a human-inspectable
// JSON metadata sibling, returning the audio file's path relative to
// Root for embedding back into the chunk record.
func (s *LocalStore) WriteChunk(ctx context.Context, chunk models.AudioChunk, audioBytes []byte) (string, error) {
	relAudioPath := filepath.Join(chunk.MeetingID, chunk.SessionID, safeTimestamp(chunk.StartTS)+".wav")
	audioPath := filepath.Join(s.Root, relAudioPath)
	if err := writeFile(audioPath, audioBytes); err != nil {
		return "", fmt.Errorf("artifact: write audio chunk: %w", err)
	}

	chunk.AudioPath = relAudioPath
	metaPath := filepath.Join(s.Root, "chunks", chunk.MeetingID, chunk.SessionID, fmt.Sprintf("chunk_%03d.json", chunk.ChunkNumber))
	metaBytes, err := json.MarshalIndent(chunk, "", "  ")
	if err != nil {
		return "", fmt.Errorf("artifact: marshal chunk metadata: %w", err)
	}
	if err := writeFile(metaPath, metaBytes); err != nil {
		return "", fmt.Errorf("artifact: write chunk metadata: %w", err)
	}

	return relAudioPath, nil
}

// WriteSummary writes a session's terminal Summary record to
// "sessions/{session_id}.json".
func (s *LocalStore) WriteSummary(ctx context.Context, summary models.Summary) error {
	path := filepath.Join(s.Root, "sessions", summary.SessionID+".json")
	body, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("artifact: marshal summary: %w", err)
	}
	if err := writeFile(path, body); err != nil {
		return fmt.Errorf("artifact: write summary: %w", err)
	}
	return nil
}

// SaveSnapshot writes a diagnostic page dump captured at join-failure
// time to "snapshots/{session_id}/{iso_ts_safe}.txt", returning its path
// relative to Root.
func (s *LocalStore) SaveSnapshot(ctx context.Context, sessionID, content string) (string, error) {
	relPath := filepath.Join("snapshots", sessionID, safeTimestamp(time.Now())+".txt")
	path := filepath.Join(s.Root, relPath)
	if err := writeFile(path, []byte(content)); err != nil {
		return "", fmt.Errorf("artifact: write snapshot: %w", err)
	}
	return relPath, nil
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// safeTimestamp renders t as an RFC3339 timestamp with colons replaced
// by dashes, safe to embed in a filesystem path.
func safeTimestamp(t time.Time) string {
	return strings.ReplaceAll(t.UTC().Format(time.RFC3339), ":", "-")
}
