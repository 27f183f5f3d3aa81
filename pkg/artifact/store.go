package artifact

import (
	"context"
	"log/slog"

	"github.com/codeready-toolchain/meetingbot/pkg/config"
	"github.com/codeready-toolchain/meetingbot/pkg/models"
)

// Store is the artifact store every runner wires against: it always
// writes through Local, and when cfg carries an ArtifactStoreEndpoint
// it also best-effort mirrors the same write to Remote. A mirror
// failure is logged, never returned — the local write already made the
// artifact durable.
type Store struct {
	Local  *LocalStore
	Remote *RemoteMirror
}

// New constructs a Store from cfg. Local is always present; Remote is
// nil unless cfg.ArtifactStoreEndpoint is set.
func New(cfg *config.ArtifactsConfig) *Store {
	return &Store{
		Local:  NewLocalStore(cfg.LocalRoot),
		Remote: NewRemoteMirror(cfg),
	}
}

// WriteChunk implements pkg/audio.Store.
func (s *Store) WriteChunk(ctx context.Context, chunk models.AudioChunk, audioBytes []byte) (string, error) {
	audioPath, err := s.Local.WriteChunk(ctx, chunk, audioBytes)
	if err != nil {
		return "", err
	}

	if s.Remote != nil {
		chunk.AudioPath = audioPath
		if err := s.Remote.MirrorChunk(ctx, chunk, audioBytes); err != nil {
			slog.Warn("Failed to mirror audio chunk to remote artifact store",
				"chunk_id", chunk.ChunkID, "error", err)
		}
	}

	return audioPath, nil
}

// WriteSummary implements pkg/summary.ArtifactStore.
func (s *Store) WriteSummary(ctx context.Context, summary models.Summary) error {
	if err := s.Local.WriteSummary(ctx, summary); err != nil {
		return err
	}

	if s.Remote != nil {
		if err := s.Remote.MirrorSummary(ctx, summary); err != nil {
			slog.Warn("Failed to mirror session summary to remote artifact store",
				"session_id", summary.SessionID, "error", err)
		}
	}

	return nil
}

// SaveSnapshot implements pkg/meetingflow.Snapshotter. Snapshots are
// diagnostic-only and kept local; they aren't worth the extra outbound
// request to mirror remotely.
func (s *Store) SaveSnapshot(ctx context.Context, sessionID, content string) (string, error) {
	return s.Local.SaveSnapshot(ctx, sessionID, content)
}
