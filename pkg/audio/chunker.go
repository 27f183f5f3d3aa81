package audio

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/codeready-toolchain/meetingbot/pkg/diarize"
	"github.com/codeready-toolchain/meetingbot/pkg/models"
)

// Source acquires raw audio bytes for one chunk interval. ok=false
// signals capture was unavailable for this interval, and the chunker
// falls back to a silent placeholder.
type Source func(ctx context.Context, durationSeconds int) (data []byte, ok bool)

// Store persists a validated chunk's audio and metadata, following the
// artifact store's path conventions, and returns the audio file's path.
type Store interface {
	WriteChunk(ctx context.Context, chunk models.AudioChunk, audioBytes []byte) (audioPath string, err error)
}

// Sink publishes externally visible events.
type Sink interface {
	Publish(ctx context.Context, event models.Event) error
}

// SnapshotFunc returns the current participant snapshot to embed in a
// chunk. The Session Runner wires this to the roster loop's cached
// roster rather than a fresh extraction, since two loops independently
// querying the same browser page would race the driver.
type SnapshotFunc func() []models.ParticipantSnapshot

// Chunker runs the cooperative per-interval audio-capture loop.
type Chunker struct {
	Interval time.Duration
	Source   Source
	Diarizer *diarize.Diarizer
	Store    Store
	Sink     Sink
	Snapshot SnapshotFunc
}

// Run produces a chunk every Interval until stop fires or ctx is
// cancelled. Cancellation exits
// at the next step boundary; a partial interval is never emitted.
func (c *Chunker) Run(ctx context.Context, session *models.Session, stop <-chan struct{}) {
	for {
		start := time.Now()

		timer := time.NewTimer(c.Interval)
		select {
		case <-stop:
			timer.Stop()
			return
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
		end := time.Now()

		c.produceChunk(ctx, session, start, end)
	}
}

func (c *Chunker) produceChunk(ctx context.Context, session *models.Session, start, end time.Time) {
	log := slog.With("session_id", session.ID(), "meeting_id", session.MeetingID())

	seconds := int(c.Interval.Seconds())
	audioBytes, captured := c.Source(ctx, seconds)
	if !captured {
		silence, err := GenerateSilence(seconds)
		if err != nil {
			log.Warn("Failed to synthesize silent placeholder, dropping chunk", "error", err)
			return
		}
		audioBytes = silence
	}

	duration, err := Validate(audioBytes)
	if err != nil {
		log.Warn("Dropping invalid or too-short audio chunk", "error", err)
		return
	}

	snapshot := c.Snapshot()
	speakers := c.Diarizer.Analyze(ctx, session.MeetingID(), session.ID(), "", audioBytes, snapshot)
	activeSpeaker := diarize.ActiveSpeaker(speakers)

	chunkID := uuid.NewString()
	chunkNumber := session.NextChunkNumber()

	chunk := models.AudioChunk{
		ChunkID:              chunkID,
		ChunkNumber:          chunkNumber,
		MeetingID:            session.MeetingID(),
		SessionID:            session.ID(),
		StartTS:              start,
		EndTS:                end,
		DurationSeconds:      duration,
		AudioSizeBytes:       int64(len(audioBytes)),
		ParticipantsSnapshot: snapshot,
		ActiveSpeaker:        activeSpeaker,
		AllSpeakers:          speakers,
	}

	audioPath, err := c.Store.WriteChunk(ctx, chunk, audioBytes)
	if err != nil {
		log.Warn("Failed to persist audio chunk", "chunk_id", chunkID, "error", err)
		return
	}
	chunk.AudioPath = audioPath

	if err := c.Sink.Publish(ctx, buildEvent(chunk)); err != nil {
		log.Warn("Failed to publish audio_chunk_complete event", "chunk_id", chunkID, "error", err)
	}
}

func buildEvent(chunk models.AudioChunk) models.Event {
	realCount, totalCount := 0, len(chunk.ParticipantsSnapshot)
	for _, p := range chunk.ParticipantsSnapshot {
		if !p.IsBot {
			realCount++
		}
	}

	return models.Event{
		Type:      models.EventAudioChunkComplete,
		Subject:   chunk.MeetingID,
		Timestamp: chunk.EndTS,
		Payload: models.AudioChunkCompletePayload{
			ChunkID:              chunk.ChunkID,
			ChunkNumber:          chunk.ChunkNumber,
			MeetingID:            chunk.MeetingID,
			SessionID:            chunk.SessionID,
			StartTimestamp:       chunk.StartTS,
			EndTimestamp:         chunk.EndTS,
			DurationSeconds:      chunk.DurationSeconds,
			AudioFilePath:        chunk.AudioPath,
			Filename:             chunk.Filename("bot"),
			Participants:         chunk.ParticipantsSnapshot,
			ParticipantCount:     totalCount,
			RealParticipantCount: realCount,
			ActiveSpeaker:        chunk.ActiveSpeaker,
			AllSpeakers:          chunk.AllSpeakers,
		},
	}
}
