// Package summary builds the terminal per-session record from a
// finished Session's frozen state: its participant history, its
// accumulated transcript, and its valid audio-chunk count.
package summary

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/codeready-toolchain/meetingbot/pkg/config"
	"github.com/codeready-toolchain/meetingbot/pkg/models"
	"github.com/codeready-toolchain/meetingbot/pkg/participant"
	"github.com/codeready-toolchain/meetingbot/pkg/session"
)

var _ session.SummaryStore = (*Builder)(nil)

const transcriptSummaryChars = 500

// ArtifactStore persists the finished Summary record. Implemented by
// pkg/artifact's filesystem/HTTP backends.
type ArtifactStore interface {
	WriteSummary(ctx context.Context, summary models.Summary) error
}

// Sink publishes the externally visible meeting_summary event.
type Sink interface {
	Publish(ctx context.Context, event models.Event) error
}

// Builder implements session.SummaryStore.
type Builder struct {
	Identity      *config.IdentityConfig
	ChunkInterval time.Duration
	Store         ArtifactStore
	Sink          Sink
}

// BuildAndStore takes a consistent snapshot of sess, builds its Summary,
// persists it, and publishes meeting_summary. Publishing failures are
// logged, not returned: the durable record already exists by then.
func (b *Builder) BuildAndStore(ctx context.Context, sess *models.Session) error {
	snap := sess.Snapshot()
	sum := b.build(snap)

	if err := b.Store.WriteSummary(ctx, sum); err != nil {
		return err
	}

	if b.Sink != nil {
		evt := models.Event{
			Type:      models.EventMeetingSummary,
			Subject:   sum.MeetingID,
			Timestamp: time.Now(),
			Payload:   sum,
		}
		if err := b.Sink.Publish(ctx, evt); err != nil {
			slog.Warn("Failed to publish meeting_summary event", "session_id", sum.SessionID, "error", err)
		}
	}

	return nil
}

// build re-derives is_bot for every history row against the
// identifiers known at end-of-session (rather than trusting each row's
// classification from whenever it was last polled), since the bot's
// self-name may only have been detected after some rows were already
// recorded.
func (b *Builder) build(snap models.Snapshot) models.Summary {
	ids := participant.NewIdentifiers(b.identityNames()...)

	names := make([]string, 0, len(snap.History))
	for name := range snap.History {
		names = append(names, name)
	}
	sort.Strings(names)

	var all, real []models.SummaryParticipant
	for _, name := range names {
		rec := snap.History[name]

		entry := participant.Entry{
			CleanedName:    name,
			OriginalName:   rec.OriginalName,
			ExtractorIsBot: rec.IsBot,
		}
		isBot := participant.IsBot(entry, ids, snap.BotSelfName)

		if !isBot && !participant.IsValidParticipantName(name) {
			continue
		}

		duration := rec.LastSeenPresentAt.Sub(rec.FirstSeen).Seconds()
		row := models.SummaryParticipant{
			Name:            name,
			OriginalName:    rec.OriginalName,
			IsBot:           isBot,
			Role:            rec.Role,
			JoinTime:        rec.FirstSeen,
			LeaveTime:       rec.LeftAt,
			DurationSeconds: &duration,
		}

		all = append(all, row)
		if !isBot && !participant.IsPlaceholderName(name) {
			real = append(real, row)
		}
	}

	chunkSeconds := 0
	if b.ChunkInterval > 0 {
		chunkSeconds = int(b.ChunkInterval.Seconds())
	}

	sum := models.Summary{
		MeetingID:            snap.MeetingID,
		Platform:             string(snap.Platform),
		SessionID:            snap.ID,
		Status:               snap.Status,
		CreatedAt:            snap.CreatedAt,
		StartedAt:            snap.JoinedAt,
		EndedAt:              snap.EndedAt,
		Participants:         all,
		RealParticipants:     real,
		UniqueParticipants:   len(real),
		AudioChunks:          snap.ChunkCount,
		AudioDurationSeconds: snap.ChunkCount * chunkSeconds,
		Transcript:           snap.Transcript,
		TranscriptSummary:    truncate(snap.Transcript, transcriptSummaryChars),
	}

	if snap.EndedAt != nil {
		sum.DurationSeconds = snap.EndedAt.Sub(snap.CreatedAt).Seconds()
	}
	if snap.Err != nil {
		sum.Error = snap.Err.Error()
		sum.Errors = []string{snap.Err.Error()}
	}

	return sum
}

func (b *Builder) identityNames() []string {
	if b.Identity == nil {
		return nil
	}
	return append([]string{b.Identity.BotDisplayName}, b.Identity.BotAccountIdentifiers...)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
