// Package session implements the Session Runner (C9): the per-session
// orchestration that drives one meeting join from admission through to
// a persisted summary.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/codeready-toolchain/meetingbot/pkg/audio"
	"github.com/codeready-toolchain/meetingbot/pkg/browser"
	"github.com/codeready-toolchain/meetingbot/pkg/config"
	"github.com/codeready-toolchain/meetingbot/pkg/diarize"
	"github.com/codeready-toolchain/meetingbot/pkg/enddetect"
	"github.com/codeready-toolchain/meetingbot/pkg/masking"
	"github.com/codeready-toolchain/meetingbot/pkg/meetingflow"
	"github.com/codeready-toolchain/meetingbot/pkg/models"
	"github.com/codeready-toolchain/meetingbot/pkg/participant"
)

// ProfileRegistry is the subset of profile.Registry the runner depends
// on, so tests can substitute a fake.
type ProfileRegistry interface {
	Allocate(sessionID, preferred string) (models.Profile, error)
	Release(name string)
}

// Pages is the subset of browser.Pool the runner depends on.
type Pages interface {
	PageForSession(ctx context.Context, sessionID string, profile models.Profile) (browser.PageSurface, func(), error)
}

// SummaryStore persists a finished session's summary. Implemented by
// pkg/summary's Builder composed with an artifact-store writer.
type SummaryStore interface {
	BuildAndStore(ctx context.Context, sess *models.Session) error
}

// Runner drives one Session through its full lifecycle: join, the three
// concurrent capture loops, end detection, summary, and profile
// release.
type Runner struct {
	Profiles ProfileRegistry
	Pages    Pages
	Sink     audio.Sink
	Store    audio.Store
	Diarizer *diarize.Diarizer
	Summary  SummaryStore
	Snapshot meetingflow.Snapshotter
	Masking  *masking.Masker

	Session *config.SessionConfig
	Identity *config.IdentityConfig
}

// flowFor selects the Platform Join Flow implementation for sess.
func (r *Runner) flowFor(p config.Platform) meetingflow.Flow {
	if p == config.PlatformTeams {
		return meetingflow.NewTeams(r.Snapshot)
	}
	return meetingflow.NewGoogleMeet(r.Snapshot)
}

// Run executes the full ten-step Session Runner sequence for sess, from
// the moment the Scheduler has admitted it through profile release. It
// always returns once the session has reached a terminal status; the
// caller (the Scheduler's dispatch loop) doesn't need to inspect the
// error, since every failure is already folded into sess's own status
// and Err().
func (r *Runner) Run(ctx context.Context, sess *models.Session) error {
	log := slog.With("session_id", sess.ID(), "meeting_id", sess.MeetingID())

	// Step 1: created -> joining.
	sess.SetStatus(models.StatusJoining)

	// Step 2: acquire a profile and a page.
	prof, err := r.Profiles.Allocate(sess.ID(), "")
	if err != nil {
		sess.SetError(fmt.Errorf("session: allocate profile: %w", err))
		return r.finish(ctx, sess, "")
	}
	sess.SetProfile(prof.Name)

	page, closePage, err := r.Pages.PageForSession(ctx, sess.ID(), prof)
	if err != nil {
		sess.SetError(fmt.Errorf("session: acquire page: %w", err))
		return r.finish(ctx, sess, prof.Name)
	}
	defer closePage()

	// Step 3: join.
	startCtx, cancelStart := context.WithTimeout(ctx, r.startTimeout())
	joinErr := r.flowFor(sess.Platform()).Join(startCtx, page, sess.ID(), sess.MeetingURL())
	cancelStart()
	if joinErr != nil {
		log.Warn("Join failed", "error", r.Masking.RedactError(joinErr))
		sess.SetError(joinErr)
		return r.finish(ctx, sess, prof.Name)
	}

	// Step 4: joining -> in_meeting.
	sess.SetStatus(models.StatusInMeeting)
	if err := r.Sink.Publish(ctx, buildSessionJoinedEvent(sess)); err != nil {
		log.Warn("Failed to publish session_joined event", "error", err)
	}

	// Step 5: one-shot bot self-name detection, ~3s after join.
	select {
	case <-time.After(r.botNameDelay()):
	case <-ctx.Done():
	}
	r.detectBotSelfName(ctx, page, sess)

	// Step 6: start the three concurrent loops, bound to a shared
	// stop channel closed exactly once when the end detector returns.
	runCtx, cancelRun := context.WithCancel(ctx)
	defer cancelRun()
	stop := make(chan struct{})

	identifiers := participant.NewIdentifiers(r.identityNames()...)
	sel := participantSelectorsFor(sess.Platform())
	captionSel := captionSelectorsFor(sess.Platform())

	var g errgroup.Group
	g.Go(func() error {
		r.audioLoop(runCtx, page, sess, stop)
		return nil
	})
	g.Go(func() error {
		r.rosterLoop(runCtx, page, sess, sel, identifiers, stop)
		return nil
	})
	g.Go(func() error {
		captionsLoop(runCtx, page, sess, captionSel, r.captionsInterval(), stop)
		return nil
	})

	// Step 7: wait for end, in parallel with the loops above.
	detector := r.endDetectorFor(sess, identifiers, sel)
	result := detector.Wait(runCtx, page)
	close(stop)
	cancelRun()
	g.Wait()

	log.Info("Session ended", "reason", result.Reason, "snapshot", r.Masking.Redact(result.SnapshotPath))

	// Step 8: terminal transition.
	switch result.Reason {
	case enddetect.ReasonExplicitEnd, enddetect.ReasonEmptyMeeting:
		sess.SetStatus(models.StatusEnded)
	default: // ReasonDisconnected, ReasonContextClosed
		sess.SetError(fmt.Errorf("session: ended abnormally: %s", result.Reason))
	}

	return r.finish(ctx, sess, prof.Name)
}

// finish runs steps 9-10 regardless of how the session terminated:
// build and persist the summary, then release the profile.
func (r *Runner) finish(ctx context.Context, sess *models.Session, profileName string) error {
	if r.Summary != nil {
		summaryCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := r.Summary.BuildAndStore(summaryCtx, sess); err != nil {
			slog.Warn("Failed to build/store summary", "session_id", sess.ID(), "error", err)
		}
		cancel()
	}
	if profileName != "" {
		r.Profiles.Release(profileName)
	}
	return sess.Err()
}

func (r *Runner) detectBotSelfName(ctx context.Context, page browser.PageSurface, sess *models.Session) {
	sel := participantSelectorsFor(sess.Platform())
	snapshot, err := participant.Extract(ctx, page, sel)
	if err != nil {
		return
	}
	entries := make([]participant.Entry, len(snapshot))
	for i, p := range snapshot {
		entries[i] = participant.Entry{CleanedName: p.Name, OriginalName: p.OriginalName, ExtractorIsBot: p.IsBot}
	}
	if name := participant.DetectSessionBotName(entries); name != "" {
		sess.SetBotSelfName(name)
	}
}

func (r *Runner) rosterLoop(ctx context.Context, page browser.PageSurface, sess *models.Session, sel participant.Selectors, ids *participant.Identifiers, stop <-chan struct{}) {
	ticker := time.NewTicker(r.rosterInterval())
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		r.pollRoster(ctx, page, sess, sel, ids)
	}
}

func (r *Runner) pollRoster(ctx context.Context, page browser.PageSurface, sess *models.Session, sel participant.Selectors, ids *participant.Identifiers) {
	snapshot, err := participant.Extract(ctx, page, sel)
	if err != nil {
		slog.Warn("Roster extraction failed", "session_id", sess.ID(), "error", err)
		return
	}

	botName := sess.BotSelfName()
	for i, p := range snapshot {
		entry := participant.Entry{CleanedName: p.Name, OriginalName: p.OriginalName, ExtractorIsBot: p.IsBot}
		snapshot[i].IsBot = participant.IsBot(entry, ids, botName)
	}

	sess.UpdateRoster(snapshot)

	if err := r.Sink.Publish(ctx, buildParticipantUpdateEvent(sess, snapshot)); err != nil {
		slog.Warn("Failed to publish participant_update event", "session_id", sess.ID(), "error", err)
	}
}

func (r *Runner) audioLoop(ctx context.Context, page browser.PageSurface, sess *models.Session, stop <-chan struct{}) {
	source := newPageAudioSource(page)
	chunker := &audio.Chunker{
		Interval: r.chunkInterval(),
		Source:   source.Source,
		Diarizer: r.Diarizer,
		Store:    r.Store,
		Sink:     r.Sink,
		Snapshot: func() []models.ParticipantSnapshot { return sess.Roster() },
	}
	chunker.Run(ctx, sess, stop)
}

func (r *Runner) endDetectorFor(sess *models.Session, ids *participant.Identifiers, sel participant.Selectors) *enddetect.Detector {
	d := enddetect.New(sess.ID(), ids, sess.BotSelfName)
	d.HostMarker = hostMarkerFor(sess.Platform())
	d.EndMarkers = endMarkersFor(sess.Platform())
	d.DisconnectMarkers = disconnectMarkersFor(sess.Platform())
	d.ReconnectMarkers = reconnectMarkersFor(sess.Platform())
	d.Selectors = endDetectSelectorsFor(sess.Platform())
	if snap, ok := r.Snapshot.(enddetectSnapshotter); ok {
		d.Snapshot = snap
	}
	if r.Session != nil {
		if r.Session.EndDetectorPollInterval > 0 {
			d.PollInterval = r.Session.EndDetectorPollInterval
		}
		if r.Session.EndDetectorRequiredPolls > 0 {
			d.EmptyConfirmPolls = r.Session.EndDetectorRequiredPolls
		}
		if r.Session.DisconnectionRecheckDelay > 0 {
			d.ReconnectGrace = r.Session.DisconnectionRecheckDelay
		}
		if r.Session.EndDetectorConfirmDelay > 0 {
			d.ConfirmDelay = r.Session.EndDetectorConfirmDelay
		}
	}
	return d
}

// enddetectSnapshotter lets a single Snapshotter implementation satisfy
// both meetingflow.Snapshotter and enddetect.Snapshotter, which are
// identical in shape but independently declared so neither package
// depends on the other.
type enddetectSnapshotter interface {
	SaveSnapshot(ctx context.Context, sessionID, content string) (path string, err error)
}

func (r *Runner) identityNames() []string {
	if r.Identity == nil {
		return nil
	}
	names := append([]string{r.Identity.BotDisplayName}, r.Identity.BotAccountIdentifiers...)
	return names
}

func (r *Runner) startTimeout() time.Duration {
	if r.Session != nil && r.Session.StartTimeout > 0 {
		return r.Session.StartTimeout
	}
	return 60 * time.Second
}

func (r *Runner) botNameDelay() time.Duration {
	if r.Session != nil && r.Session.BotNameDetectDelay > 0 {
		return r.Session.BotNameDetectDelay
	}
	return 3 * time.Second
}

func (r *Runner) rosterInterval() time.Duration {
	if r.Session != nil && r.Session.RosterPollInterval > 0 {
		return r.Session.RosterPollInterval
	}
	return 30 * time.Second
}

func (r *Runner) captionsInterval() time.Duration {
	if r.Session != nil && r.Session.CaptionsPollInterval > 0 {
		return r.Session.CaptionsPollInterval
	}
	return 5 * time.Second
}

func (r *Runner) chunkInterval() time.Duration {
	if r.Session != nil && r.Session.ChunkInterval > 0 {
		return r.Session.ChunkInterval
	}
	return 30 * time.Second
}

func buildSessionJoinedEvent(sess *models.Session) models.Event {
	return models.Event{
		Type:      models.EventSessionJoined,
		Subject:   sess.MeetingID(),
		Timestamp: time.Now(),
		Payload: models.SessionJoinedPayload{
			MeetingID: sess.MeetingID(),
			Platform:  string(sess.Platform()),
			SessionID: sess.ID(),
		},
	}
}

func buildParticipantUpdateEvent(sess *models.Session, snapshot []models.ParticipantSnapshot) models.Event {
	entries := make([]models.ParticipantEntry, len(snapshot))
	realCount, botCount := 0, 0
	for i, p := range snapshot {
		entries[i] = models.ParticipantEntry{
			Name:         p.Name,
			OriginalName: p.OriginalName,
			IsBot:        p.IsBot,
			Role:         p.Role,
			JoinTime:     time.Now(),
		}
		if p.IsBot {
			botCount++
		} else {
			realCount++
		}
	}
	return models.Event{
		Type:      models.EventParticipantUpdate,
		Subject:   sess.MeetingID(),
		Timestamp: time.Now(),
		Payload: models.ParticipantUpdatePayload{
			MeetingID:    sess.MeetingID(),
			SessionID:    sess.ID(),
			Participants: entries,
			RealCount:    realCount,
			BotCount:     botCount,
			TotalCount:   len(entries),
			Timestamp:    time.Now(),
		},
	}
}
