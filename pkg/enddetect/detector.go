// Package enddetect implements the End Detector (C8): waiting for a
// meeting to terminate via an explicit end banner, a disconnection
// state, or a sustained empty-roster condition, and making a best-effort
// attempt to leave cleanly once it does.
package enddetect

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/codeready-toolchain/meetingbot/pkg/browser"
	"github.com/codeready-toolchain/meetingbot/pkg/participant"
)

// Reason names why Wait returned.
type Reason string

const (
	ReasonExplicitEnd   Reason = "explicit_end"
	ReasonDisconnected  Reason = "disconnected"
	ReasonEmptyMeeting  Reason = "empty_meeting"
	ReasonContextClosed Reason = "context_closed"
)

// Result is what Wait returns once the meeting is judged over.
type Result struct {
	Reason       Reason
	SnapshotPath string
}

// Snapshotter saves a diagnostic dump of the page, used on disconnection
// and confirmed-empty so the operator can see what triggered the exit.
type Snapshotter interface {
	SaveSnapshot(ctx context.Context, sessionID, content string) (path string, err error)
}

// Selectors names the platform-specific hooks the detector needs beyond
// what the Participant Extractor already covers.
type Selectors struct {
	Participant participant.Selectors
	LeaveButton []string
}

// Detector implements the end-of-meeting wait loop. The explicit-end and
// disconnection checks are direct platform signals and always win over
// the empty-roster inference; they're evaluated first on every tick so
// the two conditions are never treated as racing goroutines.
type Detector struct {
	SessionID string

	EndMarkers        []string
	DisconnectMarkers []string
	ReconnectMarkers  []string
	HostMarker        string

	Selectors   Selectors
	Identifiers *participant.Identifiers
	BotName     func() string

	PollInterval      time.Duration
	ReconnectGrace    time.Duration
	EmptyConfirmPolls int
	ConfirmDelay      time.Duration
	Snapshot          Snapshotter
}

// New builds a Detector with the poll cadence and empty-meeting
// hysteresis used across both platforms: a 5-second poll and three
// consecutive empty reads (15 seconds) before tier 2 fires a single
// 15-second confirmation re-check.
func New(sessionID string, ids *participant.Identifiers, botName func() string) *Detector {
	return &Detector{
		SessionID:         sessionID,
		Identifiers:       ids,
		BotName:           botName,
		PollInterval:      5 * time.Second,
		ReconnectGrace:    10 * time.Second,
		EmptyConfirmPolls: 3,
		ConfirmDelay:      15 * time.Second,
	}
}

// Wait blocks until the meeting is judged over or ctx is cancelled.
func (d *Detector) Wait(ctx context.Context, page browser.PageSurface) Result {
	consecutiveEmpty := 0

	for {
		select {
		case <-ctx.Done():
			return Result{Reason: ReasonContextClosed}
		default:
		}

		if d.meetingEnded(page) {
			d.tryLeave(ctx, page)
			return Result{Reason: ReasonExplicitEnd}
		}

		if d.disconnected(ctx, page) {
			snap := d.snapshotOrEmpty(ctx, page)
			d.tryLeave(ctx, page)
			return Result{Reason: ReasonDisconnected, SnapshotPath: snap}
		}

		if d.meetingEmpty(ctx, page) {
			consecutiveEmpty++
			if consecutiveEmpty >= d.EmptyConfirmPolls {
				if !d.confirmStillEmpty(ctx, page) {
					consecutiveEmpty = 0
				} else {
					snap := d.snapshotOrEmpty(ctx, page)
					d.tryLeave(ctx, page)
					return Result{Reason: ReasonEmptyMeeting, SnapshotPath: snap}
				}
			}
		} else {
			consecutiveEmpty = 0
		}

		select {
		case <-ctx.Done():
			return Result{Reason: ReasonContextClosed}
		case <-time.After(d.PollInterval):
		}
	}
}

func (d *Detector) bodyText(ctx context.Context, page browser.PageSurface) string {
	el, ok, err := page.QueryOne(ctx, "body")
	if err != nil || !ok {
		return ""
	}
	text, err := page.InnerText(ctx, el)
	if err != nil {
		return ""
	}
	return text
}

// meetingEnded reports an off-host URL or an explicit end banner.
func (d *Detector) meetingEnded(page browser.PageSurface) bool {
	if d.HostMarker != "" && !strings.Contains(strings.ToLower(page.URL()), d.HostMarker) {
		return true
	}
	body := strings.ToLower(d.bodyTextSync(page))
	for _, marker := range d.EndMarkers {
		if strings.Contains(body, marker) {
			return true
		}
	}
	return false
}

// bodyTextSync is a context-free convenience wrapper; body reads never
// block on network activity so a background context is always safe.
func (d *Detector) bodyTextSync(page browser.PageSurface) string {
	return d.bodyText(context.Background(), page)
}

// disconnected detects a disconnection banner. A transient
// "reconnecting" state is given ReconnectGrace before being treated as
// permanent, mirroring a client that may recover on its own.
func (d *Detector) disconnected(ctx context.Context, page browser.PageSurface) bool {
	body := strings.ToLower(d.bodyText(ctx, page))
	found := false
	reconnecting := false
	for _, marker := range d.DisconnectMarkers {
		if strings.Contains(body, marker) {
			found = true
		}
	}
	for _, marker := range d.ReconnectMarkers {
		if strings.Contains(body, marker) {
			reconnecting = true
		}
	}
	if !found {
		return false
	}
	if !reconnecting {
		return true
	}

	select {
	case <-ctx.Done():
		return false
	case <-time.After(d.ReconnectGrace):
	}
	stillBad := strings.ToLower(d.bodyText(ctx, page))
	for _, marker := range append(append([]string{}, d.DisconnectMarkers...), d.ReconnectMarkers...) {
		if strings.Contains(stillBad, marker) {
			return true
		}
	}
	return false
}

// meetingEmpty reports true only when every available signal agrees
// nobody but the bot remains: the participant badge is at most one, the
// extracted roster has at most one row, zero of those rows are real
// (non-bot) participants, and any lone remaining row is the bot itself.
func (d *Detector) meetingEmpty(ctx context.Context, page browser.PageSurface) bool {
	if sel := d.Selectors.Participant.RosterBadge; sel != "" {
		if el, ok, err := page.QueryOne(ctx, sel); err == nil && ok {
			if text, err := page.InnerText(ctx, el); err == nil {
				if n, err := strconv.Atoi(strings.TrimSpace(text)); err == nil && n > 1 {
					return false
				}
			}
		}
	}

	snapshot, err := participant.Extract(ctx, page, d.Selectors.Participant)
	if err != nil {
		return false
	}
	if len(snapshot) > 1 {
		return false
	}

	botName := ""
	if d.BotName != nil {
		botName = d.BotName()
	}

	realCount := 0
	for _, p := range snapshot {
		entry := participant.Entry{CleanedName: p.Name, OriginalName: p.OriginalName, ExtractorIsBot: p.IsBot}
		if participant.IsBot(entry, d.Identifiers, botName) {
			continue
		}
		realCount++
	}
	return realCount == 0
}

// confirmStillEmpty implements the tier-2 hysteresis: sleep ConfirmDelay
// then re-extract with a fresh snapshot. Only a still-empty result
// confirms tier 1's finding; any real participant found on re-extraction
// (or a cancelled context, which lets the caller's own ctx.Done check
// take over) calls off the empty-meeting verdict.
func (d *Detector) confirmStillEmpty(ctx context.Context, page browser.PageSurface) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d.ConfirmDelay):
	}
	return d.meetingEmpty(ctx, page)
}

func (d *Detector) tryLeave(ctx context.Context, page browser.PageSurface) {
	for _, sel := range d.Selectors.LeaveButton {
		el, ok, err := page.QueryOne(ctx, sel)
		if err != nil || !ok {
			continue
		}
		if err := page.Click(ctx, el); err == nil {
			return
		}
	}
}

func (d *Detector) snapshotOrEmpty(ctx context.Context, page browser.PageSurface) string {
	if d.Snapshot == nil {
		return ""
	}
	content, err := page.Snapshot(ctx)
	if err != nil {
		return ""
	}
	path, err := d.Snapshot.SaveSnapshot(ctx, d.SessionID, content)
	if err != nil {
		return ""
	}
	return path
}
