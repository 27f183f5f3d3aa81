package meetingflow

import (
	"context"
	"strings"
	"time"

	"github.com/codeready-toolchain/meetingbot/pkg/browser"
)

// Teams drives the Microsoft Teams web join sequence. Teams link
// landing pages sometimes interstitial through a native-app prompt
// first, so the flow clears a "Continue on this browser" step before
// the usual permission/join sequence.
type Teams struct {
	NavTimeout     time.Duration
	ConfirmTimeout time.Duration
	Snapshot       Snapshotter
}

var (
	teamsContinueSelectors = []string{`a[href*="launcher"]`, `button[data-tid="joinOnWeb"]`}
	teamsMicSelectors      = []string{`button[data-tid="prejoin-toggle-mute"]`, `[aria-label*="Mute"]`, `[aria-label*="Microphone"]`}
	teamsCamSelectors      = []string{`button[data-tid="prejoin-toggle-video"]`, `[aria-label*="Turn camera off"]`, `[aria-label*="Camera"]`}
	teamsSignInMarkers     = []string{"sign in", "login.microsoftonline.com", "use another account"}
	teamsBlockedMarkers    = []string{"meeting doesn't exist", "we couldn't find this meeting", "meeting not found"}
	teamsInMeetingMarkers  = []string{"leave", "you left", "call ended"}
	teamsWaitingMarkers    = []string{"someone will let you in", "waiting for others to let you in", "you're in the lobby"}
)

func NewTeams(snap Snapshotter) *Teams {
	return &Teams{
		NavTimeout:     20 * time.Second,
		ConfirmTimeout: 15 * time.Second,
		Snapshot:       snap,
	}
}

func (t *Teams) Join(ctx context.Context, page browser.PageSurface, sessionID, url string) error {
	navCtx, cancel := context.WithTimeout(ctx, t.NavTimeout)
	err := page.Navigate(navCtx, url)
	cancel()
	if err != nil {
		return &JoinFailedError{Reason: ReasonNavigationFailed, Err: err, SnapshotPath: snapshotOrEmpty(ctx, page, t.Snapshot, sessionID)}
	}

	t.dismissContinueOnBrowser(ctx, page)

	if t.pageSaysSignIn(ctx, page) {
		return &JoinFailedError{Reason: ReasonNotAuthenticated, SnapshotPath: snapshotOrEmpty(ctx, page, t.Snapshot, sessionID)}
	}
	if t.pageSaysBlocked(ctx, page) {
		return &JoinFailedError{Reason: ReasonMeetingInaccessible, SnapshotPath: snapshotOrEmpty(ctx, page, t.Snapshot, sessionID)}
	}

	t.disableMicAndCamera(ctx, page)

	if !t.clickJoin(ctx, page) {
		return &JoinFailedError{Reason: ReasonNoJoinButton, SnapshotPath: snapshotOrEmpty(ctx, page, t.Snapshot, sessionID)}
	}

	admitted := waitForAny(ctx, t.ConfirmTimeout, 500*time.Millisecond, func() bool {
		return t.pageSaysInMeeting(ctx, page) || t.pageSaysWaiting(ctx, page)
	})
	if !admitted {
		if !strings.Contains(page.URL(), "teams.microsoft.com") && !strings.Contains(page.URL(), "teams.live.com") {
			return &JoinFailedError{Reason: ReasonRedirected, SnapshotPath: snapshotOrEmpty(ctx, page, t.Snapshot, sessionID)}
		}
		return &JoinFailedError{Reason: ReasonNoJoinButton, SnapshotPath: snapshotOrEmpty(ctx, page, t.Snapshot, sessionID)}
	}

	return nil
}

func (t *Teams) bodyText(ctx context.Context, page browser.PageSurface) string {
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

func (t *Teams) dismissContinueOnBrowser(ctx context.Context, page browser.PageSurface) {
	if clickFirstMatch(ctx, page, teamsContinueSelectors) {
		return
	}
	clickContainingText(ctx, page, `a, button`, "continue on this browser", "")
}

func (t *Teams) pageSaysSignIn(ctx context.Context, page browser.PageSurface) bool {
	if strings.Contains(page.URL(), "login.microsoftonline.com") {
		return true
	}
	return containsAny(t.bodyText(ctx, page), teamsSignInMarkers)
}

func (t *Teams) pageSaysBlocked(ctx context.Context, page browser.PageSurface) bool {
	return containsAny(t.bodyText(ctx, page), teamsBlockedMarkers)
}

func (t *Teams) pageSaysInMeeting(ctx context.Context, page browser.PageSurface) bool {
	return containsAny(t.bodyText(ctx, page), teamsInMeetingMarkers)
}

func (t *Teams) pageSaysWaiting(ctx context.Context, page browser.PageSurface) bool {
	return containsAny(t.bodyText(ctx, page), teamsWaitingMarkers)
}

func (t *Teams) disableMicAndCamera(ctx context.Context, page browser.PageSurface) {
	clickFirstMatch(ctx, page, teamsMicSelectors)
	clickFirstMatch(ctx, page, teamsCamSelectors)
}

// clickJoin prefers the explicit "Join now" affordance and falls back
// to a bare "Join" button when the host's tenant only renders that.
func (t *Teams) clickJoin(ctx context.Context, page browser.PageSurface) bool {
	if clickContainingText(ctx, page, `button`, "join now", "") {
		return true
	}
	return clickContainingText(ctx, page, `button`, "join", "")
}

var _ Flow = (*Teams)(nil)
