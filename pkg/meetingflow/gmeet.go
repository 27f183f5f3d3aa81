package meetingflow

import (
	"context"
	"strings"
	"time"

	"github.com/codeready-toolchain/meetingbot/pkg/browser"
)

// GoogleMeet drives the Google Meet join sequence: navigate, clear the
// login/permission gates, disable mic and camera, resolve whichever
// join affordance the host has offered, and confirm the result landed
// either fully in the meeting or in the waiting room.
type GoogleMeet struct {
	NavTimeout     time.Duration
	DialogTimeout  time.Duration
	ConfirmTimeout time.Duration
	Snapshot       Snapshotter
}

var (
	gmeetSignInMarkers    = []string{"accounts.google.com", "sign in", "use another account"}
	gmeetBlockedMarkers   = []string{"check your meeting code", "you can't create a meeting yourself", "meeting not found", "this meeting doesn't exist"}
	gmeetJoinSelectors    = []string{`button[jsname="Qx7uuf"]`, `div[role="button"][aria-label*="Join now"]`, `div[role="button"][aria-label*="Ask to join"]`}
	gmeetDialogSelectors  = []string{`[role="dialog"] button`, `[class*="dialog"] button`, `[class*="modal"] button`}
	gmeetMicButtonSel     = `div[aria-label*="Turn off microphone"]`
	gmeetCamButtonSel     = `div[aria-label*="Turn off camera"]`
	gmeetInMeetingMarkers = []string{"leave call", "turn off microphone", "turn off camera", "turn on microphone"}
	gmeetWaitingMarkers   = []string{"asking to be let in", "waiting for the host", "someone will let you in soon"}
	gmeetCaptionsSel      = `div[aria-label*="Turn on captions"]`
)

func NewGoogleMeet(snap Snapshotter) *GoogleMeet {
	return &GoogleMeet{
		NavTimeout:     20 * time.Second,
		DialogTimeout:  4 * time.Second,
		ConfirmTimeout: 15 * time.Second,
		Snapshot:       snap,
	}
}

func (g *GoogleMeet) Join(ctx context.Context, page browser.PageSurface, sessionID, url string) error {
	navCtx, cancel := context.WithTimeout(ctx, g.NavTimeout)
	err := page.Navigate(navCtx, url)
	cancel()
	if err != nil {
		return &JoinFailedError{Reason: ReasonNavigationFailed, Err: err, SnapshotPath: snapshotOrEmpty(ctx, page, g.Snapshot, sessionID)}
	}

	if g.pageSaysSignIn(ctx, page) {
		return &JoinFailedError{Reason: ReasonNotAuthenticated, SnapshotPath: snapshotOrEmpty(ctx, page, g.Snapshot, sessionID)}
	}

	if g.pageSaysBlocked(ctx, page) {
		return &JoinFailedError{Reason: ReasonMeetingInaccessible, SnapshotPath: snapshotOrEmpty(ctx, page, g.Snapshot, sessionID)}
	}

	g.dismissPermissionDialog(ctx, page)
	g.disableMicAndCamera(ctx, page)

	if !g.clickJoin(ctx, page) {
		return &JoinFailedError{Reason: ReasonNoJoinButton, SnapshotPath: snapshotOrEmpty(ctx, page, g.Snapshot, sessionID)}
	}

	admitted := waitForAny(ctx, g.ConfirmTimeout, 500*time.Millisecond, func() bool {
		return g.pageSaysInMeeting(ctx, page) || g.pageSaysWaiting(ctx, page)
	})

	if !admitted {
		if !strings.Contains(page.URL(), "meet.google.com") {
			return &JoinFailedError{Reason: ReasonRedirected, SnapshotPath: snapshotOrEmpty(ctx, page, g.Snapshot, sessionID)}
		}
		return &JoinFailedError{Reason: ReasonNoJoinButton, SnapshotPath: snapshotOrEmpty(ctx, page, g.Snapshot, sessionID)}
	}

	g.enableCaptions(ctx, page)
	return nil
}

func (g *GoogleMeet) bodyText(ctx context.Context, page browser.PageSurface) string {
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

func (g *GoogleMeet) pageSaysSignIn(ctx context.Context, page browser.PageSurface) bool {
	if strings.Contains(page.URL(), "accounts.google.com") {
		return true
	}
	return containsAny(g.bodyText(ctx, page), gmeetSignInMarkers)
}

func (g *GoogleMeet) pageSaysBlocked(ctx context.Context, page browser.PageSurface) bool {
	return containsAny(g.bodyText(ctx, page), gmeetBlockedMarkers)
}

func (g *GoogleMeet) pageSaysInMeeting(ctx context.Context, page browser.PageSurface) bool {
	return containsAny(g.bodyText(ctx, page), gmeetInMeetingMarkers)
}

func (g *GoogleMeet) pageSaysWaiting(ctx context.Context, page browser.PageSurface) bool {
	return containsAny(g.bodyText(ctx, page), gmeetWaitingMarkers)
}

// dismissPermissionDialog handles the pre-join "Microphone allowed" /
// "Camera and microphone allowed" browser permission prompt, trying a
// role-based match before falling back to scanning any visible dialog's
// buttons for a dismissive label.
func (g *GoogleMeet) dismissPermissionDialog(ctx context.Context, page browser.PageSurface) {
	waitForAny(ctx, g.DialogTimeout, 300*time.Millisecond, func() bool {
		if clickContainingText(ctx, page, `[role="dialog"] button, [class*="dialog"] button`, "allow", "") {
			return true
		}
		return false
	})
	clickContainingText(ctx, page, strings.Join(gmeetDialogSelectors, ", "), "ok", "")
}

func (g *GoogleMeet) disableMicAndCamera(ctx context.Context, page browser.PageSurface) {
	clickFirstMatch(ctx, page, []string{gmeetMicButtonSel})
	clickFirstMatch(ctx, page, []string{gmeetCamButtonSel})
}

// clickJoin resolves whichever join affordance the host is currently
// offering, trying "Join now" before falling back to "Ask to join" and
// then any element whose visible text merely contains "join".
func (g *GoogleMeet) clickJoin(ctx context.Context, page browser.PageSurface) bool {
	if clickContainingText(ctx, page, `div[role="button"], button`, "join now", "") {
		return true
	}
	if clickContainingText(ctx, page, `div[role="button"], button`, "ask to join", "") {
		return true
	}
	if clickFirstMatch(ctx, page, gmeetJoinSelectors) {
		return true
	}
	return clickContainingText(ctx, page, `div[role="button"], button`, "join", "leave")
}

func (g *GoogleMeet) enableCaptions(ctx context.Context, page browser.PageSurface) {
	clickFirstMatch(ctx, page, []string{gmeetCaptionsSel})
}

var _ Flow = (*GoogleMeet)(nil)
