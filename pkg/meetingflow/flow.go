// Package meetingflow implements the Platform Join Flow (C7): one
// variant per platform, both conforming to the same contract.
package meetingflow

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/codeready-toolchain/meetingbot/pkg/browser"
)

// FailureReason enumerates the ways a join attempt can fail to reach
// an admitted state.
type FailureReason string

const (
	ReasonNavigationFailed  FailureReason = "NavigationFailed"
	ReasonNotAuthenticated  FailureReason = "NotAuthenticated"
	ReasonMeetingInaccessible FailureReason = "MeetingInaccessible"
	ReasonNoJoinButton      FailureReason = "NoJoinButton"
	ReasonRedirected        FailureReason = "Redirected"
)

// JoinFailedError is raised when a join flow cannot reach an admitted
// state. SnapshotPath, when non-empty, points at a saved diagnostic dump
// of the page captured at failure time.
type JoinFailedError struct {
	Reason       FailureReason
	SnapshotPath string
	Err          error
}

func (e *JoinFailedError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("join failed: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("join failed: %s", e.Reason)
}

func (e *JoinFailedError) Unwrap() error { return e.Err }

// Snapshotter saves a diagnostic dump of the page and returns its
// artifact-store path.
type Snapshotter interface {
	SaveSnapshot(ctx context.Context, sessionID string, content string) (path string, err error)
}

// Flow is the contract both platform variants conform to: Join returns
// when the page is fully in the meeting or waiting in a host-admission
// lobby; otherwise it returns a *JoinFailedError.
type Flow interface {
	Join(ctx context.Context, page browser.PageSurface, sessionID, url string) error
}

// clickFirstMatch tries each selector in order, clicking the first one
// that resolves to an element.
func clickFirstMatch(ctx context.Context, page browser.PageSurface, selectors []string) bool {
	for _, sel := range selectors {
		el, ok, err := page.QueryOne(ctx, sel)
		if err != nil || !ok {
			continue
		}
		if err := page.Click(ctx, el); err == nil {
			return true
		}
	}
	return false
}

// clickContainingText scans elements matching containerSelector for one
// whose text contains needle (case-insensitive), clicking the first
// match. Used as the last-resort strategy for dialog buttons and join
// affordances.
func clickContainingText(ctx context.Context, page browser.PageSurface, containerSelector, needle string, exclude string) bool {
	els, err := page.QueryAll(ctx, containerSelector)
	if err != nil {
		return false
	}
	needle = strings.ToLower(needle)
	exclude = strings.ToLower(exclude)
	for _, el := range els {
		text, err := page.InnerText(ctx, el)
		if err != nil {
			continue
		}
		lower := strings.ToLower(text)
		if !strings.Contains(lower, needle) {
			continue
		}
		if exclude != "" && strings.Contains(lower, exclude) {
			continue
		}
		if err := page.Click(ctx, el); err == nil {
			return true
		}
	}
	return false
}

// waitForAny polls check every interval until it returns true or budget
// elapses, used for the bounded post-click validation window and
// pre-join permission dialogs.
func waitForAny(ctx context.Context, budget, interval time.Duration, check func() bool) bool {
	deadline := time.Now().Add(budget)
	for {
		if check() {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(interval):
		}
	}
}

func containsAny(haystack string, needles []string) bool {
	lower := strings.ToLower(haystack)
	for _, n := range needles {
		if strings.Contains(lower, n) {
			return true
		}
	}
	return false
}

func snapshotOrEmpty(ctx context.Context, page browser.PageSurface, snap Snapshotter, sessionID string) string {
	if snap == nil {
		return ""
	}
	content, err := page.Snapshot(ctx)
	if err != nil {
		return ""
	}
	path, err := snap.SaveSnapshot(ctx, sessionID, content)
	if err != nil {
		return ""
	}
	return path
}
