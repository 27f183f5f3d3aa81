package meetingflow

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/meetingbot/pkg/browser"
)

// fakeElement is an opaque handle carrying the text/attributes a test
// wants the fake page to report for it.
type fakeElement struct {
	id   string
	text string
	attr map[string]string
}

// fakePage is a minimal in-memory browser.PageSurface double. Each test
// configures `bySelector` to describe what each CSS selector resolves
// to and scripts `onClick` handlers to simulate the page
// reacting to a click (e.g. a join button revealing in-meeting UI).
type fakePage struct {
	url           string
	bySelector    map[string][]*fakeElement
	body          string
	clicked       []string
	onClick       map[string]func(p *fakePage)
	navigateErr   error
	navigateCalls int
}

func newFakePage(url string) *fakePage {
	return &fakePage{url: url, bySelector: map[string][]*fakeElement{}, onClick: map[string]func(p *fakePage){}}
}

func (p *fakePage) Navigate(ctx context.Context, url string) error {
	p.navigateCalls++
	if p.navigateErr != nil {
		return p.navigateErr
	}
	p.url = url
	return nil
}

func (p *fakePage) URL() string { return p.url }

func (p *fakePage) QueryOne(ctx context.Context, selector string) (browser.Element, bool, error) {
	els, ok := p.bySelector[selector]
	if !ok || len(els) == 0 {
		if selector == "body" {
			return &fakeElement{id: "body", text: p.body}, true, nil
		}
		return nil, false, nil
	}
	return els[0], true, nil
}

func (p *fakePage) QueryAll(ctx context.Context, selector string) ([]browser.Element, error) {
	els, ok := p.bySelector[selector]
	if !ok {
		return nil, nil
	}
	out := make([]browser.Element, len(els))
	for i, e := range els {
		out[i] = e
	}
	return out, nil
}

func (p *fakePage) Click(ctx context.Context, el browser.Element) error {
	fe, ok := el.(*fakeElement)
	if !ok {
		return errors.New("not a fakeElement")
	}
	p.clicked = append(p.clicked, fe.id)
	if fn, ok := p.onClick[fe.id]; ok {
		fn(p)
	}
	return nil
}

func (p *fakePage) InnerText(ctx context.Context, el browser.Element) (string, error) {
	fe, ok := el.(*fakeElement)
	if !ok {
		return "", errors.New("not a fakeElement")
	}
	if fe.id == "body" {
		return p.body, nil
	}
	return fe.text, nil
}

func (p *fakePage) GetAttribute(ctx context.Context, el browser.Element, name string) (string, bool, error) {
	fe, ok := el.(*fakeElement)
	if !ok {
		return "", false, nil
	}
	v, ok := fe.attr[name]
	return v, ok, nil
}

func (p *fakePage) EvaluateScript(ctx context.Context, script string) (any, error) { return nil, nil }

func (p *fakePage) Snapshot(ctx context.Context) (string, error) { return p.body, nil }

func (p *fakePage) Close() error { return nil }

var _ browser.PageSurface = (*fakePage)(nil)

type fakeSnapshotter struct{ saved []string }

func (f *fakeSnapshotter) SaveSnapshot(ctx context.Context, sessionID, content string) (string, error) {
	f.saved = append(f.saved, content)
	return "snap/" + sessionID + ".html", nil
}

func TestClickFirstMatchClicksFirstResolvingSelector(t *testing.T) {
	page := newFakePage("https://example.com")
	page.bySelector["#missing"] = nil
	page.bySelector["#present"] = []*fakeElement{{id: "present"}}

	ok := clickFirstMatch(context.Background(), page, []string{"#missing", "#present"})
	assert.True(t, ok)
	assert.Equal(t, []string{"present"}, page.clicked)
}

func TestClickContainingTextSkipsExcludedMatch(t *testing.T) {
	page := newFakePage("https://example.com")
	page.bySelector["button"] = []*fakeElement{
		{id: "btn-ask", text: "Ask to join"},
		{id: "btn-now", text: "Join now"},
	}

	ok := clickContainingText(context.Background(), page, "button", "join", "ask")
	require.True(t, ok)
	assert.Equal(t, []string{"btn-now"}, page.clicked)
}

func TestWaitForAnyReturnsTrueOnceConditionFlips(t *testing.T) {
	calls := 0
	ok := waitForAny(context.Background(), time.Second, 10*time.Millisecond, func() bool {
		calls++
		return calls >= 3
	})
	assert.True(t, ok)
}

func TestWaitForAnyTimesOutWhenConditionNeverHolds(t *testing.T) {
	ok := waitForAny(context.Background(), 30*time.Millisecond, 10*time.Millisecond, func() bool { return false })
	assert.False(t, ok)
}

func TestGoogleMeetJoinSucceedsWhenJoinNowLeadsToInMeetingUI(t *testing.T) {
	page := newFakePage("https://meet.google.com/abc-defg-hij")
	page.body = "ready to join?"
	page.bySelector["div[role=\"button\"], button"] = []*fakeElement{{id: "join-now", text: "Join now"}}
	page.onClick["join-now"] = func(p *fakePage) { p.body = "Leave call" }

	g := NewGoogleMeet(nil)
	g.DialogTimeout = 5 * time.Millisecond
	g.ConfirmTimeout = time.Second

	err := g.Join(context.Background(), page, "sess-1", page.url)
	assert.NoError(t, err)
	assert.Contains(t, page.clicked, "join-now")
}

func TestGoogleMeetJoinReturnsNotAuthenticatedOnSignInGate(t *testing.T) {
	page := newFakePage("https://accounts.google.com/signin")
	snap := &fakeSnapshotter{}

	g := NewGoogleMeet(snap)
	err := g.Join(context.Background(), page, "sess-1", page.url)

	var jf *JoinFailedError
	require.ErrorAs(t, err, &jf)
	assert.Equal(t, ReasonNotAuthenticated, jf.Reason)
	assert.NotEmpty(t, jf.SnapshotPath)
}

func TestGoogleMeetJoinReturnsMeetingInaccessibleOnBlockedPage(t *testing.T) {
	page := newFakePage("https://meet.google.com/xyz")
	page.body = "Check your meeting code and try again"

	g := NewGoogleMeet(nil)
	err := g.Join(context.Background(), page, "sess-1", page.url)

	var jf *JoinFailedError
	require.ErrorAs(t, err, &jf)
	assert.Equal(t, ReasonMeetingInaccessible, jf.Reason)
}

func TestGoogleMeetJoinReturnsNoJoinButtonWhenNothingClickable(t *testing.T) {
	page := newFakePage("https://meet.google.com/xyz")
	page.body = "some unrelated page content"

	g := NewGoogleMeet(nil)
	g.DialogTimeout = 5 * time.Millisecond
	g.ConfirmTimeout = 20 * time.Millisecond

	err := g.Join(context.Background(), page, "sess-1", page.url)

	var jf *JoinFailedError
	require.ErrorAs(t, err, &jf)
	assert.Equal(t, ReasonNoJoinButton, jf.Reason)
}

func TestGoogleMeetJoinReturnsRedirectedWhenAdmissionNeverHappensOffHost(t *testing.T) {
	page := newFakePage("https://meet.google.com/xyz")
	page.body = "ready to join?"
	page.bySelector["div[role=\"button\"], button"] = []*fakeElement{{id: "join-now", text: "Join now"}}
	page.onClick["join-now"] = func(p *fakePage) { p.url = "https://accounts.google.com/ServiceLogin" }

	g := NewGoogleMeet(nil)
	g.DialogTimeout = 5 * time.Millisecond
	g.ConfirmTimeout = 20 * time.Millisecond

	err := g.Join(context.Background(), page, "sess-1", page.url)

	var jf *JoinFailedError
	require.ErrorAs(t, err, &jf)
	assert.Equal(t, ReasonRedirected, jf.Reason)
}

func TestGoogleMeetJoinAcceptsWaitingRoomAdmission(t *testing.T) {
	page := newFakePage("https://meet.google.com/xyz")
	page.body = "ready to join?"
	page.bySelector["div[role=\"button\"], button"] = []*fakeElement{{id: "ask", text: "Ask to join"}}
	page.onClick["ask"] = func(p *fakePage) { p.body = "Someone will let you in soon" }

	g := NewGoogleMeet(nil)
	g.DialogTimeout = 5 * time.Millisecond
	g.ConfirmTimeout = time.Second

	err := g.Join(context.Background(), page, "sess-1", page.url)
	assert.NoError(t, err)
}

func TestTeamsJoinClearsContinueOnBrowserBeforeJoining(t *testing.T) {
	page := newFakePage("https://teams.microsoft.com/l/meetup-join/abc")
	page.body = "Continue on this browser"
	page.bySelector["a, button"] = []*fakeElement{{id: "continue", text: "Continue on this browser"}}
	page.onClick["continue"] = func(p *fakePage) {
		p.body = "ready to join"
		p.bySelector["button"] = []*fakeElement{{id: "join-now", text: "Join now"}}
	}
	page.onClick["join-now"] = func(p *fakePage) { p.body = "Leave" }

	tm := NewTeams(nil)
	tm.ConfirmTimeout = time.Second

	err := tm.Join(context.Background(), page, "sess-1", page.url)
	assert.NoError(t, err)
	assert.Contains(t, page.clicked, "continue")
	assert.Contains(t, page.clicked, "join-now")
}

func TestTeamsJoinReturnsMeetingInaccessibleWhenMeetingMissing(t *testing.T) {
	page := newFakePage("https://teams.microsoft.com/l/meetup-join/abc")
	page.body = "We couldn't find this meeting"

	tm := NewTeams(nil)
	err := tm.Join(context.Background(), page, "sess-1", page.url)

	var jf *JoinFailedError
	require.ErrorAs(t, err, &jf)
	assert.Equal(t, ReasonMeetingInaccessible, jf.Reason)
}

func TestJoinFailedErrorMessageIncludesReason(t *testing.T) {
	err := &JoinFailedError{Reason: ReasonNoJoinButton}
	assert.True(t, strings.Contains(err.Error(), string(ReasonNoJoinButton)))
}
