package enddetect

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/meetingbot/pkg/browser"
	"github.com/codeready-toolchain/meetingbot/pkg/participant"
)

type fakeElement struct {
	id   string
	text string
}

type fakePage struct {
	url        string
	body       string
	bySelector map[string][]*fakeElement
	clicked    []string
}

func newFakePage(url string) *fakePage {
	return &fakePage{url: url, bySelector: map[string][]*fakeElement{}}
}

func (p *fakePage) Navigate(ctx context.Context, url string) error { p.url = url; return nil }
func (p *fakePage) URL() string                                    { return p.url }

func (p *fakePage) QueryOne(ctx context.Context, selector string) (browser.Element, bool, error) {
	if selector == "body" {
		return &fakeElement{id: "body", text: p.body}, true, nil
	}
	els, ok := p.bySelector[selector]
	if !ok || len(els) == 0 {
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
	return "", false, nil
}

func (p *fakePage) EvaluateScript(ctx context.Context, script string) (any, error) { return nil, nil }
func (p *fakePage) Snapshot(ctx context.Context) (string, error)                    { return p.body, nil }
func (p *fakePage) Close() error                                                    { return nil }

var _ browser.PageSurface = (*fakePage)(nil)

func newTestDetector() *Detector {
	d := New("sess-1", participant.NewIdentifiers("meeting bot"), func() string { return "" })
	d.HostMarker = "meet.google.com"
	d.EndMarkers = []string{"you left the meeting", "meeting ended"}
	d.DisconnectMarkers = []string{"trying to reconnect", "connection lost"}
	d.ReconnectMarkers = []string{"trying to reconnect"}
	d.PollInterval = 5 * time.Millisecond
	d.ReconnectGrace = 5 * time.Millisecond
	d.ConfirmDelay = 5 * time.Millisecond
	d.Selectors.Participant.RosterItem = "li"
	d.Selectors.LeaveButton = []string{"#leave"}
	return d
}

func TestWaitReturnsExplicitEndOnEndBanner(t *testing.T) {
	page := newFakePage("https://meet.google.com/abc")
	page.body = "You left the meeting"
	page.bySelector["#leave"] = []*fakeElement{{id: "leave"}}

	d := newTestDetector()
	res := d.Wait(context.Background(), page)

	assert.Equal(t, ReasonExplicitEnd, res.Reason)
	assert.Contains(t, page.clicked, "leave")
}

func TestWaitReturnsExplicitEndWhenRedirectedOffHost(t *testing.T) {
	page := newFakePage("https://accounts.google.com/ServiceLogin")

	d := newTestDetector()
	res := d.Wait(context.Background(), page)

	assert.Equal(t, ReasonExplicitEnd, res.Reason)
}

func TestWaitReturnsDisconnectedOnPermanentDisconnectBanner(t *testing.T) {
	page := newFakePage("https://meet.google.com/abc")
	page.body = "Connection lost"

	d := newTestDetector()
	res := d.Wait(context.Background(), page)

	assert.Equal(t, ReasonDisconnected, res.Reason)
}

func TestWaitTreatsTransientReconnectAsRecoveredIfClearsWithinGrace(t *testing.T) {
	page := newFakePage("https://meet.google.com/abc")
	page.body = "Trying to reconnect..."
	page.bySelector["li"] = []*fakeElement{{id: "p1", text: "Alice"}}

	go func() {
		time.Sleep(5 * time.Millisecond)
		page.body = "ready"
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()

	d := newTestDetector()
	d.ReconnectGrace = 20 * time.Millisecond

	res := d.Wait(ctx, page)

	assert.Equal(t, ReasonContextClosed, res.Reason)
}

func TestWaitReturnsEmptyMeetingAfterSustainedEmptyRoster(t *testing.T) {
	page := newFakePage("https://meet.google.com/abc")
	page.body = "ready"
	// No roster items at all: empty roster every poll, and the tier-2
	// confirmation re-check finds the roster still empty.

	d := newTestDetector()
	d.EmptyConfirmPolls = 2

	res := d.Wait(context.Background(), page)
	assert.Equal(t, ReasonEmptyMeeting, res.Reason)
}

func TestWaitCancelsEmptyVerdictWhenConfirmReCheckFindsRealParticipant(t *testing.T) {
	page := newFakePage("https://meet.google.com/abc")
	page.body = "ready"
	// Empty for tier 1's polls, then a real participant shows up exactly
	// during the tier-2 confirmation sleep.

	go func() {
		time.Sleep(15 * time.Millisecond)
		page.bySelector["li"] = []*fakeElement{{id: "p1", text: "Alice"}}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()

	d := newTestDetector()
	d.EmptyConfirmPolls = 2
	d.ConfirmDelay = 30 * time.Millisecond

	res := d.Wait(ctx, page)
	assert.Equal(t, ReasonContextClosed, res.Reason)
}

func TestWaitResetsEmptyCounterWhenARealParticipantAppears(t *testing.T) {
	page := newFakePage("https://meet.google.com/abc")
	page.body = "ready"
	page.bySelector["li"] = []*fakeElement{{id: "p1", text: "Alice"}}

	ctx, cancel := context.WithTimeout(context.Background(), 40*time.Millisecond)
	defer cancel()

	d := newTestDetector()
	d.EmptyConfirmPolls = 2

	res := d.Wait(ctx, page)
	assert.Equal(t, ReasonContextClosed, res.Reason)
}

func TestWaitTreatsLoneBotRowAsEmptyMeeting(t *testing.T) {
	page := newFakePage("https://meet.google.com/abc")
	page.body = "ready"
	page.bySelector["li"] = []*fakeElement{{id: "p1", text: "Meeting Bot (you)"}}

	d := newTestDetector()
	d.EmptyConfirmPolls = 2

	res := d.Wait(context.Background(), page)
	assert.Equal(t, ReasonEmptyMeeting, res.Reason)
}

func TestWaitReturnsContextClosedWhenCancelledBeforeAnyConditionFires(t *testing.T) {
	page := newFakePage("https://meet.google.com/abc")
	page.body = "ready"
	page.bySelector["li"] = []*fakeElement{{id: "p1", text: "Alice"}}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	d := newTestDetector()
	res := d.Wait(ctx, page)
	require.Equal(t, ReasonContextClosed, res.Reason)
}
