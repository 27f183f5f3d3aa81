package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/codeready-toolchain/meetingbot/pkg/config"
	"github.com/codeready-toolchain/meetingbot/pkg/models"
)

func TestScrapeSubtitlesDeduplicatesAcrossSelectors(t *testing.T) {
	page := newFakePage("https://meet.google.com/abc")
	page.bySelector[`[class*="subtitle" i]`] = []*fakeElement{{id: "s1", text: "hello there"}}
	page.bySelector[`[class*="caption" i]`] = []*fakeElement{{id: "c1", text: "hello there"}, {id: "c2", text: "second line"}}

	sel := captionSelectorsFor(config.PlatformGoogleMeet)
	lines := scrapeSubtitles(context.Background(), page, sel)

	assert.Equal(t, []string{"hello there", "second line"}, lines)
}

func TestScrapeSubtitlesSkipsBlankText(t *testing.T) {
	page := newFakePage("https://meet.google.com/abc")
	page.bySelector[`[class*="subtitle" i]`] = []*fakeElement{{id: "s1", text: "   "}}

	sel := captionSelectorsFor(config.PlatformGoogleMeet)
	lines := scrapeSubtitles(context.Background(), page, sel)

	assert.Empty(t, lines)
}

func TestCaptionsLoopAppendsNewLinesOnlyOnce(t *testing.T) {
	page := newFakePage("https://meet.google.com/abc")
	page.bySelector[`[class*="subtitle" i]`] = []*fakeElement{{id: "s1", text: "line one"}}

	sess := models.NewSession("sess-1", "meeting-1", config.PlatformGoogleMeet, "https://meet.google.com/abc")
	sel := captionSelectorsFor(config.PlatformGoogleMeet)
	stop := make(chan struct{})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	captionsLoop(ctx, page, sess, sel, 5*time.Millisecond, stop)

	assert.Equal(t, "line one", sess.Snapshot().Transcript)
}

func TestCaptionsLoopStopsOnStopSignal(t *testing.T) {
	page := newFakePage("https://meet.google.com/abc")
	sess := models.NewSession("sess-2", "meeting-2", config.PlatformGoogleMeet, "https://meet.google.com/abc")
	sel := captionSelectorsFor(config.PlatformTeams)
	stop := make(chan struct{})
	close(stop)

	done := make(chan struct{})
	go func() {
		captionsLoop(context.Background(), page, sess, sel, time.Second, stop)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("captionsLoop did not return promptly on stop signal")
	}
}
