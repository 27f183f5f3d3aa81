package session

import (
	"context"
	"strings"
	"time"

	"github.com/codeready-toolchain/meetingbot/pkg/browser"
	"github.com/codeready-toolchain/meetingbot/pkg/config"
	"github.com/codeready-toolchain/meetingbot/pkg/models"
)

// captionSelectors names the CC-enable button and subtitle-text
// selectors for one platform, grounded on closed_captions.py's
// per-platform strategy lists.
type captionSelectors struct {
	enableButtons  []string
	subtitleNodes  []string
}

func captionSelectorsFor(p config.Platform) captionSelectors {
	switch p {
	case config.PlatformTeams:
		return captionSelectors{
			enableButtons: []string{
				`[aria-label*="Turn on live captions" i]`,
				`[aria-label*="Live captions" i]`,
				`button[aria-label*="captions" i]`,
				`[data-tid*="captions" i]`,
			},
			subtitleNodes: []string{
				`[class*="caption" i]`,
				`[class*="subtitle" i]`,
				`[data-tid*="caption" i]`,
			},
		}
	default:
		return captionSelectors{
			enableButtons: []string{
				`[aria-label*="Turn on captions" i]`,
				`[aria-label*="Captions" i]`,
				`button[data-tooltip*="captions" i]`,
			},
			subtitleNodes: []string{
				`[class*="subtitle" i]`,
				`[class*="caption" i]`,
				`[data-caption-text]`,
				`div[role="log"]`,
			},
		}
	}
}

// enableCaptions clicks the first resolving CC-enable selector, falling
// back to the Ctrl+Shift+C shortcut Google Meet also accepts. Best
// effort: a platform that never shows captions leaves the transcript
// empty rather than failing the session.
func enableCaptions(ctx context.Context, page browser.PageSurface, sel captionSelectors) {
	for _, s := range sel.enableButtons {
		el, ok, err := page.QueryOne(ctx, s)
		if err != nil || !ok {
			continue
		}
		if page.Click(ctx, el) == nil {
			return
		}
	}
	page.EvaluateScript(ctx, `document.dispatchEvent(new KeyboardEvent('keydown', {key:'C', ctrlKey:true, shiftKey:true}))`)
}

// scrapeSubtitles reads every currently-rendered caption/subtitle node
// and returns their de-duplicated, non-empty text, in encounter order.
func scrapeSubtitles(ctx context.Context, page browser.PageSurface, sel captionSelectors) []string {
	seen := make(map[string]bool)
	var out []string

	for _, s := range sel.subtitleNodes {
		els, err := page.QueryAll(ctx, s)
		if err != nil {
			continue
		}
		for _, el := range els {
			text, err := page.InnerText(ctx, el)
			if err != nil {
				continue
			}
			text = strings.TrimSpace(text)
			if text == "" || seen[text] {
				continue
			}
			seen[text] = true
			out = append(out, text)
		}
	}
	return out
}

// captionsLoop polls for new subtitle text every interval, appending
// lines not already recorded in the session's transcript, until stop
// fires or ctx is cancelled. Best-effort: scrape errors never end the
// session, they just leave that tick's transcript unchanged.
func captionsLoop(ctx context.Context, page browser.PageSurface, sess *models.Session, sel captionSelectors, interval time.Duration, stop <-chan struct{}) {
	enableCaptions(ctx, page, sel)

	appended := make(map[string]bool)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		for _, line := range scrapeSubtitles(ctx, page, sel) {
			if appended[line] {
				continue
			}
			appended[line] = true
			sess.AppendTranscript(line)
		}
	}
}
