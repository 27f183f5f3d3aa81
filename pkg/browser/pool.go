package browser

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/codeready-toolchain/meetingbot/pkg/config"
	"github.com/codeready-toolchain/meetingbot/pkg/models"
)

// Pool keeps one long-lived, persistent browser context per profile,
// created on first use and reused across sessions that allocate the
// same profile (they never overlap, because the Profile Registry never
// hands out an in-use profile).
type Pool struct {
	mu       sync.Mutex
	browsers map[string]*rod.Browser
	headless bool
	navTimeout time.Duration
}

// NewPool constructs an empty Pool. Browser processes are launched
// lazily, on the first PageForSession call for a given profile.
func NewPool(cfg *config.BrowserConfig) *Pool {
	return &Pool{
		browsers:   make(map[string]*rod.Browser),
		headless:   cfg.Headless,
		navTimeout: cfg.NavigationTimeout,
	}
}

// PageForSession opens a fresh page for sessionID inside the given
// profile's persistent context and returns it with a closer that only
// closes the page, never the underlying context.
func (p *Pool) PageForSession(ctx context.Context, sessionID string, profile models.Profile) (PageSurface, func(), error) {
	browser, err := p.contextFor(profile)
	if err != nil {
		return nil, nil, err
	}

	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, nil, fmt.Errorf("browser: open page for session %s: %w", sessionID, err)
	}
	if p.navTimeout > 0 {
		page = page.Timeout(p.navTimeout)
	}

	surface, err := newRodSurface(page)
	if err != nil {
		page.Close()
		return nil, nil, err
	}

	slog.Info("Opened page for session", "session_id", sessionID, "profile", profile.Name)

	closer := func() {
		if err := surface.Close(); err != nil {
			slog.Warn("Error closing page", "session_id", sessionID, "error", err)
		}
	}
	return surface, closer, nil
}

// contextFor returns the persistent browser context for profile,
// launching it on first use.
func (p *Pool) contextFor(profile models.Profile) (*rod.Browser, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if b, ok := p.browsers[profile.Name]; ok {
		return b, nil
	}

	l := launcher.New().
		UserDataDir(profile.FilesystemPath).
		Headless(p.headless).
		Set("disable-blink-features", "AutomationControlled")

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("browser: launch profile %s: %w", profile.Name, err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("browser: connect profile %s: %w", profile.Name, err)
	}

	p.browsers[profile.Name] = browser
	slog.Info("Launched persistent browser context", "profile", profile.Name, "headless", p.headless)
	return browser, nil
}

// Close tears down every persistent browser context. Called on process
// shutdown only — individual sessions never close a shared context.
func (p *Pool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for name, b := range p.browsers {
		if err := b.Close(); err != nil {
			slog.Warn("Error closing browser context", "profile", name, "error", err)
		}
	}
	p.browsers = make(map[string]*rod.Browser)
}
