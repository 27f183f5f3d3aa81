package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// networkIdleWindow is how long the page must be free of layout/network
// activity before Navigate considers it settled (network-idle-after-DOM).
const networkIdleWindow = 500 * time.Millisecond

// rodSurface adapts a *rod.Page to PageSurface.
type rodSurface struct {
	page *rod.Page
}

// newRodSurface wraps page, applying the stealth init script that
// suppresses common automation fingerprints, before any navigation
// happens.
func newRodSurface(page *rod.Page) (*rodSurface, error) {
	if _, err := page.EvalOnNewDocument(stealthScript); err != nil {
		return nil, fmt.Errorf("browser: install stealth script: %w", err)
	}
	return &rodSurface{page: page}, nil
}

// stealthScript hides the most commonly fingerprinted automation tells,
// mirroring playwright_manager.py's add_init_script.
const stealthScript = `
Object.defineProperty(navigator, 'webdriver', { get: () => undefined });
window.chrome = window.chrome || { runtime: {} };
try { delete navigator.__proto__.webdriver; } catch (e) {}
`

func (s *rodSurface) bound(ctx context.Context) *rod.Page {
	return s.page.Context(ctx)
}

func (s *rodSurface) Navigate(ctx context.Context, url string) error {
	page := s.bound(ctx)
	if err := page.Navigate(url); err != nil {
		return fmt.Errorf("browser: navigate %s: %w", url, err)
	}
	if err := page.WaitStable(networkIdleWindow); err != nil {
		return fmt.Errorf("browser: wait stable after navigate: %w", err)
	}
	return nil
}

func (s *rodSurface) URL() string {
	info, err := s.page.Info()
	if err != nil {
		return ""
	}
	return info.URL
}

func (s *rodSurface) QueryOne(ctx context.Context, selector string) (Element, bool, error) {
	ok, el, err := s.bound(ctx).Has(selector)
	if err != nil {
		return nil, false, fmt.Errorf("browser: query %q: %w", selector, err)
	}
	if !ok {
		return nil, false, nil
	}
	return el, true, nil
}

func (s *rodSurface) QueryAll(ctx context.Context, selector string) ([]Element, error) {
	els, err := s.bound(ctx).Elements(selector)
	if err != nil {
		return nil, fmt.Errorf("browser: query all %q: %w", selector, err)
	}
	out := make([]Element, len(els))
	for i, e := range els {
		out[i] = e
	}
	return out, nil
}

func (s *rodSurface) Click(ctx context.Context, el Element) error {
	rel, err := asRodElement(el)
	if err != nil {
		return err
	}
	_ = ctx
	if err := rel.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("browser: click: %w", err)
	}
	return nil
}

func (s *rodSurface) InnerText(ctx context.Context, el Element) (string, error) {
	rel, err := asRodElement(el)
	if err != nil {
		return "", err
	}
	_ = ctx
	text, err := rel.Text()
	if err != nil {
		return "", fmt.Errorf("browser: inner text: %w", err)
	}
	return text, nil
}

func (s *rodSurface) GetAttribute(ctx context.Context, el Element, name string) (string, bool, error) {
	rel, err := asRodElement(el)
	if err != nil {
		return "", false, err
	}
	_ = ctx
	val, err := rel.Attribute(name)
	if err != nil {
		return "", false, fmt.Errorf("browser: attribute %q: %w", name, err)
	}
	if val == nil {
		return "", false, nil
	}
	return *val, true, nil
}

func (s *rodSurface) EvaluateScript(ctx context.Context, script string) (any, error) {
	res, err := s.bound(ctx).Eval(script)
	if err != nil {
		return nil, fmt.Errorf("browser: evaluate script: %w", err)
	}
	return res.Value.Value(), nil
}

func (s *rodSurface) Snapshot(ctx context.Context) (string, error) {
	html, err := s.bound(ctx).HTML()
	if err != nil {
		return "", fmt.Errorf("browser: snapshot: %w", err)
	}
	return html, nil
}

func (s *rodSurface) Close() error {
	return s.page.Close()
}

func asRodElement(el Element) (*rod.Element, error) {
	rel, ok := el.(*rod.Element)
	if !ok {
		return nil, fmt.Errorf("browser: element handle from a different surface")
	}
	return rel, nil
}
