// Package browser implements the Browser Context Pool (C2): one
// long-lived persistent browser context per profile, and a PageSurface
// abstraction over the page so the rest of the system never imports a
// driver package directly.
package browser

import "context"

// Element is an opaque handle to a DOM node returned by a PageSurface
// query. Its identity is driver-specific; callers only pass it back into
// the same PageSurface that produced it.
type Element interface{}

// PageSurface abstracts the subset of browser-page operations the
// Participant Extractor, Join Flows, and Audio Chunker need, so none of
// them import the driver package directly.
type PageSurface interface {
	// Navigate loads url and waits for the page to settle.
	Navigate(ctx context.Context, url string) error

	// URL returns the page's current URL.
	URL() string

	// QueryOne returns the first element matching selector, if any.
	QueryOne(ctx context.Context, selector string) (Element, bool, error)

	// QueryAll returns every element matching selector.
	QueryAll(ctx context.Context, selector string) ([]Element, error)

	// Click clicks el.
	Click(ctx context.Context, el Element) error

	// InnerText returns el's rendered text content.
	InnerText(ctx context.Context, el Element) (string, error)

	// GetAttribute returns the named attribute's value, if present.
	GetAttribute(ctx context.Context, el Element, name string) (string, bool, error)

	// EvaluateScript runs a JavaScript expression in the page and
	// returns its JSON-decoded result.
	EvaluateScript(ctx context.Context, script string) (any, error)

	// Snapshot dumps a text representation of the current page, used
	// when a Join Flow step fails and must save a diagnostic artifact.
	Snapshot(ctx context.Context) (string, error)

	// Close releases the page. The underlying browser context (and
	// therefore the profile) is left open for reuse.
	Close() error
}
