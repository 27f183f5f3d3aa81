// Package masking redacts meeting URLs and local artifact filesystem
// paths from log lines and error fields before they're written out.
package masking

import "log/slog"

// Masker applies a fixed set of regex patterns to redact sensitive
// substrings. Created once at application startup; safe for concurrent
// use since it holds no mutable state after construction.
type Masker struct {
	patterns []*CompiledPattern
}

// New builds a Masker with every built-in pattern compiled eagerly.
func New() *Masker {
	m := &Masker{patterns: builtinPatterns()}
	slog.Info("Masking initialized", "patterns", len(m.patterns))
	return m
}

// Redact applies every pattern to content in turn and returns the result.
// A nil Masker is valid and returns content unchanged, so callers that
// construct a Runner/logger without wiring a Masker still work.
func (m *Masker) Redact(content string) string {
	if m == nil || content == "" {
		return content
	}
	masked := content
	for _, p := range m.patterns {
		masked = p.Regex.ReplaceAllString(masked, p.Replacement)
	}
	return masked
}

// RedactError returns err's message with Redact applied, or "" for a nil
// error. Convenience for the common `slog.Warn("...", "error", err)` call
// site, where logging err directly would leak an unredacted URL or path.
func (m *Masker) RedactError(err error) string {
	if err == nil {
		return ""
	}
	return m.Redact(err.Error())
}
