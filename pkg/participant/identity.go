package participant

import "strings"

// defaultIdentifiers are hardcoded fallback identifiers, always present
// alongside whatever the configuration supplies.
var defaultIdentifiers = []string{"meeting bot", "bot"}

// Identifiers is the process-level identifier list used by IsBot:
// configured bot display name, configured bot-account profile name, an
// environment-supplied account name, and the hardcoded defaults.
type Identifiers struct {
	names []string
}

// NewIdentifiers builds the identifier list from configuration-sourced
// names plus the hardcoded defaults.
func NewIdentifiers(configured ...string) *Identifiers {
	ids := &Identifiers{}
	for _, n := range configured {
		ids.add(n)
	}
	for _, n := range defaultIdentifiers {
		ids.add(n)
	}
	return ids
}

func (i *Identifiers) add(name string) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return
	}
	for _, existing := range i.names {
		if existing == name {
			return
		}
	}
	i.names = append(i.names, name)
}

// Learn adds a session-detected bot name to the identifier list.
func (i *Identifiers) Learn(name string) {
	i.add(name)
}

// List returns a copy of the current identifier list.
func (i *Identifiers) List() []string {
	out := make([]string, len(i.names))
	copy(out, i.names)
	return out
}

// Entry is the minimal view of a participant candidate IsBot needs.
type Entry struct {
	CleanedName  string
	OriginalName string
	ExtractorIsBot bool
}

// IsBot decides whether entry is the bot itself: five short-circuiting
// rules, evaluated in order.
func IsBot(entry Entry, ids *Identifiers, sessionDetectedBotName string) bool {
	if entry.ExtractorIsBot {
		return true
	}
	if strings.Contains(strings.ToLower(entry.OriginalName), "(you)") {
		return true
	}
	if sessionDetectedBotName != "" && entry.CleanedName == sessionDetectedBotName {
		return true
	}

	cleaned := strings.ToLower(entry.CleanedName)
	for _, id := range ids.List() {
		if cleaned == id {
			return true
		}
	}
	for _, id := range ids.List() {
		if overlaps(cleaned, id) {
			return true
		}
	}
	return false
}

// overlaps reports whether a and b have a "sufficiently overlapping"
// substring relationship: one contains the other, and the shorter is at
// least half the longer's length.
func overlaps(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	longer, shorter := a, b
	if len(b) > len(a) {
		longer, shorter = b, a
	}
	if !strings.Contains(longer, shorter) {
		return false
	}
	return len(shorter)*2 >= len(longer)
}

// DetectSessionBotName runs the session-local bot-name detection pass:
// given a freshly extracted roster, it returns the cleaned name of the
// first entry with a positive bot signal under rules 1-2 (extractor
// flag or "(you)" suffix), or "" if none qualifies.
func DetectSessionBotName(entries []Entry) string {
	for _, e := range entries {
		if e.ExtractorIsBot || strings.Contains(strings.ToLower(e.OriginalName), "(you)") {
			return e.CleanedName
		}
	}
	return ""
}
