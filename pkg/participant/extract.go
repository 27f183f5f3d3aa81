package participant

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/codeready-toolchain/meetingbot/pkg/browser"
	"github.com/codeready-toolchain/meetingbot/pkg/models"
)

// Selectors names the platform-specific CSS hooks the extractor needs.
// pkg/session supplies one set per platform (participantSelectorsFor),
// so this package stays platform-agnostic.
type Selectors struct {
	// RosterToggle opens the roster panel if it is not already visible.
	RosterToggle string
	// RosterPanel is the container the roster list lives inside.
	RosterPanel string
	// RosterBadge holds the numeric participant-count hint.
	RosterBadge string
	// RosterItem matches one row per participant in the open panel.
	RosterItem string
	// SelfNameAttr matches elements carrying an explicit self-name data
	// attribute (secondary strategy).
	SelfNameAttr string
}

// candidate is one name observed by any extraction strategy, prior to
// validation and deduplication.
type candidate struct {
	name         string
	originalName string
	isSelf       bool
}

// Extract implements extract(page) -> [ParticipantSnapshot]:
// a layered fallback taking the union of every strategy's candidates,
// deduplicated by cleaned name, intersected with IsValidParticipantName,
// with the badge-count fallback applied when validation yields nothing.
func Extract(ctx context.Context, page browser.PageSurface, sel Selectors) ([]models.ParticipantSnapshot, error) {
	if err := ensureRosterOpen(ctx, page, sel); err != nil {
		return nil, err
	}

	badgeCount := readBadgeCount(ctx, page, sel)

	union := make(map[string]candidate)
	addCandidates(union, primaryCandidates(ctx, page, sel))
	addCandidates(union, secondaryCandidates(ctx, page, sel))
	addCandidates(union, tertiaryCandidates(ctx, page, sel))

	snapshots := make([]models.ParticipantSnapshot, 0, len(union))
	for _, c := range union {
		name, ok := CleanName(c.name)
		if !ok {
			continue
		}
		snapshots = append(snapshots, models.ParticipantSnapshot{
			Name:         name,
			OriginalName: c.originalName,
			IsBot:        c.isSelf,
			Role:         models.RoleGuest,
		})
	}

	if len(snapshots) == 0 && badgeCount > 0 {
		return placeholders(badgeCount), nil
	}

	return snapshots, nil
}

func ensureRosterOpen(ctx context.Context, page browser.PageSurface, sel Selectors) error {
	if sel.RosterPanel == "" {
		return nil
	}
	_, open, err := page.QueryOne(ctx, sel.RosterPanel)
	if err != nil {
		return fmt.Errorf("participant: check roster panel: %w", err)
	}
	if open {
		return nil
	}
	if sel.RosterToggle == "" {
		return nil
	}
	toggle, ok, err := page.QueryOne(ctx, sel.RosterToggle)
	if err != nil {
		return fmt.Errorf("participant: find roster toggle: %w", err)
	}
	if !ok {
		return nil
	}
	return page.Click(ctx, toggle)
}

// readBadgeCount reads the numeric badge near the roster affordance
//: a lower-bound cross-check, never a source of names.
func readBadgeCount(ctx context.Context, page browser.PageSurface, sel Selectors) int {
	if sel.RosterBadge == "" {
		return 0
	}
	el, ok, err := page.QueryOne(ctx, sel.RosterBadge)
	if err != nil || !ok {
		return 0
	}
	text, err := page.InnerText(ctx, el)
	if err != nil {
		return 0
	}
	return firstInt(text)
}

func firstInt(s string) int {
	digits := strings.Builder{}
	for _, r := range s {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
			continue
		}
		if digits.Len() > 0 {
			break
		}
	}
	n, err := strconv.Atoi(digits.String())
	if err != nil {
		return 0
	}
	return n
}

// primaryCandidates scrapes list-item containers inside the roster
// panel, taking each row's first text line as the name and tagging
// is_self when the row's text carries a (you) suffix or the generic
// "mute microphone" self-control phrasing. Element classes are not
// inspected.
func primaryCandidates(ctx context.Context, page browser.PageSurface, sel Selectors) []candidate {
	if sel.RosterItem == "" {
		return nil
	}
	items, err := page.QueryAll(ctx, sel.RosterItem)
	if err != nil {
		return nil
	}

	out := make([]candidate, 0, len(items))
	for _, item := range items {
		text, err := page.InnerText(ctx, item)
		if err != nil || strings.TrimSpace(text) == "" {
			continue
		}
		name := firstLine(text)
		isSelf := strings.Contains(strings.ToLower(text), "(you)") ||
			strings.Contains(strings.ToLower(text), "mute microphone")
		out = append(out, candidate{name: name, originalName: name, isSelf: isSelf})
	}
	return out
}

// secondaryCandidates enumerates nodes bearing an explicit self-name
// data attribute.
func secondaryCandidates(ctx context.Context, page browser.PageSurface, sel Selectors) []candidate {
	if sel.SelfNameAttr == "" {
		return nil
	}
	items, err := page.QueryAll(ctx, sel.SelfNameAttr)
	if err != nil {
		return nil
	}

	out := make([]candidate, 0, len(items))
	for _, item := range items {
		if val, ok, err := page.GetAttribute(ctx, item, "data-self-name"); err == nil && ok && val != "" {
			out = append(out, candidate{name: val, originalName: val, isSelf: true})
			continue
		}
		if text, err := page.InnerText(ctx, item); err == nil && text != "" {
			out = append(out, candidate{name: firstLine(text), originalName: firstLine(text), isSelf: true})
		}
	}
	return out
}

// tertiaryCandidates walks the roster panel's rendered text and takes
// every non-empty line as a candidate. Row boundaries are not used, so
// lines that are not names are only removed by name validation.
func tertiaryCandidates(ctx context.Context, page browser.PageSurface, sel Selectors) []candidate {
	if sel.RosterPanel == "" {
		return nil
	}
	el, ok, err := page.QueryOne(ctx, sel.RosterPanel)
	if err != nil || !ok {
		return nil
	}
	text, err := page.InnerText(ctx, el)
	if err != nil {
		return nil
	}

	out := make([]candidate, 0)
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		out = append(out, candidate{name: line, originalName: line})
	}
	return out
}

func addCandidates(union map[string]candidate, found []candidate) {
	for _, c := range found {
		name, ok := CleanName(c.name)
		if !ok {
			continue
		}
		existing, present := union[name]
		if !present {
			union[name] = c
			continue
		}
		existing.isSelf = existing.isSelf || c.isSelf
		union[name] = existing
	}
}

func firstLine(text string) string {
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		return text[:i]
	}
	return text
}

// placeholders synthesizes n anonymous "Participant i" records, the
// badge-count fallback used when extraction yields a count but no names.
func placeholders(n int) []models.ParticipantSnapshot {
	out := make([]models.ParticipantSnapshot, n)
	for i := 0; i < n; i++ {
		name := fmt.Sprintf("Participant %d", i+1)
		out[i] = models.ParticipantSnapshot{Name: name, OriginalName: name, Role: models.RoleGuest}
	}
	return out
}
