// Package participant implements the Participant Extractor (C3) and Bot
// Identity Resolver (C4): turning raw roster-panel candidates into
// validated ParticipantSnapshot records and deciding which of them is
// the bot itself.
package participant

import (
	"regexp"
	"strings"
	"unicode"
)

// uiChromeBlacklist holds substrings that mark a candidate as roster-panel
// chrome rather than a participant name, grounded on
// participant_name_filter.py's UI_NOTIFICATION_BLACKLIST.
var uiChromeBlacklist = []string{
	"backgrounds and effects",
	"your microphone is off",
	"your camera is off",
	"you can't unmute",
	"you can't remotely mute",
	"can't remotely mute",
	"can't unmute",
	"remotely mute",
	"'s microphone",
	"'s camera",
	"visual effects",
	"apply visual effects",
	"background blur",
	"blur background",
	"change background",
	"microphone is off",
	"camera is off",
	"microphone is on",
	"camera is on",
	"mic is off",
	"mic is on",
	"turn on microphone",
	"turn off microphone",
	"turn on camera",
	"turn off camera",
	"mute microphone",
	"unmute microphone",
	"present now",
	"stop presenting",
	"share screen",
	"stop sharing",
	"raise hand",
	"lower hand",
	"end call",
	"leave call",
	"leave meeting",
	"end meeting",
	"in the meeting",
	"contributors",
	"add people",
	"search for people",
	"invite",
	"share link",
	"host controls",
	"meeting details",
	"other people",
	"in this call",
	"people in this call",
	"you're the only one",
	"waiting for others",
	"waiting for someone",
	"connecting",
	"reconnecting",
	"joining",
	"loading",
	"settings",
	"options",
	"more options",
	"more actions",
	"send a message",
	"chat",
	"activities",
	"captions",
	"subtitles",
	"recording",
	"breakout rooms",
	"layout",
	"tiled",
	"spotlight",
	"sidebar",
	"allow",
	"deny",
	"grant",
	"permission",
	"access",
	"enable",
	"disable",
	"denied",
	"blocked",
	"turn on",
	"turn off",
	"mute",
	"unmute",
	"join now",
	"ask to join",
	"present",
}

// IsValidParticipantName reports whether name could plausibly be a real
// participant's display name rather than roster-panel chrome.
func IsValidParticipantName(name string) bool {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return false
	}
	lower := strings.ToLower(trimmed)

	if len(lower) < 2 || len(trimmed) > 100 {
		return false
	}

	for _, entry := range uiChromeBlacklist {
		if strings.Contains(lower, entry) {
			return false
		}
	}

	if strings.HasPrefix(lower, "your ") || strings.HasPrefix(lower, "you ") {
		return false
	}
	if strings.Contains(lower, "can't") || strings.Contains(lower, "cannot") {
		return false
	}

	if isMultiSentence(trimmed) {
		return false
	}

	if !strings.ContainsFunc(trimmed, unicode.IsLetter) {
		return false
	}

	return true
}

var placeholderNamePattern = regexp.MustCompile(`^Participant \d+$`)

// IsPlaceholderName reports whether name is one of the anonymous
// "Participant i" records synthesized by the badge-count fallback
// (see placeholders in extract.go) rather than a roster-derived name.
// A placeholder is evidence someone was present, not evidence of who,
// so callers that report on named participants exclude it.
func IsPlaceholderName(name string) bool {
	return placeholderNamePattern.MatchString(strings.TrimSpace(name))
}

// isMultiSentence flags strings that read like a notification rather
// than a name: more than one period with more than four words.
func isMultiSentence(s string) bool {
	if strings.Count(s, ".") > 1 && len(strings.Fields(s)) > 4 {
		return true
	}
	return strings.HasSuffix(s, ".") && len(strings.Fields(s)) > 4
}

// CleanName strips the "(You)"/"(you)" suffix, collapses internal
// whitespace, and trims trailing punctuation, producing the key used in
// a Session's participant history, grounded on
// participant_name_filter.py's clean_participant_name.
// It returns ("", false) if the cleaned result is not a valid name.
func CleanName(raw string) (string, bool) {
	trimmed := strings.TrimSpace(raw)
	trimmed = stripYouSuffix(trimmed)
	trimmed = strings.Join(strings.Fields(trimmed), " ")
	trimmed = strings.TrimRight(trimmed, ".,;: ")

	if !IsValidParticipantName(trimmed) {
		return "", false
	}
	return trimmed, true
}

func stripYouSuffix(name string) string {
	lower := strings.ToLower(name)
	for _, suffix := range []string{" (you)", "(you)"} {
		if strings.HasSuffix(lower, suffix) {
			return strings.TrimSpace(name[:len(name)-len(suffix)])
		}
	}
	return name
}
