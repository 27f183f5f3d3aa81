package masking

import "regexp"

// CompiledPattern holds a pre-compiled regex pattern with its replacement.
type CompiledPattern struct {
	Name        string
	Regex       *regexp.Regexp
	Replacement string
	Description string
}

// builtinPatterns returns the fixed set of redaction patterns applied to
// log lines and error fields: meeting URLs (the URL itself is effectively
// a join credential) and local artifact filesystem paths (snapshot dumps,
// audio chunks, session summaries).
func builtinPatterns() []*CompiledPattern {
	return []*CompiledPattern{
		{
			Name:        "google_meet_url",
			Regex:       regexp.MustCompile(`https?://meet\.google\.com/[a-zA-Z0-9?=&_-]+`),
			Replacement: "[redacted-meeting-url]",
			Description: "Google Meet join links grant meeting access to anyone holding them",
		},
		{
			Name:        "teams_meeting_url",
			Regex:       regexp.MustCompile(`https?://teams\.microsoft\.com/[^\s"']+`),
			Replacement: "[redacted-meeting-url]",
			Description: "Teams meetup-join links grant meeting access to anyone holding them",
		},
		{
			Name:        "artifact_filesystem_path",
			Regex:       regexp.MustCompile(`(?:/[\w.-]+){2,}\.(?:wav|json|txt|html)`),
			Replacement: "[redacted-artifact-path]",
			Description: "Snapshot/chunk/summary paths can leak host filesystem layout",
		},
	}
}
