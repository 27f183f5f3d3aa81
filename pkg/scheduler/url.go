package scheduler

import (
	"regexp"

	"github.com/codeready-toolchain/meetingbot/pkg/config"
)

// urlPatterns maps each platform to the host pattern its meeting URLs
// must match. Grounded on meetingflow's own post-join redirect checks
// (meet.google.com / teams.microsoft.com / teams.live.com).
var urlPatterns = map[config.Platform]*regexp.Regexp{
	config.PlatformGoogleMeet: regexp.MustCompile(`^https://meet\.google\.com/[a-z][a-z0-9-]{6,20}(\?.*)?$`),
	config.PlatformTeams:      regexp.MustCompile(`^https://teams\.(microsoft|live)\.com/`),
}

// validateMeetingURL rejects a meeting URL that doesn't match its
// platform's expected host and path shape.
func validateMeetingURL(platform config.Platform, url string) error {
	pattern, ok := urlPatterns[platform]
	if !ok || !pattern.MatchString(url) {
		return ErrInvalidMeetingURL
	}
	return nil
}
