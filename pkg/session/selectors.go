package session

import (
	"github.com/codeready-toolchain/meetingbot/pkg/config"
	"github.com/codeready-toolchain/meetingbot/pkg/enddetect"
	"github.com/codeready-toolchain/meetingbot/pkg/participant"
)

// participantSelectorsFor returns the platform-specific CSS hooks the Participant
// Extractor and End Detector need. Grounded on participant_extractor.py's
// gmeet/Teams strategy chains and meeting_end_detector.py's leave-button
// lists.
func participantSelectorsFor(p config.Platform) participant.Selectors {
	switch p {
	case config.PlatformTeams:
		return participant.Selectors{
			RosterToggle: `[aria-label*="Show participants"], [data-tid="roster-button"]`,
			RosterPanel:  `[data-tid="participant-list"]`,
			RosterBadge:  `[data-tid="roster-count"]`,
			RosterItem:   `[data-tid="participant-item"], [role="listitem"]`,
			SelfNameAttr: `[data-tid="participant-name"][data-self="true"]`,
		}
	default: // config.PlatformGoogleMeet
		return participant.Selectors{
			RosterToggle: `[aria-label*="Show everyone"], [aria-label*="People"]`,
			RosterPanel:  `[role="list"][aria-label*="participant" i]`,
			RosterBadge:  `[aria-label*="Show everyone"] [class*="count" i]`,
			RosterItem:   `[role="listitem"]:has([data-self-name]), [data-participant-id]`,
			SelfNameAttr: `[data-self-name]`,
		}
	}
}

// leaveButtonsFor returns the selectors to try when leaving cleanly on a
// detected end, in the order meeting_end_detector.py's
// _leave_gmeet_meeting/_leave_teams_meeting try them.
func leaveButtonsFor(p config.Platform) []string {
	switch p {
	case config.PlatformTeams:
		return []string{`#hangup-button`, `button[aria-label*="Leave" i]`, `button[data-tid="call-hangup"]`}
	default:
		return []string{`div[aria-label*="Leave call" i]`, `button[aria-label*="Leave call" i]`}
	}
}

// endDetectSelectorsFor composes the full enddetect.Selectors set for a
// platform.
func endDetectSelectorsFor(p config.Platform) enddetect.Selectors {
	return enddetect.Selectors{
		Participant: participantSelectorsFor(p),
		LeaveButton: leaveButtonsFor(p),
	}
}

// hostMarkerFor names the substring a session's URL must keep containing
// to still be "on platform"; its absence mid-session is itself treated as
// an explicit end (redirected off-host).
func hostMarkerFor(p config.Platform) string {
	switch p {
	case config.PlatformTeams:
		return "teams."
	default:
		return "meet.google.com"
	}
}

func endMarkersFor(p config.Platform) []string {
	switch p {
	case config.PlatformTeams:
		return []string{"call ended", "you left", "meeting has ended"}
	default:
		return []string{"you left the meeting", "meeting ended", "return to home screen"}
	}
}

func disconnectMarkersFor(p config.Platform) []string {
	switch p {
	case config.PlatformTeams:
		return []string{"trying to reconnect", "you're offline", "connection lost", "reconnecting"}
	default:
		return []string{"trying to reconnect", "you lost your network connection", "connection lost"}
	}
}

func reconnectMarkersFor(p config.Platform) []string {
	return []string{"trying to reconnect", "reconnecting"}
}
