package models

import (
	"time"

	"github.com/codeready-toolchain/meetingbot/pkg/config"
)

// JoinMeetingRequest is the POST /join-meeting request body.
type JoinMeetingRequest struct {
	MeetingID  string          `json:"meeting_id" binding:"required"`
	MeetingURL string          `json:"meeting_url" binding:"required"`
	Platform   config.Platform `json:"platform" binding:"required"`
}

// JoinMeetingResponse is the 202-style acknowledgement.
type JoinMeetingResponse struct {
	SessionID string `json:"session_id"`
	Status    string `json:"status"`
}

// ErrorResponse is the uniform error envelope for admission failures.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// Error codes surfaced by the admission API.
const (
	CodeInvalidMeetingURL = "INVALID_MEETING_URL"
	CodeInternalError     = "INTERNAL_ERROR"
)

// SessionListEntry is one row of GET /sessions.
type SessionListEntry struct {
	MeetingID string          `json:"meeting_id"`
	Platform  config.Platform `json:"platform"`
	SessionID string          `json:"session_id"`
	Status    Status          `json:"status"`
	CreatedAt time.Time       `json:"created_at"`
	StartedAt *time.Time      `json:"started_at,omitempty"`
	EndedAt   *time.Time      `json:"ended_at,omitempty"`
}

// ToListEntry projects a Snapshot down to the admission API's list shape.
func (s Snapshot) ToListEntry() SessionListEntry {
	return SessionListEntry{
		MeetingID: s.MeetingID,
		Platform:  s.Platform,
		SessionID: s.ID,
		Status:    s.Status,
		CreatedAt: s.CreatedAt,
		StartedAt: s.JoinedAt,
		EndedAt:   s.EndedAt,
	}
}
