package models

import "time"

// EventType enumerates the externally-visible event kinds.
type EventType string

const (
	EventBotJoined          EventType = "bot_joined"
	EventSessionJoined      EventType = "session_joined"
	EventParticipantUpdate  EventType = "participant_update"
	EventAudioChunkComplete EventType = "audio_chunk_complete"
	EventActiveSpeaker      EventType = "active_speaker"
	EventMeetingSummary     EventType = "meeting_summary"
)

// Event is the externally visible unit published to the event sink
//. Subject is always the meeting_id the event concerns.
type Event struct {
	Type      EventType `json:"event_type"`
	Subject   string    `json:"subject"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

// BotJoinedPayload is published on admission.
type BotJoinedPayload struct {
	MeetingID string    `json:"meeting_id"`
	Platform  string    `json:"platform"`
	SessionID string    `json:"session_id"`
	Timestamp time.Time `json:"timestamp"`
}

// SessionJoinedPayload is published once the join flow completes.
type SessionJoinedPayload struct {
	MeetingID string `json:"meeting_id"`
	Platform  string `json:"platform"`
	SessionID string `json:"session_id"`
}

// ParticipantEntry is one roster row carried by ParticipantUpdatePayload.
type ParticipantEntry struct {
	Name         string     `json:"name"`
	OriginalName string     `json:"original_name"`
	IsBot        bool       `json:"is_bot"`
	Role         Role       `json:"role"`
	JoinTime     time.Time  `json:"join_time"`
	LeaveTime    *time.Time `json:"leave_time,omitempty"`
}

// ParticipantUpdatePayload is published on every roster poll that
// observes a change.
type ParticipantUpdatePayload struct {
	MeetingID      string             `json:"meeting_id"`
	SessionID      string             `json:"session_id"`
	Participants   []ParticipantEntry `json:"participants"`
	RealCount      int                `json:"real_count"`
	BotCount       int                `json:"bot_count"`
	TotalCount     int                `json:"total_count"`
	Timestamp      time.Time          `json:"timestamp"`
}

// AudioChunkCompletePayload is published once a valid chunk is written
// durably.
type AudioChunkCompletePayload struct {
	ChunkID               string                `json:"chunk_id"`
	ChunkNumber            int                   `json:"chunk_number"`
	MeetingID              string                `json:"meeting_id"`
	SessionID              string                `json:"session_id"`
	StartTimestamp         time.Time             `json:"start_timestamp"`
	EndTimestamp           time.Time             `json:"end_timestamp"`
	DurationSeconds        float64               `json:"duration_seconds"`
	AudioFilePath          string                `json:"audio_file_path"`
	Filename               string                `json:"filename"`
	Participants           []ParticipantSnapshot `json:"participants"`
	ParticipantCount       int                   `json:"participant_count"`
	RealParticipantCount   int                   `json:"real_participant_count"`
	ActiveSpeaker          *SpeakerInfo          `json:"active_speaker,omitempty"`
	AllSpeakers            []SpeakerInfo         `json:"all_speakers"`
}

// ActiveSpeakerPayload may be emitted standalone or merged into
// AudioChunkCompletePayload.
type ActiveSpeakerPayload struct {
	ChunkID     string        `json:"chunk_id"`
	MeetingID   string        `json:"meeting_id"`
	SessionID   string        `json:"session_id"`
	SpeakerLabel string       `json:"speaker_label"`
	Confidence  float64       `json:"confidence"`
	Timestamp   time.Time     `json:"timestamp"`
	AllSpeakers []SpeakerInfo `json:"all_speakers"`
}
