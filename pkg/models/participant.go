package models

// ParticipantSnapshot is the embedded, per-roster-poll view of one
// participant.
type ParticipantSnapshot struct {
	Name         string `json:"name"`
	OriginalName string `json:"original_name"`
	IsBot        bool   `json:"is_bot"`
	Role         Role   `json:"role"`
	IsSpeaking   bool   `json:"is_speaking"`
}

// SpeakerInfo is the embedded diarization result attached to an
// AudioChunk and to the active_speaker event.
type SpeakerInfo struct {
	Label       string  `json:"label"`
	MappedName  string  `json:"mapped_name,omitempty"`
	Confidence  float64 `json:"confidence"`
	IsBot       bool    `json:"is_bot"`
}
