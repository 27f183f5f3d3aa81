// Package models holds the shared data types passed between the scheduler,
// session runner, and the components it drives.
package models

import (
	"sync"
	"time"

	"github.com/codeready-toolchain/meetingbot/pkg/config"
)

// Status is a Session's position in its state machine.
type Status string

// Session states. Initial is StatusCreated; terminal are StatusEnded and
// StatusFailed. A transition to StatusFailed is possible from any state.
const (
	StatusCreated   Status = "created"
	StatusJoining   Status = "joining"
	StatusInMeeting Status = "in_meeting"
	StatusEnded     Status = "ended"
	StatusFailed    Status = "failed"
)

// Terminal reports whether s is a terminal state.
func (s Status) Terminal() bool {
	return s == StatusEnded || s == StatusFailed
}

// Role is a participant's role within a meeting.
type Role string

const (
	RoleHost  Role = "host"
	RoleGuest Role = "guest"
)

// ParticipantRecord is one entry of a Session's participant history,
// keyed by cleaned name.
type ParticipantRecord struct {
	DisplayName        string     `json:"display_name"`
	OriginalName        string     `json:"original_name_as_seen"`
	IsBot               bool       `json:"is_bot"`
	Role                Role       `json:"role"`
	FirstSeen           time.Time  `json:"first_seen"`
	LastSeenPresentAt   time.Time  `json:"last_seen_present_at"`
	LeftAt              *time.Time `json:"left_at,omitempty"`
}

// Session is the running instance of one meeting join. It is owned by the
// Scheduler and mutated only by its Session Runner; every other reader
// gets a value-copy Snapshot so it never observes a half-written state.
type Session struct {
	mu sync.RWMutex

	id             string
	meetingID      string
	platform       config.Platform
	meetingURL     string
	status         Status
	createdAt      time.Time
	joinedAt       *time.Time
	endedAt        *time.Time
	roster         []ParticipantSnapshot
	chunkCount     int
	history        map[string]*ParticipantRecord
	transcript     string
	botSelfName    string
	err            error
	cancel         func()
	profileName    string
}

// NewSession constructs a Session in StatusCreated.
func NewSession(id, meetingID string, platform config.Platform, meetingURL string) *Session {
	return &Session{
		id:         id,
		meetingID:  meetingID,
		platform:   platform,
		meetingURL: meetingURL,
		status:     StatusCreated,
		createdAt:  time.Now(),
		history:    make(map[string]*ParticipantRecord),
	}
}

// ID returns the session's globally unique identifier.
func (s *Session) ID() string { return s.id }

// MeetingID returns the caller-supplied meeting identifier.
func (s *Session) MeetingID() string { return s.meetingID }

// Platform returns the target meeting platform.
func (s *Session) Platform() config.Platform { return s.platform }

// MeetingURL returns the meeting URL this session joins.
func (s *Session) MeetingURL() string { return s.meetingURL }

// SetCancel stores the cancellation function the Scheduler can call to
// force this session's runner to stop.
func (s *Session) SetCancel(cancel func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancel = cancel
}

// Cancel invokes the stored cancellation function, if any.
func (s *Session) Cancel() {
	s.mu.RLock()
	cancel := s.cancel
	s.mu.RUnlock()
	if cancel != nil {
		cancel()
	}
}

// SetStatus transitions the session to a new status.
func (s *Session) SetStatus(status Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = status
	now := time.Now()
	switch status {
	case StatusJoining:
		// no timestamp of its own; joinedAt is set on entering in_meeting
	case StatusInMeeting:
		if s.joinedAt == nil {
			s.joinedAt = &now
		}
	case StatusEnded, StatusFailed:
		if s.endedAt == nil {
			s.endedAt = &now
		}
	}
}

// Status returns the current status.
func (s *Session) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// SetError records the terminal error and marks the session failed.
func (s *Session) SetError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
	s.status = StatusFailed
	now := time.Now()
	if s.endedAt == nil {
		s.endedAt = &now
	}
}

// Err returns the terminal error, if any.
func (s *Session) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

// SetProfile records which profile this session was allocated.
func (s *Session) SetProfile(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profileName = name
}

// ProfileName returns the allocated profile's name, if any.
func (s *Session) ProfileName() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.profileName
}

// SetBotSelfName records the detected bot display name for this session.
func (s *Session) SetBotSelfName(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.botSelfName = name
}

// BotSelfName returns the detected bot display name, if known yet.
func (s *Session) BotSelfName() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.botSelfName
}

// UpdateRoster replaces the last-known roster snapshot and folds each
// entry into the participant history:
// a record's LeftAt is set when a name disappears and cleared on rejoin.
func (s *Session) UpdateRoster(snapshot []ParticipantSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	present := make(map[string]bool, len(snapshot))

	for _, p := range snapshot {
		present[p.Name] = true
		rec, ok := s.history[p.Name]
		if !ok {
			rec = &ParticipantRecord{
				DisplayName:       p.Name,
				OriginalName:      p.OriginalName,
				IsBot:             p.IsBot,
				Role:              p.Role,
				FirstSeen:         now,
				LastSeenPresentAt: now,
			}
			s.history[p.Name] = rec
			continue
		}
		rec.LastSeenPresentAt = now
		rec.LeftAt = nil
	}

	for name, rec := range s.history {
		if !present[name] && rec.LeftAt == nil {
			left := now
			rec.LeftAt = &left
		}
	}

	s.roster = append([]ParticipantSnapshot(nil), snapshot...)
}

// Roster returns the last-known roster snapshot.
func (s *Session) Roster() []ParticipantSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ParticipantSnapshot, len(s.roster))
	copy(out, s.roster)
	return out
}

// AppendTranscript appends a de-duplicated closed-caption line.
func (s *Session) AppendTranscript(line string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.transcript == "" {
		s.transcript = line
		return
	}
	s.transcript += "\n" + line
}

// NextChunkNumber returns the next gap-free, monotone chunk number and
// reserves it. Invalid or silent-only chunks must not call this.
func (s *Session) NextChunkNumber() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.chunkCount
	s.chunkCount++
	return n
}

// Snapshot is a value-copy view of a Session for readers (the admission
// API, the summary builder) that must never observe a half-written
// mutation made by the owning runner.
type Snapshot struct {
	ID          string
	MeetingID   string
	Platform    config.Platform
	MeetingURL  string
	Status      Status
	CreatedAt   time.Time
	JoinedAt    *time.Time
	EndedAt     *time.Time
	Roster      []ParticipantSnapshot
	ChunkCount  int
	History     map[string]ParticipantRecord
	Transcript  string
	BotSelfName string
	Err         error
	ProfileName string
}

// Snapshot takes a consistent, race-free copy of the session's state.
func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history := make(map[string]ParticipantRecord, len(s.history))
	for k, v := range s.history {
		history[k] = *v
	}
	roster := make([]ParticipantSnapshot, len(s.roster))
	copy(roster, s.roster)

	return Snapshot{
		ID:          s.id,
		MeetingID:   s.meetingID,
		Platform:    s.platform,
		MeetingURL:  s.meetingURL,
		Status:      s.status,
		CreatedAt:   s.createdAt,
		JoinedAt:    s.joinedAt,
		EndedAt:     s.endedAt,
		Roster:      roster,
		ChunkCount:  s.chunkCount,
		History:     history,
		Transcript:  s.transcript,
		BotSelfName: s.botSelfName,
		Err:         s.err,
		ProfileName: s.profileName,
	}
}
