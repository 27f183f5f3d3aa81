package models

import (
	"errors"
	"testing"

	"github.com/codeready-toolchain/meetingbot/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSessionStartsInCreated(t *testing.T) {
	s := NewSession("sess-1", "meet-1", config.PlatformGoogleMeet, "https://meet.google.com/abc-defg-hij")

	assert.Equal(t, StatusCreated, s.Status())
	assert.False(t, s.Status().Terminal())
	assert.Equal(t, "sess-1", s.ID())
}

func TestSessionSetStatusTracksJoinedAndEndedTimestamps(t *testing.T) {
	s := NewSession("sess-1", "meet-1", config.PlatformTeams, "https://teams.microsoft.com/l/meetup-join/x")

	s.SetStatus(StatusJoining)
	snap := s.Snapshot()
	assert.Nil(t, snap.JoinedAt)

	s.SetStatus(StatusInMeeting)
	snap = s.Snapshot()
	require.NotNil(t, snap.JoinedAt)

	s.SetStatus(StatusEnded)
	snap = s.Snapshot()
	require.NotNil(t, snap.EndedAt)
	assert.True(t, snap.Status.Terminal())
}

func TestSessionSetErrorMarksFailed(t *testing.T) {
	s := NewSession("sess-1", "meet-1", config.PlatformGoogleMeet, "https://meet.google.com/abc-defg-hij")

	s.SetError(errors.New("boom"))

	assert.Equal(t, StatusFailed, s.Status())
	assert.EqualError(t, s.Err(), "boom")
}

func TestSessionUpdateRosterTracksJoinAndLeave(t *testing.T) {
	s := NewSession("sess-1", "meet-1", config.PlatformGoogleMeet, "https://meet.google.com/abc-defg-hij")

	s.UpdateRoster([]ParticipantSnapshot{{Name: "alice", Role: RoleGuest}})
	snap := s.Snapshot()
	require.Contains(t, snap.History, "alice")
	assert.Nil(t, snap.History["alice"].LeftAt)

	s.UpdateRoster(nil)
	snap = s.Snapshot()
	require.NotNil(t, snap.History["alice"].LeftAt)

	s.UpdateRoster([]ParticipantSnapshot{{Name: "alice", Role: RoleGuest}})
	snap = s.Snapshot()
	assert.Nil(t, snap.History["alice"].LeftAt, "rejoin must clear left_at")
}

func TestSessionNextChunkNumberIsGapFreeAndMonotone(t *testing.T) {
	s := NewSession("sess-1", "meet-1", config.PlatformGoogleMeet, "https://meet.google.com/abc-defg-hij")

	for i := 0; i < 5; i++ {
		assert.Equal(t, i, s.NextChunkNumber())
	}
}

func TestSessionCancelInvokesStoredFunc(t *testing.T) {
	s := NewSession("sess-1", "meet-1", config.PlatformGoogleMeet, "https://meet.google.com/abc-defg-hij")

	called := false
	s.SetCancel(func() { called = true })
	s.Cancel()

	assert.True(t, called)
}
