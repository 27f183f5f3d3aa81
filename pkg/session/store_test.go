package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/meetingbot/pkg/config"
	"github.com/codeready-toolchain/meetingbot/pkg/models"
)

func TestStorePutGetList(t *testing.T) {
	store := NewStore()

	a := models.NewSession("b", "meeting-1", config.PlatformGoogleMeet, "https://meet.google.com/aaa")
	b := models.NewSession("a", "meeting-2", config.PlatformTeams, "https://teams.microsoft.com/bbb")
	store.Put(a)
	store.Put(b)

	got, ok := store.Get("b")
	require.True(t, ok)
	assert.Equal(t, "meeting-1", got.MeetingID())

	_, ok = store.Get("missing")
	assert.False(t, ok)

	list := store.List()
	require.Len(t, list, 2)
	assert.Equal(t, "a", list[0].ID())
	assert.Equal(t, "b", list[1].ID())
}

func TestStoreCountActiveExcludesTerminalSessions(t *testing.T) {
	store := NewStore()

	running := models.NewSession("s1", "m1", config.PlatformGoogleMeet, "https://meet.google.com/x")
	running.SetStatus(models.StatusInMeeting)
	ended := models.NewSession("s2", "m2", config.PlatformGoogleMeet, "https://meet.google.com/y")
	ended.SetStatus(models.StatusEnded)

	store.Put(running)
	store.Put(ended)

	assert.Equal(t, 1, store.CountActive())
}

func TestStoreDeleteRemovesSession(t *testing.T) {
	store := NewStore()
	sess := models.NewSession("s1", "m1", config.PlatformGoogleMeet, "https://meet.google.com/x")
	store.Put(sess)

	store.Delete("s1")

	_, ok := store.Get("s1")
	assert.False(t, ok)
}
