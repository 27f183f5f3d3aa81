package artifact

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/meetingbot/pkg/config"
	"github.com/codeready-toolchain/meetingbot/pkg/models"
)

func TestNewRemoteMirrorNilWithoutEndpoint(t *testing.T) {
	assert.Nil(t, NewRemoteMirror(&config.ArtifactsConfig{}))
	assert.Nil(t, NewRemoteMirror(nil))
}

func TestNewReturnsStoreWithNilRemoteByDefault(t *testing.T) {
	root := t.TempDir()
	s := New(&config.ArtifactsConfig{LocalRoot: root})
	require.NotNil(t, s.Local)
	assert.Nil(t, s.Remote)
}

func TestNewWiresRemoteMirrorWhenEndpointConfigured(t *testing.T) {
	root := t.TempDir()
	s := New(&config.ArtifactsConfig{
		LocalRoot:             root,
		ArtifactStoreEndpoint: "http://example.invalid",
		RequestTimeout:        time.Second,
	})
	assert.NotNil(t, s.Remote)
}

func TestRemoteMirrorPostsToChunksAndSummariesPaths(t *testing.T) {
	var hitPaths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hitPaths = append(hitPaths, r.URL.Path)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	mirror := NewRemoteMirror(&config.ArtifactsConfig{ArtifactStoreEndpoint: srv.URL, RequestTimeout: time.Second})
	require.NotNil(t, mirror)

	root := t.TempDir()
	s := &Store{Local: NewLocalStore(root), Remote: mirror}

	chunk := models.AudioChunk{ChunkID: "chunk-1", MeetingID: "meeting-1", SessionID: "sess-1", StartTS: time.Now()}
	_, err := s.WriteChunk(context.Background(), chunk, []byte("wav-bytes"))
	require.NoError(t, err)
	require.NoError(t, s.WriteSummary(context.Background(), models.Summary{SessionID: "sess-1", MeetingID: "meeting-1"}))

	require.Len(t, hitPaths, 2)
	assert.Contains(t, hitPaths, "/chunks")
	assert.Contains(t, hitPaths, "/summaries")
}
