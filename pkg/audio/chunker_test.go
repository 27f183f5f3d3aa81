package audio

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/meetingbot/pkg/config"
	"github.com/codeready-toolchain/meetingbot/pkg/diarize"
	"github.com/codeready-toolchain/meetingbot/pkg/models"
)

type fakeStore struct {
	chunks []models.AudioChunk
}

func (f *fakeStore) WriteChunk(ctx context.Context, chunk models.AudioChunk, audioBytes []byte) (string, error) {
	f.chunks = append(f.chunks, chunk)
	return "fake/" + chunk.ChunkID + ".wav", nil
}

type fakeSink struct {
	events []models.Event
}

func (f *fakeSink) Publish(ctx context.Context, event models.Event) error {
	f.events = append(f.events, event)
	return nil
}

func newTestSession() *models.Session {
	return models.NewSession("sess-1", "meet-1", config.PlatformGoogleMeet, "https://meet.google.com/abc-defg-hij")
}

func TestProduceChunkWritesAndPublishesOnValidCapture(t *testing.T) {
	store := &fakeStore{}
	sink := &fakeSink{}
	session := newTestSession()

	silence, err := GenerateSilence(2)
	require.NoError(t, err)

	c := &Chunker{
		Interval: time.Second,
		Source:   func(ctx context.Context, d int) ([]byte, bool) { return silence, true },
		Diarizer: diarize.New(&config.DiarizationConfig{}, nil, nil),
		Store:    store,
		Sink:     sink,
		Snapshot: func() []models.ParticipantSnapshot { return nil },
	}

	c.produceChunk(context.Background(), session, time.Now(), time.Now())

	require.Len(t, store.chunks, 1)
	assert.Equal(t, 0, store.chunks[0].ChunkNumber)
	require.Len(t, sink.events, 1)
	assert.Equal(t, models.EventAudioChunkComplete, sink.events[0].Type)
}

func TestProduceChunkDropsInvalidCaptureWithoutConsumingChunkNumber(t *testing.T) {
	store := &fakeStore{}
	sink := &fakeSink{}
	session := newTestSession()

	tooShort, err := GenerateSilence(0)
	require.NoError(t, err)

	c := &Chunker{
		Interval: time.Second,
		Source:   func(ctx context.Context, d int) ([]byte, bool) { return tooShort, true },
		Diarizer: diarize.New(&config.DiarizationConfig{}, nil, nil),
		Store:    store,
		Sink:     sink,
		Snapshot: func() []models.ParticipantSnapshot { return nil },
	}

	c.produceChunk(context.Background(), session, time.Now(), time.Now())

	assert.Empty(t, store.chunks)
	assert.Empty(t, sink.events)
	assert.Equal(t, 0, session.NextChunkNumber(), "dropped chunk must not consume a chunk number")
}

func TestProduceChunkFallsBackToSilenceWhenCaptureUnavailable(t *testing.T) {
	store := &fakeStore{}
	sink := &fakeSink{}
	session := newTestSession()

	c := &Chunker{
		Interval: time.Second,
		Source:   func(ctx context.Context, d int) ([]byte, bool) { return nil, false },
		Diarizer: diarize.New(&config.DiarizationConfig{}, nil, nil),
		Store:    store,
		Sink:     sink,
		Snapshot: func() []models.ParticipantSnapshot { return nil },
	}

	c.produceChunk(context.Background(), session, time.Now(), time.Now())

	require.Len(t, store.chunks, 1)
}
