package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/meetingbot/pkg/config"
	"github.com/codeready-toolchain/meetingbot/pkg/models"
	"github.com/codeready-toolchain/meetingbot/pkg/session"
)

// fakeRunner records every session handed to it and blocks until told
// to let it finish, so tests can observe in-flight concurrency.
type fakeRunner struct {
	mu       sync.Mutex
	started  []string
	release  chan struct{}
	runErr   error
	blocking bool
}

func newFakeRunner(blocking bool) *fakeRunner {
	return &fakeRunner{release: make(chan struct{}), blocking: blocking}
}

func (f *fakeRunner) Run(ctx context.Context, sess *models.Session) error {
	f.mu.Lock()
	f.started = append(f.started, sess.ID())
	f.mu.Unlock()

	sess.SetStatus(models.StatusInMeeting)

	if f.blocking {
		select {
		case <-f.release:
		case <-ctx.Done():
			sess.SetError(ctx.Err())
			return ctx.Err()
		}
	}

	sess.SetStatus(models.StatusEnded)
	return f.runErr
}

func (f *fakeRunner) startedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.started)
}

type fakeSink struct {
	mu     sync.Mutex
	events []models.Event
}

func (f *fakeSink) Publish(ctx context.Context, event models.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return nil
}

func (f *fakeSink) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.events)
}

func testScheduler(runner Runner, maxConcurrent, queueCapacity int) (*Scheduler, *session.Store, *fakeSink) {
	store := session.NewStore()
	sink := &fakeSink{}
	cfg := &config.SchedulerConfig{
		MaxConcurrentSessions: maxConcurrent,
		QueueCapacity:         queueCapacity,
		ShutdownGracePeriod:   50 * time.Millisecond,
	}
	return New(cfg, runner, store, sink), store, sink
}

func TestEnqueueRejectsInvalidURL(t *testing.T) {
	sched, _, _ := testScheduler(newFakeRunner(false), 2, 0)

	_, err := sched.Enqueue("m1", config.PlatformGoogleMeet, "https://example.com/not-a-meeting")
	assert.ErrorIs(t, err, ErrInvalidMeetingURL)
}

func TestEnqueueAcceptsValidURLAndPublishesBotJoined(t *testing.T) {
	sched, store, sink := testScheduler(newFakeRunner(false), 2, 0)

	sess, err := sched.Enqueue("m1", config.PlatformGoogleMeet, "https://meet.google.com/abc-defg-hij")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCreated, sess.Status())

	_, ok := store.Get(sess.ID())
	assert.True(t, ok)
	assert.Equal(t, 1, sink.count())
}

func TestEnqueueRejectsWhenQueueFull(t *testing.T) {
	runner := newFakeRunner(true)
	sched, _, _ := testScheduler(runner, 1, 2)

	_, err := sched.Enqueue("m1", config.PlatformGoogleMeet, "https://meet.google.com/aaa-aaaa-aaa")
	require.NoError(t, err)
	_, err = sched.Enqueue("m2", config.PlatformGoogleMeet, "https://meet.google.com/bbb-bbbb-bbb")
	require.NoError(t, err)

	_, err = sched.Enqueue("m3", config.PlatformGoogleMeet, "https://meet.google.com/ccc-cccc-ccc")
	assert.ErrorIs(t, err, ErrQueueFull)
}

func TestDispatchRespectsMaxConcurrentSessions(t *testing.T) {
	runner := newFakeRunner(true)
	sched, _, _ := testScheduler(runner, 1, 0)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sched.Start(ctx)

	_, err := sched.Enqueue("m1", config.PlatformGoogleMeet, "https://meet.google.com/aaa-aaaa-aaa")
	require.NoError(t, err)
	_, err = sched.Enqueue("m2", config.PlatformGoogleMeet, "https://meet.google.com/bbb-bbbb-bbb")
	require.NoError(t, err)

	require.Eventually(t, func() bool { return runner.startedCount() == 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 1, runner.startedCount(), "second session must wait for the permit")

	runner.release <- struct{}{}
	require.Eventually(t, func() bool { return runner.startedCount() == 2 }, time.Second, time.Millisecond)
	close(runner.release)
}

func TestGetSessionAndListSessions(t *testing.T) {
	sched, _, _ := testScheduler(newFakeRunner(false), 2, 0)

	sess, err := sched.Enqueue("m1", config.PlatformTeams, "https://teams.microsoft.com/l/meetup-join/abc")
	require.NoError(t, err)

	snap, ok := sched.GetSession(sess.ID())
	require.True(t, ok)
	assert.Equal(t, "m1", snap.MeetingID)

	list := sched.ListSessions()
	require.Len(t, list, 1)

	_, ok = sched.GetSession("missing")
	assert.False(t, ok)
}

func TestCancelStopsARunningSession(t *testing.T) {
	runner := newFakeRunner(true)
	defer close(runner.release)
	sched, _, _ := testScheduler(runner, 2, 0)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sched.Start(ctx)

	sess, err := sched.Enqueue("m1", config.PlatformGoogleMeet, "https://meet.google.com/aaa-aaaa-aaa")
	require.NoError(t, err)

	require.Eventually(t, func() bool { return runner.startedCount() == 1 }, time.Second, time.Millisecond)

	require.NoError(t, sched.Cancel(sess.ID()))

	require.Eventually(t, func() bool { return sess.Status() == models.StatusFailed }, time.Second, time.Millisecond)
}

func TestCancelUnknownSessionReturnsNotFound(t *testing.T) {
	sched, _, _ := testScheduler(newFakeRunner(false), 1, 0)
	assert.ErrorIs(t, sched.Cancel("missing"), ErrSessionNotFound)
}

func TestStopFailsQueuedSessionsAndWaitsForRunning(t *testing.T) {
	runner := newFakeRunner(true)
	sched, _, _ := testScheduler(runner, 1, 0)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sched.Start(ctx)

	running, err := sched.Enqueue("m1", config.PlatformGoogleMeet, "https://meet.google.com/aaa-aaaa-aaa")
	require.NoError(t, err)
	queued, err := sched.Enqueue("m2", config.PlatformGoogleMeet, "https://meet.google.com/bbb-bbbb-bbb")
	require.NoError(t, err)

	require.Eventually(t, func() bool { return runner.startedCount() == 1 }, time.Second, time.Millisecond)

	done := make(chan struct{})
	go func() {
		sched.Stop()
		close(done)
	}()

	require.Eventually(t, func() bool { return queued.Err() != nil }, time.Second, time.Millisecond)
	assert.ErrorIs(t, queued.Err(), ErrSchedulerShutdown)

	select {
	case <-done:
		t.Fatal("Stop returned before the grace period forced the running session to end")
	case <-time.After(10 * time.Millisecond):
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop did not return after its grace period elapsed")
	}

	assert.Equal(t, models.StatusFailed, running.Status())
}
