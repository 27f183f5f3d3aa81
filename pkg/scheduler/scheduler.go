package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/codeready-toolchain/meetingbot/pkg/audio"
	"github.com/codeready-toolchain/meetingbot/pkg/config"
	"github.com/codeready-toolchain/meetingbot/pkg/models"
	"github.com/codeready-toolchain/meetingbot/pkg/session"
)

// Scheduler is the Session Scheduler: it validates and admits
// join-meeting requests, holds them in a FIFO queue, and dispatches
// them to a Session Runner as concurrency permits free up. At most
// MaxConcurrentSessions sessions are ever running at once; a queued
// session stays in the created state and does not hold a permit.
type Scheduler struct {
	cfg    *config.SchedulerConfig
	runner Runner
	store  *session.Store
	sink   audio.Sink
	sem    *semaphore.Weighted

	mu     sync.Mutex
	cond   *sync.Cond
	queue  []*models.Session
	closed bool

	// dispatchCtx/dispatchCancel bound only the dispatch loop's wait for
	// a concurrency permit; cancelling it on shutdown stops admitting
	// new sessions without touching already-running sessions' contexts.
	dispatchCtx    context.Context
	dispatchCancel context.CancelFunc

	wg sync.WaitGroup
}

// New constructs a Scheduler. sink may be nil (bot_joined goes
// unpublished); store must be pre-constructed so the admission API and
// the Scheduler share the same registry.
func New(cfg *config.SchedulerConfig, runner Runner, store *session.Store, sink audio.Sink) *Scheduler {
	s := &Scheduler{
		cfg:    cfg,
		runner: runner,
		store:  store,
		sink:   sink,
		sem:    semaphore.NewWeighted(int64(cfg.MaxConcurrentSessions)),
	}
	s.cond = sync.NewCond(&s.mu)
	return s
}

// Start launches the dispatch loop. It returns immediately; the loop
// and every session it spawns run until ctx is cancelled or Stop is
// called.
func (s *Scheduler) Start(ctx context.Context) {
	s.dispatchCtx, s.dispatchCancel = context.WithCancel(ctx)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.dispatchLoop(ctx)
	}()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		s.closed = true
		s.cond.Broadcast()
		s.mu.Unlock()
		s.dispatchCancel()
	}()
}

// Enqueue validates a join request, creates its Session in the created
// state, registers it in the Store, enqueues it for dispatch, and
// publishes bot_joined. It never blocks on a concurrency permit.
func (s *Scheduler) Enqueue(meetingID string, platform config.Platform, meetingURL string) (*models.Session, error) {
	if err := validateMeetingURL(platform, meetingURL); err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrSchedulerShutdown
	}
	if s.cfg.QueueCapacity > 0 && len(s.queue) >= s.cfg.QueueCapacity {
		s.mu.Unlock()
		return nil, ErrQueueFull
	}

	sess := models.NewSession(uuid.NewString(), meetingID, platform, meetingURL)
	s.queue = append(s.queue, sess)
	s.cond.Broadcast()
	s.mu.Unlock()

	s.store.Put(sess)
	s.publishBotJoined(sess)

	return sess, nil
}

// ListSessions returns a stable, ID-ordered snapshot of every known
// session, for the admission API's GET /sessions.
func (s *Scheduler) ListSessions() []models.Snapshot {
	entries := s.store.List()
	out := make([]models.Snapshot, 0, len(entries))
	for _, sess := range entries {
		out = append(out, sess.Snapshot())
	}
	return out
}

// GetSession returns one session's snapshot by id.
func (s *Scheduler) GetSession(id string) (models.Snapshot, bool) {
	sess, ok := s.store.Get(id)
	if !ok {
		return models.Snapshot{}, false
	}
	return sess.Snapshot(), true
}

// Cancel force-stops a running (or still-queued) session by invoking
// its stored cancel function. Returns ErrSessionNotFound for an unknown
// id; cancelling an already-terminal session is a harmless no-op.
func (s *Scheduler) Cancel(id string) error {
	sess, ok := s.store.Get(id)
	if !ok {
		return ErrSessionNotFound
	}
	sess.Cancel()
	return nil
}

// Health reports current capacity and queue occupancy.
func (s *Scheduler) Health() PoolHealth {
	s.mu.Lock()
	depth := len(s.queue)
	s.mu.Unlock()

	return PoolHealth{
		ActiveSessions: s.store.CountActive(),
		MaxConcurrent:  s.cfg.MaxConcurrentSessions,
		QueueDepth:     depth,
		QueueCapacity:  s.cfg.QueueCapacity,
	}
}

// Stop performs a graceful shutdown: sessions still queued (never
// dispatched) are failed immediately, then running sessions are given
// ShutdownGracePeriod to end naturally before their contexts are
// force-cancelled.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.closed = true
	s.cond.Broadcast()
	s.mu.Unlock()
	s.dispatchCancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return
	case <-time.After(s.cfg.ShutdownGracePeriod):
	}

	for _, sess := range s.store.List() {
		if !sess.Status().Terminal() {
			sess.Cancel()
		}
	}
	<-done
}

// dispatchLoop is the Scheduler's single serializing goroutine: it
// takes the next queued session, blocks until a concurrency permit is
// free, then spawns the session's Runner and moves on immediately
// without waiting for it to finish.
func (s *Scheduler) dispatchLoop(ctx context.Context) {
	for {
		sess := s.dequeue()
		if sess == nil {
			return
		}
		if err := s.sem.Acquire(s.dispatchCtx, 1); err != nil {
			// Shutting down: this session never got a permit to run.
			sess.SetError(ErrSchedulerShutdown)
			continue
		}

		s.wg.Add(1)
		go s.runSession(ctx, sess)
	}
}

func (s *Scheduler) dequeue() *models.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	for len(s.queue) == 0 && !s.closed {
		s.cond.Wait()
	}
	if len(s.queue) == 0 {
		return nil
	}
	sess := s.queue[0]
	s.queue = s.queue[1:]
	return sess
}

func (s *Scheduler) runSession(ctx context.Context, sess *models.Session) {
	defer s.wg.Done()
	defer s.sem.Release(1)

	sessCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	sess.SetCancel(cancel)

	if err := s.runner.Run(sessCtx, sess); err != nil {
		slog.Error("session runner exited with error", "session_id", sess.ID(), "error", err)
	}
}

func (s *Scheduler) publishBotJoined(sess *models.Session) {
	if s.sink == nil {
		return
	}

	now := time.Now()
	evt := models.Event{
		Type:      models.EventBotJoined,
		Subject:   sess.MeetingID(),
		Timestamp: now,
		Payload: models.BotJoinedPayload{
			MeetingID: sess.MeetingID(),
			Platform:  string(sess.Platform()),
			SessionID: sess.ID(),
			Timestamp: now,
		},
	}
	if err := s.sink.Publish(context.Background(), evt); err != nil {
		slog.Warn("failed to publish bot_joined event", "session_id", sess.ID(), "error", err)
	}
}
