// Package scheduler admits meeting-join requests, bounds how many
// sessions run concurrently, and owns the Session registry the
// admission API and the Summary Builder read from.
package scheduler

import (
	"context"
	"errors"

	"github.com/codeready-toolchain/meetingbot/pkg/models"
)

// Sentinel errors for admission.
var (
	// ErrInvalidMeetingURL is returned when a meeting URL does not match
	// its platform's expected host.
	ErrInvalidMeetingURL = errors.New("invalid meeting url for platform")

	// ErrQueueFull is returned when the FIFO admission queue is at its
	// configured capacity.
	ErrQueueFull = errors.New("admission queue is full")

	// ErrSchedulerShutdown is returned by Enqueue after Stop has been
	// called, and recorded on sessions still queued when shutdown began.
	ErrSchedulerShutdown = errors.New("scheduler is shutting down")

	// ErrSessionNotFound is returned by Cancel for an unknown session id.
	ErrSessionNotFound = errors.New("session not found")
)

// Runner is the subset of session.Runner the Scheduler drives. Declared
// locally so this package never imports the concrete session package
// for anything but Store and models.Session.
type Runner interface {
	Run(ctx context.Context, sess *models.Session) error
}

// PoolHealth summarizes the Scheduler's current capacity and queue
// state for a health/status endpoint.
type PoolHealth struct {
	ActiveSessions int `json:"active_sessions"`
	MaxConcurrent  int `json:"max_concurrent"`
	QueueDepth     int `json:"queue_depth"`
	QueueCapacity  int `json:"queue_capacity"`
}
