// Package api exposes the admission HTTP surface over gin:
// POST /join-meeting, GET /sessions, GET /sessions/:id, GET /healthz,
// and the internal POST /sessions/:id/cancel admin action.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/codeready-toolchain/meetingbot/pkg/models"
	"github.com/codeready-toolchain/meetingbot/pkg/scheduler"
	"github.com/codeready-toolchain/meetingbot/pkg/version"
)

// Server is the admission HTTP API server.
type Server struct {
	engine     *gin.Engine
	httpServer *http.Server
	sched      *scheduler.Scheduler
}

// NewServer constructs a Server wired against sched and registers every
// route. sched.Start must be called separately by the caller.
func NewServer(sched *scheduler.Scheduler) *Server {
	engine := gin.New()
	engine.Use(gin.Recovery(), requestLogger())

	s := &Server{engine: engine, sched: sched}
	s.setupRoutes()
	return s
}

// Engine exposes the underlying gin.Engine, mainly for tests that want
// to drive requests via httptest without a real listener.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) setupRoutes() {
	s.engine.GET("/healthz", s.healthzHandler)
	s.engine.POST("/join-meeting", s.joinMeetingHandler)
	s.engine.GET("/sessions", s.listSessionsHandler)
	s.engine.GET("/sessions/:id", s.getSessionHandler)
	s.engine.POST("/sessions/:id/cancel", s.cancelSessionHandler)
}

// Start listens and serves on addr. Blocks until the server stops or
// errors; returns http.ErrServerClosed after a graceful Shutdown.
func (s *Server) Start(addr string) error {
	s.httpServer = &http.Server{Addr: addr, Handler: s.engine}
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) healthzHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "version": version.Full()})
}

func (s *Server) joinMeetingHandler(c *gin.Context) {
	var req models.JoinMeetingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: err.Error(), Code: models.CodeInvalidMeetingURL})
		return
	}

	sess, err := s.sched.Enqueue(req.MeetingID, req.Platform, req.MeetingURL)
	if err != nil {
		if errors.Is(err, scheduler.ErrInvalidMeetingURL) {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: err.Error(), Code: models.CodeInvalidMeetingURL})
			return
		}
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: err.Error(), Code: models.CodeInternalError})
		return
	}

	c.JSON(http.StatusAccepted, models.JoinMeetingResponse{SessionID: sess.ID(), Status: string(sess.Status())})
}

func (s *Server) listSessionsHandler(c *gin.Context) {
	snapshots := s.sched.ListSessions()
	entries := make([]models.SessionListEntry, 0, len(snapshots))
	for _, snap := range snapshots {
		entries = append(entries, snap.ToListEntry())
	}
	c.JSON(http.StatusOK, entries)
}

func (s *Server) getSessionHandler(c *gin.Context) {
	snap, ok := s.sched.GetSession(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "session not found", Code: models.CodeInternalError})
		return
	}
	c.JSON(http.StatusOK, snap.ToListEntry())
}

func (s *Server) cancelSessionHandler(c *gin.Context) {
	if err := s.sched.Cancel(c.Param("id")); err != nil {
		if errors.Is(err, scheduler.ErrSessionNotFound) {
			c.JSON(http.StatusNotFound, models.ErrorResponse{Error: err.Error(), Code: models.CodeInternalError})
			return
		}
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: err.Error(), Code: models.CodeInternalError})
		return
	}
	c.Status(http.StatusNoContent)
}

// requestLogger logs each request's method, path, status, and latency
// at slog's default logger.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logRequest(c, time.Since(start))
	}
}
