package http

import (
	"context"
	"net/http"
	"sort"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

// Server exposes tracked runs over HTTP.
type Server struct {
	echo    *echo.Echo
	tracker *Tracker
	logger  *zap.Logger
}

// NewServer wires the routes onto a fresh echo instance.
func NewServer(tracker *Tracker, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())

	s := &Server{echo: e, tracker: tracker, logger: logger.Named("http")}

	e.GET("/healthz", s.handleHealth)
	e.GET("/runs", s.handleRuns)
	e.GET("/runs/:session_id", s.handleRun)

	return s
}

// Start listens on addr and blocks until Shutdown.
func (s *Server) Start(addr string) error {
	s.logger.Info("inspection server listening", zap.String("addr", addr))
	err := s.echo.Start(addr)
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// Handler returns the underlying handler, used by tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleRuns(c echo.Context) error {
	runs := s.tracker.Runs()
	sort.Slice(runs, func(i, j int) bool {
		return runs[i].StartedAt.Before(runs[j].StartedAt)
	})
	return c.JSON(http.StatusOK, runs)
}

func (s *Server) handleRun(c echo.Context) error {
	sessionID := c.Param("session_id")
	run, ok := s.tracker.Run(sessionID)
	if !ok {
		return c.JSON(http.StatusNotFound, map[string]string{
			"error": "run not found: " + sessionID,
		})
	}
	return c.JSON(http.StatusOK, run)
}
