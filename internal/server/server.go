// Package server exposes the dashboard over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/mohammad-safakhou/ideahub/config"
	"github.com/mohammad-safakhou/ideahub/internal/dashboard"
	"github.com/mohammad-safakhou/ideahub/internal/hub"
	"github.com/mohammad-safakhou/ideahub/internal/ideastore"
	"github.com/sirupsen/logrus"
)

// HeaderOwner carries the caller's owner key. Authentication happens in front
// of this service; an absent header maps to the anonymous owner.
const HeaderOwner = "X-Owner-Key"

// Dashboard is the tile service. dashboard.Service implements it.
type Dashboard interface {
	Tiles(ctx context.Context, req dashboard.Request, types []hub.TileType) ([]dashboard.TileResult, error)
	Plan(in hub.InputDescriptor) ([]string, []hub.FetchPlanItem, error)
	Invalidate(ctx context.Context, req dashboard.Request) error
}

// Ideas is the current-idea store. ideastore.Store implements it.
type Ideas interface {
	Set(ctx context.Context, owner string, in hub.InputDescriptor) (ideastore.State, error)
	Current(owner string) (ideastore.State, bool)
	Pin(ctx context.Context, owner string) (ideastore.State, error)
	Unpin(ctx context.Context, owner string) (ideastore.State, error)
}

type Server struct {
	e     *echo.Echo
	cfg   config.ServerConfig
	dash  Dashboard
	ideas Ideas
	log   *logrus.Entry
}

// New builds the router. metrics may be nil.
func New(cfg config.ServerConfig, dash Dashboard, ideas Ideas, metrics http.Handler, log *logrus.Entry) *Server {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	s := &Server{e: echo.New(), cfg: cfg.Normalize(), dash: dash, ideas: ideas, log: log.WithField("component", "http")}
	e := s.e
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.HTTPErrorHandler = s.handleError
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderContentType, HeaderOwner},
	}))

	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	if metrics != nil {
		e.GET("/metrics", echo.WrapHandler(metrics))
	}

	api := e.Group("/api")
	api.POST("/tiles", s.tiles)
	api.POST("/tiles/:type", s.tile)
	api.DELETE("/tiles", s.invalidate)
	api.POST("/plan", s.plan)
	api.GET("/idea", s.getIdea)
	api.PUT("/idea", s.putIdea)
	return s
}

// Handler returns the router for tests and embedding.
func (s *Server) Handler() http.Handler { return s.e }

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.WithField("address", s.cfg.Address).Info("listening")
		errCh <- s.e.Start(s.cfg.Address)
	}()
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// handleError renders every error as {"error": msg} and logs it.
func (s *Server) handleError(err error, c echo.Context) {
	code, msg := statusFor(err)
	req := c.Request()
	entry := s.log.WithError(err).WithFields(logrus.Fields{
		"status": code,
		"method": req.Method,
		"path":   req.URL.Path,
		"remote": c.RealIP(),
	})
	if code >= http.StatusInternalServerError {
		entry.Error("request failed")
	} else {
		entry.Debug("request rejected")
	}
	if !c.Response().Committed {
		_ = c.JSON(code, map[string]string{"error": msg})
	}
}

func statusFor(err error) (int, string) {
	var he *echo.HTTPError
	switch {
	case errors.As(err, &he):
		return he.Code, fmt.Sprint(he.Message)
	case errors.Is(err, hub.ErrEmptyIdea), errors.Is(err, dashboard.ErrUnknownTile):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, ideastore.ErrNoIdea):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "tile computation timed out"
	default:
		return http.StatusInternalServerError, err.Error()
	}
}
