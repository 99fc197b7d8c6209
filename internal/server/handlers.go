package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/mohammad-safakhou/ideahub/internal/dashboard"
	"github.com/mohammad-safakhou/ideahub/internal/hub"
	"github.com/mohammad-safakhou/ideahub/internal/ideastore"
)

// tileRequest is the body of the tile and plan endpoints. A missing idea
// falls back to the owner's current idea.
type tileRequest struct {
	hub.InputDescriptor
	Filters map[string]any `json:"filters,omitempty"`
	Refresh bool           `json:"refresh,omitempty"`
	Tiles   []hub.TileType `json:"tiles,omitempty"`
}

type ideaRequest struct {
	hub.InputDescriptor
	Pinned *bool `json:"pinned,omitempty"`
}

type planResponse struct {
	Keywords []string            `json:"keywords"`
	Plan     []hub.FetchPlanItem `json:"plan"`
}

func owner(c echo.Context) string {
	return strings.TrimSpace(c.Request().Header.Get(HeaderOwner))
}

func (s *Server) bindTileRequest(c echo.Context) (tileRequest, dashboard.Request, error) {
	var body tileRequest
	if c.Request().ContentLength != 0 {
		if err := c.Bind(&body); err != nil {
			return body, dashboard.Request{}, echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
		}
	}
	req := dashboard.Request{Owner: owner(c), Input: body.InputDescriptor, Filters: body.Filters, Refresh: body.Refresh}
	if strings.TrimSpace(req.Input.Idea) == "" {
		cur, ok := s.ideas.Current(req.Owner)
		if !ok {
			return body, req, hub.ErrEmptyIdea
		}
		req.Input = cur.Input
	}
	return body, req, nil
}

func (s *Server) requestContext(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), s.cfg.RequestTimeout)
}

// tile handles POST /api/tiles/:type.
func (s *Server) tile(c echo.Context) error {
	_, req, err := s.bindTileRequest(c)
	if err != nil {
		return err
	}
	ctx, cancel := s.requestContext(c)
	defer cancel()
	out, err := s.dash.Tiles(ctx, req, []hub.TileType{hub.TileType(c.Param("type"))})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out[0])
}

// tiles handles POST /api/tiles; an empty list returns every tile.
func (s *Server) tiles(c echo.Context) error {
	body, req, err := s.bindTileRequest(c)
	if err != nil {
		return err
	}
	ctx, cancel := s.requestContext(c)
	defer cancel()
	out, err := s.dash.Tiles(ctx, req, body.Tiles)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"tiles": out})
}

func (s *Server) invalidate(c echo.Context) error {
	_, req, err := s.bindTileRequest(c)
	if err != nil {
		return err
	}
	if err := s.dash.Invalidate(c.Request().Context(), req); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) plan(c echo.Context) error {
	_, req, err := s.bindTileRequest(c)
	if err != nil {
		return err
	}
	keywords, plan, err := s.dash.Plan(req.Input)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, planResponse{Keywords: keywords, Plan: plan})
}

func (s *Server) getIdea(c echo.Context) error {
	st, ok := s.ideas.Current(owner(c))
	if !ok {
		return ideastore.ErrNoIdea
	}
	return c.JSON(http.StatusOK, st)
}

// putIdea replaces the current idea. A body without an idea only changes the
// pin of the existing one.
func (s *Server) putIdea(c echo.Context) error {
	var body ideaRequest
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	ctx := c.Request().Context()
	who := owner(c)
	var (
		st  ideastore.State
		err error
	)
	if strings.TrimSpace(body.Idea) != "" {
		if st, err = s.ideas.Set(ctx, who, body.InputDescriptor); err != nil {
			return err
		}
	} else if body.Pinned == nil {
		return hub.ErrEmptyIdea
	}
	if body.Pinned != nil {
		if *body.Pinned {
			st, err = s.ideas.Pin(ctx, who)
		} else {
			st, err = s.ideas.Unpin(ctx, who)
		}
		if err != nil {
			return err
		}
	}
	return c.JSON(http.StatusOK, st)
}
