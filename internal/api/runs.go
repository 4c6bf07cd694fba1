package api

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/labstack/echo/v5"

	"github.com/samcharles93/copyconf/internal/backend"
	"github.com/samcharles93/copyconf/internal/history"
	"github.com/samcharles93/copyconf/internal/report"
	"github.com/samcharles93/copyconf/pkg/memcpy/memcpytest"
)

// RunRequest is the body of POST /v1/runs.
type RunRequest struct {
	Backend   string   `json:"backend,omitempty"`
	Device    int      `json:"device,omitempty"`
	Groups    []string `json:"groups,omitempty"`
	Cases     []string `json:"cases,omitempty"`
	Elements  int      `json:"elements,omitempty"`
	Hazardous bool     `json:"hazardous,omitempty"`
}

type DeleteRunResp struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Deleted bool   `json:"deleted"`
}

func (req RunRequest) runner() (*memcpytest.Runner, string, error) {
	name := req.Backend
	normalized, err := backend.Normalize(name)
	if err != nil {
		return nil, "", newInvalidRequest(err.Error())
	}
	if req.Device < 0 {
		return nil, "", newInvalidRequest("device must be >= 0")
	}
	if req.Elements < 0 {
		return nil, "", newInvalidRequest("elements must be >= 0")
	}
	filter := memcpytest.Filter{Patterns: req.Cases, Hazardous: req.Hazardous}
	for _, g := range req.Groups {
		group, err := memcpytest.ParseGroup(g)
		if err != nil {
			return nil, "", newInvalidRequest(err.Error())
		}
		filter.Groups = append(filter.Groups, group)
	}
	if _, err := memcpytest.Select(filter); err != nil {
		return nil, "", newInvalidRequest(err.Error())
	}
	cfg := memcpytest.Config{Elements: req.Elements, Device: req.Device}.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, "", newInvalidRequest(err.Error())
	}
	return &memcpytest.Runner{Config: cfg, Filter: filter}, normalized, nil
}

func (s *Server) handleCreateRun(c *echo.Context) error {
	req, err := decodeJSON[RunRequest](c.Request().Body)
	if err != nil {
		return writeBadRequest(c, "invalid run request: "+err.Error())
	}
	if req.Backend == "" {
		req.Backend = s.cfg.Backend
	}
	runner, name, err := req.runner()
	if err != nil {
		return writeBadRequest(c, err.Error())
	}

	s.runMu.Lock()
	defer s.runMu.Unlock()

	rt, err := s.cfg.Open(name)
	if err != nil {
		var fb *backend.FallbackError
		if !errors.As(err, &fb) || rt == nil {
			return writeError(c, http.StatusServiceUnavailable, "backend_unavailable", err.Error())
		}
		s.log.Warn("backend fallback", "error", err)
	}
	defer rt.Close()

	runner.Runtime = rt
	runner.Timeout = s.cfg.CaseTimeout
	runner.Logger = s.log.With("component", "runner")
	runner.ID = uuid.NewString()
	runner.OnResult = func(res memcpytest.Result) {
		s.hub.broadcast(liveEvent{Type: "result", RunID: runner.ID, Result: &res})
	}
	s.hub.broadcast(liveEvent{Type: "start", RunID: runner.ID, Runtime: rt.Name(), Device: runner.Config.Device})

	rep, runErr := runner.Run(c.Request().Context())
	if rep == nil {
		return writeServerError(c, runErr)
	}
	s.hub.broadcast(liveEvent{Type: "summary", RunID: rep.ID, Runtime: rep.Runtime, Device: rep.Device, Totals: &rep.Totals})

	if s.cfg.Store != nil {
		if err := s.cfg.Store.Save(c.Request().Context(), rep); err != nil {
			return writeServerError(c, err)
		}
	}
	if runErr != nil {
		s.log.Warn("run stopped early", "id", rep.ID, "error", runErr)
	}
	return c.JSON(http.StatusCreated, rep)
}

func (s *Server) handleListRuns(c *echo.Context) error {
	if s.cfg.Store == nil {
		return c.JSON(http.StatusOK, map[string]any{"object": "list", "data": []history.Summary{}})
	}
	q := history.Query{Runtime: c.QueryParam("runtime"), FailedOnly: c.QueryParam("failed") == "true"}
	if v := c.QueryParam("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return writeBadRequest(c, fmt.Sprintf("invalid limit %q", v))
		}
		q.Limit = n
	}
	runs, err := s.cfg.Store.List(c.Request().Context(), q)
	if err != nil {
		return writeServerError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"object": "list", "data": runs})
}

func (s *Server) handleGetRun(c *echo.Context) error {
	rep, err := s.lookup(c)
	if err != nil {
		return err
	}
	if rep == nil {
		return nil
	}
	return c.JSON(http.StatusOK, rep)
}

func (s *Server) handleDeleteRun(c *echo.Context) error {
	if s.cfg.Store == nil {
		return writeNotFound(c, "run history is disabled")
	}
	id := c.Param("id")
	if err := s.cfg.Store.Delete(c.Request().Context(), id); err != nil {
		return s.storeError(c, err)
	}
	return c.JSON(http.StatusOK, DeleteRunResp{ID: id, Object: "run", Deleted: true})
}

func (s *Server) handleExportRun(c *echo.Context) error {
	format, err := report.ParseFormat(c.QueryParam("format"))
	if err != nil {
		return writeBadRequest(c, err.Error())
	}
	if c.QueryParam("format") == "" {
		format = report.JSON
	}
	rep, err := s.lookup(c)
	if err != nil || rep == nil {
		return err
	}
	var buf bytes.Buffer
	if err := report.Write(&buf, rep, format); err != nil {
		return writeServerError(c, err)
	}
	c.Response().Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", report.Filename(rep, format)))
	return c.Blob(http.StatusOK, format.ContentType(), buf.Bytes())
}

// lookup loads the report named by :id. A nil report with a nil error means
// an error response was already written.
func (s *Server) lookup(c *echo.Context) (*memcpytest.Report, error) {
	if s.cfg.Store == nil {
		return nil, writeNotFound(c, "run history is disabled")
	}
	rep, err := s.cfg.Store.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return nil, s.storeError(c, err)
	}
	return rep, nil
}

func (s *Server) storeError(c *echo.Context, err error) error {
	switch {
	case errors.Is(err, history.ErrNotFound):
		return writeNotFound(c, err.Error())
	case errors.Is(err, history.ErrAmbiguous):
		return writeBadRequest(c, err.Error())
	default:
		return writeServerError(c, err)
	}
}

func decodeJSON[T any](r io.Reader) (T, error) {
	var out T
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&out); err != nil {
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		return out, err
	}
	return out, nil
}
