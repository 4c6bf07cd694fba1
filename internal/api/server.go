// Package api serves the conformance suite and its run history over HTTP.
package api

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v5"
	"golang.org/x/time/rate"

	"github.com/samcharles93/copyconf/internal/backend"
	"github.com/samcharles93/copyconf/internal/history"
	"github.com/samcharles93/copyconf/internal/logger"
	"github.com/samcharles93/copyconf/pkg/memcpy"
	"github.com/samcharles93/copyconf/pkg/memcpy/memcpytest"
)

// RunStore persists reports. *history.Store implements it.
type RunStore interface {
	Save(ctx context.Context, rep *memcpytest.Report) error
	List(ctx context.Context, q history.Query) ([]history.Summary, error)
	Get(ctx context.Context, id string) (*memcpytest.Report, error)
	Delete(ctx context.Context, id string) error
}

// Opener returns a runtime for a normalized backend name.
type Opener func(name string) (memcpy.Runtime, error)

type Config struct {
	// Backend is used when a run request names none.
	Backend string
	Open    Opener
	Store   RunStore
	// TokenHash is a bcrypt hash; empty disables authentication.
	TokenHash string
	// RunRate and RunBurst throttle POST /v1/runs. Zero RunRate is unlimited.
	RunRate  rate.Limit
	RunBurst int
	// CaseTimeout bounds each case of an API-triggered run.
	CaseTimeout time.Duration
	Logger      logger.Logger
}

type Server struct {
	cfg     Config
	limiter *rate.Limiter
	hub     *hub
	log     logger.Logger
	// runMu serializes runs; cases assume exclusive use of the device.
	runMu sync.Mutex
	clock func() time.Time
}

func NewServer(cfg Config) *Server {
	if cfg.Backend == "" {
		cfg.Backend = backend.Auto
	}
	if cfg.Open == nil {
		cfg.Open = func(name string) (memcpy.Runtime, error) {
			return backend.New(name, backend.Options{})
		}
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Discard()
	}
	s := &Server{
		cfg:   cfg,
		hub:   newHub(cfg.Logger),
		log:   cfg.Logger,
		clock: time.Now,
	}
	if cfg.RunRate > 0 {
		burst := cfg.RunBurst
		if burst < 1 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(cfg.RunRate, burst)
	}
	return s
}

func (s *Server) Register(e *echo.Echo) {
	g := e.Group("/v1", s.authenticate)
	g.GET("/cases", s.handleListCases)
	g.GET("/backends", s.handleBackends)
	g.POST("/runs", s.handleCreateRun, s.throttle)
	g.GET("/runs", s.handleListRuns)
	g.GET("/runs/live", s.handleLive)
	g.GET("/runs/:id", s.handleGetRun)
	g.DELETE("/runs/:id", s.handleDeleteRun)
	g.GET("/runs/:id/export", s.handleExportRun)
}

// Close disconnects live clients.
func (s *Server) Close() {
	s.hub.closeAll()
}

func (s *Server) throttle(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c *echo.Context) error {
		if s.limiter != nil && !s.limiter.Allow() {
			return writeError(c, http.StatusTooManyRequests, "rate_limit_error", "too many runs, retry later")
		}
		return next(c)
	}
}

type CaseInfo struct {
	ID        string `json:"id"`
	Group     string `json:"group"`
	Name      string `json:"name"`
	Doc       string `json:"doc"`
	Hazardous bool   `json:"hazardous,omitempty"`
}

func (s *Server) handleListCases(c *echo.Context) error {
	filter := memcpytest.Filter{Hazardous: true}
	if g := c.QueryParam("group"); g != "" {
		group, err := memcpytest.ParseGroup(g)
		if err != nil {
			return writeBadRequest(c, err.Error())
		}
		filter.Groups = []memcpytest.Group{group}
	}
	cases, err := memcpytest.Select(filter)
	if err != nil {
		return writeBadRequest(c, err.Error())
	}
	out := make([]CaseInfo, len(cases))
	for i, tc := range cases {
		out[i] = CaseInfo{ID: tc.ID(), Group: string(tc.Group), Name: tc.Name, Doc: tc.Doc, Hazardous: tc.Hazardous}
	}
	return c.JSON(http.StatusOK, map[string]any{"object": "list", "data": out})
}

type BackendInfo struct {
	Name      string `json:"name"`
	Available bool   `json:"available"`
}

func (s *Server) handleBackends(c *echo.Context) error {
	names := backend.Names()
	out := make([]BackendInfo, len(names))
	for i, n := range names {
		out[i] = BackendInfo{Name: n, Available: backend.Has(n)}
	}
	return c.JSON(http.StatusOK, map[string]any{"object": "list", "default": s.cfg.Backend, "data": out})
}
