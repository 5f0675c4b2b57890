package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/rustyeddy/papertrade/history"
	"github.com/rustyeddy/papertrade/internal/logger"
	"github.com/rustyeddy/papertrade/journal"
	"github.com/rustyeddy/papertrade/session"
)

// Options configures the HTTP server.
type Options struct {
	Addr      string
	JWTSecret string

	WarmupBars      int
	TickInterval    time.Duration
	SaveDelay       time.Duration
	StartingCapital float64 // default when a session omits it

	// Clock defaults to the real clock; tests inject a fake.
	Clock session.Clock
}

// Server wires the journal, the historical data source and the live session
// registry behind a Gin router.
type Server struct {
	opts     Options
	journal  journal.Journal
	source   history.Source
	registry *registry
	router   *gin.Engine
}

func New(opts Options, j journal.Journal, src history.Source) (*Server, error) {
	if j == nil {
		return nil, errors.New("server: journal is required")
	}
	if src == nil {
		return nil, errors.New("server: history source is required")
	}
	if opts.JWTSecret == "" {
		return nil, errors.New("server: jwt secret is required")
	}
	if opts.Addr == "" {
		opts.Addr = ":8080"
	}
	if opts.Clock == nil {
		opts.Clock = session.RealClock{}
	}
	if opts.WarmupBars <= 0 {
		opts.WarmupBars = session.DefaultWarmupBars
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	s := &Server{
		opts:     opts,
		journal:  j,
		source:   src,
		registry: newRegistry(),
		router:   router,
	}
	s.registerRoutes()
	return s, nil
}

// Handler exposes the router, mainly for httptest.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) registerRoutes() {
	s.router.POST("/signup", s.handleSignup)
	s.router.POST("/login", s.handleLogin)

	authed := s.router.Group("/", s.authMiddleware())
	authed.GET("/userdash", s.handleUserDash)

	sess := authed.Group("/sessions")
	sess.POST("", s.handleSessionCreate)
	sess.GET("", s.handleSessionList)
	sess.GET("/:id", s.handleSessionGet)
	sess.PUT("/:id/result", s.handleSessionResult)

	sess.POST("/:id/start", s.handleStart)
	sess.POST("/:id/play", s.handlePlay)
	sess.POST("/:id/pause", s.handlePause)
	sess.POST("/:id/step", s.handleStep)
	sess.POST("/:id/trades", s.handleTrade)
	sess.POST("/:id/end", s.handleEnd)
	sess.GET("/:id/snapshot", s.handleSnapshot)
	sess.GET("/:id/trades", s.handleTrades)
	sess.GET("/:id/bars", s.handleBars)
}

// Run serves until ctx is cancelled, then ends live sessions (flushing their
// pending saves) and shuts the listener down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{Addr: s.opts.Addr, Handler: s.router}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Infof("papertrade listening on %s", s.opts.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		s.registry.endAll()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
