package mockapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	gocache "github.com/patrickmn/go-cache"

	"github.com/ghostmonk/storyfeed/internal/config"
	"github.com/ghostmonk/storyfeed/internal/logger"
	"github.com/ghostmonk/storyfeed/internal/telemetry"
)

const shutdownTimeout = 10 * time.Second

// Server hosts the stories endpoint over HTTP.
type Server struct {
	cfg     config.ServerConfig
	log     logger.Logger
	store   *Store
	cache   *gocache.Cache
	rec     *telemetry.Provider
	version string
	engine  *gin.Engine
}

// ServerOption customizes a Server.
type ServerOption func(*Server)

// WithStore supplies a pre-populated store. Without it the server starts
// empty, or with fixtures when the config asks for seeding.
func WithStore(store *Store) ServerOption {
	return func(s *Server) { s.store = store }
}

// WithTelemetry enables request metrics and the /metrics route.
func WithTelemetry(rec *telemetry.Provider) ServerOption {
	return func(s *Server) { s.rec = rec }
}

// WithVersion sets the version reported by /health.
func WithVersion(version string) ServerOption {
	return func(s *Server) { s.version = version }
}

// NewServer builds the endpoint with its routes and middleware wired.
func NewServer(cfg config.ServerConfig, log logger.Logger, opts ...ServerOption) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{cfg: cfg, log: log, version: "dev"}
	for _, opt := range opts {
		opt(s)
	}
	if s.store == nil {
		s.store = NewStore()
		if cfg.Seed {
			s.store.SeedFixtures()
			log.Info("store seeded with fixtures", logger.Int("stories", s.store.Len()))
		}
	}

	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	s.cache = gocache.New(ttl, 2*ttl)

	if cfg.AuthSecret == "" {
		log.Warn("no auth secret configured, any bearer token will be accepted")
	}

	s.engine = s.buildRouter()
	return s
}

// Store exposes the underlying story store, mainly so tests and the serve
// command can inspect or prime it.
func (s *Server) Store() *Store {
	return s.store
}

// Handler returns the HTTP handler, for mounting under httptest.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) buildRouter() *gin.Engine {
	e := gin.New()
	e.Use(requestID())
	e.Use(recovery(s.log))
	e.Use(requestLogger(s.log))
	if s.rec != nil {
		e.Use(metrics(s.rec))
	}

	h := &handler{store: s.store, cache: s.cache, log: s.log, version: s.version}
	auth := &authenticator{secret: s.cfg.AuthSecret, log: s.log}

	e.GET("/health", h.health)
	if s.rec != nil {
		e.GET("/metrics", gin.WrapH(s.rec.Handler()))
	}

	stories := e.Group("/stories")
	stories.GET("", auth.optional(), h.listStories)
	stories.GET("/:id", auth.optional(), h.getStory)
	stories.GET("/slug/:slug", auth.optional(), h.getStoryBySlug)
	stories.POST("", auth.require(), h.createStory)
	stories.PUT("/:id", auth.require(), h.updateStory)
	stories.DELETE("/:id", auth.require(), h.deleteStory)

	return e
}

// Run serves until the context is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Address(),
		Handler:      s.engine,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		IdleTimeout:  s.cfg.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	s.log.Info("stories endpoint listening", logger.String("address", srv.Addr))

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	s.log.Info("shutting down stories endpoint")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}
