package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/opencode-ai/copilot/internal/event"
	"github.com/opencode-ai/copilot/internal/logging"
	"github.com/opencode-ai/copilot/internal/permission"
	"github.com/opencode-ai/copilot/internal/prompt"
	"github.com/opencode-ai/copilot/internal/provider"
	"github.com/opencode-ai/copilot/internal/session"
)

// Config holds server configuration.
type Config struct {
	Port         int
	EnableCORS   bool
	UserHeader   string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DefaultConfig returns default server configuration.
func DefaultConfig() *Config {
	return &Config{
		Port:         3010,
		EnableCORS:   true,
		UserHeader:   DefaultUserHeader,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // No write timeout for SSE
	}
}

// Deps are the services the server exposes. Directory and Bus are optional:
// without a Directory the workspace routes are not mounted, without a Bus
// /event is not mounted.
type Deps struct {
	Sessions  *session.Service
	Processor *session.Processor
	Prompts   *prompt.Registry
	Providers *provider.Registry
	Directory *permission.MemoryDirectory
	Bus       *event.Bus
	Auth      Authenticator
}

// Server is the HTTP server.
type Server struct {
	config  *Config
	router  *chi.Mux
	httpSrv *http.Server
	log     zerolog.Logger

	sessions  *session.Service
	processor *session.Processor
	prompts   *prompt.Registry
	providers *provider.Registry
	directory *permission.MemoryDirectory
	bus       *event.Bus
	auth      Authenticator
}

// New creates a new Server instance.
func New(cfg *Config, deps Deps) *Server {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	auth := deps.Auth
	if auth == nil {
		auth = HeaderAuthenticator{Header: cfg.UserHeader}
	}

	s := &Server{
		config:    cfg,
		router:    chi.NewRouter(),
		log:       logging.Component("http"),
		sessions:  deps.Sessions,
		processor: deps.Processor,
		prompts:   deps.Prompts,
		providers: deps.Providers,
		directory: deps.Directory,
		bus:       deps.Bus,
		auth:      auth,
	}

	s.setupMiddleware()
	s.setupRoutes()

	s.httpSrv = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return s
}

// setupMiddleware configures middleware for the server.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.requestLogger)
	s.router.Use(middleware.Recoverer)

	if s.config.EnableCORS {
		s.router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   []string{"*"},
			AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID", s.userHeader()},
			ExposedHeaders:   []string{"X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}
}

// requestLogger writes one access log line per request.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			s.log.Info().
				Str("requestID", middleware.GetReqID(r.Context())).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Dur("duration", time.Since(start)).
				Msg("request")
		}()
		next.ServeHTTP(ww, r)
	})
}

func (s *Server) userHeader() string {
	if s.config.UserHeader != "" {
		return s.config.UserHeader
	}
	return DefaultUserHeader
}

// Start starts the HTTP server. It returns nil after Shutdown, including
// a Shutdown that happened before Start.
func (s *Server) Start() error {
	s.log.Info().Int("port", s.config.Port).Msg("listening")
	if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}

// Router returns the Chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}
