// Package gin wires the common HTTP server stack: recovery, request IDs,
// access logging, CORS, health routes and graceful shutdown.
package gin

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jonesrussell/site-builder/infrastructure/jwt"
	"github.com/jonesrussell/site-builder/infrastructure/logger"
)

// ServerBuilder assembles a Server.
type ServerBuilder struct {
	cfg    Config
	log    logger.Logger
	routes func(*gin.Engine)
	checks map[string]HealthChecker
}

func NewServerBuilder(serviceName string, port int) *ServerBuilder {
	return &ServerBuilder{
		cfg:    Config{ServiceName: serviceName, Port: port, CORS: CORSConfig{Enabled: true}},
		checks: make(map[string]HealthChecker),
	}
}

func (b *ServerBuilder) WithLogger(log logger.Logger) *ServerBuilder {
	b.log = log
	return b
}

func (b *ServerBuilder) WithDebug(debug bool) *ServerBuilder {
	b.cfg.Debug = debug
	return b
}

func (b *ServerBuilder) WithVersion(version string) *ServerBuilder {
	b.cfg.ServiceVersion = version
	return b
}

func (b *ServerBuilder) WithCORSOrigins(origins []string) *ServerBuilder {
	b.cfg.CORS.AllowedOrigins = origins
	return b
}

func (b *ServerBuilder) WithTimeouts(read, write, idle time.Duration) *ServerBuilder {
	b.cfg.ReadTimeout, b.cfg.WriteTimeout, b.cfg.IdleTimeout = read, write, idle
	return b
}

// WithDatabaseHealthCheck registers a check that marks the service unhealthy on failure.
func (b *ServerBuilder) WithDatabaseHealthCheck(ping func() error) *ServerBuilder {
	b.checks["database"] = pingCheck(ping, HealthStatusUnhealthy)
	return b
}

// WithRedisHealthCheck registers a check that only degrades the service on failure.
func (b *ServerBuilder) WithRedisHealthCheck(ping func() error) *ServerBuilder {
	b.checks["redis"] = pingCheck(ping, HealthStatusDegraded)
	return b
}

func (b *ServerBuilder) WithRoutes(routes func(*gin.Engine)) *ServerBuilder {
	b.routes = routes
	return b
}

func (b *ServerBuilder) Build() *Server {
	log := b.log
	if log == nil {
		log = logger.NewNop()
	}
	cfg := b.cfg
	cfg.setDefaults()

	if cfg.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(
		RecoveryMiddleware(log),
		RequestIDLoggerMiddleware(log),
		LoggerMiddleware(log),
		CORSMiddleware(cfg.CORS),
	)
	registerHealthRoutes(router, cfg.ServiceName, cfg.ServiceVersion, b.checks)
	if b.routes != nil {
		b.routes(router)
	}

	return &Server{
		router: router,
		cfg:    cfg,
		log:    log,
		http: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Port),
			Handler:      router,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			IdleTimeout:  cfg.IdleTimeout,
		},
	}
}

// ProtectedGroup returns a group guarded by JWT auth when secret is set.
func ProtectedGroup(router *gin.Engine, path, secret string) *gin.RouterGroup {
	group := router.Group(path)
	if secret != "" {
		group.Use(jwt.Middleware(secret))
	}
	return group
}

// Server is a built HTTP server.
type Server struct {
	router *gin.Engine
	http   *http.Server
	cfg    Config
	log    logger.Logger
}

func (s *Server) Router() *gin.Engine {
	return s.router
}

// Run serves until SIGINT/SIGTERM and then shuts down gracefully.
func (s *Server) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return s.RunContext(ctx)
}

// RunContext serves until ctx is done.
func (s *Server) RunContext(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("Starting HTTP server",
			logger.String("address", s.http.Addr),
			logger.String("version", s.cfg.ServiceVersion),
		)
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("serve http: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.log.Info("Shutting down HTTP server", logger.Duration("timeout", s.cfg.ShutdownTimeout))
	//nolint:contextcheck // ctx is already cancelled here
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http: %w", err)
	}
	return nil
}
