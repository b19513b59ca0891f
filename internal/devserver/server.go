// Package devserver is a self-contained fixture implementation of the
// hostel meal API. It exists so the client can be exercised end to end
// without the production backend: same wire format, same status codes,
// same envelope semantics, backed by a local SQLite or Postgres
// database.
package devserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/simp-lee/logger"
	"gorm.io/gorm"

	"github.com/simp-lee/dinesync/internal/config"
	"github.com/simp-lee/dinesync/internal/middleware"
)

// Server bundles the fixture server's dependencies and HTTP engine.
type Server struct {
	engine *gin.Engine
	db     *gorm.DB
	store  *Store
	auth   *Auth
	logger *logger.Logger
	cfg    *config.Config
}

type httpServer interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

var newHTTPServer = func(addr string, handler http.Handler) httpServer {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}

var notifyContext = func(parent context.Context, signals ...os.Signal) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, signals...)
}

// New creates and wires a fully configured fixture server from the
// given Config: logging, database, migration, optional seeding,
// middleware, and routes.
func New(cfg *config.Config) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if cfg.DevServer.Port == 0 {
		return nil, errors.New("devserver section is not configured")
	}

	success := false

	log, err := config.SetupLogger(&cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("setup logger: %w", err)
	}
	defer func() {
		if success {
			return
		}
		if err := log.Close(); err != nil {
			slog.Error("logger close error", slog.Any("error", err))
		}
	}()

	db, err := config.SetupDatabase(&cfg.DevServer.Database, log.Logger)
	if err != nil {
		return nil, fmt.Errorf("setup database: %w", err)
	}
	defer func() {
		if success {
			return
		}
		if sqlDB, dbErr := db.DB(); dbErr == nil {
			sqlDB.Close()
		}
	}()

	store := NewStore(db)
	if err := store.Migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	if cfg.DevServer.Seed {
		if err := Seed(context.Background(), store, cfg.DevServer.AdminEmails); err != nil {
			return nil, fmt.Errorf("seed: %w", err)
		}
		log.Info("fixture data seeded")
	}

	gin.SetMode(cfg.DevServer.Mode)
	engine := gin.New()
	engine.Use(
		middleware.Recovery(log.Logger),
		middleware.RequestIDWithConfig(middleware.RequestIDConfig{
			TrustUpstream: false,
		}),
		middleware.Logger(log.Logger),
		middleware.CORSWithConfig(resolveCORSConfig(cfg.DevServer.Mode)),
	)

	srv := &Server{
		engine: engine,
		db:     db,
		store:  store,
		auth:   NewAuth(cfg.DevServer.JWTSecret, cfg.DevServer.TokenExpiryDuration()),
		logger: log,
		cfg:    cfg,
	}
	srv.registerRoutes()

	success = true
	return srv, nil
}

// resolveCORSConfig keeps the permissive default in debug/test modes
// and denies cross-origin calls in release mode. The fixture server is
// a local tool; nothing should be calling it cross-origin in release.
func resolveCORSConfig(mode string) middleware.CORSConfig {
	corsConfig := middleware.DefaultCORSConfig()
	if mode == gin.ReleaseMode {
		corsConfig.AllowOrigins = []string{}
	}
	return corsConfig
}

// Handler exposes the HTTP handler, chiefly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run starts the HTTP server and blocks until a shutdown signal is
// received. It performs graceful shutdown with a 5-second timeout and
// closes the database connection.
func (s *Server) Run() error {
	if s == nil || s.engine == nil {
		return errors.New("server is not initialized")
	}

	addr := fmt.Sprintf("%s:%d", s.cfg.DevServer.Host, s.cfg.DevServer.Port)
	srv := newHTTPServer(addr, s.engine)

	ctx, stop := notifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("fixture server started", slog.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		s.logger.Info("shutdown signal received")
	case err := <-errCh:
		runErr = fmt.Errorf("server error: %w", err)
	}

	if runErr == nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("server shutdown error", slog.Any("error", err))
		}
	}

	if sqlDB, err := s.db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			s.logger.Error("database close error", slog.Any("error", err))
		}
	}

	s.logger.Info("fixture server stopped")
	if err := s.logger.Close(); err != nil {
		slog.Error("logger close error", slog.Any("error", err))
	}

	return runErr
}
