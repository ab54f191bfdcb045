// Package server serves the sunlight engine over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/aclements/shade"
	"github.com/aclements/shade/internal/config"
)

// Server is the HTTP API.
type Server struct {
	resolver *shade.Resolver
	lighting shade.LightingMapper
	ray      config.RayConfig
	cfg      config.ServerConfig
	logger   *zap.Logger

	// now returns the time used when a request has none.
	now func() time.Time
}

// New returns a server that answers sunlight queries with resolver.
func New(cfg config.ServerConfig, ray config.RayConfig, resolver *shade.Resolver, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		resolver: resolver,
		ray:      ray,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
}

// Handler returns the API's routes.
func (s *Server) Handler() http.Handler {
	router := mux.NewRouter()
	router.Use(s.requestLogger)

	router.HandleFunc("/healthz", s.health).Methods(http.MethodGet)

	router.HandleFunc("/v1/sunlight", s.sunlight).Methods(http.MethodGet)
	router.HandleFunc("/v1/position", s.position).Methods(http.MethodGet)
	router.HandleFunc("/v1/lighting", s.sceneLighting).Methods(http.MethodGet)
	router.HandleFunc("/v1/marker", s.marker).Methods(http.MethodGet)
	router.HandleFunc("/v1/ray", s.sunRay).Methods(http.MethodGet)
	router.HandleFunc("/v1/suntimes", s.sunTimes).Methods(http.MethodGet)

	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})
	return router
}

// Run serves on the configured address until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Listen,
		Handler:      s.Handler(),
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", zap.String("addr", srv.Addr))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
