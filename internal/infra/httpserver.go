package infra

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// HTTPServer wraps http.Server with context-driven shutdown.
type HTTPServer struct {
	server          *http.Server
	shutdownTimeout time.Duration
	logger          zerolog.Logger
}

// NewHTTPServer creates a server from the HTTP settings in cfg. Generation
// endpoints can run for minutes, so the write timeout is configured
// separately from the read timeout.
func NewHTTPServer(cfg *Config, handler http.Handler, logger zerolog.Logger) *HTTPServer {
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadTimeout:       cfg.HTTPReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.HTTPWriteTimeout,
		IdleTimeout:       cfg.HTTPIdleTimeout,
	}
	return &HTTPServer{server: srv, shutdownTimeout: cfg.HTTPIdleTimeout, logger: logger}
}

func (s *HTTPServer) Addr() string { return s.server.Addr }

// Run serves until ctx is cancelled, then drains in-flight requests for up
// to the shutdown timeout.
func (s *HTTPServer) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.server.Addr).Msg("http server listening")
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	s.logger.Info().Dur("timeout", s.shutdownTimeout).Msg("http server shutting down")
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
