package utilities

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/vasapolrittideah/glucosense-api/shared/metrics"
	"github.com/vasapolrittideah/glucosense-api/shared/middleware"
	"github.com/vasapolrittideah/glucosense-api/shared/response"
)

// NewRouter returns a chi router with the common middleware stack and the
// /health and /metrics endpoints mounted.
func NewRouter(logger *zerolog.Logger, m *metrics.Metrics, timeout time.Duration) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RequestLogger(logger))
	r.Use(chimiddleware.Recoverer)
	if m != nil {
		r.Use(m.Middleware)
	}
	if timeout > 0 {
		r.Use(chimiddleware.Timeout(timeout))
	}

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		response.Error(w, response.NotFoundError, "Route not found")
	})
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		response.Success(w, http.StatusOK, map[string]string{"status": "ok"}, "")
	})
	if m != nil {
		r.Handle("/metrics", m.Handler())
	}

	return r
}

// ServeHTTP runs srv until ctx is cancelled, then shuts it down within
// shutdownTimeout.
func ServeHTTP(ctx context.Context, srv *http.Server, shutdownTimeout time.Duration, logger *zerolog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	logger.Info().Msg("shutting down http server")
	return srv.Shutdown(shutdownCtx)
}
