// Package httpapi is the thin HTTP boundary over the service: endpoint
// definitions, parameter decoding, and error-category translation. All real
// work happens in the core packages.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/agentic-research/panlens/internal/service"
)

// Server hosts the query API.
type Server struct {
	svc        *service.Service
	log        zerolog.Logger
	httpServer *http.Server
}

func NewServer(addr string, svc *service.Service, log zerolog.Logger) *Server {
	s := &Server{svc: svc, log: log}
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/configs", s.handleConfigs)
	mux.HandleFunc("GET /api/status", s.handleStatusAll)
	mux.HandleFunc("GET /api/status/{config}", s.handleStatus)
	mux.HandleFunc("POST /api/status/{config}/retry", s.handleRetry)
	mux.HandleFunc("GET /api/configs/{config}/object", s.handleFindByPath)
	mux.HandleFunc("GET /api/configs/{config}/summaries", s.handleSummaries)
	mux.HandleFunc("GET /api/configs/{config}/device-groups/{name}/summary", s.handleSummary)
	mux.HandleFunc("GET /api/configs/{config}/{kind}", s.handleList)
	mux.HandleFunc("GET /api/configs/{config}/{kind}/{name}", s.handleGet)
	return mux
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", s.httpServer.Addr).Msg("http server listening")
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	}
}
