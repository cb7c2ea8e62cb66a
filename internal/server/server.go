package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Server wraps the HTTP server with graceful shutdown.
type Server struct {
	http   *http.Server
	logger *zap.Logger
}

// New creates a server for the given router.
func New(router *gin.Engine, port string, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		http: &http.Server{
			Addr:         ":" + port,
			Handler:      router,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 120 * time.Second,
		},
		logger: logger,
	}
}

// Start blocks serving requests until Shutdown or a listener error.
func (s *Server) Start() error {
	s.logger.Info("server listening", zap.String("addr", s.http.Addr))
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}
