// Package httpapi exposes the record store over HTTP (gin): public
// registration and auth endpoints plus a bearer-protected CRUD and
// attachment surface.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dmitrijs2005/recordhub/internal/logging"
	"github.com/gin-gonic/gin"
)

type Server struct {
	address string
	engine  *gin.Engine
	logger  logging.Logger
}

// NewServer builds the router. The create route is public (with the default
// schema it doubles as registration), as are login, refresh, logout and the
// health probe; everything else requires a bearer token.
func NewServer(address string, logger logging.Logger, handler *Handler, verifier tokenVerifier, dev bool) *Server {
	if !dev {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(RequestLogger(logger))

	engine.GET("/healthz", handler.Healthz)

	api := engine.Group("/api/v1")

	api.POST("/records", handler.CreateRecord)
	api.POST("/login", handler.Login)
	api.POST("/refresh", handler.Refresh)
	api.POST("/logout", handler.Logout)

	protected := api.Group("")
	protected.Use(RequireAuth(verifier))

	protected.GET("/records", handler.ListRecords)
	protected.GET("/records/:id", handler.GetRecord)
	protected.PUT("/records/:id", handler.UpdateRecord)
	protected.DELETE("/records/:id", handler.DeleteRecord)

	protected.POST("/records/:id/attachments", handler.CreateAttachment)
	protected.POST("/attachments/:id/uploaded", handler.MarkAttachmentUploaded)
	protected.GET("/attachments/:id/url", handler.AttachmentURL)

	return &Server{
		address: address,
		engine:  engine,
		logger:  logger.With("module", "http_server"),
	}
}

// Engine exposes the router for httptest.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// Run serves until ctx is cancelled, then shuts down gracefully with a
// short drain window.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.address,
		Handler: s.engine,
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(ctx, "HTTP server shutdown error", "error", err.Error())
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}
