// Package api exposes the drive over HTTP.
//
// REST endpoints cover the namespace operations and conflict resolution; a
// websocket endpoint streams upload task snapshots so the transfer panel
// can render progress without polling.
package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/marmos91/dittodrive/internal/logger"
	"github.com/marmos91/dittodrive/pkg/auth"
	"github.com/marmos91/dittodrive/pkg/drive"
	"github.com/marmos91/dittodrive/pkg/metrics"
	"github.com/marmos91/dittodrive/pkg/mutation"
	"github.com/marmos91/dittodrive/pkg/namespace"
	"github.com/marmos91/dittodrive/pkg/store"
)

// Server serves the drive API.
type Server struct {
	drive  *drive.Drive
	auth   *auth.Context
	engine *gin.Engine
	http   *http.Server
}

// New builds the router. The metrics endpoint is registered only when the
// global registry is initialized.
func New(d *drive.Drive, authCtx *auth.Context, listenAddress string) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	s := &Server{
		drive:  d,
		auth:   authCtx,
		engine: engine,
		http: &http.Server{
			Addr:    listenAddress,
			Handler: engine,
		},
	}

	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	api := s.engine.Group("/api")
	{
		api.POST("/session", s.handleSignIn)
		api.DELETE("/session", s.handleSignOut)

		api.GET("/list", s.handleList)
		api.GET("/download-url", s.handleDownloadURL)

		api.POST("/folders", s.handleCreateFolder)
		api.DELETE("/folders", s.handleDeleteFolder)
		api.DELETE("/files", s.handleDeleteFile)

		api.POST("/move", s.handleMove)
		api.POST("/rename", s.handleRename)

		api.POST("/uploads", s.handleUpload)
		api.GET("/tasks", s.handleTasks)
		api.DELETE("/tasks", s.handleClearTasks)
		api.DELETE("/tasks/:id", s.handleCancelTask)

		api.GET("/conflict", s.handlePendingConflict)
		api.POST("/conflict/resolve", s.handleResolveConflict)

		api.GET("/ws", s.handleTaskStream)
	}

	if metrics.IsEnabled() {
		s.engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(
			metrics.GetRegistry(),
			promhttp.HandlerOpts{},
		)))
	}
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until the listener fails or Shutdown is called.
func (s *Server) Run() error {
	logger.Info("api: listening on %s", s.http.Addr)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

// fail maps domain errors onto HTTP status codes.
func fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError

	switch {
	case errors.Is(err, auth.ErrNotAuthorized):
		status = http.StatusUnauthorized
	case errors.Is(err, drive.ErrConflictPending),
		errors.Is(err, drive.ErrNameTaken):
		status = http.StatusConflict
	case errors.Is(err, drive.ErrStaleConflict):
		status = http.StatusGone
	case errors.Is(err, mutation.ErrInvalidTarget),
		errors.Is(err, namespace.ErrInvalidName):
		status = http.StatusBadRequest
	case errors.Is(err, mutation.ErrNotFound),
		errors.Is(err, store.ErrObjectNotFound):
		status = http.StatusNotFound
	}

	c.JSON(status, gin.H{"error": err.Error()})
}
