// Package server exposes the budget engine over HTTP.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cleared-dev/envelope/internal/budget"
	"github.com/cleared-dev/envelope/internal/logging"
	"github.com/cleared-dev/envelope/internal/model"
	"github.com/cleared-dev/envelope/internal/month"
)

// Server routes HTTP requests to a budget.Service.
type Server struct {
	svc    *budget.Service
	log    *slog.Logger
	router *gin.Engine
}

// New builds the router.
func New(svc *budget.Service, log *slog.Logger) *Server {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	s := &Server{svc: svc, log: logging.Component(log, "server"), router: gin.New()}
	s.router.Use(gin.Recovery(), s.requestLog)
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := s.router.Group("/api/v1")
	{
		api.GET("/accounts", s.listAccounts)
		api.POST("/accounts", s.createAccount)
		api.GET("/accounts/:id/reconcile", s.reconcileInfo)
		api.POST("/reconcile", s.commitReconciliation)

		api.GET("/months/:month", s.getMonth)
		api.GET("/months/:month/rta", s.getRTA)
		api.PUT("/months/:month/categories/:id", s.assign)
		api.POST("/months/:month/autoassign", s.autoAssign)
		api.POST("/months/:month/adjustments", s.addAdjustment)

		api.POST("/transactions", s.createTransaction)
		api.PATCH("/transactions/:id", s.updateTransaction)

		api.POST("/groups", s.createGroup)
		api.POST("/groups/:id/move", s.moveGroup)
		api.POST("/categories", s.createCategory)
		api.POST("/categories/:id/move", s.moveCategory)
		api.PUT("/order", s.reorder)
	}
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.log.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) requestLog(c *gin.Context) {
	start := time.Now()
	c.Next()
	s.log.Debug("request",
		"method", c.Request.Method,
		"path", c.FullPath(),
		"status", c.Writer.Status(),
		"duration", time.Since(start))
}

// fail maps the error taxonomy onto HTTP statuses.
func (s *Server) fail(c *gin.Context, err error) {
	var iv model.InvariantViolation
	switch {
	case model.IsValidation(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, model.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.As(err, &iv):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "rule": iv.Rule})
	case errors.Is(err, model.ErrConcurrentChange):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		s.log.Error("request failed", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func (s *Server) bind(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		s.fail(c, model.ValidationError{Field: "body", Message: err.Error()})
		return false
	}
	return true
}

func (s *Server) monthParam(c *gin.Context) (month.Month, bool) {
	m, err := month.Parse(c.Param("month"))
	if err != nil {
		s.fail(c, model.ValidationError{Field: "month", Message: err.Error()})
		return month.Month{}, false
	}
	return m, true
}
