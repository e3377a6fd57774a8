// Package dashboard is the thin HTTP surface over the shared state store:
// it renders the merged status view, forwards control commands, and exposes
// the worker's preview and metrics side channels.
package dashboard

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"disputebot/internal/controller"
	"disputebot/internal/model"
	"disputebot/internal/statestore"
)

// InitSlog configures the process-wide slog logger.
func InitSlog(level, format string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}

	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}

type Server struct {
	store    *statestore.Store
	ctrl     *controller.Controller
	gatherer prometheus.Gatherer
	router   *gin.Engine
}

// New builds the dashboard server. gatherer may be nil when no worker runs
// in-process; /metrics then serves an empty registry.
func New(store *statestore.Store, ctrl *controller.Controller, gatherer prometheus.Gatherer) *Server {
	if gatherer == nil {
		gatherer = prometheus.NewRegistry()
	}
	s := &Server{
		store:    store,
		ctrl:     ctrl,
		gatherer: gatherer,
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"timestamp": time.Now().Format(time.RFC3339),
		})
	})
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))

	api := router.Group("/api")
	{
		api.GET("/status", s.status)
		api.POST("/start", s.start)
		api.POST("/stop", s.command("stop", s.ctrl.Stop))
		api.POST("/pause", s.command("pause", s.ctrl.Pause))
		api.POST("/resume", s.command("resume", s.ctrl.Resume))
		api.POST("/analyze", s.command("analyze", s.ctrl.Analyze))
		api.GET("/preview", s.preview)
		api.POST("/click", s.click)
	}

	s.router = router
	return s
}

// Handler exposes the router for tests and embedding.
func (s *Server) Handler() http.Handler { return s.router }

// Serve blocks until ctx is cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("dashboard listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func (s *Server) status(c *gin.Context) {
	c.JSON(http.StatusOK, s.ctrl.Status())
}

func (s *Server) start(c *gin.Context) {
	if err := s.ctrl.Start(); err != nil {
		if errors.Is(err, controller.ErrAlreadyRunning) {
			c.JSON(http.StatusConflict, gin.H{"error": "already_running"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"command": "start"})
}

func (s *Server) command(name string, fn func() error) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := fn(); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"command": name})
	}
}

func (s *Server) preview(c *gin.Context) {
	raw, err := os.ReadFile(s.store.PreviewPath())
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no preview available"})
		return
	}
	c.Data(http.StatusOK, "image/png", raw)
}

func (s *Server) click(c *gin.Context) {
	var click model.ClickRequest
	if err := c.ShouldBindJSON(&click); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.ctrl.Click(click); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"queued": true})
}

// requestLogger logs each request through slog, warning on client errors and
// erroring on server failures.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		status := c.Writer.Status()
		attrs := []any{
			"status", status,
			"method", c.Request.Method,
			"path", path,
			"latency_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
		}
		switch {
		case status >= 500:
			slog.Error("request completed", attrs...)
		case status >= 400:
			slog.Warn("request completed", attrs...)
		default:
			slog.Info("request completed", attrs...)
		}
	}
}
