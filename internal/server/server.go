// Package server exposes the attempt and reporting services over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"github.com/abhisek/diagnostica/internal/attempt"
	"github.com/abhisek/diagnostica/internal/reporting"
)

// Options configures a Server.
type Options struct {
	// Tracing installs the otelgin middleware.
	Tracing bool
	Logger  *zap.Logger
}

// Server routes HTTP requests to the services.
type Server struct {
	engine   *gin.Engine
	attempts *attempt.Service
	reports  *reporting.Service
	tags     TagWriter
	logger   *zap.Logger
}

// TagWriter stores a student's cohort tags atomically.
type TagWriter interface {
	SetTags(ctx context.Context, studentID string, groups map[string]string) error
}

// New builds the router.
func New(attempts *attempt.Service, reports *reporting.Service, tags TagWriter, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	registerValidators()

	s := &Server{
		engine:   gin.New(),
		attempts: attempts,
		reports:  reports,
		tags:     tags,
		logger:   logger,
	}
	s.engine.Use(recovery(logger), requestLogger(logger))
	if opts.Tracing {
		s.engine.Use(otelgin.Middleware("diagnostica"))
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	r := s.engine
	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("/v1")
	v1.PUT("/exams/:examID", s.putExam)
	v1.GET("/exams/:examID/report", s.getReport)

	v1.POST("/attempts", s.startAttempt)
	v1.GET("/attempts/:id", s.getAttempt)
	v1.POST("/attempts/:id/events", s.appendEvents)
	v1.POST("/attempts/:id/finalize", s.finalize)
	v1.GET("/attempts/:id/result", s.getResult)
	v1.GET("/attempts/:id/remediation", s.getRemediation)

	v1.PUT("/students/:id/tags", s.putTags)
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.logger.Info("http server shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

func registerValidators() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	_ = v.RegisterValidation("confidence", validateConfidence)
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}
		switch {
		case c.Writer.Status() >= http.StatusInternalServerError:
			logger.Error("request", append(fields, zap.String("errors", c.Errors.String()))...)
		case c.Writer.Status() >= http.StatusBadRequest:
			logger.Info("request", fields...)
		default:
			logger.Debug("request", fields...)
		}
	}
}

func recovery(logger *zap.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, rec any) {
		logger.Error("panic in handler", zap.Any("panic", rec), zap.String("path", c.Request.URL.Path))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	})
}
