// Package server exposes the detection and correction engines over HTTP.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"avalia-integrity/internal/common/config"
	"avalia-integrity/internal/common/logger"
	"avalia-integrity/internal/models"
)

// Detector runs integrity checks. Implemented by divergence.Detector.
type Detector interface {
	Run(ctx context.Context, t models.DivergenceType) (*models.Divergence, error)
	RunAll(ctx context.Context) *models.DetectionReport
}

// Corrector applies correction batches. Implemented by correction.Engine.
type Corrector interface {
	Apply(ctx context.Context, req *models.CorrectionRequest) (*models.CorrectionResult, error)
}

// HistoryReader queries the correction audit trail. Implemented by history.Store.
type HistoryReader interface {
	Query(ctx context.Context, f models.HistoryFilter) ([]models.HistoryEntry, error)
}

// Pinger reports datastore liveness for the health endpoint.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Server struct {
	cfg       *config.Config
	logger    logger.Logger
	detector  Detector
	corrector Corrector
	history   HistoryReader
	db        Pinger

	engine *gin.Engine
	http   *http.Server
}

func New(cfg *config.Config, log logger.Logger, detector Detector, corrector Corrector, hist HistoryReader, db Pinger) *Server {
	if cfg.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		cfg:       cfg,
		logger:    log.WithFields(map[string]interface{}{"component": "http"}),
		detector:  detector,
		corrector: corrector,
		history:   hist,
		db:        db,
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(s.requestLogger())

	engine.GET("/health", s.handleHealth)
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := engine.Group("/api/v1/integrity")
	{
		api.POST("/detect", s.handleDetect)
		api.POST("/corrections", s.handleCorrections)
		api.GET("/history", s.handleHistory)
	}

	s.engine = engine
	return s
}

// Handler exposes the router, used directly in tests.
func (s *Server) Handler() http.Handler { return s.engine }

func (s *Server) Start() error {
	s.http = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.cfg.Server.Port),
		Handler:      s.engine,
		ReadTimeout:  time.Duration(s.cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(s.cfg.Server.WriteTimeout) * time.Second,
	}

	s.logger.Info("http server starting", map[string]interface{}{
		"port": s.cfg.Server.Port,
	})
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Info("request", map[string]interface{}{
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     c.Writer.Status(),
			"durationMs": time.Since(start).Milliseconds(),
		})
	}
}
