// Package server exposes the quiz over HTTP: the question bank, stateless
// scoring, and a collector for submitted results.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pharmcheck/pharmcheck/internal/bank"
	"github.com/pharmcheck/pharmcheck/internal/results"
	"github.com/pharmcheck/pharmcheck/internal/scoring"
	"github.com/pharmcheck/pharmcheck/internal/store"
)

// Options configures a Server.
type Options struct {
	Bank    *bank.Bank
	Results store.ResultRepo
	Scoring scoring.Config
	TopN    int
	Icons   *results.IconResolver

	// AllowOrigins lists CORS origins. Empty allows any origin.
	AllowOrigins []string

	// Registry receives the metrics and backs /metrics. Nil creates a
	// private registry.
	Registry *prometheus.Registry

	Logger *slog.Logger
	Debug  bool
}

// Server is the HTTP API.
type Server struct {
	bank     *bank.Bank
	results  store.ResultRepo
	scoring  scoring.Config
	topN     int
	icons    *results.IconResolver
	metrics  *Metrics
	validate *validator.Validate
	logger   *slog.Logger

	engine *gin.Engine
}

// New builds the server and its routes.
func New(opts Options) (*Server, error) {
	if opts.Bank == nil {
		return nil, errors.New("server: question bank is required")
	}
	if opts.Results == nil {
		return nil, errors.New("server: result repository is required")
	}
	if opts.TopN <= 0 {
		opts.TopN = results.DefaultTopN
	}
	if opts.Scoring.Policy == "" {
		opts.Scoring = scoring.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	reg := opts.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	metrics, err := NewMetrics(reg)
	if err != nil {
		return nil, err
	}

	if !opts.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery(), requestLogger(opts.Logger))

	corsConfig := cors.DefaultConfig()
	if len(opts.AllowOrigins) == 0 {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = opts.AllowOrigins
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept"}
	engine.Use(cors.New(corsConfig))

	s := &Server{
		bank:     opts.Bank,
		results:  opts.Results,
		scoring:  opts.Scoring,
		topN:     opts.TopN,
		icons:    opts.Icons,
		metrics:  metrics,
		validate: validator.New(),
		logger:   opts.Logger,
		engine:   engine,
	}
	s.routes(reg)
	return s, nil
}

func (s *Server) routes(reg *prometheus.Registry) {
	s.engine.GET("/healthz", s.handleHealth)
	s.engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})))

	api := s.engine.Group("/api")
	api.GET("/questions", s.handleQuestions)
	api.GET("/roles", s.handleRoles)
	api.POST("/score", s.handleScore)
	api.POST("/submissions", s.handleSubmit)
	api.GET("/submissions", s.handleListSubmissions)
	api.GET("/stats", s.handleStats)
}

// Handler returns the HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve http: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http: %w", err)
	}
	s.logger.Info("http server stopped")
	return nil
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("http request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"latency_ms", time.Since(start).Milliseconds(),
		)
	}
}
