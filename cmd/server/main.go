package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/perflens/perflens/internal/analysis"
	"github.com/perflens/perflens/internal/browserpool"
	"github.com/perflens/perflens/internal/cache"
	"github.com/perflens/perflens/internal/collect"
	"github.com/perflens/perflens/internal/errors"
	"github.com/perflens/perflens/internal/monitoring"
	"github.com/perflens/perflens/internal/ratelimit"
	"github.com/perflens/perflens/internal/report"
	"github.com/perflens/perflens/internal/security"
	"github.com/perflens/perflens/internal/types"
)

// reportCollector is what the analyze handler needs from the live
// collection path. Tests substitute a stub; a nil collector disables
// URL analysis entirely.
type reportCollector interface {
	Collect(ctx context.Context, url string) (*report.Report, error)
}

type server struct {
	assembler *analysis.Assembler
	collector reportCollector
	cache     *cache.Cache
	metrics   *monitoring.Metrics
	logger    *monitoring.Logger
}

func main() {
	// Structured logging setup
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Configuration from environment with defaults
	port := getEnvOrDefault("PORT", "8080")
	rateLimitPerMin := getEnvIntOrDefault("RATE_LIMIT_PER_MIN", 30)
	cacheTTL := time.Duration(getEnvIntOrDefault("CACHE_TTL_MIN", 15)) * time.Minute

	poolCfg := browserpool.DefaultConfig()
	poolCfg.Size = getEnvIntOrDefault("BROWSER_POOL_SIZE", poolCfg.Size)
	poolCfg.NavTimeout = time.Duration(getEnvIntOrDefault("NAV_TIMEOUT_MS", 30000)) * time.Millisecond
	poolCfg.ChromeBin = os.Getenv("CHROME_BIN")
	pool := browserpool.New(poolCfg)

	appLogger := monitoring.NewLogger()
	if getEnvOrDefault("LOG_LEVEL", "info") == "debug" {
		appLogger.SetLevel(slog.LevelDebug)
	}

	srv := &server{
		assembler: analysis.NewAssembler(analysis.DetectorConfig{}),
		collector: collect.NewCollector(pool, poolCfg.NavTimeout),
		cache:     cache.New(cacheTTL),
		metrics:   monitoring.NewMetrics(),
		logger:    appLogger,
	}

	limiter := ratelimit.NewRateLimiter(ratelimit.Config{
		RequestsPerMin: rateLimitPerMin,
	})

	r := setupRouter(srv, limiter)

	// Start server with graceful shutdown
	httpServer := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}

	go func() {
		slog.Info("Starting server", "port", port, "pool_size", poolCfg.Size)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool.CloseAll()

	if err := httpServer.Shutdown(ctx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server exited")
}

func setupRouter(s *server, limiter *ratelimit.RateLimiter) *gin.Engine {
	r := gin.New()

	// Monitoring first so every request is captured
	r.Use(monitoring.MonitoringMiddleware(s.metrics, s.logger))

	// Error handling middleware
	r.Use(errors.ErrorHandler())
	r.Use(errors.RecoveryHandler())

	r.Use(security.SecurityHeadersMiddleware())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept"}
	r.Use(cors.New(corsConfig))

	if limiter != nil {
		r.Use(ratelimit.Middleware(limiter))
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"timestamp": time.Now().Format(time.RFC3339),
			"version":   "1.0.0",
		})
	})

	v1 := r.Group("/api/v1")
	v1.POST("/analyze", s.handleAnalyze)
	v1.GET("/metrics", func(c *gin.Context) {
		stats := s.metrics.Snapshot()
		stats["cache"] = s.cache.Stats()
		c.JSON(http.StatusOK, stats)
	})

	return r
}

func (s *server) handleAnalyze(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 60*time.Second)
	defer cancel()

	var req types.AnalyzeRequest
	if err := c.BindJSON(&req); err != nil {
		appErr := errors.NewValidationError("request body must be valid JSON")
		errors.LogError(c, appErr)
		c.JSON(appErr.HTTPStatus, appErr)
		return
	}

	req.URL = strings.TrimSpace(req.URL)
	if len(req.ReportData) == 0 && req.URL == "" {
		appErr := errors.NewValidationError("either reportData or url must be provided")
		errors.LogError(c, appErr)
		c.JSON(appErr.HTTPStatus, appErr)
		return
	}

	opts := analysis.Options{
		IncludeChains:      req.IncludeChains,
		IncludeUnusedCode:  req.IncludeUnusedCode,
		MaxRecommendations: req.MaxRecommendations,
		Locale:             req.Locale,
	}

	started := time.Now()

	// A supplied report wins over a URL: analysis of caller data never
	// touches the browser pool.
	if len(req.ReportData) > 0 {
		rep, err := report.Parse(req.ReportData)
		if err != nil {
			appErr := errors.NewValidationError("reportData is not valid JSON", err.Error())
			errors.LogError(c, appErr)
			c.JSON(appErr.HTTPStatus, appErr)
			return
		}

		text, problems := s.assembler.AssembleWithProblems(rep, opts)
		s.metrics.IncrementAnalyze()
		s.logger.AnalysisLogger("report_data", len(problems), time.Since(started), false)

		c.JSON(http.StatusOK, types.AnalyzeResponse{
			Content: []types.ContentBlock{{Type: "text", Text: text}},
		})
		return
	}

	if s.collector == nil {
		appErr := errors.NewInternalError("live page analysis is not configured", nil)
		appErr.HTTPStatus = http.StatusServiceUnavailable
		errors.LogError(c, appErr)
		c.JSON(appErr.HTTPStatus, appErr)
		return
	}

	key := cache.AnalysisKey(req.URL, req.IncludeChains, req.IncludeUnusedCode, req.MaxRecommendations, req.Locale)
	if cached, ok := s.cache.Get(key); ok {
		s.metrics.IncrementCacheHit()
		s.logger.CacheLogger("get", key, true, s.cache.Size())
		c.JSON(http.StatusOK, types.AnalyzeResponse{
			Content: []types.ContentBlock{{Type: "text", Text: string(cached)}},
		})
		return
	}
	s.metrics.IncrementCacheMiss()

	slog.Info("Collecting page metrics", "url", req.URL, "ip", c.ClientIP())

	rep, err := s.collector.Collect(ctx, req.URL)
	s.metrics.RecordCollect(err == nil)
	s.logger.CollectorLogger(req.URL, time.Since(started), err == nil)
	if err != nil {
		appErr := errors.ToAppError(err)
		errors.LogError(c, appErr)
		c.JSON(appErr.HTTPStatus, appErr)
		return
	}

	text, problems := s.assembler.AssembleWithProblems(rep, opts)
	s.cache.Set(key, []byte(text))
	s.metrics.IncrementAnalyze()
	s.logger.AnalysisLogger("url", len(problems), time.Since(started), false)

	c.JSON(http.StatusOK, types.AnalyzeResponse{
		Content: []types.ContentBlock{{Type: "text", Text: text}},
	})
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil && n > 0 {
			return n
		}
	}
	return defaultValue
}
