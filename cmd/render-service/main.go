package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/edgecomet/render-service/internal/browser"
	"github.com/edgecomet/render-service/internal/common/config"
	logutil "github.com/edgecomet/render-service/internal/common/logger"
	"github.com/edgecomet/render-service/internal/common/metricsserver"
	"github.com/edgecomet/render-service/internal/contextbroker"
	"github.com/edgecomet/render-service/internal/httpapi"
	"github.com/edgecomet/render-service/internal/metrics"
	"github.com/edgecomet/render-service/internal/pipeline"
	"github.com/edgecomet/render-service/internal/ratelimit"
)

const acquireTimeout = 30 * time.Second

func main() {
	initialLogger, err := logutil.NewDefault()
	if err != nil {
		panic(err)
	}

	initialLogger.Info("loading configuration")
	cfg, err := config.Load()
	if err != nil {
		initialLogger.Fatal("failed to load configuration", zap.Error(err))
	}

	dynamicLogger, err := logutil.NewWithStartupOverride(logutil.Config{
		Level: cfg.LogLevel,
		Console: logutil.ConsoleConfig{
			Enabled: true,
			Format:  logutil.LogFormatConsole,
		},
	})
	if err != nil {
		initialLogger.Fatal("failed to create configured logger", zap.Error(err))
	}
	logger := dynamicLogger.Logger

	logger.Info("render service starting",
		zap.String("listen", cfg.ListenAddr()),
		zap.Int("pool_min", cfg.PoolMinBrowsers),
		zap.Int("pool_max", cfg.PoolMaxBrowsers))

	metricsCollector := metrics.New("render_service", logger)

	maxBrowsers := cfg.PoolMaxBrowsers
	if os.Getenv("RS_POOL_MAX_BROWSERS") == "" {
		maxBrowsers = browser.RecommendMaxBrowsers(cfg.PoolMinBrowsers)
		logger.Info("POOL_MAX_BROWSERS unset, sizing pool from available memory",
			zap.Int("recommended_max_browsers", maxBrowsers))
	}

	poolCfg := &browser.Config{
		MinBrowsers:           cfg.PoolMinBrowsers,
		MaxBrowsers:           maxBrowsers,
		MaxContextsPerBrowser: cfg.PoolMaxContexts,
		IdleTimeout:           cfg.BrowserIdleTimeout(),
		HealthCheckInterval:   cfg.HealthCheckInterval(),
		AcquireTimeout:        acquireTimeout,
	}

	pool, err := browser.NewPool(poolCfg, logger)
	if err != nil {
		logger.Fatal("invalid browser pool configuration", zap.Error(err))
	}

	initCtx, initCancel := context.WithTimeout(context.Background(), 2*time.Minute)
	if err := pool.Initialize(initCtx); err != nil {
		initCancel()
		logger.Fatal("failed to initialize browser pool", zap.Error(err))
	}
	initCancel()

	broker := contextbroker.New(pool)
	renderPipeline := pipeline.New(broker, logger)

	limiter := ratelimit.New(cfg.RateLimitEnabled, cfg.RateLimitWindow(), cfg.RateLimitMaxRequests)
	limiter.StartSweeper()

	server := httpapi.New(pool, renderPipeline, limiter, metricsCollector, cfg.CORSEnabled, logger)

	httpServer := &fasthttp.Server{
		Handler:      server.Handler(),
		ReadTimeout:  2 * time.Minute,
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  2 * time.Minute,
		Name:         "render-service",
	}

	serverErrCh := make(chan error, 1)
	go func() {
		logger.Info("starting HTTP server", zap.String("listen", cfg.ListenAddr()))
		if err := httpServer.ListenAndServe(cfg.ListenAddr()); err != nil {
			serverErrCh <- err
		}
	}()

	metricsServer, err := metricsserver.StartMetricsServer(true, cfg.MetricsListenAddr(), "/metrics", metricsCollector, logger)
	if err != nil {
		logger.Fatal("failed to start metrics server", zap.Error(err))
	}

	time.Sleep(100 * time.Millisecond)
	select {
	case err := <-serverErrCh:
		logger.Fatal("HTTP server failed to start", zap.Error(err))
	default:
	}

	logger.Info("render service ready",
		zap.String("listen", cfg.ListenAddr()),
		zap.String("metrics_listen", cfg.MetricsListenAddr()))

	dynamicLogger.SwitchToConfiguredLevel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("received shutdown signal", zap.String("signal", sig.String()))
	case err := <-serverErrCh:
		logger.Error("HTTP server error", zap.Error(err))
	}

	dynamicLogger.EnsureInfoLevelForShutdown()
	logger.Info("shutting down gracefully")

	limiter.Stop()

	var shutdownErr error

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := httpServer.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", zap.Error(err))
		shutdownErr = err
	}

	if metricsServer != nil {
		metricsShutdownCtx, metricsShutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.ShutdownWithContext(metricsShutdownCtx); err != nil {
			logger.Error("metrics server shutdown error", zap.Error(err))
			shutdownErr = err
		}
		metricsShutdownCancel()
	}

	if err := pool.Shutdown(); err != nil {
		logger.Error("browser pool shutdown error", zap.Error(err))
		shutdownErr = err
	}

	if shutdownErr != nil {
		logger.Error("render service stopped with errors")
		os.Exit(1)
	}

	logger.Info("render service stopped")
}
