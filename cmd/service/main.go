package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kjstillabower/car-catalog-service/internal/cache"
	"github.com/kjstillabower/car-catalog-service/internal/catalog"
	"github.com/kjstillabower/car-catalog-service/internal/config"
	httphandler "github.com/kjstillabower/car-catalog-service/internal/http"
	"github.com/kjstillabower/car-catalog-service/internal/lifecycle"
	"github.com/kjstillabower/car-catalog-service/internal/observability"
	"github.com/kjstillabower/car-catalog-service/internal/service"
	"github.com/kjstillabower/car-catalog-service/internal/view"
)

func main() {
	lifecycle.MarkStarted(time.Now())

	logger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("config", zap.Error(err))
	}

	views := view.New(view.Config{
		Prefix: cfg.ViewPrefix,
		Suffix: cfg.ViewSuffix,
		Cache:  cfg.ViewCache,
	}, view.Pages())
	logger.Info("view resolver registered",
		zap.String("prefix", cfg.ViewPrefix),
		zap.String("suffix", cfg.ViewSuffix),
		zap.Bool("cache", cfg.ViewCache))

	var pageCache cache.Cache
	var memcacheCloser *cache.MemcachedCache
	switch cfg.CacheBackend {
	case "memcached":
		mc, err := cache.NewMemcachedCache(cfg.MemcachedAddrs, cfg.MemcachedTimeout, cfg.MemcachedMaxIdleConns)
		if err != nil {
			logger.Fatal("memcached cache", zap.Error(err))
		}
		memcacheCloser = mc
		pageCache = mc
		logger.Info("cache backend: memcached", zap.String("addrs", cfg.MemcachedAddrs))
	case "in_memory":
		pageCache = cache.NewInMemoryCache()
		logger.Info("cache backend: in_memory")
	default:
		logger.Info("cache backend: none")
	}

	cars := catalog.NewCarService()
	pages := service.NewPageService(cars, views, pageCache, cfg.CacheTTL)

	if pageCache != nil && len(cfg.WarmAmounts) > 0 {
		warmer := cache.NewCacheWarmer(pages, logger)
		warmCtx, warmCancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := warmer.Warm(warmCtx, cfg.WarmAmounts); err != nil {
			logger.Warn("cache warming failed", zap.Error(err))
		}
		warmCancel()
	}

	handlerCfg := httphandler.HandlerConfig{
		DefaultAmount: cfg.DefaultAmount,
		MaxAmount:     cfg.MaxAmount,
	}
	if memcacheCloser != nil {
		handlerCfg.CachePing = memcacheCloser.Ping
	}
	handler := httphandler.NewHandler(pages, handlerCfg, logger)

	var limiter *rate.Limiter
	if cfg.RateLimitRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst)
	}
	router := httphandler.NewRouter(handler, logger, httphandler.RouterOptions{
		Limiter:        limiter,
		RequestTimeout: cfg.RequestTimeout,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	<-ctx.Done()
	stop()

	logger.Info("graceful shutdown triggered")
	lifecycle.SetShuttingDown(true)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}

	inFlight := httphandler.InFlightCount()
	logger.Info("waiting for in-flight requests", zap.Int64("count", inFlight))
	waitCtx, waitCancel := context.WithTimeout(context.Background(), cfg.ShutdownInFlightTimeout)
	defer waitCancel()
	if err := httphandler.WaitForInFlight(waitCtx, cfg.ShutdownInFlightCheckInterval); err != nil {
		logger.Warn("in-flight requests not completed", zap.Error(err), zap.Int64("remaining", httphandler.InFlightCount()))
	}

	if memcacheCloser != nil {
		if err := memcacheCloser.Close(); err != nil {
			logger.Error("memcached close", zap.Error(err))
		}
	}
	logger.Info("shutdown complete")
	if err := observability.FlushTelemetry(context.Background(), logger); err != nil {
		fmt.Fprintf(os.Stderr, "telemetry flush: %v\n", err)
	}
}
