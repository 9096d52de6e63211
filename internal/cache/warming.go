package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/car-catalog-service/internal/observability"
)

// PageRenderer is implemented by the service layer to render (and cache) the cars page.
// Used by CacheWarmer to avoid a circular dependency on the service package.
type PageRenderer interface {
	RenderCars(ctx context.Context, amount int) ([]byte, error)
}

// CacheWarmer pre-renders the cars page for a set of counts.
type CacheWarmer struct {
	renderer PageRenderer
	logger   *zap.Logger
}

// NewCacheWarmer creates a CacheWarmer that uses the given renderer and logger.
func NewCacheWarmer(renderer PageRenderer, logger *zap.Logger) *CacheWarmer {
	return &CacheWarmer{renderer: renderer, logger: logger}
}

// Warm renders each amount concurrently so the renderer populates its cache.
// Returns the joined errors of any amounts that failed.
func (w *CacheWarmer) Warm(ctx context.Context, amounts []int) error {
	start := time.Now()
	observability.CacheWarmingTotal.Inc()
	if w.logger != nil {
		w.logger.Info("warming view cache", zap.Ints("amounts", amounts))
	}
	var wg sync.WaitGroup
	errCh := make(chan error, len(amounts))
	for _, amount := range amounts {
		wg.Add(1)
		go func(amount int) {
			defer wg.Done()
			if _, err := w.renderer.RenderCars(ctx, amount); err != nil {
				errCh <- fmt.Errorf("warm cars:%d: %w", amount, err)
			}
		}(amount)
	}
	wg.Wait()
	close(errCh)
	var errs []error
	for err := range errCh {
		errs = append(errs, err)
	}
	duration := time.Since(start).Seconds()
	observability.CacheWarmingDurationSeconds.Observe(duration)
	if w.logger != nil {
		w.logger.Info("view cache warming complete", zap.Int("amounts", len(amounts)), zap.Int("errors", len(errs)), zap.Float64("duration_seconds", duration))
	}
	if len(errs) > 0 {
		observability.CacheWarmingErrorsTotal.Inc()
		return fmt.Errorf("cache warming: %w", errors.Join(errs...))
	}
	return nil
}
