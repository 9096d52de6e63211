package service

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/car-catalog-service/internal/cache"
	"github.com/kjstillabower/car-catalog-service/internal/catalog"
	"github.com/kjstillabower/car-catalog-service/internal/models"
	"github.com/kjstillabower/car-catalog-service/internal/observability"
	"github.com/kjstillabower/car-catalog-service/internal/view"
)

const (
	// ViewIndex is the landing page view name.
	ViewIndex = "index"
	// ViewCars is the car table view name.
	ViewCars = "cars"
)

// CarsPage is the model handed to the cars view.
type CarsPage struct {
	Cars []models.Car
}

// IndexPage is the model handed to the index view.
type IndexPage struct {
	Title string
	Size  int
}

// PageService renders catalog pages using cache-aside over the rendered HTML.
type PageService struct {
	cars  *catalog.CarService
	views view.Renderer
	cache cache.Cache // nil disables caching
	ttl   time.Duration
}

// NewPageService creates a PageService. A nil cache or non-positive ttl disables page caching.
func NewPageService(cars *catalog.CarService, views view.Renderer, c cache.Cache, ttl time.Duration) *PageService {
	if ttl <= 0 {
		c = nil
	}
	return &PageService{cars: cars, views: views, cache: c, ttl: ttl}
}

// loggerFromContext extracts a zap.Logger from request context if present.
func loggerFromContext(ctx context.Context) *zap.Logger {
	if v := ctx.Value("logger"); v != nil {
		if l, ok := v.(*zap.Logger); ok && l != nil {
			return l
		}
	}
	return nil
}

// Cars returns the first amount cars from the catalog.
func (s *PageService) Cars(amount int) []models.Car {
	return s.cars.GetCars(amount)
}

// RenderCars returns the rendered cars view for amount.
func (s *PageService) RenderCars(ctx context.Context, amount int) ([]byte, error) {
	cars := s.cars.GetCars(amount)
	return s.render(ctx, ViewCars, cache.ViewKey(ViewCars, len(cars)), CarsPage{Cars: cars})
}

// RenderIndex returns the rendered landing page.
func (s *PageService) RenderIndex(ctx context.Context) ([]byte, error) {
	return s.render(ctx, ViewIndex, cache.ViewKey(ViewIndex, 0), IndexPage{Title: "Car catalog", Size: s.cars.Size()})
}

func (s *PageService) render(ctx context.Context, name, key string, data any) ([]byte, error) {
	logger := loggerFromContext(ctx)

	if s.cache != nil {
		page, ok, err := s.cache.Get(ctx, key)
		if err != nil {
			observability.ViewCacheErrorsTotal.WithLabelValues("get").Inc()
			if logger != nil {
				logger.Warn("view cache get failed", zap.String("key", key), zap.Error(err))
			}
		} else if ok {
			observability.ViewCacheHitsTotal.WithLabelValues(name).Inc()
			if logger != nil {
				logger.Debug("view cache hit", zap.String("key", key))
			}
			return page, nil
		}
	}

	start := time.Now()
	var buf bytes.Buffer
	if err := s.views.Render(&buf, name, data); err != nil {
		observability.ViewRenderDuration.WithLabelValues(name, "error").Observe(time.Since(start).Seconds())
		return nil, fmt.Errorf("render view %s: %w", name, err)
	}
	observability.ViewRenderDuration.WithLabelValues(name, "success").Observe(time.Since(start).Seconds())
	page := buf.Bytes()

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, page, s.ttl); err != nil {
			observability.ViewCacheErrorsTotal.WithLabelValues("set").Inc()
			if logger != nil {
				logger.Warn("view cache set failed", zap.String("key", key), zap.Error(err))
			}
		}
	}
	if logger != nil {
		logger.Debug("view rendered", zap.String("view", name), zap.Int("bytes", len(page)), zap.Duration("duration", time.Since(start)))
	}
	return page, nil
}
