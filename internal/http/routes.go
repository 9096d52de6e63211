package http

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kjstillabower/car-catalog-service/internal/observability"
)

// RouterOptions configures the middleware applied to catalog routes.
type RouterOptions struct {
	Limiter        *rate.Limiter // nil disables rate limiting
	RequestTimeout time.Duration
}

// NewRouter builds the full routing tree. Catalog routes (/, /cars, /api/cars) are rate limited
// and time-bounded; /health and /metrics are not.
func NewRouter(h *Handler, logger *zap.Logger, opts RouterOptions) *mux.Router {
	router := mux.NewRouter()
	router.Use(CorrelationIDMiddleware(logger))
	router.Use(MetricsMiddleware)
	router.HandleFunc("/health", h.GetHealth).Methods(http.MethodGet)
	router.Handle("/metrics", observability.MetricsHandler()).Methods(http.MethodGet)

	catalogRouter := router.NewRoute().Subrouter()
	catalogRouter.Use(RateLimitMiddleware(opts.Limiter))
	catalogRouter.Use(TimeoutMiddleware(opts.RequestTimeout))
	catalogRouter.HandleFunc("/", h.GetIndex).Methods(http.MethodGet)
	catalogRouter.HandleFunc("/cars", h.GetCars).Methods(http.MethodGet)
	catalogRouter.HandleFunc("/api/cars", h.GetCarsAPI).Methods(http.MethodGet)
	return router
}
