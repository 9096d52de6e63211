package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/car-catalog-service/internal/lifecycle"
	"github.com/kjstillabower/car-catalog-service/internal/observability"
	"github.com/kjstillabower/car-catalog-service/internal/service"
	"github.com/kjstillabower/car-catalog-service/internal/validation"
)

// Version is reported by /health. Overridden at build time via -ldflags.
var Version = "dev"

// HandlerConfig holds request bounds and optional dependency probes.
type HandlerConfig struct {
	DefaultAmount int
	MaxAmount     int
	// CachePing, when set, is called to check cache reachability. Used when backend is memcached.
	CachePing func() error
}

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	pages            *service.PageService
	cfg              HandlerConfig
	logger           *zap.Logger
	healthStatusMu   sync.Mutex
	healthStatusPrev string
}

// NewHandler returns a new Handler.
func NewHandler(pages *service.PageService, cfg HandlerConfig, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{pages: pages, cfg: cfg, logger: logger}
}

// GetIndex handles GET /.
func (h *Handler) GetIndex(w http.ResponseWriter, r *http.Request) {
	page, err := h.pages.RenderIndex(r.Context())
	if err != nil {
		writeRenderError(w, r, err)
		return
	}
	writeHTML(w, http.StatusOK, page)
}

// GetCars handles GET /cars?count=N and renders the cars view.
func (h *Handler) GetCars(w http.ResponseWriter, r *http.Request) {
	amount, ok := h.parseAmount(w, r)
	if !ok {
		return
	}
	page, err := h.pages.RenderCars(r.Context(), amount)
	if err != nil {
		writeRenderError(w, r, err)
		return
	}
	observability.RecordCarsServed("html", len(h.pages.Cars(amount)))
	writeHTML(w, http.StatusOK, page)
}

// GetCarsAPI handles GET /api/cars?count=N and returns the cars as a JSON array.
func (h *Handler) GetCarsAPI(w http.ResponseWriter, r *http.Request) {
	amount, ok := h.parseAmount(w, r)
	if !ok {
		return
	}
	cars := h.pages.Cars(amount)
	observability.RecordCarsServed("json", len(cars))
	writeJSON(w, http.StatusOK, cars)
}

// parseAmount reads the count query parameter, writing a 400 response when it is invalid.
func (h *Handler) parseAmount(w http.ResponseWriter, r *http.Request) (int, bool) {
	amount, err := validation.ParseAmount(r.URL.Query().Get("count"), h.cfg.DefaultAmount, h.cfg.MaxAmount)
	if err != nil {
		observability.RecordInvalidCatalogRequest()
		writeError(w, r, http.StatusBadRequest, "INVALID_AMOUNT", err.Error())
		return 0, false
	}
	return amount, true
}

// GetHealth handles GET /health.
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	status, statusCode := "healthy", http.StatusOK
	if lifecycle.IsShuttingDown() {
		status, statusCode = "shutting-down", http.StatusServiceUnavailable
	}

	h.healthStatusMu.Lock()
	if prev := h.healthStatusPrev; prev != "" && prev != status {
		h.logger.Info("health status transition",
			zap.String("previous_status", prev),
			zap.String("current_status", status))
	}
	h.healthStatusPrev = status
	h.healthStatusMu.Unlock()

	checks := map[string]string{"catalog": "healthy"}
	if h.cfg.CachePing != nil {
		if err := h.cfg.CachePing(); err == nil {
			checks["cache"] = "healthy"
		} else {
			checks["cache"] = "unhealthy"
		}
	}
	writeJSON(w, statusCode, map[string]interface{}{
		"status":        status,
		"service":       observability.ServiceName,
		"version":       Version,
		"checks":        checks,
		"uptimeSeconds": int64(lifecycle.Uptime().Seconds()),
		"timestamp":     time.Now().UTC().Format(time.RFC3339),
	})
}

// writeJSON writes a JSON response with the specified HTTP status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeHTML(w http.ResponseWriter, status int, page []byte) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(page)
}

// writeError writes an error response in the standard error format with code, message,
// and requestId (correlation ID) if available in request context.
func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]string{
			"code":      code,
			"message":   message,
			"requestId": correlationID(r),
		},
	})
}

// writeRenderError maps view failures to 500 and request deadline expiry to 503.
func writeRenderError(w http.ResponseWriter, r *http.Request, err error) {
	if logger := loggerFromRequest(r); logger != nil {
		logger.Error("render failed", zap.Error(err))
	}
	if errors.Is(r.Context().Err(), context.DeadlineExceeded) {
		writeError(w, r, http.StatusServiceUnavailable, "TIMEOUT", "Request timed out")
		return
	}
	writeError(w, r, http.StatusInternalServerError, "RENDER_FAILED", "Unable to render page")
}
