package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/kjstillabower/car-catalog-service/internal/cache"
	"github.com/kjstillabower/car-catalog-service/internal/catalog"
	"github.com/kjstillabower/car-catalog-service/internal/view"
)

type mockCache struct {
	data   map[string][]byte
	getErr error
	setErr error
	sets   int
}

func (m *mockCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if m.getErr != nil {
		return nil, false, m.getErr
	}
	val, ok := m.data[key]
	return val, ok, nil
}

func (m *mockCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	m.sets++
	if m.setErr != nil {
		return m.setErr
	}
	if m.data == nil {
		m.data = make(map[string][]byte)
	}
	m.data[key] = value
	return nil
}

type countingRenderer struct {
	inner view.Renderer
	calls int
	err   error
}

func (r *countingRenderer) Render(w io.Writer, name string, data any) error {
	r.calls++
	if r.err != nil {
		return r.err
	}
	return r.inner.Render(w, name, data)
}

func newRenderer() *countingRenderer {
	return &countingRenderer{inner: view.New(view.DefaultConfig(), nil)}
}

func TestPageService_Cars(t *testing.T) {
	svc := NewPageService(catalog.NewCarService(), newRenderer(), nil, 0)
	got := svc.Cars(2)
	if len(got) != 2 || got[0].Model != "L200" || got[1].Model != "Pajero" {
		t.Errorf("Cars(2) = %+v", got)
	}
}

func TestPageService_RenderCars_NoCache(t *testing.T) {
	renderer := newRenderer()
	svc := NewPageService(catalog.NewCarService(), renderer, nil, 0)

	page, err := svc.RenderCars(context.Background(), 2)
	if err != nil {
		t.Fatalf("RenderCars() error = %v", err)
	}
	body := string(page)
	if !strings.Contains(body, "L200") || !strings.Contains(body, "Pajero") {
		t.Errorf("page missing first two cars: %s", body)
	}
	if strings.Contains(body, "Lancer") {
		t.Error("page should not contain the fourth car")
	}
	if _, err := svc.RenderCars(context.Background(), 2); err != nil {
		t.Fatalf("RenderCars() error = %v", err)
	}
	if renderer.calls != 2 {
		t.Errorf("renderer calls = %d, want 2 without cache", renderer.calls)
	}
}

// TestPageService_RenderCars_CacheAside verifies the first render populates the cache
// and the second is served from it.
func TestPageService_RenderCars_CacheAside(t *testing.T) {
	renderer := newRenderer()
	mc := &mockCache{}
	svc := NewPageService(catalog.NewCarService(), renderer, mc, time.Minute)
	ctx := context.Background()

	first, err := svc.RenderCars(ctx, 3)
	if err != nil {
		t.Fatalf("RenderCars() error = %v", err)
	}
	if _, ok := mc.data[cache.ViewKey(ViewCars, 3)]; !ok {
		t.Fatal("rendered page not stored under view:cars:3")
	}
	second, err := svc.RenderCars(ctx, 3)
	if err != nil {
		t.Fatalf("RenderCars() error = %v", err)
	}
	if string(first) != string(second) {
		t.Error("cached page differs from rendered page")
	}
	if renderer.calls != 1 {
		t.Errorf("renderer calls = %d, want 1", renderer.calls)
	}
}

// Counts above the catalog size render the same page as the full catalog.
func TestPageService_RenderCars_KeyUsesEffectiveCount(t *testing.T) {
	renderer := newRenderer()
	mc := &mockCache{}
	svc := NewPageService(catalog.NewCarService(), renderer, mc, time.Minute)
	ctx := context.Background()

	if _, err := svc.RenderCars(ctx, 5); err != nil {
		t.Fatalf("RenderCars(5) error = %v", err)
	}
	if _, err := svc.RenderCars(ctx, 100); err != nil {
		t.Fatalf("RenderCars(100) error = %v", err)
	}
	if renderer.calls != 1 {
		t.Errorf("renderer calls = %d, want 1", renderer.calls)
	}
	if len(mc.data) != 1 {
		t.Errorf("cache entries = %d, want 1", len(mc.data))
	}
}

func TestPageService_RenderCars_CacheErrorsFallThrough(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	logger := zap.New(core)
	ctx := context.WithValue(context.Background(), "logger", logger)

	renderer := newRenderer()
	mc := &mockCache{getErr: errors.New("connection refused"), setErr: errors.New("timeout")}
	svc := NewPageService(catalog.NewCarService(), renderer, mc, time.Minute)

	page, err := svc.RenderCars(ctx, 1)
	if err != nil {
		t.Fatalf("RenderCars() error = %v", err)
	}
	if !strings.Contains(string(page), "L200") {
		t.Error("page missing L200")
	}
	if got := logs.FilterMessage("view cache get failed").Len(); got != 1 {
		t.Errorf("get-failure logs = %d, want 1", got)
	}
	if got := logs.FilterMessage("view cache set failed").Len(); got != 1 {
		t.Errorf("set-failure logs = %d, want 1", got)
	}
}

func TestPageService_RenderCars_RenderError(t *testing.T) {
	renderer := newRenderer()
	renderer.err = view.ErrTemplateNotFound
	mc := &mockCache{}
	svc := NewPageService(catalog.NewCarService(), renderer, mc, time.Minute)

	_, err := svc.RenderCars(context.Background(), 1)
	if !errors.Is(err, view.ErrTemplateNotFound) {
		t.Fatalf("RenderCars() error = %v, want ErrTemplateNotFound", err)
	}
	if mc.sets != 0 {
		t.Errorf("cache sets = %d, want 0 after render error", mc.sets)
	}
}

func TestPageService_RenderIndex(t *testing.T) {
	svc := NewPageService(catalog.NewCarService(), newRenderer(), cache.NewInMemoryCache(), time.Minute)
	page, err := svc.RenderIndex(context.Background())
	if err != nil {
		t.Fatalf("RenderIndex() error = %v", err)
	}
	if !strings.Contains(string(page), "The catalog holds 5 cars.") {
		t.Errorf("index page = %s", page)
	}
}

func TestNewPageService_NonPositiveTTLDisablesCache(t *testing.T) {
	renderer := newRenderer()
	mc := &mockCache{}
	svc := NewPageService(catalog.NewCarService(), renderer, mc, 0)
	_, _ = svc.RenderCars(context.Background(), 1)
	_, _ = svc.RenderCars(context.Background(), 1)
	if mc.sets != 0 {
		t.Errorf("cache sets = %d, want 0", mc.sets)
	}
	if renderer.calls != 2 {
		t.Errorf("renderer calls = %d, want 2", renderer.calls)
	}
}
