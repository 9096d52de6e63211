package view

import (
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"strings"
	"sync"
)

// DefaultPrefix and DefaultSuffix locate templates inside the embedded pages FS.
const (
	DefaultPrefix = "pages/"
	DefaultSuffix = ".html"
)

//go:embed pages/*.html
var pagesFS embed.FS

var (
	// ErrInvalidViewName is returned for empty names and names that escape the template root.
	ErrInvalidViewName = errors.New("invalid view name")
	// ErrTemplateNotFound is returned when the resolved template file does not exist.
	ErrTemplateNotFound = errors.New("template not found")
	// ErrNoViewResolver is returned by Registry.Render when nothing is registered.
	ErrNoViewResolver = errors.New("no view resolver registered")
)

// Config holds the template location convention and caching switch.
type Config struct {
	Prefix string
	Suffix string
	// Cache keeps parsed templates after first use. Disable to pick up edits without restart.
	Cache bool
}

// DefaultConfig returns the configuration used for the embedded pages.
func DefaultConfig() Config {
	return Config{Prefix: DefaultPrefix, Suffix: DefaultSuffix, Cache: true}
}

// Pages returns the embedded template filesystem.
func Pages() fs.FS {
	return pagesFS
}

// Resolver maps logical view names to template paths.
type Resolver struct {
	prefix string
	suffix string
}

// NewResolver returns a Resolver for cfg.
func NewResolver(cfg Config) *Resolver {
	return &Resolver{prefix: cfg.Prefix, suffix: cfg.Suffix}
}

// Resolve returns prefix + name + suffix. The result is always a valid fs.FS path.
func (r *Resolver) Resolve(name string) (string, error) {
	if strings.TrimSpace(name) == "" || strings.Contains(name, "..") || strings.HasPrefix(name, "/") {
		return "", fmt.Errorf("%w: %q", ErrInvalidViewName, name)
	}
	p := r.prefix + name + r.suffix
	if !fs.ValidPath(p) {
		return "", fmt.Errorf("%w: %q", ErrInvalidViewName, name)
	}
	return p, nil
}

// Renderer renders a named view to w.
type Renderer interface {
	Render(w io.Writer, name string, data any) error
}

// Engine renders html/template files found through a Resolver.
type Engine struct {
	resolver *Resolver
	fsys     fs.FS
	cache    bool

	mu     sync.Mutex
	parsed map[string]*template.Template
}

// NewEngine returns an Engine reading templates from fsys. A nil fsys uses the embedded pages.
func NewEngine(resolver *Resolver, fsys fs.FS, cache bool) *Engine {
	if fsys == nil {
		fsys = pagesFS
	}
	return &Engine{
		resolver: resolver,
		fsys:     fsys,
		cache:    cache,
		parsed:   make(map[string]*template.Template),
	}
}

// Render executes the template for name with data.
func (e *Engine) Render(w io.Writer, name string, data any) error {
	tmpl, err := e.lookup(name)
	if err != nil {
		return err
	}
	if err := tmpl.Execute(w, data); err != nil {
		return fmt.Errorf("render %s: %w", name, err)
	}
	return nil
}

func (e *Engine) lookup(name string) (*template.Template, error) {
	path, err := e.resolver.Resolve(name)
	if err != nil {
		return nil, err
	}
	if e.cache {
		e.mu.Lock()
		defer e.mu.Unlock()
		if t, ok := e.parsed[path]; ok {
			return t, nil
		}
	}
	t, err := e.parse(path)
	if err != nil {
		return nil, err
	}
	if e.cache {
		e.parsed[path] = t
	}
	return t, nil
}

func (e *Engine) parse(path string) (*template.Template, error) {
	if _, err := fs.Stat(e.fsys, path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrTemplateNotFound, path)
		}
		return nil, fmt.Errorf("stat template %s: %w", path, err)
	}
	t, err := template.ParseFS(e.fsys, path)
	if err != nil {
		return nil, fmt.Errorf("parse template %s: %w", path, err)
	}
	return t, nil
}

// Registry is the ordered set of renderers the HTTP layer consults.
// The first renderer that knows the view wins.
type Registry struct {
	mu        sync.RWMutex
	renderers []Renderer
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register appends r to the resolution order.
func (reg *Registry) Register(r Renderer) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	reg.renderers = append(reg.renderers, r)
}

// Render renders name with the first renderer that has it.
func (reg *Registry) Render(w io.Writer, name string, data any) error {
	reg.mu.RLock()
	renderers := reg.renderers
	reg.mu.RUnlock()
	if len(renderers) == 0 {
		return ErrNoViewResolver
	}
	var lastErr error
	for _, r := range renderers {
		err := r.Render(w, name, data)
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrTemplateNotFound) {
			return err
		}
		lastErr = err
	}
	return lastErr
}

// New wires a Resolver and Engine for cfg and registers the engine with a new Registry.
func New(cfg Config, fsys fs.FS) *Registry {
	reg := NewRegistry()
	reg.Register(NewEngine(NewResolver(cfg), fsys, cfg.Cache))
	return reg
}
