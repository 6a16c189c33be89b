package gdb

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// BlobStore holds raster bytes for workspaces that keep them outside the database.
type BlobStore interface {
	PutObject(ctx context.Context, bucket, key string, data []byte) error
	GetObject(ctx context.Context, bucket, key string) ([]byte, error)
	DeleteObject(ctx context.Context, bucket, key string) error
}

// Config selects and configures a workspace.
type Config struct {
	Kind string // registered workspace kind
	Path string // directory of a file geodatabase
	URL  string // connection URL of an enterprise geodatabase

	// Raster storage for enterprise geodatabases.
	Blobs      BlobStore
	BlobBucket string
	BlobPrefix string
}

// Factory opens a workspace from configuration.
type Factory func(ctx context.Context, cfg Config) (Workspace, error)

// Registry holds workspace factories indexed by kind.
type Registry struct {
	factories map[string]Factory
	mu        sync.RWMutex
}

// NewRegistry creates an empty workspace registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
	}
}

// Register adds a factory for the given kind.
// Panics if the kind is already registered.
func (r *Registry) Register(kind string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := strings.ToLower(kind)
	if _, exists := r.factories[key]; exists {
		panic(fmt.Sprintf("workspace factory already registered: %s", kind))
	}
	r.factories[key] = factory
}

// Get returns the factory for the given kind.
func (r *Registry) Get(kind string) (Factory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	factory, ok := r.factories[strings.ToLower(kind)]
	return factory, ok
}

// List returns all registered kinds, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	kinds := make([]string, 0, len(r.factories))
	for kind := range r.factories {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	return kinds
}

// Open instantiates a workspace from the given config.
func (r *Registry) Open(ctx context.Context, cfg Config) (Workspace, error) {
	factory, ok := r.Get(cfg.Kind)
	if !ok {
		return nil, fmt.Errorf("unknown workspace kind: %q", cfg.Kind)
	}
	return factory(ctx, cfg)
}

// --- Default Global Registry ---

var defaultRegistry = NewRegistry()

// DefaultRegistry returns the global workspace registry.
func DefaultRegistry() *Registry {
	return defaultRegistry
}

// Register adds a factory to the default registry.
func Register(kind string, factory Factory) {
	defaultRegistry.Register(kind, factory)
}

// Open instantiates a workspace from the default registry.
func Open(ctx context.Context, cfg Config) (Workspace, error) {
	return defaultRegistry.Open(ctx, cfg)
}
