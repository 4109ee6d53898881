package loaders

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/custodia-labs/recall/internal/adapters/driven/loaders/markdown"
	"github.com/custodia-labs/recall/internal/adapters/driven/loaders/pdf"
	"github.com/custodia-labs/recall/internal/adapters/driven/loaders/plaintext"
	"github.com/custodia-labs/recall/internal/core/domain"
	"github.com/custodia-labs/recall/internal/core/ports/driven"
)

// Ensure Registry implements the interface.
var _ driven.LoaderRegistry = (*Registry)(nil)

// Registry maps document types to loaders.
type Registry struct {
	mu      sync.RWMutex
	loaders map[domain.DocType]driven.Loader
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{loaders: make(map[domain.DocType]driven.Loader)}
}

// Default returns a registry with the plaintext, markdown and pdf loaders.
// runner executes the pdftotext fallback; nil uses the real executable.
func Default(runner driven.CommandRunner) *Registry {
	r := NewRegistry()
	r.Register(plaintext.New())
	r.Register(markdown.New())
	r.Register(pdf.New(runner))
	return r
}

// Register adds a loader, replacing any loader for the same type.
func (r *Registry) Register(loader driven.Loader) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loaders[loader.Type()] = loader
}

// Supports reports whether path has a registered loader.
func (r *Registry) Supports(path string) bool {
	_, ok := r.lookup(path)
	return ok
}

// Types returns the registered document types in sorted order.
func (r *Registry) Types() []domain.DocType {
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]domain.DocType, 0, len(r.loaders))
	for t := range r.loaders {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

// Load extracts text from path using the loader for its extension.
func (r *Registry) Load(ctx context.Context, path string) (*domain.LoadedDocument, error) {
	loader, ok := r.lookup(path)
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedType, path)
	}
	return loader.Load(ctx, path)
}

func (r *Registry) lookup(path string) (driven.Loader, bool) {
	docType, ok := domain.DocTypeFromPath(path)
	if !ok {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	loader, ok := r.loaders[docType]
	return loader, ok
}
