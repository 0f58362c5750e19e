// Package registry maps workflow-type identifiers to plugin constructors.
//
// The registry is purely a factory directory: it holds no orchestration
// state, so a process could share one instance safely. It is still built as
// an explicitly constructed, injected object rather than a module-level
// singleton so tests can run independent registries in parallel.
package registry

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/orchd/internal/engine"
)

// ErrUnknownType is returned by Create for an identifier that was never
// registered.
var ErrUnknownType = errors.New("unknown workflow type")

// Constructor builds a fresh plugin instance for one trial run.
type Constructor func() (engine.Plugin, error)

// Registry is the workflow-type directory.
type Registry struct {
	mu           sync.RWMutex
	logger       *zap.Logger
	constructors map[string]Constructor
}

// New creates an empty registry. A nil logger falls back to a no-op logger.
func New(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		logger:       logger.Named("registry"),
		constructors: make(map[string]Constructor),
	}
}

// Register binds id to a constructor. Re-registering overwrites with a
// warning: last write wins, which is acceptable because registration
// happens once at process start, not under load.
func (r *Registry) Register(id string, constructor Constructor) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.constructors[id]; exists {
		r.logger.Warn("overwriting registered workflow type", zap.String("id", id))
	}
	r.constructors[id] = constructor
}

// Create instantiates a plugin for the given workflow type. A missing id
// is a hard error naming the unknown id.
func (r *Registry) Create(id string) (engine.Plugin, error) {
	r.mu.RLock()
	constructor, ok := r.constructors[id]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, id)
	}
	return constructor()
}

// IDs returns the registered workflow types in sorted order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.constructors))
	for id := range r.constructors {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Clear resets the directory. Used for test isolation.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.constructors = make(map[string]Constructor)
}
