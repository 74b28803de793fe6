package plugin

import (
	"fmt"
	"sort"
	"sync"

	"firestige.xyz/pktsnap/internal/core"
)

// ReporterFactory creates a fresh, uninitialized reporter.
type ReporterFactory func() Reporter

// registry maps plugin names to factories of one plugin kind.
type registry[F any] struct {
	kind      string
	mu        sync.RWMutex
	factories map[string]F
}

func newRegistry[F any](kind string) *registry[F] {
	return &registry[F]{kind: kind, factories: make(map[string]F)}
}

// register panics on programmer errors: they surface at init time.
func (r *registry[F]) register(name string, f F, isNil bool) {
	if name == "" {
		panic(fmt.Sprintf("plugin: %s name is empty", r.kind))
	}
	if isNil {
		panic(fmt.Sprintf("plugin: %s %q factory is nil", r.kind, name))
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.factories[name]; dup {
		panic(fmt.Sprintf("plugin: %s %q registered twice", r.kind, name))
	}
	r.factories[name] = f
}

func (r *registry[F]) get(name string) (F, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.factories[name]
	return f, ok
}

func (r *registry[F]) list() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Reset removes every registration. Intended for tests.
func (r *registry[F]) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories = make(map[string]F)
}

var reporterReg = newRegistry[ReporterFactory]("reporter")

// RegisterReporter registers a reporter factory, typically from an init
// function. It panics on an empty name, a nil factory or a duplicate.
func RegisterReporter(name string, f ReporterFactory) {
	reporterReg.register(name, f, f == nil)
}

// GetReporterFactory returns the factory registered as name.
func GetReporterFactory(name string) (ReporterFactory, error) {
	f, ok := reporterReg.get(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", core.ErrReporterNotFound, name)
	}
	return f, nil
}

// ListReporters returns registered reporter names in sorted order.
func ListReporters() []string {
	return reporterReg.list()
}

// NewReporter creates and initializes the reporter registered as name.
func NewReporter(name string, cfg map[string]any) (Reporter, error) {
	factory, err := GetReporterFactory(name)
	if err != nil {
		return nil, err
	}
	r := factory()
	if err := r.Init(cfg); err != nil {
		return nil, fmt.Errorf("init reporter %s: %w", name, err)
	}
	return r, nil
}
