package core

import (
	"fmt"
	"sync"
	"time"

	apperrors "github.com/mvarner/imagechain/errors"
)

// Transform is one executable image transform.  It receives a native handle
// and the processing context and returns a handle (the same or a new one).
// Permitted side effects are limited to writing into the context's
// SaveOptions.
type Transform func(img Image, pc *Context) (Image, error)

// Factory builds a Transform that wraps the given downstream transform,
// optionally consuming positional integer arguments from the spec entry.
// Factories run at chain-build time, so argument errors fail fast before
// any image work happens.
type Factory func(next Transform, args []int) (Transform, error)

// Identity is the terminal transform wrapped by every chain.
func Identity(img Image, pc *Context) (Image, error) { return img, nil }

// Hook observes named processors as a built chain executes.
type Hook interface {
	BeforeProcessor(name string, img Image, pc *Context)
	AfterProcessor(name string, img Image, pc *Context, d time.Duration, err error)
}

// ── Registry ──────────────────────────────────────────────────────────────────

// Registry maps processor names to factories for one backend.  Each backend
// owns an independent registry.  Safe for concurrent use.
type Registry struct {
	backend   string
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry returns an empty registry for the named backend.
func NewRegistry(backend string) *Registry {
	return &Registry{
		backend:   backend,
		factories: make(map[string]Factory),
	}
}

// Backend returns the name of the backend this registry belongs to.
func (r *Registry) Backend() string { return r.backend }

// Register adds or replaces a processor factory.
func (r *Registry) Register(name string, f Factory) {
	r.mu.Lock()
	r.factories[name] = f
	r.mu.Unlock()
}

// Lookup returns the factory registered under name.
func (r *Registry) Lookup(name string) (Factory, bool) {
	r.mu.RLock()
	f, ok := r.factories[name]
	r.mu.RUnlock()
	return f, ok
}

// Names returns the registered processor names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for n := range r.factories {
		names = append(names, n)
	}
	return names
}

// ── Chain builder ─────────────────────────────────────────────────────────────

// Build composes an ordered processor specification into one executable
// transform.  The list is walked in reverse, each factory wrapping the
// handler built so far, so the composed transform executes processors in
// declared left-to-right order.  base defaults to Identity.  A spec entry
// naming an unregistered processor fails with a lookup error identifying
// the name and the backend.
func (r *Registry) Build(specs []Spec, base Transform) (Transform, error) {
	return r.BuildObserved(specs, base)
}

// BuildObserved is Build with per-processor hook callbacks wrapped around
// each named step.
func (r *Registry) BuildObserved(specs []Spec, base Transform, hooks ...Hook) (Transform, error) {
	handler := base
	if handler == nil {
		handler = Identity
	}

	for i := len(specs) - 1; i >= 0; i-- {
		spec := specs[i]
		factory, ok := r.Lookup(spec.Name)
		if !ok {
			return nil, apperrors.New(apperrors.CategoryLookup, "chain.build",
				fmt.Errorf("%w: %q (backend %s)", apperrors.ErrUnknownProcessor, spec.Name, r.backend))
		}
		wrapped, err := factory(handler, spec.Args)
		if err != nil {
			return nil, err
		}
		if len(hooks) > 0 {
			wrapped = observe(spec.Name, wrapped, hooks)
		}
		handler = wrapped
	}
	return handler, nil
}

func observe(name string, t Transform, hooks []Hook) Transform {
	return func(img Image, pc *Context) (Image, error) {
		for _, h := range hooks {
			h.BeforeProcessor(name, img, pc)
		}
		start := time.Now()
		out, err := t(img, pc)
		elapsed := time.Since(start)
		for _, h := range hooks {
			h.AfterProcessor(name, out, pc, elapsed, err)
		}
		return out, err
	}
}

// ── argument helpers ──────────────────────────────────────────────────────────

// SizeArgs validates the (width, height) argument pair used by crop and
// thumbnail factories.
func SizeArgs(name string, args []int) (int, int, error) {
	if len(args) != 2 || args[0] <= 0 || args[1] <= 0 {
		return 0, 0, apperrors.New(apperrors.CategoryInput, "chain.build",
			fmt.Errorf("%w: %s wants two positive dimensions, got %v",
				apperrors.ErrBadProcessorArgs, name, args))
	}
	return args[0], args[1], nil
}
