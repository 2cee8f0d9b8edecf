package plugin

import (
	"fmt"
	"sync"
)

// Registry collects plugin descriptors and derives their execution order.
// Built-in descriptors are registered first, user descriptors after, so user
// plugins run later within the same enforcement bucket.
type Registry struct {
	mu    sync.RWMutex
	list  []*Descriptor
	index map[string]int // name -> position in list
}

// NewRegistry creates a new empty registry.
func NewRegistry() *Registry {
	return &Registry{index: make(map[string]int)}
}

// Register adds a descriptor to the registry after validating it.
// Registering a name twice replaces the earlier descriptor in place, keeping
// its original position so the derived order stays deterministic.
func (r *Registry) Register(d *Descriptor) error {
	if err := d.Validate(); err != nil {
		return fmt.Errorf("invalid plugin descriptor: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if pos, exists := r.index[d.Name]; exists {
		r.list[pos] = d
		return nil
	}

	r.index[d.Name] = len(r.list)
	r.list = append(r.list, d)
	return nil
}

// Get retrieves a descriptor by name.
func (r *Registry) Get(name string) (*Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	pos, ok := r.index[name]
	if !ok {
		return nil, false
	}
	return r.list[pos], true
}

// Has reports whether a plugin with the given name is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.index[name]
	return ok
}

// Count returns the number of registered descriptors.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.list)
}

// Order derives the execution order for the given mode: descriptors whose
// Apply restriction excludes the mode are dropped, the rest are partitioned
// into pre, normal, post buckets with intra-bucket registration order
// preserved. The result is a fresh slice; the registry is not modified.
func (r *Registry) Order(mode Mode) []*Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var pre, normal, post []*Descriptor
	for _, d := range r.list {
		if !d.appliesTo(mode) {
			continue
		}
		switch d.Enforce {
		case EnforcePre:
			pre = append(pre, d)
		case EnforcePost:
			post = append(post, d)
		default:
			normal = append(normal, d)
		}
	}

	ordered := make([]*Descriptor, 0, len(pre)+len(normal)+len(post))
	ordered = append(ordered, pre...)
	ordered = append(ordered, normal...)
	ordered = append(ordered, post...)
	return ordered
}
