package task

import (
	"sort"
	"sync"

	"github.com/pkg/errors"
)

// Constructor builds a fresh exporter for one task.
type Constructor func(p Progress) Exporter

// Registry maps selectors to exporter constructors.
type Registry struct {
	mu    sync.RWMutex
	ctors map[Selector]Constructor
}

func NewRegistry() *Registry {
	return &Registry{ctors: make(map[Selector]Constructor)}
}

func (r *Registry) Register(sel Selector, ctor Constructor) error {
	if ctor == nil {
		return errors.Errorf("nil constructor for variant %q", sel)
	}
	if _, err := ParseSelector(string(sel)); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.ctors[sel]; ok {
		return errors.Wrapf(ErrDuplicateVariant, "%q", sel)
	}
	r.ctors[sel] = ctor
	return nil
}

func (r *Registry) Lookup(sel Selector) (Constructor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ctor, ok := r.ctors[sel]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownVariant, "%q", sel)
	}
	return ctor, nil
}

func (r *Registry) Selectors() []Selector {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sels := make([]Selector, 0, len(r.ctors))
	for sel := range r.ctors {
		sels = append(sels, sel)
	}
	sort.Slice(sels, func(i, j int) bool { return sels[i] < sels[j] })
	return sels
}
