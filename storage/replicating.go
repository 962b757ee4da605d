package storage

import (
	"fmt"

	"registra.dev/registra/content"
	"registra.dev/registra/register"
)

// NamedStore associates a Store with a stable backend name, for callers that
// orchestrate several backends and need per-backend reporting.
type NamedStore struct {
	Name  string
	Store Store
}

// Replicating writes every register to all configured backends. Reads fall
// back in slice order, so the first backend is authoritative for staleness.
// A write that fails part-way leaves earlier backends written; the content
// hash check on the next Update surfaces the divergence.
type Replicating struct {
	Backends []NamedStore
}

var _ Store = (*Replicating)(nil)

func (r Replicating) Put(reg *register.Register) error {
	if len(r.Backends) == 0 {
		return fmt.Errorf("%w: replicating store has no backends", ErrInput)
	}
	for _, b := range r.Backends {
		if b.Store == nil {
			return fmt.Errorf("%w: nil store for backend %q", ErrInput, b.Name)
		}
		if err := b.Store.Put(reg); err != nil {
			return fmt.Errorf("backend %q: %w", b.Name, err)
		}
	}
	return nil
}

func (r Replicating) Get(id register.ID) (*register.Register, error) {
	for _, b := range r.Backends {
		if b.Store == nil {
			continue
		}
		reg, err := b.Store.Get(id)
		if err == nil {
			return reg, nil
		}
		if !IsNotFound(err) {
			return nil, fmt.Errorf("backend %q: %w", b.Name, err)
		}
	}
	return nil, ErrNotFound
}

func (r Replicating) Update(reg *register.Register, expected content.Hash) error {
	if len(r.Backends) == 0 {
		return fmt.Errorf("%w: replicating store has no backends", ErrInput)
	}
	for _, b := range r.Backends {
		if b.Store == nil {
			return fmt.Errorf("%w: nil store for backend %q", ErrInput, b.Name)
		}
		if err := b.Store.Update(reg, expected); err != nil {
			return fmt.Errorf("backend %q: %w", b.Name, err)
		}
	}
	return nil
}

func (r Replicating) Has(id register.ID) bool {
	for _, b := range r.Backends {
		if b.Store != nil && b.Store.Has(id) {
			return true
		}
	}
	return false
}
