// Package memstore is the in-memory Store backend, primarily for tests and
// single-process embedding.
package memstore

import (
	"fmt"
	"sync"

	"registra.dev/registra/content"
	"registra.dev/registra/register"
	"registra.dev/registra/storage"
)

// Store keeps registers in a map, deep-copied on both write and read so
// callers can never alias stored state. Safe for concurrent use.
type Store struct {
	mu   sync.RWMutex
	regs map[register.ID]*register.Register
}

var _ storage.Store = (*Store)(nil)

func New() *Store {
	return &Store{regs: make(map[register.ID]*register.Register)}
}

func (s *Store) Put(reg *register.Register) error {
	if reg == nil || !reg.ID.Defined() {
		return fmt.Errorf("%w: register with id is required", storage.ErrInput)
	}
	if !reg.VerifyContentHash() {
		return fmt.Errorf("%w: register %s fails hash verification", storage.ErrCorrupt, reg.ID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.regs[reg.ID]; ok {
		return fmt.Errorf("%w: %s", storage.ErrAlreadyExists, reg.ID)
	}
	s.regs[reg.ID] = reg.Clone()
	return nil
}

func (s *Store) Get(id register.ID) (*register.Register, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	reg, ok := s.regs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", storage.ErrNotFound, id)
	}
	return reg.Clone(), nil
}

func (s *Store) Update(reg *register.Register, expected content.Hash) error {
	if reg == nil || !reg.ID.Defined() {
		return fmt.Errorf("%w: register with id is required", storage.ErrInput)
	}
	if !reg.VerifyContentHash() {
		return fmt.Errorf("%w: register %s fails hash verification", storage.ErrCorrupt, reg.ID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.regs[reg.ID]
	if !ok {
		return fmt.Errorf("%w: %s", storage.ErrNotFound, reg.ID)
	}
	if stored.ContentHash != expected {
		return fmt.Errorf("%w: register %s is at %s, caller expected %s",
			storage.ErrHashConflict, reg.ID, stored.ContentHash, expected)
	}
	s.regs[reg.ID] = reg.Clone()
	return nil
}

func (s *Store) Has(id register.ID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.regs[id]
	return ok
}
