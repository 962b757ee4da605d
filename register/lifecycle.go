package register

import (
	"fmt"
	"sync"
	"time"

	"registra.dev/registra/content"
	"registra.dev/registra/identity"
)

// FieldRule validates a single attribute before it is written. Rules are
// registered per resource type and consulted on every attribute update.
type FieldRule func(field string, v content.Value) error

// Manager applies lifecycle transitions and field updates to registers. All
// mutation goes through it: a register is never edited in place, and a
// rejected operation leaves the input untouched. Time is always supplied by
// the caller; the manager runs no clocks and no timers.
type Manager struct {
	mu    sync.RWMutex
	rules map[string]map[string]FieldRule
}

func NewManager() *Manager {
	return &Manager{rules: make(map[string]map[string]FieldRule)}
}

// RegisterFieldRule installs a validation rule for one attribute of one
// resource type. Installing again for the same field replaces the rule.
func (m *Manager) RegisterFieldRule(resourceType, field string, rule FieldRule) {
	m.mu.Lock()
	defer m.mu.Unlock()
	byField := m.rules[resourceType]
	if byField == nil {
		byField = make(map[string]FieldRule)
		m.rules[resourceType] = byField
	}
	byField[field] = rule
}

func (m *Manager) ruleFor(resourceType, field string) FieldRule {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.rules[resourceType][field]
}

// TransitionOptions carries the caller-supplied context of a transition.
// The lock fields are consulted only when the target phase is Locked, the
// deletion schedule only when it is PendingDeletion, the reason is recorded
// always and required when the target is Error.
type TransitionOptions struct {
	Now       time.Time
	Initiator identity.Identity
	Reason    string

	LockOperationID string
	LockExpiry      time.Time

	DeletionScheduledAt time.Time
}

// Transition moves reg to the target phase. The (from, to) pair must be in
// the transition table; Error is reachable from any non-terminal phase. On
// success the register's state, history, UpdatedAt and content hash are all
// replaced atomically. On any error reg is untouched.
func (m *Manager) Transition(reg *Register, to Phase, opts TransitionOptions) error {
	if reg == nil {
		return fmt.Errorf("%w: nil register", ErrInput)
	}
	if !opts.Initiator.Defined() || opts.Now.IsZero() {
		return fmt.Errorf("%w: initiator and time are required", ErrInput)
	}
	if !reg.VerifyContentHash() {
		return fmt.Errorf("%w: register %s", ErrContentHashMismatch, reg.ID)
	}

	from := reg.State.Phase
	if !CanTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidStateTransition, from, to)
	}

	// Leaving Locked means releasing the lock. Only the holder may do that
	// while the lock is live; an expired lock is releasable by anyone.
	if from == PhaseLocked && to != PhaseError && reg.State.BlocksMutation(opts.Initiator, opts.Now) {
		return fmt.Errorf("%w: lock %q held by %s", ErrLockConflict, reg.State.LockOperationID, reg.State.LockHolder)
	}

	next := State{Phase: to}
	switch to {
	case PhaseLocked:
		if opts.LockOperationID == "" {
			return fmt.Errorf("%w: locking requires an operation id", ErrInput)
		}
		next.LockOperationID = opts.LockOperationID
		next.LockHolder = opts.Initiator
		next.LockExpiry = opts.LockExpiry
	case PhasePendingDeletion:
		next.DeletionScheduledAt = opts.DeletionScheduledAt
	case PhaseError:
		if opts.Reason == "" {
			return fmt.Errorf("%w: an error transition requires a reason", ErrInput)
		}
		next.ErrorReason = opts.Reason
	}

	cp := reg.Clone()
	cp.State = next
	cp.History = append(cp.History, Transition{
		From:      from,
		To:        to,
		At:        opts.Now,
		Reason:    opts.Reason,
		Initiator: opts.Initiator,
	})
	cp.Temporal.UpdatedAt = opts.Now
	if err := cp.RecomputeHash(); err != nil {
		return err
	}
	*reg = *cp
	return nil
}

// MaybeTombstone finalizes a PendingDeletion register whose schedule has
// elapsed at now. It reports whether the transition happened; a register in
// any other phase, or whose schedule is still in the future, is left alone.
func (m *Manager) MaybeTombstone(reg *Register, initiator identity.Identity, now time.Time) (bool, error) {
	if reg == nil {
		return false, fmt.Errorf("%w: nil register", ErrInput)
	}
	if reg.State.Phase != PhasePendingDeletion {
		return false, nil
	}
	if !reg.State.DeletionScheduledAt.IsZero() && now.Before(reg.State.DeletionScheduledAt) {
		return false, nil
	}
	err := m.Transition(reg, PhaseTombstone, TransitionOptions{
		Now:       now,
		Initiator: initiator,
		Reason:    "deletion schedule elapsed",
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

// checkMutable decides whether initiator may edit fields in the current
// phase: Active always, Locked only for the lock holder or after the lock
// has expired. Every other phase forbids field mutation outright.
func checkMutable(reg *Register, initiator identity.Identity, now time.Time) error {
	switch reg.State.Phase {
	case PhaseActive:
		return nil
	case PhaseLocked:
		if reg.State.BlocksMutation(initiator, now) {
			return fmt.Errorf("%w: lock %q held by %s", ErrLockConflict, reg.State.LockOperationID, reg.State.LockHolder)
		}
		return nil
	default:
		return fmt.Errorf("%w: phase %s", ErrNotMutable, reg.State.Phase)
	}
}

// UpdateAttributes merges updates into the register's attributes. A Null
// value deletes the key. Field rules for the resource type run before any
// write, and the whole update is atomic: either every field lands together
// with the new hash, or the register is untouched.
func (m *Manager) UpdateAttributes(reg *Register, updates map[string]content.Value, initiator identity.Identity, now time.Time) error {
	return m.updateFields(reg, updates, initiator, now, true)
}

// UpdateMetadata merges updates into the register's metadata under the same
// phase rules as attributes. Metadata is free-form; field rules do not
// apply.
func (m *Manager) UpdateMetadata(reg *Register, updates map[string]content.Value, initiator identity.Identity, now time.Time) error {
	return m.updateFields(reg, updates, initiator, now, false)
}

func (m *Manager) updateFields(reg *Register, updates map[string]content.Value, initiator identity.Identity, now time.Time, attrs bool) error {
	if reg == nil {
		return fmt.Errorf("%w: nil register", ErrInput)
	}
	if !initiator.Defined() || now.IsZero() {
		return fmt.Errorf("%w: initiator and time are required", ErrInput)
	}
	if len(updates) == 0 {
		return nil
	}
	if !reg.VerifyContentHash() {
		return fmt.Errorf("%w: register %s", ErrContentHashMismatch, reg.ID)
	}
	if err := checkMutable(reg, initiator, now); err != nil {
		return err
	}
	if attrs {
		for field, v := range updates {
			rule := m.ruleFor(reg.ResourceType, field)
			if rule == nil {
				continue
			}
			if err := rule(field, v); err != nil {
				return fmt.Errorf("%w: field %q: %v", ErrValidation, field, err)
			}
		}
	}

	cp := reg.Clone()
	var target map[string]content.Value
	if attrs {
		if cp.Attributes == nil {
			cp.Attributes = make(map[string]content.Value, len(updates))
		}
		target = cp.Attributes
	} else {
		if cp.Metadata == nil {
			cp.Metadata = make(map[string]content.Value, len(updates))
		}
		target = cp.Metadata
	}
	for field, v := range updates {
		if v.Kind() == content.KindNull {
			delete(target, field)
			continue
		}
		target[field] = v
	}
	cp.Temporal.UpdatedAt = now
	if err := cp.RecomputeHash(); err != nil {
		return err
	}
	*reg = *cp
	return nil
}
