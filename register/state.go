package register

import (
	"time"

	"registra.dev/registra/identity"
)

// Phase is the lifecycle phase of a register. The set is closed; transition
// validity is decided exclusively by the transition table below.
type Phase string

const (
	PhaseInitializing    Phase = "Initializing"
	PhaseActive          Phase = "Active"
	PhaseLocked          Phase = "Locked"
	PhaseFrozen          Phase = "Frozen"
	PhaseMigrating       Phase = "Migrating"
	PhasePendingDeletion Phase = "PendingDeletion"
	PhaseTombstone       Phase = "Tombstone"
	PhaseError           Phase = "Error"
)

// State is the register's lifecycle state plus the per-phase payload:
// Locked carries the lock bookkeeping, PendingDeletion the deletion
// schedule, Error the failure reason. Fields outside the current phase stay
// zero.
type State struct {
	Phase Phase `json:"phase"`

	LockOperationID string            `json:"lockOperationId,omitempty"`
	LockHolder      identity.Identity `json:"lockHolder,omitempty"`
	LockExpiry      time.Time         `json:"lockExpiry,omitempty"`

	DeletionScheduledAt time.Time `json:"deletionScheduledAt,omitempty"`

	ErrorReason string `json:"errorReason,omitempty"`
}

// transitions is the closed transition table. Tombstone is terminal: it
// retains the id for replay and audit but forbids every further mutation,
// including the Error escape hatch.
var transitions = map[Phase][]Phase{
	PhaseInitializing:    {PhaseActive},
	PhaseActive:          {PhaseLocked, PhaseFrozen, PhaseMigrating, PhasePendingDeletion},
	PhaseLocked:          {PhaseActive},
	PhaseFrozen:          {PhaseActive},
	PhaseMigrating:       {PhaseActive},
	PhasePendingDeletion: {PhaseTombstone},
	PhaseTombstone:       nil,
	PhaseError:           nil,
}

// CanTransition reports whether from -> to is in the transition table.
// Every non-terminal phase may additionally fail into Error.
func CanTransition(from, to Phase) bool {
	if _, known := transitions[from]; !known {
		return false
	}
	if _, known := transitions[to]; !known {
		return false
	}
	if to == PhaseError {
		return from != PhaseTombstone && from != PhaseError
	}
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// LockActive reports whether the state is Locked and the lock has not
// expired at now. Expiry is a comparison against the caller-supplied time;
// the core runs no timers.
func (s State) LockActive(now time.Time) bool {
	if s.Phase != PhaseLocked {
		return false
	}
	if s.LockExpiry.IsZero() {
		return true
	}
	return !now.After(s.LockExpiry)
}

// BlocksMutation reports whether initiator is shut out by the lock.
func (s State) BlocksMutation(initiator identity.Identity, now time.Time) bool {
	return s.LockActive(now) && s.LockHolder != initiator
}

// Terminal reports whether no transition can ever leave the phase.
func (s State) Terminal() bool {
	return s.Phase == PhaseTombstone || s.Phase == PhaseError
}

// Transition is one entry of a register's state history.
type Transition struct {
	From      Phase             `json:"from"`
	To        Phase             `json:"to"`
	At        time.Time         `json:"at"`
	Reason    string            `json:"reason,omitempty"`
	Initiator identity.Identity `json:"initiator"`
}
