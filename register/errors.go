package register

import "errors"

var (
	// ErrInvalidStateTransition marks a (from, to) pair outside the
	// transition table. The register is left unchanged.
	ErrInvalidStateTransition = errors.New("register: invalid state transition")

	// ErrLockConflict marks a mutation attempt on a Locked register by an
	// initiator other than the lock holder while the lock is active.
	ErrLockConflict = errors.New("register: lock conflict")

	// ErrNotMutable marks a mutation attempt in a phase that forbids it
	// (Frozen, Migrating, PendingDeletion, Tombstone, Error, Initializing).
	ErrNotMutable = errors.New("register: phase forbids mutation")

	// ErrContentHashMismatch signals that a stored hash disagrees with
	// recomputation. This is a corruption signal and is never silently
	// repaired.
	ErrContentHashMismatch = errors.New("register: content hash mismatch")

	// ErrValidation marks an attribute or metadata update rejected by a
	// registered field rule.
	ErrValidation = errors.New("register: validation failed")

	// ErrInput marks malformed arguments.
	ErrInput = errors.New("register: invalid input")
)
