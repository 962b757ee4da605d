package register

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"registra.dev/registra/content"
	"registra.dev/registra/identity"
)

func activeRegister(t *testing.T, owner identity.Identity, now time.Time) (*Manager, *Register) {
	t.Helper()
	m := NewManager()
	r, err := New(NewID(), "document", owner, now)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	err = m.Transition(r, PhaseActive, TransitionOptions{Now: now, Initiator: owner})
	if err != nil {
		t.Fatalf("Transition to Active: %v", err)
	}
	return m, r
}

func TestTransition_RecordsHistoryAndRehashes(t *testing.T) {
	owner := testIdentity(t, 1)
	now := testTime()
	_, r := activeRegister(t, owner, now)

	if r.State.Phase != PhaseActive {
		t.Fatalf("phase = %s, want Active", r.State.Phase)
	}
	if len(r.History) != 1 {
		t.Fatalf("history length = %d, want 1", len(r.History))
	}
	h := r.History[0]
	if h.From != PhaseInitializing || h.To != PhaseActive || h.Initiator != owner {
		t.Fatalf("unexpected history entry %+v", h)
	}
	if !r.VerifyContentHash() {
		t.Fatalf("hash stale after transition")
	}
}

func TestTransition_RejectionLeavesRegisterUntouched(t *testing.T) {
	owner := testIdentity(t, 1)
	now := testTime()
	m, r := activeRegister(t, owner, now)
	before := r.ContentHash

	err := m.Transition(r, PhaseTombstone, TransitionOptions{Now: now, Initiator: owner})
	if !errors.Is(err, ErrInvalidStateTransition) {
		t.Fatalf("got %v, want ErrInvalidStateTransition", err)
	}
	if r.ContentHash != before || r.State.Phase != PhaseActive || len(r.History) != 1 {
		t.Fatalf("rejected transition mutated the register")
	}
}

func TestTransition_TamperedRegisterRefused(t *testing.T) {
	owner := testIdentity(t, 1)
	now := testTime()
	m, r := activeRegister(t, owner, now)

	r.Attributes["x"] = content.Int(1) // out-of-band edit
	err := m.Transition(r, PhaseFrozen, TransitionOptions{Now: now, Initiator: owner})
	if !errors.Is(err, ErrContentHashMismatch) {
		t.Fatalf("got %v, want ErrContentHashMismatch", err)
	}
}

func TestTransition_ErrorRequiresReasonAndIsTerminal(t *testing.T) {
	owner := testIdentity(t, 1)
	now := testTime()
	m, r := activeRegister(t, owner, now)

	err := m.Transition(r, PhaseError, TransitionOptions{Now: now, Initiator: owner})
	if !errors.Is(err, ErrInput) {
		t.Fatalf("reasonless error transition: got %v, want ErrInput", err)
	}
	err = m.Transition(r, PhaseError, TransitionOptions{Now: now, Initiator: owner, Reason: "checksum scrub failed"})
	if err != nil {
		t.Fatalf("Transition to Error: %v", err)
	}
	if r.State.ErrorReason != "checksum scrub failed" {
		t.Fatalf("reason not recorded")
	}
	err = m.Transition(r, PhaseActive, TransitionOptions{Now: now, Initiator: owner})
	if !errors.Is(err, ErrInvalidStateTransition) {
		t.Fatalf("Error phase should be terminal, got %v", err)
	}
}

func TestLocking_BlocksOthersUntilExpiry(t *testing.T) {
	owner := testIdentity(t, 1)
	other := testIdentity(t, 2)
	now := testTime()
	m, r := activeRegister(t, owner, now)

	err := m.Transition(r, PhaseLocked, TransitionOptions{
		Now:             now,
		Initiator:       owner,
		LockOperationID: "op-7",
		LockExpiry:      now.Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("lock: %v", err)
	}
	if r.State.LockHolder != owner || r.State.LockOperationID != "op-7" {
		t.Fatalf("lock bookkeeping not recorded: %+v", r.State)
	}

	upd := map[string]content.Value{"title": content.String("draft")}

	// A live lock shuts out everyone but the holder, for field updates and
	// for the unlock itself.
	if err := m.UpdateAttributes(r, upd, other, now.Add(time.Minute)); !errors.Is(err, ErrLockConflict) {
		t.Fatalf("other under live lock: got %v, want ErrLockConflict", err)
	}
	err = m.Transition(r, PhaseActive, TransitionOptions{Now: now.Add(time.Minute), Initiator: other})
	if !errors.Is(err, ErrLockConflict) {
		t.Fatalf("unlock by other: got %v, want ErrLockConflict", err)
	}
	if err := m.UpdateAttributes(r, upd, owner, now.Add(time.Minute)); err != nil {
		t.Fatalf("holder under own lock: %v", err)
	}

	// After expiry the lock no longer binds.
	after := now.Add(2 * time.Hour)
	if err := m.UpdateAttributes(r, map[string]content.Value{"rev": content.Int(2)}, other, after); err != nil {
		t.Fatalf("other after expiry: %v", err)
	}
	err = m.Transition(r, PhaseActive, TransitionOptions{Now: after, Initiator: other})
	if err != nil {
		t.Fatalf("unlock after expiry: %v", err)
	}
	if r.State.LockOperationID != "" || r.State.LockHolder.Defined() || !r.State.LockExpiry.IsZero() {
		t.Fatalf("lock bookkeeping not cleared on unlock: %+v", r.State)
	}
}

func TestUpdateAttributes_PhaseRules(t *testing.T) {
	owner := testIdentity(t, 1)
	now := testTime()
	m, r := activeRegister(t, owner, now)
	upd := map[string]content.Value{"title": content.String("x")}

	for _, phase := range []Phase{PhaseFrozen, PhaseMigrating, PhasePendingDeletion} {
		cp := r.Clone()
		err := m.Transition(cp, phase, TransitionOptions{Now: now, Initiator: owner})
		if err != nil {
			t.Fatalf("Transition to %s: %v", phase, err)
		}
		if err := m.UpdateAttributes(cp, upd, owner, now); !errors.Is(err, ErrNotMutable) {
			t.Errorf("update in %s: got %v, want ErrNotMutable", phase, err)
		}
	}
}

func TestUpdateAttributes_FieldRulesAndNullDelete(t *testing.T) {
	owner := testIdentity(t, 1)
	now := testTime()
	m, r := activeRegister(t, owner, now)

	m.RegisterFieldRule("document", "pages", func(field string, v content.Value) error {
		if v.Kind() != content.KindInt && v.Kind() != content.KindNull {
			return fmt.Errorf("%s must be an integer", field)
		}
		return nil
	})

	err := m.UpdateAttributes(r, map[string]content.Value{"pages": content.String("ten")}, owner, now)
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("got %v, want ErrValidation", err)
	}
	if _, ok := r.Attributes["pages"]; ok {
		t.Fatalf("rejected update wrote a field")
	}

	err = m.UpdateAttributes(r, map[string]content.Value{
		"pages": content.Int(10),
		"title": content.String("ok"),
	}, owner, now)
	if err != nil {
		t.Fatalf("UpdateAttributes: %v", err)
	}
	if !r.VerifyContentHash() {
		t.Fatalf("hash stale after update")
	}

	err = m.UpdateAttributes(r, map[string]content.Value{"title": content.Null()}, owner, now)
	if err != nil {
		t.Fatalf("UpdateAttributes: %v", err)
	}
	if _, ok := r.Attributes["title"]; ok {
		t.Fatalf("null update did not delete the field")
	}
}

func TestMaybeTombstone(t *testing.T) {
	owner := testIdentity(t, 1)
	now := testTime()
	m, r := activeRegister(t, owner, now)

	err := m.Transition(r, PhasePendingDeletion, TransitionOptions{
		Now:                 now,
		Initiator:           owner,
		DeletionScheduledAt: now.Add(24 * time.Hour),
	})
	if err != nil {
		t.Fatalf("Transition: %v", err)
	}

	done, err := m.MaybeTombstone(r, owner, now.Add(time.Hour))
	if err != nil || done {
		t.Fatalf("before schedule: done=%v err=%v", done, err)
	}
	done, err = m.MaybeTombstone(r, owner, now.Add(25*time.Hour))
	if err != nil {
		t.Fatalf("MaybeTombstone: %v", err)
	}
	if !done || r.State.Phase != PhaseTombstone {
		t.Fatalf("schedule elapsed but register not tombstoned")
	}
	if !r.ID.Defined() {
		t.Fatalf("tombstone lost the register id")
	}
	// Idempotent once terminal.
	done, err = m.MaybeTombstone(r, owner, now.Add(26*time.Hour))
	if err != nil || done {
		t.Fatalf("tombstoned register: done=%v err=%v", done, err)
	}
}
