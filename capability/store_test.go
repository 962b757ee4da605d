package capability

import (
	"bytes"
	"testing"
	"time"
)

func TestStoreSnapshot_RoundTrip(t *testing.T) {
	m := NewManager(NewStore())
	alice, bob, carol := signer(t, 1), signer(t, 2), signer(t, 3)
	now := time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC)

	root, err := m.CreateRootDelegation(New("res-1", KindOwner), alice, alice.Identity())
	if err != nil {
		t.Fatalf("CreateRootDelegation: %v", err)
	}
	toBob, err := m.Delegate(root.ID, New("res-1", KindWrite, UsageLimit(5)), alice, bob.Identity(), now)
	if err != nil {
		t.Fatalf("Delegate to bob: %v", err)
	}
	toCarol, err := m.Delegate(toBob.ID, New("res-1", KindWrite, UsageLimit(2)), bob, carol.Identity(), now)
	if err != nil {
		t.Fatalf("Delegate to carol: %v", err)
	}
	if ok, err := m.Authorize(bob.Identity(), "res-1", KindWrite, alice.Identity(), Request{Now: now}); err != nil || !ok {
		t.Fatalf("Authorize: ok=%v err=%v", ok, err)
	}
	if err := m.Revoke(toCarol.ID, alice, alice.Identity(), now); err != nil {
		t.Fatalf("Revoke: %v", err)
	}

	data, err := m.Store().Snapshot()
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}

	restored, err := RestoreStore(data)
	if err != nil {
		t.Fatalf("RestoreStore: %v", err)
	}
	m2 := NewManager(restored)

	ok, err := m2.Verify(bob.Identity(), "res-1", KindWrite, alice.Identity(), Request{Now: now})
	if err != nil || !ok {
		t.Fatalf("bob after restore: ok=%v err=%v", ok, err)
	}
	if ok, _ := m2.Verify(carol.Identity(), "res-1", KindWrite, alice.Identity(), Request{Now: now}); ok {
		t.Fatalf("carol's revocation did not survive the snapshot")
	}
	if got := restored.UseCount(toBob.ID); got != 1 {
		t.Fatalf("usage counter = %d, want 1", got)
	}

	// The snapshot is deterministic.
	again, err := restored.Snapshot()
	if err != nil {
		t.Fatalf("second Snapshot: %v", err)
	}
	if !bytes.Equal(data, again) {
		t.Fatalf("snapshot is not stable across a restore cycle")
	}
}

func TestRestoreStore_RejectsTamper(t *testing.T) {
	m := NewManager(NewStore())
	alice := signer(t, 1)
	if _, err := m.CreateRootDelegation(New("res-1", KindOwner), alice, alice.Identity()); err != nil {
		t.Fatalf("CreateRootDelegation: %v", err)
	}
	data, err := m.Store().Snapshot()
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}

	// Widen the stored kind without re-signing.
	tampered := bytes.Replace(data, []byte(`"kind":"Owner"`), []byte(`"kind":"Admin"`), 1)
	if bytes.Equal(tampered, data) {
		t.Fatalf("tamper did not apply")
	}
	if _, err := RestoreStore(tampered); !IsKind(err, ErrKindInput) {
		t.Fatalf("expected Input error for tampered snapshot, got %v", err)
	}
}
