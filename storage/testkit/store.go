// Package testkit runs the Store conformance suite against any backend.
package testkit

import (
	"errors"
	"testing"
	"time"

	"registra.dev/registra/content"
	"registra.dev/registra/identity"
	"registra.dev/registra/register"
	"registra.dev/registra/storage"
)

// NewStore constructs a fresh, empty Store instance for a test.
// The returned Store MUST be isolated from other tests.
type NewStore func(t *testing.T) storage.Store

func testRegister(t *testing.T, id register.ID) *register.Register {
	t.Helper()
	seed := make([]byte, 32)
	seed[0] = 7
	signer, err := identity.NewEd25519Signer(seed)
	if err != nil {
		t.Fatalf("NewEd25519Signer failed: %v", err)
	}
	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	reg, err := register.New(id, "document", signer.Identity(), now)
	if err != nil {
		t.Fatalf("register.New failed: %v", err)
	}
	return reg
}

func RunStoreConformance(t *testing.T, newStore NewStore) {
	t.Helper()

	t.Run("PutGetRoundTrip", func(t *testing.T) {
		store := newStore(t)
		want := testRegister(t, "res-round-trip")

		if err := store.Put(want); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
		got, err := store.Get(want.ID)
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if got.ContentHash != want.ContentHash {
			t.Fatalf("Get hash mismatch: got %s want %s", got.ContentHash, want.ContentHash)
		}
		if !got.VerifyContentHash() {
			t.Fatalf("Get returned register failing hash verification")
		}
	})

	t.Run("PutRejectsDuplicateID", func(t *testing.T) {
		store := newStore(t)
		reg := testRegister(t, "res-dup")

		if err := store.Put(reg); err != nil {
			t.Fatalf("Put(1) failed: %v", err)
		}
		if err := store.Put(reg); !errors.Is(err, storage.ErrAlreadyExists) {
			t.Fatalf("Put(2): got err=%v want ErrAlreadyExists", err)
		}
	})

	t.Run("HasAndNotFound", func(t *testing.T) {
		store := newStore(t)
		if store.Has("res-missing") {
			t.Fatalf("Has returned true for missing id")
		}
		if _, err := store.Get("res-missing"); !storage.IsNotFound(err) {
			t.Fatalf("Get missing: got err=%v want ErrNotFound", err)
		}

		reg := testRegister(t, "res-present")
		if err := store.Put(reg); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
		if !store.Has(reg.ID) {
			t.Fatalf("Has returned false after Put")
		}
	})

	t.Run("UpdateChecksVersionToken", func(t *testing.T) {
		store := newStore(t)
		reg := testRegister(t, "res-update")
		if err := store.Put(reg); err != nil {
			t.Fatalf("Put failed: %v", err)
		}

		v1 := reg.ContentHash
		next := reg.Clone()
		next.Attributes["rev"] = content.Int(2)
		if err := next.RecomputeHash(); err != nil {
			t.Fatalf("RecomputeHash failed: %v", err)
		}

		if err := store.Update(next, "stale-hash"); !errors.Is(err, storage.ErrHashConflict) {
			t.Fatalf("Update stale: got err=%v want ErrHashConflict", err)
		}
		if err := store.Update(next, v1); err != nil {
			t.Fatalf("Update failed: %v", err)
		}
		got, err := store.Get(reg.ID)
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if got.ContentHash != next.ContentHash {
			t.Fatalf("Update did not persist: got %s want %s", got.ContentHash, next.ContentHash)
		}
		// The old token no longer matches.
		if err := store.Update(next, v1); !errors.Is(err, storage.ErrHashConflict) {
			t.Fatalf("Update replay: got err=%v want ErrHashConflict", err)
		}
	})

	t.Run("UpdateMissingIsNotFound", func(t *testing.T) {
		store := newStore(t)
		reg := testRegister(t, "res-update-missing")
		if err := store.Update(reg, reg.ContentHash); !storage.IsNotFound(err) {
			t.Fatalf("Update missing: got err=%v want ErrNotFound", err)
		}
	})

	t.Run("RejectsUnverifiableRegister", func(t *testing.T) {
		store := newStore(t)
		reg := testRegister(t, "res-tampered")
		reg.Attributes["x"] = content.Int(1)

		if err := store.Put(reg); err == nil {
			t.Fatalf("Put should refuse a register failing hash verification")
		}
	})
}
