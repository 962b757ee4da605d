package localfs

import (
	"errors"
	"os"
	"testing"
	"time"

	"registra.dev/registra/identity"
	"registra.dev/registra/register"
	"registra.dev/registra/storage"
	"registra.dev/registra/storage/testkit"
)

func TestLocalFS_Conformance(t *testing.T) {
	testkit.RunStoreConformance(t, func(t *testing.T) storage.Store {
		t.Helper()
		dir := t.TempDir()
		store, err := New(dir)
		if err != nil {
			t.Fatalf("New failed: %v", err)
		}
		return store
	})
}

func TestLocalFS_DetectsOnDiskCorruption(t *testing.T) {
	dir := t.TempDir()
	store, err := New(dir)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	seed := make([]byte, 32)
	signer, err := identity.NewEd25519Signer(seed)
	if err != nil {
		t.Fatalf("NewEd25519Signer failed: %v", err)
	}
	reg, err := register.New("res-1", "document", signer.Identity(),
		time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("register.New failed: %v", err)
	}
	if err := store.Put(reg); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	// Flip bytes in the stored record out-of-band.
	path := store.pathFor(reg.ID)
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	b[len(b)-1] ^= 0xff
	if err := os.WriteFile(path, b, 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	// Get must surface corruption, never repair it.
	if _, err := store.Get(reg.ID); !errors.Is(err, storage.ErrCorrupt) {
		t.Fatalf("Get corrupted: got %v want ErrCorrupt", err)
	}
}
