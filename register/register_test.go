package register

import (
	"errors"
	"testing"
	"time"

	"registra.dev/registra/capability"
	"registra.dev/registra/content"
	"registra.dev/registra/identity"
)

func testIdentity(t *testing.T, tag byte) identity.Identity {
	t.Helper()
	seed := make([]byte, 32)
	seed[0] = tag
	s, err := identity.NewEd25519Signer(seed)
	if err != nil {
		t.Fatalf("NewEd25519Signer: %v", err)
	}
	return s.Identity()
}

func testTime() time.Time {
	return time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
}

func TestDeterministicID(t *testing.T) {
	a, err := DeterministicID("document", "reports/q1")
	if err != nil {
		t.Fatalf("DeterministicID: %v", err)
	}
	b, err := DeterministicID("document", "reports/q1")
	if err != nil {
		t.Fatalf("DeterministicID: %v", err)
	}
	if a != b {
		t.Fatalf("same inputs produced different ids: %s vs %s", a, b)
	}
	c, err := DeterministicID("dataset", "reports/q1")
	if err != nil {
		t.Fatalf("DeterministicID: %v", err)
	}
	if a == c {
		t.Fatalf("resource type did not separate ids")
	}
}

func TestNew_StartsInitializingWithHash(t *testing.T) {
	owner := testIdentity(t, 1)
	r, err := New(NewID(), "document", owner, testTime())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if r.State.Phase != PhaseInitializing {
		t.Fatalf("phase = %s, want Initializing", r.State.Phase)
	}
	if !r.VerifyContentHash() {
		t.Fatalf("fresh register fails hash verification")
	}
	if _, err := New("", "document", owner, testTime()); !errors.Is(err, ErrInput) {
		t.Fatalf("missing id: got %v, want ErrInput", err)
	}
}

func TestCanTransition_Table(t *testing.T) {
	allowed := []struct{ from, to Phase }{
		{PhaseInitializing, PhaseActive},
		{PhaseActive, PhaseLocked},
		{PhaseActive, PhaseFrozen},
		{PhaseActive, PhaseMigrating},
		{PhaseActive, PhasePendingDeletion},
		{PhaseLocked, PhaseActive},
		{PhaseFrozen, PhaseActive},
		{PhaseMigrating, PhaseActive},
		{PhasePendingDeletion, PhaseTombstone},
		{PhaseInitializing, PhaseError},
		{PhaseFrozen, PhaseError},
		{PhasePendingDeletion, PhaseError},
	}
	for _, tc := range allowed {
		if !CanTransition(tc.from, tc.to) {
			t.Errorf("%s -> %s should be allowed", tc.from, tc.to)
		}
	}
	denied := []struct{ from, to Phase }{
		{PhaseInitializing, PhaseLocked},
		{PhaseActive, PhaseTombstone},
		{PhaseActive, PhaseInitializing},
		{PhaseLocked, PhaseFrozen},
		{PhaseFrozen, PhaseLocked},
		{PhaseTombstone, PhaseActive},
		{PhaseTombstone, PhaseError},
		{PhaseError, PhaseActive},
		{PhaseError, PhaseError},
		{Phase("Bogus"), PhaseActive},
		{PhaseActive, Phase("Bogus")},
	}
	for _, tc := range denied {
		if CanTransition(tc.from, tc.to) {
			t.Errorf("%s -> %s should be denied", tc.from, tc.to)
		}
	}
}

func TestVerifyContentHash_DetectsTamper(t *testing.T) {
	owner := testIdentity(t, 1)
	r, err := New(NewID(), "document", owner, testTime())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	r.Attributes["title"] = content.String("edited out of band")
	if r.VerifyContentHash() {
		t.Fatalf("tampered register passed hash verification")
	}
}

func TestBinaryRoundTrip(t *testing.T) {
	owner := testIdentity(t, 1)
	reader := testIdentity(t, 2)
	now := testTime()

	r, err := New(NewID(), "document", owner, now)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	r.Attributes["title"] = content.String("quarterly report")
	r.Attributes["pages"] = content.Int(42)
	r.Metadata["source"] = content.String("import")

	granted := capability.New(r.ID.String(), capability.KindRead, capability.UsageLimit(10))
	if err := granted.Seal(); err != nil {
		t.Fatalf("Seal: %v", err)
	}
	r.Capabilities.Granted = map[identity.Identity][]capability.Capability{
		reader: {granted},
	}
	r.Capabilities.Requirements = map[string][]capability.Kind{
		"update": {capability.KindWrite, capability.KindAdmin},
	}
	r.History = append(r.History, Transition{
		From: PhaseInitializing, To: PhaseActive, At: now, Initiator: owner,
	})
	r.State.Phase = PhaseActive
	if err := r.RecomputeHash(); err != nil {
		t.Fatalf("RecomputeHash: %v", err)
	}

	raw, err := r.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary: %v", err)
	}
	var got Register
	if err := got.UnmarshalBinary(raw); err != nil {
		t.Fatalf("UnmarshalBinary: %v", err)
	}
	if got.ContentHash != r.ContentHash {
		t.Fatalf("hash not preserved: %s vs %s", got.ContentHash, r.ContentHash)
	}
	if got.ID != r.ID || got.ResourceType != r.ResourceType || got.State.Phase != PhaseActive {
		t.Fatalf("fields not preserved")
	}
	if got.Capabilities.Granted[reader][0].ContentHash != granted.ContentHash {
		t.Fatalf("capability reference not preserved")
	}
	if len(got.History) != 1 || got.History[0].Initiator != owner {
		t.Fatalf("history not preserved")
	}
	raw2, err := got.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary: %v", err)
	}
	if string(raw) != string(raw2) {
		t.Fatalf("re-encoding not byte-identical")
	}
}

func TestUnmarshalBinary_RejectsWrongDomain(t *testing.T) {
	raw, err := content.Encode("capability", content.Int(1))
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	var r Register
	if err := r.UnmarshalBinary(raw); err == nil {
		t.Fatalf("foreign domain bytes should be rejected")
	}
}
