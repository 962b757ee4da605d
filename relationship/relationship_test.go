package relationship

import (
	"errors"
	"testing"
	"time"

	"registra.dev/registra/content"
	"registra.dev/registra/register"
)

var testNow = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

func TestCreateAndLookup(t *testing.T) {
	tr := NewTracker()
	id, err := tr.CreateRelationship("res-a", "res-b", KindDependency,
		map[string]content.Value{"reason": content.String("schema import")}, testNow)
	if err != nil {
		t.Fatalf("CreateRelationship: %v", err)
	}
	if !tr.HasRelationship("res-a", "res-b", KindDependency) {
		t.Fatalf("edge not found after create")
	}
	if tr.HasRelationship("res-b", "res-a", KindDependency) {
		t.Fatalf("edges are directed; reverse lookup should be false")
	}
	rel, err := tr.Get(id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if rel.Source != "res-a" || rel.Target != "res-b" || rel.Kind != KindDependency {
		t.Fatalf("unexpected relationship %+v", rel)
	}
	if got, _ := rel.Metadata["reason"].AsString(); got != "schema import" {
		t.Fatalf("metadata not preserved")
	}
}

func TestCreate_RejectsBadInput(t *testing.T) {
	tr := NewTracker()
	if _, err := tr.CreateRelationship("", "res-b", KindMirror, nil, testNow); !errors.Is(err, ErrInput) {
		t.Fatalf("missing source: got %v", err)
	}
	if _, err := tr.CreateRelationship("res-a", "res-a", KindMirror, nil, testNow); !errors.Is(err, ErrInput) {
		t.Fatalf("self edge: got %v", err)
	}
	if _, err := tr.CreateRelationship("res-a", "res-b", KindMirror, nil, testNow); err != nil {
		t.Fatalf("CreateRelationship: %v", err)
	}
	if _, err := tr.CreateRelationship("res-a", "res-b", KindMirror, nil, testNow); !errors.Is(err, ErrInput) {
		t.Fatalf("duplicate edge: got %v", err)
	}
}

func TestOwnership_OneOwnerPerTarget(t *testing.T) {
	tr := NewTracker()
	if _, err := tr.CreateRelationship("owner-1", "res-x", KindOwnership, nil, testNow); err != nil {
		t.Fatalf("CreateRelationship: %v", err)
	}
	// A second owner for the same target breaks the default rule; the same
	// owner may still own other targets.
	if _, err := tr.CreateRelationship("owner-2", "res-x", KindOwnership, nil, testNow); !errors.Is(err, ErrCardinality) {
		t.Fatalf("second owner: got %v, want ErrCardinality", err)
	}
	if _, err := tr.CreateRelationship("owner-1", "res-y", KindOwnership, nil, testNow); err != nil {
		t.Fatalf("one-to-many from owner: %v", err)
	}
}

func TestSetCardinality_BindsCustomKinds(t *testing.T) {
	tr := NewTracker()
	tr.SetCardinality(Kind("replica-of"), Cardinality{MaxOutgoing: 2})

	for _, target := range []register.ID{"res-1", "res-2"} {
		if _, err := tr.CreateRelationship("res-0", target, "replica-of", nil, testNow); err != nil {
			t.Fatalf("CreateRelationship: %v", err)
		}
	}
	if _, err := tr.CreateRelationship("res-0", "res-3", "replica-of", nil, testNow); !errors.Is(err, ErrCardinality) {
		t.Fatalf("third replica edge: got %v, want ErrCardinality", err)
	}
}

func TestFindRelated_Directions(t *testing.T) {
	tr := NewTracker()
	mustCreate := func(src, dst register.ID) {
		t.Helper()
		if _, err := tr.CreateRelationship(src, dst, KindDependency, nil, testNow); err != nil {
			t.Fatalf("CreateRelationship: %v", err)
		}
	}
	mustCreate("hub", "res-b")
	mustCreate("hub", "res-a")
	mustCreate("res-c", "hub")

	if got := tr.FindRelated("hub", KindDependency, DirectionOutgoing); len(got) != 2 || got[0] != "res-a" || got[1] != "res-b" {
		t.Fatalf("outgoing = %v", got)
	}
	if got := tr.FindRelated("hub", KindDependency, DirectionIncoming); len(got) != 1 || got[0] != "res-c" {
		t.Fatalf("incoming = %v", got)
	}
	if got := tr.FindRelated("hub", KindDependency, DirectionBoth); len(got) != 3 {
		t.Fatalf("both = %v", got)
	}
	if got := tr.FindRelated("hub", KindMirror, DirectionBoth); got != nil {
		t.Fatalf("wrong kind should be empty, got %v", got)
	}
}

func TestDeleteRelationship(t *testing.T) {
	tr := NewTracker()
	id, err := tr.CreateRelationship("owner-1", "res-x", KindOwnership, nil, testNow)
	if err != nil {
		t.Fatalf("CreateRelationship: %v", err)
	}
	if err := tr.DeleteRelationship(id); err != nil {
		t.Fatalf("DeleteRelationship: %v", err)
	}
	if tr.HasRelationship("owner-1", "res-x", KindOwnership) {
		t.Fatalf("edge survived deletion")
	}
	if err := tr.DeleteRelationship(id); !errors.Is(err, ErrNotFound) {
		t.Fatalf("double delete: got %v, want ErrNotFound", err)
	}
	// Deleting the owner edge frees the cardinality slot.
	if _, err := tr.CreateRelationship("owner-2", "res-x", KindOwnership, nil, testNow); err != nil {
		t.Fatalf("re-own after delete: %v", err)
	}
}
