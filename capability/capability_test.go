package capability

import (
	"testing"
	"time"
)

func TestKindImplies(t *testing.T) {
	cases := []struct {
		held, req Kind
		want      bool
	}{
		{KindOwner, KindOwner, true},
		{KindOwner, KindWrite, true},
		{KindOwner, KindRead, true},
		{KindOwner, KindAdmin, true},
		{KindWrite, KindRead, true},
		{KindWrite, KindWrite, true},
		{KindWrite, KindOwner, false},
		{KindWrite, KindAdmin, false},
		{KindAdmin, KindRead, true},
		{KindAdmin, KindWrite, false},
		{KindRead, KindWrite, false},
		{Kind("transfer"), Kind("transfer"), true},
		{Kind("transfer"), KindRead, false},
		{KindOwner, Kind("transfer"), false},
	}
	for _, c := range cases {
		if got := c.held.Implies(c.req); got != c.want {
			t.Fatalf("%s implies %s: got %v, want %v", c.held, c.req, got, c.want)
		}
	}
}

func TestCapability_HashDeterministic(t *testing.T) {
	a := New("res-1", KindWrite, Operations("update", "transition"), UsageLimit(3))
	b := New("res-1", KindWrite, Operations("transition", "update"), UsageLimit(3))
	ha, err := a.ComputeHash()
	if err != nil {
		t.Fatalf("ComputeHash: %v", err)
	}
	hb, err := b.ComputeHash()
	if err != nil {
		t.Fatalf("ComputeHash: %v", err)
	}
	if ha != hb {
		t.Fatalf("operation set order changed the hash")
	}

	c := New("res-1", KindWrite, Operations("update"), UsageLimit(3))
	hc, err := c.ComputeHash()
	if err != nil {
		t.Fatalf("ComputeHash: %v", err)
	}
	if hc == ha {
		t.Fatalf("different constraints must hash differently")
	}
}

func TestCapability_VerifyContentHashDetectsTamper(t *testing.T) {
	c := New("res-1", KindRead)
	if err := c.Seal(); err != nil {
		t.Fatalf("Seal: %v", err)
	}
	if !c.VerifyContentHash() {
		t.Fatalf("sealed capability should verify")
	}
	c.Kind = KindOwner
	if c.VerifyContentHash() {
		t.Fatalf("tampered capability should not verify")
	}
}

func TestNarrows(t *testing.T) {
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	src := New("res-1", KindWrite,
		TimeWindow(base, base.Add(2*time.Hour)),
		Operations("update", "transition"),
		UsageLimit(10),
	)

	ok := []Capability{
		New("res-1", KindWrite, TimeWindow(base, base.Add(time.Hour)), Operations("update"), UsageLimit(5)),
		New("res-1", KindRead, TimeWindow(base.Add(time.Minute), base.Add(2*time.Hour)), Operations("update", "transition"), UsageLimit(10)),
	}
	for i, d := range ok {
		if !src.Narrows(d) {
			t.Fatalf("case %d: expected narrowing to be accepted", i)
		}
	}

	bad := []Capability{
		// widened kind
		New("res-1", KindOwner, TimeWindow(base, base.Add(time.Hour)), Operations("update"), UsageLimit(5)),
		// extended time window
		New("res-1", KindWrite, TimeWindow(base, base.Add(3*time.Hour)), Operations("update"), UsageLimit(5)),
		// unbounded end from bounded source
		New("res-1", KindWrite, TimeWindow(base, time.Time{}), Operations("update"), UsageLimit(5)),
		// operation superset
		New("res-1", KindWrite, TimeWindow(base, base.Add(time.Hour)), Operations("update", "transition", "delete"), UsageLimit(5)),
		// dropped constraint
		New("res-1", KindWrite, TimeWindow(base, base.Add(time.Hour)), Operations("update")),
		// increased usage budget
		New("res-1", KindWrite, TimeWindow(base, base.Add(time.Hour)), Operations("update"), UsageLimit(11)),
		// different target
		New("res-2", KindWrite, TimeWindow(base, base.Add(time.Hour)), Operations("update"), UsageLimit(5)),
	}
	for i, d := range bad {
		if src.Narrows(d) {
			t.Fatalf("case %d: expected widening to be rejected", i)
		}
	}
}

func TestNarrows_FieldConstraint(t *testing.T) {
	src := New("res-1", KindWrite, Fields([]string{"a", "b"}, []string{"secret"}))

	if !src.Narrows(New("res-1", KindWrite, Fields([]string{"a"}, []string{"secret", "more"}))) {
		t.Fatalf("shrinking allowed set and growing denied set should narrow")
	}
	if src.Narrows(New("res-1", KindWrite, Fields([]string{"a", "b", "c"}, []string{"secret"}))) {
		t.Fatalf("growing allowed set must be rejected")
	}
	if src.Narrows(New("res-1", KindWrite, Fields([]string{"a"}, nil))) {
		t.Fatalf("dropping a source denial must be rejected")
	}
}
