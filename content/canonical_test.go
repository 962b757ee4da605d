package content

import (
	"errors"
	"math"
	"strings"
	"testing"
)

func TestEncode_MapOrderIndependent(t *testing.T) {
	a := Map(map[string]Value{"alpha": Int(1), "beta": String("x"), "gamma": Bool(true)})

	// Build the same logical map through a different insertion order.
	m := make(map[string]Value)
	m["gamma"] = Bool(true)
	m["beta"] = String("x")
	m["alpha"] = Int(1)
	b := Map(m)

	ba, err := Encode("test", a)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	bb, err := Encode("test", b)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if string(ba) != string(bb) {
		t.Fatalf("canonical bytes differ across insertion orders")
	}
}

func TestEncode_DomainSeparation(t *testing.T) {
	v := String("payload")
	a, err := Encode("register", v)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	b, err := Encode("capability", v)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if string(a) == string(b) {
		t.Fatalf("expected distinct bytes for distinct domains")
	}
	if HashBytes(a) == HashBytes(b) {
		t.Fatalf("expected distinct hashes for distinct domains")
	}
}

func TestEncode_RejectsNonFiniteFloats(t *testing.T) {
	for _, f := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		_, err := Encode("test", Float(f))
		if !errors.Is(err, ErrSerialization) {
			t.Fatalf("float %v: expected ErrSerialization, got %v", f, err)
		}
	}
}

func TestEncode_RejectsInvalidUTF8(t *testing.T) {
	_, err := Encode("test", String(string([]byte{0xff, 0xfe})))
	if !errors.Is(err, ErrSerialization) {
		t.Fatalf("expected ErrSerialization, got %v", err)
	}
}

func TestEncode_NegativeZeroNormalized(t *testing.T) {
	a, err := Encode("test", Float(0))
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	b, err := Encode("test", Float(math.Copysign(0, -1)))
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if string(a) != string(b) {
		t.Fatalf("0.0 and -0.0 should encode identically")
	}
}

func TestCalculateHash_Deterministic(t *testing.T) {
	v := Map(map[string]Value{
		"name":  String("res-1"),
		"count": Int(42),
		"tags":  List(String("a"), String("b")),
	})
	h1, err := CalculateHash("register", v)
	if err != nil {
		t.Fatalf("CalculateHash: %v", err)
	}
	h2, err := CalculateHash("register", v)
	if err != nil {
		t.Fatalf("CalculateHash: %v", err)
	}
	if h1 != h2 {
		t.Fatalf("hash not deterministic: %s vs %s", h1, h2)
	}
	if !strings.HasPrefix(h1.String(), "bafk") {
		t.Fatalf("expected CIDv1 raw sha2-256 prefix, got %s", h1)
	}
}

func TestCalculateHash_NestedChildFoldsByHash(t *testing.T) {
	child := Map(map[string]Value{"inner": Int(7)})
	childHash, err := CalculateHash("child", child)
	if err != nil {
		t.Fatalf("CalculateHash: %v", err)
	}

	parentA := Map(map[string]Value{"child": HashRef(childHash)})
	parentB := Map(map[string]Value{"child": child})

	ha, err := CalculateHash("parent", parentA)
	if err != nil {
		t.Fatalf("CalculateHash: %v", err)
	}
	hb, err := CalculateHash("parent", parentB)
	if err != nil {
		t.Fatalf("CalculateHash: %v", err)
	}
	if ha == hb {
		t.Fatalf("hash-folded child must not encode like inlined child")
	}
}

func TestVerifyHash(t *testing.T) {
	v := List(Int(1), Int(2))
	h, err := CalculateHash("test", v)
	if err != nil {
		t.Fatalf("CalculateHash: %v", err)
	}
	if !VerifyHash("test", v, h) {
		t.Fatalf("expected verify true")
	}
	if VerifyHash("test", List(Int(1), Int(3)), h) {
		t.Fatalf("expected verify false for changed value")
	}
	if VerifyHash("other", v, h) {
		t.Fatalf("expected verify false under different domain")
	}
	if VerifyHash("test", v, "") {
		t.Fatalf("expected verify false for undefined hash")
	}
}
