package content

import (
	"errors"
	"testing"
)

func TestDecode_RoundTrip(t *testing.T) {
	v := Map(map[string]Value{
		"id":    String("res-1"),
		"count": Int(-3),
		"ratio": Float(0.25),
		"raw":   Bytes([]byte{0, 1, 2}),
		"ref":   HashRef(HashBytes([]byte("child"))),
		"tags":  List(String("a"), Bool(false), Null()),
	})
	enc, err := Encode("test", v)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := Decode("test", enc)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !v.Equal(got) {
		t.Fatalf("decoded value differs")
	}
	enc2, err := Encode("test", got)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if string(enc) != string(enc2) {
		t.Fatalf("re-encoding not byte-identical")
	}
}

func TestDecode_WrongDomainRejected(t *testing.T) {
	enc, err := Encode("alpha", Int(1))
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if _, err := Decode("beta", enc); !errors.Is(err, ErrSerialization) {
		t.Fatalf("expected ErrSerialization, got %v", err)
	}
}

func TestDecode_MalformedInputs(t *testing.T) {
	enc, err := Encode("test", List(Int(1), String("x")))
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	// Truncations at every prefix must error, never panic.
	for i := 1; i < len(enc); i++ {
		if _, err := Decode("test", enc[:i]); err == nil {
			t.Fatalf("truncation at %d should error", i)
		}
	}
	// Trailing garbage is rejected.
	if _, err := Decode("test", append(append([]byte(nil), enc...), 0x00)); err == nil {
		t.Fatalf("trailing bytes should error")
	}
}
