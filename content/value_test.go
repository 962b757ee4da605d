package content

import (
	"encoding/json"
	"testing"
)

func TestValue_JSONRoundTrip(t *testing.T) {
	v := Map(map[string]Value{
		"null":   Null(),
		"bool":   Bool(true),
		"int":    Int(-12),
		"float":  Float(1.5),
		"string": String("hello"),
		"bytes":  Bytes([]byte{1, 2, 3}),
		"hash":   HashRef(HashBytes([]byte("x"))),
		"list":   List(Int(1), String("two")),
	})

	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var got Value
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !v.Equal(got) {
		t.Fatalf("round trip mismatch:\n%s", b)
	}

	// Canonical bytes must survive the JSON round trip too.
	want, err := Encode("test", v)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	have, err := Encode("test", got)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if string(want) != string(have) {
		t.Fatalf("canonical bytes changed across JSON round trip")
	}
}

func TestValue_MapJSONStable(t *testing.T) {
	v := Map(map[string]Value{"b": Int(2), "a": Int(1), "c": Int(3)})
	first, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	for i := 0; i < 16; i++ {
		again, err := json.Marshal(v)
		if err != nil {
			t.Fatalf("Marshal: %v", err)
		}
		if string(first) != string(again) {
			t.Fatalf("map JSON output not stable")
		}
	}
}

func TestValue_Accessors(t *testing.T) {
	if _, ok := Int(1).AsString(); ok {
		t.Fatalf("int should not read as string")
	}
	s, ok := String("x").AsString()
	if !ok || s != "x" {
		t.Fatalf("AsString: got %q, %v", s, ok)
	}
	if Int(1).Kind() != KindInt {
		t.Fatalf("Kind mismatch")
	}
}
