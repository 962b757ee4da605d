package content

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"sort"
)

// ValueKind discriminates the closed Value union.
type ValueKind uint8

const (
	KindNull ValueKind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindBytes
	KindList
	KindMap
	KindHash
)

func (k ValueKind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindBytes:
		return "bytes"
	case KindList:
		return "list"
	case KindMap:
		return "map"
	case KindHash:
		return "hash"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Value is the dynamic value type carried by register attributes and
// metadata. It is a closed union: the kind set is fixed so canonical
// encoding can match exhaustively.
type Value struct {
	kind ValueKind
	b    bool
	i    int64
	f    float64
	s    string
	by   []byte
	list []Value
	m    map[string]Value
	h    Hash
}

func Null() Value              { return Value{kind: KindNull} }
func Bool(v bool) Value        { return Value{kind: KindBool, b: v} }
func Int(v int64) Value        { return Value{kind: KindInt, i: v} }
func Float(v float64) Value    { return Value{kind: KindFloat, f: v} }
func String(v string) Value    { return Value{kind: KindString, s: v} }
func Bytes(v []byte) Value     { return Value{kind: KindBytes, by: append([]byte(nil), v...)} }
func List(vs ...Value) Value   { return Value{kind: KindList, list: append([]Value(nil), vs...)} }
func HashRef(h Hash) Value     { return Value{kind: KindHash, h: h} }

// Map copies m into a map value. Iteration order never matters: the
// canonical encoder sorts keys.
func Map(m map[string]Value) Value {
	cp := make(map[string]Value, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return Value{kind: KindMap, m: cp}
}

func (v Value) Kind() ValueKind { return v.kind }

func (v Value) AsBool() (bool, bool)     { return v.b, v.kind == KindBool }
func (v Value) AsInt() (int64, bool)     { return v.i, v.kind == KindInt }
func (v Value) AsFloat() (float64, bool) { return v.f, v.kind == KindFloat }
func (v Value) AsString() (string, bool) { return v.s, v.kind == KindString }
func (v Value) AsHash() (Hash, bool)     { return v.h, v.kind == KindHash }

func (v Value) AsBytes() ([]byte, bool) {
	if v.kind != KindBytes {
		return nil, false
	}
	return append([]byte(nil), v.by...), true
}

func (v Value) AsList() ([]Value, bool) {
	if v.kind != KindList {
		return nil, false
	}
	return append([]Value(nil), v.list...), true
}

func (v Value) AsMap() (map[string]Value, bool) {
	if v.kind != KindMap {
		return nil, false
	}
	cp := make(map[string]Value, len(v.m))
	for k, e := range v.m {
		cp[k] = e
	}
	return cp, true
}

// Equal reports deep logical equality.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindBool:
		return v.b == o.b
	case KindInt:
		return v.i == o.i
	case KindFloat:
		return v.f == o.f
	case KindString:
		return v.s == o.s
	case KindBytes:
		return string(v.by) == string(o.by)
	case KindHash:
		return v.h == o.h
	case KindList:
		if len(v.list) != len(o.list) {
			return false
		}
		for i := range v.list {
			if !v.list[i].Equal(o.list[i]) {
				return false
			}
		}
		return true
	case KindMap:
		if len(v.m) != len(o.m) {
			return false
		}
		for k, e := range v.m {
			oe, ok := o.m[k]
			if !ok || !e.Equal(oe) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// jsonValue is the debug-oriented JSON form: {"t": <kind>, "v": <payload>}.
type jsonValue struct {
	T string          `json:"t"`
	V json.RawMessage `json:"v,omitempty"`
}

func (v Value) MarshalJSON() ([]byte, error) {
	var payload any
	switch v.kind {
	case KindNull:
		return json.Marshal(jsonValue{T: "null"})
	case KindBool:
		payload = v.b
	case KindInt:
		payload = v.i
	case KindFloat:
		payload = v.f
	case KindString:
		payload = v.s
	case KindBytes:
		payload = base64.StdEncoding.EncodeToString(v.by)
	case KindHash:
		payload = string(v.h)
	case KindList:
		payload = v.list
	case KindMap:
		// Emit keys sorted so JSON output is stable for snapshots and diffs.
		keys := make([]string, 0, len(v.m))
		for k := range v.m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		ordered := make([]json.RawMessage, 0, len(keys))
		for _, k := range keys {
			kb, err := json.Marshal(k)
			if err != nil {
				return nil, err
			}
			vb, err := json.Marshal(v.m[k])
			if err != nil {
				return nil, err
			}
			ordered = append(ordered, json.RawMessage(`{"k":`+string(kb)+`,"v":`+string(vb)+`}`))
		}
		payload = ordered
	default:
		return nil, fmt.Errorf("content: unknown kind %d", v.kind)
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(jsonValue{T: v.kind.String(), V: raw})
}

func (v *Value) UnmarshalJSON(b []byte) error {
	var jv jsonValue
	if err := json.Unmarshal(b, &jv); err != nil {
		return err
	}
	switch jv.T {
	case "null":
		*v = Null()
		return nil
	case "bool":
		var x bool
		if err := json.Unmarshal(jv.V, &x); err != nil {
			return err
		}
		*v = Bool(x)
		return nil
	case "int":
		var x int64
		if err := json.Unmarshal(jv.V, &x); err != nil {
			return err
		}
		*v = Int(x)
		return nil
	case "float":
		var x float64
		if err := json.Unmarshal(jv.V, &x); err != nil {
			return err
		}
		*v = Float(x)
		return nil
	case "string":
		var x string
		if err := json.Unmarshal(jv.V, &x); err != nil {
			return err
		}
		*v = String(x)
		return nil
	case "bytes":
		var x string
		if err := json.Unmarshal(jv.V, &x); err != nil {
			return err
		}
		raw, err := base64.StdEncoding.DecodeString(x)
		if err != nil {
			return err
		}
		*v = Value{kind: KindBytes, by: raw}
		return nil
	case "hash":
		var x string
		if err := json.Unmarshal(jv.V, &x); err != nil {
			return err
		}
		*v = HashRef(Hash(x))
		return nil
	case "list":
		var xs []Value
		if err := json.Unmarshal(jv.V, &xs); err != nil {
			return err
		}
		*v = Value{kind: KindList, list: xs}
		return nil
	case "map":
		var pairs []struct {
			K string `json:"k"`
			V Value  `json:"v"`
		}
		if err := json.Unmarshal(jv.V, &pairs); err != nil {
			return err
		}
		m := make(map[string]Value, len(pairs))
		for _, p := range pairs {
			m[p.K] = p.V
		}
		*v = Value{kind: KindMap, m: m}
		return nil
	default:
		return fmt.Errorf("content: unknown value tag %q", jv.T)
	}
}
