package content

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Decode parses canonical bytes produced by Encode under the same domain.
// Trailing bytes and unknown tags are rejected; Decode(Encode(v)) always
// yields a value whose re-encoding is byte-identical.
func Decode(domain string, b []byte) (Value, error) {
	prefix := "registra/" + domain + "/v1\x00"
	if len(b) < len(prefix) || string(b[:len(prefix)]) != prefix {
		return Value{}, fmt.Errorf("%w: wrong or missing domain tag", ErrSerialization)
	}
	v, rest, err := decodeValue(b[len(prefix):])
	if err != nil {
		return Value{}, err
	}
	if len(rest) != 0 {
		return Value{}, fmt.Errorf("%w: %d trailing bytes", ErrSerialization, len(rest))
	}
	return v, nil
}

func decodeValue(b []byte) (Value, []byte, error) {
	if len(b) == 0 {
		return Value{}, nil, fmt.Errorf("%w: truncated value", ErrSerialization)
	}
	tag := b[0]
	b = b[1:]

	switch tag {
	case tagNull:
		return Null(), b, nil

	case tagBool:
		if len(b) < 1 {
			return Value{}, nil, fmt.Errorf("%w: truncated bool", ErrSerialization)
		}
		return Bool(b[0] != 0), b[1:], nil

	case tagInt:
		if len(b) < 8 {
			return Value{}, nil, fmt.Errorf("%w: truncated int", ErrSerialization)
		}
		return Int(int64(binary.BigEndian.Uint64(b[:8]))), b[8:], nil

	case tagFloat:
		if len(b) < 8 {
			return Value{}, nil, fmt.Errorf("%w: truncated float", ErrSerialization)
		}
		f := math.Float64frombits(binary.BigEndian.Uint64(b[:8]))
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return Value{}, nil, fmt.Errorf("%w: non-finite float", ErrSerialization)
		}
		return Float(f), b[8:], nil

	case tagString:
		s, rest, err := decodeLenPrefixed(b)
		if err != nil {
			return Value{}, nil, err
		}
		return String(string(s)), rest, nil

	case tagBytes:
		raw, rest, err := decodeLenPrefixed(b)
		if err != nil {
			return Value{}, nil, err
		}
		return Bytes(raw), rest, nil

	case tagHash:
		raw, rest, err := decodeLenPrefixed(b)
		if err != nil {
			return Value{}, nil, err
		}
		h, err := ParseHash(string(raw))
		if err != nil {
			return Value{}, nil, fmt.Errorf("%w: %v", ErrSerialization, err)
		}
		return HashRef(h), rest, nil

	case tagList:
		n, rest, err := decodeUvarint(b)
		if err != nil {
			return Value{}, nil, err
		}
		list := make([]Value, 0, n)
		for i := uint64(0); i < n; i++ {
			var e Value
			e, rest, err = decodeValue(rest)
			if err != nil {
				return Value{}, nil, err
			}
			list = append(list, e)
		}
		return Value{kind: KindList, list: list}, rest, nil

	case tagMap:
		n, rest, err := decodeUvarint(b)
		if err != nil {
			return Value{}, nil, err
		}
		m := make(map[string]Value, n)
		prev := ""
		for i := uint64(0); i < n; i++ {
			var kb []byte
			kb, rest, err = decodeLenPrefixed(rest)
			if err != nil {
				return Value{}, nil, err
			}
			key := string(kb)
			if i > 0 && key <= prev {
				return Value{}, nil, fmt.Errorf("%w: map keys out of order", ErrSerialization)
			}
			prev = key
			var e Value
			e, rest, err = decodeValue(rest)
			if err != nil {
				return Value{}, nil, err
			}
			m[key] = e
		}
		return Value{kind: KindMap, m: m}, rest, nil

	default:
		return Value{}, nil, fmt.Errorf("%w: unknown tag 0x%02x", ErrSerialization, tag)
	}
}

func decodeUvarint(b []byte) (uint64, []byte, error) {
	x, n := binary.Uvarint(b)
	if n <= 0 {
		return 0, nil, fmt.Errorf("%w: bad uvarint", ErrSerialization)
	}
	return x, b[n:], nil
}

func decodeLenPrefixed(b []byte) ([]byte, []byte, error) {
	n, rest, err := decodeUvarint(b)
	if err != nil {
		return nil, nil, err
	}
	if uint64(len(rest)) < n {
		return nil, nil, fmt.Errorf("%w: truncated payload", ErrSerialization)
	}
	return rest[:n], rest[n:], nil
}
