package content

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sort"
	"unicode/utf8"
)

// ErrSerialization marks values that cannot be canonically encoded
// (NaN/Inf floats, invalid UTF-8 where strings are required).
var ErrSerialization = errors.New("content: serialization")

// Canonical encoding is a tag-length-value byte form. One byte of kind tag,
// then a fixed or uvarint-length-prefixed payload. Lists preserve element
// order; maps are sorted by key bytes. Hash values contribute the multibase
// string of their CID, which is how nested content-addressed children fold
// into a parent without re-hashing their raw fields.
const (
	tagNull   byte = 0x00
	tagBool   byte = 0x01
	tagInt    byte = 0x02
	tagFloat  byte = 0x03
	tagString byte = 0x04
	tagBytes  byte = 0x05
	tagList   byte = 0x06
	tagMap    byte = 0x07
	tagHash   byte = 0x08
)

// Encode returns the canonical bytes of v under the given type-domain tag.
//
// The domain tag is written first as "registra/<domain>/v1" followed by a
// zero byte, so identical value encodings under different domains never
// produce the same bytes.
func Encode(domain string, v Value) ([]byte, error) {
	if domain == "" {
		return nil, fmt.Errorf("%w: empty domain tag", ErrSerialization)
	}
	buf := make([]byte, 0, 128)
	buf = append(buf, "registra/"...)
	buf = append(buf, domain...)
	buf = append(buf, "/v1"...)
	buf = append(buf, 0)
	return appendValue(buf, v)
}

func appendValue(buf []byte, v Value) ([]byte, error) {
	switch v.kind {
	case KindNull:
		return append(buf, tagNull), nil

	case KindBool:
		if v.b {
			return append(buf, tagBool, 1), nil
		}
		return append(buf, tagBool, 0), nil

	case KindInt:
		buf = append(buf, tagInt)
		var be [8]byte
		binary.BigEndian.PutUint64(be[:], uint64(v.i))
		return append(buf, be[:]...), nil

	case KindFloat:
		if math.IsNaN(v.f) || math.IsInf(v.f, 0) {
			return nil, fmt.Errorf("%w: non-finite float", ErrSerialization)
		}
		// Normalize negative zero so 0.0 and -0.0 hash identically.
		f := v.f
		if f == 0 {
			f = 0
		}
		buf = append(buf, tagFloat)
		var be [8]byte
		binary.BigEndian.PutUint64(be[:], math.Float64bits(f))
		return append(buf, be[:]...), nil

	case KindString:
		if !utf8.ValidString(v.s) {
			return nil, fmt.Errorf("%w: invalid UTF-8 string", ErrSerialization)
		}
		buf = append(buf, tagString)
		buf = binary.AppendUvarint(buf, uint64(len(v.s)))
		return append(buf, v.s...), nil

	case KindBytes:
		buf = append(buf, tagBytes)
		buf = binary.AppendUvarint(buf, uint64(len(v.by)))
		return append(buf, v.by...), nil

	case KindHash:
		if !v.h.Defined() {
			return nil, fmt.Errorf("%w: undefined hash", ErrSerialization)
		}
		buf = append(buf, tagHash)
		buf = binary.AppendUvarint(buf, uint64(len(v.h)))
		return append(buf, v.h...), nil

	case KindList:
		buf = append(buf, tagList)
		buf = binary.AppendUvarint(buf, uint64(len(v.list)))
		var err error
		for _, e := range v.list {
			buf, err = appendValue(buf, e)
			if err != nil {
				return nil, err
			}
		}
		return buf, nil

	case KindMap:
		buf = append(buf, tagMap)
		buf = binary.AppendUvarint(buf, uint64(len(v.m)))
		keys := make([]string, 0, len(v.m))
		for k := range v.m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var err error
		for _, k := range keys {
			if !utf8.ValidString(k) {
				return nil, fmt.Errorf("%w: invalid UTF-8 map key", ErrSerialization)
			}
			buf = binary.AppendUvarint(buf, uint64(len(k)))
			buf = append(buf, k...)
			buf, err = appendValue(buf, v.m[k])
			if err != nil {
				return nil, err
			}
		}
		return buf, nil

	default:
		return nil, fmt.Errorf("%w: unknown kind %d", ErrSerialization, v.kind)
	}
}
