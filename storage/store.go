package storage

import (
	"encoding/binary"
	"fmt"

	"registra.dev/registra/content"
	"registra.dev/registra/register"
)

// Store persists registers keyed by id.
//
// Contract:
// - Put MUST reject an id that is already present with ErrAlreadyExists.
// - Get MUST return ErrNotFound when the id is absent.
// - Update MUST compare the stored register's content hash against the
//   caller's expected hash and fail with ErrHashConflict on mismatch; the
//   hash is the register's version token, so this is the store's optimistic
//   concurrency check.
// - A register whose recorded hash does not survive recomputation MUST be
//   refused on write and reported as ErrCorrupt on read, never repaired.
type Store interface {
	Put(reg *register.Register) error
	Get(id register.ID) (*register.Register, error)
	Update(reg *register.Register, expected content.Hash) error
	Has(id register.ID) bool
}

// EncodeRecord frames a verified register for persistence: the recorded
// content hash, length-prefixed, followed by the canonical bytes. The
// explicit hash lets every backend detect at-rest corruption on read.
func EncodeRecord(reg *register.Register) ([]byte, error) {
	if reg == nil {
		return nil, fmt.Errorf("%w: nil register", ErrInput)
	}
	if !reg.VerifyContentHash() {
		return nil, fmt.Errorf("%w: register %s fails hash verification", ErrCorrupt, reg.ID)
	}
	body, err := reg.MarshalBinary()
	if err != nil {
		return nil, err
	}
	hash := reg.ContentHash.String()
	out := binary.AppendUvarint(nil, uint64(len(hash)))
	out = append(out, hash...)
	out = append(out, body...)
	return out, nil
}

// DecodeRecord parses a framed record and verifies that the decoded
// register's recomputed hash matches the recorded one.
func DecodeRecord(b []byte) (*register.Register, error) {
	n, read := binary.Uvarint(b)
	if read <= 0 || uint64(len(b)-read) < n {
		return nil, fmt.Errorf("%w: truncated record header", ErrCorrupt)
	}
	recorded := content.Hash(b[read : read+int(n)])
	body := b[read+int(n):]

	var reg register.Register
	if err := reg.UnmarshalBinary(body); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if reg.ContentHash != recorded {
		return nil, fmt.Errorf("%w: recorded hash %s, recomputed %s", ErrCorrupt, recorded, reg.ContentHash)
	}
	return &reg, nil
}
