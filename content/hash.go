package content

import (
	"errors"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
)

// Hash is the string form of a CIDv1 (raw codec + sha2-256 multihash)
// derived from canonical bytes. The zero value is undefined.
type Hash string

var ErrInvalidHash = errors.New("content: invalid hash")

func (h Hash) Defined() bool { return h != "" }

func (h Hash) String() string { return string(h) }

// ParseHash validates s as a CID and returns it as a Hash.
func ParseHash(s string) (Hash, error) {
	id, err := cid.Decode(s)
	if err != nil || !id.Defined() {
		return "", ErrInvalidHash
	}
	return Hash(id.String()), nil
}

// SumCID returns a CIDv1 (raw + sha2-256) derived from data.
func SumCID(data []byte) (cid.Cid, error) {
	sum, err := multihash.Sum(data, multihash.SHA2_256, -1)
	if err != nil {
		return cid.Undef, err
	}
	return cid.NewCidV1(cid.Raw, sum), nil
}

// HashBytes returns the Hash of already-canonical bytes.
//
// multihash.Sum only errors for invalid hash parameters; with SHA2_256 and
// default length this is unreachable, so the empty Hash marks that case.
func HashBytes(data []byte) Hash {
	id, err := SumCID(data)
	if err != nil {
		return ""
	}
	return Hash(id.String())
}

// CalculateHash returns the Hash of v under the given type-domain tag.
//
// The tag is folded into the canonical bytes so structurally identical
// values of different types never collide.
func CalculateHash(domain string, v Value) (Hash, error) {
	b, err := Encode(domain, v)
	if err != nil {
		return "", err
	}
	return HashBytes(b), nil
}

// VerifyHash reports whether v hashes to claimed under domain.
//
// Malformed values (those that cannot be canonically encoded) verify as
// false rather than erroring; callers that need the distinction should use
// CalculateHash directly.
func VerifyHash(domain string, v Value, claimed Hash) bool {
	if !claimed.Defined() {
		return false
	}
	got, err := CalculateHash(domain, v)
	if err != nil {
		return false
	}
	return got == claimed
}
