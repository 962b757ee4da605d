package identity

import (
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/cloudflare/circl/sign/dilithium/mode3"
	"golang.org/x/crypto/sha3"
)

const (
	SchemeEd25519    = "ed25519"
	SchemeDilithium3 = "dilithium3"
)

var (
	ErrInvalidIdentity  = errors.New("identity: invalid identity encoding")
	ErrInvalidSignature = errors.New("identity: signature invalid")
)

// Identity is a self-describing public key: "<scheme>:<base64(pubkey)>".
type Identity string

func (id Identity) Defined() bool { return id != "" }

func (id Identity) String() string { return string(id) }

// Scheme returns the signature scheme name, or "" if malformed.
func (id Identity) Scheme() string {
	scheme, _, ok := strings.Cut(string(id), ":")
	if !ok {
		return ""
	}
	return scheme
}

// PublicKeyBytes decodes and validates the embedded public key.
func (id Identity) PublicKeyBytes() ([]byte, error) {
	scheme, enc, ok := strings.Cut(string(id), ":")
	if !ok {
		return nil, ErrInvalidIdentity
	}
	pub, err := decodeBase64(enc)
	if err != nil {
		return nil, fmt.Errorf("%w: bad base64: %v", ErrInvalidIdentity, err)
	}
	switch scheme {
	case SchemeEd25519:
		if len(pub) != ed25519.PublicKeySize {
			return nil, fmt.Errorf("%w: bad ed25519 key length", ErrInvalidIdentity)
		}
		return pub, nil
	case SchemeDilithium3:
		var pk mode3.PublicKey
		if err := pk.UnmarshalBinary(pub); err != nil {
			return nil, fmt.Errorf("%w: bad dilithium3 key: %v", ErrInvalidIdentity, err)
		}
		return pub, nil
	default:
		return nil, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidIdentity, scheme)
	}
}

// FromEd25519 encodes an ed25519 public key as an Identity.
func FromEd25519(pub ed25519.PublicKey) Identity {
	return Identity(SchemeEd25519 + ":" + base64.StdEncoding.EncodeToString(pub))
}

// FromDilithium3 encodes a dilithium3 public key as an Identity.
func FromDilithium3(pk *mode3.PublicKey) Identity {
	raw, err := pk.MarshalBinary()
	if err != nil {
		return ""
	}
	return Identity(SchemeDilithium3 + ":" + base64.StdEncoding.EncodeToString(raw))
}

// digestFor returns the per-scheme message digest. ed25519 signs
// sha256(message); dilithium3 signs sha3-256(message).
func digestFor(scheme string, message []byte) ([]byte, error) {
	switch scheme {
	case SchemeEd25519:
		s := sha256.Sum256(message)
		return s[:], nil
	case SchemeDilithium3:
		s := sha3.Sum256(message)
		return s[:], nil
	default:
		return nil, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidIdentity, scheme)
	}
}

// Signer produces signatures attributable to a single Identity.
type Signer interface {
	Identity() Identity
	Sign(message []byte) ([]byte, error)
}

// Ed25519Signer signs with an ed25519 private key.
type Ed25519Signer struct {
	priv ed25519.PrivateKey
}

// NewEd25519Signer builds a signer from a 32-byte seed.
func NewEd25519Signer(seed []byte) (*Ed25519Signer, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("identity: seed must be %d bytes", ed25519.SeedSize)
	}
	return &Ed25519Signer{priv: ed25519.NewKeyFromSeed(seed)}, nil
}

func (s *Ed25519Signer) Identity() Identity {
	return FromEd25519(s.priv.Public().(ed25519.PublicKey))
}

func (s *Ed25519Signer) Sign(message []byte) ([]byte, error) {
	digest, err := digestFor(SchemeEd25519, message)
	if err != nil {
		return nil, err
	}
	return ed25519.Sign(s.priv, digest), nil
}

// Dilithium3Signer signs with a dilithium3 (post-quantum) keypair.
type Dilithium3Signer struct {
	pk *mode3.PublicKey
	sk *mode3.PrivateKey
}

func NewDilithium3Signer(rand io.Reader) (*Dilithium3Signer, error) {
	pk, sk, err := mode3.GenerateKey(rand)
	if err != nil {
		return nil, err
	}
	return &Dilithium3Signer{pk: pk, sk: sk}, nil
}

func (s *Dilithium3Signer) Identity() Identity { return FromDilithium3(s.pk) }

func (s *Dilithium3Signer) Sign(message []byte) ([]byte, error) {
	digest, err := digestFor(SchemeDilithium3, message)
	if err != nil {
		return nil, err
	}
	sig := make([]byte, mode3.SignatureSize)
	mode3.SignTo(s.sk, digest, sig)
	return sig, nil
}

// Verify checks sig over message against the identity's public key.
// Returns ErrInvalidSignature when the signature does not verify and
// ErrInvalidIdentity for malformed identities or signature blobs.
func Verify(id Identity, message, sig []byte) error {
	pub, err := id.PublicKeyBytes()
	if err != nil {
		return err
	}
	digest, err := digestFor(id.Scheme(), message)
	if err != nil {
		return err
	}
	switch id.Scheme() {
	case SchemeEd25519:
		if len(sig) != ed25519.SignatureSize {
			return fmt.Errorf("%w: bad ed25519 signature length", ErrInvalidIdentity)
		}
		if !ed25519.Verify(ed25519.PublicKey(pub), digest, sig) {
			return ErrInvalidSignature
		}
		return nil
	case SchemeDilithium3:
		if len(sig) != mode3.SignatureSize {
			return fmt.Errorf("%w: bad dilithium3 signature length", ErrInvalidIdentity)
		}
		var pk mode3.PublicKey
		if err := pk.UnmarshalBinary(pub); err != nil {
			return fmt.Errorf("%w: bad dilithium3 key: %v", ErrInvalidIdentity, err)
		}
		if !mode3.Verify(&pk, digest, sig) {
			return ErrInvalidSignature
		}
		return nil
	default:
		return fmt.Errorf("%w: unsupported scheme", ErrInvalidIdentity)
	}
}

func decodeBase64(s string) ([]byte, error) {
	// Prefer standard padded encoding, but accept raw encoding too.
	if b, err := base64.StdEncoding.DecodeString(s); err == nil {
		return b, nil
	}
	return base64.RawStdEncoding.DecodeString(s)
}
