// Package identity models the principals that own registers and sign
// capability delegations.
//
// An Identity is a self-describing public key string, "<scheme>:<base64>",
// with ed25519 and dilithium3 (post-quantum) schemes supported. Signing is
// always over a digest of the message; the digest algorithm is fixed per
// scheme so a signature never needs out-of-band parameters to verify.
package identity
