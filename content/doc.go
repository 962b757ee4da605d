// Package content implements content addressing for register state.
//
// Every addressable value is reduced to a canonical byte encoding and
// identified by an IPFS-compatible CIDv1 (raw + sha2-256). Equal logical
// values always produce equal bytes: struct fields are encoded in declared
// order, map keys are sorted, and nested content-addressed children
// contribute their pre-computed hash rather than their raw fields.
package content
