// Package register implements the content-addressed resource register and
// its lifecycle state machine.
//
// A Register is the canonical record of one resource: identity, lifecycle
// state, attributes, metadata, embedded capability set, ownership and
// history. Its content hash is recomputed atomically with every externally
// visible mutation and doubles as the register's version token; mutating a
// field by hand makes VerifyContentHash return false until the register is
// updated through the lifecycle manager.
package register
