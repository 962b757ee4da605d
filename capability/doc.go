// Package capability implements scoped, delegable authority over registers.
//
// A Capability grants a kind of access (Owner, Write, Read, Admin, or a
// custom kind) to one resource, optionally narrowed by constraints. Every
// granted capability is anchored by a signed Delegation chain ending at a
// root delegation self-signed by the resource owner. Verification walks the
// chain link by link: a capability holds iff the root is authoritative, no
// link is revoked, every link's signature verifies, and every constraint
// along the chain holds at the caller-supplied time.
//
// The delegation store is an explicit parameter, never ambient state, so
// tests and multi-tenant callers can instantiate isolated stores.
package capability
