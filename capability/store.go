package capability

import (
	"encoding/json"
	"sort"
	"sync"

	"registra.dev/registra/content"
	"registra.dev/registra/identity"
)

// Store is the authoritative chain-of-trust state: a link-id-keyed
// delegation arena, a capability arena, a grant index, the revocation set,
// and usage counters. Links are keyed by the hash of their signing scope,
// which covers the delegatee, so one capability content can be granted to
// any number of parties.
//
// All methods are safe for concurrent use. Revocations are visible to the
// next verification call on the same store; there is deliberately no
// caching layer in front of the revocation set.
type Store struct {
	mu sync.RWMutex

	caps     map[content.Hash]Capability     // keyed by capability content hash
	links    map[content.Hash]Delegation     // keyed by link id
	children map[content.Hash][]content.Hash // parent link id -> child link ids
	grants   map[identity.Identity]map[string][]content.Hash
	revoked  map[content.Hash]bool
	usage    map[content.Hash]uint64
}

func NewStore() *Store {
	return &Store{
		caps:     make(map[content.Hash]Capability),
		links:    make(map[content.Hash]Delegation),
		children: make(map[content.Hash][]content.Hash),
		grants:   make(map[identity.Identity]map[string][]content.Hash),
		revoked:  make(map[content.Hash]bool),
		usage:    make(map[content.Hash]uint64),
	}
}

// putLink stores a sealed capability together with the delegation link that
// grants it, and indexes the grant for the delegatee.
func (s *Store) putLink(cap Capability, d Delegation) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.caps[cap.ContentHash] = cap
	s.links[d.ID] = d
	if !d.IsRoot() {
		s.children[d.Source] = append(s.children[d.Source], d.ID)
	}

	byResource := s.grants[d.Delegatee]
	if byResource == nil {
		byResource = make(map[string][]content.Hash)
		s.grants[d.Delegatee] = byResource
	}
	byResource[cap.Target] = append(byResource[cap.Target], d.ID)
}

// Capability returns the stored capability for a capability content hash.
func (s *Store) Capability(hash content.Hash) (Capability, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.caps[hash]
	return c, ok
}

// Link returns the delegation link with the given id.
func (s *Store) Link(id content.Hash) (Delegation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.links[id]
	return d, ok
}

// LinkCapability returns the capability granted by the link with the given
// id.
func (s *Store) LinkCapability(id content.Hash) (Capability, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.links[id]
	if !ok {
		return Capability{}, false
	}
	c, ok := s.caps[d.Capability]
	return c, ok
}

// GrantsFor returns the link ids granted to id over resource, sorted for
// deterministic verification order.
func (s *Store) GrantsFor(id identity.Identity, resource string) []content.Hash {
	s.mu.RLock()
	defer s.mu.RUnlock()
	byResource := s.grants[id]
	if byResource == nil {
		return nil
	}
	out := append([]content.Hash(nil), byResource[resource]...)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Children returns the link ids delegated directly from the given link.
func (s *Store) Children(id content.Hash) []content.Hash {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]content.Hash(nil), s.children[id]...)
}

// MarkRevoked adds a link id to the revocation set. Idempotent.
func (s *Store) MarkRevoked(id content.Hash) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.revoked[id] = true
}

func (s *Store) IsRevoked(id content.Hash) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.revoked[id]
}

// RecordUse increments the per-link usage counter consulted by Usage
// constraints.
func (s *Store) RecordUse(id content.Hash) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.usage[id]++
}

func (s *Store) UseCount(id content.Hash) uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.usage[id]
}

// storeSnapshot is the persisted form of a Store. Capabilities are listed
// once per link granting them; the grant and child indexes are rebuilt from
// the links on restore.
type storeSnapshot struct {
	Capabilities []Capability            `json:"capabilities"`
	Delegations  []Delegation            `json:"delegations"`
	Revoked      []content.Hash          `json:"revoked,omitempty"`
	Usage        map[content.Hash]uint64 `json:"usage,omitempty"`
}

// Snapshot serializes the store's chain-of-trust state so callers can
// persist it next to the registers it governs.
func (s *Store) Snapshot() ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := storeSnapshot{Usage: make(map[content.Hash]uint64, len(s.usage))}

	ids := make([]content.Hash, 0, len(s.links))
	for id := range s.links {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		d := s.links[id]
		snap.Delegations = append(snap.Delegations, d)
		snap.Capabilities = append(snap.Capabilities, s.caps[d.Capability])
	}

	for id, v := range s.revoked {
		if v {
			snap.Revoked = append(snap.Revoked, id)
		}
	}
	sort.Slice(snap.Revoked, func(i, j int) bool { return snap.Revoked[i] < snap.Revoked[j] })
	for id, n := range s.usage {
		snap.Usage[id] = n
	}
	return json.Marshal(snap)
}

// RestoreStore rebuilds a Store from a Snapshot. Every capability is
// re-verified against its recorded hash, every link id against its signing
// scope, and every delegation signature is checked, so a tampered snapshot
// is rejected rather than loaded.
func RestoreStore(data []byte) (*Store, error) {
	var snap storeSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, wrapError(ErrKindInput, "REG-CAP-050", "snapshot not decodable", err)
	}
	if len(snap.Capabilities) != len(snap.Delegations) {
		return nil, newError(ErrKindInput, "REG-CAP-050", "snapshot capability/delegation count mismatch")
	}

	s := NewStore()
	for i, d := range snap.Delegations {
		cap := snap.Capabilities[i]
		if !cap.VerifyContentHash() || cap.ContentHash != d.Capability {
			return nil, newError(ErrKindInput, "REG-CAP-051", "snapshot capability fails hash verification")
		}
		if !d.VerifyID() {
			return nil, newError(ErrKindInput, "REG-CAP-051", "snapshot link id fails hash verification")
		}
		if err := d.VerifySignature(); err != nil {
			return nil, wrapError(ErrKindInput, "REG-CAP-052", "snapshot delegation fails signature verification", err)
		}
		s.putLink(cap, d)
	}
	for _, id := range snap.Revoked {
		s.revoked[id] = true
	}
	for id, n := range snap.Usage {
		s.usage[id] = n
	}
	return s, nil
}
