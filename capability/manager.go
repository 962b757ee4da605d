package capability

import (
	"time"

	"registra.dev/registra/content"
	"registra.dev/registra/identity"
)

// Manager issues, delegates, verifies and revokes capabilities against one
// explicit Store.
type Manager struct {
	store *Store
}

func NewManager(store *Store) *Manager {
	return &Manager{store: store}
}

func (m *Manager) Store() *Store { return m.store }

// CreateRootDelegation seals cap and anchors it with a self-signed root
// delegation. Only the resource's declared owner may create roots; anyone
// else gets an Unauthorized error.
func (m *Manager) CreateRootDelegation(cap Capability, owner identity.Signer, declaredOwner identity.Identity) (Delegation, error) {
	if owner == nil || !declaredOwner.Defined() {
		return Delegation{}, newError(ErrKindInput, "REG-CAP-010", "missing owner identity")
	}
	if owner.Identity() != declaredOwner {
		return Delegation{}, newError(ErrKindUnauthorized, "REG-CAP-011", "root delegation requires the declared resource owner")
	}
	if cap.Target == "" || cap.Kind == "" {
		return Delegation{}, newError(ErrKindInput, "REG-CAP-012", "capability needs a target and a kind")
	}
	if err := cap.Seal(); err != nil {
		return Delegation{}, err
	}

	d := Delegation{
		Capability: cap.ContentHash,
		Delegator:  owner.Identity(),
		Delegatee:  owner.Identity(),
	}
	if err := d.sign(owner); err != nil {
		return Delegation{}, err
	}
	if _, exists := m.store.Link(d.ID); exists {
		return Delegation{}, newError(ErrKindInput, "REG-CAP-013", "identical root delegation already exists")
	}
	m.store.putLink(cap, d)
	return d, nil
}

// Delegate derives a narrowed capability from the link sourceLink and signs
// the new link. The delegator must currently hold the source (verified by
// chain walk at now), and derived may only narrow the source: the kind may
// not widen, a time window may only shrink, operation/field whitelists may
// only shrink, and usage budgets may only decrease.
//
// The same capability content may be delegated to any number of delegatees;
// each grant is a distinct link.
func (m *Manager) Delegate(sourceLink content.Hash, derived Capability, delegator identity.Signer, delegatee identity.Identity, now time.Time) (Delegation, error) {
	if delegator == nil || !delegatee.Defined() {
		return Delegation{}, newError(ErrKindInput, "REG-CAP-020", "missing delegator or delegatee")
	}
	link, ok := m.store.Link(sourceLink)
	if !ok {
		return Delegation{}, newError(ErrKindNotFound, "REG-CAP-021", "source delegation not found")
	}
	source, ok := m.store.Capability(link.Capability)
	if !ok {
		return Delegation{}, newError(ErrKindChain, "REG-CAP-022", "source capability missing from store")
	}
	if link.Delegatee != delegator.Identity() {
		return Delegation{}, newError(ErrKindUnauthorized, "REG-CAP-023", "delegator does not hold the source capability")
	}
	if _, _, ok := m.walkChain(sourceLink, delegator.Identity(), Request{Now: now}); !ok {
		return Delegation{}, newError(ErrKindChain, "REG-CAP-024", "source capability chain does not verify")
	}
	if !source.Narrows(derived) {
		return Delegation{}, newError(ErrKindConstraint, "REG-CAP-025", "delegation may only narrow the source capability")
	}
	if err := derived.Seal(); err != nil {
		return Delegation{}, err
	}

	d := Delegation{
		Source:     sourceLink,
		Capability: derived.ContentHash,
		Delegator:  delegator.Identity(),
		Delegatee:  delegatee,
	}
	if err := d.sign(delegator); err != nil {
		return Delegation{}, err
	}
	// The link id covers source, content and both parties, so only a
	// byte-identical re-delegation collides here.
	if _, exists := m.store.Link(d.ID); exists {
		return Delegation{}, newError(ErrKindInput, "REG-CAP-026", "identical delegation link already exists")
	}
	m.store.putLink(derived, d)
	return d, nil
}

// Verify reports whether id currently holds kind over resource, anchored at
// a root self-signed by owner. Unmet conditions yield false, never an
// error; errors mark malformed input only.
func (m *Manager) Verify(id identity.Identity, resource string, kind Kind, owner identity.Identity, req Request) (bool, error) {
	chain, err := m.findChain(id, resource, kind, owner, req)
	if err != nil {
		return false, err
	}
	return chain != nil, nil
}

// Authorize is Verify plus usage accounting: on success every link of the
// accepting chain has its use count incremented, so Usage constraints see
// each authorized mutation.
func (m *Manager) Authorize(id identity.Identity, resource string, kind Kind, owner identity.Identity, req Request) (bool, error) {
	chain, err := m.findChain(id, resource, kind, owner, req)
	if err != nil {
		return false, err
	}
	if chain == nil {
		return false, nil
	}
	for _, link := range chain {
		m.store.RecordUse(link)
	}
	return true, nil
}

// Revoke marks the delegation link and, by cascade, every link derived from
// it as revoked. Permitted for the original delegator of the link or for a
// holder of Owner or Admin over the target. Revoking an already-revoked
// link is a no-op.
func (m *Manager) Revoke(linkID content.Hash, revoker identity.Signer, owner identity.Identity, now time.Time) error {
	if revoker == nil {
		return newError(ErrKindInput, "REG-CAP-030", "missing revoker")
	}
	if m.store.IsRevoked(linkID) {
		return nil
	}
	d, ok := m.store.Link(linkID)
	if !ok {
		return newError(ErrKindNotFound, "REG-CAP-031", "delegation not found")
	}
	cap, ok := m.store.Capability(d.Capability)
	if !ok {
		return newError(ErrKindNotFound, "REG-CAP-031", "delegation not found")
	}

	authorized := d.Delegator == revoker.Identity()
	if !authorized {
		for _, k := range []Kind{KindOwner, KindAdmin} {
			held, err := m.Verify(revoker.Identity(), cap.Target, k, owner, Request{Now: now})
			if err != nil {
				return err
			}
			if held {
				authorized = true
				break
			}
		}
	}
	if !authorized {
		return newError(ErrKindUnauthorized, "REG-CAP-032", "not authorized to revoke capability")
	}

	// Cascade breadth-first over derived links. Chains are acyclic by
	// construction; the seen set guards against corrupted stores.
	queue := []content.Hash{linkID}
	seen := map[content.Hash]bool{linkID: true}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		m.store.MarkRevoked(cur)
		for _, child := range m.store.Children(cur) {
			if !seen[child] {
				seen[child] = true
				queue = append(queue, child)
			}
		}
	}
	return nil
}

// findChain returns the first chain (grant link up to the root) proving id
// holds kind over resource, or nil when no chain verifies.
func (m *Manager) findChain(id identity.Identity, resource string, kind Kind, owner identity.Identity, req Request) ([]content.Hash, error) {
	if !id.Defined() || resource == "" || kind == "" {
		return nil, newError(ErrKindInput, "REG-CAP-040", "identity, resource and kind are required")
	}
	if !owner.Defined() {
		return nil, newError(ErrKindInput, "REG-CAP-041", "authoritative owner identity is required")
	}

	for _, grant := range m.store.GrantsFor(id, resource) {
		terminal, ok := m.store.LinkCapability(grant)
		if !ok || terminal.Target != resource || !terminal.VerifyContentHash() {
			continue
		}
		if !terminal.Kind.Implies(kind) {
			continue
		}
		chain, root, ok := m.walkChain(grant, id, req)
		if !ok {
			continue
		}
		if root.Delegator != owner {
			continue
		}
		return chain, nil
	}
	return nil, nil
}

// walkChain follows source link ids iteratively from grant to a root
// delegation. It accepts the chain iff every link is unrevoked, correctly
// signed, granted to the holder the next link names, and within its
// constraints for req. A visited set bounds the walk when a corrupted store
// contains a cycle.
func (m *Manager) walkChain(grant content.Hash, holder identity.Identity, req Request) ([]content.Hash, Delegation, bool) {
	var chain []content.Hash
	visited := map[content.Hash]bool{}
	cur := grant
	expected := holder

	for {
		if visited[cur] {
			return nil, Delegation{}, false
		}
		visited[cur] = true

		if m.store.IsRevoked(cur) {
			return nil, Delegation{}, false
		}
		d, ok := m.store.Link(cur)
		if !ok {
			return nil, Delegation{}, false
		}
		if d.Delegatee != expected {
			return nil, Delegation{}, false
		}
		cap, ok := m.store.Capability(d.Capability)
		if !ok {
			return nil, Delegation{}, false
		}
		if !cap.constraintsHold(req, m.store.UseCount(cur)) {
			return nil, Delegation{}, false
		}
		if err := d.VerifySignature(); err != nil {
			return nil, Delegation{}, false
		}
		chain = append(chain, cur)

		if d.IsRoot() {
			if d.Delegator != d.Delegatee {
				return nil, Delegation{}, false
			}
			return chain, d, true
		}
		expected = d.Delegator
		cur = d.Source
	}
}
