// Package service is the public facade: it wires content addressing, the
// lifecycle manager, the capability manager and the relationship tracker
// over a storage.Store. Every mutating call names the caller and carries a
// caller-supplied time; capability verification gates every mutation after
// creation.
package service

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"registra.dev/registra/capability"
	"registra.dev/registra/content"
	"registra.dev/registra/identity"
	"registra.dev/registra/register"
	"registra.dev/registra/relationship"
	"registra.dev/registra/storage"
)

// ErrUnauthorized marks a mutation whose caller holds no valid capability
// chain for the operation. It deliberately carries no detail about which
// condition failed.
var ErrUnauthorized = errors.New("service: caller not authorized")

// Service exposes the resource core's public operations.
type Service struct {
	store         storage.Store
	caps          *capability.Manager
	lifecycle     *register.Manager
	relationships *relationship.Tracker
}

func New(store storage.Store) *Service {
	return NewWithTrust(store, capability.NewStore())
}

// NewWithTrust wires the facade over an existing delegation store, typically
// one rebuilt with capability.RestoreStore from a snapshot taken before a
// restart. Registers loaded from a persistent backend stay mutable only if
// their chains of trust come back with them.
func NewWithTrust(store storage.Store, trust *capability.Store) *Service {
	return &Service{
		store:         store,
		caps:          capability.NewManager(trust),
		lifecycle:     register.NewManager(),
		relationships: relationship.NewTracker(),
	}
}

// Capabilities exposes the capability manager, for callers that need raw
// chain inspection beyond the facade operations.
func (s *Service) Capabilities() *capability.Manager { return s.caps }

// Lifecycle exposes the lifecycle manager, for registering field rules.
func (s *Service) Lifecycle() *register.Manager { return s.lifecycle }

// Relationships exposes the relationship tracker, for cardinality setup.
func (s *Service) Relationships() *relationship.Tracker { return s.relationships }

// CreateParams describes a new resource register.
type CreateParams struct {
	// ID is optional; a random id is assigned when empty.
	ID           register.ID
	ResourceType string
	Attributes   map[string]content.Value
	Metadata     map[string]content.Value

	Owner identity.Signer
	Now   time.Time
}

// CreateResourceRegister creates a register, activates it and anchors its
// trust chain with a self-signed Owner delegation. The register is persisted
// in Active state; this is the only mutation that runs without a capability
// check, since no chain can exist before it.
func (s *Service) CreateResourceRegister(p CreateParams) (*register.Register, error) {
	if p.Owner == nil {
		return nil, fmt.Errorf("%w: owner signer is required", register.ErrInput)
	}
	id := p.ID
	if !id.Defined() {
		id = register.NewID()
	}
	ownerID := p.Owner.Identity()

	reg, err := register.New(id, p.ResourceType, ownerID, p.Now)
	if err != nil {
		return nil, err
	}
	for k, v := range p.Attributes {
		reg.Attributes[k] = v
	}
	for k, v := range p.Metadata {
		reg.Metadata[k] = v
	}

	rootCap := capability.New(id.String(), capability.KindOwner)
	if err := rootCap.Seal(); err != nil {
		return nil, err
	}
	reg.Capabilities.Granted = map[identity.Identity][]capability.Capability{
		ownerID: {rootCap},
	}
	if err := reg.RecomputeHash(); err != nil {
		return nil, err
	}

	if err := s.lifecycle.Transition(reg, register.PhaseActive, register.TransitionOptions{
		Now:       p.Now,
		Initiator: ownerID,
	}); err != nil {
		return nil, err
	}
	// Persist before anchoring the trust chain: a Put failure (duplicate id,
	// I/O) then leaves the delegation store untouched.
	if err := s.store.Put(reg); err != nil {
		return nil, err
	}
	if _, err := s.caps.CreateRootDelegation(rootCap, p.Owner, ownerID); err != nil {
		return nil, err
	}
	return reg, nil
}

// GetRegister loads a register by id.
func (s *Service) GetRegister(id register.ID) (*register.Register, error) {
	return s.store.Get(id)
}

// TransitionRegisterState moves a stored register to the target phase. The
// caller must be authorized for the "transition" operation; the persisted
// record is swapped with an optimistic check on the prior content hash.
func (s *Service) TransitionRegisterState(id register.ID, to register.Phase, caller identity.Identity, opts register.TransitionOptions) (*register.Register, error) {
	if opts.Now.IsZero() {
		return nil, fmt.Errorf("%w: a caller-supplied time is required", register.ErrInput)
	}
	reg, err := s.store.Get(id)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(reg, caller, "transition", nil, opts.Now); err != nil {
		return nil, err
	}

	prior := reg.ContentHash
	opts.Initiator = caller
	if err := s.lifecycle.Transition(reg, to, opts); err != nil {
		return nil, err
	}
	if err := s.store.Update(reg, prior); err != nil {
		return nil, err
	}
	return reg, nil
}

// UpdateRegisterAttributes applies a capability-gated attribute merge. The
// updated field names are part of the capability request, so field-scoped
// delegations bind here.
func (s *Service) UpdateRegisterAttributes(id register.ID, updates map[string]content.Value, caller identity.Identity, now time.Time) (*register.Register, error) {
	if now.IsZero() {
		return nil, fmt.Errorf("%w: a caller-supplied time is required", register.ErrInput)
	}
	reg, err := s.store.Get(id)
	if err != nil {
		return nil, err
	}
	fields := make([]string, 0, len(updates))
	for k := range updates {
		fields = append(fields, k)
	}
	sort.Strings(fields)
	if err := s.authorize(reg, caller, "update_attributes", fields, now); err != nil {
		return nil, err
	}

	prior := reg.ContentHash
	if err := s.lifecycle.UpdateAttributes(reg, updates, caller, now); err != nil {
		return nil, err
	}
	if err := s.store.Update(reg, prior); err != nil {
		return nil, err
	}
	return reg, nil
}

// CreateRootDelegation anchors an additional root capability for a stored
// register. Only the register's declared owner can sign it.
func (s *Service) CreateRootDelegation(id register.ID, cap capability.Capability, owner identity.Signer) (capability.Delegation, error) {
	reg, err := s.store.Get(id)
	if err != nil {
		return capability.Delegation{}, err
	}
	if cap.Target != id.String() {
		return capability.Delegation{}, fmt.Errorf("%w: capability targets %q, register is %q",
			register.ErrInput, cap.Target, id)
	}
	return s.caps.CreateRootDelegation(cap, owner, reg.Ownership.Owner)
}

// DelegateCapability derives a narrowed capability from the delegation link
// sourceLink and signs the new chain link.
func (s *Service) DelegateCapability(sourceLink content.Hash, derived capability.Capability, delegator identity.Signer, delegatee identity.Identity, now time.Time) (capability.Delegation, error) {
	return s.caps.Delegate(sourceLink, derived, delegator, delegatee, now)
}

// VerifyCapability reports whether the caller holds a valid chain implying
// kind over the register. It is read-only and records no usage.
func (s *Service) VerifyCapability(caller identity.Identity, id register.ID, kind capability.Kind, req capability.Request) (bool, error) {
	reg, err := s.store.Get(id)
	if err != nil {
		return false, err
	}
	return s.caps.Verify(caller, id.String(), kind, reg.Ownership.Owner, req)
}

// RevokeCapability revokes a delegation link and, by cascade, every link
// derived from it. Revoking an already-revoked link is a no-op.
func (s *Service) RevokeCapability(linkID content.Hash, revoker identity.Signer, now time.Time) error {
	var owner identity.Identity
	if cap, ok := s.caps.Store().LinkCapability(linkID); ok {
		if reg, err := s.store.Get(register.ID(cap.Target)); err == nil {
			owner = reg.Ownership.Owner
		}
	}
	return s.caps.Revoke(linkID, revoker, owner, now)
}

// CreateRelationship records a typed edge between two stored registers. The
// caller must be authorized to mutate the source register.
func (s *Service) CreateRelationship(source, target register.ID, kind relationship.Kind, metadata map[string]content.Value, caller identity.Identity, now time.Time) (relationship.ID, error) {
	if now.IsZero() {
		return "", fmt.Errorf("%w: a caller-supplied time is required", register.ErrInput)
	}
	src, err := s.store.Get(source)
	if err != nil {
		return "", err
	}
	if !s.store.Has(target) {
		return "", fmt.Errorf("%w: %s", storage.ErrNotFound, target)
	}
	if err := s.authorize(src, caller, "create_relationship", nil, now); err != nil {
		return "", err
	}
	return s.relationships.CreateRelationship(source, target, kind, metadata, now)
}

// FindRelatedResources returns the registers related to resource by kind
// edges in the given direction.
func (s *Service) FindRelatedResources(resource register.ID, kind relationship.Kind, dir relationship.Direction) []register.ID {
	return s.relationships.FindRelated(resource, kind, dir)
}

// authorize runs the capability gate for one mutating operation. The
// register's capability requirements may name alternative kinds for the
// operation; Write is the default.
func (s *Service) authorize(reg *register.Register, caller identity.Identity, op string, fields []string, now time.Time) error {
	kinds := reg.Capabilities.Requirements[op]
	if len(kinds) == 0 {
		kinds = []capability.Kind{capability.KindWrite}
	}
	req := capability.Request{Now: now, Operation: op, Fields: fields}
	for _, kind := range kinds {
		ok, err := s.caps.Authorize(caller, reg.ID.String(), kind, reg.Ownership.Owner, req)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
	}
	return fmt.Errorf("%w: %s on %s", ErrUnauthorized, op, reg.ID)
}
