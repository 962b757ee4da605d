package register

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"registra.dev/registra/capability"
	"registra.dev/registra/content"
	"registra.dev/registra/identity"
)

// ID identifies a register. It is assigned once at creation and never
// changes; Tombstone retains it for replay and audit.
type ID string

func (id ID) String() string { return string(id) }

func (id ID) Defined() bool { return id != "" }

// NewID returns a random register id.
func NewID() ID { return ID(uuid.NewString()) }

// DeterministicID derives a stable id from the resource type and a name, so
// independently created registers for the same logical resource collide.
func DeterministicID(resourceType, name string) (ID, error) {
	h, err := content.CalculateHash("resource-id", content.List(
		content.String(resourceType),
		content.String(name),
	))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInput, err)
	}
	return ID(h.String()), nil
}

// Ownership records who owns and who created the register. The owner
// anchors every capability chain for the resource.
type Ownership struct {
	Owner     identity.Identity `json:"owner"`
	CreatedBy identity.Identity `json:"createdBy"`
}

// Temporal carries the register's caller-supplied timestamps.
type Temporal struct {
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// CapabilitySet is the register's local view of its capabilities. The
// authoritative chain of trust lives in the capability manager's store;
// this view exists so a serialized register is self-describing.
type CapabilitySet struct {
	Defaults     []capability.Capability                        `json:"defaults,omitempty"`
	Granted      map[identity.Identity][]capability.Capability  `json:"granted,omitempty"`
	Requirements map[string][]capability.Kind                   `json:"requirements,omitempty"`
}

// Register is the canonical, content-addressed record of one resource.
type Register struct {
	ID           ID                       `json:"id"`
	ResourceType string                   `json:"resourceType"`
	State        State                    `json:"state"`
	Attributes   map[string]content.Value `json:"attributes,omitempty"`
	Metadata     map[string]content.Value `json:"metadata,omitempty"`
	Capabilities CapabilitySet            `json:"capabilities"`
	Ownership    Ownership                `json:"ownership"`
	Temporal     Temporal                 `json:"temporal"`
	History      []Transition             `json:"history,omitempty"`
	ContentHash  content.Hash             `json:"contentHash"`
}

// New creates a register in Initializing with its hash computed.
func New(id ID, resourceType string, owner identity.Identity, now time.Time) (*Register, error) {
	if !id.Defined() || resourceType == "" || !owner.Defined() {
		return nil, fmt.Errorf("%w: id, resource type and owner are required", ErrInput)
	}
	r := &Register{
		ID:           id,
		ResourceType: resourceType,
		State:        State{Phase: PhaseInitializing},
		Attributes:   make(map[string]content.Value),
		Metadata:     make(map[string]content.Value),
		Ownership:    Ownership{Owner: owner, CreatedBy: owner},
		Temporal:     Temporal{CreatedAt: now, UpdatedAt: now},
	}
	if err := r.RecomputeHash(); err != nil {
		return nil, err
	}
	return r, nil
}

// Clone returns a deep copy. Lifecycle mutations are prepared on a clone so
// a rejected operation leaves the original untouched.
func (r *Register) Clone() *Register {
	cp := *r
	cp.Attributes = cloneValues(r.Attributes)
	cp.Metadata = cloneValues(r.Metadata)
	cp.History = append([]Transition(nil), r.History...)
	cp.Capabilities.Defaults = append([]capability.Capability(nil), r.Capabilities.Defaults...)
	if r.Capabilities.Granted != nil {
		cp.Capabilities.Granted = make(map[identity.Identity][]capability.Capability, len(r.Capabilities.Granted))
		for k, v := range r.Capabilities.Granted {
			cp.Capabilities.Granted[k] = append([]capability.Capability(nil), v...)
		}
	}
	if r.Capabilities.Requirements != nil {
		cp.Capabilities.Requirements = make(map[string][]capability.Kind, len(r.Capabilities.Requirements))
		for k, v := range r.Capabilities.Requirements {
			cp.Capabilities.Requirements[k] = append([]capability.Kind(nil), v...)
		}
	}
	return &cp
}

func cloneValues(m map[string]content.Value) map[string]content.Value {
	if m == nil {
		return nil
	}
	cp := make(map[string]content.Value, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return cp
}

// ComputeHash hashes every field except ContentHash under the register
// domain tag. Embedded capabilities fold in by their own content hash.
func (r *Register) ComputeHash() (content.Hash, error) {
	h, err := content.CalculateHash("register", r.contentValue())
	if err != nil {
		return "", err
	}
	return h, nil
}

// RecomputeHash updates ContentHash from the current field values.
func (r *Register) RecomputeHash() error {
	h, err := r.ComputeHash()
	if err != nil {
		return err
	}
	r.ContentHash = h
	return nil
}

// VerifyContentHash reports whether the recorded hash matches
// recomputation. Any out-of-band field mutation makes this false.
func (r *Register) VerifyContentHash() bool {
	if !r.ContentHash.Defined() {
		return false
	}
	h, err := r.ComputeHash()
	if err != nil {
		return false
	}
	return h == r.ContentHash
}
