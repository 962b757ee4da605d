package relationship

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"registra.dev/registra/content"
	"registra.dev/registra/register"
)

var (
	// ErrCardinality marks a create that would violate a registered
	// per-kind cardinality rule. The tracker is left unchanged.
	ErrCardinality = errors.New("relationship: cardinality violation")

	// ErrNotFound marks a lookup or delete of an unknown relationship id.
	ErrNotFound = errors.New("relationship: not found")

	// ErrInput marks malformed arguments.
	ErrInput = errors.New("relationship: invalid input")
)

// Kind is the relationship type. Beyond the three well-known kinds any
// string is a valid custom kind; cardinality rules attach per kind.
type Kind string

const (
	KindDependency Kind = "Dependency"
	KindOwnership  Kind = "Ownership"
	KindMirror     Kind = "Mirror"
)

// Direction selects which edges FindRelated follows.
type Direction int

const (
	DirectionOutgoing Direction = iota
	DirectionIncoming
	DirectionBoth
)

// ID identifies one relationship edge.
type ID string

func (id ID) String() string { return string(id) }

// Relationship is a typed, directed association between two registers.
type Relationship struct {
	ID        ID                       `json:"id"`
	Source    register.ID              `json:"source"`
	Target    register.ID              `json:"target"`
	Kind      Kind                     `json:"kind"`
	Metadata  map[string]content.Value `json:"metadata,omitempty"`
	CreatedAt time.Time                `json:"createdAt"`
}

// Cardinality bounds how many edges of one kind a register may carry.
// Zero means unlimited on that side.
type Cardinality struct {
	// MaxOutgoing caps edges of the kind leaving one source.
	MaxOutgoing int
	// MaxIncoming caps edges of the kind arriving at one target.
	MaxIncoming int
}

type edgeKey struct {
	source register.ID
	target register.ID
	kind   Kind
}

// Tracker records relationships and enforces cardinality rules. It keeps a
// forward and an inverse index so related-resource lookups never scan the
// full edge set. Safe for concurrent use.
type Tracker struct {
	mu    sync.RWMutex
	rules map[Kind]Cardinality
	edges map[ID]*Relationship
	byKey map[edgeKey]ID
	out   map[register.ID]map[Kind]map[ID]struct{}
	in    map[register.ID]map[Kind]map[ID]struct{}
}

// NewTracker returns a tracker with the default rule set: Ownership allows
// one owner per target, Dependency and Mirror are unbounded.
func NewTracker() *Tracker {
	t := &Tracker{
		rules: make(map[Kind]Cardinality),
		edges: make(map[ID]*Relationship),
		byKey: make(map[edgeKey]ID),
		out:   make(map[register.ID]map[Kind]map[ID]struct{}),
		in:    make(map[register.ID]map[Kind]map[ID]struct{}),
	}
	t.rules[KindOwnership] = Cardinality{MaxIncoming: 1}
	return t
}

// SetCardinality installs or replaces the rule for a kind. Existing edges
// are not revalidated; the rule binds future creates only.
func (t *Tracker) SetCardinality(kind Kind, c Cardinality) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rules[kind] = c
}

// CreateRelationship records a new edge. It fails on a duplicate
// (source, target, kind) triple and on any registered cardinality rule the
// edge would break.
func (t *Tracker) CreateRelationship(source, target register.ID, kind Kind, metadata map[string]content.Value, now time.Time) (ID, error) {
	if !source.Defined() || !target.Defined() || kind == "" {
		return "", fmt.Errorf("%w: source, target and kind are required", ErrInput)
	}
	if source == target {
		return "", fmt.Errorf("%w: self relationship", ErrInput)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	key := edgeKey{source: source, target: target, kind: kind}
	if _, dup := t.byKey[key]; dup {
		return "", fmt.Errorf("%w: %s -> %s already related as %s", ErrInput, source, target, kind)
	}
	if rule, ok := t.rules[kind]; ok {
		if rule.MaxOutgoing > 0 && len(t.out[source][kind]) >= rule.MaxOutgoing {
			return "", fmt.Errorf("%w: %s already has %d outgoing %s edges", ErrCardinality, source, rule.MaxOutgoing, kind)
		}
		if rule.MaxIncoming > 0 && len(t.in[target][kind]) >= rule.MaxIncoming {
			return "", fmt.Errorf("%w: %s already has %d incoming %s edges", ErrCardinality, target, rule.MaxIncoming, kind)
		}
	}

	rel := &Relationship{
		ID:        ID(uuid.NewString()),
		Source:    source,
		Target:    target,
		Kind:      kind,
		CreatedAt: now,
	}
	if len(metadata) > 0 {
		rel.Metadata = make(map[string]content.Value, len(metadata))
		for k, v := range metadata {
			rel.Metadata[k] = v
		}
	}
	t.edges[rel.ID] = rel
	t.byKey[key] = rel.ID
	index(t.out, source, kind, rel.ID)
	index(t.in, target, kind, rel.ID)
	return rel.ID, nil
}

func index(idx map[register.ID]map[Kind]map[ID]struct{}, res register.ID, kind Kind, id ID) {
	byKind := idx[res]
	if byKind == nil {
		byKind = make(map[Kind]map[ID]struct{})
		idx[res] = byKind
	}
	set := byKind[kind]
	if set == nil {
		set = make(map[ID]struct{})
		byKind[kind] = set
	}
	set[id] = struct{}{}
}

func unindex(idx map[register.ID]map[Kind]map[ID]struct{}, res register.ID, kind Kind, id ID) {
	if set := idx[res][kind]; set != nil {
		delete(set, id)
		if len(set) == 0 {
			delete(idx[res], kind)
			if len(idx[res]) == 0 {
				delete(idx, res)
			}
		}
	}
}

// Get returns a copy of the relationship.
func (t *Tracker) Get(id ID) (Relationship, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	rel, ok := t.edges[id]
	if !ok {
		return Relationship{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return *rel, nil
}

// HasRelationship reports whether the exact (source, target, kind) edge
// exists.
func (t *Tracker) HasRelationship(source, target register.ID, kind Kind) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.byKey[edgeKey{source: source, target: target, kind: kind}]
	return ok
}

// FindRelated returns the registers connected to resource by kind edges in
// the given direction: targets of outgoing edges, sources of incoming
// edges, or both. The result is deduplicated and sorted.
func (t *Tracker) FindRelated(resource register.ID, kind Kind, dir Direction) []register.ID {
	t.mu.RLock()
	defer t.mu.RUnlock()

	seen := make(map[register.ID]struct{})
	if dir == DirectionOutgoing || dir == DirectionBoth {
		for id := range t.out[resource][kind] {
			seen[t.edges[id].Target] = struct{}{}
		}
	}
	if dir == DirectionIncoming || dir == DirectionBoth {
		for id := range t.in[resource][kind] {
			seen[t.edges[id].Source] = struct{}{}
		}
	}
	if len(seen) == 0 {
		return nil
	}
	out := make([]register.ID, 0, len(seen))
	for res := range seen {
		out = append(out, res)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// DeleteRelationship removes the edge and its index entries.
func (t *Tracker) DeleteRelationship(id ID) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	rel, ok := t.edges[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	delete(t.edges, id)
	delete(t.byKey, edgeKey{source: rel.Source, target: rel.Target, kind: rel.Kind})
	unindex(t.out, rel.Source, rel.Kind, id)
	unindex(t.in, rel.Target, rel.Kind, id)
	return nil
}
