package capability

import (
	"sort"
	"time"

	"registra.dev/registra/content"
)

// Kind names a class of authority over a resource. The built-in kinds form
// a fixed implication lattice; any other string is a custom kind matched
// exactly.
type Kind string

const (
	KindOwner Kind = "Owner"
	KindWrite Kind = "Write"
	KindRead  Kind = "Read"
	KindAdmin Kind = "Admin"
)

// Implies reports whether holding k satisfies a request for req.
// Owner implies Write, Read and Admin; Write and Admin imply Read.
func (k Kind) Implies(req Kind) bool {
	if k == req {
		return true
	}
	switch k {
	case KindOwner:
		return req == KindWrite || req == KindRead || req == KindAdmin
	case KindWrite, KindAdmin:
		return req == KindRead
	default:
		return false
	}
}

// ConstraintKind discriminates the closed Constraint union.
type ConstraintKind string

const (
	ConstraintTime      ConstraintKind = "Time"
	ConstraintOperation ConstraintKind = "Operation"
	ConstraintField     ConstraintKind = "Field"
	ConstraintUsage     ConstraintKind = "Usage"
)

// Constraint narrows a capability. Exactly the fields of its Kind are
// meaningful; the rest stay zero.
type Constraint struct {
	Kind ConstraintKind `json:"kind"`

	// Time: the capability holds only while Start <= now < End.
	// A zero End means unbounded.
	Start time.Time `json:"start,omitempty"`
	End   time.Time `json:"end,omitempty"`

	// Operation: whitelist of operation names.
	// Field: whitelist/blacklist of attribute keys.
	Allowed []string `json:"allowed,omitempty"`
	Denied  []string `json:"denied,omitempty"`

	// Usage: maximum number of authorized uses across the capability's life.
	MaxCount uint64 `json:"maxCount,omitempty"`
}

// TimeWindow builds a Time constraint. A zero end means unbounded.
func TimeWindow(start, end time.Time) Constraint {
	return Constraint{Kind: ConstraintTime, Start: start, End: end}
}

// Operations builds an Operation whitelist constraint.
func Operations(allowed ...string) Constraint {
	return Constraint{Kind: ConstraintOperation, Allowed: sortedSet(allowed)}
}

// Fields builds a Field constraint. Empty allowed means all fields except
// the denied ones.
func Fields(allowed, denied []string) Constraint {
	return Constraint{Kind: ConstraintField, Allowed: sortedSet(allowed), Denied: sortedSet(denied)}
}

// UsageLimit builds a Usage constraint.
func UsageLimit(maxCount uint64) Constraint {
	return Constraint{Kind: ConstraintUsage, MaxCount: maxCount}
}

func sortedSet(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := append([]string(nil), in...)
	sort.Strings(out)
	n := 0
	for i, s := range out {
		if i == 0 || s != out[i-1] {
			out[n] = s
			n++
		}
	}
	return out[:n]
}

func contains(set []string, s string) bool {
	i := sort.SearchStrings(set, s)
	return i < len(set) && set[i] == s
}

func subset(sub, super []string) bool {
	for _, s := range sub {
		if !contains(super, s) {
			return false
		}
	}
	return true
}

// Capability is a scoped grant of authority over one resource. A capability
// with no constraints is unrestricted within its Kind.
type Capability struct {
	Target      string       `json:"target"`
	Kind        Kind         `json:"kind"`
	Constraints []Constraint `json:"constraints,omitempty"`
	ContentHash content.Hash `json:"contentHash"`
}

// New builds an unsealed capability. Constraints are stored with their
// string sets sorted so equal logical capabilities hash identically.
func New(target string, kind Kind, constraints ...Constraint) Capability {
	cs := make([]Constraint, len(constraints))
	for i, c := range constraints {
		c.Allowed = sortedSet(c.Allowed)
		c.Denied = sortedSet(c.Denied)
		cs[i] = c
	}
	return Capability{Target: target, Kind: kind, Constraints: cs}
}

func timeValue(t time.Time) content.Value {
	if t.IsZero() {
		return content.Null()
	}
	return content.Int(t.UnixNano())
}

func stringsValue(ss []string) content.Value {
	vs := make([]content.Value, len(ss))
	for i, s := range ss {
		vs[i] = content.String(s)
	}
	return content.List(vs...)
}

func (c Constraint) contentValue() content.Value {
	return content.List(
		content.String(string(c.Kind)),
		timeValue(c.Start),
		timeValue(c.End),
		stringsValue(c.Allowed),
		stringsValue(c.Denied),
		content.Int(int64(c.MaxCount)),
	)
}

func (c Capability) contentValue() content.Value {
	cs := make([]content.Value, len(c.Constraints))
	for i, con := range c.Constraints {
		cs[i] = con.contentValue()
	}
	return content.List(
		content.String(c.Target),
		content.String(string(c.Kind)),
		content.List(cs...),
	)
}

// ComputeHash returns the capability's content hash (all fields except the
// hash itself, under the capability domain tag).
func (c Capability) ComputeHash() (content.Hash, error) {
	h, err := content.CalculateHash("capability", c.contentValue())
	if err != nil {
		return "", wrapError(ErrKindInput, "REG-CAP-001", "capability not canonically encodable", err)
	}
	return h, nil
}

// Seal computes and records the capability's content hash.
func (c *Capability) Seal() error {
	h, err := c.ComputeHash()
	if err != nil {
		return err
	}
	c.ContentHash = h
	return nil
}

// VerifyContentHash reports whether the recorded hash matches recomputation.
func (c Capability) VerifyContentHash() bool {
	if !c.ContentHash.Defined() {
		return false
	}
	h, err := c.ComputeHash()
	if err != nil {
		return false
	}
	return h == c.ContentHash
}

// Narrows reports whether derived only narrows c: the derived kind must be
// implied by the source kind, and for every constraint present on the
// source, the derived capability must carry a constraint at least as tight.
// Derived capabilities may add constraints the source lacks.
func (c Capability) Narrows(derived Capability) bool {
	if derived.Target != c.Target {
		return false
	}
	if !c.Kind.Implies(derived.Kind) {
		return false
	}
	for _, src := range c.Constraints {
		der, ok := findConstraint(derived.Constraints, src.Kind)
		if !ok {
			return false
		}
		switch src.Kind {
		case ConstraintTime:
			if der.Start.Before(src.Start) {
				return false
			}
			if !src.End.IsZero() && (der.End.IsZero() || der.End.After(src.End)) {
				return false
			}
		case ConstraintOperation:
			if !subset(der.Allowed, src.Allowed) {
				return false
			}
		case ConstraintField:
			if len(src.Allowed) > 0 && (len(der.Allowed) == 0 || !subset(der.Allowed, src.Allowed)) {
				return false
			}
			if !subset(src.Denied, der.Denied) {
				return false
			}
		case ConstraintUsage:
			if der.MaxCount > src.MaxCount {
				return false
			}
		}
	}
	return true
}

func findConstraint(cs []Constraint, kind ConstraintKind) (Constraint, bool) {
	for _, c := range cs {
		if c.Kind == kind {
			return c, true
		}
	}
	return Constraint{}, false
}

// Request describes an attempted use of a capability for constraint
// evaluation. The zero Operation/Fields mean the request is not scoped to a
// specific operation or field set (e.g. a plain read).
type Request struct {
	Now       time.Time
	Operation string
	Fields    []string
}

// constraintsHold evaluates c's constraints against req; usage counting is
// checked by the caller against the store. Evaluation is conjunctive.
func (c Capability) constraintsHold(req Request, useCount uint64) bool {
	for _, con := range c.Constraints {
		switch con.Kind {
		case ConstraintTime:
			if req.Now.Before(con.Start) {
				return false
			}
			if !con.End.IsZero() && !req.Now.Before(con.End) {
				return false
			}
		case ConstraintOperation:
			if req.Operation != "" && !contains(con.Allowed, req.Operation) {
				return false
			}
		case ConstraintField:
			for _, f := range req.Fields {
				if contains(con.Denied, f) {
					return false
				}
				if len(con.Allowed) > 0 && !contains(con.Allowed, f) {
					return false
				}
			}
		case ConstraintUsage:
			if useCount >= con.MaxCount {
				return false
			}
		}
	}
	return true
}
