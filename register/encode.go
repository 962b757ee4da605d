package register

import (
	"fmt"
	"sort"
	"time"

	"registra.dev/registra/capability"
	"registra.dev/registra/content"
	"registra.dev/registra/identity"
)

// The canonical form of a register is a fixed-position list of its fields,
// excluding ContentHash. Embedded capabilities contribute their own content
// hash (never their raw fields), so a register's hash can never drift from
// a capability's without the fold changing too.

func timeValue(t time.Time) content.Value {
	if t.IsZero() {
		return content.Null()
	}
	return content.Int(t.UnixNano())
}

func timeFromValue(v content.Value) (time.Time, error) {
	if v.Kind() == content.KindNull {
		return time.Time{}, nil
	}
	ns, ok := v.AsInt()
	if !ok {
		return time.Time{}, fmt.Errorf("%w: expected timestamp", ErrInput)
	}
	return time.Unix(0, ns).UTC(), nil
}

func (s State) contentValue() content.Value {
	return content.List(
		content.String(string(s.Phase)),
		content.String(s.LockOperationID),
		content.String(s.LockHolder.String()),
		timeValue(s.LockExpiry),
		timeValue(s.DeletionScheduledAt),
		content.String(s.ErrorReason),
	)
}

func stateFromValue(v content.Value) (State, error) {
	fields, ok := v.AsList()
	if !ok || len(fields) != 6 {
		return State{}, fmt.Errorf("%w: malformed state", ErrInput)
	}
	phase, _ := fields[0].AsString()
	opID, _ := fields[1].AsString()
	holder, _ := fields[2].AsString()
	expiry, err := timeFromValue(fields[3])
	if err != nil {
		return State{}, err
	}
	deletion, err := timeFromValue(fields[4])
	if err != nil {
		return State{}, err
	}
	reason, _ := fields[5].AsString()
	return State{
		Phase:               Phase(phase),
		LockOperationID:     opID,
		LockHolder:          identity.Identity(holder),
		LockExpiry:          expiry,
		DeletionScheduledAt: deletion,
		ErrorReason:         reason,
	}, nil
}

func capRefs(caps []capability.Capability) content.Value {
	refs := make([]content.Value, len(caps))
	for i, c := range caps {
		refs[i] = content.HashRef(c.ContentHash)
	}
	return content.List(refs...)
}

func capRefsFromValue(v content.Value) ([]capability.Capability, error) {
	list, ok := v.AsList()
	if !ok {
		return nil, fmt.Errorf("%w: malformed capability list", ErrInput)
	}
	if len(list) == 0 {
		return nil, nil
	}
	out := make([]capability.Capability, 0, len(list))
	for _, e := range list {
		h, ok := e.AsHash()
		if !ok {
			return nil, fmt.Errorf("%w: malformed capability reference", ErrInput)
		}
		// The binary form carries capability references only; full
		// definitions live in the delegation store.
		out = append(out, capability.Capability{ContentHash: h})
	}
	return out, nil
}

func (cs CapabilitySet) contentValue() content.Value {
	granted := make(map[string]content.Value, len(cs.Granted))
	for id, caps := range cs.Granted {
		granted[id.String()] = capRefs(caps)
	}
	requirements := make(map[string]content.Value, len(cs.Requirements))
	for op, kinds := range cs.Requirements {
		ks := make([]string, len(kinds))
		for i, k := range kinds {
			ks[i] = string(k)
		}
		sort.Strings(ks)
		vs := make([]content.Value, len(ks))
		for i, k := range ks {
			vs[i] = content.String(k)
		}
		requirements[op] = content.List(vs...)
	}
	return content.List(
		capRefs(cs.Defaults),
		content.Map(granted),
		content.Map(requirements),
	)
}

func capSetFromValue(v content.Value) (CapabilitySet, error) {
	fields, ok := v.AsList()
	if !ok || len(fields) != 3 {
		return CapabilitySet{}, fmt.Errorf("%w: malformed capability set", ErrInput)
	}
	defaults, err := capRefsFromValue(fields[0])
	if err != nil {
		return CapabilitySet{}, err
	}
	var cs CapabilitySet
	cs.Defaults = defaults

	grantedRaw, ok := fields[1].AsMap()
	if !ok {
		return CapabilitySet{}, fmt.Errorf("%w: malformed grants", ErrInput)
	}
	if len(grantedRaw) > 0 {
		cs.Granted = make(map[identity.Identity][]capability.Capability, len(grantedRaw))
		for id, refs := range grantedRaw {
			caps, err := capRefsFromValue(refs)
			if err != nil {
				return CapabilitySet{}, err
			}
			cs.Granted[identity.Identity(id)] = caps
		}
	}

	reqRaw, ok := fields[2].AsMap()
	if !ok {
		return CapabilitySet{}, fmt.Errorf("%w: malformed requirements", ErrInput)
	}
	if len(reqRaw) > 0 {
		cs.Requirements = make(map[string][]capability.Kind, len(reqRaw))
		for op, kindsVal := range reqRaw {
			kindList, ok := kindsVal.AsList()
			if !ok {
				return CapabilitySet{}, fmt.Errorf("%w: malformed requirement kinds", ErrInput)
			}
			kinds := make([]capability.Kind, 0, len(kindList))
			for _, kv := range kindList {
				s, ok := kv.AsString()
				if !ok {
					return CapabilitySet{}, fmt.Errorf("%w: malformed requirement kind", ErrInput)
				}
				kinds = append(kinds, capability.Kind(s))
			}
			cs.Requirements[op] = kinds
		}
	}
	return cs, nil
}

func historyValue(history []Transition) content.Value {
	entries := make([]content.Value, len(history))
	for i, tr := range history {
		entries[i] = content.List(
			content.String(string(tr.From)),
			content.String(string(tr.To)),
			timeValue(tr.At),
			content.String(tr.Reason),
			content.String(tr.Initiator.String()),
		)
	}
	return content.List(entries...)
}

func historyFromValue(v content.Value) ([]Transition, error) {
	list, ok := v.AsList()
	if !ok {
		return nil, fmt.Errorf("%w: malformed history", ErrInput)
	}
	if len(list) == 0 {
		return nil, nil
	}
	out := make([]Transition, 0, len(list))
	for _, e := range list {
		fields, ok := e.AsList()
		if !ok || len(fields) != 5 {
			return nil, fmt.Errorf("%w: malformed history entry", ErrInput)
		}
		from, _ := fields[0].AsString()
		to, _ := fields[1].AsString()
		at, err := timeFromValue(fields[2])
		if err != nil {
			return nil, err
		}
		reason, _ := fields[3].AsString()
		initiator, _ := fields[4].AsString()
		out = append(out, Transition{
			From:      Phase(from),
			To:        Phase(to),
			At:        at,
			Reason:    reason,
			Initiator: identity.Identity(initiator),
		})
	}
	return out, nil
}

func (r *Register) contentValue() content.Value {
	return content.List(
		content.String(string(r.ID)),
		content.String(r.ResourceType),
		r.State.contentValue(),
		content.Map(r.Attributes),
		content.Map(r.Metadata),
		r.Capabilities.contentValue(),
		content.List(
			content.String(r.Ownership.Owner.String()),
			content.String(r.Ownership.CreatedBy.String()),
		),
		content.List(
			timeValue(r.Temporal.CreatedAt),
			timeValue(r.Temporal.UpdatedAt),
		),
		historyValue(r.History),
	)
}

// MarshalBinary returns the register's canonical bytes: the exact bytes its
// content hash is computed over. The hash itself is not serialized; it is
// recomputed on decode, so the binary form round-trips exactly through
// content hashing.
func (r *Register) MarshalBinary() ([]byte, error) {
	return content.Encode("register", r.contentValue())
}

// UnmarshalBinary parses canonical bytes and recomputes the content hash.
func (r *Register) UnmarshalBinary(b []byte) error {
	v, err := content.Decode("register", b)
	if err != nil {
		return err
	}
	fields, ok := v.AsList()
	if !ok || len(fields) != 9 {
		return fmt.Errorf("%w: malformed register", ErrInput)
	}

	id, _ := fields[0].AsString()
	resourceType, _ := fields[1].AsString()
	state, err := stateFromValue(fields[2])
	if err != nil {
		return err
	}
	attrs, ok := fields[3].AsMap()
	if !ok {
		return fmt.Errorf("%w: malformed attributes", ErrInput)
	}
	meta, ok := fields[4].AsMap()
	if !ok {
		return fmt.Errorf("%w: malformed metadata", ErrInput)
	}
	caps, err := capSetFromValue(fields[5])
	if err != nil {
		return err
	}

	ownerFields, ok := fields[6].AsList()
	if !ok || len(ownerFields) != 2 {
		return fmt.Errorf("%w: malformed ownership", ErrInput)
	}
	owner, _ := ownerFields[0].AsString()
	createdBy, _ := ownerFields[1].AsString()

	temporalFields, ok := fields[7].AsList()
	if !ok || len(temporalFields) != 2 {
		return fmt.Errorf("%w: malformed temporal info", ErrInput)
	}
	createdAt, err := timeFromValue(temporalFields[0])
	if err != nil {
		return err
	}
	updatedAt, err := timeFromValue(temporalFields[1])
	if err != nil {
		return err
	}

	history, err := historyFromValue(fields[8])
	if err != nil {
		return err
	}

	*r = Register{
		ID:           ID(id),
		ResourceType: resourceType,
		State:        state,
		Attributes:   attrs,
		Metadata:     meta,
		Capabilities: caps,
		Ownership:    Ownership{Owner: identity.Identity(owner), CreatedBy: identity.Identity(createdBy)},
		Temporal:     Temporal{CreatedAt: createdAt, UpdatedAt: updatedAt},
		History:      history,
	}
	return r.RecomputeHash()
}
