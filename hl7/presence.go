package hl7

// Presence distinguishes a field position that does not exist on the
// segment ("absent") from one that exists but carries no text ("empty").
// Accessors elsewhere in this package collapse both cases to "" for
// backward-compatible callers; Presence is the first-class way to tell
// them apart, per the node model's absent/empty/present invariant.
type Presence int

const (
	// PresenceAbsent means the position was never populated: the index is
	// beyond the segment's/field's/component's current length.
	PresenceAbsent Presence = iota
	// PresenceEmpty means the position exists but its value is "".
	PresenceEmpty
	// PresencePresent means the position exists and carries non-empty text.
	PresencePresent
)

// String renders the presence state for diagnostics and test failure output.
func (p Presence) String() string {
	switch p {
	case PresenceAbsent:
		return "absent"
	case PresenceEmpty:
		return "empty"
	case PresencePresent:
		return "present"
	default:
		return "unknown"
	}
}

// FieldPresence reports whether the field at the given 1-based sequence
// number is absent, empty, or present.
func (s *segment) FieldPresence(seq int) Presence {
	if seq < 1 || seq > len(s.fields) {
		return PresenceAbsent
	}
	if s.fields[seq-1] == nil || s.fields[seq-1].Value() == "" {
		return PresenceEmpty
	}
	return PresencePresent
}

// ComponentPresence reports whether the component at the given 1-based
// index within the field's first repetition is absent, empty, or present.
func (f *field) ComponentPresence(index int) Presence {
	comp, ok := f.Component(index)
	if !ok {
		return PresenceAbsent
	}
	if comp.Value() == "" {
		return PresenceEmpty
	}
	return PresencePresent
}

// SubComponentPresence reports whether the subcomponent at the given
// 1-based index is absent, empty, or present.
func (c *component) SubComponentPresence(index int) Presence {
	sc, ok := c.SubComponent(index)
	if !ok {
		return PresenceAbsent
	}
	if sc.Value() == "" {
		return PresenceEmpty
	}
	return PresencePresent
}
