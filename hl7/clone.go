package hl7

// Clone returns a deep copy of the subcomponent.
func (sc *subComponent) Clone() SubComponent {
	v := make([]rune, len(sc.value))
	copy(v, sc.value)
	return &subComponent{value: v}
}

// Clone returns a deep copy of the component, including all subcomponents.
func (c *component) Clone() Component {
	nc := &component{}
	if c.value != nil {
		nc.value = make([]rune, len(c.value))
		copy(nc.value, c.value)
	}
	if c.subComponents != nil {
		nc.subComponents = make([]SubComponent, len(c.subComponents))
		for i, sc := range c.subComponents {
			nc.subComponents[i] = sc.Clone()
		}
	}
	return nc
}

// Clone returns a deep copy of the repetition, including all components.
func (r *repetition) Clone() Repetition {
	nr := &repetition{}
	if r.value != nil {
		nr.value = make([]rune, len(r.value))
		copy(nr.value, r.value)
	}
	if r.components != nil {
		nr.components = make([]Component, len(r.components))
		for i, c := range r.components {
			nr.components[i] = c.Clone()
		}
	}
	return nr
}

// Clone returns a deep copy of the field, including all repetitions.
func (f *field) Clone() Field {
	nf := &field{seqNum: f.seqNum}
	if f.value != nil {
		nf.value = make([]rune, len(f.value))
		copy(nf.value, f.value)
	}
	if f.repetitions != nil {
		nf.repetitions = make([]Repetition, len(f.repetitions))
		for i, r := range f.repetitions {
			nf.repetitions[i] = r.Clone()
		}
	}
	return nf
}

// Clone returns a deep copy of the segment, including all fields down to
// the subcomponent level. The clone shares no mutable storage with the
// receiver, so the two can diverge independently.
func (s *segment) Clone() Segment {
	ns := &segment{name: s.name}
	if s.value != nil {
		ns.value = make([]rune, len(s.value))
		copy(ns.value, s.value)
	}
	if s.fields != nil {
		ns.fields = make([]Field, len(s.fields))
		for i, f := range s.fields {
			if f == nil {
				continue
			}
			ns.fields[i] = f.Clone()
		}
	}
	return ns
}
