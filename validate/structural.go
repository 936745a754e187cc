package validate

import (
	"fmt"

	"github.com/Raster-Lab/hl7kit/hl7"
)

// BindingStrength controls how strictly a value-set binding is enforced.
type BindingStrength int

const (
	// BindingRequired rejects a value not found in the bound set.
	BindingRequired BindingStrength = iota
	// BindingPreferred warns, but does not reject, a value not found in
	// the bound set.
	BindingPreferred
	// BindingExample treats the bound set as illustrative only and never
	// flags a mismatch.
	BindingExample
)

// StructuralRule validates a message's segment sequence and per-field
// cardinality against a hl7.StructureDB message-group definition. Unlike
// the field-level Rule implementations in rules.go (each bound to a single
// HL7 path), a StructuralRule checks the shape of the whole message: which
// segments are present, in what order, and how many times each repeats.
type StructuralRule struct {
	db      *hl7.StructureDB
	version hl7.HL7Version
}

// NewStructuralRule builds a StructuralRule that checks messages against
// db at version.
func NewStructuralRule(db *hl7.StructureDB, version hl7.HL7Version) *StructuralRule {
	return &StructuralRule{db: db, version: version}
}

// Validate checks msg's segment sequence against the message-group
// definition for its declared MSH-9 message type, returning cardinality
// and ordering violations as ValidationErrors (Rule: "structural").
func (r *StructuralRule) Validate(msg hl7.Message) []ValidationError {
	msgType := msg.Type()
	def, resolvedVersion, ok := r.db.Group(r.version, msgType)
	if !ok {
		return nil
	}

	var errs []ValidationError
	counts := make(map[string]int)
	for _, seg := range msg.AllSegments() {
		counts[seg.Name()]++
	}

	for _, ref := range flattenRefs(def.Segments) {
		n := counts[ref.SegmentID]
		if ref.Required && n == 0 {
			errs = append(errs, ValidationError{
				Location: ref.SegmentID,
				Rule:     "structural",
				Message:  fmt.Sprintf("required segment missing for message type %s (schema version %s)", msgType, resolvedVersion),
			})
		}
		if !ref.Repeating && n > 1 {
			errs = append(errs, ValidationError{
				Location: ref.SegmentID,
				Rule:     "structural",
				Message:  fmt.Sprintf("segment %s must not repeat but occurred %d times", ref.SegmentID, n),
			})
		}
	}

	return errs
}

// Location satisfies the Rule interface; a StructuralRule applies to the
// whole message rather than a single path.
func (r *StructuralRule) Location() string { return "" }

// Description satisfies the Rule interface.
func (r *StructuralRule) Description() string {
	return fmt.Sprintf("structural conformance against Structure Database version %s", r.version)
}

func flattenRefs(refs []hl7.SegmentRef) []hl7.SegmentRef {
	var out []hl7.SegmentRef
	for _, ref := range refs {
		if len(ref.Group) > 0 {
			out = append(out, flattenRefs(ref.Group)...)
			continue
		}
		out = append(out, ref)
	}
	return out
}

// CardinalityRule validates that a field's repetition count falls within a
// segment definition's declared MinOccurs/MaxOccurs for a given field
// sequence.
type CardinalityRule struct {
	segmentID string
	field     hl7.FieldDef
}

// NewCardinalityRule builds a CardinalityRule for one field of one segment
// definition.
func NewCardinalityRule(segmentID string, field hl7.FieldDef) *CardinalityRule {
	return &CardinalityRule{segmentID: segmentID, field: field}
}

// Validate checks every occurrence of r.segmentID in msg against the
// configured field cardinality.
func (r *CardinalityRule) Validate(msg hl7.Message) []ValidationError {
	var errs []ValidationError
	for _, seg := range msg.Segments(r.segmentID) {
		f, ok := seg.Field(r.field.Seq)
		n := 0
		if ok {
			n = len(f.Repetitions())
		}
		if r.field.Required && n == 0 {
			errs = append(errs, ValidationError{
				Location: fmt.Sprintf("%s.%d", r.segmentID, r.field.Seq),
				Rule:     "cardinality",
				Message:  fmt.Sprintf("%s is required", r.field.Name),
			})
			continue
		}
		if r.field.MaxOccurs > 0 && n > r.field.MaxOccurs {
			errs = append(errs, ValidationError{
				Location: fmt.Sprintf("%s.%d", r.segmentID, r.field.Seq),
				Rule:     "cardinality",
				Message:  fmt.Sprintf("%s occurs %d times, max %d", r.field.Name, n, r.field.MaxOccurs),
			})
		}
	}
	return errs
}

// Location satisfies the Rule interface.
func (r *CardinalityRule) Location() string {
	return fmt.Sprintf("%s.%d", r.segmentID, r.field.Seq)
}

// Description satisfies the Rule interface.
func (r *CardinalityRule) Description() string {
	return fmt.Sprintf("cardinality of %s (%s)", r.Location(), r.field.Name)
}

// ValueSetRule validates a field's value against a fixed set of allowed
// codes at a configurable BindingStrength.
type ValueSetRule struct {
	location string
	allowed  map[string]struct{}
	strength BindingStrength
}

// NewValueSetRule builds a ValueSetRule bound to location, accepting any of
// allowed at the given strength.
func NewValueSetRule(location string, strength BindingStrength, allowed ...string) *ValueSetRule {
	set := make(map[string]struct{}, len(allowed))
	for _, v := range allowed {
		set[v] = struct{}{}
	}
	return &ValueSetRule{location: location, allowed: set, strength: strength}
}

// Validate checks the field named by location against the rule's allowed
// set. BindingExample never reports a violation; BindingPreferred and
// BindingRequired both report one, distinguished only by how a caller
// chooses to treat ValidationErrors produced under each (a preferred
// binding's finding is advisory, since ValidationError carries no severity
// of its own — callers who need that distinction should consult
// r.strength directly before acting on the result).
func (r *ValueSetRule) Validate(msg hl7.Message) []ValidationError {
	if r.strength == BindingExample {
		return nil
	}
	value, err := msg.Get(r.location)
	if err != nil || value == "" {
		return nil
	}
	if _, ok := r.allowed[value]; ok {
		return nil
	}
	return []ValidationError{{
		Location: r.location,
		Rule:     "value-set",
		Message:  fmt.Sprintf("value %q not in bound value set", value),
	}}
}

// Location satisfies the Rule interface.
func (r *ValueSetRule) Location() string { return r.location }

// Description satisfies the Rule interface.
func (r *ValueSetRule) Description() string {
	return fmt.Sprintf("value-set binding at %s", r.location)
}

// DataTypeRule validates that every repetition of a field's raw wire text
// parses against the grammar its StructureDB FieldDef declares (stage (b)
// of the validation pipeline: structure, then data type, then cardinality
// and value-set bindings). It runs hl7.ParseByType and surfaces whatever
// hl7.DataType.Validate finds as ValidationErrors, distinct from the
// structural and cardinality checks StructuralRule/CardinalityRule perform.
type DataTypeRule struct {
	segmentID string
	field     hl7.FieldDef
}

// NewDataTypeRule builds a DataTypeRule checking one field of one segment
// definition against its declared data type.
func NewDataTypeRule(segmentID string, field hl7.FieldDef) *DataTypeRule {
	return &DataTypeRule{segmentID: segmentID, field: field}
}

// Validate parses every repetition of r.field across every occurrence of
// r.segmentID in msg, reporting a ValidationError for each one whose text
// fails to parse or whose own Validate finds a grammar violation.
func (r *DataTypeRule) Validate(msg hl7.Message) []ValidationError {
	var errs []ValidationError
	loc := fmt.Sprintf("%s.%d", r.segmentID, r.field.Seq)

	for _, seg := range msg.Segments(r.segmentID) {
		values, err := seg.GetAll(fmt.Sprintf(".%d", r.field.Seq))
		if err != nil {
			continue
		}
		for _, raw := range values {
			if raw == "" {
				continue
			}
			dt, err := hl7.ParseByType(r.field.DataType, raw, msg.Delimiters())
			if err != nil {
				errs = append(errs, ValidationError{
					Location: loc,
					Rule:     "data-type",
					Message:  fmt.Sprintf("%s: %v", r.field.Name, err),
					Expected: r.field.DataType,
					Actual:   raw,
				})
				continue
			}
			for _, d := range dt.Validate() {
				errs = append(errs, ValidationError{
					Location: loc,
					Rule:     "data-type",
					Message:  fmt.Sprintf("%s: %s", r.field.Name, d.Message),
					Expected: r.field.DataType,
					Actual:   raw,
				})
			}
		}
	}
	return errs
}

// Location satisfies the Rule interface.
func (r *DataTypeRule) Location() string {
	return fmt.Sprintf("%s.%d", r.segmentID, r.field.Seq)
}

// Description satisfies the Rule interface.
func (r *DataTypeRule) Description() string {
	return fmt.Sprintf("data-type conformance of %s (%s) against %s", r.Location(), r.field.Name, r.field.DataType)
}

// SegmentRulesFromStructureDB builds the complete field-level rule set
// (cardinality plus data type, stages (b) and (c) of the pipeline) for one
// segment definition looked up from db at version. It is the counterpart to
// NewStructuralRule: that rule checks message shape, this one checks every
// field StructureDB declares for the segments the shape requires.
func SegmentRulesFromStructureDB(db *hl7.StructureDB, version hl7.HL7Version, segmentID string) []Rule {
	def, _, ok := db.Segment(version, segmentID)
	if !ok {
		return nil
	}
	rules := make([]Rule, 0, len(def.Fields)*2)
	for _, f := range def.Fields {
		rules = append(rules, NewCardinalityRule(segmentID, f))
		rules = append(rules, NewDataTypeRule(segmentID, f))
	}
	return rules
}

// Accumulator collects Diagnostics produced while validating a message,
// converting each ValidationError/ValidationWarning it is fed into the
// shared hl7.Diagnostic shape so validation findings can be reported
// alongside parser and framer diagnostics through one unified channel.
type Accumulator struct {
	diags hl7.Diagnostics
}

// NewAccumulator returns an empty Accumulator.
func NewAccumulator() *Accumulator {
	return &Accumulator{}
}

// AddErrors appends a batch of ValidationErrors as SeverityError
// diagnostics.
func (a *Accumulator) AddErrors(errs []ValidationError) {
	for _, e := range errs {
		loc, _ := hl7.ParseLocation(e.Location)
		a.diags = a.diags.Add(hl7.SeverityError, hl7.CodeCardinalityViolation, loc, e.Error())
	}
}

// AddWarnings appends a batch of ValidationWarnings as SeverityWarning
// diagnostics.
func (a *Accumulator) AddWarnings(warnings []ValidationWarning) {
	for _, w := range warnings {
		loc, _ := hl7.ParseLocation(w.Location)
		a.diags = a.diags.Add(hl7.SeverityWarning, hl7.CodeValueSetViolation, loc, w.Message)
	}
}

// Diagnostics returns everything accumulated so far.
func (a *Accumulator) Diagnostics() hl7.Diagnostics {
	return a.diags
}

// Ensure the structural rule types satisfy Rule.
var (
	_ Rule = (*StructuralRule)(nil)
	_ Rule = (*CardinalityRule)(nil)
	_ Rule = (*ValueSetRule)(nil)
	_ Rule = (*DataTypeRule)(nil)
)
