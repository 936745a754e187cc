package hl7

import (
	"fmt"
	"sort"
	"sync"

	"github.com/google/jsonschema-go/jsonschema"
)

var (
	dbOnce    sync.Once
	builtinDB *StructureDB
)

// HL7Version identifies a dotted HL7 v2.x release, e.g. "2.3", "2.5.1", "2.8".
type HL7Version string

// Supported versions, oldest to newest. fallbackOrder walks this list
// backward from a requested version to find the newest definition at or
// below it.
var supportedVersions = []HL7Version{"2.1", "2.2", "2.3", "2.3.1", "2.4", "2.5", "2.5.1", "2.6", "2.7", "2.7.1", "2.8"}

// FieldDef describes one field position within a segment definition.
type FieldDef struct {
	Seq       int
	Name      string
	DataType  string
	MinOccurs int
	MaxOccurs int // 0 means unbounded
	Required  bool
}

// SegmentDef describes a segment's field layout for a given HL7 version.
type SegmentDef struct {
	ID          string
	Description string
	Fields      []FieldDef
}

// SegmentRef places a segment (or a nested group of segments) within a
// message-group schema.
type SegmentRef struct {
	SegmentID string
	Required  bool
	Repeating bool
	Group     []SegmentRef // non-empty for a nested group instead of a leaf segment
}

// MessageGroupDef describes the segment sequence expected for one message
// type (e.g. "ADT^A01"), expressed as an ordered tree of SegmentRefs so
// optional/repeating sub-groups (insurance, next-of-kin, ...) are captured
// alongside flat ordering.
type MessageGroupDef struct {
	MessageType string
	Segments    []SegmentRef
}

// StructureDB is a version-indexed catalog of segment and message-group
// definitions. It is safe for concurrent reads once built; BuiltinStructureDB
// returns a package-level singleton built once via sync.Once (dbOnce), so
// concurrent first-callers wait for one build rather than racing.
type StructureDB struct {
	segments map[HL7Version]map[string]SegmentDef
	groups   map[HL7Version]map[string]MessageGroupDef
}

// NewStructureDB returns an empty catalog. Use AddSegment, AddGroup or
// Merge to populate it.
func NewStructureDB() *StructureDB {
	return &StructureDB{
		segments: make(map[HL7Version]map[string]SegmentDef),
		groups:   make(map[HL7Version]map[string]MessageGroupDef),
	}
}

// AddSegment registers a segment definition for a version.
func (db *StructureDB) AddSegment(version HL7Version, def SegmentDef) {
	if db.segments[version] == nil {
		db.segments[version] = make(map[string]SegmentDef)
	}
	db.segments[version][def.ID] = def
}

// AddGroup registers a message-group definition for a version.
func (db *StructureDB) AddGroup(version HL7Version, def MessageGroupDef) {
	if db.groups[version] == nil {
		db.groups[version] = make(map[string]MessageGroupDef)
	}
	db.groups[version][def.MessageType] = def
}

// Segment looks up a segment definition for version, falling back to the
// newest earlier version that defines it when the exact version is absent.
// The returned HL7Version reports which version's definition was actually
// used, and ok is false only when no version at or below the requested one
// defines the segment at all.
func (db *StructureDB) Segment(version HL7Version, id string) (SegmentDef, HL7Version, bool) {
	for _, v := range fallbackOrder(version) {
		if defs, ok := db.segments[v]; ok {
			if def, ok := defs[id]; ok {
				return def, v, true
			}
		}
	}
	return SegmentDef{}, "", false
}

// Group looks up a message-group definition with the same fallback
// semantics as Segment.
func (db *StructureDB) Group(version HL7Version, messageType string) (MessageGroupDef, HL7Version, bool) {
	for _, v := range fallbackOrder(version) {
		if defs, ok := db.groups[v]; ok {
			if def, ok := defs[messageType]; ok {
				return def, v, true
			}
		}
	}
	return MessageGroupDef{}, "", false
}

// fallbackOrder returns supportedVersions at or below requested, newest
// first, so callers walking it find the closest backward-compatible
// definition before an older one.
func fallbackOrder(requested HL7Version) []HL7Version {
	idx := len(supportedVersions)
	for i, v := range supportedVersions {
		if v == requested {
			idx = i + 1
			break
		}
	}
	if idx == len(supportedVersions) {
		// Unknown/newer-than-catalog version: still fall back through the
		// entire catalog, newest first.
		idx = len(supportedVersions)
	}
	out := make([]HL7Version, idx)
	for i := 0; i < idx; i++ {
		out[i] = supportedVersions[idx-1-i]
	}
	return out
}

// ResolveVersionFallback reports the diagnostic produced when a lookup
// fell back to an older version than requested.
func ResolveVersionFallback(requested, resolved HL7Version, location *Location) Diagnostic {
	return Diagnostic{
		Severity: SeverityInfo,
		Code:     CodeVersionFallback,
		Location: location,
		Message:  fmt.Sprintf("no definition for version %s; used %s instead", requested, resolved),
	}
}

// Merge overlays other's entries on top of db, with other's entries taking
// precedence on conflict. This is how a loaded profile-override file
// (see profile.go) customizes the built-in catalog without needing to
// restate every segment it isn't changing.
func (db *StructureDB) Merge(other *StructureDB) {
	for v, defs := range other.segments {
		for id, def := range defs {
			db.AddSegment(v, def)
			_ = id
		}
	}
	for v, defs := range other.groups {
		for mt, def := range defs {
			db.AddGroup(v, def)
			_ = mt
		}
	}
}

// Schema renders a segment definition as a JSON Schema object describing
// the shape of its fields, suitable for validating an externally-authored
// profile document (e.g. produced by a profile-authoring tool) before the
// TOML loader in profile.go ever reads it.
func (def SegmentDef) Schema() *jsonschema.Schema {
	props := make(map[string]*jsonschema.Schema, len(def.Fields))
	var required []string
	for _, f := range def.Fields {
		props[f.Name] = &jsonschema.Schema{
			Type:        "string",
			Description: fmt.Sprintf("%s.%d (%s)", def.ID, f.Seq, f.DataType),
		}
		if f.Required {
			required = append(required, f.Name)
		}
	}
	sort.Strings(required)
	return &jsonschema.Schema{
		Type:        "object",
		Description: def.Description,
		Properties:  props,
		Required:    required,
	}
}

// BuiltinStructureDB returns the package-level catalog of standard segment
// and message-group definitions, building it on first use.
func BuiltinStructureDB() *StructureDB {
	dbOnce.Do(func() {
		builtinDB = buildBuiltinStructureDB()
	})
	return builtinDB
}

// buildBuiltinStructureDB assembles the catalog this package ships with. It
// covers the segments and message groups exercised by the builder and
// validator packages rather than the full HL7 standard; a conformance
// profile loaded over it (profile.go) can add or override entries for
// anything a deployment needs beyond this baseline.
func buildBuiltinStructureDB() *StructureDB {
	db := NewStructureDB()

	msh := SegmentDef{
		ID:          "MSH",
		Description: "Message Header",
		Fields: []FieldDef{
			{Seq: 1, Name: "FieldSeparator", DataType: "ST", Required: true, MaxOccurs: 1},
			{Seq: 2, Name: "EncodingCharacters", DataType: "ST", Required: true, MaxOccurs: 1},
			{Seq: 3, Name: "SendingApplication", DataType: "HD", MaxOccurs: 1},
			{Seq: 4, Name: "SendingFacility", DataType: "HD", MaxOccurs: 1},
			{Seq: 5, Name: "ReceivingApplication", DataType: "HD", MaxOccurs: 1},
			{Seq: 6, Name: "ReceivingFacility", DataType: "HD", MaxOccurs: 1},
			{Seq: 7, Name: "DateTimeOfMessage", DataType: "DTM", Required: true, MaxOccurs: 1},
			{Seq: 9, Name: "MessageType", DataType: "CM", Required: true, MaxOccurs: 1},
			{Seq: 10, Name: "MessageControlID", DataType: "ST", Required: true, MaxOccurs: 1},
			{Seq: 11, Name: "ProcessingID", DataType: "PT", Required: true, MaxOccurs: 1},
			{Seq: 12, Name: "VersionID", DataType: "VID", Required: true, MaxOccurs: 1},
			{Seq: 18, Name: "CharacterSet", DataType: "ID", MaxOccurs: 0},
		},
	}
	evn := SegmentDef{
		ID:          "EVN",
		Description: "Event Type",
		Fields: []FieldDef{
			{Seq: 2, Name: "RecordedDateTime", DataType: "DTM", Required: true, MaxOccurs: 1},
		},
	}
	pid := SegmentDef{
		ID:          "PID",
		Description: "Patient Identification",
		Fields: []FieldDef{
			{Seq: 1, Name: "SetID", DataType: "SI", MaxOccurs: 1},
			{Seq: 3, Name: "PatientIdentifierList", DataType: "CX", Required: true, MaxOccurs: 0},
			{Seq: 5, Name: "PatientName", DataType: "XPN", Required: true, MaxOccurs: 0},
			{Seq: 7, Name: "DateTimeOfBirth", DataType: "DTM", MaxOccurs: 1},
			{Seq: 8, Name: "AdministrativeSex", DataType: "IS", MaxOccurs: 1},
			{Seq: 11, Name: "PatientAddress", DataType: "XAD", MaxOccurs: 0},
			{Seq: 13, Name: "PhoneHome", DataType: "XTN", MaxOccurs: 0},
		},
	}
	pv1 := SegmentDef{
		ID:          "PV1",
		Description: "Patient Visit",
		Fields: []FieldDef{
			{Seq: 1, Name: "SetID", DataType: "SI", MaxOccurs: 1},
			{Seq: 2, Name: "PatientClass", DataType: "IS", Required: true, MaxOccurs: 1},
			{Seq: 3, Name: "AssignedPatientLocation", DataType: "PL", MaxOccurs: 1},
			{Seq: 19, Name: "VisitNumber", DataType: "CX", MaxOccurs: 1},
		},
	}
	nk1 := SegmentDef{
		ID:          "NK1",
		Description: "Next of Kin",
		Fields: []FieldDef{
			{Seq: 1, Name: "SetID", DataType: "SI", Required: true, MaxOccurs: 1},
			{Seq: 2, Name: "Name", DataType: "XPN", MaxOccurs: 0},
			{Seq: 3, Name: "Relationship", DataType: "CE", MaxOccurs: 1},
		},
	}
	orc := SegmentDef{
		ID:          "ORC",
		Description: "Common Order",
		Fields: []FieldDef{
			{Seq: 1, Name: "OrderControl", DataType: "ID", Required: true, MaxOccurs: 1},
			{Seq: 2, Name: "PlacerOrderNumber", DataType: "EI", MaxOccurs: 1},
			{Seq: 3, Name: "FillerOrderNumber", DataType: "EI", MaxOccurs: 1},
		},
	}
	obr := SegmentDef{
		ID:          "OBR",
		Description: "Observation Request",
		Fields: []FieldDef{
			{Seq: 1, Name: "SetID", DataType: "SI", MaxOccurs: 1},
			{Seq: 2, Name: "PlacerOrderNumber", DataType: "EI", MaxOccurs: 1},
			{Seq: 3, Name: "FillerOrderNumber", DataType: "EI", MaxOccurs: 1},
			{Seq: 4, Name: "UniversalServiceIdentifier", DataType: "CE", Required: true, MaxOccurs: 1},
		},
	}
	obx := SegmentDef{
		ID:          "OBX",
		Description: "Observation/Result",
		Fields: []FieldDef{
			{Seq: 1, Name: "SetID", DataType: "SI", MaxOccurs: 1},
			{Seq: 2, Name: "ValueType", DataType: "ID", Required: true, MaxOccurs: 1},
			{Seq: 3, Name: "ObservationIdentifier", DataType: "CE", Required: true, MaxOccurs: 1},
			{Seq: 5, Name: "ObservationValue", DataType: "ST", MaxOccurs: 0},
			{Seq: 11, Name: "ObservationResultStatus", DataType: "ID", Required: true, MaxOccurs: 1},
		},
	}
	msa := SegmentDef{
		ID:          "MSA",
		Description: "Message Acknowledgment",
		Fields: []FieldDef{
			{Seq: 1, Name: "AcknowledgmentCode", DataType: "ID", Required: true, MaxOccurs: 1},
			{Seq: 2, Name: "MessageControlID", DataType: "ST", Required: true, MaxOccurs: 1},
		},
	}

	baseline := []SegmentDef{msh, evn, pid, pv1, nk1, orc, obr, obx, msa}
	for _, v := range supportedVersions {
		for _, def := range baseline {
			db.AddSegment(v, def)
		}
	}

	db.AddGroup("2.3", MessageGroupDef{
		MessageType: "ADT^A01",
		Segments: []SegmentRef{
			{SegmentID: "MSH", Required: true},
			{SegmentID: "EVN", Required: true},
			{SegmentID: "PID", Required: true},
			{SegmentID: "NK1", Repeating: true},
			{SegmentID: "PV1", Required: true},
		},
	})
	db.AddGroup("2.3", MessageGroupDef{
		MessageType: "ORU^R01",
		Segments: []SegmentRef{
			{SegmentID: "MSH", Required: true},
			{
				Group: []SegmentRef{
					{SegmentID: "PID", Required: true},
					{
						Group: []SegmentRef{
							{SegmentID: "OBR", Required: true},
							{SegmentID: "OBX", Required: true, Repeating: true},
						},
						Repeating: true,
					},
				},
				Required: true,
			},
		},
	})
	db.AddGroup("2.3", MessageGroupDef{
		MessageType: "ORM^O01",
		Segments: []SegmentRef{
			{SegmentID: "MSH", Required: true},
			{SegmentID: "PID", Required: true},
			{SegmentID: "ORC", Required: true, Repeating: true},
			{SegmentID: "OBR", Repeating: true},
		},
	})
	db.AddGroup("2.3", MessageGroupDef{
		MessageType: "ACK",
		Segments: []SegmentRef{
			{SegmentID: "MSH", Required: true},
			{SegmentID: "MSA", Required: true},
		},
	})

	return db
}
