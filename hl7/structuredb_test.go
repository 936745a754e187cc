package hl7

import "testing"

func TestStructureDB_SegmentVersionFallback(t *testing.T) {
	db := NewStructureDB()
	db.AddSegment("2.3", SegmentDef{ID: "PID", Description: "old"})
	db.AddSegment("2.5", SegmentDef{ID: "PID", Description: "new"})

	tests := []struct {
		name        string
		requested   HL7Version
		wantVersion HL7Version
		wantDesc    string
		wantOK      bool
	}{
		{name: "exact match", requested: "2.5", wantVersion: "2.5", wantDesc: "new", wantOK: true},
		{name: "falls back to nearest earlier version", requested: "2.4", wantVersion: "2.3", wantDesc: "old", wantOK: true},
		{name: "falls back from a newer unknown version", requested: "2.8", wantVersion: "2.5", wantDesc: "new", wantOK: true},
		{name: "no definition at or below requested", requested: "2.1", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def, resolved, ok := db.Segment(tt.requested, "PID")
			if ok != tt.wantOK {
				t.Fatalf("Segment() ok = %v, want %v", ok, tt.wantOK)
			}
			if !tt.wantOK {
				return
			}
			if resolved != tt.wantVersion {
				t.Errorf("Segment() resolved version = %q, want %q", resolved, tt.wantVersion)
			}
			if def.Description != tt.wantDesc {
				t.Errorf("Segment() description = %q, want %q", def.Description, tt.wantDesc)
			}
		})
	}
}

func TestStructureDB_GroupVersionFallback(t *testing.T) {
	db := NewStructureDB()
	db.AddGroup("2.3", MessageGroupDef{MessageType: "ADT^A01"})

	_, resolved, ok := db.Group("2.6", "ADT^A01")
	if !ok {
		t.Fatal("Group() ok = false, want true")
	}
	if resolved != "2.3" {
		t.Errorf("Group() resolved version = %q, want 2.3", resolved)
	}

	if _, _, ok := db.Group("2.3", "ORU^R01"); ok {
		t.Error("Group() found an undefined message type")
	}
}

func TestStructureDB_Merge(t *testing.T) {
	base := NewStructureDB()
	base.AddSegment("2.3", SegmentDef{ID: "PID", Description: "base"})
	base.AddGroup("2.3", MessageGroupDef{MessageType: "ADT^A01"})

	override := NewStructureDB()
	override.AddSegment("2.3", SegmentDef{ID: "PID", Description: "overridden"})
	override.AddSegment("2.3", SegmentDef{ID: "ZZZ", Description: "site-local"})

	base.Merge(override)

	def, _, ok := base.Segment("2.3", "PID")
	if !ok || def.Description != "overridden" {
		t.Errorf("Merge() did not overlay PID, got %+v", def)
	}
	if _, _, ok := base.Segment("2.3", "ZZZ"); !ok {
		t.Error("Merge() did not add the new ZZZ segment")
	}
	if _, _, ok := base.Group("2.3", "ADT^A01"); !ok {
		t.Error("Merge() dropped a group the overlay never touched")
	}
}

func TestSegmentDef_Schema(t *testing.T) {
	def := SegmentDef{
		ID:          "PID",
		Description: "Patient Identification",
		Fields: []FieldDef{
			{Seq: 1, Name: "SetID", DataType: "SI"},
			{Seq: 3, Name: "PatientIdentifierList", DataType: "CX", Required: true},
		},
	}

	schema := def.Schema()
	if schema.Type != "object" {
		t.Errorf("Schema().Type = %q, want object", schema.Type)
	}
	if len(schema.Properties) != 2 {
		t.Errorf("Schema().Properties has %d entries, want 2", len(schema.Properties))
	}
	if _, ok := schema.Properties["PatientIdentifierList"]; !ok {
		t.Error("Schema() missing PatientIdentifierList property")
	}
	if len(schema.Required) != 1 || schema.Required[0] != "PatientIdentifierList" {
		t.Errorf("Schema().Required = %v, want [PatientIdentifierList]", schema.Required)
	}
}

func TestBuiltinStructureDB_Singleton(t *testing.T) {
	a := BuiltinStructureDB()
	b := BuiltinStructureDB()
	if a != b {
		t.Error("BuiltinStructureDB() did not return the same instance on repeated calls")
	}

	def, version, ok := a.Segment("2.3", "MSH")
	if !ok {
		t.Fatal("BuiltinStructureDB() missing MSH at 2.3")
	}
	if version != "2.3" {
		t.Errorf("BuiltinStructureDB() MSH resolved at %q, want 2.3", version)
	}
	if len(def.Fields) == 0 {
		t.Error("BuiltinStructureDB() MSH has no fields")
	}

	if _, _, ok := a.Group("2.3", "ADT^A01"); !ok {
		t.Error("BuiltinStructureDB() missing ADT^A01 group at 2.3")
	}
}

func TestResolveVersionFallback(t *testing.T) {
	diag := ResolveVersionFallback("2.6", "2.3", nil)
	if diag.Severity != SeverityInfo {
		t.Errorf("ResolveVersionFallback() severity = %v, want SeverityInfo", diag.Severity)
	}
	if diag.Code != CodeVersionFallback {
		t.Errorf("ResolveVersionFallback() code = %v, want CodeVersionFallback", diag.Code)
	}
}
