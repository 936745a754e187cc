package hl7

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
	"golang.org/x/sync/singleflight"
)

// profileLoads collapses concurrent first-time loads of the same profile
// path into a single disk read and parse, so a burst of goroutines parsing
// the first messages of a stream don't all pay the catalog-build cost.
var profileLoads singleflight.Group

// ProfileDocument is the shape of an on-disk TOML conformance-profile
// override file. It layers on top of BuiltinStructureDB: any segment or
// group it names replaces (not merges into) the built-in definition for
// that id at that version.
//
//	[[segments]]
//	version = "2.5"
//	id = "ZPI"
//	description = "Site-local patient index segment"
//
//	  [[segments.fields]]
//	  seq = 1
//	  name = "LocalID"
//	  data_type = "ST"
//	  required = true
//
//	[[groups]]
//	version = "2.5"
//	message_type = "ADT^Z99"
type ProfileDocument struct {
	Segments []ProfileSegment `toml:"segments"`
	Groups   []ProfileGroup   `toml:"groups"`
}

// ProfileSegment is one [[segments]] table in a ProfileDocument.
type ProfileSegment struct {
	Version     string                `toml:"version"`
	ID          string                `toml:"id"`
	Description string                `toml:"description"`
	Fields      []ProfileSegmentField `toml:"fields"`
}

// ProfileSegmentField is one [[segments.fields]] table.
type ProfileSegmentField struct {
	Seq       int    `toml:"seq"`
	Name      string `toml:"name"`
	DataType  string `toml:"data_type"`
	Required  bool   `toml:"required"`
	MaxOccurs int    `toml:"max_occurs"`
}

// ProfileGroup is one [[groups]] table. Its Segments field reuses the same
// flat ordered-list shape as SegmentRef without nested groups: profile
// overrides are expected to customize flat message types, not replicate
// the nested grouping of the built-in ORU/ORM definitions.
type ProfileGroup struct {
	Version     string              `toml:"version"`
	MessageType string              `toml:"message_type"`
	Segments    []ProfileGroupEntry `toml:"segments"`
}

// ProfileGroupEntry is one entry in a ProfileGroup's segment list.
type ProfileGroupEntry struct {
	SegmentID string `toml:"segment_id"`
	Required  bool   `toml:"required"`
	Repeating bool   `toml:"repeating"`
}

// ParseProfileDocument decodes raw TOML bytes into a ProfileDocument.
func ParseProfileDocument(raw []byte) (*ProfileDocument, error) {
	var doc ProfileDocument
	if err := toml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parsing profile document: %w", err)
	}
	return &doc, nil
}

// ToStructureDB converts a ProfileDocument into a standalone StructureDB
// suitable for StructureDB.Merge over BuiltinStructureDB().
func (doc *ProfileDocument) ToStructureDB() *StructureDB {
	db := NewStructureDB()
	for _, s := range doc.Segments {
		fields := make([]FieldDef, len(s.Fields))
		for i, f := range s.Fields {
			fields[i] = FieldDef{
				Seq:       f.Seq,
				Name:      f.Name,
				DataType:  f.DataType,
				Required:  f.Required,
				MaxOccurs: f.MaxOccurs,
			}
		}
		db.AddSegment(HL7Version(s.Version), SegmentDef{
			ID:          s.ID,
			Description: s.Description,
			Fields:      fields,
		})
	}
	for _, g := range doc.Groups {
		refs := make([]SegmentRef, len(g.Segments))
		for i, e := range g.Segments {
			refs[i] = SegmentRef{SegmentID: e.SegmentID, Required: e.Required, Repeating: e.Repeating}
		}
		db.AddGroup(HL7Version(g.Version), MessageGroupDef{MessageType: g.MessageType, Segments: refs})
	}
	return db
}

// LoadProfileFile reads and parses a TOML profile-override file from disk,
// deduplicating concurrent loads of the same path via singleflight.
func LoadProfileFile(path string) (*StructureDB, error) {
	v, err, _ := profileLoads.Do(path, func() (any, error) {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading profile %q: %w", path, err)
		}
		doc, err := ParseProfileDocument(raw)
		if err != nil {
			return nil, err
		}
		return doc.ToStructureDB(), nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*StructureDB), nil
}

// LoadStructureDB builds the effective catalog for a deployment: the
// built-in baseline, optionally overridden by a TOML profile file when
// profilePath is non-empty.
func LoadStructureDB(profilePath string) (*StructureDB, error) {
	db := NewStructureDB()
	db.Merge(BuiltinStructureDB())
	if profilePath == "" {
		return db, nil
	}
	override, err := LoadProfileFile(profilePath)
	if err != nil {
		return nil, err
	}
	db.Merge(override)
	return db, nil
}
