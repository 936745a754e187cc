package hl7

import (
	"fmt"
	"strconv"
	"strings"
)

// DataType is implemented by every HL7 primitive and composite value type
// in this package. A DataType knows how to serialize itself back to wire
// format and how to check itself against its own grammar, independent of
// any particular field or segment it happens to occupy.
type DataType interface {
	// Format renders the value back to HL7 wire text using delims for any
	// component/subcomponent separators the type requires.
	Format(delims *Delimiters) string

	// Validate checks the value against its own type grammar (not against
	// any segment-level cardinality or value-set binding, which are the
	// Validator's concern) and returns any diagnostics found.
	Validate() Diagnostics
}

// --- Primitives -------------------------------------------------------

// ST is the String primitive: unconstrained display text.
type ST string

// ParseST parses a raw field/component value as ST. ST accepts any text,
// so parsing never fails.
func ParseST(raw string) (ST, error) { return ST(raw), nil }

func (v ST) Format(*Delimiters) string { return string(v) }
func (v ST) Validate() Diagnostics     { return nil }

// TX is the Text primitive: display text that preserves leading whitespace.
type TX string

func ParseTX(raw string) (TX, error) { return TX(raw), nil }

func (v TX) Format(*Delimiters) string { return string(v) }
func (v TX) Validate() Diagnostics     { return nil }

// FT is the Formatted Text primitive: display text that may embed HL7
// escape-sequence formatting directives (\.br\, \H\, \N\, ...).
type FT string

func ParseFT(raw string) (FT, error) { return FT(raw), nil }

func (v FT) Format(*Delimiters) string { return string(v) }
func (v FT) Validate() Diagnostics     { return nil }

// ID is a coded value drawn from an HL7-defined table. Validate alone
// cannot check table membership (the table is supplied by the Validator's
// conformance profile); ID.Validate only checks that the value is present.
type ID string

func ParseID(raw string) (ID, error) { return ID(raw), nil }

func (v ID) Format(*Delimiters) string { return string(v) }

func (v ID) Validate() Diagnostics {
	if v == "" {
		return Diagnostics{{Severity: SeverityWarning, Code: CodeValueSetViolation, Message: "ID value is empty"}}
	}
	return nil
}

// IS is a coded value drawn from a user-defined (site-extensible) table.
// Unlike ID, an empty IS is not itself a violation since user tables are
// commonly left unpopulated.
type IS string

func ParseIS(raw string) (IS, error) { return IS(raw), nil }

func (v IS) Format(*Delimiters) string { return string(v) }
func (v IS) Validate() Diagnostics     { return nil }

// SI is the Sequence ID primitive: a non-negative integer.
type SI int

func ParseSI(raw string) (SI, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: SI must be an integer: %v", ErrDataTypeViolation, err)
	}
	return SI(n), nil
}

func (v SI) Format(*Delimiters) string { return strconv.Itoa(int(v)) }

func (v SI) Validate() Diagnostics {
	if v < 0 {
		return Diagnostics{{Severity: SeverityError, Code: CodeDataTypeViolation, Message: "SI must be non-negative"}}
	}
	return nil
}

// NM is the Numeric primitive. The original source text is preserved
// verbatim in Raw so round-tripping never loses precision or trailing
// zeros the source system intended to keep.
type NM struct {
	Raw   string
	Value float64
	valid bool
}

func ParseNM(raw string) (NM, error) {
	if raw == "" {
		return NM{Raw: raw, valid: true}, nil
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return NM{Raw: raw}, fmt.Errorf("%w: NM must be numeric: %v", ErrDataTypeViolation, err)
	}
	return NM{Raw: raw, Value: f, valid: true}, nil
}

func (v NM) Format(*Delimiters) string { return v.Raw }

func (v NM) Validate() Diagnostics {
	if !v.valid {
		return Diagnostics{{Severity: SeverityError, Code: CodeDataTypeViolation, Message: "NM failed to parse: " + v.Raw}}
	}
	return nil
}

// splitTimezone separates a TM/DTM value into its body and a trailing
// +/-ZZZZ offset (tz is empty when no '+' or '-' follows the first byte).
func splitTimezone(raw string) (body, tz string) {
	for _, sep := range []byte{'+', '-'} {
		if idx := strings.IndexByte(raw, sep); idx > 0 {
			return raw[:idx], raw[idx:]
		}
	}
	return raw, ""
}

func validateDigits(s string, label string) Diagnostics {
	for _, r := range s {
		if r < '0' || r > '9' {
			return Diagnostics{{Severity: SeverityError, Code: CodeDataTypeViolation, Message: label + " contains non-digit characters: " + s}}
		}
	}
	return nil
}

// DT is the Date primitive: YYYY[MM[DD]].
type DT string

func ParseDT(raw string) (DT, error) { return DT(raw), nil }

func (v DT) Format(*Delimiters) string { return string(v) }

func (v DT) Validate() Diagnostics {
	s := string(v)
	if s == "" {
		return nil
	}
	if len(s) != 4 && len(s) != 6 && len(s) != 8 {
		return Diagnostics{{Severity: SeverityError, Code: CodeDataTypeViolation, Message: "DT must be YYYY, YYYYMM, or YYYYMMDD: " + s}}
	}
	return validateDigits(s, "DT")
}

// TM is the Time primitive: HH[MM[SS[.S[S[S[S]]]]]][+/-ZZZZ].
type TM string

func ParseTM(raw string) (TM, error) { return TM(raw), nil }

func (v TM) Format(*Delimiters) string { return string(v) }

func (v TM) Validate() Diagnostics {
	s := string(v)
	if s == "" {
		return nil
	}
	body, tz := splitTimezone(s)
	if tz != "" && len(tz) != 5 {
		return Diagnostics{{Severity: SeverityError, Code: CodeDataTypeViolation, Message: "TM timezone offset must be +/-ZZZZ: " + s}}
	}
	whole := body
	if idx := strings.IndexByte(body, '.'); idx >= 0 {
		whole = body[:idx]
	}
	if len(whole) < 2 || len(whole)%2 != 0 {
		return Diagnostics{{Severity: SeverityError, Code: CodeDataTypeViolation, Message: "TM must have an even number of digits before any fraction: " + s}}
	}
	return validateDigits(whole, "TM")
}

// DTM is the Date/Time primitive: the full HL7 timestamp grammar
// YYYY[MM[DD[HH[MM[SS[.S[S[S[S]]]]]]]]][+/-ZZZZ].
type DTM string

func ParseDTM(raw string) (DTM, error) { return DTM(raw), nil }

func (v DTM) Format(*Delimiters) string { return string(v) }

func (v DTM) Validate() Diagnostics {
	s := string(v)
	if s == "" {
		return nil
	}
	body, tz := splitTimezone(s)
	if tz != "" && len(tz) != 5 {
		return Diagnostics{{Severity: SeverityError, Code: CodeDataTypeViolation, Message: "DTM timezone offset must be +/-ZZZZ: " + s}}
	}
	whole := body
	if idx := strings.IndexByte(body, '.'); idx >= 0 {
		whole = body[:idx]
	}
	if len(whole) < 4 {
		return Diagnostics{{Severity: SeverityError, Code: CodeDataTypeViolation, Message: "DTM must specify at least a 4-digit year: " + s}}
	}
	return validateDigits(whole, "DTM")
}

// ErrDataTypeViolation is the sentinel wrapped by every primitive's parse
// failure so callers can match on it with errors.Is regardless of which
// concrete data type produced the error.
var ErrDataTypeViolation = fmt.Errorf("data type violation")

// --- Composites ---------------------------------------------------------

// splitComponents splits raw on the component delimiter, returning exactly
// n entries (padding with empty strings, discarding anything past n).
func splitComponents(raw string, delims *Delimiters, n int) []string {
	if delims == nil {
		delims = DefaultDelimiters()
	}
	parts := strings.Split(raw, string(delims.Component))
	out := make([]string, n)
	for i := 0; i < n && i < len(parts); i++ {
		out[i] = parts[i]
	}
	return out
}

func joinComponents(delims *Delimiters, parts ...string) string {
	if delims == nil {
		delims = DefaultDelimiters()
	}
	for len(parts) > 0 && parts[len(parts)-1] == "" {
		parts = parts[:len(parts)-1]
	}
	return strings.Join(parts, string(delims.Component))
}

// subDelims returns a copy of delims whose component separator is the
// subcomponent separator, so a composite nested inside one component
// (the HD inside CX and PL) splits and joins on '&'.
func subDelims(delims *Delimiters) *Delimiters {
	if delims == nil {
		delims = DefaultDelimiters()
	}
	d := *delims
	d.Component = d.SubComponent
	return &d
}

// EI is the Entity Identifier composite: NamespaceID^UniversalID^UniversalIDType.
type EI struct {
	NamespaceID     string
	UniversalID     string
	UniversalIDType string
}

func ParseEI(raw string, delims *Delimiters) (EI, error) {
	p := splitComponents(raw, delims, 3)
	return EI{NamespaceID: p[0], UniversalID: p[1], UniversalIDType: p[2]}, nil
}

func (v EI) Format(delims *Delimiters) string {
	return joinComponents(delims, v.NamespaceID, v.UniversalID, v.UniversalIDType)
}

func (v EI) Validate() Diagnostics { return nil }

// HD is the Hierarchic Designator composite: NamespaceID^UniversalID^UniversalIDType.
type HD struct {
	NamespaceID     string
	UniversalID     string
	UniversalIDType string
}

func ParseHD(raw string, delims *Delimiters) (HD, error) {
	p := splitComponents(raw, delims, 3)
	return HD{NamespaceID: p[0], UniversalID: p[1], UniversalIDType: p[2]}, nil
}

func (v HD) Format(delims *Delimiters) string {
	return joinComponents(delims, v.NamespaceID, v.UniversalID, v.UniversalIDType)
}

func (v HD) Validate() Diagnostics { return nil }

// CE is the Coded Element composite: Identifier^Text^NameOfCodingSystem^
// AlternateIdentifier^AlternateText^NameOfAlternateCodingSystem.
type CE struct {
	Identifier                  string
	Text                        string
	NameOfCodingSystem          string
	AlternateIdentifier         string
	AlternateText               string
	NameOfAlternateCodingSystem string
}

func ParseCE(raw string, delims *Delimiters) (CE, error) {
	p := splitComponents(raw, delims, 6)
	return CE{
		Identifier:                  p[0],
		Text:                        p[1],
		NameOfCodingSystem:          p[2],
		AlternateIdentifier:         p[3],
		AlternateText:               p[4],
		NameOfAlternateCodingSystem: p[5],
	}, nil
}

func (v CE) Format(delims *Delimiters) string {
	return joinComponents(delims, v.Identifier, v.Text, v.NameOfCodingSystem,
		v.AlternateIdentifier, v.AlternateText, v.NameOfAlternateCodingSystem)
}

func (v CE) Validate() Diagnostics {
	if v.Identifier != "" && v.NameOfCodingSystem == "" {
		return Diagnostics{{Severity: SeverityWarning, Code: CodeValueSetViolation, Message: "CE has an identifier but no coding system"}}
	}
	return nil
}

// CX is the Extended Composite ID composite (patient/person identifier):
// ID^CheckDigit^CheckDigitScheme^AssigningAuthority^IdentifierTypeCode^AssigningFacility.
type CX struct {
	ID                 string
	CheckDigit         string
	CheckDigitScheme   string
	AssigningAuthority HD
	IdentifierTypeCode string
	AssigningFacility  HD
}

func ParseCX(raw string, delims *Delimiters) (CX, error) {
	p := splitComponents(raw, delims, 6)
	aa, _ := ParseHD(p[3], subDelims(delims))
	af, _ := ParseHD(p[5], subDelims(delims))
	return CX{
		ID:                 p[0],
		CheckDigit:         p[1],
		CheckDigitScheme:   p[2],
		AssigningAuthority: aa,
		IdentifierTypeCode: p[4],
		AssigningFacility:  af,
	}, nil
}

func (v CX) Format(delims *Delimiters) string {
	return joinComponents(delims, v.ID, v.CheckDigit, v.CheckDigitScheme,
		v.AssigningAuthority.Format(subDelims(delims)), v.IdentifierTypeCode, v.AssigningFacility.Format(subDelims(delims)))
}

func (v CX) Validate() Diagnostics {
	if v.ID == "" {
		return Diagnostics{{Severity: SeverityWarning, Code: CodeDataTypeViolation, Message: "CX has no ID component"}}
	}
	return nil
}

// XPN is the Extended Person Name composite: FamilyName^GivenName^
// MiddleName^Suffix^Prefix^Degree^NameTypeCode.
type XPN struct {
	FamilyName   string
	GivenName    string
	MiddleName   string
	Suffix       string
	Prefix       string
	Degree       string
	NameTypeCode string
}

func ParseXPN(raw string, delims *Delimiters) (XPN, error) {
	p := splitComponents(raw, delims, 7)
	return XPN{
		FamilyName:   p[0],
		GivenName:    p[1],
		MiddleName:   p[2],
		Suffix:       p[3],
		Prefix:       p[4],
		Degree:       p[5],
		NameTypeCode: p[6],
	}, nil
}

func (v XPN) Format(delims *Delimiters) string {
	return joinComponents(delims, v.FamilyName, v.GivenName, v.MiddleName,
		v.Suffix, v.Prefix, v.Degree, v.NameTypeCode)
}

func (v XPN) Validate() Diagnostics { return nil }

// XAD is the Extended Address composite: StreetAddress^OtherDesignation^
// City^StateOrProvince^ZipOrPostalCode^Country^AddressType^OtherGeographicDesignation.
type XAD struct {
	StreetAddress              string
	OtherDesignation           string
	City                       string
	StateOrProvince            string
	ZipOrPostalCode            string
	Country                    string
	AddressType                string
	OtherGeographicDesignation string
}

func ParseXAD(raw string, delims *Delimiters) (XAD, error) {
	p := splitComponents(raw, delims, 8)
	return XAD{
		StreetAddress:              p[0],
		OtherDesignation:           p[1],
		City:                       p[2],
		StateOrProvince:            p[3],
		ZipOrPostalCode:            p[4],
		Country:                    p[5],
		AddressType:                p[6],
		OtherGeographicDesignation: p[7],
	}, nil
}

func (v XAD) Format(delims *Delimiters) string {
	return joinComponents(delims, v.StreetAddress, v.OtherDesignation, v.City,
		v.StateOrProvince, v.ZipOrPostalCode, v.Country, v.AddressType, v.OtherGeographicDesignation)
}

func (v XAD) Validate() Diagnostics { return nil }

// XTN is the Extended Telecommunication Number composite:
// TelephoneNumber^TelecommunicationUseCode^TelecommunicationEquipmentType^
// EmailAddress^CountryCode^AreaCityCode^LocalNumber^Extension.
type XTN struct {
	TelephoneNumber                string
	TelecommunicationUseCode       string
	TelecommunicationEquipmentType string
	EmailAddress                   string
	CountryCode                    string
	AreaCityCode                   string
	LocalNumber                    string
	Extension                      string
}

func ParseXTN(raw string, delims *Delimiters) (XTN, error) {
	p := splitComponents(raw, delims, 8)
	return XTN{
		TelephoneNumber:                p[0],
		TelecommunicationUseCode:       p[1],
		TelecommunicationEquipmentType: p[2],
		EmailAddress:                   p[3],
		CountryCode:                    p[4],
		AreaCityCode:                   p[5],
		LocalNumber:                    p[6],
		Extension:                      p[7],
	}, nil
}

func (v XTN) Format(delims *Delimiters) string {
	return joinComponents(delims, v.TelephoneNumber, v.TelecommunicationUseCode,
		v.TelecommunicationEquipmentType, v.EmailAddress, v.CountryCode,
		v.AreaCityCode, v.LocalNumber, v.Extension)
}

func (v XTN) Validate() Diagnostics { return nil }

// PL is the Person Location composite: PointOfCare^Room^Bed^Facility^
// LocationStatus^PersonLocationType^Building^Floor.
type PL struct {
	PointOfCare        string
	Room               string
	Bed                string
	Facility           HD
	LocationStatus     string
	PersonLocationType string
	Building           string
	Floor              string
}

func ParsePL(raw string, delims *Delimiters) (PL, error) {
	p := splitComponents(raw, delims, 8)
	facility, _ := ParseHD(p[3], subDelims(delims))
	return PL{
		PointOfCare:        p[0],
		Room:               p[1],
		Bed:                p[2],
		Facility:           facility,
		LocationStatus:     p[4],
		PersonLocationType: p[5],
		Building:           p[6],
		Floor:              p[7],
	}, nil
}

func (v PL) Format(delims *Delimiters) string {
	return joinComponents(delims, v.PointOfCare, v.Room, v.Bed, v.Facility.Format(subDelims(delims)),
		v.LocationStatus, v.PersonLocationType, v.Building, v.Floor)
}

func (v PL) Validate() Diagnostics { return nil }

// ParseByType parses raw against the named HL7 data type (as it appears in
// a StructureDB FieldDef.DataType, e.g. "ST", "CX", "XPN") and returns the
// resulting DataType value, ready for Format or Validate. Composite types
// consult delims for their component separator; delims may be nil, in
// which case DefaultDelimiters applies.
//
// A handful of table-driven types this catalog does not model structurally
// (CM, the generic composite placeholder; PT, Processing Type; VID, Version
// ID) pass through as ST: their grammars are either fully free-text or
// defined by a value-set binding the Validator applies separately, so an
// opaque string loses nothing ParseByType's callers need. An unrecognized
// name also falls back to ST rather than failing the parse outright, since
// a conformance profile may reference a site-local type this catalog has
// no built-in definition for.
func ParseByType(dataType string, raw string, delims *Delimiters) (DataType, error) {
	switch dataType {
	case "ST", "CM", "PT", "VID", "":
		return ParseST(raw)
	case "TX":
		return ParseTX(raw)
	case "FT":
		return ParseFT(raw)
	case "ID":
		return ParseID(raw)
	case "IS":
		return ParseIS(raw)
	case "SI":
		return ParseSI(raw)
	case "NM":
		return ParseNM(raw)
	case "DT":
		return ParseDT(raw)
	case "TM":
		return ParseTM(raw)
	case "DTM":
		return ParseDTM(raw)
	case "EI":
		return ParseEI(raw, delims)
	case "HD":
		return ParseHD(raw, delims)
	case "CE":
		return ParseCE(raw, delims)
	case "CX":
		return ParseCX(raw, delims)
	case "XPN":
		return ParseXPN(raw, delims)
	case "XAD":
		return ParseXAD(raw, delims)
	case "XTN":
		return ParseXTN(raw, delims)
	case "PL":
		return ParsePL(raw, delims)
	default:
		return ParseST(raw)
	}
}
