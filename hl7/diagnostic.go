package hl7

import "fmt"

// Code is a short, stable identifier for a diagnostic condition raised while
// parsing, validating, or framing an HL7 message.
type Code string

// Diagnostic codes produced by the parser, framer, and validator.
const (
	CodeNoHeader              Code = "NoHeader"
	CodeUnknownSegment        Code = "UnknownSegment"
	CodeMalformedField        Code = "MalformedField"
	CodeMalformedEscape       Code = "MalformedEscape"
	CodeCharsetMismatch       Code = "CharsetMismatch"
	CodeUnsupportedCharset    Code = "UnsupportedCharset"
	CodeMessageTooLarge       Code = "MessageTooLarge"
	CodeMessageTruncated      Code = "MessageTruncated"
	CodeCardinalityViolation  Code = "CardinalityViolation"
	CodeDataTypeViolation     Code = "DataTypeViolation"
	CodeValueSetViolation     Code = "ValueSetViolation"
	CodeProtocolJunk          Code = "ProtocolJunk"
	CodeInvalidHeader         Code = "InvalidHeader"
	CodeVersionFallback       Code = "VersionFallback"
	CodePoolLowHitRate        Code = "PoolLowHitRate"
	CodeMultiCharsetTolerated Code = "MultiCharsetTolerated"
)

// Diagnostic is a single recoverable condition observed while processing a
// message, tagged with severity, a path locator, and a short code.
type Diagnostic struct {
	Severity Severity
	Code     Code
	Location *Location
	Message  string
}

// String renders the diagnostic for logs and error messages.
func (d Diagnostic) String() string {
	if d.Location != nil {
		return fmt.Sprintf("[%s] %s at %s: %s", d.Severity, d.Code, d.Location.String(), d.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", d.Severity, d.Code, d.Message)
}

// Diagnostics is an ordered collection of diagnostics, preserving source
// order per spec: diagnostics follow source order within a single message.
type Diagnostics []Diagnostic

// Add appends a diagnostic and returns the updated slice.
func (d Diagnostics) Add(sev Severity, code Code, loc *Location, msg string) Diagnostics {
	return append(d, Diagnostic{Severity: sev, Code: code, Location: loc, Message: msg})
}

// HasSeverity reports whether any diagnostic meets or exceeds the given
// severity in strictness (Error is the strictest, then Warning, then Info).
func (d Diagnostics) HasSeverity(floor Severity) bool {
	for _, diag := range d {
		if severityRank(diag.Severity) <= severityRank(floor) {
			return true
		}
	}
	return false
}

// First returns the first diagnostic at or above the given severity floor,
// along with true, or the zero Diagnostic and false if none qualifies.
func (d Diagnostics) First(floor Severity) (Diagnostic, bool) {
	for _, diag := range d {
		if severityRank(diag.Severity) <= severityRank(floor) {
			return diag, true
		}
	}
	return Diagnostic{}, false
}

// severityRank orders severities from strictest (Error) to loosest (Info),
// matching the iota declaration order in errors.go.
func severityRank(s Severity) int {
	switch s {
	case SeverityError:
		return 0
	case SeverityWarning:
		return 1
	case SeverityInfo:
		return 2
	default:
		return 3
	}
}
